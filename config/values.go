package config

import (
	"github.com/kbukum/serverkit/logger"
)

// Defaults applied by Default.
const (
	DefaultStartupType = "http_localhost"
	DefaultPort        = 8800
	DefaultLogLevel    = "debug"
)

// Values is the generic server configuration shared by every application.
// Pointer fields are optional: nil means the key is absent.
type Values struct {
	// AppName is always the name passed to Load; the document cannot set it.
	AppName string `mapstructure:"-" yaml:"-"`

	StartupType string  `mapstructure:"startup_type" yaml:"startup_type"`
	ServerHost  *string `mapstructure:"server_host" yaml:"server_host,omitempty"`
	ServerPort  *uint16 `mapstructure:"server_port" yaml:"server_port,omitempty"`

	AcmeDomain       *string `mapstructure:"acme_domain" yaml:"acme_domain,omitempty"`
	AcmeEmail        *string `mapstructure:"acme_email" yaml:"acme_email,omitempty" validate:"omitempty,email"`
	AcmeDirectoryURL *string `mapstructure:"acme_directory_url" yaml:"acme_directory_url,omitempty" validate:"omitempty,url"`
	AcmeCacheDir     *string `mapstructure:"acme_cache_dir" yaml:"acme_cache_dir,omitempty"`
	SSLKeyPath       *string `mapstructure:"ssl_key_path" yaml:"ssl_key_path,omitempty"`
	SSLCrtPath       *string `mapstructure:"ssl_crt_path" yaml:"ssl_crt_path,omitempty"`

	AutoMigrateBin     *string `mapstructure:"auto_migrate_bin" yaml:"auto_migrate_bin,omitempty"`
	ServerPortAchiever *string `mapstructure:"server_port_achiever" yaml:"server_port_achiever,omitempty"`

	AllowCORSDomain *string `mapstructure:"allow_cors_domain" yaml:"allow_cors_domain,omitempty"`

	AllowOAPIAccess  *bool   `mapstructure:"allow_oapi_access" yaml:"allow_oapi_access,omitempty"`
	OAPIFrontendType *string `mapstructure:"oapi_frontend_type" yaml:"oapi_frontend_type,omitempty"`
	OAPIName         *string `mapstructure:"oapi_name" yaml:"oapi_name,omitempty"`
	OAPIVer          *string `mapstructure:"oapi_ver" yaml:"oapi_ver,omitempty"`
	OAPIAPIAddr      *string `mapstructure:"oapi_api_addr" yaml:"oapi_api_addr,omitempty" validate:"omitempty,startswith=/"`

	LogLevel           *string `mapstructure:"log_level" yaml:"log_level,omitempty"`
	LogFileLevel       *string `mapstructure:"log_file_level" yaml:"log_file_level,omitempty"`
	LogRolling         *string `mapstructure:"log_rolling" yaml:"log_rolling,omitempty"`
	LogRollingMaxFiles *uint32 `mapstructure:"log_rolling_max_files" yaml:"log_rolling_max_files,omitempty" validate:"omitempty,min=1"`

	OpenTelemetryEndpoint *string `mapstructure:"open_telemetry_endpoint" yaml:"open_telemetry_endpoint,omitempty"`

	variant  Variant
	resolved bool
}

// Setup is implemented by application configs that embed Values. The
// embedded *Values method set satisfies it automatically.
type Setup interface {
	GenericValues() *Values
}

// GenericValues returns v itself so that structs embedding Values satisfy Setup.
func (v *Values) GenericValues() *Values { return v }

// Default returns the values used when an application wants a working
// configuration without a document: localhost HTTP on port 8800 with debug
// console logging.
func Default(appName string) *Values {
	port := uint16(DefaultPort)
	level := DefaultLogLevel
	return &Values{
		AppName:     appName,
		StartupType: DefaultStartupType,
		ServerPort:  &port,
		LogLevel:    &level,
	}
}

// Variant returns the deployment variant resolved during Load, or
// VariantUnknown if the values were never resolved.
func (v *Values) Variant() Variant {
	if !v.resolved {
		return VariantUnknown
	}
	return v.variant
}

// Port returns the configured port, 0 when absent.
func (v *Values) Port() uint16 {
	if v.ServerPort == nil {
		return 0
	}
	return *v.ServerPort
}

// Host returns the configured host, "" when absent.
func (v *Values) Host() string { return deref(v.ServerHost) }

// OpenAPIEnabled reports whether documentation endpoints were requested and
// the capability is available.
func (v *Values) OpenAPIEnabled(caps Capabilities) bool {
	return caps.OpenAPI && v.AllowOAPIAccess != nil && *v.AllowOAPIAccess
}

// LoggingConfig maps the log_* keys onto the logging pipeline configuration.
// Capability-gated keys are dropped when the capability is off.
func (v *Values) LoggingConfig(caps Capabilities) logger.Config {
	cfg := logger.Config{
		AppName:      v.AppName,
		Level:        v.LogLevel,
		FileLevel:    v.LogFileLevel,
		Rolling:      v.LogRolling,
		MaxFiles:     v.LogRollingMaxFiles,
		DebugDefault: caps.Debug,
		Unfiltered:   caps.LogUnfiltered,
	}
	if caps.Telemetry {
		cfg.TelemetryEndpoint = v.OpenTelemetryEndpoint
	}
	return cfg
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
