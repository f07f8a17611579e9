package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/portwatch"
)

// Extensions tried for the configuration document, in order.
var Extensions = []string{"yaml", "yml", "toml", "json"}

// DefaultSystemDir is searched after the working directory.
const DefaultSystemDir = "/etc"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the configuration document for an application.
type Resolver struct {
	FileSystem FileSystem
	// SystemDir replaces DefaultSystemDir when set.
	SystemDir string
}

// Candidates lists every path tried for appName: all working-directory
// names first, then the system directory.
func (r *Resolver) Candidates(appName string) []string {
	sys := r.SystemDir
	if sys == "" {
		sys = DefaultSystemDir
	}
	out := make([]string, 0, 2*len(Extensions))
	for _, dir := range []string{"", sys} {
		for _, ext := range Extensions {
			name := appName + "." + ext
			if dir != "" {
				name = filepath.Join(dir, name)
			}
			out = append(out, name)
		}
	}
	return out
}

// Resolve returns the first existing candidate. No merging happens across
// locations.
func (r *Resolver) Resolve(appName string) (string, error) {
	tried := r.Candidates(appName)
	for _, path := range tried {
		if r.FileSystem.Exists(path) {
			return path, nil
		}
	}
	return "", errors.ConfigNotFound(appName, tried)
}

// LoaderConfig holds dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem   FileSystem
	SystemDir    string
	ConfigFile   string
	EnvFile      string
	EnvPrefix    string
	PortTimeout  time.Duration
	Capabilities Capabilities
}

// LoaderOption is a functional option for Load and LoadInto.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithSystemDir replaces the /etc fallback directory.
func WithSystemDir(dir string) LoaderOption {
	return func(lc *LoaderConfig) { lc.SystemDir = dir }
}

// WithConfigFile skips resolution and reads path directly.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile loads a dotenv file into the process environment before the
// document is read. Only useful together with WithEnvPrefix.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix lets PREFIX_FIELD environment variables override document
// keys, e.g. BILLING_SERVER_PORT for server_port.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithPortTimeout bounds the wait on server_port_achiever. Zero waits
// until the context is done.
func WithPortTimeout(d time.Duration) LoaderOption {
	return func(lc *LoaderConfig) { lc.PortTimeout = d }
}

// WithCapabilities sets the feature set used to resolve the variant and
// gate optional keys. The default is AllCapabilities.
func WithCapabilities(c Capabilities) LoaderOption {
	return func(lc *LoaderConfig) { lc.Capabilities = c }
}

func newLoaderConfig(opts []LoaderOption) LoaderConfig {
	lc := LoaderConfig{Capabilities: AllCapabilities()}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}
	return lc
}

// Load reads the generic configuration of appName. See LoadInto.
func Load(ctx context.Context, appName string, opts ...LoaderOption) (*Values, error) {
	v := &Values{}
	if err := LoadInto(ctx, appName, v, opts...); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadInto fills setup from the document of appName and validates it:
//
//  1. resolve {app}.<ext> in the working directory, then the system directory;
//  2. parse the document (CONFIG_MALFORMED on failure);
//  3. overwrite app_name with appName;
//  4. require oapi_name, oapi_ver and oapi_api_addr when docs are enabled;
//  5. check field formats;
//  6. resolve the deployment variant and its required fields;
//  7. if server_port_achiever is set, wait for the port file.
//
// Nothing is retried.
func LoadInto(ctx context.Context, appName string, setup Setup, opts ...LoaderOption) error {
	lc := newLoaderConfig(opts)

	if lc.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(lc.EnvFile); err != nil {
			return errors.ConfigMalformed(lc.EnvFile, err)
		}
	}

	path := lc.ConfigFile
	if path == "" {
		resolver := &Resolver{FileSystem: lc.FileSystem, SystemDir: lc.SystemDir}
		var err error
		if path, err = resolver.Resolve(appName); err != nil {
			return err
		}
	} else if !lc.FileSystem.Exists(path) {
		return errors.ConfigNotFound(appName, []string{path})
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.ConfigMalformed(path, err)
	}
	if lc.EnvPrefix != "" {
		bindPrefixedEnv(v, lc.EnvPrefix)
	}
	if err := v.Unmarshal(setup, decodeHook()); err != nil {
		return errors.ConfigMalformed(path, err)
	}

	values := setup.GenericValues()
	values.AppName = appName

	if err := checkOpenAPI(values, lc.Capabilities); err != nil {
		return err
	}
	if err := validateFormat(values); err != nil {
		return err
	}

	variant, err := values.ResolveVariant(lc.Capabilities)
	if err != nil {
		return err
	}
	values.variant, values.resolved = variant, true

	if values.ServerPortAchiever != nil {
		var wopts []portwatch.Option
		if lc.PortTimeout > 0 {
			wopts = append(wopts, portwatch.WithTimeout(lc.PortTimeout))
		}
		port, err := portwatch.Watch(ctx, *values.ServerPortAchiever, wopts...)
		if err != nil {
			return err
		}
		values.ServerPort = &port
	}
	return nil
}

// checkOpenAPI requires the documentation identity once docs are requested.
func checkOpenAPI(v *Values, caps Capabilities) error {
	if !v.OpenAPIEnabled(caps) {
		return nil
	}
	for _, f := range []struct {
		name  string
		value *string
	}{
		{FieldOAPIName, v.OAPIName},
		{FieldOAPIVer, v.OAPIVer},
		{FieldOAPIAPIAddr, v.OAPIAPIAddr},
	} {
		if f.value == nil {
			return errors.MissingField(f.name, "")
		}
	}
	return nil
}

// bindPrefixedEnv copies PREFIX_KEY variables onto their document keys.
func bindPrefixedEnv(v *viper.Viper, prefix string) {
	p := strings.ToUpper(prefix) + "_"
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], p) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(pair[0], p))
		if key == "" {
			continue
		}
		v.Set(key, pair[1])
	}
}
