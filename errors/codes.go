package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors
const (
	// ErrCodeConfigNotFound indicates no configuration document exists at any candidate path.
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	// ErrCodeConfigMalformed indicates the document exists but could not be read or parsed.
	ErrCodeConfigMalformed ErrorCode = "CONFIG_MALFORMED"
	// ErrCodeMissingField indicates a field required by the chosen variant or feature is absent.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeInvalidField indicates a field is present but badly shaped or forbidden.
	ErrCodeInvalidField ErrorCode = "INVALID_FIELD"
	// ErrCodeUnknownVariant indicates startup_type names no available deployment variant.
	ErrCodeUnknownVariant ErrorCode = "UNKNOWN_VARIANT"
)

// Logging errors
const (
	// ErrCodeInvalidLevel indicates a log level outside error|warn|info|debug|trace.
	ErrCodeInvalidLevel ErrorCode = "INVALID_LEVEL"
	// ErrCodeInvalidRotation indicates a rotation policy outside never|daily|hourly|minutely.
	ErrCodeInvalidRotation ErrorCode = "INVALID_ROTATION"
	// ErrCodeLogBackendInit indicates a sink could not be created or the backend was installed twice.
	ErrCodeLogBackendInit ErrorCode = "LOG_BACKEND_INIT_FAILURE"
)

// Runtime errors
const (
	// ErrCodeWatchFailure indicates the dynamic port watch failed or timed out.
	ErrCodeWatchFailure ErrorCode = "WATCH_FAILURE"
	// ErrCodeBindFailure indicates a listener could not be bound.
	ErrCodeBindFailure ErrorCode = "BIND_FAILURE"
	// ErrCodeCertificateFailure indicates certificate loading or issuance failed.
	ErrCodeCertificateFailure ErrorCode = "CERTIFICATE_FAILURE"
	// ErrCodeSpawnFailure indicates the pre-start program could not be launched.
	ErrCodeSpawnFailure ErrorCode = "SPAWN_FAILURE"
)

// Detail keys.
const (
	DetailField   = "field"
	DetailVariant = "variant"
	DetailValue   = "value"
	DetailPath    = "path"
	DetailAddr    = "addr"
)
