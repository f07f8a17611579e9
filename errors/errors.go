package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified startup error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains the offending field, variant, value or path.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code. It lets the
// code sentinels below be used with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value formatted as a string, or "" when unset.
func (e *AppError) Detail(key string) string {
	v, ok := e.Details[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Sentinels for errors.Is matching by code.
var (
	ErrConfigNotFound     = New(ErrCodeConfigNotFound, "")
	ErrConfigMalformed    = New(ErrCodeConfigMalformed, "")
	ErrMissingField       = New(ErrCodeMissingField, "")
	ErrInvalidField       = New(ErrCodeInvalidField, "")
	ErrUnknownVariant     = New(ErrCodeUnknownVariant, "")
	ErrInvalidLevel       = New(ErrCodeInvalidLevel, "")
	ErrInvalidRotation    = New(ErrCodeInvalidRotation, "")
	ErrLogBackendInit     = New(ErrCodeLogBackendInit, "")
	ErrWatchFailure       = New(ErrCodeWatchFailure, "")
	ErrBindFailure        = New(ErrCodeBindFailure, "")
	ErrCertificateFailure = New(ErrCodeCertificateFailure, "")
	ErrSpawnFailure       = New(ErrCodeSpawnFailure, "")
)

// CodeOf returns the code of the first *AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// DetailOf returns a detail of the first *AppError in err's chain, or "".
func DetailOf(err error, key string) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Detail(key)
	}
	return ""
}

// Is is errors.Is from the standard library, re-exported so callers need a
// single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As is errors.As from the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }

// --- Constructors ---

// ConfigNotFound reports that none of the candidate paths exists.
func ConfigNotFound(appName string, tried []string) *AppError {
	return New(ErrCodeConfigNotFound,
		fmt.Sprintf("the server configuration for %q could not be found (tried: %s)", appName, strings.Join(tried, ", "))).
		WithDetail(DetailValue, appName)
}

// ConfigMalformed reports a document that could not be read or parsed.
func ConfigMalformed(path string, cause error) *AppError {
	return New(ErrCodeConfigMalformed,
		fmt.Sprintf("failed to parse the server configuration file %s", path)).
		WithDetail(DetailPath, path).
		WithCause(cause)
}

// MissingField reports a field required by variant (which may be empty when
// the requirement comes from a feature rather than a deployment variant).
func MissingField(field, variant string) *AppError {
	msg := fmt.Sprintf("missing required field %q", field)
	if variant != "" {
		msg = fmt.Sprintf("missing required field %q for the %s deployment variant", field, variant)
	}
	e := New(ErrCodeMissingField, msg).WithDetail(DetailField, field)
	if variant != "" {
		e.WithDetail(DetailVariant, variant)
	}
	return e
}

// InvalidField reports a field that is present but not acceptable.
func InvalidField(field, reason string) *AppError {
	return New(ErrCodeInvalidField, fmt.Sprintf("invalid field %q: %s", field, reason)).
		WithDetail(DetailField, field)
}

// UnknownVariant reports a startup_type with no available variant.
func UnknownVariant(value string) *AppError {
	return New(ErrCodeUnknownVariant,
		fmt.Sprintf("the server deployment method %q could not be determined; check the startup_type field", value)).
		WithDetail(DetailValue, value)
}

// InvalidLevel reports an unsupported log level string.
func InvalidLevel(value string) *AppError {
	return New(ErrCodeInvalidLevel,
		fmt.Sprintf("incorrect logging level %q; choose one of error, warn, info, debug, trace", value)).
		WithDetail(DetailValue, value)
}

// InvalidRotation reports an unsupported rotation policy string.
func InvalidRotation(value string) *AppError {
	return New(ErrCodeInvalidRotation,
		fmt.Sprintf("incorrect log rotation %q; choose one of never, daily, hourly, minutely", value)).
		WithDetail(DetailValue, value)
}

// LogBackendInit reports a logging backend that could not be initialized.
func LogBackendInit(reason string, cause error) *AppError {
	return New(ErrCodeLogBackendInit, reason).WithCause(cause)
}

// WatchFailure reports a failed dynamic port watch.
func WatchFailure(path string, cause error) *AppError {
	return New(ErrCodeWatchFailure, fmt.Sprintf("watching %s for the server port failed", path)).
		WithDetail(DetailPath, path).
		WithCause(cause)
}

// BindFailure reports a listener that could not be bound on addr.
func BindFailure(addr string, cause error) *AppError {
	return New(ErrCodeBindFailure, fmt.Sprintf("failed to bind %s", addr)).
		WithDetail(DetailAddr, addr).
		WithCause(cause)
}

// CertificateFailure reports certificate loading or issuance that failed.
func CertificateFailure(reason string, cause error) *AppError {
	return New(ErrCodeCertificateFailure, reason).WithCause(cause)
}

// SpawnFailure reports a pre-start program that could not be launched.
func SpawnFailure(bin string, cause error) *AppError {
	return New(ErrCodeSpawnFailure, fmt.Sprintf("failed to launch %s", bin)).
		WithDetail(DetailPath, bin).
		WithCause(cause)
}
