// Package middleware provides the net/http middleware the server wraps
// around its root handler.
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation into the log context
//   - RequestLogger: per-request record at a level chosen by status code
//   - Tracing: one OpenTelemetry server span per request
//   - CORS: the allow_cors_domain policy
//   - AltSvc: HTTP/3 advertisement for the QUIC-capable variants
//   - InjectState: configuration and runtime state on every request context
package middleware
