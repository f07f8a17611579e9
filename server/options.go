package server

import (
	"time"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/logger"
)

// Defaults for the HTTP servers.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	// maxConcurrentStreams bounds HTTP/2 streams per connection.
	maxConcurrentStreams = 250
)

type options struct {
	caps              config.Capabilities
	log               *logger.Logger
	framework         func(module string) *logger.Logger
	appConfig         any
	document          any
	readHeaderTimeout time.Duration
	idleTimeout       time.Duration
	warmTimeout       time.Duration
}

func defaultOptions() options {
	return options{
		caps:              config.AllCapabilities(),
		log:               logger.GetGlobalLogger(),
		framework:         func(string) *logger.Logger { return logger.Nop() },
		readHeaderTimeout: DefaultReadHeaderTimeout,
		idleTimeout:       DefaultIdleTimeout,
	}
}

// Option configures a Builder.
type Option func(*options)

// WithCapabilities sets the feature set; every capability is on by default.
func WithCapabilities(caps config.Capabilities) Option {
	return func(o *options) { o.caps = caps }
}

// WithPipeline logs through the installed pipeline: application records go
// to its root logger, net/http, gin and http3 records to its framework
// loggers. Without it the global logger is used and framework records are
// dropped.
func WithPipeline(p *logger.Pipeline) Option {
	return func(o *options) {
		o.log = p.Logger()
		o.framework = p.Framework
	}
}

// WithLogger overrides the application logger.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithAppConfig injects the application config into every request context;
// see middleware.AppConfig.
func WithAppConfig(cfg any) Option {
	return func(o *options) { o.appConfig = cfg }
}

// WithDocument serves doc as the OpenAPI document instead of the one
// generated from the registered routes.
func WithDocument(doc any) Option {
	return func(o *options) { o.document = doc }
}

// WithTimeouts sets the header read and keep-alive idle timeouts of the TCP
// server. Zero keeps the default.
func WithTimeouts(readHeader, idle time.Duration) Option {
	return func(o *options) {
		if readHeader > 0 {
			o.readHeaderTimeout = readHeader
		}
		if idle > 0 {
			o.idleTimeout = idle
		}
	}
}

// WithCertificateTimeout bounds the initial ACME issuance. Without it the
// issuance runs until it succeeds, fails, or the server stops.
func WithCertificateTimeout(d time.Duration) Option {
	return func(o *options) { o.warmTimeout = d }
}
