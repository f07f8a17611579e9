package bootstrap

import (
	"io"
	"os"
	"time"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/server"
	"github.com/kbukum/serverkit/shutdown"
	"github.com/kbukum/serverkit/version"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

// appOptions collects all option values before applying to App.
type appOptions struct {
	caps            config.Capabilities
	loaderOpts      []config.LoaderOption
	serverOpts      []server.Option
	shutdownOpts    []shutdown.Option
	gracefulTimeout time.Duration
	version         string
	summaryOut      io.Writer
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{
		caps:       config.AllCapabilities(),
		version:    version.Short(),
		summaryOut: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithCapabilities sets the optional feature set for loading and serving.
func WithCapabilities(caps config.Capabilities) Option {
	return func(o *appOptions) {
		o.caps = caps
	}
}

// WithLoaderOptions passes options to config.LoadInto, such as an env prefix
// or an explicit config file.
func WithLoaderOptions(opts ...config.LoaderOption) Option {
	return func(o *appOptions) {
		o.loaderOpts = append(o.loaderOpts, opts...)
	}
}

// WithServerOptions passes options to the server builder.
func WithServerOptions(opts ...server.Option) Option {
	return func(o *appOptions) {
		o.serverOpts = append(o.serverOpts, opts...)
	}
}

// WithGracefulTimeout bounds the graceful stop and the OnStop hooks. Without
// it in-flight requests are waited for indefinitely.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = d
	}
}

// WithTriggers adds shutdown triggers next to the signal trigger.
func WithTriggers(triggers ...shutdown.Trigger) Option {
	return func(o *appOptions) {
		o.shutdownOpts = append(o.shutdownOpts, shutdown.WithTrigger(triggers...))
	}
}

// WithoutSignal stops Start and Run from listening for Ctrl+C and SIGTERM.
func WithoutSignal() Option {
	return func(o *appOptions) {
		o.shutdownOpts = append(o.shutdownOpts, shutdown.WithoutSignal())
	}
}

// WithVersion overrides the version reported in logs and the summary; the
// build version is used otherwise.
func WithVersion(v string) Option {
	return func(o *appOptions) {
		o.version = v
	}
}

// WithSummaryOutput sets where the startup summary is printed; nil disables
// it. Standard output is the default.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *appOptions) {
		o.summaryOut = w
	}
}
