package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/logger"
	"github.com/kbukum/serverkit/server"
	"github.com/kbukum/serverkit/server/middleware"
	"github.com/kbukum/serverkit/shutdown"
)

// ErrAlreadyStarted is returned when an App is started a second time.
var ErrAlreadyStarted = stderrors.New("bootstrap: app already started")

// App is an application built on the generic server configuration. The type
// parameter C is the application's own config type; any struct embedding
// config.Values satisfies config.Setup through the promoted method.
//
// Example:
//
//	type MyConfig struct {
//	    config.Values `mapstructure:",squash"`
//	    Greeting string `mapstructure:"greeting"`
//	}
//
//	app, err := bootstrap.NewApp(ctx, "my-service", &MyConfig{})
//	app.Handle(http.MethodGet, "/hello", hello)
//	app.Run(ctx)
type App[C config.Setup] struct {
	Name     string
	Version  string
	Cfg      C
	Values   *config.Values
	State    *config.State
	Logger   *logger.Logger
	Pipeline *logger.Pipeline
	Summary  *Summary

	opts    *appOptions
	builder *server.Builder
	created time.Time

	onStart []Hook
	onReady []Hook
	onStop  []Hook

	mu      sync.Mutex
	srv     *server.Server
	stopped bool
	stopErr error
}

// NewApp loads the configuration of appName into cfg, builds and installs
// the logging pipeline, and resolves the server state. Until the pipeline is
// installed errors are reported through a console bootstrap logger.
func NewApp[C config.Setup](ctx context.Context, appName string, cfg C, opts ...Option) (*App[C], error) {
	created := time.Now()
	o := resolveOptions(opts)
	boot := logger.NewDefault(appName)

	loaderOpts := append([]config.LoaderOption{config.WithCapabilities(o.caps)}, o.loaderOpts...)
	if err := config.LoadInto(ctx, appName, cfg, loaderOpts...); err != nil {
		boot.Error("Configuration failed", logger.ErrorFields("load_config", err))
		return nil, err
	}
	values := cfg.GenericValues()

	p, state, err := Prepare(ctx, values, o.caps)
	if err != nil {
		boot.Error("Logging backend failed", logger.ErrorFields("prepare", err))
		return nil, err
	}

	serverOpts := append([]server.Option{
		server.WithCapabilities(o.caps),
		server.WithPipeline(p),
		server.WithAppConfig(cfg),
	}, o.serverOpts...)

	app := &App[C]{
		Name:     appName,
		Version:  o.version,
		Cfg:      cfg,
		Values:   values,
		State:    state,
		Logger:   p.Logger(),
		Pipeline: p,
		Summary:  NewSummary(appName, o.version),
		opts:     o,
		builder:  server.New(values, state, serverOpts...),
		created:  created,
	}
	app.Logger.Info("Configuration loaded", logger.Fields(
		"app", appName,
		"variant", values.Variant().String(),
	))
	return app, nil
}

// Prepare builds the logging pipeline for values, installs it process-wide
// and returns it with the state the server needs. It succeeds at most once
// per process; later calls fail with LOG_BACKEND_INIT_FAILURE.
func Prepare(ctx context.Context, values *config.Values, caps config.Capabilities) (*logger.Pipeline, *config.State, error) {
	p, err := logger.Build(ctx, values.LoggingConfig(caps))
	if err != nil {
		return nil, nil, err
	}
	if err := p.Install(); err != nil {
		_ = p.Guard().Release()
		return nil, nil, err
	}
	return p, config.NewState(values.Variant(), p.Guard()), nil
}

// Use appends HTTP middleware; see server.Builder.Use.
func (a *App[C]) Use(mw ...middleware.Middleware) *App[C] {
	a.builder.Use(mw...)
	return a
}

// Mount serves handler next to the gin engine; see server.Builder.Mount.
func (a *App[C]) Mount(pattern string, handler http.Handler) *App[C] {
	a.builder.Mount(pattern, handler)
	return a
}

// Handle registers a gin route.
func (a *App[C]) Handle(method, path string, handlers ...gin.HandlerFunc) *App[C] {
	a.builder.Handle(method, path, handlers...)
	return a
}

// Routes registers routes through fn.
func (a *App[C]) Routes(fn func(r gin.IRouter)) *App[C] {
	a.builder.Routes(fn)
	return a
}

// StartClean runs the OnStart hooks, binds the server, prints the startup
// summary and runs the OnReady hooks. No signal handling is installed: the
// caller stops the server through its Handle or through Shutdown.
func (a *App[C]) StartClean(ctx context.Context) (*server.Server, error) {
	a.mu.Lock()
	if a.srv != nil {
		a.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	a.mu.Unlock()

	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := runHooks(ctx, a.onStart); err != nil {
		return nil, fmt.Errorf("onStart hook failed: %w", err)
	}

	srv, err := a.builder.Start(ctx)
	if err != nil {
		a.Logger.Error("Server failed to start", logger.ErrorFields("start", err))
		return nil, err
	}
	a.mu.Lock()
	a.srv = srv
	a.mu.Unlock()

	a.Summary.SetStartupDuration(time.Since(a.created))
	a.Summary.collect(srv, a.Pipeline, a.Values, a.opts.caps)
	if a.opts.summaryOut != nil {
		a.Summary.Write(a.opts.summaryOut)
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		_ = a.Shutdown(context.Background())
		return nil, fmt.Errorf("onReady hook failed: %w", err)
	}
	return srv, nil
}

// Start is StartClean plus a shutdown coordinator listening for Ctrl+C and
// SIGTERM in the background.
func (a *App[C]) Start(ctx context.Context) (*server.Server, error) {
	srv, err := a.StartClean(ctx)
	if err != nil {
		return nil, err
	}
	done := a.coordinator().Attach(srv.Handle())
	go func() {
		if err := <-done; err != nil {
			a.Logger.Error("Graceful shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}()
	return srv, nil
}

// Run starts the application and blocks until a shutdown trigger fires, ctx
// is done, or the server stops on its own. It then runs the OnStop hooks and
// releases the state. The returned error is the one that stopped the
// server, if any.
func (a *App[C]) Run(ctx context.Context) error {
	srv, err := a.StartClean(ctx)
	if err != nil {
		_ = a.State.Release()
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown")
	stopErr := a.coordinator().Run(ctx, srv.Handle())
	if err := a.finish(); err != nil {
		return err
	}
	return stopErr
}

// Shutdown stops a started server, waits for it, runs the OnStop hooks and
// releases the state. Use it with StartClean; calling it more than once
// returns the first result.
func (a *App[C]) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.srv
	a.mu.Unlock()
	if srv == nil {
		return a.State.Release()
	}
	stopErr := srv.Handle().Stop(ctx)
	if err := a.finish(); err != nil {
		return err
	}
	return stopErr
}

// finish runs once the stop has been requested or the server failed.
func (a *App[C]) finish() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return a.stopErr
	}
	a.stopped = true

	srvErr := a.srv.Wait()
	if srvErr != nil {
		a.Logger.Error("Server stopped with error", logger.ErrorFields("serve", srvErr))
	}

	ctx := context.Background()
	if a.opts.gracefulTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.gracefulTimeout)
		defer cancel()
	}
	hookErr := runHooks(ctx, a.onStop)
	if hookErr != nil {
		a.Logger.Error("OnStop hook error", logger.ErrorFields("on_stop", hookErr))
	}

	a.Logger.Info("Application shutdown complete")
	releaseErr := a.State.Release()

	switch {
	case srvErr != nil:
		a.stopErr = srvErr
	case hookErr != nil:
		a.stopErr = hookErr
	default:
		a.stopErr = releaseErr
	}
	return a.stopErr
}

func (a *App[C]) coordinator() *shutdown.Coordinator {
	opts := append([]shutdown.Option{shutdown.WithLogger(a.Logger)}, a.opts.shutdownOpts...)
	if a.opts.gracefulTimeout > 0 {
		opts = append(opts, shutdown.WithTimeout(a.opts.gracefulTimeout))
	}
	return shutdown.New(opts...)
}
