package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/logger"
	"github.com/kbukum/serverkit/process"
	"github.com/kbukum/serverkit/server/docs"
	"github.com/kbukum/serverkit/server/middleware"
)

// Builder accumulates routes, mounts and middleware. Nothing is bound until
// Start, and nothing can be added to the server afterwards.
type Builder struct {
	values *config.Values
	state  *config.State
	opts   options

	middlewares []middleware.Middleware
	mounts      []mount
	routes      []func(gin.IRouter)
}

type mount struct {
	pattern string
	handler http.Handler
}

// New creates a Builder for the resolved values and state.
func New(values *config.Values, state *config.State, opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder{values: values, state: state, opts: o}
}

// Use appends middleware applied inside the built-in stack, in order.
func (b *Builder) Use(mw ...middleware.Middleware) *Builder {
	b.middlewares = append(b.middlewares, mw...)
	return b
}

// Mount serves handler for pattern on the root ServeMux, next to the gin
// engine. The pattern needs a trailing slash for subtree matches.
func (b *Builder) Mount(pattern string, handler http.Handler) *Builder {
	b.mounts = append(b.mounts, mount{pattern: pattern, handler: handler})
	return b
}

// Handle registers a gin route.
func (b *Builder) Handle(method, path string, handlers ...gin.HandlerFunc) *Builder {
	return b.Routes(func(r gin.IRouter) { r.Handle(method, path, handlers...) })
}

// Routes registers routes through fn, which may create groups and
// group-level gin middleware.
func (b *Builder) Routes(fn func(r gin.IRouter)) *Builder {
	b.routes = append(b.routes, fn)
	return b
}

// Start validates the variant, launches auto_migrate_bin when set, binds
// every listener it needs, and serves in the background. When Start returns
// without error the sockets are bound; a failed launch returns
// SPAWN_FAILURE before any socket is touched.
func (b *Builder) Start(ctx context.Context) (*Server, error) {
	variant := b.state.Variant()
	if variant == config.VariantUnknown {
		return nil, errors.UnknownVariant(b.values.StartupType)
	}

	log := b.opts.log.WithComponent("server")
	configureGin(b.opts)

	engine, routes, err := b.buildEngine()
	if err != nil {
		return nil, err
	}

	if err := b.spawnPreStart(log); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/", engine)
	for _, m := range b.mounts {
		mux.Handle(m.pattern, m.handler)
		log.Debug("Handler mounted", map[string]interface{}{"pattern": m.pattern})
	}

	srv := newServer(b.values, b.state.Clone(), variant, b.opts, routes)
	if err := srv.bind(ctx); err != nil {
		srv.abort()
		return nil, err
	}
	if err := srv.attach(b.middlewareStack(variant, srv.Port())(mux)); err != nil {
		srv.abort()
		return nil, err
	}
	srv.launch()
	return srv, nil
}

// spawnPreStart launches auto_migrate_bin before any listener is bound. The
// program is not waited for; only a failed launch is reported.
func (b *Builder) spawnPreStart(log *logger.Logger) error {
	if b.values.AutoMigrateBin == nil || *b.values.AutoMigrateBin == "" {
		return nil
	}
	bin := *b.values.AutoMigrateBin
	pid, err := process.Spawn(process.Command{Binary: bin})
	if err != nil {
		log.WithError(err).Error("Failed to launch the pre-start program", logger.Fields("bin", bin))
		return err
	}
	log.Info("Pre-start program launched", logger.Fields("bin", bin, "pid", pid))
	return nil
}

// configureGin sets the gin mode from the global level and sends gin's own
// output to the gin framework logger.
func configureGin(o options) {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	fw := o.framework("gin")
	gin.DefaultWriter = fw.LineWriter(zerolog.DebugLevel)
	gin.DefaultErrorWriter = fw.LineWriter(zerolog.ErrorLevel)
}

// buildEngine registers the documentation routes ahead of the application
// routes. The application routes are first replayed on a scratch engine so
// the document can describe them.
func (b *Builder) buildEngine() (*gin.Engine, []Route, error) {
	docsPath := ""
	if b.values.OpenAPIEnabled(b.opts.caps) {
		docsPath = deref(b.values.OAPIAPIAddr)
	}

	engine := gin.New()
	if docsPath != "" {
		scratch := gin.New()
		if err := replayRoutes(scratch, b.routes); err != nil {
			return nil, nil, err
		}
		cfg := docs.Config{
			Name:     deref(b.values.OAPIName),
			Version:  deref(b.values.OAPIVer),
			Path:     docsPath,
			Frontend: deref(b.values.OAPIFrontendType),
			Document: b.opts.document,
		}
		if cfg.Name == "" {
			cfg.Name = b.values.AppName
		}
		appRoutes := collectRoutes(scratch.Routes(), "")
		if err := docs.Register(engine, cfg, docRoutes(appRoutes), b.opts.log.WithComponent("docs")); err != nil {
			return nil, nil, errors.InvalidField(config.FieldOAPIAPIAddr, err.Error())
		}
	}
	if err := replayRoutes(engine, b.routes); err != nil {
		if docsPath != "" {
			return nil, nil, errors.InvalidField(config.FieldOAPIAPIAddr, "routes conflict with the documentation routes: "+err.Error())
		}
		return nil, nil, err
	}
	return engine, collectRoutes(engine.Routes(), docsPath), nil
}

// replayRoutes registers routes on r, turning gin's registration panics
// (duplicate or conflicting paths) into an error.
func replayRoutes(r gin.IRouter, routes []func(gin.IRouter)) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("register routes: %v", rec)
		}
	}()
	for _, fn := range routes {
		fn(r)
	}
	return nil
}

// middlewareStack returns the built-in middleware, outermost first, followed
// by the application's.
func (b *Builder) middlewareStack(variant config.Variant, port uint16) middleware.Middleware {
	log := b.opts.log.WithComponent("http")
	caps := b.opts.caps

	stack := []middleware.Middleware{
		middleware.Recovery(log),
		middleware.RequestID(),
	}
	if caps.Telemetry {
		stack = append(stack, middleware.Tracing())
	}
	stack = append(stack, middleware.RequestLogger(log))
	if caps.CORS && b.values.AllowCORSDomain != nil && *b.values.AllowCORSDomain != "" {
		stack = append(stack, middleware.CORS(middleware.NewCORSConfig(*b.values.AllowCORSDomain)))
	}
	if caps.HTTP3 && variant.ServesQUIC() {
		stack = append(stack, middleware.AltSvc(port))
	}
	stack = append(stack, middleware.InjectState(b.values, b.state, b.opts.appConfig))
	stack = append(stack, b.middlewares...)
	return middleware.Chain(stack...)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
