// Package bootstrap is the embedding facade of serverkit: it loads the
// application config, installs the logging pipeline, starts the server for
// the configured deployment variant and coordinates graceful shutdown.
//
// # Quick Start
//
//	type Config struct {
//	    config.Values `mapstructure:",squash"`
//	}
//
//	app, err := bootstrap.NewApp(ctx, "my-service", &Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app.Handle(http.MethodGet, "/hello", func(c *gin.Context) {
//	    c.String(http.StatusOK, "hello")
//	})
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until Ctrl+C, SIGTERM, a caller trigger or ctx ends it. Start
// returns once the server is bound and handles signals in the background;
// StartClean leaves shutdown entirely to the caller.
package bootstrap
