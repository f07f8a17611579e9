// Command serverkit-example is a minimal application on serverkit. It reads
// serverkit-example.yaml from the working directory (or /etc) and serves a
// greeting on whatever deployment variant the document selects.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/serverkit/bootstrap"
	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/logger"
	"github.com/kbukum/serverkit/server"
	"github.com/kbukum/serverkit/server/middleware"
)

const appName = "serverkit-example"

// Config is the example's document: the generic server keys plus its own.
type Config struct {
	config.Values `mapstructure:",squash"`
	Greeting      string `mapstructure:"greeting"`
}

func main() {
	configFile := flag.String("config", "", "config file (default: "+appName+".yaml in . or /etc)")
	envPrefix := flag.String("env-prefix", "SERVERKIT", "env var prefix overriding document keys")
	redirect := flag.Uint("redirect-from", 0, "also redirect plain HTTP on this port to HTTPS")
	flag.Parse()

	if err := run(*configFile, *envPrefix, uint16(*redirect)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile, envPrefix string, redirectPort uint16) error {
	ctx := context.Background()

	loaderOpts := []config.LoaderOption{config.WithEnvPrefix(envPrefix)}
	if configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(configFile))
	}

	app, err := bootstrap.NewApp(ctx, appName, &Config{},
		bootstrap.WithLoaderOptions(loaderOpts...),
		bootstrap.WithGracefulTimeout(15*time.Second),
	)
	if err != nil {
		return err
	}

	app.Routes(func(r gin.IRouter) {
		api := r.Group("/api/v1")
		api.GET("/hello", hello)
		api.GET("/hello/:name", hello)
	})
	app.Handle(http.MethodGet, "/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "variant": middleware.State(c).Variant().String()})
	})

	if redirectPort != 0 && app.Values.Variant().UsesTLS() {
		app.OnReady(func(ctx context.Context) error {
			rd, err := server.StartRedirect(ctx, redirectPort, app.Values.Port(), server.WithPipeline(app.Pipeline))
			if err != nil {
				return err
			}
			app.OnStop(func(ctx context.Context) error { return rd.Handle().Stop(ctx) })
			return nil
		})
	}

	app.OnStop(func(context.Context) error {
		app.Logger.Info("Goodbye", logger.Fields("app", app.Name))
		return nil
	})

	return app.Run(ctx)
}

func hello(c *gin.Context) {
	cfg, _ := middleware.AppConfig[*Config](c)
	greeting := "Hello"
	if cfg != nil && cfg.Greeting != "" {
		greeting = cfg.Greeting
	}
	name := c.Param("name")
	if name == "" {
		name = "world"
	}
	c.JSON(http.StatusOK, gin.H{"message": greeting + ", " + name})
}
