package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/serverkit/logger"
)

// SpecFile is the name the document is served under, below the docs path.
const SpecFile = "openapi.json"

// Config selects what Register serves.
type Config struct {
	Name    string
	Version string
	// Path is oapi_api_addr, e.g. "/api".
	Path string
	// Frontend is oapi_frontend_type; empty or unknown serves only the JSON.
	Frontend string
	// Document replaces the generated document when set, typically an
	// *openapi3.T. It is served as given.
	Document any
}

// SpecPath returns where the JSON document is served for a docs path.
func SpecPath(docsPath string) string {
	return path.Join(docsPath, SpecFile)
}

// Register mounts the JSON document and, when the frontend is known, the UI
// page at cfg.Path. routes feed the generated document.
func Register(r gin.IRouter, cfg Config, routes []Route, log *logger.Logger) error {
	doc := cfg.Document
	if doc == nil {
		generated := NewDocument(cfg.Name, cfg.Version, routes)
		if err := generated.Validate(context.Background()); err != nil {
			return fmt.Errorf("generated OpenAPI document is invalid: %w", err)
		}
		doc = generated
	}
	spec, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	specPath := SpecPath(cfg.Path)
	r.GET(specPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", spec)
	})

	if cfg.Frontend == "" {
		log.Info("API documentation available", logger.Fields("path", specPath))
		return nil
	}
	frontend, ok := ParseFrontend(cfg.Frontend)
	if !ok {
		log.Warn("Unknown documentation frontend, serving the JSON document only", logger.Fields(
			"frontend", cfg.Frontend,
			"path", specPath,
		))
		return nil
	}

	html, err := frontend.Render(cfg.Name, specPath)
	if err != nil {
		return err
	}
	r.GET(cfg.Path, func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", html)
	})
	log.Info("API documentation available", logger.Fields(
		"path", cfg.Path,
		"frontend", string(frontend),
	))
	return nil
}
