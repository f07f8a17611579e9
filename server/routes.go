package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/serverkit/server/docs"
)

// Route describes one registered gin route for the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
	// Docs marks the documentation routes.
	Docs bool
}

// collectRoutes returns routes sorted with application routes first (by
// path, then method), documentation routes last.
func collectRoutes(infos gin.RoutesInfo, docsPath string) []Route {
	routes := make([]Route, 0, len(infos))
	for _, r := range infos {
		routes = append(routes, Route{
			Method:  r.Method,
			Path:    r.Path,
			Handler: formatHandlerName(r.Handler),
			Docs:    docsPath != "" && isDocsPath(r.Path, docsPath),
		})
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Docs != routes[j].Docs {
			return !routes[i].Docs
		}
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return methodOrder(routes[i].Method) < methodOrder(routes[j].Method)
	})
	return routes
}

func isDocsPath(path, docsPath string) bool {
	return path == docsPath || path == docs.SpecPath(docsPath)
}

// docRoutes converts application routes into documented operations.
func docRoutes(routes []Route) []docs.Route {
	out := make([]docs.Route, 0, len(routes))
	for _, r := range routes {
		if r.Docs {
			continue
		}
		out = append(out, docs.Route{Method: r.Method, Path: r.Path, OperationID: r.Handler})
	}
	return out
}

// formatHandlerName extracts a clean handler name from gin's full handler path.
// gin stores handlers like:
//
//	"github.com/yourorg/yourservice/internal/api/port.(*UserPort).List-fm"
//
// We extract: "UserPort.List"
func formatHandlerName(fullPath string) string {
	// Remove -fm suffix gin adds to method values
	name := strings.TrimSuffix(fullPath, "-fm")

	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	// "(*UserPort).List" -> "UserPort.List"
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	// Closures like "main.run.func1" keep the last meaningful segment.
	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				name = strings.ToLower(parts[i])
				break
			}
		}
	}

	// Remove package prefix: "port.UserPort.List" -> "UserPort.List"
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 2 && len(parts[1]) > 0 && strings.ToLower(parts[0]) == parts[0] {
		name = parts[1]
	}

	return name
}

// methodOrder returns a sort key for HTTP methods (GET first, DELETE last).
func methodOrder(method string) int {
	switch method {
	case http.MethodGet:
		return 0
	case http.MethodPost:
		return 1
	case http.MethodPut:
		return 2
	case http.MethodPatch:
		return 3
	case http.MethodDelete:
		return 4
	default:
		return 5
	}
}
