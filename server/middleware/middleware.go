package middleware

import (
	"net/http"
)

// Middleware wraps an http.Handler with additional behavior. Everything the
// server installs is a Middleware applied around the root handler, so it
// covers the gin routes and any mounted http.Handler alike.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middleware. The first in the list is the outermost
// (runs first on a request, last on a response).
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			if middlewares[i] == nil {
				continue
			}
			final = middlewares[i](final)
		}
		return final
	}
}
