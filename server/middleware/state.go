package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/serverkit/config"
)

type stateKey struct{}

// injected is what every request context carries.
type injected struct {
	values *config.Values
	state  *config.State
	app    any
}

// InjectState returns middleware that makes the generic configuration, the
// runtime state, and the optional application config reachable from every
// request.
func InjectState(values *config.Values, state *config.State, app any) Middleware {
	in := &injected{values: values, state: state, app: app}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey{}, in)))
		})
	}
}

func injectedFrom(ctx context.Context) *injected {
	in, _ := ctx.Value(stateKey{}).(*injected)
	return in
}

// ValuesFromContext returns the configuration injected into ctx, or nil.
func ValuesFromContext(ctx context.Context) *config.Values {
	if in := injectedFrom(ctx); in != nil {
		return in.values
	}
	return nil
}

// StateFromContext returns the runtime state injected into ctx, or nil.
func StateFromContext(ctx context.Context) *config.State {
	if in := injectedFrom(ctx); in != nil {
		return in.state
	}
	return nil
}

// AppConfigFromContext returns the application config injected into ctx, or nil.
func AppConfigFromContext(ctx context.Context) any {
	if in := injectedFrom(ctx); in != nil {
		return in.app
	}
	return nil
}

// Values returns the configuration of the server handling c.
func Values(c *gin.Context) *config.Values { return ValuesFromContext(c.Request.Context()) }

// State returns the runtime state of the server handling c.
func State(c *gin.Context) *config.State { return StateFromContext(c.Request.Context()) }

// AppConfig returns the application config of the server handling c,
// type-asserted to C. ok is false when none was injected or the type differs.
func AppConfig[C any](c *gin.Context) (C, bool) {
	cfg, ok := AppConfigFromContext(c.Request.Context()).(C)
	return cfg, ok
}
