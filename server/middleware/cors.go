package middleware

import (
	"net/http"
	"strings"
)

// WildcardOrigin allows every origin and never shares credentials.
const WildcardOrigin = "*"

// Default CORS lists applied by NewCORSConfig.
var (
	DefaultCORSMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	DefaultCORSHeaders = []string{
		"Authorization", "Accept", "Access-Control-Allow-Headers",
		"Content-Type", "Origin", "X-Requested-With", "Cookie",
	}
	DefaultCORSExposedHeaders = []string{"Set-Cookie"}
)

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	AllowedOrigin    string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
}

// NewCORSConfig returns the policy for allow_cors_domain: the default method
// and header lists, with credentials shared unless origin is the wildcard.
func NewCORSConfig(origin string) *CORSConfig {
	return &CORSConfig{
		AllowedOrigin:    origin,
		AllowedMethods:   DefaultCORSMethods,
		AllowedHeaders:   DefaultCORSHeaders,
		ExposedHeaders:   DefaultCORSExposedHeaders,
		AllowCredentials: origin != WildcardOrigin,
	}
}

// CORS returns middleware that sets CORS headers and answers preflight
// requests from an allowed origin with 204.
func CORS(cfg *CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := setCORSHeaders(w.Header(), origin, cfg)
			if allowed && r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// setCORSHeaders writes CORS response headers if the origin is allowed.
func setCORSHeaders(h http.Header, origin string, cfg *CORSConfig) bool {
	h.Add("Vary", "Origin")
	if origin == "" || !isAllowedOrigin(origin, cfg.AllowedOrigin) {
		return false
	}
	if cfg.AllowedOrigin == WildcardOrigin && !cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Origin", WildcardOrigin)
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
	}
	if len(cfg.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
	}
	if len(cfg.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
	}
	if len(cfg.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposedHeaders, ", "))
	}
	if cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	return true
}

func isAllowedOrigin(origin, allowed string) bool {
	return allowed == WildcardOrigin || strings.EqualFold(origin, allowed)
}
