package middleware

import (
	"fmt"
	"net/http"
)

// AltSvcMaxAge is how long, in seconds, clients may remember the HTTP/3
// advertisement.
const AltSvcMaxAge = 2592000

// DefaultAltSvcPort is advertised when the serving port is unknown.
const DefaultAltSvcPort = 443

// AltSvcValue returns the Alt-Svc header value advertising HTTP/3 on port.
func AltSvcValue(port uint16) string {
	if port == 0 {
		port = DefaultAltSvcPort
	}
	return fmt.Sprintf("h3=\":%d\"; ma=%d", port, AltSvcMaxAge)
}

// AltSvc returns middleware that advertises HTTP/3 on every response.
func AltSvc(port uint16) Middleware {
	value := AltSvcValue(port)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Alt-Svc", value)
			next.ServeHTTP(w, r)
		})
	}
}
