package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/server/middleware"
)

// RedirectHost is the address the redirect listener binds.
const RedirectHost = "0.0.0.0"

// StartRedirect binds a plain HTTP listener on listenPort that answers every
// request with 308 Permanent Redirect to the same host and URI over HTTPS on
// httpsPort. It runs until its handle is stopped.
func StartRedirect(ctx context.Context, listenPort, httpsPort uint16, opts ...Option) (*Server, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := newServer(nil, nil, config.UnsafeHTTP, o, nil)
	addr := joinHostPort(RedirectHost, int(listenPort))
	if err := ctx.Err(); err != nil {
		s.abort()
		return nil, errors.BindFailure(addr, err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.abort()
		return nil, errors.BindFailure(addr, err)
	}
	s.tcp = ln

	log := o.log.WithComponent("redirect")
	handler := middleware.Chain(
		middleware.Recovery(log),
		middleware.RequestLogger(log),
	)(newHTTPSRedirectHandler(httpsPort))
	if err := s.attach(handler); err != nil {
		s.abort()
		return nil, err
	}
	s.launch()
	return s, nil
}

// newHTTPSRedirectHandler returns a handler that issues HTTP 308 Permanent
// Redirect to the HTTPS origin, preserving host, path and query.
func newHTTPSRedirectHandler(httpsPort uint16) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hostOnly := r.Host
		if h, _, err := net.SplitHostPort(hostOnly); err == nil {
			hostOnly = h
		}
		if strings.Contains(hostOnly, ":") && !(strings.HasPrefix(hostOnly, "[") && strings.HasSuffix(hostOnly, "]")) {
			hostOnly = "[" + hostOnly + "]"
		}

		var target string
		if httpsPort == 443 || httpsPort == 0 {
			target = "https://" + hostOnly + r.URL.RequestURI()
		} else {
			target = fmt.Sprintf("https://%s:%d%s", hostOnly, httpsPort, r.URL.RequestURI())
		}

		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}
