package server

import (
	"context"
	"crypto/tls"
	stdlog "log"
	"log/slog"
	"net"
	"net/http"

	"github.com/quic-go/quic-go/http3"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/security"
)

// bind provisions certificates and binds the sockets the variant needs:
//
//	LocalhostHTTP              TCP on 127.0.0.1, h2c
//	UnsafeHTTP                 TCP on host, h2c
//	AutoTLSHTTP, StaticTLS     TLS over TCP, HTTP/2
//	AutoTLSQUIC, StaticTLSQUIC TLS over TCP and QUIC on the same port
//	QUICOnly                   QUIC only
func (s *Server) bind(ctx context.Context) error {
	host := s.values.Host()
	if s.variant == config.LocalhostHTTP {
		host = LoopbackHost
	}
	port := int(s.values.Port())
	if err := ctx.Err(); err != nil {
		return errors.BindFailure(joinHostPort(host, port), err)
	}

	tlsCfg, err := s.tlsConfig()
	if err != nil {
		return err
	}
	s.tlsCfg = tlsCfg

	if s.variant.ServesTCP() {
		addr := joinHostPort(host, port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return errors.BindFailure(addr, err)
		}
		s.tcp = ln
		// QUIC joins the port actually bound.
		port = ln.Addr().(*net.TCPAddr).Port
	}

	if s.variant.ServesQUIC() {
		addr := joinHostPort(host, port)
		pc, err := net.ListenPacket("udp", addr)
		if err != nil {
			return errors.BindFailure(addr, err)
		}
		s.udp = pc
	}
	return nil
}

// Port returns the bound port, shared by TCP and QUIC.
func (s *Server) Port() uint16 {
	switch {
	case s.tcp != nil:
		return uint16(s.tcp.Addr().(*net.TCPAddr).Port)
	case s.udp != nil:
		if a, ok := s.udp.LocalAddr().(*net.UDPAddr); ok {
			return uint16(a.Port)
		}
	}
	return 0
}

// attach creates the protocol servers for the bound sockets.
func (s *Server) attach(handler http.Handler) error {
	if s.tcp != nil {
		srv, err := s.newHTTPServer(handler, s.tlsCfg)
		if err != nil {
			return errors.BindFailure(s.tcp.Addr().String(), err)
		}
		s.httpSrv = srv
	}
	if s.udp != nil {
		s.h3 = &http3.Server{
			Handler:     handler,
			TLSConfig:   http3.ConfigureTLSConfig(s.quicTLSConfig(s.tlsCfg)),
			IdleTimeout: s.opts.idleTimeout,
			Logger:      slog.New(slog.NewTextHandler(s.opts.framework("http3").LineWriter(zerolog.DebugLevel), &slog.HandlerOptions{Level: slog.LevelDebug})),
		}
	}
	return nil
}

// tlsConfig returns the TCP TLS configuration, nil for the plain variants.
// Static certificates are read here, before any socket is bound.
func (s *Server) tlsConfig() (*tls.Config, error) {
	v := s.values
	switch {
	case s.variant.UsesACME():
		s.acme = security.NewACME(security.ACMEConfig{
			Domain:       deref(v.AcmeDomain),
			Email:        deref(v.AcmeEmail),
			DirectoryURL: deref(v.AcmeDirectoryURL),
			CacheDir:     deref(v.AcmeCacheDir),
		})
		return s.acme.TLSConfig(), nil
	case s.variant.UsesTLS():
		cfg, err := security.LoadKeyPair(deref(v.SSLCrtPath), deref(v.SSLKeyPath))
		if err != nil {
			return nil, err
		}
		s.certExpiry = security.Expiry(cfg)
		return cfg, nil
	}
	return nil, nil
}

// quicTLSConfig derives the QUIC configuration from the TCP one. ACME
// challenges are answered over TCP only, so QUIC just asks the manager for
// the issued certificate.
func (s *Server) quicTLSConfig(tcp *tls.Config) *tls.Config {
	var cfg *tls.Config
	if s.acme != nil {
		cfg = &tls.Config{GetCertificate: s.acme.GetCertificate}
	} else {
		cfg = tcp.Clone()
	}
	cfg.MinVersion = tls.VersionTLS13
	return cfg
}

// newHTTPServer serves h2c on plain listeners and negotiates HTTP/2 over TLS.
func (s *Server) newHTTPServer(handler http.Handler, tlsCfg *tls.Config) (*http.Server, error) {
	h2s := &http2.Server{
		MaxConcurrentStreams: maxConcurrentStreams,
		IdleTimeout:          s.opts.idleTimeout,
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.opts.readHeaderTimeout,
		IdleTimeout:       s.opts.idleTimeout,
		ErrorLog:          stdlog.New(s.opts.framework("net/http").LineWriter(zerolog.WarnLevel), "", 0),
	}
	if tlsCfg == nil {
		srv.Handler = h2c.NewHandler(handler, h2s)
		return srv, nil
	}
	srv.TLSConfig = tlsCfg
	if err := http2.ConfigureServer(srv, h2s); err != nil {
		return nil, err
	}
	return srv, nil
}
