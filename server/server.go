package server

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go/http3"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/logger"
	"github.com/kbukum/serverkit/security"
)

// LoopbackHost is the only address LocalhostHTTP binds.
const LoopbackHost = "127.0.0.1"

// Server is a running set of listeners for one deployment variant. It is
// created by Builder.Start and cannot be changed afterwards.
type Server struct {
	values  *config.Values
	state   *config.State
	variant config.Variant
	opts    options
	log     *logger.Logger
	routes  []Route

	// ctx is canceled when shutdown begins.
	ctx    context.Context
	cancel context.CancelFunc

	tcp        net.Listener
	udp        net.PacketConn
	httpSrv    *http.Server
	h3         *http3.Server
	tlsCfg     *tls.Config
	acme       *security.ACME
	certExpiry time.Time

	serving sync.WaitGroup
	done    chan struct{}

	mu  sync.Mutex
	err error

	handle *Handle
}

func newServer(values *config.Values, state *config.State, variant config.Variant, o options, routes []Route) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		values:  values,
		state:   state,
		variant: variant,
		opts:    o,
		log:     o.log.WithComponent("server"),
		routes:  routes,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.handle = &Handle{srv: s, stopped: make(chan struct{})}
	return s
}

// Variant returns the deployment variant being served.
func (s *Server) Variant() config.Variant { return s.variant }

// Addrs returns the bound addresses: the TCP listener first, then the QUIC
// socket.
func (s *Server) Addrs() []net.Addr {
	var out []net.Addr
	if s.tcp != nil {
		out = append(out, s.tcp.Addr())
	}
	if s.udp != nil {
		out = append(out, s.udp.LocalAddr())
	}
	return out
}

// Routes returns the registered gin routes, application routes first.
func (s *Server) Routes() []Route {
	out := make([]Route, len(s.routes))
	copy(out, s.routes)
	return out
}

// CertificateExpiry returns the NotAfter of a static certificate, zero for
// plain and ACME variants.
func (s *Server) CertificateExpiry() time.Time { return s.certExpiry }

// Handle returns the control handle. It is safe for concurrent use.
func (s *Server) Handle() *Handle { return s.handle }

// Done is closed once every listener has stopped.
func (s *Server) Done() <-chan struct{} { return s.done }

// Wait blocks until the server has stopped and returns the error that
// stopped it, nil after a requested stop.
func (s *Server) Wait() error {
	<-s.done
	return s.Err()
}

// Err returns the failure that stopped the server, if any.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// launch starts serving on the bound listeners.
func (s *Server) launch() {
	if s.httpSrv != nil {
		addr := s.tcp.Addr().String()
		s.serve(addr, func() error {
			if s.httpSrv.TLSConfig != nil {
				return s.httpSrv.ServeTLS(s.tcp, "", "")
			}
			return s.httpSrv.Serve(s.tcp)
		})
	}
	if s.h3 != nil {
		addr := s.udp.LocalAddr().String()
		s.serve(addr, func() error { return s.h3.Serve(s.udp) })
	}
	if s.acme != nil {
		s.serving.Add(1)
		go s.warm()
	}

	addrs := make([]string, 0, 2)
	for _, a := range s.Addrs() {
		addrs = append(addrs, a.Network()+"://"+a.String())
	}
	s.log.Info("Server started", logger.Fields(
		logger.FieldVariant, s.variant.String(),
		logger.FieldAddr, addrs,
	))

	go s.monitor()
}

func (s *Server) serve(addr string, fn func() error) {
	s.serving.Add(1)
	go func() {
		defer s.serving.Done()
		err := fn()
		if err == nil || s.stopping() || isClosed(err) {
			return
		}
		s.fail(errors.BindFailure(addr, err))
	}()
}

// warm issues the ACME certificate right after bind so that a CA or DNS
// problem stops the server instead of failing the first handshake.
func (s *Server) warm() {
	defer s.serving.Done()
	ctx := s.ctx
	if s.opts.warmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.warmTimeout)
		defer cancel()
	}
	if err := s.acme.Warm(ctx); err != nil {
		if !s.stopping() {
			s.fail(err)
		}
		return
	}
	s.log.Info("Certificate ready", logger.Fields("domain", s.acme.Domain()))
}

// monitor closes done once every serving goroutine has returned and the
// shutdown has completed.
func (s *Server) monitor() {
	s.serving.Wait()
	_ = s.handle.Stop(context.Background())
	if s.state != nil {
		if err := s.state.Release(); err != nil {
			s.log.WithError(err).Warn("Failed to release log sinks")
		}
	}
	close(s.done)
}

func (s *Server) stopping() bool { return s.ctx.Err() != nil }

// fail records the first fatal error and stops the server.
func (s *Server) fail(err error) {
	s.mu.Lock()
	first := s.err == nil
	if first {
		s.err = err
	}
	s.mu.Unlock()
	if !first {
		return
	}
	s.log.WithError(err).Error("Server failed, stopping", logger.Fields("code", string(errors.CodeOf(err))))
	go func() { _ = s.handle.Stop(context.Background()) }()
}

// shutdown stops accepting connections and waits for in-flight requests
// until ctx is done, then closes what is left.
func (s *Server) shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	s.cancel()

	var errs []error
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
			_ = s.httpSrv.Close()
		}
	}
	if s.h3 != nil {
		if err := s.h3.Shutdown(ctx); err != nil {
			errs = append(errs, err)
			_ = s.h3.Close()
		}
		_ = s.udp.Close()
	}
	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}
	s.log.Info("Server shut down successfully")
	return nil
}

// abort releases what a failed Start acquired.
func (s *Server) abort() {
	s.cancel()
	if s.tcp != nil {
		_ = s.tcp.Close()
	}
	if s.udp != nil {
		_ = s.udp.Close()
	}
	if s.state != nil {
		_ = s.state.Release()
	}
}

func isClosed(err error) bool {
	return stderrors.Is(err, http.ErrServerClosed) || stderrors.Is(err, net.ErrClosed)
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Handle requests a graceful stop. Every method is safe for concurrent use.
type Handle struct {
	srv      *Server
	stopping atomic.Bool
	stopped  chan struct{}
	err      error
}

// Stop stops accepting connections and waits for in-flight requests to
// finish, bounded only by ctx. The first call performs the shutdown and
// returns its error; later calls wait for it and return nil.
func (h *Handle) Stop(ctx context.Context) error {
	if h.stopping.CompareAndSwap(false, true) {
		h.err = h.srv.shutdown(ctx)
		close(h.stopped)
		return h.err
	}
	select {
	case <-h.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped is closed once the first Stop has finished.
func (h *Handle) Stopped() <-chan struct{} { return h.stopped }
