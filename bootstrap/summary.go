package bootstrap

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/logger"
	"github.com/kbukum/serverkit/server"
	"github.com/kbukum/serverkit/server/docs"
)

// EndpointInfo is one address the server listens on.
type EndpointInfo struct {
	Scheme  string
	Address string
	// Protocol names the HTTP versions served, e.g. "h2" or "h3".
	Protocol string
}

// URL returns scheme://address.
func (e EndpointInfo) URL() string { return e.Scheme + "://" + e.Address }

// RouteInfo represents a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary tracks and displays the application bootstrap process.
type Summary struct {
	serviceName     string
	version         string
	variant         config.Variant
	startupDuration time.Duration
	endpoints       []EndpointInfo
	sinks           []logger.SinkInfo
	docsPath        string
	specPath        string
	certExpiry      time.Time
	routes          []RouteInfo
}

// NewSummary creates a new bootstrap summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// SetVariant records the deployment variant.
func (s *Summary) SetVariant(v config.Variant) {
	s.variant = v
}

// TrackEndpoint records a bound address.
func (s *Summary) TrackEndpoint(scheme, address, protocol string) {
	s.endpoints = append(s.endpoints, EndpointInfo{Scheme: scheme, Address: address, Protocol: protocol})
}

// TrackSink records an active log sink.
func (s *Summary) TrackSink(info logger.SinkInfo) {
	s.sinks = append(s.sinks, info)
}

// SetDocs records where the API documentation is served.
func (s *Summary) SetDocs(path string) {
	s.docsPath = path
	s.specPath = docs.SpecPath(path)
}

// SetCertificateExpiry records the NotAfter of a static certificate.
func (s *Summary) SetCertificateExpiry(t time.Time) {
	s.certExpiry = t
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// Endpoints returns the tracked addresses.
func (s *Summary) Endpoints() []EndpointInfo {
	out := make([]EndpointInfo, len(s.endpoints))
	copy(out, s.endpoints)
	return out
}

// collect fills the summary from a started server.
func (s *Summary) collect(srv *server.Server, p *logger.Pipeline, values *config.Values, caps config.Capabilities) {
	variant := srv.Variant()
	s.SetVariant(variant)

	scheme := "http"
	if variant.UsesTLS() {
		scheme = "https"
	}
	for _, addr := range srv.Addrs() {
		protocol := "h2c"
		if variant.UsesTLS() {
			protocol = "h2"
		}
		if _, ok := addr.(*net.UDPAddr); ok {
			protocol = "h3"
		}
		s.TrackEndpoint(scheme, displayAddr(addr), protocol)
	}

	for _, info := range p.Sinks() {
		s.TrackSink(info)
	}
	if values.OpenAPIEnabled(caps) && values.OAPIAPIAddr != nil {
		s.SetDocs(*values.OAPIAPIAddr)
	}
	s.SetCertificateExpiry(srv.CertificateExpiry())
	for _, r := range srv.Routes() {
		if !r.Docs {
			s.TrackRoute(r.Method, r.Path, r.Handler)
		}
	}
}

// displayAddr shows wildcard binds as localhost so the address can be opened.
func displayAddr(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

// DisplaySummary prints the summary to standard output.
func (s *Summary) DisplaySummary() {
	s.Write(os.Stdout)
}

// Write prints the bootstrap summary to w.
func (s *Summary) Write(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚀 %s v%s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	// Server
	fmt.Fprintf(w, "🖥️  Server (%s)\n", s.variant)
	if len(s.endpoints) == 0 {
		fmt.Fprintf(w, "   └── No listeners bound\n")
	}
	for i, e := range s.endpoints {
		prefix := "├──"
		if i == len(s.endpoints)-1 && s.certExpiry.IsZero() {
			prefix = "└──"
		}
		fmt.Fprintf(w, "   %s ✅ %s [%s]\n", prefix, e.URL(), e.Protocol)
	}
	if !s.certExpiry.IsZero() {
		icon := "✅"
		if time.Until(s.certExpiry) < 30*24*time.Hour {
			icon = "⚠️"
		}
		fmt.Fprintf(w, "   └── %s certificate expires %s\n", icon, s.certExpiry.Format(time.DateOnly))
	}

	// Logging
	if len(s.sinks) > 0 {
		fmt.Fprintf(w, "\n📝 Logging\n")
		for i, sk := range s.sinks {
			prefix := "├──"
			if i == len(s.sinks)-1 {
				prefix = "└──"
			}
			detail := ""
			if sk.Detail != "" {
				detail = " → " + sk.Detail
			}
			fmt.Fprintf(w, "   %s %s (%s)%s\n", prefix, sk.Name, sk.Level, detail)
		}
	}

	// Docs
	if s.docsPath != "" {
		fmt.Fprintf(w, "\n📚 API Docs\n")
		fmt.Fprintf(w, "   ├── page: %s\n", s.docsPath)
		fmt.Fprintf(w, "   └── spec: %s\n", s.specPath)
	}

	// Routes
	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			prefix := "├──"
			if i == len(s.routes)-1 {
				prefix = "└──"
			}
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", prefix, r.Method, r.Path, r.Handler)
		}
	}

	fmt.Fprintf(w, "\n")
}
