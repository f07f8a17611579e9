package server

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"

	"github.com/kbukum/serverkit/config"
	"github.com/kbukum/serverkit/errors"
	"github.com/kbukum/serverkit/logger"
	"github.com/kbukum/serverkit/security/tlstest"
	"github.com/kbukum/serverkit/server/middleware"
)

func ptr[T any](v T) *T { return &v }

// testValues returns values on an ephemeral port.
func testValues(startupType string) *config.Values {
	v := config.Default("svc")
	v.StartupType = startupType
	v.ServerPort = ptr(uint16(0))
	return v
}

func hello(c *gin.Context) {
	c.String(http.StatusOK, "hello from %s", middleware.Values(c).AppName)
}

func start(t *testing.T, values *config.Values, variant config.Variant, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	srv, err := New(values, config.NewState(variant, nil), opts...).
		Handle(http.MethodGet, "/hello", hello).
		Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Handle().Stop(context.Background())
		<-srv.Done()
	})
	return srv
}

func get(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func baseURL(scheme string, srv *Server) string {
	return scheme + "://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(int(srv.Port())))
}

func TestStart_LocalhostHTTP(t *testing.T) {
	values := testValues("http_localhost")
	srv := start(t, values, config.LocalhostHTTP)

	addrs := srv.Addrs()
	if len(addrs) != 1 {
		t.Fatalf("expected one listener, got %v", addrs)
	}
	tcp, ok := addrs[0].(*net.TCPAddr)
	if !ok || !tcp.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("expected a loopback TCP listener, got %v", addrs[0])
	}

	resp, body := get(t, http.DefaultClient, baseURL("http", srv)+"/hello")
	if resp.StatusCode != http.StatusOK || body != "hello from svc" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get(middleware.HeaderRequestID) == "" {
		t.Error("expected a request id on the response")
	}
	if resp.Header.Get("Alt-Svc") != "" {
		t.Error("plain variants must not advertise HTTP/3")
	}
}

func TestStart_UnsafeHTTPServesH2C(t *testing.T) {
	values := testValues("unsafe_http")
	values.ServerHost = ptr("127.0.0.1")
	srv := start(t, values, config.UnsafeHTTP)

	client := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}
	resp, _ := get(t, client, baseURL("http", srv)+"/hello")
	if resp.ProtoMajor != 2 {
		t.Fatalf("expected HTTP/2 cleartext, got %s", resp.Proto)
	}
}

func staticTLSValues(t *testing.T, startupType string) (*config.Values, *tlstest.Pair) {
	t.Helper()
	pair := tlstest.Generate(t)
	values := testValues(startupType)
	values.ServerHost = ptr("127.0.0.1")
	values.SSLCrtPath = ptr(pair.CertFile)
	values.SSLKeyPath = ptr(pair.KeyFile)
	return values, pair
}

func TestStart_StaticTLS(t *testing.T) {
	values, pair := staticTLSValues(t, "https_only")
	srv := start(t, values, config.StaticTLS)

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig:   pair.ClientConfig(),
		ForceAttemptHTTP2: true,
	}}
	resp, body := get(t, client, baseURL("https", srv)+"/hello")
	if resp.StatusCode != http.StatusOK || body != "hello from svc" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
	if resp.ProtoMajor != 2 {
		t.Errorf("expected HTTP/2 over TLS, got %s", resp.Proto)
	}
	if srv.CertificateExpiry().IsZero() {
		t.Error("expected the certificate expiry to be known")
	}
}

func TestStart_StaticTLSQUIC(t *testing.T) {
	values, pair := staticTLSValues(t, "quinn")
	srv := start(t, values, config.StaticTLSQUIC)

	addrs := srv.Addrs()
	if len(addrs) != 2 {
		t.Fatalf("expected TCP and UDP listeners, got %v", addrs)
	}
	tcpPort := addrs[0].(*net.TCPAddr).Port
	udpPort := addrs[1].(*net.UDPAddr).Port
	if tcpPort != udpPort {
		t.Fatalf("QUIC must join the TCP port: tcp %d, udp %d", tcpPort, udpPort)
	}

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: pair.ClientConfig()}}
	resp, _ := get(t, client, baseURL("https", srv)+"/hello")
	if got, want := resp.Header.Get("Alt-Svc"), middleware.AltSvcValue(srv.Port()); got != want {
		t.Errorf("Alt-Svc = %q, want %q", got, want)
	}
}

func TestStart_QUICOnly(t *testing.T) {
	values, pair := staticTLSValues(t, "quinn_only")
	srv := start(t, values, config.QUICOnly)

	addrs := srv.Addrs()
	if len(addrs) != 1 || addrs[0].Network() != "udp" {
		t.Fatalf("expected a single UDP socket, got %v", addrs)
	}

	tr := &http3.Transport{TLSClientConfig: pair.ClientConfig()}
	defer tr.Close()
	resp, body := get(t, &http.Client{Transport: tr, Timeout: 10 * time.Second}, baseURL("https", srv)+"/hello")
	if resp.StatusCode != http.StatusOK || body != "hello from svc" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
	if resp.ProtoMajor != 3 {
		t.Errorf("expected HTTP/3, got %s", resp.Proto)
	}
}

func TestStart_Failures(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer occupied.Close()
	busyPort := uint16(occupied.Addr().(*net.TCPAddr).Port)

	tests := []struct {
		name    string
		variant config.Variant
		setup   func(v *config.Values)
		code    errors.ErrorCode
	}{
		{
			name:    "unknown variant",
			variant: config.VariantUnknown,
			setup:   func(v *config.Values) { v.StartupType = "teleport" },
			code:    errors.ErrCodeUnknownVariant,
		},
		{
			name:    "address in use",
			variant: config.UnsafeHTTP,
			setup: func(v *config.Values) {
				v.ServerHost = ptr("127.0.0.1")
				v.ServerPort = ptr(busyPort)
			},
			code: errors.ErrCodeBindFailure,
		},
		{
			name:    "missing certificate",
			variant: config.StaticTLS,
			setup: func(v *config.Values) {
				v.ServerHost = ptr("127.0.0.1")
				v.SSLCrtPath = ptr(filepath.Join(t.TempDir(), "missing.crt"))
				v.SSLKeyPath = ptr(filepath.Join(t.TempDir(), "missing.key"))
			},
			code: errors.ErrCodeCertificateFailure,
		},
		{
			name:    "invalid certificate",
			variant: config.StaticTLSQUIC,
			setup: func(v *config.Values) {
				v.ServerHost = ptr("127.0.0.1")
				v.SSLCrtPath = ptr(tlstest.WriteInvalidPEM(t, "bad.crt"))
				v.SSLKeyPath = ptr(tlstest.WriteInvalidPEM(t, "bad.key"))
			},
			code: errors.ErrCodeCertificateFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := testValues("")
			tt.setup(values)
			_, err := New(values, config.NewState(tt.variant, nil), WithLogger(logger.Nop())).Start(context.Background())
			if got := errors.CodeOf(err); got != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestStart_ACMEFailureStopsServer(t *testing.T) {
	ca := httptest.NewServer(http.NotFoundHandler())
	defer ca.Close()

	values := testValues("https_acme")
	values.ServerHost = ptr("127.0.0.1")
	values.AcmeDomain = ptr("example.test")
	values.AcmeDirectoryURL = ptr(ca.URL + "/directory")
	values.AcmeCacheDir = ptr(t.TempDir())

	srv, err := New(values, config.NewState(config.AutoTLSHTTP, nil),
		WithLogger(logger.Nop()),
		WithCertificateTimeout(5*time.Second),
	).Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-srv.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after the failed issuance")
	}
	if code := errors.CodeOf(srv.Wait()); code != errors.ErrCodeCertificateFailure {
		t.Fatalf("expected %s, got %v", errors.ErrCodeCertificateFailure, srv.Wait())
	}
}

func TestHandle_StopIsIdempotent(t *testing.T) {
	srv := start(t, testValues("http_localhost"), config.LocalhostHTTP)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- srv.Handle().Stop(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Stop: %v", err)
		}
	}

	if err := srv.Wait(); err != nil {
		t.Fatalf("Wait after a requested stop: %v", err)
	}
	if err := srv.Handle().Stop(context.Background()); err != nil {
		t.Fatalf("Stop after stop: %v", err)
	}
	if _, err := http.Get(baseURL("http", srv) + "/hello"); err == nil {
		t.Error("expected the listener to be closed")
	}
}

func TestStop_WaitsForInFlight(t *testing.T) {
	values := testValues("http_localhost")
	entered := make(chan struct{})
	release := make(chan struct{})
	srv, err := New(values, config.NewState(config.LocalhostHTTP, nil), WithLogger(logger.Nop())).
		Handle(http.MethodGet, "/slow", func(c *gin.Context) {
			close(entered)
			<-release
			c.String(http.StatusOK, "done")
		}).
		Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	result := make(chan string, 1)
	go func() {
		resp, err := http.Get(baseURL("http", srv) + "/slow")
		if err != nil {
			result <- err.Error()
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		result <- string(b)
	}()
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- srv.Handle().Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a request was in flight")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)

	if got := <-result; got != "done" {
		t.Fatalf("in-flight request got %q", got)
	}
	if err := <-stopped; err != nil {
		t.Fatalf("Stop: %v", err)
	}
	<-srv.Done()
}

func TestStart_DocsAndRoutes(t *testing.T) {
	values := testValues("http_localhost")
	values.AllowOAPIAccess = ptr(true)
	values.OAPIName = ptr("Server Test OAPI")
	values.OAPIVer = ptr("0.0.1")
	values.OAPIAPIAddr = ptr("/api")
	values.OAPIFrontendType = ptr("Scalar")
	srv := start(t, values, config.LocalhostHTTP)

	resp, body := get(t, http.DefaultClient, baseURL("http", srv)+"/api/openapi.json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected the document, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `"/hello"`) || !strings.Contains(body, `"bearer"`) {
		t.Errorf("document does not describe the application: %s", body)
	}

	resp, body = get(t, http.DefaultClient, baseURL("http", srv)+"/api")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Server Test OAPI - API @ Scalar") {
		t.Errorf("unexpected UI page %d %q", resp.StatusCode, body)
	}

	routes := srv.Routes()
	if len(routes) != 3 || routes[0].Path != "/hello" || routes[0].Docs || !routes[2].Docs {
		t.Errorf("unexpected routes %+v", routes)
	}
}

func TestStart_DocsDisabledByCapability(t *testing.T) {
	values := testValues("http_localhost")
	values.AllowOAPIAccess = ptr(true)
	values.OAPIName = ptr("x")
	values.OAPIVer = ptr("1")
	values.OAPIAPIAddr = ptr("/api")
	caps := config.AllCapabilities()
	caps.OpenAPI = false
	srv := start(t, values, config.LocalhostHTTP, WithCapabilities(caps))

	resp, _ := get(t, http.DefaultClient, baseURL("http", srv)+"/api/openapi.json")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected no document without the capability, got %d", resp.StatusCode)
	}
}

func TestStart_RouteConflicts(t *testing.T) {
	tests := []struct {
		name  string
		docs  bool
		path  string
		field string
	}{
		{"collides with the docs document", true, "/api/openapi.json", config.FieldOAPIAPIAddr},
		{"duplicate application route", false, "/hello", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := testValues("http_localhost")
			if tt.docs {
				values.AllowOAPIAccess = ptr(true)
				values.OAPIName = ptr("x")
				values.OAPIVer = ptr("1")
				values.OAPIAPIAddr = ptr("/api")
			}
			b := New(values, config.NewState(config.LocalhostHTTP, nil), WithLogger(logger.Nop())).
				Handle(http.MethodGet, "/hello", hello).
				Handle(http.MethodGet, tt.path, hello)

			srv, err := b.Start(context.Background())
			if err == nil {
				_ = srv.Handle().Stop(context.Background())
				t.Fatal("expected a route conflict error")
			}
			if tt.field != "" {
				if errors.CodeOf(err) != errors.ErrCodeInvalidField || errors.DetailOf(err, errors.DetailField) != tt.field {
					t.Fatalf("expected INVALID_FIELD for %s, got %v", tt.field, err)
				}
			}
		})
	}
}

func TestStart_CORSAndMounts(t *testing.T) {
	values := testValues("http_localhost")
	values.AllowCORSDomain = ptr("https://app.example.com")

	srv, err := New(values, config.NewState(config.LocalhostHTTP, nil), WithLogger(logger.Nop())).
		Mount("/raw/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if middleware.StateFromContext(r.Context()) == nil {
				t.Error("mounted handlers must see the injected state")
			}
			w.WriteHeader(http.StatusAccepted)
		})).
		Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		_ = srv.Handle().Stop(context.Background())
		<-srv.Done()
	}()

	req, _ := http.NewRequest(http.MethodGet, baseURL("http", srv)+"/raw/x", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 from the mount, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials for a named origin, got %q", got)
	}
}

func TestStart_SpawnsPreStartProgram(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	script := filepath.Join(dir, "migrate.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ntouch "+marker+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	values := testValues("http_localhost")
	values.AutoMigrateBin = ptr(script)
	start(t, values, config.LocalhostHTTP)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("the pre-start program never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStart_MissingPreStartProgramFails(t *testing.T) {
	values := testValues("http_localhost")
	values.AutoMigrateBin = ptr(filepath.Join(t.TempDir(), "absent"))
	state := config.NewState(config.LocalhostHTTP, nil)

	srv, err := New(values, state, WithLogger(logger.Nop())).
		Handle(http.MethodGet, "/hello", hello).
		Start(context.Background())
	if err == nil {
		_ = srv.Handle().Stop(context.Background())
		t.Fatal("expected Start to fail when the pre-start program cannot be launched")
	}
	if code := errors.CodeOf(err); code != errors.ErrCodeSpawnFailure {
		t.Fatalf("expected SPAWN_FAILURE, got %v", err)
	}
}

func TestStart_SpawnsBeforeBind(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	script := filepath.Join(dir, "migrate.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ntouch "+marker+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	values := testValues("http_localhost")
	values.ServerPort = ptr(uint16(busy.Addr().(*net.TCPAddr).Port))
	values.AutoMigrateBin = ptr(script)

	_, err = New(values, config.NewState(config.LocalhostHTTP, nil), WithLogger(logger.Nop())).
		Start(context.Background())
	if code := errors.CodeOf(err); code != errors.ErrCodeBindFailure {
		t.Fatalf("expected BIND_FAILURE, got %v", err)
	}

	// The program was launched although no listener could be bound.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("the pre-start program did not run before bind")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
