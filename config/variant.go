package config

import (
	"github.com/kbukum/serverkit/errors"
)

// Variant is one of the closed set of deployment variants. Which variants
// exist in a given binary is decided by its Capabilities.
type Variant int

const (
	VariantUnknown Variant = iota
	// LocalhostHTTP listens on http://127.0.0.1:{port} only.
	LocalhostHTTP
	// UnsafeHTTP listens on http://{host}:{port}.
	UnsafeHTTP
	// AutoTLSHTTP serves HTTPS with certificates issued over ACME.
	AutoTLSHTTP
	// StaticTLS serves HTTP/2 over TLS with the configured key pair.
	StaticTLS
	// AutoTLSQUIC serves HTTPS and HTTP/3 with certificates issued over ACME.
	AutoTLSQUIC
	// StaticTLSQUIC serves HTTP/2 and HTTP/3 with the configured key pair.
	StaticTLSQUIC
	// QUICOnly serves HTTP/3 exclusively.
	QUICOnly
)

var variantNames = map[Variant]string{
	VariantUnknown: "Unknown",
	LocalhostHTTP:  "LocalhostHttp",
	UnsafeHTTP:     "UnsafeHttp",
	AutoTLSHTTP:    "AutoTlsHttp",
	StaticTLS:      "StaticTls",
	AutoTLSQUIC:    "AutoTlsQuic",
	StaticTLSQUIC:  "StaticTlsQuic",
	QUICOnly:       "QuicOnly",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return variantNames[VariantUnknown]
}

// Field names checked during variant resolution.
const (
	FieldServerHost = "server_host"
	FieldServerPort = "server_port"
	FieldAcmeDomain = "acme_domain"
	FieldSSLKeyPath = "ssl_key_path"
	FieldSSLCrtPath = "ssl_crt_path"
)

// Field names required when API documentation is enabled.
const (
	FieldOAPIName    = "oapi_name"
	FieldOAPIVer     = "oapi_ver"
	FieldOAPIAPIAddr = "oapi_api_addr"
)

// variantSpec is one registry entry: the startup_type keyword, the
// capability gate, and the fields the variant needs in checking order.
type variantSpec struct {
	variant  Variant
	keyword  string
	gate     func(Capabilities) bool
	requires []string
}

func always(Capabilities) bool { return true }

var registry = []variantSpec{
	{LocalhostHTTP, "http_localhost", always, nil},
	{UnsafeHTTP, "unsafe_http", always, []string{FieldServerHost}},
	{AutoTLSHTTP, "https_acme", func(c Capabilities) bool { return c.ACME }, []string{FieldServerHost, FieldAcmeDomain}},
	{StaticTLS, "https_only", always, []string{FieldServerHost, FieldSSLKeyPath, FieldSSLCrtPath}},
	{AutoTLSQUIC, "quinn_acme", func(c Capabilities) bool { return c.ACME && c.HTTP3 }, []string{FieldServerHost, FieldAcmeDomain}},
	{StaticTLSQUIC, "quinn", func(c Capabilities) bool { return c.HTTP3 }, []string{FieldServerHost, FieldSSLKeyPath, FieldSSLCrtPath}},
	{QUICOnly, "quinn_only", func(c Capabilities) bool { return c.HTTP3 }, []string{FieldServerHost, FieldSSLKeyPath, FieldSSLCrtPath}},
}

// Keyword returns the startup_type string that selects v, "" for VariantUnknown.
func (v Variant) Keyword() string {
	for _, s := range registry {
		if s.variant == v {
			return s.keyword
		}
	}
	return ""
}

// Required returns the fields v needs besides the port, in checking order.
func (v Variant) Required() []string {
	for _, s := range registry {
		if s.variant == v {
			return append([]string(nil), s.requires...)
		}
	}
	return nil
}

// UsesTLS reports whether v terminates TLS.
func (v Variant) UsesTLS() bool {
	switch v {
	case AutoTLSHTTP, StaticTLS, AutoTLSQUIC, StaticTLSQUIC, QUICOnly:
		return true
	}
	return false
}

// UsesACME reports whether v obtains certificates over ACME.
func (v Variant) UsesACME() bool { return v == AutoTLSHTTP || v == AutoTLSQUIC }

// ServesTCP reports whether v binds a TCP listener.
func (v Variant) ServesTCP() bool { return v != VariantUnknown && v != QUICOnly }

// ServesQUIC reports whether v binds a QUIC listener.
func (v Variant) ServesQUIC() bool {
	return v == AutoTLSQUIC || v == StaticTLSQUIC || v == QUICOnly
}

// ParseVariant maps a startup_type keyword to a variant available under
// caps. Unavailable variants are indistinguishable from unknown keywords.
func ParseVariant(keyword string, caps Capabilities) (Variant, error) {
	for _, s := range registry {
		if s.keyword == keyword && s.gate(caps) {
			return s.variant, nil
		}
	}
	return VariantUnknown, errors.UnknownVariant(keyword)
}

// ResolveVariant selects the variant named by startup_type and checks that
// every field it requires is present. localhost HTTP rejects any host, since
// it always binds the loopback address.
func (v *Values) ResolveVariant(caps Capabilities) (Variant, error) {
	variant, err := ParseVariant(v.StartupType, caps)
	if err != nil {
		return VariantUnknown, err
	}

	if variant == LocalhostHTTP && v.ServerHost != nil {
		return VariantUnknown, errors.InvalidField(FieldServerHost,
			"http_localhost always listens on 127.0.0.1; remove server_host or choose another startup_type").
			WithDetail(errors.DetailVariant, variant.String())
	}

	for _, field := range variant.Required() {
		if !v.present(field) {
			return VariantUnknown, errors.MissingField(field, variant.String())
		}
	}
	if v.ServerPort == nil && v.ServerPortAchiever == nil {
		return VariantUnknown, errors.MissingField(FieldServerPort, variant.String())
	}
	return variant, nil
}

func (v *Values) present(field string) bool {
	switch field {
	case FieldServerHost:
		return v.ServerHost != nil
	case FieldServerPort:
		return v.ServerPort != nil
	case FieldAcmeDomain:
		return v.AcmeDomain != nil
	case FieldSSLKeyPath:
		return v.SSLKeyPath != nil
	case FieldSSLCrtPath:
		return v.SSLCrtPath != nil
	}
	return false
}
