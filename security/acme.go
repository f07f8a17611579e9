package security

import (
	"context"
	"crypto/tls"
	"fmt"
	"slices"

	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"

	"github.com/kbukum/serverkit/errors"
)

// DefaultACMECacheDir is where issued certificates and the account key live.
const DefaultACMECacheDir = "tmp/letsencrypt"

// ACMEConfig configures automatic certificate issuance.
type ACMEConfig struct {
	// Domain is the only host name certificates are issued for.
	Domain string
	// Email is the optional account contact.
	Email string
	// DirectoryURL selects the CA; Let's Encrypt production when empty.
	DirectoryURL string
	// CacheDir defaults to DefaultACMECacheDir.
	CacheDir string
}

// ACME issues and renews certificates for one domain using the TLS-ALPN-01
// challenge, answered on the serving listener itself.
type ACME struct {
	domain  string
	manager *autocert.Manager
}

// NewACME creates the issuer. Nothing is contacted until a handshake or Warm
// asks for a certificate.
func NewACME(cfg ACMEConfig) *ACME {
	dir := cfg.CacheDir
	if dir == "" {
		dir = DefaultACMECacheDir
	}
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(dir),
		HostPolicy: autocert.HostWhitelist(cfg.Domain),
		Email:      cfg.Email,
	}
	if cfg.DirectoryURL != "" {
		m.Client = &acme.Client{DirectoryURL: cfg.DirectoryURL}
	}
	return &ACME{domain: cfg.Domain, manager: m}
}

// Domain returns the domain certificates are issued for.
func (a *ACME) Domain() string { return a.domain }

// TLSConfig returns a server configuration that obtains certificates on
// demand and answers acme-tls/1 challenges. HTTP/2 is offered first.
func (a *ACME) TLSConfig() *tls.Config {
	cfg := a.manager.TLSConfig()
	cfg.MinVersion = tls.VersionTLS12
	protos := append([]string(nil), DefaultNextProtos...)
	for _, p := range cfg.NextProtos {
		if !slices.Contains(protos, p) {
			protos = append(protos, p)
		}
	}
	cfg.NextProtos = protos
	return cfg
}

// GetCertificate is the tls.Config hook, exposed for listeners that build
// their own configuration (HTTP/3).
func (a *ACME) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return a.manager.GetCertificate(hello)
}

// Warm obtains the certificate for the domain, issuing it if the cache has
// none. It must run after the listener is bound, since the CA validates
// through it.
func (a *ACME) Warm(ctx context.Context) error {
	type result struct{ err error }
	done := make(chan result, 1)
	go func() {
		_, err := a.manager.GetCertificate(&tls.ClientHelloInfo{
			ServerName:        a.domain,
			SupportedProtos:   DefaultNextProtos,
			CipherSuites:      []uint16{tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256},
			SupportedVersions: []uint16{tls.VersionTLS13, tls.VersionTLS12},
		})
		done <- result{err}
	}()

	select {
	case <-ctx.Done():
		return errors.CertificateFailure(fmt.Sprintf("certificate issuance for %s interrupted", a.domain), ctx.Err())
	case r := <-done:
		if r.err != nil {
			return errors.CertificateFailure(fmt.Sprintf("certificate issuance for %s failed", a.domain), r.err).
				WithDetail(errors.DetailValue, a.domain)
		}
		return nil
	}
}
