package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/kbukum/serverkit/errors"
)

// ALPN protocol ids offered by the TCP listeners.
var DefaultNextProtos = []string{"h2", "http/1.1"}

// LoadKeyPair reads a PEM certificate chain and private key and returns a
// server TLS configuration using them. Both files are read once, at bind
// time.
func LoadKeyPair(certFile, keyFile string) (*tls.Config, error) {
	for _, f := range []string{certFile, keyFile} {
		if _, err := os.Stat(f); err != nil {
			return nil, errors.CertificateFailure(fmt.Sprintf("cannot read %s", f), err).
				WithDetail(errors.DetailPath, f)
		}
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.CertificateFailure("failed to load certificate "+certFile, err).
			WithDetail(errors.DetailPath, certFile)
	}
	if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
		cert.Leaf = leaf
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   append([]string(nil), DefaultNextProtos...),
	}, nil
}

// Expiry returns the NotAfter of the first certificate in cfg, zero when
// unknown.
func Expiry(cfg *tls.Config) time.Time {
	if cfg == nil || len(cfg.Certificates) == 0 || cfg.Certificates[0].Leaf == nil {
		return time.Time{}
	}
	return cfg.Certificates[0].Leaf.NotAfter
}
