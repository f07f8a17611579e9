// Package security provisions the certificates of the TLS and QUIC
// listeners: a static key pair read from disk, or certificates issued over
// ACME and cached locally.
//
//	cfg, err := security.LoadKeyPair("/etc/ssl/server.crt", "/etc/ssl/server.key")
//
//	acme := security.NewACME(security.ACMEConfig{Domain: "example.com"})
//	ln := tls.NewListener(tcp, acme.TLSConfig())
package security
