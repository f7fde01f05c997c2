// Package trust owns the mesh's zero-trust material: the CA certificate,
// this node's own certificate chain, and its private key. It hands out a
// server tls.Config that requires and verifies a client certificate, and a
// client tls.Config that presents this node's identity and verifies the
// peer against the same CA. No certificate pinning beyond "chains to the
// known CA" is performed; see SPEC_FULL.md §9 for the open question this
// resolves.
package trust

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Store holds the loaded certificate material for one node.
type Store struct {
	caPool  *x509.CertPool
	nodeCrt tls.Certificate
}

// Load reads the CA certificate plus this node's certificate chain and
// private key from PEM files. Any failure here is fatal at startup, per
// SPEC_FULL.md §4.1.
func Load(certPath, keyPath, caPath string) (*Store, error) {
	caPEM, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate %q: %w", caPath, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no certificates found in CA file %q", caPath)
	}

	nodeCrt, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load node certificate/key (%q, %q): %w", certPath, keyPath, err)
	}

	return &Store{caPool: pool, nodeCrt: nodeCrt}, nil
}

// ServerTLSConfig returns a tls.Config for the HTTPS Surface that requires
// and verifies every client certificate against the CA.
func (s *Store) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{s.nodeCrt},
		ClientCAs:    s.caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}

// ClientTLSConfig returns a tls.Config for outbound mTLS connections to
// peers: this node presents its own certificate and verifies the peer's
// certificate against the CA.
func (s *Store) ClientTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{s.nodeCrt},
		RootCAs:      s.caPool,
		MinVersion:   tls.VersionTLS12,
	}
}
