// Command meshcertgen is the one-shot certificate bootstrap utility
// spec.md treats as an external collaborator (§1: "certificate
// generation ... emits a CA plus per-node keypairs"). Grounded on
// original_source/mesh-gateway/src/bin/gen_certs.rs: mint a self-signed
// CA, then one ECDSA P-256 leaf certificate per node with
// ServerAuth+ClientAuth extended key usage and SANs for the node id,
// "localhost", and 127.0.0.1. No certificate-minting library (no rcgen
// equivalent) appears anywhere in the retrieved pack, so this uses
// crypto/x509 and crypto/ecdsa directly — the standard, and only,
// idiomatic way to do this in Go.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var outDir string
	var nodesFlag string
	var validDays int

	cmd := &cobra.Command{
		Use:   "meshcertgen init",
		Short: "Generate a CA and per-node mTLS keypairs for a mesh gateway network",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate the CA and node certificates",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes := splitNonEmpty(nodesFlag, ",")
			if len(nodes) == 0 {
				return fmt.Errorf("--nodes must list at least one node id")
			}
			return generateAll(outDir, nodes, validDays)
		},
	}
	initCmd.Flags().StringVar(&outDir, "out", "certs", "output directory")
	initCmd.Flags().StringVar(&nodesFlag, "nodes", "", "comma-separated node ids to generate certificates for")
	initCmd.Flags().IntVar(&validDays, "valid-days", 365, "certificate validity period in days")

	cmd.AddCommand(initCmd)
	return cmd
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func generateAll(outDir string, nodes []string, validDays int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	validity := time.Duration(validDays) * 24 * time.Hour

	caKey, caCert, caDER, err := generateCA(validity)
	if err != nil {
		return fmt.Errorf("generate CA: %w", err)
	}
	if err := writePEM(filepath.Join(outDir, "ca.crt"), "CERTIFICATE", caDER); err != nil {
		return err
	}
	if err := writeKey(filepath.Join(outDir, "ca.key"), caKey); err != nil {
		return err
	}
	fmt.Printf("wrote %s and %s\n", filepath.Join(outDir, "ca.crt"), filepath.Join(outDir, "ca.key"))

	for _, nodeID := range nodes {
		key, der, err := generateLeaf(nodeID, caCert, caKey, validity)
		if err != nil {
			return fmt.Errorf("generate certificate for %q: %w", nodeID, err)
		}
		crtPath := filepath.Join(outDir, nodeID+".crt")
		keyPath := filepath.Join(outDir, nodeID+".key")
		if err := writePEM(crtPath, "CERTIFICATE", der); err != nil {
			return err
		}
		if err := writeKey(keyPath, key); err != nil {
			return err
		}
		fmt.Printf("wrote %s and %s\n", crtPath, keyPath)
	}
	return nil
}

func generateCA(validity time.Duration) (*ecdsa.PrivateKey, *x509.Certificate, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, nil, err
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, nil, nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "MeshNet Root CA",
			Organization: []string{"Solitude Labs POC"},
			Country:      []string{"US"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, nil, err
	}
	return key, cert, der, nil
}

func generateLeaf(nodeID string, caCert *x509.Certificate, caKey *ecdsa.PrivateKey, validity time.Duration) (*ecdsa.PrivateKey, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:         nodeID,
			Organization:       []string{"Solitude Labs POC"},
			OrganizationalUnit: []string{"Mesh Gateway"},
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().Add(validity),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSNames:    []string{nodeID, "localhost"},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1)},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, caCert, &key.PublicKey, caKey)
	if err != nil {
		return nil, nil, err
	}
	return key, der, nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	return rand.Int(rand.Reader, limit)
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()
	return pem.Encode(f, &pem.Block{Type: blockType, Bytes: der})
}

func writeKey(path string, key *ecdsa.PrivateKey) error {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()
	return pem.Encode(f, &pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}
