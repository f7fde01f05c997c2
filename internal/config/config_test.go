package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solitude-labs/meshgatewayd/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
node_id: gateway-a
listen_address: 0.0.0.0:9443
cert_path: certs/gateway-a.crt
key_path: certs/gateway-a.key
ca_path: certs/ca.crt
peers:
  - node_id: gateway-b
    address: 10.0.0.2:9443
  - node_id: gateway-c
    address: 10.0.0.3:9443
`

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, validConfig)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "gateway-a", cfg.NodeID)
	require.Len(t, cfg.Peers, 2)
	require.Equal(t, "gateway-b", cfg.Peers[0].NodeID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, validConfig+"\nbogus_field: true\n")
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestValidateRequiresNodeID(t *testing.T) {
	cfg := &config.Config{ListenAddress: "0.0.0.0:9443", CertPath: "c", KeyPath: "k", CAPath: "ca"}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsSelfInPeerList(t *testing.T) {
	cfg := &config.Config{
		NodeID: "gateway-a", ListenAddress: "0.0.0.0:9443",
		CertPath: "c", KeyPath: "k", CAPath: "ca",
		Peers: []config.PeerConfig{{NodeID: "gateway-a", Address: "10.0.0.2:9443"}},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsDuplicatePeers(t *testing.T) {
	cfg := &config.Config{
		NodeID: "gateway-a", ListenAddress: "0.0.0.0:9443",
		CertPath: "c", KeyPath: "k", CAPath: "ca",
		Peers: []config.PeerConfig{
			{NodeID: "gateway-b", Address: "10.0.0.2:9443"},
			{NodeID: "gateway-b", Address: "10.0.0.3:9443"},
		},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsMalformedAddress(t *testing.T) {
	cfg := &config.Config{
		NodeID: "gateway-a", ListenAddress: "not-a-host-port",
		CertPath: "c", KeyPath: "k", CAPath: "ca",
	}
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsEmptyPeerList(t *testing.T) {
	cfg := &config.Config{
		NodeID: "gateway-a", ListenAddress: "0.0.0.0:9443",
		CertPath: "c", KeyPath: "k", CAPath: "ca",
	}
	require.NoError(t, cfg.Validate())
}
