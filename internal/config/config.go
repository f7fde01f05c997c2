// Package config loads and validates the per-node YAML configuration file.
// Everything here is an out-of-core-scope ambient concern: the core
// consumes the Config struct this package produces and never parses a
// file itself.
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/goccy/go-yaml"
)

// PeerConfig is one statically configured peer.
type PeerConfig struct {
	NodeID  string `yaml:"node_id"`
	Address string `yaml:"address"`
}

// Config is the validated, read-only configuration for one node.
type Config struct {
	NodeID        string       `yaml:"node_id"`
	ListenAddress string       `yaml:"listen_address"`
	CertPath      string       `yaml:"cert_path"`
	KeyPath       string       `yaml:"key_path"`
	CAPath        string       `yaml:"ca_path"`
	Peers         []PeerConfig `yaml:"peers"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f, yaml.Strict())
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks syntactic correctness and the invariants spec.md §6
// requires: host:port addresses, unique peer ids, and no self-reference.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id is required")
	}
	if c.ListenAddress == "" {
		return fmt.Errorf("listen_address is required")
	}
	if err := validateHostPort(c.ListenAddress); err != nil {
		return fmt.Errorf("listen_address: %w", err)
	}
	if c.CertPath == "" || c.KeyPath == "" || c.CAPath == "" {
		return fmt.Errorf("cert_path, key_path, and ca_path are all required")
	}

	seen := make(map[string]struct{}, len(c.Peers))
	for _, p := range c.Peers {
		if p.NodeID == "" {
			return fmt.Errorf("peer entry missing node_id")
		}
		if p.NodeID == c.NodeID {
			return fmt.Errorf("peer list must not contain this node (%q)", c.NodeID)
		}
		if _, dup := seen[p.NodeID]; dup {
			return fmt.Errorf("duplicate peer node_id %q", p.NodeID)
		}
		seen[p.NodeID] = struct{}{}
		if err := validateHostPort(p.Address); err != nil {
			return fmt.Errorf("peer %q address: %w", p.NodeID, err)
		}
	}
	return nil
}

func validateHostPort(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("expected host:port, got %q: %w", addr, err)
	}
	if port == "" {
		return fmt.Errorf("missing port in %q", addr)
	}
	_ = host
	return nil
}
