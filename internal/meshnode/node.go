// Package meshnode wires together the Trust Store, Routing Table, LSA
// Database, Path Engine, Forwarding Engine, Health Monitor, LSA
// Broadcaster, and HTTPS Surface into one running node, and owns their
// combined lifecycle. Grounded on the teacher's main.go construction
// order and signal-driven shutdown. Every component is constructed here
// and handed in by reference, never reached through an ambient global.
package meshnode

import (
	"context"
	"time"

	"github.com/solitude-labs/meshgatewayd/internal/api"
	"github.com/solitude-labs/meshgatewayd/internal/config"
	"github.com/solitude-labs/meshgatewayd/internal/forwarding"
	"github.com/solitude-labs/meshgatewayd/internal/health"
	"github.com/solitude-labs/meshgatewayd/internal/lsabroadcast"
	"github.com/solitude-labs/meshgatewayd/internal/meshclient"
	"github.com/solitude-labs/meshgatewayd/internal/meshlog"
	"github.com/solitude-labs/meshgatewayd/internal/routing"
	"github.com/solitude-labs/meshgatewayd/internal/topology"
	"github.com/solitude-labs/meshgatewayd/internal/trust"
)

// Node is one running mesh gateway process.
type Node struct {
	cfg         *config.Config
	table       *routing.Table
	lsaDB       *topology.Database
	forwarder   *forwarding.Engine
	healthMon   *health.Monitor
	broadcaster *lsabroadcast.Broadcaster
	server      *api.Server
}

// New constructs a node from a loaded, validated configuration and its
// trust material. It does not start any background task or listener;
// call Run for that.
func New(cfg *config.Config, store *trust.Store) *Node {
	seeds := make([]routing.PeerSeed, 0, len(cfg.Peers))
	for _, p := range cfg.Peers {
		seeds = append(seeds, routing.PeerSeed{NodeID: p.NodeID, Address: p.Address})
	}
	table := routing.New(seeds)
	lsaDB := topology.New()

	client := meshclient.New(store.ClientTLSConfig(), forwarding.Timeout)
	forwarder := forwarding.New(cfg.NodeID, table, lsaDB, client)
	healthMon := health.New(cfg.NodeID, table, client, health.DefaultPeriod, health.DefaultProbeTimeout)
	broadcaster := lsabroadcast.New(cfg.NodeID, table, lsaDB, client,
		lsabroadcast.DefaultPeriod, lsabroadcast.DefaultInitialDelay, lsabroadcast.DefaultPostTimeout)

	node := &api.Node{
		SelfID:      cfg.NodeID,
		ListenAddr:  cfg.ListenAddress,
		StartedAt:   time.Now(),
		Table:       table,
		LSADB:       lsaDB,
		Forwarder:   forwarder,
		Broadcaster: broadcaster,
	}
	server := api.NewServer(node, store.ServerTLSConfig())

	return &Node{
		cfg:         cfg,
		table:       table,
		lsaDB:       lsaDB,
		forwarder:   forwarder,
		healthMon:   healthMon,
		broadcaster: broadcaster,
		server:      server,
	}
}

// Run starts the periodic tasks and blocks serving HTTPS until ctx is
// canceled, then shuts down the HTTPS server first and after it the
// Health Monitor and the LSA Broadcaster, in that order.
func (n *Node) Run(ctx context.Context) error {
	n.healthMon.Start()
	n.broadcaster.Start()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- n.server.ListenAndServeTLS()
	}()

	select {
	case err := <-serveErr:
		n.shutdown()
		return err
	case <-ctx.Done():
		meshlog.WithNode(n.cfg.NodeID).Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := n.server.Shutdown(shutdownCtx)
		n.shutdown()
		return err
	}
}

func (n *Node) shutdown() {
	n.healthMon.Stop()
	n.broadcaster.Stop()
}
