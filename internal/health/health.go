// Package health implements the Health Monitor: a periodic task that
// probes every configured peer's /health endpoint over mTLS and updates
// the Routing Table's status and last-seen time. Grounded on the
// teacher's internal/discovery.go heartbeatLoop/cleanupLoop ticker pair
// and per-peer fan-out goroutines, generalized from a self-reported
// heartbeat gossip to an active pull-based probe per spec.md §4.6.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/solitude-labs/meshgatewayd/internal/meshlog"
	"github.com/solitude-labs/meshgatewayd/internal/routing"
)

const (
	// DefaultPeriod is the interval between probe rounds (spec.md default).
	DefaultPeriod = 15 * time.Second
	// DefaultProbeTimeout bounds each individual peer probe.
	DefaultProbeTimeout = 5 * time.Second
)

// Prober performs the single mTLS GET /health call. Production code uses
// meshclient.Client; tests substitute a fake.
type Prober interface {
	Get(ctx context.Context, address, path string) error
}

// Monitor runs the periodic probe loop for one node.
type Monitor struct {
	selfID        string
	table         *routing.Table
	prober        Prober
	period        time.Duration
	probeTimeout  time.Duration
	stop          chan struct{}
	wg            sync.WaitGroup
}

// New builds a Health Monitor. period/probeTimeout of zero fall back to
// the spec.md defaults.
func New(selfID string, table *routing.Table, prober Prober, period, probeTimeout time.Duration) *Monitor {
	if period <= 0 {
		period = DefaultPeriod
	}
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Monitor{
		selfID:       selfID,
		table:        table,
		prober:       prober,
		period:       period,
		probeTimeout: probeTimeout,
		stop:         make(chan struct{}),
	}
}

// Start launches the probe loop as a background goroutine. It returns
// immediately; call Stop to cancel it. An empty peer list makes every
// tick a no-op, per spec.md's boundary behavior.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop cancels the loop and waits for the in-flight round to finish.
func (m *Monitor) Stop() {
	close(m.stop)
	m.wg.Wait()
}

func (m *Monitor) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.probeAll()
		}
	}
}

// probeAll issues one probe per configured peer concurrently and waits
// for the round to finish before returning, so Stop() never races an
// in-flight round.
func (m *Monitor) probeAll() {
	peers := m.table.NodeIDs()
	var wg sync.WaitGroup
	for _, id := range peers {
		peer, ok := m.table.Get(id)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(peer routing.PeerEntry) {
			defer wg.Done()
			m.probeOne(peer)
		}(peer)
	}
	wg.Wait()
}

func (m *Monitor) probeOne(peer routing.PeerEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), m.probeTimeout)
	defer cancel()

	now := time.Now()
	err := m.prober.Get(ctx, peer.Address, "/health")

	newStatus := routing.StatusDisconnected
	if err == nil {
		newStatus = routing.StatusConnected
	}

	if peer.Status != newStatus {
		log := meshlog.WithNode(m.selfID).WithField("peer_id", peer.NodeID)
		if newStatus == routing.StatusConnected {
			log.Info("peer is now connected")
		} else {
			log.WithFields(map[string]interface{}{"err": errString(err)}).Info("peer is now disconnected")
		}
	}
	m.table.SetStatus(peer.NodeID, newStatus, now)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
