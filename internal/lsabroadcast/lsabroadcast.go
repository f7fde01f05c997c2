// Package lsabroadcast implements the LSA Broadcaster: a periodic task
// that assembles this node's own LSA from its currently connected peers,
// bumps the sequence number, and floods it to every connected peer.
// Grounded on the teacher's internal/counter.go propagateIncrement
// fan-out-goroutines-per-peer shape and internal/discovery.go's
// broadcastJoin, generalized from a one-shot join broadcast to a
// recurring topology announcement per spec.md §4.7.
package lsabroadcast

import (
	"context"
	"sync"
	"time"

	"github.com/solitude-labs/meshgatewayd/internal/meshlog"
	"github.com/solitude-labs/meshgatewayd/internal/routing"
	"github.com/solitude-labs/meshgatewayd/internal/topology"
	"github.com/solitude-labs/meshgatewayd/internal/wire"
)

const (
	// DefaultPeriod is the interval between broadcasts (spec.md default).
	DefaultPeriod = 30 * time.Second
	// DefaultInitialDelay lets the first health round populate connected
	// peers before the first broadcast.
	DefaultInitialDelay = 5 * time.Second
	// DefaultPostTimeout bounds each individual flood POST.
	DefaultPostTimeout = 5 * time.Second
)

// PeerClient performs the single outbound LSA POST. Implemented by
// meshclient.Client in production.
type PeerClient interface {
	PostLSA(ctx context.Context, address string, req wire.LSARequest) error
}

// Broadcaster runs the periodic LSA assembly-and-flood loop for one node.
type Broadcaster struct {
	selfID       string
	table        *routing.Table
	lsaDB        *topology.Database
	client       PeerClient
	period       time.Duration
	initialDelay time.Duration
	postTimeout  time.Duration
	stop         chan struct{}
	wg           sync.WaitGroup
}

// New builds an LSA Broadcaster. A zero or negative period or postTimeout
// falls back to the spec.md default. A negative initialDelay falls back to
// DefaultInitialDelay; a zero initialDelay means the first broadcast runs
// immediately on Start.
func New(selfID string, table *routing.Table, lsaDB *topology.Database, client PeerClient, period, initialDelay, postTimeout time.Duration) *Broadcaster {
	if period <= 0 {
		period = DefaultPeriod
	}
	if initialDelay < 0 {
		initialDelay = DefaultInitialDelay
	}
	if postTimeout <= 0 {
		postTimeout = DefaultPostTimeout
	}
	return &Broadcaster{
		selfID:       selfID,
		table:        table,
		lsaDB:        lsaDB,
		client:       client,
		period:       period,
		initialDelay: initialDelay,
		postTimeout:  postTimeout,
		stop:         make(chan struct{}),
	}
}

// Start launches the broadcast loop as a background goroutine.
func (b *Broadcaster) Start() {
	b.wg.Add(1)
	go b.loop()
}

// Stop cancels the loop and waits for the loop goroutine to exit. Flood
// POSTs already started by FloodTo are not waited for; each ends on its
// own, at the latest when its post timeout expires.
func (b *Broadcaster) Stop() {
	close(b.stop)
	b.wg.Wait()
}

func (b *Broadcaster) loop() {
	defer b.wg.Done()

	if b.initialDelay > 0 {
		select {
		case <-b.stop:
			return
		case <-time.After(b.initialDelay):
		}
	}

	ticker := time.NewTicker(b.period)
	defer ticker.Stop()

	b.broadcastOnce()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.broadcastOnce()
		}
	}
}

// broadcastOnce builds this node's next own LSA from the currently
// connected peers and floods it to all of them. Flooding-on-receive of a
// peer's LSA does not go through here: the HTTPS Surface calls FloodTo
// directly, so that LSA's sequence and body stay unchanged.
func (b *Broadcaster) broadcastOnce() {
	connected := b.table.ConnectedPeers()
	own := b.lsaDB.OwnNextLSA(b.selfID, connected, time.Now())

	req := wire.LSARequest{
		NodeID:    own.NodeID,
		Neighbors: own.Neighbors,
		Sequence:  own.Sequence,
		Timestamp: own.Timestamp,
	}
	b.FloodTo(req, connected, "")
}

// FloodTo sends lsa to every id in recipients except exclude. Used both
// for this node's own periodic broadcast and for re-flooding a freshly
// accepted peer LSA to every connected peer but the sender, per spec.md
// §4.7's flooding rule.
func (b *Broadcaster) FloodTo(lsa wire.LSARequest, recipients []string, exclude string) {
	for _, id := range recipients {
		if id == exclude {
			continue
		}
		peer, ok := b.table.Get(id)
		if !ok {
			continue
		}
		go b.postOne(peer.Address, peer.NodeID, lsa)
	}
}

func (b *Broadcaster) postOne(address, peerID string, lsa wire.LSARequest) {
	ctx, cancel := context.WithTimeout(context.Background(), b.postTimeout)
	defer cancel()

	if err := b.client.PostLSA(ctx, address, lsa); err != nil {
		meshlog.WithNode(b.selfID).WithField("peer_id", peerID).Warnf("lsa flood to peer failed: %v", err)
	}
}
