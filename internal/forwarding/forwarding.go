// Package forwarding implements the multi-hop message forwarding state
// machine: Originate for locally-initiated sends, Relay for messages
// arriving over the wire, and the shared forward step that consults the
// Path Engine and performs the outbound mTLS hop. Grounded on the
// teacher's internal/counter/counter.go propagation shape (context-bound
// JSON POST, status-code check) and internal/discovery/discovery.go's
// seen-state idiom, generalized from per-increment-ID idempotency to
// per-message route-membership loop detection.
package forwarding

import (
	"context"
	"time"

	"github.com/solitude-labs/meshgatewayd/internal/meshlog"
	"github.com/solitude-labs/meshgatewayd/internal/pathengine"
	"github.com/solitude-labs/meshgatewayd/internal/routing"
	"github.com/solitude-labs/meshgatewayd/internal/topology"
	"github.com/solitude-labs/meshgatewayd/internal/wire"
)

// Status strings, the deterministic wire mapping for the closed outcome
// variant {Delivered | NoRoute | Failed | LoopDetected} (spec.md §4.5).
const (
	StatusDelivered    = "delivered"
	StatusNoRoute      = "no_route"
	StatusFailed       = "failed"
	StatusLoopDetected = "loop_detected"
)

// Timeout is the per-hop outbound deadline, within the spec.md §5 5-10s
// band for forwarding.
const Timeout = 7 * time.Second

// PeerClient performs the single outbound hop of a relayed message. The
// production implementation POSTs over mTLS to
// https://<address>/message/receive; tests substitute a fake.
type PeerClient interface {
	PostMessage(ctx context.Context, address string, msg wire.RelayMessage) (wire.MessageResponse, error)
}

// Engine is the forwarding state machine for one node.
type Engine struct {
	selfID string
	table  *routing.Table
	lsaDB  *topology.Database
	client PeerClient
}

// New builds a forwarding engine.
func New(selfID string, table *routing.Table, lsaDB *topology.Database, client PeerClient) *Engine {
	return &Engine{selfID: selfID, table: table, lsaDB: lsaDB, client: client}
}

// Originate constructs a fresh message at this node and forwards it,
// per spec.md §4.5(a). The returned response is the terminal outcome
// seen by the HTTPS client.
func (e *Engine) Originate(ctx context.Context, to, content string) wire.MessageResponse {
	msg := wire.RelayMessage{
		From:    e.selfID,
		To:      to,
		Content: content,
		Route:   []string{e.selfID},
	}
	return e.forward(ctx, msg)
}

// Relay processes a message arriving at /message/receive, per spec.md
// §4.5(b): deliver if addressed here, drop on loop, otherwise extend the
// route and forward onward.
func (e *Engine) Relay(ctx context.Context, msg wire.RelayMessage) wire.MessageResponse {
	if msg.To == e.selfID {
		route := appendOnce(msg.Route, e.selfID)
		meshlog.WithNode(e.selfID).WithFields(map[string]interface{}{
			"from": msg.From, "content": msg.Content,
		}).Info("delivered message locally")
		return wire.MessageResponse{Status: StatusDelivered, Route: route}
	}

	if containsNode(msg.Route, e.selfID) {
		route := append(append([]string(nil), msg.Route...), e.selfID)
		meshlog.WithNode(e.selfID).Warn("loop detected, dropping message")
		return wire.MessageResponse{Status: StatusLoopDetected, Route: route}
	}

	msg.Route = append(append([]string(nil), msg.Route...), e.selfID)
	return e.forward(ctx, msg)
}

// forward consults the Path Engine for msg.To and either delivers
// locally, reports no route, or performs the single outbound hop.
func (e *Engine) forward(ctx context.Context, msg wire.RelayMessage) wire.MessageResponse {
	result := pathengine.Compute(e.selfID, msg.To, e.table.ConnectedPeers(), e.lsaDB.Snapshot())

	switch result.Outcome {
	case pathengine.Local:
		return wire.MessageResponse{Status: StatusDelivered, Route: msg.Route}

	case pathengine.NoRoute:
		return wire.MessageResponse{Status: StatusNoRoute, Route: msg.Route}

	case pathengine.NextHopFound:
		peer, ok := e.table.Get(result.NextHop)
		if !ok {
			return wire.MessageResponse{Status: StatusFailed, Route: msg.Route}
		}

		resp, err := e.client.PostMessage(ctx, peer.Address, msg)
		if err != nil {
			meshlog.WithNode(e.selfID).WithField("peer_id", result.NextHop).Warnf("forward hop failed: %v", err)
			return wire.MessageResponse{Status: StatusFailed, Route: msg.Route}
		}
		// The downstream route should already include us (we appended
		// ourselves before sending); this only guards against a
		// malformed downstream response.
		resp.Route = appendOnce(resp.Route, e.selfID)
		return resp

	default:
		return wire.MessageResponse{Status: StatusFailed, Route: msg.Route}
	}
}

func containsNode(route []string, id string) bool {
	for _, r := range route {
		if r == id {
			return true
		}
	}
	return false
}

func appendOnce(route []string, id string) []string {
	if containsNode(route, id) {
		return append([]string(nil), route...)
	}
	return append(append([]string(nil), route...), id)
}
