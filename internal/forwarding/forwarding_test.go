package forwarding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solitude-labs/meshgatewayd/internal/forwarding"
	"github.com/solitude-labs/meshgatewayd/internal/routing"
	"github.com/solitude-labs/meshgatewayd/internal/topology"
	"github.com/solitude-labs/meshgatewayd/internal/wire"
)

type fakeClient struct {
	response wire.MessageResponse
	err      error
	calls    []string
}

func (f *fakeClient) PostMessage(ctx context.Context, address string, msg wire.RelayMessage) (wire.MessageResponse, error) {
	f.calls = append(f.calls, address)
	return f.response, f.err
}

func newTable(t *testing.T, connect ...string) *routing.Table {
	table := routing.New([]routing.PeerSeed{
		{NodeID: "b", Address: "10.0.0.2:9443"},
		{NodeID: "c", Address: "10.0.0.3:9443"},
	})
	for _, id := range connect {
		table.SetStatus(id, routing.StatusConnected, time.Now())
	}
	return table
}

func TestOriginateSelfAddressed(t *testing.T) {
	table := newTable(t)
	engine := forwarding.New("a", table, topology.New(), &fakeClient{})

	resp := engine.Originate(context.Background(), "a", "hello")
	require.Equal(t, forwarding.StatusDelivered, resp.Status)
	require.Equal(t, []string{"a"}, resp.Route)
}

func TestOriginateNoRouteWithNoConnectedPeers(t *testing.T) {
	table := newTable(t)
	engine := forwarding.New("a", table, topology.New(), &fakeClient{})

	resp := engine.Originate(context.Background(), "z", "hello")
	require.Equal(t, forwarding.StatusNoRoute, resp.Status)
}

func TestOriginateForwardsToDirectPeer(t *testing.T) {
	table := newTable(t, "b")
	fake := &fakeClient{response: wire.MessageResponse{Status: forwarding.StatusDelivered, Route: []string{"a", "b"}}}
	engine := forwarding.New("a", table, topology.New(), fake)

	resp := engine.Originate(context.Background(), "b", "hi")
	require.Equal(t, forwarding.StatusDelivered, resp.Status)
	require.Equal(t, []string{"10.0.0.2:9443"}, fake.calls)
}

func TestOriginateFailedHopReturnsFailed(t *testing.T) {
	table := newTable(t, "b")
	fake := &fakeClient{err: errors.New("connection refused")}
	engine := forwarding.New("a", table, topology.New(), fake)

	resp := engine.Originate(context.Background(), "b", "hi")
	require.Equal(t, forwarding.StatusFailed, resp.Status)
}

func TestRelayDeliversWhenAddressedHere(t *testing.T) {
	table := newTable(t)
	engine := forwarding.New("b", table, topology.New(), &fakeClient{})

	msg := wire.RelayMessage{From: "a", To: "b", Content: "hi", Route: []string{"a"}}
	resp := engine.Relay(context.Background(), msg)
	require.Equal(t, forwarding.StatusDelivered, resp.Status)
	require.Equal(t, []string{"a", "b"}, resp.Route)
}

func TestRelayDetectsLoopWithoutForwarding(t *testing.T) {
	table := newTable(t, "c")
	fake := &fakeClient{}
	engine := forwarding.New("b", table, topology.New(), fake)

	msg := wire.RelayMessage{From: "a", To: "z", Content: "hi", Route: []string{"a", "b", "c"}}
	resp := engine.Relay(context.Background(), msg)
	require.Equal(t, forwarding.StatusLoopDetected, resp.Status)
	require.Equal(t, []string{"a", "b", "c", "b"}, resp.Route)
	require.Empty(t, fake.calls) // never forwarded
}

func TestRelayExtendsRouteAndForwardsOnward(t *testing.T) {
	table := newTable(t, "c")
	fake := &fakeClient{response: wire.MessageResponse{Status: forwarding.StatusDelivered, Route: []string{"a", "b", "c"}}}
	engine := forwarding.New("b", table, topology.New(), fake)

	msg := wire.RelayMessage{From: "a", To: "c", Content: "hi", Route: []string{"a"}}
	resp := engine.Relay(context.Background(), msg)
	require.Equal(t, forwarding.StatusDelivered, resp.Status)
	require.Equal(t, []string{"10.0.0.3:9443"}, fake.calls)
}

func TestOriginateMultiHopViaLSA(t *testing.T) {
	table := newTable(t, "b")
	db := topology.New()
	db.Accept(topology.LSA{NodeID: "b", Neighbors: []string{"a", "c"}, Sequence: 1})
	db.Accept(topology.LSA{NodeID: "c", Neighbors: []string{"b"}, Sequence: 1})
	fake := &fakeClient{response: wire.MessageResponse{Status: forwarding.StatusDelivered, Route: []string{"a", "b", "c"}}}
	engine := forwarding.New("a", table, db, fake)

	resp := engine.Originate(context.Background(), "c", "hi")
	require.Equal(t, forwarding.StatusDelivered, resp.Status)
	require.Equal(t, []string{"10.0.0.2:9443"}, fake.calls) // hops to b, the next hop toward c
}
