package routing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solitude-labs/meshgatewayd/internal/routing"
)

func seedTable() *routing.Table {
	return routing.New([]routing.PeerSeed{
		{NodeID: "gateway-b", Address: "127.0.0.1:8002"},
		{NodeID: "gateway-c", Address: "127.0.0.1:8003"},
	})
}

func TestNewStartsUnknown(t *testing.T) {
	table := seedTable()
	entry, ok := table.Get("gateway-b")
	require.True(t, ok)
	require.Equal(t, routing.StatusUnknown, entry.Status)
	require.Nil(t, entry.LastSeen)
}

func TestListIsSortedAndStable(t *testing.T) {
	table := seedTable()
	list := table.List()
	require.Len(t, list, 2)
	require.Equal(t, "gateway-b", list[0].NodeID)
	require.Equal(t, "gateway-c", list[1].NodeID)
}

func TestSetStatusUpdatesLastSeenOnlyOnConnected(t *testing.T) {
	table := seedTable()
	now := time.Now()

	table.SetStatus("gateway-b", routing.StatusConnected, now)
	entry, _ := table.Get("gateway-b")
	require.Equal(t, routing.StatusConnected, entry.Status)
	require.NotNil(t, entry.LastSeen)
	require.WithinDuration(t, now, *entry.LastSeen, time.Millisecond)

	seenAt := *entry.LastSeen
	table.SetStatus("gateway-b", routing.StatusDisconnected, now.Add(time.Second))
	entry, _ = table.Get("gateway-b")
	require.Equal(t, routing.StatusDisconnected, entry.Status)
	require.Equal(t, seenAt, *entry.LastSeen) // unchanged on non-Connected transition
}

func TestSetStatusIgnoresUnconfiguredPeer(t *testing.T) {
	table := seedTable()
	table.SetStatus("gateway-ghost", routing.StatusConnected, time.Now())
	_, ok := table.Get("gateway-ghost")
	require.False(t, ok)
}

func TestPeerSetNeverGrows(t *testing.T) {
	table := seedTable()
	before := table.NodeIDs()
	table.SetStatus("gateway-b", routing.StatusConnected, time.Now())
	table.SetStatus("gateway-unknown-peer", routing.StatusConnected, time.Now())
	after := table.NodeIDs()
	require.Equal(t, before, after)
}

func TestConnectedPeers(t *testing.T) {
	table := seedTable()
	table.SetStatus("gateway-b", routing.StatusConnected, time.Now())
	require.Equal(t, []string{"gateway-b"}, table.ConnectedPeers())
}

func TestEmptyPeerList(t *testing.T) {
	table := routing.New(nil)
	require.Empty(t, table.List())
	require.Empty(t, table.ConnectedPeers())
}
