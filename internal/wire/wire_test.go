package wire_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solitude-labs/meshgatewayd/internal/wire"
)

func TestRFC3339FormatsInUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)

	got := wire.RFC3339(ts)
	require.Equal(t, "2026-03-01T17:00:00Z", got)
}
