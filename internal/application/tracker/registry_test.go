package tracker_test

import (
	"testing"

	"github.com/alejandrodnm/tradewatch/internal/application/tracker"
	"github.com/alejandrodnm/tradewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTrade(id, asset, tf string) *domain.ActiveTrade {
	return &domain.ActiveTrade{
		ID:              "db-" + id,
		PlatformTradeID: id,
		StartTime:       t0,
		DurationLabel:   tf,
		Asset:           asset,
	}
}

func TestRegistry_InsertGetRemove(t *testing.T) {
	r := tracker.NewRegistry()
	r.Insert(makeTrade("a", "EUR/USD", "1m"))
	r.Insert(makeTrade("b", "GBP/JPY", "5m"))
	require.Equal(t, 2, r.Len())

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "EUR/USD", got.Asset)

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"), "second remove is a no-op")
	_, ok = r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_InsertOverwrites(t *testing.T) {
	r := tracker.NewRegistry()
	r.Insert(makeTrade("a", "EUR/USD", "1m"))
	r.Insert(makeTrade("a", "EUR/USD", "5m"))

	assert.Equal(t, 1, r.Len())
	got, _ := r.Get("a")
	assert.Equal(t, "5m", got.DurationLabel)
}

func TestRegistry_HasPair(t *testing.T) {
	r := tracker.NewRegistry()
	r.Insert(makeTrade("a", "EUR/USD", "1m"))

	assert.True(t, r.HasPair("EUR/USD", "1m"))
	assert.False(t, r.HasPair("EUR/USD", "5m"))
	assert.False(t, r.HasPair("GBP/JPY", "1m"))
}

func TestRegistry_SnapshotAllowsRemoval(t *testing.T) {
	r := tracker.NewRegistry()
	r.Insert(makeTrade("a", "EUR/USD", "1m"))
	r.Insert(makeTrade("b", "GBP/JPY", "1m"))
	r.Insert(makeTrade("c", "AUD/CAD", "1m"))

	for _, trade := range r.Snapshot() {
		r.Remove(trade.PlatformTradeID)
	}
	assert.Equal(t, 0, r.Len())
}
