package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tradewatch/internal/adapters/metrics"
	"github.com/alejandrodnm/tradewatch/internal/application/tracker"
	"github.com/alejandrodnm/tradewatch/internal/domain"
)

var _ tracker.Metrics = (*metrics.Recorder)(nil)

func TestRecorder_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.New(reg)

	r.TickCompleted(20*time.Millisecond, false)
	r.TickCompleted(5*time.Millisecond, true)
	r.TradeDetected("1m")
	r.TradeCompleted("1m")
	r.SampleCollected(domain.ColorGreen)
	r.SampleCollected(domain.ColorGreen)
	r.SampleDropped(tracker.DropQueueFull)
	r.BucketRecomputed("1m", 30)
	r.ActiveTrades(3)

	count, err := testutil.GatherAndCount(reg, "tradewatch_ticks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per result")

	expected := `
# HELP tradewatch_samples_collected_total Color samples appended to active trades
# TYPE tradewatch_samples_collected_total counter
tradewatch_samples_collected_total{color="green"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tradewatch_samples_collected_total"))

	expected = `
# HELP tradewatch_active_trades Trades currently in flight
# TYPE tradewatch_active_trades gauge
tradewatch_active_trades 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tradewatch_active_trades"))

	expected = `
# HELP tradewatch_buckets_recomputed_total Analysis bucket recomputations
# TYPE tradewatch_buckets_recomputed_total counter
tradewatch_buckets_recomputed_total{expiration="30",timeframe="1m"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tradewatch_buckets_recomputed_total"))
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	// Registering twice on different registries must not panic.
	assert.NotPanics(t, func() {
		metrics.New(prometheus.NewRegistry())
		metrics.New(prometheus.NewRegistry())
	})
}
