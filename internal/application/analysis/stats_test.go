package analysis_test

import (
	"testing"

	"github.com/alejandrodnm/tradewatch/internal/application/analysis"
	"github.com/alejandrodnm/tradewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bucket(tf string, exp int, rate float64, n int, tier domain.ConfidenceTier) domain.AnalysisBucket {
	return domain.AnalysisBucket{Timeframe: tf, Expiration: exp, WinRate: rate, TotalSamples: n, Confidence: tier}
}

func TestCalculateStats_NoTrades(t *testing.T) {
	s := analysis.CalculateStats(0, nil)
	assert.Equal(t, analysis.ActionStartTrading, s.RecommendedAction)
	assert.Equal(t, "1m", s.BestTimeframe)
	assert.Equal(t, 15, s.BestExpiration)
	assert.Zero(t, s.Confidence)
}

func TestCalculateStats_Actions(t *testing.T) {
	cases := []struct {
		name       string
		best       domain.AnalysisBucket
		action     string
		confidence int
	}{
		{"go live", bucket("5m", 30, 88, 60, domain.TierHigh), analysis.ActionGoLive, 94},
		{"continue", bucket("5m", 30, 80, 25, domain.TierMedium), analysis.ActionContinueTesting, 78},
		{"test more", bucket("5m", 30, 70, 12, domain.TierLow), analysis.ActionTestMore, 62},
		{"adjust", bucket("5m", 30, 50, 12, domain.TierLow), analysis.ActionAdjustStrategy, 45},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := analysis.CalculateStats(10, []domain.AnalysisBucket{tc.best})
			assert.Equal(t, tc.action, s.RecommendedAction)
			assert.Equal(t, tc.confidence, s.Confidence)
			assert.Equal(t, "5m", s.BestTimeframe)
			assert.Equal(t, 30, s.BestExpiration)
		})
	}
}

func TestCalculateStats_BestNeedsTenSamples(t *testing.T) {
	buckets := []domain.AnalysisBucket{
		bucket("1m", 5, 100, 3, domain.TierLow),
		bucket("1m", 30, 70, 10, domain.TierLow),
	}
	s := analysis.CalculateStats(5, buckets)
	assert.Equal(t, 30, s.BestExpiration)
	// (100*3 + 70*10) / 13 = 76.92
	assert.InDelta(t, 76.9, s.CurrentWinRate, 0.0001)
}

func TestExpirationPerformance(t *testing.T) {
	rows := analysis.ExpirationPerformance([]domain.AnalysisBucket{
		bucket("1m", 30, 80, 20, domain.TierMedium),
		bucket("5m", 30, 10, 20, domain.TierLow),
	}, "1m")

	require.Len(t, rows, len(domain.CheckpointOffsets))
	assert.Equal(t, "5sec", rows[0].Label)
	assert.Equal(t, "30sec", rows[3].Label)
	assert.InDelta(t, 80.0, rows[3].WinRate, 0.0001)
	assert.Equal(t, 20, rows[3].Samples)
	assert.Equal(t, "1min", rows[5].Label)
	assert.Zero(t, rows[5].Samples)
}

func TestTimeframePerformance(t *testing.T) {
	rows := analysis.TimeframePerformance([]domain.AnalysisBucket{
		bucket("5m", 10, 60, 10, domain.TierLow),
		bucket("5m", 30, 90, 30, domain.TierMedium),
	})

	require.Len(t, rows, len(analysis.DashboardTimeframes))
	assert.Equal(t, "5m", rows[1].Label)
	assert.InDelta(t, 82.5, rows[1].WinRate, 0.0001)
	assert.Equal(t, 40, rows[1].Samples)
	assert.Zero(t, rows[0].Samples)
}
