package domain_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/tradewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(total, green int) []domain.ColorSample {
	out := make([]domain.ColorSample, 0, total)
	for i := 0; i < total; i++ {
		c := domain.ColorRed
		if i < green {
			c = domain.ColorGreen
		}
		out = append(out, domain.ColorSample{TimeElapsed: 30, Color: c})
	}
	return out
}

func TestComputeBucket_MediumGood(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	key := domain.BucketKey{Timeframe: "1m", Expiration: 30}

	b, ok := domain.ComputeBucket(key, samples(40, 34), now, true)
	require.True(t, ok)
	assert.InDelta(t, 85.0, b.WinRate, 0.0001)
	assert.Equal(t, 40, b.TotalSamples)
	assert.Equal(t, domain.TierMedium, b.Confidence)
	assert.Equal(t, domain.StatusGood, b.Status)
	assert.Equal(t, now, b.LastUpdated)
	assert.True(t, b.IsDemo)
	assert.Equal(t, key, b.Key())
}

func TestComputeBucket_Empty(t *testing.T) {
	_, ok := domain.ComputeBucket(domain.BucketKey{Timeframe: "1m", Expiration: 30}, nil, time.Now(), false)
	assert.False(t, ok)
}

func TestComputeBucket_NeutralCountsAsLoss(t *testing.T) {
	s := []domain.ColorSample{{Color: domain.ColorGreen}, {Color: domain.ColorNeutral}, {Color: domain.ColorRed}}
	b, ok := domain.ComputeBucket(domain.BucketKey{Timeframe: "5m", Expiration: 10}, s, time.Now(), false)
	require.True(t, ok)
	assert.InDelta(t, 33.3, b.WinRate, 0.0001)
	assert.Equal(t, domain.TierLow, b.Confidence)
	assert.Equal(t, domain.StatusAvoid, b.Status)
}

func TestClassifyTierAndStatus(t *testing.T) {
	cases := []struct {
		samples int
		rate    float64
		tier    domain.ConfidenceTier
		status  domain.BucketStatus
	}{
		{50, 85, domain.TierHigh, domain.StatusRecommended},
		{50, 80, domain.TierHigh, domain.StatusGood},
		{49, 90, domain.TierMedium, domain.StatusGood},
		{20, 70, domain.TierMedium, domain.StatusTesting},
		{19, 95, domain.TierLow, domain.StatusGood},
		{100, 65, domain.TierLow, domain.StatusTesting},
		{100, 64.9, domain.TierLow, domain.StatusAvoid},
	}
	for _, tc := range cases {
		tier := domain.ClassifyTier(tc.samples, tc.rate)
		assert.Equal(t, tc.tier, tier, "%d samples @ %.1f", tc.samples, tc.rate)
		assert.Equal(t, tc.status, domain.ClassifyStatus(tc.rate, tier), "%d samples @ %.1f", tc.samples, tc.rate)
	}
}

func TestCheckpointsAndTolerance(t *testing.T) {
	for _, o := range []int{5, 10, 15, 30, 45, 60} {
		assert.True(t, domain.IsCheckpoint(o))
	}
	assert.False(t, domain.IsCheckpoint(31))
	assert.False(t, domain.IsCheckpoint(0))

	assert.True(t, domain.WithinTolerance(32, 30))
	assert.True(t, domain.WithinTolerance(28, 30))
	assert.False(t, domain.WithinTolerance(33, 30))
	assert.False(t, domain.WithinTolerance(32, 15))
}

func TestRound1(t *testing.T) {
	assert.InDelta(t, 66.7, domain.Round1(200.0/3), 1e-9)
	assert.InDelta(t, 85.0, domain.Round1(85), 1e-9)
}
