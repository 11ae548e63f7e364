package analysis_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alejandrodnm/tradewatch/internal/application/analysis"
	"github.com/alejandrodnm/tradewatch/internal/domain"
	"github.com/alejandrodnm/tradewatch/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type tradeSample struct {
	timeframe string
	sample    domain.ColorSample
}

type mockSamples struct {
	rows []tradeSample
	err  error
}

func (m *mockSamples) add(tf string, elapsed int, c domain.ChartColor, n int) {
	for i := 0; i < n; i++ {
		m.rows = append(m.rows, tradeSample{timeframe: tf, sample: domain.ColorSample{TimeElapsed: elapsed, Color: c}})
	}
}

func (m *mockSamples) SamplesNear(_ context.Context, tf string, offset, tolerance int) ([]domain.ColorSample, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.ColorSample
	for _, r := range m.rows {
		if r.timeframe == tf && domain.WithinTolerance(r.sample.TimeElapsed, offset) {
			out = append(out, r.sample)
		}
	}
	return out, nil
}

type mockBuckets struct {
	byKey   map[domain.BucketKey]domain.AnalysisBucket
	upserts int
}

func newMockBuckets() *mockBuckets {
	return &mockBuckets{byKey: make(map[domain.BucketKey]domain.AnalysisBucket)}
}

func (m *mockBuckets) GetBucket(_ context.Context, tf string, exp int) (domain.AnalysisBucket, error) {
	b, ok := m.byKey[domain.BucketKey{Timeframe: tf, Expiration: exp}]
	if !ok {
		return domain.AnalysisBucket{}, domain.ErrNotFound
	}
	return b, nil
}

func (m *mockBuckets) UpsertBucket(_ context.Context, b domain.AnalysisBucket) error {
	m.upserts++
	m.byKey[b.Key()] = b
	return nil
}

func (m *mockBuckets) ListBuckets(_ context.Context) ([]domain.AnalysisBucket, error) {
	out := make([]domain.AnalysisBucket, 0, len(m.byKey))
	for _, b := range m.byKey {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WinRate > out[j].WinRate })
	return out, nil
}

type mockNotifier struct {
	events []domain.Event
}

func (m *mockNotifier) Publish(_ context.Context, e domain.Event) error {
	m.events = append(m.events, e)
	return nil
}

var fixedNow = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func newAggregator(s *mockSamples, b *mockBuckets, n ports.Notifier) *analysis.Aggregator {
	return analysis.New(s, b, n, analysis.Config{IsDemo: true, Clock: func() time.Time { return fixedNow }})
}

// --- tests ---

func TestAggregator_RecomputeBucket(t *testing.T) {
	s := &mockSamples{}
	s.add("1m", 30, domain.ColorGreen, 20)
	s.add("1m", 31, domain.ColorGreen, 14)
	s.add("1m", 29, domain.ColorRed, 6)
	s.add("1m", 45, domain.ColorRed, 50) // otro bucket
	s.add("5m", 30, domain.ColorRed, 50) // otro timeframe
	b := newMockBuckets()
	n := &mockNotifier{}

	bucket, ok, err := newAggregator(s, b, n).RecomputeBucket(context.Background(), "1m", 30)
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, 85.0, bucket.WinRate, 0.0001)
	assert.Equal(t, 40, bucket.TotalSamples)
	assert.Equal(t, domain.TierMedium, bucket.Confidence)
	assert.Equal(t, domain.StatusGood, bucket.Status)

	stored, err := b.GetBucket(context.Background(), "1m", 30)
	require.NoError(t, err)
	assert.Equal(t, bucket, stored)
	assert.Len(t, b.byKey, 1, "only the requested key is written")

	require.Len(t, n.events, 1)
	assert.Equal(t, domain.EventAnalysisUpdated, n.events[0].Kind)
	assert.Equal(t, "1m/30", n.events[0].Key)
}

func TestAggregator_ToleranceWindow(t *testing.T) {
	s := &mockSamples{}
	s.add("1m", 32, domain.ColorGreen, 1)
	b := newMockBuckets()
	agg := newAggregator(s, b, nil)

	// 32 cae en ±2 de 30 pero no de 15.
	_, ok, err := agg.RecomputeBucket(context.Background(), "1m", 30)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = agg.RecomputeBucket(context.Background(), "1m", 15)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = b.GetBucket(context.Background(), "1m", 15)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAggregator_NoSamplesIsNoop(t *testing.T) {
	b := newMockBuckets()
	_, ok, err := newAggregator(&mockSamples{}, b, nil).RecomputeBucket(context.Background(), "1m", 30)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, b.upserts)
}

func TestAggregator_Idempotent(t *testing.T) {
	s := &mockSamples{}
	s.add("5m", 10, domain.ColorGreen, 7)
	s.add("5m", 10, domain.ColorRed, 3)
	b := newMockBuckets()
	agg := newAggregator(s, b, nil)

	first, _, err := agg.RecomputeBucket(context.Background(), "5m", 10)
	require.NoError(t, err)
	second, _, err := agg.RecomputeBucket(context.Background(), "5m", 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, b.byKey, 1)
}

func TestAggregator_SourceError(t *testing.T) {
	s := &mockSamples{err: errors.New("db locked")}
	b := newMockBuckets()
	_, ok, err := newAggregator(s, b, nil).RecomputeBucket(context.Background(), "1m", 30)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Zero(t, b.upserts)
}

func TestAggregator_RecomputeTimeframes(t *testing.T) {
	s := &mockSamples{}
	s.add("1m", 5, domain.ColorGreen, 3)
	s.add("1m", 60, domain.ColorRed, 3)
	s.add("5m", 15, domain.ColorGreen, 3)
	b := newMockBuckets()

	n, err := newAggregator(s, b, nil).RecomputeTimeframes(context.Background(), []string{"1m", "5m"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, b.byKey, 3)
}
