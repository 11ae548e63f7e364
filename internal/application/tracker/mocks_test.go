package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

var errStore = errors.New("store unavailable")

var t0 = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

// --- clock ---

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// --- classifier ---

// scriptedClassifier returns frames in order and repeats the last one.
type scriptedClassifier struct {
	frames []domain.FrameResult
	err    error
	panics bool
	calls  int
}

func (s *scriptedClassifier) Classify(_ context.Context, _ domain.Region) (domain.FrameResult, error) {
	s.calls++
	if s.panics {
		panic("capture device gone")
	}
	if s.err != nil {
		return domain.FrameResult{}, s.err
	}
	if len(s.frames) == 0 {
		return domain.FailedFrame("no frame"), nil
	}
	i := s.calls - 1
	if i >= len(s.frames) {
		i = len(s.frames) - 1
	}
	return s.frames[i], nil
}

func tradeFrame(text string) domain.FrameResult {
	return domain.NewFrameResult(domain.ColorGreen, 90, text)
}

// --- trade store ---

type mockTradeStore struct {
	failures int
	trades   map[string]domain.TradeRecord
	seq      int
}

func newMockTradeStore() *mockTradeStore {
	return &mockTradeStore{trades: make(map[string]domain.TradeRecord)}
}

func (m *mockTradeStore) RegisterTrade(_ context.Context, platformTradeID string, d domain.TradeDescriptor) (string, error) {
	if m.failures > 0 {
		m.failures--
		return "", errStore
	}
	m.seq++
	id := fmt.Sprintf("trade-%d", m.seq)
	m.trades[platformTradeID] = domain.TradeRecord{ID: id, PlatformTradeID: platformTradeID, TradeDescriptor: d}
	return id, nil
}

func (m *mockTradeStore) GetTrades(_ context.Context, _, _ int) ([]domain.TradeRecord, error) {
	out := make([]domain.TradeRecord, 0, len(m.trades))
	for _, r := range m.trades {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockTradeStore) GetTradeByPlatformID(_ context.Context, id string) (domain.TradeRecord, error) {
	r, ok := m.trades[id]
	if !ok {
		return domain.TradeRecord{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *mockTradeStore) CountTrades(_ context.Context) (int, error) {
	return len(m.trades), nil
}

// --- sample writer ---

type mockSampleWriter struct {
	failures int // fail this many calls before succeeding
	always   bool
	stored   []domain.ColorSample
	calls    int
}

func (m *mockSampleWriter) StoreSample(_ context.Context, _ string, s domain.ColorSample) error {
	m.calls++
	if m.always {
		return errStore
	}
	if m.failures > 0 {
		m.failures--
		return errStore
	}
	m.stored = append(m.stored, s)
	return nil
}

// --- recomputer ---

type recordingRecomputer struct {
	keys []domain.BucketKey
}

func (r *recordingRecomputer) RecomputeBucket(_ context.Context, tf string, exp int) (domain.AnalysisBucket, bool, error) {
	r.keys = append(r.keys, domain.BucketKey{Timeframe: tf, Expiration: exp})
	return domain.AnalysisBucket{Timeframe: tf, Expiration: exp}, true, nil
}

// --- notifier ---

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Publish(_ context.Context, e domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) count(kind domain.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Kind == kind {
			c++
		}
	}
	return c
}

// --- metrics ---

type countingMetrics struct {
	dropped    map[string]int
	registerKO int
	classKO    int
	stored     int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{dropped: make(map[string]int)}
}

func (m *countingMetrics) TickCompleted(time.Duration, bool) {}
func (m *countingMetrics) ClassifierFailed()                 { m.classKO++ }
func (m *countingMetrics) TradeDetected(string)              {}
func (m *countingMetrics) RegistrationFailed()               { m.registerKO++ }
func (m *countingMetrics) TradeCompleted(string)             {}
func (m *countingMetrics) SampleCollected(domain.ChartColor) {}
func (m *countingMetrics) SampleStored()                     { m.stored++ }
func (m *countingMetrics) SampleRetried()                    {}
func (m *countingMetrics) SampleDropped(reason string)       { m.dropped[reason]++ }
func (m *countingMetrics) BucketRecomputed(string, int)      {}
func (m *countingMetrics) ActiveTrades(int)                  {}

// --- logs ---

// recordHandler keeps every record at or above its level.
type recordHandler struct {
	mu      sync.Mutex
	level   slog.Level
	records []slog.Record
}

func (h *recordHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}
