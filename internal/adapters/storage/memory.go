package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// MemoryStorage implementa ports.Storage en memoria.
// Se usa en tests y con storage.driver=memory; no sobrevive a un reinicio.
type MemoryStorage struct {
	mu       sync.Mutex
	now      func() time.Time
	trades   map[string]*domain.TradeRecord // id → trade
	byPlatID map[string]string              // platform id → id
	order    []string                       // ids en orden de inserción
	samples  map[string][]domain.ColorSample
	buckets  map[domain.BucketKey]domain.AnalysisBucket
	sessions []*domain.MonitoringSession
}

// NewMemoryStorage crea un store vacío.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		now:      time.Now,
		trades:   make(map[string]*domain.TradeRecord),
		byPlatID: make(map[string]string),
		samples:  make(map[string][]domain.ColorSample),
		buckets:  make(map[domain.BucketKey]domain.AnalysisBucket),
	}
}

func (m *MemoryStorage) RegisterTrade(_ context.Context, platformTradeID string, d domain.TradeDescriptor) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byPlatID[platformTradeID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	m.trades[id] = &domain.TradeRecord{ID: id, PlatformTradeID: platformTradeID, TradeDescriptor: d}
	m.byPlatID[platformTradeID] = id
	m.order = append(m.order, id)
	return id, nil
}

func (m *MemoryStorage) GetTrades(_ context.Context, limit, offset int) ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]domain.TradeRecord, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		all = append(all, *m.trades[m.order[i]])
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartTime.After(all[j].StartTime)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryStorage) GetTradeByPlatformID(_ context.Context, platformTradeID string) (domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byPlatID[platformTradeID]
	if !ok {
		return domain.TradeRecord{}, fmt.Errorf("storage.GetTradeByPlatformID: %s: %w", platformTradeID, domain.ErrNotFound)
	}
	return *m.trades[id], nil
}

func (m *MemoryStorage) CountTrades(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trades), nil
}

func (m *MemoryStorage) StoreSample(_ context.Context, tradeID string, s domain.ColorSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.trades[tradeID]; !ok {
		return fmt.Errorf("storage.StoreSample: trade %s: %w", tradeID, domain.ErrNotFound)
	}
	m.samples[tradeID] = append(m.samples[tradeID], s)
	return nil
}

func (m *MemoryStorage) GetTradeSamples(_ context.Context, tradeID string) ([]domain.ColorSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]domain.ColorSample(nil), m.samples[tradeID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeElapsed < out[j].TimeElapsed })
	return out, nil
}

func (m *MemoryStorage) SamplesNear(_ context.Context, timeframe string, offset, tolerance int) ([]domain.ColorSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.ColorSample
	for _, id := range m.order {
		if m.trades[id].Timeframe != timeframe {
			continue
		}
		for _, s := range m.samples[id] {
			if s.TimeElapsed >= offset-tolerance && s.TimeElapsed <= offset+tolerance {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (m *MemoryStorage) GetBucket(_ context.Context, timeframe string, expiration int) (domain.AnalysisBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[domain.BucketKey{Timeframe: timeframe, Expiration: expiration}]
	if !ok {
		return domain.AnalysisBucket{}, fmt.Errorf("storage.GetBucket: %s/%d: %w", timeframe, expiration, domain.ErrNotFound)
	}
	return b, nil
}

func (m *MemoryStorage) UpsertBucket(_ context.Context, b domain.AnalysisBucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[b.Key()] = b
	return nil
}

func (m *MemoryStorage) ListBuckets(_ context.Context) ([]domain.AnalysisBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.AnalysisBucket, 0, len(m.buckets))
	for _, b := range m.buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		if a.TotalSamples != b.TotalSamples {
			return a.TotalSamples > b.TotalSamples
		}
		if a.Timeframe != b.Timeframe {
			return a.Timeframe < b.Timeframe
		}
		return a.Expiration < b.Expiration
	})
	return out, nil
}

func (m *MemoryStorage) CreateSession(_ context.Context, captureConfig string) (domain.MonitoringSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	for _, s := range m.sessions {
		if s.IsActive {
			end := now
			s.IsActive = false
			s.EndTime = &end
		}
	}
	sess := &domain.MonitoringSession{
		ID:            uuid.NewString(),
		StartTime:     now,
		IsActive:      true,
		CaptureConfig: captureConfig,
	}
	m.sessions = append(m.sessions, sess)
	return *sess, nil
}

func (m *MemoryStorage) ActiveSession(_ context.Context) (domain.MonitoringSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.sessions) - 1; i >= 0; i-- {
		if m.sessions[i].IsActive {
			return *m.sessions[i], nil
		}
	}
	return domain.MonitoringSession{}, fmt.Errorf("storage.ActiveSession: %w", domain.ErrNotFound)
}

func (m *MemoryStorage) CloseSession(_ context.Context, id, detectionStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.ID == id {
			end := m.now().UTC()
			s.IsActive = false
			s.EndTime = &end
			s.DetectionStatus = detectionStatus
			return nil
		}
	}
	return fmt.Errorf("storage.CloseSession: %s: %w", id, domain.ErrNotFound)
}

func (m *MemoryStorage) Close() error { return nil }
