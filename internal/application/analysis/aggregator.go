package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tradewatch/internal/domain"
	"github.com/alejandrodnm/tradewatch/internal/ports"
)

// SampleSource es el subconjunto de ports.SampleStore que usa el agregador.
type SampleSource interface {
	SamplesNear(ctx context.Context, timeframe string, offset, tolerance int) ([]domain.ColorSample, error)
}

// Config controla el agregador.
type Config struct {
	IsDemo bool
	Clock  func() time.Time
}

// Aggregator recalcula buckets de win rate desde la población completa de samples.
type Aggregator struct {
	samples  SampleSource
	buckets  ports.BucketStore
	notifier ports.Notifier
	cfg      Config
}

// New crea un Aggregator. notifier puede ser nil.
func New(samples SampleSource, buckets ports.BucketStore, notifier ports.Notifier, cfg Config) *Aggregator {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Aggregator{
		samples:  samples,
		buckets:  buckets,
		notifier: notifier,
		cfg:      cfg,
	}
}

// RecomputeBucket recalcula el bucket (timeframe, expiration) y lo guarda.
// Devuelve false sin tocar el store si no hay samples dentro de la tolerancia.
// Nunca lee ni escribe otro bucket que el de la clave dada.
func (a *Aggregator) RecomputeBucket(ctx context.Context, timeframe string, expiration int) (domain.AnalysisBucket, bool, error) {
	samples, err := a.samples.SamplesNear(ctx, timeframe, expiration, domain.ExpirationTolerance)
	if err != nil {
		return domain.AnalysisBucket{}, false, fmt.Errorf("analysis.RecomputeBucket: samples %s/%ds: %w", timeframe, expiration, err)
	}

	key := domain.BucketKey{Timeframe: timeframe, Expiration: expiration}
	bucket, ok := domain.ComputeBucket(key, samples, a.cfg.Clock(), a.cfg.IsDemo)
	if !ok {
		return domain.AnalysisBucket{}, false, nil
	}

	if err := a.buckets.UpsertBucket(ctx, bucket); err != nil {
		return domain.AnalysisBucket{}, false, fmt.Errorf("analysis.RecomputeBucket: upsert %s/%ds: %w", timeframe, expiration, err)
	}

	slog.Debug("analysis: bucket recomputed",
		"timeframe", timeframe,
		"expiration", expiration,
		"win_rate", bucket.WinRate,
		"samples", bucket.TotalSamples,
		"tier", bucket.Confidence,
		"status", bucket.Status,
	)

	if a.notifier != nil {
		event := domain.Event{
			Kind:      domain.EventAnalysisUpdated,
			Timestamp: bucket.LastUpdated,
			Key:       fmt.Sprintf("%s/%d", timeframe, expiration),
			Payload:   bucket,
		}
		if err := a.notifier.Publish(ctx, event); err != nil {
			slog.Warn("analysis: notifier error", "err", err)
		}
	}
	return bucket, true, nil
}

// RecomputeTimeframes recalcula todos los checkpoints de los timeframes dados.
// Sirve para reconstruir los buckets tras un reinicio o un import.
func (a *Aggregator) RecomputeTimeframes(ctx context.Context, timeframes []string) (int, error) {
	updated := 0
	for _, tf := range timeframes {
		for _, offset := range domain.CheckpointOffsets {
			_, ok, err := a.RecomputeBucket(ctx, tf, offset)
			if err != nil {
				return updated, err
			}
			if ok {
				updated++
			}
		}
	}
	return updated, nil
}
