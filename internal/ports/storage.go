package ports

import (
	"context"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// TradeStore asigna ids durables a los trades detectados.
type TradeStore interface {
	// RegisterTrade persiste el trade y devuelve su id durable.
	// El trade no entra al registry hasta que esta llamada vuelve sin error.
	RegisterTrade(ctx context.Context, platformTradeID string, d domain.TradeDescriptor) (string, error)

	// GetTrades devuelve los trades más recientes primero.
	GetTrades(ctx context.Context, limit, offset int) ([]domain.TradeRecord, error)

	// GetTradeByPlatformID devuelve domain.ErrNotFound si no existe.
	GetTradeByPlatformID(ctx context.Context, platformTradeID string) (domain.TradeRecord, error)

	CountTrades(ctx context.Context) (int, error)
}

// SampleStore persiste los samples de color y los sirve al agregador.
type SampleStore interface {
	// StoreSample es best-effort: quien llama decide si reintenta.
	StoreSample(ctx context.Context, tradeID string, s domain.ColorSample) error

	// GetTradeSamples devuelve los samples de un trade ordenados por TimeElapsed.
	GetTradeSamples(ctx context.Context, tradeID string) ([]domain.ColorSample, error)

	// SamplesNear devuelve todos los samples de trades con ese timeframe cuyo
	// TimeElapsed está a ±tolerance segundos del offset.
	SamplesNear(ctx context.Context, timeframe string, offset, tolerance int) ([]domain.ColorSample, error)
}

// BucketStore guarda los buckets de análisis por (timeframe, expiration).
type BucketStore interface {
	// GetBucket devuelve domain.ErrNotFound si el bucket no existe todavía.
	GetBucket(ctx context.Context, timeframe string, expiration int) (domain.AnalysisBucket, error)

	// UpsertBucket crea o reemplaza el bucket con la misma clave.
	UpsertBucket(ctx context.Context, b domain.AnalysisBucket) error

	// ListBuckets devuelve todos los buckets ordenados por win rate desc.
	ListBuckets(ctx context.Context) ([]domain.AnalysisBucket, error)
}

// SessionStore persiste las sesiones de monitorización (start/stop).
type SessionStore interface {
	CreateSession(ctx context.Context, captureConfig string) (domain.MonitoringSession, error)
	// ActiveSession devuelve domain.ErrNotFound si no hay sesión activa.
	ActiveSession(ctx context.Context) (domain.MonitoringSession, error)
	CloseSession(ctx context.Context, id, detectionStatus string) error
}

// Storage agrupa todos los stores que implementa un backend.
type Storage interface {
	TradeStore
	SampleStore
	BucketStore
	SessionStore

	// Close cierra la conexión limpiamente.
	Close() error
}
