package domain

import (
	"math"
	"time"
)

// ConfidenceTier es la etiqueta de fiabilidad de un bucket.
// No es un intervalo de confianza estadístico: solo tamaño de muestra + win rate.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// BucketStatus es la recomendación derivada de un bucket.
type BucketStatus string

const (
	StatusRecommended BucketStatus = "recommended"
	StatusGood        BucketStatus = "good"
	StatusTesting     BucketStatus = "testing"
	StatusAvoid       BucketStatus = "avoid"
)

const (
	// ExpirationTolerance es la ventana ± en segundos alrededor del offset.
	// Los ticks no caen en segundos exactos.
	ExpirationTolerance = 2

	highMinSamples   = 50
	highMinWinRate   = 80.0
	mediumMinSamples = 20
	mediumMinWinRate = 70.0

	recommendedMinWinRate = 85.0
	goodMinWinRate        = 75.0
	testingMinWinRate     = 65.0
)

// CheckpointOffsets son los únicos offsets que disparan un recompute.
var CheckpointOffsets = []int{5, 10, 15, 30, 45, 60}

// IsCheckpoint indica si elapsed coincide exactamente con un offset canónico.
func IsCheckpoint(elapsed int) bool {
	for _, o := range CheckpointOffsets {
		if o == elapsed {
			return true
		}
	}
	return false
}

// WithinTolerance indica si un sample en elapsed cuenta para el bucket offset.
func WithinTolerance(elapsed, offset int) bool {
	d := elapsed - offset
	if d < 0 {
		d = -d
	}
	return d <= ExpirationTolerance
}

// BucketKey identifica un bucket de análisis.
type BucketKey struct {
	Timeframe  string
	Expiration int // segundos
}

// AnalysisBucket es la estadística agregada para un (timeframe, expiration).
type AnalysisBucket struct {
	Timeframe    string         `json:"timeframe"`
	Expiration   int            `json:"expiration"`
	WinRate      float64        `json:"winRate"` // porcentaje, redondeado a 1 decimal
	TotalSamples int            `json:"totalTrades"`
	Confidence   ConfidenceTier `json:"confidence"`
	Status       BucketStatus   `json:"status"`
	LastUpdated  time.Time      `json:"lastUpdated"`
	IsDemo       bool           `json:"isDemo"`
}

// Key devuelve la clave del bucket.
func (b AnalysisBucket) Key() BucketKey {
	return BucketKey{Timeframe: b.Timeframe, Expiration: b.Expiration}
}

// ClassifyTier calcula el tier a partir del nº de samples y el win rate.
func ClassifyTier(samples int, winRate float64) ConfidenceTier {
	switch {
	case samples >= highMinSamples && winRate >= highMinWinRate:
		return TierHigh
	case samples >= mediumMinSamples && winRate >= mediumMinWinRate:
		return TierMedium
	default:
		return TierLow
	}
}

// ClassifyStatus calcula la recomendación a partir del win rate y el tier.
func ClassifyStatus(winRate float64, tier ConfidenceTier) BucketStatus {
	switch {
	case winRate >= recommendedMinWinRate && tier == TierHigh:
		return StatusRecommended
	case winRate >= goodMinWinRate:
		return StatusGood
	case winRate >= testingMinWinRate:
		return StatusTesting
	default:
		return StatusAvoid
	}
}

// ComputeBucket recalcula un bucket desde la población completa de samples.
// Devuelve false si no hay samples (el win rate no está definido).
//
// Tier y status se calculan sobre el win rate sin redondear; el valor guardado
// se redondea a un decimal.
func ComputeBucket(key BucketKey, samples []ColorSample, now time.Time, isDemo bool) (AnalysisBucket, bool) {
	if len(samples) == 0 {
		return AnalysisBucket{}, false
	}
	wins := 0
	for _, s := range samples {
		if s.IsWin() {
			wins++
		}
	}
	winRate := float64(wins) / float64(len(samples)) * 100
	tier := ClassifyTier(len(samples), winRate)

	return AnalysisBucket{
		Timeframe:    key.Timeframe,
		Expiration:   key.Expiration,
		WinRate:      Round1(winRate),
		TotalSamples: len(samples),
		Confidence:   tier,
		Status:       ClassifyStatus(winRate, tier),
		LastUpdated:  now,
		IsDemo:       isDemo,
	}, true
}

// Round1 redondea a un decimal.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
