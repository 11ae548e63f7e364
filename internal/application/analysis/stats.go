package analysis

import (
	"sort"
	"strconv"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

const (
	defaultBestTimeframe  = "1m"
	defaultBestExpiration = 15
	minSamplesForBest     = 10
)

// Acciones recomendadas y su confianza asociada.
const (
	ActionStartTrading    = "Start Trading"
	ActionGoLive          = "Go Live"
	ActionContinueTesting = "Continue Testing"
	ActionTestMore        = "Test More"
	ActionAdjustStrategy  = "Adjust Strategy"
)

// DashboardTimeframes son los timeframes que se muestran en el resumen.
var DashboardTimeframes = []string{"1m", "5m", "15m", "30m"}

// TradingStats es el resumen global para el dashboard.
type TradingStats struct {
	CurrentWinRate    float64 `json:"currentWinRate"`
	BestTimeframe     string  `json:"bestTimeframe"`
	BestExpiration    int     `json:"bestExpiration"`
	TradesAnalyzed    int     `json:"tradesAnalyzed"`
	RecommendedAction string  `json:"recommendedAction"`
	Confidence        int     `json:"confidence"`
}

// Performance es una fila de rendimiento (por timeframe o por expiration).
type Performance struct {
	Label   string  `json:"label"`
	WinRate float64 `json:"winRate"`
	Samples int     `json:"samples"`
}

// CalculateStats resume los buckets en una recomendación.
//
// El win rate global es la media ponderada por samples de todos los buckets.
// El mejor bucket es el de mayor win rate con al menos 10 samples.
func CalculateStats(tradesAnalyzed int, buckets []domain.AnalysisBucket) TradingStats {
	stats := TradingStats{
		BestTimeframe:     defaultBestTimeframe,
		BestExpiration:    defaultBestExpiration,
		TradesAnalyzed:    tradesAnalyzed,
		RecommendedAction: ActionStartTrading,
	}
	if tradesAnalyzed == 0 {
		return stats
	}

	stats.CurrentWinRate = weightedWinRate(buckets)

	best, ok := bestBucket(buckets)
	if !ok {
		return stats
	}
	stats.BestTimeframe = best.Timeframe
	stats.BestExpiration = best.Expiration

	switch {
	case best.WinRate >= 85 && best.Confidence == domain.TierHigh:
		stats.RecommendedAction, stats.Confidence = ActionGoLive, 94
	case best.WinRate >= 75 && best.TotalSamples >= 20:
		stats.RecommendedAction, stats.Confidence = ActionContinueTesting, 78
	case best.WinRate >= 65:
		stats.RecommendedAction, stats.Confidence = ActionTestMore, 62
	default:
		stats.RecommendedAction, stats.Confidence = ActionAdjustStrategy, 45
	}
	return stats
}

// ExpirationPerformance devuelve una fila por checkpoint para el timeframe dado.
// Los checkpoints sin bucket salen con 0 samples.
func ExpirationPerformance(buckets []domain.AnalysisBucket, timeframe string) []Performance {
	byOffset := make(map[int]domain.AnalysisBucket)
	for _, b := range buckets {
		if b.Timeframe == timeframe {
			byOffset[b.Expiration] = b
		}
	}

	rows := make([]Performance, 0, len(domain.CheckpointOffsets))
	for _, offset := range domain.CheckpointOffsets {
		b := byOffset[offset]
		rows = append(rows, Performance{
			Label:   expirationLabel(offset),
			WinRate: b.WinRate,
			Samples: b.TotalSamples,
		})
	}
	return rows
}

// TimeframePerformance devuelve el win rate ponderado de cada timeframe del dashboard.
func TimeframePerformance(buckets []domain.AnalysisBucket) []Performance {
	byTF := make(map[string][]domain.AnalysisBucket)
	for _, b := range buckets {
		byTF[b.Timeframe] = append(byTF[b.Timeframe], b)
	}

	rows := make([]Performance, 0, len(DashboardTimeframes))
	for _, tf := range DashboardTimeframes {
		bs := byTF[tf]
		samples := 0
		for _, b := range bs {
			samples += b.TotalSamples
		}
		rows = append(rows, Performance{
			Label:   tf,
			WinRate: weightedWinRate(bs),
			Samples: samples,
		})
	}
	return rows
}

func weightedWinRate(buckets []domain.AnalysisBucket) float64 {
	total := 0
	weighted := 0.0
	for _, b := range buckets {
		total += b.TotalSamples
		weighted += b.WinRate * float64(b.TotalSamples)
	}
	if total == 0 {
		return 0
	}
	return domain.Round1(weighted / float64(total))
}

func bestBucket(buckets []domain.AnalysisBucket) (domain.AnalysisBucket, bool) {
	candidates := make([]domain.AnalysisBucket, 0, len(buckets))
	for _, b := range buckets {
		if b.TotalSamples >= minSamplesForBest {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return domain.AnalysisBucket{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].WinRate > candidates[j].WinRate
	})
	return candidates[0], true
}

func expirationLabel(seconds int) string {
	if seconds%60 == 0 {
		return strconv.Itoa(seconds/60) + "min"
	}
	return strconv.Itoa(seconds) + "sec"
}
