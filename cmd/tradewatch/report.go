package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/tradewatch/internal/adapters/notify"
	"github.com/alejandrodnm/tradewatch/internal/application/analysis"
	"github.com/alejandrodnm/tradewatch/internal/ports"
)

const recentTradesInReport = 10

func runReport(ctx context.Context, store ports.Storage, agg *analysis.Aggregator, console *notify.Console, rebuild bool) error {
	if rebuild {
		timeframes, err := storedTimeframes(ctx, store)
		if err != nil {
			return err
		}
		updated, err := agg.RecomputeTimeframes(ctx, timeframes)
		if err != nil {
			return fmt.Errorf("runReport: rebuild: %w", err)
		}
		slog.Info("buckets rebuilt", "timeframes", len(timeframes), "updated", updated)
	}

	buckets, err := store.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("runReport: buckets: %w", err)
	}
	count, err := store.CountTrades(ctx)
	if err != nil {
		return fmt.Errorf("runReport: count: %w", err)
	}
	recent, err := store.GetTrades(ctx, recentTradesInReport, 0)
	if err != nil {
		return fmt.Errorf("runReport: trades: %w", err)
	}

	stats := analysis.CalculateStats(count, buckets)
	console.PrintReport(notify.ReportInput{
		Stats:        stats,
		Buckets:      buckets,
		Timeframes:   analysis.TimeframePerformance(buckets),
		Expirations:  analysis.ExpirationPerformance(buckets, stats.BestTimeframe),
		RecentTrades: recent,
	})
	return nil
}

// storedTimeframes devuelve los timeframes distintos de todos los trades.
func storedTimeframes(ctx context.Context, store ports.TradeStore) ([]string, error) {
	trades, err := store.GetTrades(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("storedTimeframes: %w", err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, t := range trades {
		if !seen[t.Timeframe] {
			seen[t.Timeframe] = true
			out = append(out, t.Timeframe)
		}
	}
	return out, nil
}
