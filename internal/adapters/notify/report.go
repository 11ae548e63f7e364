package notify

import (
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/tradewatch/internal/application/analysis"
	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// ReportInput agrupa los datos necesarios para imprimir el reporte de análisis.
type ReportInput struct {
	Stats        analysis.TradingStats
	Buckets      []domain.AnalysisBucket
	Timeframes   []analysis.Performance
	Expirations  []analysis.Performance // del mejor timeframe
	RecentTrades []domain.TradeRecord
}

// PrintReport imprime el resumen de win rates y recomendaciones.
func (c *Console) PrintReport(in ReportInput) {
	fmt.Fprintf(c.out, "\n╔══════════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(c.out, "║                    TRADE ANALYSIS REPORT                     ║\n")
	fmt.Fprintf(c.out, "╚══════════════════════════════════════════════════════════════╝\n\n")

	s := in.Stats
	fmt.Fprintf(c.out, "  Trades analyzed: %d\n", s.TradesAnalyzed)
	fmt.Fprintf(c.out, "  Win rate:        %.1f%%\n", s.CurrentWinRate)
	fmt.Fprintf(c.out, "  Best setup:      %s @ %ds\n", s.BestTimeframe, s.BestExpiration)
	fmt.Fprintf(c.out, "  Recommendation:  %s (%d%% confidence)\n", s.RecommendedAction, s.Confidence)

	fmt.Fprintf(c.out, "\n── BUCKETS (%d) ──\n", len(in.Buckets))
	if len(in.Buckets) == 0 {
		fmt.Fprintln(c.out, "  (none)")
	} else {
		table := tablewriter.NewWriter(c.out)
		table.Header("Timeframe", "Expiration", "Win rate", "Samples", "Tier", "Status")
		for _, b := range in.Buckets {
			table.Append(
				b.Timeframe,
				fmt.Sprintf("%ds", b.Expiration),
				fmt.Sprintf("%.1f%%", b.WinRate),
				fmt.Sprintf("%d", b.TotalSamples),
				string(b.Confidence),
				string(b.Status),
			)
		}
		table.Render()
	}

	if len(in.Timeframes) > 0 {
		fmt.Fprintln(c.out, "\n── BY TIMEFRAME ──")
		c.printPerformance("Timeframe", in.Timeframes)
	}
	if len(in.Expirations) > 0 {
		fmt.Fprintf(c.out, "\n── BY EXPIRATION (%s) ──\n", s.BestTimeframe)
		c.printPerformance("Expiration", in.Expirations)
	}

	fmt.Fprintf(c.out, "\n── RECENT TRADES (%d) ──\n", len(in.RecentTrades))
	if len(in.RecentTrades) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}
	fmt.Fprintf(c.out, "  %-20s %-14s %-5s %-4s %8s  %s\n", "START", "ASSET", "TF", "TYPE", "AMOUNT", "ID")
	for _, t := range in.RecentTrades {
		fmt.Fprintf(c.out, "  %-20s %-14s %-5s %-4s %8.2f  %s\n",
			t.StartTime.Format("2006-01-02 15:04:05"),
			compactName(t.Asset, 14),
			t.Timeframe,
			tradeTypeLabel(t.TradeType),
			t.Amount,
			t.PlatformTradeID,
		)
	}
}

func (c *Console) printPerformance(label string, rows []analysis.Performance) {
	table := tablewriter.NewWriter(c.out)
	table.Header(label, "Win rate", "Samples")
	for _, r := range rows {
		rate := "-"
		if r.Samples > 0 {
			rate = fmt.Sprintf("%.1f%%", r.WinRate)
		}
		table.Append(r.Label, rate, fmt.Sprintf("%d", r.Samples))
	}
	table.Render()
}
