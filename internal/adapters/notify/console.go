package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// Console implementa ports.Notifier escribiendo una línea por evento.
type Console struct {
	out     io.Writer
	verbose bool // incluye status_update y sample_collected
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(verbose bool) *Console {
	return &Console{out: os.Stdout, verbose: verbose}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, verbose bool) *Console {
	return &Console{out: w, verbose: verbose}
}

// Publish imprime el evento en formato compacto.
func (c *Console) Publish(_ context.Context, e domain.Event) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	now := ts.Format("15:04:05")

	switch p := e.Payload.(type) {
	case domain.TradeDetectedPayload:
		fmt.Fprintf(c.out, "[%s] ▶ %s %s %s%s (%ds) id=%s\n",
			now, p.Asset, p.Timeframe, tradeTypeLabel(p.TradeType), amountLabel(p.Amount),
			p.DurationSeconds, p.PlatformTradeID)

	case domain.SampleCollectedPayload:
		if !c.verbose {
			return nil
		}
		fmt.Fprintf(c.out, "[%s]   %s t+%ds %s %.0f%%\n",
			now, p.PlatformTradeID, p.Sample.TimeElapsed, colorIcon(p.Sample.Color), p.Sample.Confidence)

	case domain.TradeSummary:
		fmt.Fprintf(c.out, "[%s] ■ %s %s samples:%d G:%d R:%d final:%s\n",
			now, p.Asset, p.Timeframe, p.Samples, p.GreenSamples, p.RedSamples, colorIcon(p.FinalColor))

	case domain.AnalysisBucket:
		fmt.Fprintf(c.out, "[%s] Σ %s @%ds win:%.1f%% n:%d %s/%s\n",
			now, p.Timeframe, p.Expiration, p.WinRate, p.TotalSamples, p.Confidence, p.Status)

	case domain.CaptureStatus:
		if !c.verbose {
			return nil
		}
		fmt.Fprintf(c.out, "[%s] · chart:%s timer:%s %s active:%d detected:%d fails:%d\n",
			now, check(p.ChartDetection), check(p.TimerDetection), colorIcon(p.ChartColor),
			p.ActiveTradeCount, p.TradesDetected, p.ConsecutiveFails)

	default:
		if !c.verbose {
			return nil
		}
		fmt.Fprintf(c.out, "[%s] %s %v\n", now, e.Kind, e.Payload)
	}
	return nil
}

func colorIcon(c domain.ChartColor) string {
	switch c {
	case domain.ColorGreen:
		return "GREEN"
	case domain.ColorRed:
		return "RED"
	default:
		return "NEUTRAL"
	}
}

func tradeTypeLabel(t domain.TradeType) string {
	if t == "" {
		return "?"
	}
	return string(t)
}

func amountLabel(a float64) string {
	if a <= 0 {
		return ""
	}
	return fmt.Sprintf(" $%.2f", a)
}

func check(b bool) string {
	if b {
		return "ok"
	}
	return "--"
}

// compactName recorta s a n caracteres.
func compactName(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
