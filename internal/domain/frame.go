package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Region es el rectángulo de interés dentro del frame capturado (en píxeles).
type Region struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// IsZero indica si la región no fue configurada.
func (r Region) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// DefaultRegion cubre la décima parte superior del frame, donde las plataformas
// muestran el indicador del trade activo.
func DefaultRegion(frameWidth, frameHeight int) Region {
	return Region{X: 0, Y: 0, Width: frameWidth, Height: frameHeight / 10}
}

// FrameStatus es la etiqueta del tagged union FrameResult.
type FrameStatus string

const (
	FrameOK     FrameStatus = "ok"
	FrameFailed FrameStatus = "failed"
)

// ExtractedFields son los campos parseados del texto OCR del frame.
// Campos vacíos significan "no se encontró", nunca "valor cero válido".
type ExtractedFields struct {
	Asset        string    `json:"asset,omitempty"`
	Timeframe    string    `json:"timeframe,omitempty"`
	TimerVisible bool      `json:"timerVisible"`
	Remaining    string    `json:"remaining,omitempty"` // "mm:ss" tal como aparece
	Amount       float64   `json:"amount,omitempty"`
	HasAmount    bool      `json:"hasAmount"`
	TradeType    TradeType `json:"tradeType,omitempty"`
}

// FrameResult es la salida del clasificador para un tick.
// Solo un resultado OK lleva color, confianza y campos; un resultado fallido
// siempre es neutral con confianza 0.
type FrameResult struct {
	Status     FrameStatus     `json:"status"`
	Color      ChartColor      `json:"dominantColor"`
	Confidence float64         `json:"confidence"`
	Text       string          `json:"extractedText,omitempty"`
	Fields     ExtractedFields `json:"fields"`
	Reason     string          `json:"reason,omitempty"`
}

// NewFrameResult construye un resultado OK normalizando color y confianza
// y parseando los campos del texto extraído.
func NewFrameResult(color ChartColor, confidence float64, text string) FrameResult {
	switch color {
	case ColorGreen, ColorRed, ColorNeutral:
	default:
		color = ColorNeutral
	}
	return FrameResult{
		Status:     FrameOK,
		Color:      color,
		Confidence: clampConfidence(confidence),
		Text:       text,
		Fields:     ParseExtractedText(text),
	}
}

// FailedFrame es el resultado por defecto cuando la captura o el análisis fallan.
func FailedFrame(reason string) FrameResult {
	return FrameResult{
		Status:     FrameFailed,
		Color:      ColorNeutral,
		Confidence: 0,
		Reason:     reason,
	}
}

// OK indica si el resultado trae datos utilizables.
func (r FrameResult) OK() bool {
	return r.Status == FrameOK
}

// Sample construye el ColorSample de este frame para un trade.
func (r FrameResult) Sample(elapsed int, at time.Time) ColorSample {
	return ColorSample{
		TimeElapsed: elapsed,
		Color:       r.Color,
		Confidence:  r.Confidence,
		Timestamp:   at,
	}
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}

var (
	timerRe     = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	assetRe     = regexp.MustCompile(`\b([A-Z]{3,5})\s?/\s?([A-Z]{3,5})(\s+OTC)?\b`)
	timeframeRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s?(sec|min|s|m|h)\b`)
	platformTF  = regexp.MustCompile(`\b([SMH])(\d{1,2})\b`)
	amountRe    = regexp.MustCompile(`\$\s?(\d+(?:[.,]\d{1,2})?)`)
	tradeTypeRe = regexp.MustCompile(`(?i)\b(CALL|PUT|UP|DOWN|BUY|SELL|HIGHER|LOWER)\b`)
)

// ParseExtractedText saca los campos estructurados del texto OCR.
// Es best-effort: lo que no matchea queda vacío.
func ParseExtractedText(text string) ExtractedFields {
	var f ExtractedFields
	if strings.TrimSpace(text) == "" {
		return f
	}

	if m := timerRe.FindString(text); m != "" {
		f.TimerVisible = true
		f.Remaining = m
	}

	if m := assetRe.FindStringSubmatch(text); m != nil {
		f.Asset = m[1] + "/" + m[2]
		if m[3] != "" {
			f.Asset += " OTC"
		}
	}

	if m := timeframeRe.FindStringSubmatch(text); m != nil {
		f.Timeframe = normalizeTimeframe(m[1], m[2])
	} else if m := platformTF.FindStringSubmatch(text); m != nil {
		f.Timeframe = normalizeTimeframe(m[2], m[1])
	}

	if m := amountRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			f.Amount = v
			f.HasAmount = true
		}
	}

	if m := tradeTypeRe.FindStringSubmatch(text); m != nil {
		switch strings.ToUpper(m[1]) {
		case "CALL", "UP", "BUY", "HIGHER":
			f.TradeType = TradeCall
		default:
			f.TradeType = TradePut
		}
	}

	return f
}

// normalizeTimeframe convierte "30"+"sec" o "5"+"M" en "30s" / "5m".
func normalizeTimeframe(n, unit string) string {
	num, err := strconv.Atoi(n)
	if err != nil || num <= 0 {
		return ""
	}
	switch strings.ToLower(unit) {
	case "s", "sec":
		return strconv.Itoa(num) + "s"
	case "m", "min":
		return strconv.Itoa(num) + "m"
	case "h":
		return strconv.Itoa(num) + "h"
	}
	return ""
}
