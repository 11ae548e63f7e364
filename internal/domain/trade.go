package domain

import (
	"strings"
	"time"
)

// TradeType es la dirección de la opción binaria.
type TradeType string

const (
	TradeCall TradeType = "CALL"
	TradePut  TradeType = "PUT"
)

// defaultDurationSeconds se usa para cualquier label que no esté en la tabla.
const defaultDurationSeconds = 60

// durationTable mapea el label del timeframe del chart a su duración en segundos.
// Acepta tanto la forma corta de la plataforma ("1m") como la larga ("1min").
var durationTable = map[string]int{
	"30s":   30,
	"30sec": 30,
	"1m":    60,
	"1min":  60,
	"2m":    120,
	"2min":  120,
	"3m":    180,
	"3min":  180,
	"5m":    300,
	"5min":  300,
	"10m":   600,
	"10min": 600,
	"15m":   900,
	"15min": 900,
	"30m":   1800,
	"30min": 1800,
	"1h":    3600,
	"4h":    14400,
}

// DurationSeconds devuelve la duración nominal de un label de timeframe.
// La tabla es total: labels desconocidos (o vacíos) valen 60 segundos.
func DurationSeconds(label string) int {
	if secs, ok := durationTable[strings.ToLower(strings.TrimSpace(label))]; ok {
		return secs
	}
	return defaultDurationSeconds
}

// KnownDuration indica si el label tiene entrada propia en la tabla.
func KnownDuration(label string) bool {
	_, ok := durationTable[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// TradeDescriptor es lo que se persiste de un trade al registrarlo.
type TradeDescriptor struct {
	Asset           string
	TradeType       TradeType
	Timeframe       string
	DurationSeconds int
	Amount          float64
	StartTime       time.Time
	IsDemo          bool
}

// TradeRecord es un trade ya registrado en el almacenamiento durable.
type TradeRecord struct {
	ID              string
	PlatformTradeID string
	TradeDescriptor
}

// ActiveTrade es un trade en vuelo: detectado y todavía sin expirar.
type ActiveTrade struct {
	ID              string // asignado por el store; puede estar vacío hasta confirmar
	PlatformTradeID string // asset_timestamp_disambiguator, estable toda la vida del trade
	StartTime       time.Time
	DurationLabel   string
	Asset           string
	TradeType       TradeType
	Amount          float64
	Samples         []ColorSample // orden de inserción = orden cronológico
}

// DurationSeconds devuelve la duración declarada del trade.
func (t *ActiveTrade) DurationSeconds() int {
	return DurationSeconds(t.DurationLabel)
}

// ElapsedSeconds devuelve los segundos enteros transcurridos desde StartTime (floor).
// Nunca es negativo aunque el reloj retroceda.
func (t *ActiveTrade) ElapsedSeconds(now time.Time) int {
	d := now.Sub(t.StartTime)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Expired indica si el trade alcanzó su duración en el instante dado.
func (t *ActiveTrade) Expired(now time.Time) bool {
	return t.ElapsedSeconds(now) >= t.DurationSeconds()
}

// LastSample devuelve el último sample recogido, si hay alguno.
func (t *ActiveTrade) LastSample() (ColorSample, bool) {
	if len(t.Samples) == 0 {
		return ColorSample{}, false
	}
	return t.Samples[len(t.Samples)-1], true
}

// AppendSample añade un sample manteniendo TimeElapsed no decreciente.
// Devuelve el sample tal como quedó guardado.
func (t *ActiveTrade) AppendSample(s ColorSample) ColorSample {
	if last, ok := t.LastSample(); ok && s.TimeElapsed < last.TimeElapsed {
		s.TimeElapsed = last.TimeElapsed
	}
	t.Samples = append(t.Samples, s)
	return s
}

// Descriptor construye el descriptor persistible del trade.
func (t *ActiveTrade) Descriptor(isDemo bool) TradeDescriptor {
	return TradeDescriptor{
		Asset:           t.Asset,
		TradeType:       t.TradeType,
		Timeframe:       t.DurationLabel,
		DurationSeconds: t.DurationSeconds(),
		Amount:          t.Amount,
		StartTime:       t.StartTime,
		IsDemo:          isDemo,
	}
}

// Summary resume los samples de un trade al retirarlo.
func (t *ActiveTrade) Summary() TradeSummary {
	s := TradeSummary{
		PlatformTradeID: t.PlatformTradeID,
		TradeID:         t.ID,
		Asset:           t.Asset,
		Timeframe:       t.DurationLabel,
		Samples:         len(t.Samples),
	}
	for _, sample := range t.Samples {
		switch sample.Color {
		case ColorGreen:
			s.GreenSamples++
		case ColorRed:
			s.RedSamples++
		}
	}
	if last, ok := t.LastSample(); ok {
		s.FinalColor = last.Color
	} else {
		s.FinalColor = ColorNeutral
	}
	return s
}

// TradeSummary es el payload de un trade_completed.
type TradeSummary struct {
	PlatformTradeID string     `json:"platformTradeId"`
	TradeID         string     `json:"tradeId"`
	Asset           string     `json:"asset"`
	Timeframe       string     `json:"timeframe"`
	Samples         int        `json:"samples"`
	GreenSamples    int        `json:"greenSamples"`
	RedSamples      int        `json:"redSamples"`
	FinalColor      ChartColor `json:"finalColor"`
}
