package capture

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// errSimulatedCapture es el fallo de captura que inyecta el simulador.
var errSimulatedCapture = errors.New("simulated capture failure")

// SimulatedConfig controla el generador de frames.
type SimulatedConfig struct {
	Seed             int64
	TradeProbability float64 // probabilidad por frame de abrir un trade cuando no hay ninguno
	WinRate          float64 // fracción de trades que terminan en verde
	FailureRate      float64 // probabilidad por frame de fallo de captura
	Assets           []string
	Timeframes       []string
	Clock            func() time.Time
}

// DefaultSimulatedConfig devuelve la configuración por defecto del modo demo.
func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		Seed:             1,
		TradeProbability: 0.05,
		WinRate:          0.7,
		FailureRate:      0.02,
		Assets:           []string{"EUR/USD", "GBP/JPY", "AUD/CAD", "EUR/USD OTC"},
		Timeframes:       []string{"30s", "1m", "5m"},
		Clock:            time.Now,
	}
}

type simTrade struct {
	asset     string
	timeframe string
	tradeType domain.TradeType
	amount    float64
	end       time.Time
	winning   bool
}

// Simulated implementa ports.FrameClassifier sin pantalla: abre trades al azar
// y devuelve frames con timer, asset y color coherentes con ellos.
type Simulated struct {
	mu      sync.Mutex
	cfg     SimulatedConfig
	rng     *rand.Rand
	current *simTrade
}

// NewSimulated crea un simulador determinista para una semilla dada.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	d := DefaultSimulatedConfig()
	if len(cfg.Assets) == 0 {
		cfg.Assets = d.Assets
	}
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = d.Timeframes
	}
	if cfg.Clock == nil {
		cfg.Clock = d.Clock
	}
	return &Simulated{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Classify genera el frame del instante actual.
func (s *Simulated) Classify(ctx context.Context, _ domain.Region) (domain.FrameResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.FrameResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.cfg.FailureRate {
		return domain.FrameResult{}, errSimulatedCapture
	}

	now := s.cfg.Clock()
	if s.current != nil && !now.Before(s.current.end) {
		s.current = nil
	}
	if s.current == nil && s.rng.Float64() < s.cfg.TradeProbability {
		s.current = s.openTrade(now)
	}

	if s.current == nil {
		return domain.NewFrameResult(domain.ColorNeutral, 20+s.rng.Float64()*20, ""), nil
	}

	t := s.current
	remaining := t.end.Sub(now)
	text := fmt.Sprintf("%s %s %02d:%02d $%.2f %s",
		t.asset, t.timeframe,
		int(remaining.Minutes()), int(remaining.Seconds())%60,
		t.amount, t.tradeType)

	// La tendencia del trade domina, pero cada frame tiene ruido.
	color := domain.ColorRed
	if t.winning {
		color = domain.ColorGreen
	}
	if s.rng.Float64() < 0.2 {
		color = flip(color)
	}
	return domain.NewFrameResult(color, 70+s.rng.Float64()*30, text), nil
}

func (s *Simulated) openTrade(now time.Time) *simTrade {
	tf := s.cfg.Timeframes[s.rng.Intn(len(s.cfg.Timeframes))]
	tt := domain.TradeCall
	if s.rng.Intn(2) == 1 {
		tt = domain.TradePut
	}
	return &simTrade{
		asset:     s.cfg.Assets[s.rng.Intn(len(s.cfg.Assets))],
		timeframe: tf,
		tradeType: tt,
		amount:    float64(10 + s.rng.Intn(91)),
		end:       now.Add(time.Duration(domain.DurationSeconds(tf)) * time.Second),
		winning:   s.rng.Float64() < s.cfg.WinRate,
	}
}

func flip(c domain.ChartColor) domain.ChartColor {
	if c == domain.ColorGreen {
		return domain.ColorRed
	}
	return domain.ColorGreen
}
