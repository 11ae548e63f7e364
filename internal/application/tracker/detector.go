package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// CooldownScope selects how the new-trade debounce is keyed.
type CooldownScope string

const (
	// CooldownGlobal uses one timestamp for every asset: detection is
	// serialized across assets.
	CooldownGlobal CooldownScope = "global"
	// CooldownPair keeps one timestamp per (asset, timeframe).
	CooldownPair CooldownScope = "pair"
)

// Candidate is a trade the detector decided to declare.
type Candidate struct {
	Asset     string
	Timeframe string
	TradeType domain.TradeType
	Amount    float64
}

type pairKey struct {
	asset     string
	timeframe string
}

// Detector applies the new-trade policy: debounce, visible timer, known
// asset/timeframe and no active trade with the same pair.
type Detector struct {
	cooldown   time.Duration
	scope      CooldownScope
	lastCheck  time.Time
	pairChecks map[pairKey]time.Time
}

// NewDetector creates a detector. An unknown scope falls back to global.
func NewDetector(cooldown time.Duration, scope CooldownScope) *Detector {
	if scope != CooldownPair {
		scope = CooldownGlobal
	}
	return &Detector{
		cooldown:   cooldown,
		scope:      scope,
		pairChecks: make(map[pairKey]time.Time),
	}
}

// Check runs one new-trade check at now. It returns false while the debounce
// window is open or when any condition fails.
func (d *Detector) Check(now time.Time, frame domain.FrameResult, active *Registry) (Candidate, bool) {
	if d.scope == CooldownGlobal {
		if !d.lastCheck.IsZero() && now.Sub(d.lastCheck) < d.cooldown {
			return Candidate{}, false
		}
		d.lastCheck = now
	}

	if !frame.OK() {
		return Candidate{}, false
	}
	f := frame.Fields
	if f.Asset == "" || f.Timeframe == "" {
		return Candidate{}, false
	}

	if d.scope == CooldownPair {
		key := pairKey{asset: f.Asset, timeframe: f.Timeframe}
		if last, ok := d.pairChecks[key]; ok && now.Sub(last) < d.cooldown {
			return Candidate{}, false
		}
		d.pairChecks[key] = now
		d.prune(now)
	}

	if !f.TimerVisible {
		return Candidate{}, false
	}
	if active.HasPair(f.Asset, f.Timeframe) {
		return Candidate{}, false
	}

	return Candidate{
		Asset:     f.Asset,
		Timeframe: f.Timeframe,
		TradeType: f.TradeType,
		Amount:    f.Amount,
	}, true
}

// prune forgets pair cooldowns that already expired.
func (d *Detector) prune(now time.Time) {
	for k, t := range d.pairChecks {
		if now.Sub(t) >= d.cooldown {
			delete(d.pairChecks, k)
		}
	}
}

var assetReplacer = strings.NewReplacer("/", "", " ", "-")

// NewPlatformTradeID builds the natural key asset_millis_disambiguator.
// The random suffix tolerates the same asset/timeframe showing up twice in the
// same millisecond.
func NewPlatformTradeID(asset string, at time.Time) string {
	return fmt.Sprintf("%s_%d_%s", assetReplacer.Replace(asset), at.UnixMilli(), uuid.NewString()[:8])
}
