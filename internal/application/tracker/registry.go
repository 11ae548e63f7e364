package tracker

import "github.com/alejandrodnm/tradewatch/internal/domain"

// Registry is the set of trades currently in flight, keyed by platform trade id.
//
// It is not safe for concurrent use: only the tick goroutine touches it, and
// ticks never overlap.
type Registry struct {
	trades map[string]*domain.ActiveTrade
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{trades: make(map[string]*domain.ActiveTrade)}
}

// Insert adds the trade, silently replacing any trade with the same key.
// Uniqueness is the caller's job.
func (r *Registry) Insert(t *domain.ActiveTrade) {
	r.trades[t.PlatformTradeID] = t
}

// Get returns the trade with the given platform trade id.
func (r *Registry) Get(platformTradeID string) (*domain.ActiveTrade, bool) {
	t, ok := r.trades[platformTradeID]
	return t, ok
}

// Remove deletes the trade and reports whether it was present.
func (r *Registry) Remove(platformTradeID string) bool {
	if _, ok := r.trades[platformTradeID]; !ok {
		return false
	}
	delete(r.trades, platformTradeID)
	return true
}

// Snapshot returns the active trades in undefined order.
// Removing entries while iterating the snapshot is safe.
func (r *Registry) Snapshot() []*domain.ActiveTrade {
	out := make([]*domain.ActiveTrade, 0, len(r.trades))
	for _, t := range r.trades {
		out = append(out, t)
	}
	return out
}

// Len returns the number of active trades.
func (r *Registry) Len() int {
	return len(r.trades)
}

// HasPair reports whether an active trade already tracks this asset/timeframe.
func (r *Registry) HasPair(asset, timeframe string) bool {
	for _, t := range r.trades {
		if t.Asset == asset && t.DurationLabel == timeframe {
			return true
		}
	}
	return false
}
