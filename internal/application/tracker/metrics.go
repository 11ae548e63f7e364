package tracker

import (
	"time"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// Metrics receives tracker counters. The Prometheus implementation lives in
// internal/adapters/metrics.
type Metrics interface {
	TickCompleted(d time.Duration, failed bool)
	ClassifierFailed()
	TradeDetected(timeframe string)
	RegistrationFailed()
	TradeCompleted(timeframe string)
	SampleCollected(color domain.ChartColor)
	SampleStored()
	SampleRetried()
	SampleDropped(reason string)
	BucketRecomputed(timeframe string, expiration int)
	ActiveTrades(n int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) TickCompleted(time.Duration, bool) {}
func (NopMetrics) ClassifierFailed()                 {}
func (NopMetrics) TradeDetected(string)              {}
func (NopMetrics) RegistrationFailed()               {}
func (NopMetrics) TradeCompleted(string)             {}
func (NopMetrics) SampleCollected(domain.ChartColor) {}
func (NopMetrics) SampleStored()                     {}
func (NopMetrics) SampleRetried()                    {}
func (NopMetrics) SampleDropped(string)              {}
func (NopMetrics) BucketRecomputed(string, int)      {}
func (NopMetrics) ActiveTrades(int)                  {}
