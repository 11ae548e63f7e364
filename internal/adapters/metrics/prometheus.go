package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

// Recorder implements tracker.Metrics using Prometheus.
type Recorder struct {
	ticks              *prometheus.CounterVec
	tickDuration       prometheus.Histogram
	classifierFailures prometheus.Counter
	tradesDetected     *prometheus.CounterVec
	registrationFails  prometheus.Counter
	tradesCompleted    *prometheus.CounterVec
	samplesCollected   *prometheus.CounterVec
	samplesStored      prometheus.Counter
	samplesRetried     prometheus.Counter
	samplesDropped     *prometheus.CounterVec
	bucketsRecomputed  *prometheus.CounterVec
	activeTrades       prometheus.Gauge
}

// New registers the tracker metrics on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_ticks_total",
				Help: "Total number of tracker ticks by result",
			},
			[]string{"result"},
		),
		tickDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tradewatch_tick_duration_seconds",
				Help:    "Duration of one capture-classify-update tick",
				Buckets: prometheus.DefBuckets,
			},
		),
		classifierFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tradewatch_classifier_failures_total",
				Help: "Classifier calls replaced by a neutral frame",
			},
		),
		tradesDetected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_trades_detected_total",
				Help: "Trades registered and added to the active registry",
			},
			[]string{"timeframe"},
		),
		registrationFails: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tradewatch_trade_registration_failures_total",
				Help: "Detected trades dropped because the store did not assign an id",
			},
		),
		tradesCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_trades_completed_total",
				Help: "Trades retired after reaching their duration",
			},
			[]string{"timeframe"},
		),
		samplesCollected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_samples_collected_total",
				Help: "Color samples appended to active trades",
			},
			[]string{"color"},
		),
		samplesStored: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tradewatch_samples_stored_total",
				Help: "Color samples persisted",
			},
		),
		samplesRetried: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tradewatch_samples_retried_total",
				Help: "Failed sample writes left queued for another attempt",
			},
		),
		samplesDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_samples_dropped_total",
				Help: "Color samples never persisted",
			},
			[]string{"reason"},
		),
		bucketsRecomputed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradewatch_buckets_recomputed_total",
				Help: "Analysis bucket recomputations",
			},
			[]string{"timeframe", "expiration"},
		),
		activeTrades: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradewatch_active_trades",
				Help: "Trades currently in flight",
			},
		),
	}
}

func (r *Recorder) TickCompleted(d time.Duration, failed bool) {
	result := "ok"
	if failed {
		result = "error"
	}
	r.ticks.WithLabelValues(result).Inc()
	r.tickDuration.Observe(d.Seconds())
}

func (r *Recorder) ClassifierFailed() { r.classifierFailures.Inc() }

func (r *Recorder) TradeDetected(timeframe string) {
	r.tradesDetected.WithLabelValues(timeframe).Inc()
}

func (r *Recorder) RegistrationFailed() { r.registrationFails.Inc() }

func (r *Recorder) TradeCompleted(timeframe string) {
	r.tradesCompleted.WithLabelValues(timeframe).Inc()
}

func (r *Recorder) SampleCollected(color domain.ChartColor) {
	r.samplesCollected.WithLabelValues(string(color)).Inc()
}

func (r *Recorder) SampleStored()  { r.samplesStored.Inc() }
func (r *Recorder) SampleRetried() { r.samplesRetried.Inc() }

func (r *Recorder) SampleDropped(reason string) {
	r.samplesDropped.WithLabelValues(reason).Inc()
}

func (r *Recorder) BucketRecomputed(timeframe string, expiration int) {
	r.bucketsRecomputed.WithLabelValues(timeframe, strconv.Itoa(expiration)).Inc()
}

func (r *Recorder) ActiveTrades(n int) { r.activeTrades.Set(float64(n)) }
