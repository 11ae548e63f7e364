package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/tradewatch/internal/domain"
	"github.com/alejandrodnm/tradewatch/internal/ports"
)

const (
	DefaultActiveInterval    = 1500 * time.Millisecond
	DefaultIdleInterval      = 5000 * time.Millisecond
	DefaultErrorInterval     = 5000 * time.Millisecond
	DefaultDetectionCooldown = 10 * time.Second
	DefaultFrameWidth        = 1920
	DefaultFrameHeight       = 1080
)

// Config holds the tracker settings.
type Config struct {
	Region            domain.Region // zero value = top tenth of the frame
	FrameWidth        int
	FrameHeight       int
	ActiveInterval    time.Duration // next tick while trades are in flight
	IdleInterval      time.Duration // next tick with an empty registry
	ErrorInterval     time.Duration // next tick after a failed tick
	DetectionCooldown time.Duration
	CooldownScope     CooldownScope
	IsDemo            bool
	Queue             QueueConfig
	Clock             func() time.Time
}

// DefaultConfig returns the production cadence.
func DefaultConfig() Config {
	return Config{
		FrameWidth:        DefaultFrameWidth,
		FrameHeight:       DefaultFrameHeight,
		ActiveInterval:    DefaultActiveInterval,
		IdleInterval:      DefaultIdleInterval,
		ErrorInterval:     DefaultErrorInterval,
		DetectionCooldown: DefaultDetectionCooldown,
		CooldownScope:     CooldownGlobal,
		IsDemo:            true,
		Queue:             QueueConfig{Capacity: defaultQueueCapacity, MaxAttempts: defaultMaxAttempts},
		Clock:             time.Now,
	}
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.FrameWidth <= 0 {
		c.FrameWidth = d.FrameWidth
	}
	if c.FrameHeight <= 0 {
		c.FrameHeight = d.FrameHeight
	}
	if c.ActiveInterval <= 0 {
		c.ActiveInterval = d.ActiveInterval
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = d.IdleInterval
	}
	if c.ErrorInterval <= 0 {
		c.ErrorInterval = d.ErrorInterval
	}
	if c.DetectionCooldown <= 0 {
		c.DetectionCooldown = d.DetectionCooldown
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
}

// Deps are the collaborators of the controller. Aggregator, Notifier and
// Metrics are optional.
type Deps struct {
	Classifier ports.FrameClassifier
	Trades     ports.TradeStore
	Samples    SampleWriter
	Aggregator Recomputer
	Notifier   ports.Notifier
	Registry   *Registry
	Metrics    Metrics
}

// Controller runs the capture → classify → update loop.
type Controller struct {
	cfg        Config
	classifier ports.FrameClassifier
	trades     ports.TradeStore
	notifier   ports.Notifier
	registry   *Registry
	detector   *Detector
	queue      *SampleQueue
	metrics    Metrics

	tradesDetected   int
	consecutiveFails int

	mu     sync.RWMutex
	status domain.CaptureStatus
}

// New creates a Controller. A nil Registry gets a fresh one.
func New(cfg Config, deps Deps) *Controller {
	cfg.setDefaults()
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	return &Controller{
		cfg:        cfg,
		classifier: deps.Classifier,
		trades:     deps.Trades,
		notifier:   deps.Notifier,
		registry:   deps.Registry,
		detector:   NewDetector(cfg.DetectionCooldown, cfg.CooldownScope),
		queue:      NewSampleQueue(deps.Samples, deps.Aggregator, deps.Metrics, cfg.Queue),
		metrics:    deps.Metrics,
		status:     domain.CaptureStatus{ChartColor: domain.ColorNeutral},
	}
}

// Run ticks until ctx is cancelled. Cancelling only prevents the next tick:
// the tick in flight finishes on a context detached from ctx.
func (c *Controller) Run(ctx context.Context) error {
	slog.Info("tracker starting",
		"active_interval", c.cfg.ActiveInterval,
		"idle_interval", c.cfg.IdleInterval,
		"cooldown", c.cfg.DetectionCooldown,
		"cooldown_scope", c.cfg.CooldownScope,
		"region", c.Region(),
	)
	c.setActive(true)
	defer c.setActive(false)

	tickCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			slog.Info("tracker stopped")
			return nil
		}

		delay := c.RunTick(tickCtx)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("tracker stopped", "active_trades", c.registry.Len())
			return nil
		case <-timer.C:
		}
	}
}

// RunTick runs exactly one tick and returns the delay before the next one.
// Nothing escapes: failures are logged and turn into the error delay.
func (c *Controller) RunTick(ctx context.Context) (next time.Duration) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tracker: tick panicked", "panic", fmt.Sprint(r))
			c.metrics.TickCompleted(time.Since(start), true)
			next = c.cfg.ErrorInterval
		}
	}()

	if err := c.tick(ctx); err != nil {
		slog.Error("tracker: tick failed", "err", err)
		c.metrics.TickCompleted(time.Since(start), true)
		return c.cfg.ErrorInterval
	}

	c.metrics.TickCompleted(time.Since(start), false)
	return c.NextDelay()
}

// NextDelay is the adaptive cadence: fast while trades are live, slow when idle.
func (c *Controller) NextDelay() time.Duration {
	if c.registry.Len() > 0 {
		return c.cfg.ActiveInterval
	}
	return c.cfg.IdleInterval
}

// Region returns the region of interest passed to the classifier.
func (c *Controller) Region() domain.Region {
	if !c.cfg.Region.IsZero() {
		return c.cfg.Region
	}
	return domain.DefaultRegion(c.cfg.FrameWidth, c.cfg.FrameHeight)
}

// Status returns a copy of the live capture status. Safe for any goroutine.
func (c *Controller) Status() domain.CaptureStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// PendingSamples returns how many sample writes are waiting for a retry.
func (c *Controller) PendingSamples() int {
	return c.queue.Pending()
}

func (c *Controller) tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tracker.tick: %w", err)
	}

	now := c.cfg.Clock()
	frame := c.classify(ctx)

	c.detectNewTrade(ctx, now, frame)
	c.propagate(ctx, now, frame)

	res := c.queue.Drain(ctx)
	if res.Dropped > 0 || res.Retrying > 0 {
		slog.Debug("tracker: sample queue drained",
			"stored", res.Stored,
			"retrying", res.Retrying,
			"dropped", res.Dropped,
		)
	}

	c.metrics.ActiveTrades(c.registry.Len())
	status := c.updateStatus(now, frame)
	c.publish(ctx, domain.EventStatusUpdate, "", now, status)
	return nil
}

// classify never fails: any error becomes a neutral, zero-confidence frame.
func (c *Controller) classify(ctx context.Context) domain.FrameResult {
	frame, err := c.classifier.Classify(ctx, c.Region())
	if err == nil && frame.Status == "" {
		err = errors.New("classifier returned an untagged result")
	}
	if err != nil {
		c.consecutiveFails++
		c.metrics.ClassifierFailed()
		slog.Warn("tracker: classifier failed, using neutral frame",
			"consecutive", c.consecutiveFails,
			"err", err,
		)
		return domain.FailedFrame(err.Error())
	}
	c.consecutiveFails = 0
	return frame
}

// detectNewTrade declares a trade only once the store has given it a durable id.
func (c *Controller) detectNewTrade(ctx context.Context, now time.Time, frame domain.FrameResult) {
	cand, ok := c.detector.Check(now, frame, c.registry)
	if !ok {
		return
	}

	trade := &domain.ActiveTrade{
		PlatformTradeID: NewPlatformTradeID(cand.Asset, now),
		StartTime:       now,
		DurationLabel:   cand.Timeframe,
		Asset:           cand.Asset,
		TradeType:       cand.TradeType,
		Amount:          cand.Amount,
	}

	id, err := c.trades.RegisterTrade(ctx, trade.PlatformTradeID, trade.Descriptor(c.cfg.IsDemo))
	if err != nil {
		c.metrics.RegistrationFailed()
		slog.Error("tracker: trade registration failed, trade not tracked",
			"platform_trade_id", trade.PlatformTradeID,
			"asset", trade.Asset,
			"timeframe", trade.DurationLabel,
			"err", err,
		)
		return
	}
	trade.ID = id

	c.registry.Insert(trade)
	c.tradesDetected++
	c.metrics.TradeDetected(trade.DurationLabel)

	slog.Info("tracker: trade detected",
		"trade_id", trade.ID,
		"platform_trade_id", trade.PlatformTradeID,
		"asset", trade.Asset,
		"timeframe", trade.DurationLabel,
		"duration_s", trade.DurationSeconds(),
	)

	c.publish(ctx, domain.EventTradeDetected, trade.PlatformTradeID, now, domain.TradeDetectedPayload{
		TradeID:         trade.ID,
		PlatformTradeID: trade.PlatformTradeID,
		Asset:           trade.Asset,
		TradeType:       trade.TradeType,
		Timeframe:       trade.DurationLabel,
		DurationSeconds: trade.DurationSeconds(),
		Amount:          trade.Amount,
		StartTime:       trade.StartTime,
	})
}

// propagate samples every active trade, retiring the ones whose time is up.
func (c *Controller) propagate(ctx context.Context, now time.Time, frame domain.FrameResult) {
	for _, trade := range c.registry.Snapshot() {
		elapsed := trade.ElapsedSeconds(now)
		if elapsed >= trade.DurationSeconds() {
			c.retire(ctx, now, trade)
			continue
		}

		sample := trade.AppendSample(frame.Sample(elapsed, now))
		c.metrics.SampleCollected(sample.Color)
		c.queue.Submit(SampleJob{
			TradeID:         trade.ID,
			PlatformTradeID: trade.PlatformTradeID,
			Timeframe:       trade.DurationLabel,
			Sample:          sample,
		})

		c.publish(ctx, domain.EventSampleCollected, trade.PlatformTradeID, now, domain.SampleCollectedPayload{
			TradeID:         trade.ID,
			PlatformTradeID: trade.PlatformTradeID,
			Sample:          sample,
		})
	}
}

func (c *Controller) retire(ctx context.Context, now time.Time, trade *domain.ActiveTrade) {
	if !c.registry.Remove(trade.PlatformTradeID) {
		return
	}
	c.metrics.TradeCompleted(trade.DurationLabel)

	summary := trade.Summary()
	slog.Info("tracker: trade completed",
		"trade_id", trade.ID,
		"platform_trade_id", trade.PlatformTradeID,
		"samples", summary.Samples,
		"green", summary.GreenSamples,
		"red", summary.RedSamples,
		"final_color", summary.FinalColor,
	)
	c.publish(ctx, domain.EventTradeCompleted, trade.PlatformTradeID, now, summary)
}

func (c *Controller) publish(ctx context.Context, kind domain.EventKind, key string, at time.Time, payload any) {
	if c.notifier == nil {
		return
	}
	event := domain.Event{Kind: kind, Timestamp: at, Key: key, Payload: payload}
	if err := c.notifier.Publish(ctx, event); err != nil {
		slog.Warn("tracker: notifier error", "kind", kind, "err", err)
	}
}

func (c *Controller) updateStatus(now time.Time, frame domain.FrameResult) domain.CaptureStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.status
	s.ChartDetection = frame.OK()
	s.TradeDetection = c.registry.Len() > 0
	s.TimerDetection = frame.OK() && frame.Fields.TimerVisible
	s.ResultDetection = frame.OK() && frame.Color != domain.ColorNeutral
	s.LastCapture = now
	s.ChartColor = frame.Color
	s.Confidence = frame.Confidence
	if frame.Fields.Asset != "" {
		s.CurrentAsset = frame.Fields.Asset
	}
	if frame.Fields.Timeframe != "" {
		s.CurrentTimeframe = frame.Fields.Timeframe
	}
	s.ActiveTradeCount = c.registry.Len()
	s.TradesDetected = c.tradesDetected
	s.ConsecutiveFails = c.consecutiveFails
	return *s
}

func (c *Controller) setActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.IsActive = active
	if !active {
		c.status.ChartDetection = false
		c.status.TradeDetection = false
		c.status.TimerDetection = false
		c.status.ResultDetection = false
	}
}
