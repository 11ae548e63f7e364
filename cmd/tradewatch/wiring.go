package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tradewatch/config"
	"github.com/alejandrodnm/tradewatch/internal/adapters/capture"
	"github.com/alejandrodnm/tradewatch/internal/adapters/notify"
	"github.com/alejandrodnm/tradewatch/internal/adapters/storage"
	"github.com/alejandrodnm/tradewatch/internal/application/tracker"
	"github.com/alejandrodnm/tradewatch/internal/domain"
	"github.com/alejandrodnm/tradewatch/internal/ports"
)

func openStorage(cfg config.StorageConfig) (ports.Storage, error) {
	if cfg.Driver == "memory" {
		return storage.NewMemoryStorage(), nil
	}
	return storage.NewSQLiteStorage(cfg.DSN)
}

func buildClassifier(cfg config.ClassifierConfig, timeout time.Duration) (ports.FrameClassifier, error) {
	if cfg.Mode == "http" {
		return capture.NewHTTPClassifier(capture.HTTPConfig{
			Endpoint:   cfg.Endpoint,
			Timeout:    timeout,
			RatePerSec: cfg.RatePerSec,
			MaxRetries: cfg.MaxRetries,
		})
	}
	sim := capture.DefaultSimulatedConfig()
	sim.Seed = cfg.Simulated.Seed
	sim.TradeProbability = cfg.Simulated.TradeProbability
	sim.WinRate = cfg.Simulated.WinRate
	sim.FailureRate = cfg.Simulated.FailureRate
	if len(cfg.Simulated.Assets) > 0 {
		sim.Assets = cfg.Simulated.Assets
	}
	if len(cfg.Simulated.Timeframes) > 0 {
		sim.Timeframes = cfg.Simulated.Timeframes
	}
	return capture.NewSimulated(sim), nil
}

// buildNotifier arma el fan-out consola + Redis + Kafka. El cierre devuelto
// libera las conexiones de los sinks externos.
func buildNotifier(cfg *config.Config, console *notify.Console) (ports.Notifier, func(), error) {
	sinks := []ports.Notifier{console}
	var closers []func() error

	if cfg.Notify.Redis.Enabled {
		r, err := notify.NewRedis(notify.RedisConfig{
			Addr:      cfg.Notify.Redis.Addr,
			Password:  cfg.Notify.Redis.Password,
			DB:        cfg.Notify.Redis.DB,
			Prefix:    cfg.Notify.Redis.Prefix,
			StatusTTL: cfg.StatusTTL(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		sinks = append(sinks, r)
		closers = append(closers, r.Close)
	}

	if cfg.Notify.Kafka.Enabled {
		k, err := notify.NewKafka(notify.KafkaConfig{
			Brokers: cfg.Notify.Kafka.Brokers,
			Topic:   cfg.Notify.Kafka.Topic,
		})
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, nil, fmt.Errorf("kafka: %w", err)
		}
		sinks = append(sinks, k)
		closers = append(closers, k.Close)
	}

	var notifier ports.Notifier = notify.NewMulti(sinks...)
	if d := cfg.StatusInterval(); d > 0 {
		notifier = notify.NewThrottled(notifier, d)
	}

	slog.Info("notifiers ready", "sinks", len(sinks), "status_interval", cfg.StatusInterval())
	return notifier, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("notifier close failed", "err", err)
			}
		}
	}, nil
}

func trackerConfig(cfg *config.Config) tracker.Config {
	tc := tracker.DefaultConfig()
	tc.FrameWidth = cfg.Tracker.FrameWidth
	tc.FrameHeight = cfg.Tracker.FrameHeight
	tc.ActiveInterval = cfg.ActiveInterval()
	tc.IdleInterval = cfg.IdleInterval()
	tc.ErrorInterval = cfg.ErrorInterval()
	tc.DetectionCooldown = cfg.DetectionCooldown()
	tc.CooldownScope = tracker.CooldownScope(cfg.Tracker.CooldownScope)
	tc.IsDemo = cfg.IsDemo()
	tc.Queue = tracker.QueueConfig{
		Capacity:    cfg.Tracker.QueueCapacity,
		MaxAttempts: cfg.Tracker.QueueMaxAttempts,
	}
	if r := cfg.Tracker.Region; r != nil {
		tc.Region = domain.Region{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	}
	return tc
}

// openSession registra el arranque del tracker. Una sesión activa previa
// (p.ej. tras un crash) se cierra al crear la nueva.
func openSession(ctx context.Context, store ports.SessionStore, ctrl *tracker.Controller) (domain.MonitoringSession, error) {
	captureCfg, err := json.Marshal(map[string]any{"region": ctrl.Region()})
	if err != nil {
		return domain.MonitoringSession{}, fmt.Errorf("openSession: marshal: %w", err)
	}
	sess, err := store.CreateSession(ctx, string(captureCfg))
	if err != nil {
		return domain.MonitoringSession{}, fmt.Errorf("openSession: %w", err)
	}
	slog.Info("monitoring session started", "session_id", sess.ID)
	return sess, nil
}

func closeSession(store ports.SessionStore, sess domain.MonitoringSession, ctrl *tracker.Controller) {
	if sess.ID == "" {
		return
	}
	status, err := json.Marshal(ctrl.Status())
	if err != nil {
		slog.Warn("session status not serialized", "err", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.CloseSession(ctx, sess.ID, string(status)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("monitoring session not closed", "err", err, "session_id", sess.ID)
		return
	}
	slog.Info("monitoring session closed", "session_id", sess.ID)
}
