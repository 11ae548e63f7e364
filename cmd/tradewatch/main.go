package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/tradewatch/config"
	"github.com/alejandrodnm/tradewatch/internal/adapters/metrics"
	"github.com/alejandrodnm/tradewatch/internal/adapters/notify"
	"github.com/alejandrodnm/tradewatch/internal/application/analysis"
	"github.com/alejandrodnm/tradewatch/internal/application/tracker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one tick and exit")
	report := flag.Bool("report", false, "print win-rate buckets and trading stats, then exit")
	rebuild := flag.Bool("rebuild", false, "recompute every bucket from stored samples (with -report)")
	verbose := flag.Bool("verbose", false, "set log level to debug and print every sample")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
		cfg.Notify.Verbose = true
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("tradewatch starting",
		"config", *configPath,
		"classifier", cfg.Classifier.Mode,
		"storage", cfg.Storage.Driver,
		"active_interval", cfg.ActiveInterval(),
		"idle_interval", cfg.IdleInterval(),
		"once", *once,
		"report", *report,
	)

	store, err := openStorage(cfg.Storage)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	console := notify.NewConsole(cfg.Notify.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		agg := analysis.New(store, store, nil, analysis.Config{IsDemo: cfg.IsDemo()})
		if err := runReport(ctx, store, agg, console, *rebuild); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	notifier, closeSinks, err := buildNotifier(cfg, console)
	if err != nil {
		slog.Error("failed to set up notifiers", "err", err)
		os.Exit(1)
	}
	defer closeSinks()

	classifier, err := buildClassifier(cfg.Classifier, cfg.ClassifierTimeout())
	if err != nil {
		slog.Error("failed to set up classifier", "err", err, "mode", cfg.Classifier.Mode)
		os.Exit(1)
	}

	agg := analysis.New(store, store, notifier, analysis.Config{IsDemo: cfg.IsDemo()})

	ctrl := tracker.New(trackerConfig(cfg), tracker.Deps{
		Classifier: classifier,
		Trades:     store,
		Samples:    store,
		Aggregator: agg,
		Notifier:   notifier,
		Metrics:    metrics.New(prometheus.DefaultRegisterer),
	})

	if *once {
		next := ctrl.RunTick(ctx)
		s := ctrl.Status()
		slog.Info("tick complete",
			"next", next,
			"chart_color", s.ChartColor,
			"confidence", s.Confidence,
			"active_trades", s.ActiveTradeCount,
			"pending_samples", ctrl.PendingSamples(),
		)
		return
	}

	stopMetrics := serveMetrics(cfg.Metrics.Listen)
	defer stopMetrics()

	session, err := openSession(ctx, store, ctrl)
	if err != nil {
		slog.Warn("monitoring session not recorded", "err", err)
	}

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("tracker exited with error", "err", err)
	}

	closeSession(store, session, ctrl)
	slog.Info("tradewatch stopped cleanly")
}

// serveMetrics expone /metrics si hay dirección configurada.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
