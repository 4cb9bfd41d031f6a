package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"kdj-monitor/config"
	"kdj-monitor/internal/instruments"
	"kdj-monitor/internal/kdj"
	"kdj-monitor/internal/logger"
	"kdj-monitor/internal/metrics"
	"kdj-monitor/internal/notification"
	"kdj-monitor/internal/okx"
	"kdj-monitor/internal/orchestrator"
	"kdj-monitor/internal/scheduler"
	sig "kdj-monitor/internal/signal"
	redisstore "kdj-monitor/internal/store/redis"
	sqlitestore "kdj-monitor/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[kdjmonitor] %v", err)
	}
	logger.Init("kdjmonitor", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[kdjmonitor] shutdown signal received")
		cancel()
	}()

	client := okx.NewClient(cfg.OKXBaseURL, 0)

	// ---- Instrument universe ----
	var instIDs []string
	var err error
	if cfg.InstrumentsCSV != "" {
		instIDs, err = instruments.LoadCSV(cfg.InstrumentsCSV)
	} else {
		instIDs, err = client.Instruments(ctx, cfg.InstrumentType)
	}
	if err != nil {
		log.Fatalf("[kdjmonitor] instrument universe: %v", err)
	}
	log.Printf("[kdjmonitor] watching %d instruments, bar=%s limit=%d seed=%s",
		len(instIDs), cfg.BarPeriod, cfg.CandleLimit, cfg.SeedStrategy)

	// ---- Condition table ----
	conditions, err := sig.LoadConditions(cfg.ConditionsFile)
	if err != nil {
		log.Fatalf("[kdjmonitor] %v", err)
	}

	// ---- Notifier ----
	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.WebhookURL != "" {
		notifier = notification.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookToken)
	}

	// ---- Stores (optional) ----
	deps := orchestrator.Deps{Source: client, Notifier: notifier}

	if cfg.SQLitePath != "" {
		os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
		sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			log.Printf("[kdjmonitor] WARNING: sqlite init failed: %v (continuing without row persistence)", err)
		} else {
			defer sqlWriter.Close()
			deps.Rows = sqlWriter
		}
	}
	if cfg.RedisAddr != "" {
		redisWriter, err := redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[kdjmonitor] WARNING: redis init failed: %v (continuing without latest-point publishing)", err)
		} else {
			defer redisWriter.Close()
			deps.Latest = redisWriter
		}
	}

	// ---- Metrics ----
	deps.Prom = metrics.NewMetrics()
	deps.Prom.Instruments.Set(float64(len(instIDs)))
	metrics.Serve(cfg.MetricsAddr)

	orch, err := orchestrator.New(orchestrator.Config{
		Bar:            cfg.BarPeriod,
		CandleLimit:    cfg.CandleLimit,
		RSVPeriod:      cfg.RSVPeriod,
		Seed:           kdj.SeedStrategy(cfg.SeedStrategy),
		Concurrency:    cfg.ConcurrencyCap,
		RatePerSecond:  cfg.RatePerSecond,
		ComputeWorkers: cfg.ComputeWorkers,
		Conditions:     conditions,
		LiveMode:       cfg.WSEnabled,
	}, deps)
	if err != nil {
		log.Fatalf("[kdjmonitor] %v", err)
	}

	var cycleN atomic.Int64
	runCycle := func(ctx context.Context) {
		ctx = logger.WithCycle(ctx, cycleN.Add(1))
		report := orch.RunCycle(ctx, instIDs)
		slog.Info("cycle report", append(logger.CycleAttrs(ctx),
			slog.Int("fetch_ok", report.FetchOK),
			slog.Int("fetch_failed", report.FetchFailed),
			slog.Int("computed", report.Computed),
			slog.Int("signals", len(report.Signals)),
			slog.Duration("duration", report.Duration),
		)...)
	}

	sched := scheduler.New(
		time.Duration(cfg.ScheduleIntervalSec)*time.Second,
		time.Duration(cfg.ScheduleOffsetSec)*time.Second,
	)

	if cfg.RunOnce {
		sched.RunOnceNow(ctx, runCycle)
		return
	}

	// ---- Live websocket mode ----
	if cfg.WSEnabled {
		wsClient := okx.NewWSClient(cfg.OKXWSURL)
		liveCh := make(chan okx.InstrumentCandle, 1024)
		go wsClient.Run(ctx, instIDs, cfg.BarPeriod, liveCh)
		go orch.RunLive(ctx, liveCh)
	}

	// First cycle immediately, then on schedule.
	sched.RunOnceNow(ctx, runCycle)
	sched.Run(ctx, runCycle)
	log.Println("[kdjmonitor] stopped")
}
