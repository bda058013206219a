package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sentinel/internal/baseline"
	"sentinel/internal/broker"
	"sentinel/internal/calendar"
	"sentinel/internal/config"
	"sentinel/internal/engine"
	"sentinel/internal/ledger"
	"sentinel/internal/position"
	"sentinel/internal/report"
	"sentinel/internal/risk"
	"sentinel/internal/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zlog.Sync()
	logger := zlog.Sugar()

	hours, err := calendar.NewHours(cfg.Timezone, cfg.LunchStart, cfg.LunchEnd, cfg.MarketClose)
	if err != nil {
		logger.Fatalw("market hours error", "error", err)
	}
	now := hours.Now()

	trades, err := engine.NewTradeLog(cfg.TradeLogPath)
	if err != nil {
		logger.Fatalw("trade log error", "error", err)
	}

	purchases := ledger.New(cfg.LedgerPath)
	if err := purchases.Load(now); err != nil {
		logger.Fatalw("purchase ledger load error", "error", err)
	}

	tracker := stats.NewTracker(cfg.ATRPeriod)
	if loaded, err := tracker.LoadSnapshot(cfg.WindowPath, now); err != nil {
		logger.Warnw("window snapshot load failed", "error", err)
	} else if loaded {
		logger.Infow("window snapshot restored", "path", cfg.WindowPath)
	}

	baselines := baseline.NewStore(time.Duration(cfg.ResetHours)*time.Hour, cfg.BaselineDrift)
	if err := baselines.Load(cfg.BaselinePath); err != nil {
		logger.Warnw("baseline load failed", "error", err)
	}

	positions := position.NewStore(cfg.PositionsPath)
	if err := positions.Load(); err != nil {
		logger.Warnw("position store load failed", "error", err)
	}

	brokerClient := broker.New(broker.Options{
		APIKey:           cfg.APIKey,
		APISecret:        cfg.APISecret,
		BaseURL:          cfg.BaseURL,
		MaxAttempts:      cfg.Retry.MaxAttempts,
		BaseDelay:        cfg.Retry.BaseDelay,
		BreakerThreshold: cfg.Retry.BreakerThreshold,
		BreakerCooldown:  cfg.Retry.BreakerCooldown,
	}, logger)

	var mailer report.Mailer
	if cfg.Email.To != "" {
		mailer = report.NewSMTPMailer(cfg.Email)
	}
	reporter := report.New(cfg, brokerClient, mailer, logger)

	eng := engine.New(
		cfg,
		brokerClient,
		tracker,
		baselines,
		risk.NewGate(logger),
		purchases,
		positions,
		trades,
		hours,
		reporter,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		logger.Infow("shutdown signal received")
		cancel()
	}()

	if err := eng.Bootstrap(ctx); err != nil {
		logger.Warnw("position bootstrap failed", "error", err)
	}

	if err := eng.Run(ctx); err != nil && err != context.Canceled {
		logger.Errorw("sentinel stopped", "error", err)
		os.Exit(1)
	}
	logger.Infow("sentinel shutdown complete")
}
