package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bridgeScope/internal/config"
	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
	"bridgeScope/internal/registry"
	"bridgeScope/internal/rollup"
	"bridgeScope/internal/storage"
	"bridgeScope/internal/storage/postgres"
)

func runRollup(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRollup(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	runID := newRunID()
	logger = logger.With(zap.String("run_id", runID))

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	windowDuration, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	if windowDuration < time.Second {
		return fmt.Errorf("window must be at least 1s")
	}
	windowSeconds := uint64(windowDuration.Seconds())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopMetrics := serveMetrics(cfg.MetricsAddr, logger)
	defer stopMetrics()

	chains, err := registry.LoadChainRegistry(cfg.Chains)
	if err != nil {
		return err
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	started := time.Now().UTC()

	logger.Info("rollup start",
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("window_seconds", windowSeconds),
	)

	transfers, err := store.SelectMatchedTransfers(ctx)
	if err != nil {
		return fmt.Errorf("load matched transfers: %w", err)
	}
	refunds, err := store.SelectRefundRecords(ctx)
	if err != nil {
		return fmt.Errorf("load refund records: %w", err)
	}

	agg := rollup.NewAggregator(rollup.Config{
		WindowSeconds: windowSeconds,
		Policy: rollup.TierPolicy{
			FeeOverpriced:   cfg.FeeTierOverpriced,
			FeeHigh:         cfg.FeeTierHigh,
			FeeCompetitive:  cfg.FeeTierCompetitive,
			FeeAggressive:   cfg.FeeTierAggressive,
			LatencyCritical: cfg.LatencyCritical,
			LatencyHigh:     cfg.LatencyHigh,
			LatencyModerate: cfg.LatencyModerate,
		},
	}, chains, logger)

	for _, transfer := range transfers {
		agg.AddTransfer(transfer)
	}
	for _, refund := range refunds {
		agg.AddRefund(refund)
	}

	routeStats := agg.RouteStats()
	settlementStats := agg.SettlementStats()

	if err := store.PublishRollups(ctx, routeStats, settlementStats); err != nil {
		return fmt.Errorf("publish rollup tables: %w", err)
	}

	summary := model.RunSummary{
		RunID:      runID,
		Phase:      "rollup",
		StartedAt:  started.Format(time.RFC3339),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
		Counts: map[string]uint64{
			"transfers":          uint64(len(transfers)),
			"refund_records":     uint64(len(refunds)),
			"route_windows":      uint64(len(routeStats)),
			"settlement_windows": uint64(len(settlementStats)),
			"failed_rows":        agg.Failed(),
		},
	}
	if err := storage.WriteManifest(cfg.Manifest, summary); err != nil {
		return err
	}
	if err := store.RecordRun(ctx, summary); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	metrics.LastRunUnix.WithLabelValues("rollup").SetToCurrentTime()

	logger.Info("rollup written",
		zap.Int("route_windows", len(routeStats)),
		zap.Int("settlement_windows", len(settlementStats)),
		zap.Uint64("failed_rows", agg.Failed()),
		zap.String("manifest", cfg.Manifest),
	)
	return nil
}
