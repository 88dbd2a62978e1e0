package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bridgeScope/internal/config"
	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
	"bridgeScope/internal/reconcile"
	"bridgeScope/internal/registry"
	"bridgeScope/internal/storage"
	"bridgeScope/internal/storage/postgres"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReconcile(cfgFile, cmd.Flags())
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopMetrics := serveMetrics(cfg.MetricsAddr, logger)
	defer stopMetrics()

	chains, err := registry.LoadChainRegistry(cfg.Chains)
	if err != nil {
		return err
	}
	tokens, err := registry.LoadTokenRegistry(cfg.Tokens)
	if err != nil {
		return err
	}
	stables := cfg.StableSymbols
	if len(stables) == 0 {
		stables = registry.DefaultStableSymbols()
	}
	prices, err := registry.LoadPriceBook(cfg.Prices, stables)
	if err != nil {
		return err
	}

	deposits, err := storage.ReadAll[model.Deposit](cfg.Deposits)
	if err != nil {
		return err
	}
	fills, err := storage.ReadAll[model.Fill](cfg.Fills)
	if err != nil {
		return err
	}
	batches, err := storage.ReadAll[model.RefundBatch](cfg.Refunds)
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

	logger.Info("reconcile start",
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("deposits", len(deposits)),
		zap.Int("fills", len(fills)),
		zap.Int("refund_batches", len(batches)),
		zap.Duration("lookback", cfg.Lookback),
		zap.Int("workers", cfg.Workers),
		zap.Int("price_symbols", prices.Symbols()),
	)

	engine := reconcile.NewEngine(chains, tokens, prices, cfg.Lookback, cfg.Workers, logger)
	result, err := engine.Run(ctx, deposits, fills, batches)
	if err != nil {
		return err
	}

	if err := store.PublishCanonical(ctx, deposits, fills, result.Transfers, result.RefundRecords); err != nil {
		return fmt.Errorf("publish canonical tables: %w", err)
	}

	if cfg.ExportDir != "" {
		if err := storage.WriteAll(filepath.Join(cfg.ExportDir, "matched_transfers.jsonl"), result.Transfers); err != nil {
			return err
		}
		if err := storage.WriteAll(filepath.Join(cfg.ExportDir, "refund_records.jsonl"), result.RefundRecords); err != nil {
			return err
		}
	}

	if cfg.ReportsDir != "" {
		if err := storage.WriteAll(filepath.Join(cfg.ReportsDir, "unresolved_tokens.jsonl"), result.UnresolvedTokens); err != nil {
			return err
		}
		if err := storage.WriteAll(filepath.Join(cfg.ReportsDir, "duplicate_fills.jsonl"), result.Duplicates); err != nil {
			return err
		}
		if err := storage.WriteAll(filepath.Join(cfg.ReportsDir, "malformed_batches.jsonl"), result.MalformedBatches); err != nil {
			return err
		}
		if err := storage.WriteAll(filepath.Join(cfg.ReportsDir, "price_coverage.jsonl"), result.PriceGaps); err != nil {
			return err
		}
	}

	summary := model.RunSummary{
		RunID:      runID,
		Phase:      "reconcile",
		StartedAt:  started.Format(time.RFC3339),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
		Counts:     result.Counts,
	}
	if err := storage.WriteManifest(cfg.Manifest, summary); err != nil {
		return err
	}
	if err := store.RecordRun(ctx, summary); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	metrics.LastRunUnix.WithLabelValues("reconcile").SetToCurrentTime()

	logger.Info("reconcile written",
		zap.Uint64("transfers", result.Counts["transfers"]),
		zap.Uint64("refund_records", result.Counts["refund_records"]),
		zap.Uint64("duplicate_fills", result.Counts["duplicate_fills"]),
		zap.Uint64("malformed_batches", result.Counts["malformed_batches"]),
		zap.String("manifest", cfg.Manifest),
	)
	return nil
}
