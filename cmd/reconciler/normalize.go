package main

import (
	"context"
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
	"bridgeScope/internal/normalize"
	"bridgeScope/internal/registry"
	"bridgeScope/internal/storage"
)

func runNormalize(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadNormalize(cfgFile, cmd.Flags())
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopMetrics := serveMetrics(cfg.MetricsAddr, logger)
	defer stopMetrics()

	chains, err := registry.LoadChainRegistry(cfg.Chains)
	if err != nil {
		return err
	}

	mappings, err := normalize.BuildMappings(cfg.Mappings)
	if err != nil {
		return err
	}

	sources := make([]normalize.Source, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		sources = append(sources, normalize.Source{ChainID: src.ChainID, Kind: src.Kind, Path: src.Path})
	}

	runner, err := normalize.NewRunner(sources, chains, mappings, cfg.Workers, logger)
	if err != nil {
		return err
	}

	started := time.Now().UTC()

	logger.Info("normalize start",
		zap.Int("sources", len(sources)),
		zap.Int("chains", chains.Size()),
		zap.String("out_dir", cfg.OutDir),
		zap.Int("workers", cfg.Workers),
	)

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if err := storage.WriteAll(filepath.Join(cfg.OutDir, "deposits.jsonl"), result.Deposits); err != nil {
		return err
	}
	if err := storage.WriteAll(filepath.Join(cfg.OutDir, "fills.jsonl"), result.Fills); err != nil {
		return err
	}
	if err := storage.WriteAll(filepath.Join(cfg.OutDir, "refund_batches.jsonl"), result.Batches); err != nil {
		return err
	}
	if err := storage.WriteAll(cfg.Report, result.Dropped); err != nil {
		return err
	}

	summary := model.RunSummary{
		RunID:      runID,
		Phase:      "normalize",
		StartedAt:  started.Format(time.RFC3339),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
		Counts: map[string]uint64{
			"sources":         uint64(len(result.Sources)),
			"deposits":        uint64(len(result.Deposits)),
			"fills":           uint64(len(result.Fills)),
			"refund_batches":  uint64(len(result.Batches)),
			"dropped_records": uint64(len(result.Dropped)),
		},
	}
	if err := storage.WriteManifest(cfg.Manifest, summary); err != nil {
		return err
	}
	metrics.LastRunUnix.WithLabelValues("normalize").SetToCurrentTime()

	logger.Info("normalize written",
		zap.Int("deposits", len(result.Deposits)),
		zap.Int("fills", len(result.Fills)),
		zap.Int("refund_batches", len(result.Batches)),
		zap.Int("dropped", len(result.Dropped)),
		zap.String("manifest", cfg.Manifest),
	)
	return nil
}
