package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "reconciler",
		Short:        "Cross-chain bridge transfer reconciliation pipeline",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	normalizeCmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize raw per-chain event exports into unified streams",
		RunE:  runNormalize,
	}

	normalizeCmd.Flags().String("chains", "", "chain registry JSON (empty uses the built-in set)")
	normalizeCmd.Flags().String("out-dir", "./data/normalized", "output directory for unified JSONL streams")
	normalizeCmd.Flags().String("report", "./data/reports/dropped_records.jsonl", "dropped records report JSONL")
	normalizeCmd.Flags().String("manifest", "./data/normalize_manifest.json", "run manifest path")
	normalizeCmd.Flags().Int("workers", 4, "concurrent source readers")
	normalizeCmd.Flags().String("metrics-addr", "", "metrics listen address, empty disables")
	normalizeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(normalizeCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match deposits to fills, expand refunds, publish canonical tables",
		RunE:  runReconcile,
	}

	reconcileCmd.Flags().String("deposits", "./data/normalized/deposits.jsonl", "unified deposits JSONL")
	reconcileCmd.Flags().String("fills", "./data/normalized/fills.jsonl", "unified fills JSONL")
	reconcileCmd.Flags().String("refunds", "./data/normalized/refund_batches.jsonl", "unified refund batches JSONL")
	reconcileCmd.Flags().String("chains", "", "chain registry JSON (empty uses the built-in set)")
	reconcileCmd.Flags().String("tokens", "", "token registry JSON (empty uses the built-in set)")
	reconcileCmd.Flags().String("prices", "", "hourly price JSONL (empty means no price data)")
	reconcileCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	reconcileCmd.Flags().String("export-dir", "", "optional directory for canonical JSONL exports")
	reconcileCmd.Flags().String("reports-dir", "./data/reports", "data-quality reports directory")
	reconcileCmd.Flags().Duration("lookback", 168*time.Hour, "settlement correlation lookback window")
	reconcileCmd.Flags().StringSlice("stable-symbols", nil, "symbols under the stable-parity price fallback")
	reconcileCmd.Flags().Int("workers", 4, "concurrent reconcile partitions")
	reconcileCmd.Flags().String("manifest", "./data/reconcile_manifest.json", "run manifest path")
	reconcileCmd.Flags().String("metrics-addr", "", "metrics listen address, empty disables")
	reconcileCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reconcileCmd)

	rollupCmd := &cobra.Command{
		Use:   "rollup",
		Short: "Aggregate canonical tables into route and settlement windows",
		RunE:  runRollup,
	}

	rollupCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	rollupCmd.Flags().String("chains", "", "chain registry JSON (empty uses the built-in set)")
	rollupCmd.Flags().String("window", "1h", "aggregation window (e.g. 1h, 4h, 24h)")
	rollupCmd.Flags().Float64("fee-tier-overpriced", 0.5, "avg fee percent above which a route is OVERPRICED")
	rollupCmd.Flags().Float64("fee-tier-high", 0.1, "avg fee percent above which a route is HIGH")
	rollupCmd.Flags().Float64("fee-tier-competitive", 0.02, "avg fee percent above which a route is COMPETITIVE")
	rollupCmd.Flags().Float64("fee-tier-aggressive", 0.005, "avg fee percent above which a route is AGGRESSIVE")
	rollupCmd.Flags().Uint64("latency-critical", 100, "p95 latency seconds above which a route is CRITICAL")
	rollupCmd.Flags().Uint64("latency-high", 30, "p95 latency seconds above which a route is HIGH")
	rollupCmd.Flags().Uint64("latency-moderate", 15, "p95 latency seconds above which a route is MODERATE")
	rollupCmd.Flags().String("manifest", "./data/rollup_manifest.json", "run manifest path")
	rollupCmd.Flags().String("metrics-addr", "", "metrics listen address, empty disables")
	rollupCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(rollupCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func newRunID() string {
	return uuid.NewString()
}

// serveMetrics exposes /metrics and /healthz while a phase runs. The returned
// stop function shuts the listener down; an empty addr disables serving.
func serveMetrics(addr string, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
