package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters and gauges, partitioned by chain and event kind where the
// cardinality stays bounded (chain ids and kinds come from fixed registries).

var (
	// Normalize phase
	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "normalize",
		Name:      "records_total",
		Help:      "Raw records read per source",
	}, []string{"chain", "kind"})

	DroppedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "normalize",
		Name:      "dropped_records_total",
		Help:      "Malformed records dropped per source",
	}, []string{"chain", "kind", "reason"})

	// Reconcile phase
	UnresolvedTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "reconcile",
		Name:      "unresolved_tokens_total",
		Help:      "Token lookups with no registry entry",
	}, []string{"chain"})

	FallbackRescalesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "reconcile",
		Name:      "fallback_rescales_total",
		Help:      "Amounts rescaled with the 18-decimal fallback",
	})

	DuplicateFillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "reconcile",
		Name:      "duplicate_fills_total",
		Help:      "Deposit keys with more than one candidate fill",
	})

	MalformedBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "reconcile",
		Name:      "malformed_batches_total",
		Help:      "Refund batches rejected for parallel-array misalignment",
	}, []string{"chain"})

	MissingPriceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "reconcile",
		Name:      "missing_price_total",
		Help:      "USD conversions skipped for lack of an hourly price bucket",
	}, []string{"symbol"})

	MatchedTransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "reconcile",
		Name:      "matched_transfers_total",
		Help:      "Matched transfer rows produced, by fill outcome",
	}, []string{"filled"})

	NegativeFeesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "reconcile",
		Name:      "negative_fees_total",
		Help:      "Matched transfers with a negative bridge fee",
	})

	// Rollup phase
	RouteWindowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "rollup",
		Name:      "route_windows_total",
		Help:      "Route window rows produced",
	})

	SettlementWindowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "rollup",
		Name:      "settlement_windows_total",
		Help:      "Settlement window rows produced",
	})

	// Postgres store
	RowsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "postgres",
		Name:      "rows_published_total",
		Help:      "Rows written into snapshot tables",
	}, []string{"table"})

	// Whole-run
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reconciler",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Wall time per pipeline stage",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	LastRunUnix = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reconciler",
		Subsystem: "pipeline",
		Name:      "last_run_unix",
		Help:      "Unix timestamp of the last completed run per phase",
	}, []string{"phase"})
)
