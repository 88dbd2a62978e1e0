package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bridgeScope/internal/model"
)

const routeStatsDDL = `
	CREATE TABLE %s (
		window_start TIMESTAMPTZ NOT NULL,
		window_end TIMESTAMPTZ NOT NULL,
		window_size_seconds BIGINT NOT NULL,
		chain_id_from BIGINT NOT NULL,
		chain_id_to BIGINT NOT NULL,
		route TEXT NOT NULL,
		input_symbol TEXT NOT NULL,
		deposit_count BIGINT NOT NULL,
		fill_count BIGINT NOT NULL,
		fill_rate_percent NUMERIC NOT NULL,
		total_input_amount NUMERIC NOT NULL,
		total_input_usd NUMERIC,
		avg_fee_percent NUMERIC,
		p95_latency_seconds BIGINT,
		fee_tier TEXT NOT NULL,
		latency_tier TEXT NOT NULL,
		unique_depositors BIGINT NOT NULL,
		unique_relayers BIGINT NOT NULL,
		top_relayer_share NUMERIC,
		relayer_hhi NUMERIC,
		low_confidence_count BIGINT NOT NULL,
		PRIMARY KEY (window_start, window_size_seconds, chain_id_from, chain_id_to, input_symbol)
	)`

const settlementStatsDDL = `
	CREATE TABLE %s (
		window_start TIMESTAMPTZ NOT NULL,
		window_end TIMESTAMPTZ NOT NULL,
		window_size_seconds BIGINT NOT NULL,
		chain_id BIGINT NOT NULL,
		chain_name TEXT NOT NULL,
		token_symbol TEXT NOT NULL,
		refund_count BIGINT NOT NULL,
		matched_count BIGINT NOT NULL,
		deferred_count BIGINT NOT NULL,
		total_refund_amount NUMERIC NOT NULL,
		total_refund_usd NUMERIC,
		avg_settlement_seconds BIGINT,
		p95_settlement_seconds BIGINT,
		PRIMARY KEY (window_start, window_size_seconds, chain_id, token_symbol)
	)`

// PublishRollups swaps in both rollup tables as one snapshot.
func (s *Store) PublishRollups(ctx context.Context, routes []model.RouteWindowStats, settlements []model.SettlementWindowStats) error {
	return s.publishSnapshot(ctx, []tableSpec{
		{name: "route_window_stats", ddl: routeStatsDDL, queue: func(batch *pgx.Batch, table string) {
			queueRouteStats(batch, table, routes)
		}},
		{name: "settlement_window_stats", ddl: settlementStatsDDL, queue: func(batch *pgx.Batch, table string) {
			queueSettlementStats(batch, table, settlements)
		}},
	})
}

func queueRouteStats(batch *pgx.Batch, table string, routes []model.RouteWindowStats) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			window_start, window_end, window_size_seconds, chain_id_from, chain_id_to,
			route, input_symbol, deposit_count, fill_count, fill_rate_percent,
			total_input_amount, total_input_usd, avg_fee_percent, p95_latency_seconds,
			fee_tier, latency_tier, unique_depositors, unique_relayers,
			top_relayer_share, relayer_hhi, low_confidence_count
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
		)
	`, table)
	for _, r := range routes {
		batch.Queue(sql,
			r.WindowStart,
			r.WindowEnd,
			r.WindowSizeSecs,
			int64(r.ChainIDFrom),
			int64(r.ChainIDTo),
			r.Route,
			r.InputSymbol,
			int64(r.DepositCount),
			int64(r.FillCount),
			r.FillRatePercent,
			r.TotalInputAmount,
			r.TotalInputUSD,
			r.AvgFeePercent,
			r.P95LatencySeconds,
			r.FeeTier,
			r.LatencyTier,
			int64(r.UniqueDepositors),
			int64(r.UniqueRelayers),
			r.TopRelayerShare,
			r.RelayerHHI,
			int64(r.LowConfidenceCount),
		)
	}
}

func queueSettlementStats(batch *pgx.Batch, table string, settlements []model.SettlementWindowStats) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			window_start, window_end, window_size_seconds, chain_id, chain_name,
			token_symbol, refund_count, matched_count, deferred_count,
			total_refund_amount, total_refund_usd,
			avg_settlement_seconds, p95_settlement_seconds
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, table)
	for _, s := range settlements {
		batch.Queue(sql,
			s.WindowStart,
			s.WindowEnd,
			s.WindowSizeSecs,
			int64(s.ChainID),
			s.ChainName,
			s.TokenSymbol,
			int64(s.RefundCount),
			int64(s.MatchedCount),
			int64(s.DeferredCount),
			s.TotalRefundAmount,
			s.TotalRefundUSD,
			s.AvgSettlementSeconds,
			s.P95SettlementSeconds,
		)
	}
}
