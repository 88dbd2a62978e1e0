package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bridgeScope/internal/model"
)

const depositsDDL = `
	CREATE TABLE %s (
		deposit_id BIGINT NOT NULL,
		origin_chain_id BIGINT NOT NULL,
		destination_chain_id BIGINT NOT NULL,
		event_ts BIGINT NOT NULL,
		tx_hash TEXT NOT NULL,
		depositor TEXT NOT NULL,
		recipient TEXT NOT NULL,
		input_token TEXT NOT NULL,
		output_token TEXT NOT NULL,
		input_amount_raw NUMERIC NOT NULL,
		output_amount_raw NUMERIC NOT NULL,
		quote_timestamp BIGINT,
		fill_deadline BIGINT,
		exclusivity_deadline BIGINT,
		PRIMARY KEY (origin_chain_id, destination_chain_id, deposit_id, tx_hash)
	)`

const fillsDDL = `
	CREATE TABLE %s (
		deposit_id BIGINT NOT NULL,
		origin_chain_id BIGINT NOT NULL,
		destination_chain_id BIGINT NOT NULL,
		event_ts BIGINT NOT NULL,
		tx_hash TEXT NOT NULL,
		relayer TEXT NOT NULL,
		depositor TEXT NOT NULL,
		recipient TEXT NOT NULL,
		input_token TEXT NOT NULL,
		output_token TEXT NOT NULL,
		input_amount_raw NUMERIC NOT NULL,
		output_amount_raw NUMERIC NOT NULL,
		repayment_chain_id BIGINT NOT NULL,
		gas_price NUMERIC,
		gas_used BIGINT,
		PRIMARY KEY (origin_chain_id, destination_chain_id, deposit_id, tx_hash)
	)`

const transfersDDL = `
	CREATE TABLE %s (
		deposit_id BIGINT NOT NULL,
		origin_chain_id BIGINT NOT NULL,
		destination_chain_id BIGINT NOT NULL,
		deposit_ts BIGINT NOT NULL,
		deposit_tx_hash TEXT NOT NULL,
		depositor TEXT NOT NULL,
		recipient TEXT NOT NULL,
		input_token TEXT NOT NULL,
		output_token TEXT NOT NULL,
		input_symbol TEXT NOT NULL,
		output_symbol TEXT NOT NULL,
		input_decimals SMALLINT NOT NULL,
		output_decimals SMALLINT NOT NULL,
		input_amount_raw NUMERIC NOT NULL,
		input_amount NUMERIC NOT NULL,
		expected_output_raw NUMERIC NOT NULL,
		expected_output NUMERIC NOT NULL,
		input_amount_usd NUMERIC,
		price_source TEXT NOT NULL,
		low_confidence BOOLEAN NOT NULL,
		is_filled BOOLEAN NOT NULL,
		fill_ts BIGINT,
		fill_tx_hash TEXT,
		relayer TEXT,
		repayment_chain_id BIGINT,
		fill_amount_raw NUMERIC,
		fill_amount NUMERIC,
		fill_amount_usd NUMERIC,
		fill_latency_seconds BIGINT,
		latency_clamped BOOLEAN NOT NULL,
		bridge_fee_nominal NUMERIC,
		bridge_fee_percent NUMERIC,
		slippage_percent NUMERIC,
		gas_cost_usd NUMERIC,
		PRIMARY KEY (origin_chain_id, destination_chain_id, deposit_id, deposit_tx_hash)
	)`

const refundsDDL = `
	CREATE TABLE %s (
		refund_id TEXT PRIMARY KEY,
		tx_hash TEXT NOT NULL,
		leaf_id BIGINT NOT NULL,
		refund_index INT NOT NULL,
		root_bundle_id BIGINT NOT NULL,
		chain_id BIGINT NOT NULL,
		event_ts BIGINT NOT NULL,
		relayer TEXT NOT NULL,
		token_address TEXT NOT NULL,
		token_symbol TEXT NOT NULL,
		amount_raw NUMERIC NOT NULL,
		amount NUMERIC NOT NULL,
		amount_usd NUMERIC,
		low_confidence BOOLEAN NOT NULL,
		deferred BOOLEAN NOT NULL,
		matched_fill_ts BIGINT,
		settlement_seconds BIGINT
	)`

// PublishCanonical swaps in the four canonical tables as one snapshot, so a
// reader never observes deposits from one run joined to fills from another.
func (s *Store) PublishCanonical(ctx context.Context, deposits []model.Deposit, fills []model.Fill, transfers []model.MatchedTransfer, refunds []model.RefundRecord) error {
	return s.publishSnapshot(ctx, []tableSpec{
		{name: "bridge_deposits", ddl: depositsDDL, queue: func(batch *pgx.Batch, table string) {
			queueDeposits(batch, table, deposits)
		}},
		{name: "bridge_fills", ddl: fillsDDL, queue: func(batch *pgx.Batch, table string) {
			queueFills(batch, table, fills)
		}},
		{name: "matched_transfers", ddl: transfersDDL, queue: func(batch *pgx.Batch, table string) {
			queueTransfers(batch, table, transfers)
		}},
		{name: "refund_records", ddl: refundsDDL, queue: func(batch *pgx.Batch, table string) {
			queueRefunds(batch, table, refunds)
		}},
	})
}

func queueDeposits(batch *pgx.Batch, table string, deposits []model.Deposit) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			deposit_id, origin_chain_id, destination_chain_id, event_ts, tx_hash,
			depositor, recipient, input_token, output_token,
			input_amount_raw, output_amount_raw,
			quote_timestamp, fill_deadline, exclusivity_deadline
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, table)
	for _, d := range deposits {
		batch.Queue(sql,
			int64(d.DepositID),
			int64(d.OriginChainID),
			int64(d.DestinationChainID),
			int64(d.Timestamp),
			d.TxHash,
			d.Depositor,
			d.Recipient,
			d.InputToken,
			d.OutputToken,
			d.InputAmountRaw,
			d.OutputAmountRaw,
			nullInt(d.QuoteTimestamp),
			nullInt(d.FillDeadline),
			nullInt(d.ExclusivityDeadline),
		)
	}
}

func queueFills(batch *pgx.Batch, table string, fills []model.Fill) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			deposit_id, origin_chain_id, destination_chain_id, event_ts, tx_hash,
			relayer, depositor, recipient, input_token, output_token,
			input_amount_raw, output_amount_raw,
			repayment_chain_id, gas_price, gas_used
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, table)
	for _, f := range fills {
		batch.Queue(sql,
			int64(f.DepositID),
			int64(f.OriginChainID),
			int64(f.DestinationChainID),
			int64(f.Timestamp),
			f.TxHash,
			f.Relayer,
			f.Depositor,
			f.Recipient,
			f.InputToken,
			f.OutputToken,
			f.InputAmountRaw,
			f.OutputAmountRaw,
			int64(f.RepaymentChainID),
			nullString(f.GasPrice),
			nullInt(f.GasUsed),
		)
	}
}

func queueTransfers(batch *pgx.Batch, table string, transfers []model.MatchedTransfer) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			deposit_id, origin_chain_id, destination_chain_id, deposit_ts, deposit_tx_hash,
			depositor, recipient, input_token, output_token, input_symbol, output_symbol,
			input_decimals, output_decimals,
			input_amount_raw, input_amount, expected_output_raw, expected_output,
			input_amount_usd, price_source, low_confidence,
			is_filled, fill_ts, fill_tx_hash, relayer, repayment_chain_id,
			fill_amount_raw, fill_amount, fill_amount_usd,
			fill_latency_seconds, latency_clamped,
			bridge_fee_nominal, bridge_fee_percent, slippage_percent, gas_cost_usd
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
			$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34
		)
	`, table)
	for _, t := range transfers {
		batch.Queue(sql,
			int64(t.DepositID),
			int64(t.OriginChainID),
			int64(t.DestinationChainID),
			int64(t.DepositTimestamp),
			t.DepositTxHash,
			t.Depositor,
			t.Recipient,
			t.InputToken,
			t.OutputToken,
			t.InputSymbol,
			t.OutputSymbol,
			int16(t.InputDecimals),
			int16(t.OutputDecimals),
			t.InputAmountRaw,
			t.InputAmount,
			t.ExpectedOutputRaw,
			t.ExpectedOutput,
			t.InputAmountUSD,
			t.PriceSource,
			t.LowConfidence,
			t.IsFilled,
			t.FillTimestamp,
			t.FillTxHash,
			t.Relayer,
			t.RepaymentChainID,
			t.FillAmountRaw,
			t.FillAmount,
			t.FillAmountUSD,
			t.FillLatencySeconds,
			t.LatencyClamped,
			t.BridgeFeeNominal,
			t.BridgeFeePercent,
			t.SlippagePercent,
			t.GasCostUSD,
		)
	}
}

func queueRefunds(batch *pgx.Batch, table string, refunds []model.RefundRecord) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			refund_id, tx_hash, leaf_id, refund_index, root_bundle_id, chain_id, event_ts,
			relayer, token_address, token_symbol,
			amount_raw, amount, amount_usd,
			low_confidence, deferred, matched_fill_ts, settlement_seconds
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, table)
	for _, r := range refunds {
		batch.Queue(sql,
			r.RefundID,
			r.TxHash,
			int64(r.LeafID),
			r.RefundIndex,
			int64(r.RootBundleID),
			int64(r.ChainID),
			int64(r.Timestamp),
			r.Relayer,
			r.TokenAddress,
			r.TokenSymbol,
			r.AmountRaw,
			r.Amount,
			r.AmountUSD,
			r.LowConfidence,
			r.Deferred,
			r.MatchedFillTimestamp,
			r.SettlementSeconds,
		)
	}
}
