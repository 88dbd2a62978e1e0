package postgres

import (
	"context"

	"bridgeScope/internal/model"
)

// NUMERIC columns are cast to text so amounts round-trip as the exact decimal
// strings the reconcile phase rendered.

// SelectMatchedTransfers loads matched_transfers in canonical order.
func (s *Store) SelectMatchedTransfers(ctx context.Context) ([]model.MatchedTransfer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			deposit_id, origin_chain_id, destination_chain_id, deposit_ts, deposit_tx_hash,
			depositor, recipient, input_token, output_token, input_symbol, output_symbol,
			input_decimals, output_decimals,
			input_amount_raw::text, input_amount::text,
			expected_output_raw::text, expected_output::text,
			input_amount_usd::text, price_source, low_confidence,
			is_filled, fill_ts, fill_tx_hash, relayer, repayment_chain_id,
			fill_amount_raw::text, fill_amount::text, fill_amount_usd::text,
			fill_latency_seconds, latency_clamped,
			bridge_fee_nominal::text, bridge_fee_percent::text, slippage_percent::text,
			gas_cost_usd::text
		FROM matched_transfers
		ORDER BY origin_chain_id, destination_chain_id, deposit_id, deposit_tx_hash
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []model.MatchedTransfer
	for rows.Next() {
		var t model.MatchedTransfer
		if err := rows.Scan(
			&t.DepositID, &t.OriginChainID, &t.DestinationChainID, &t.DepositTimestamp, &t.DepositTxHash,
			&t.Depositor, &t.Recipient, &t.InputToken, &t.OutputToken, &t.InputSymbol, &t.OutputSymbol,
			&t.InputDecimals, &t.OutputDecimals,
			&t.InputAmountRaw, &t.InputAmount,
			&t.ExpectedOutputRaw, &t.ExpectedOutput,
			&t.InputAmountUSD, &t.PriceSource, &t.LowConfidence,
			&t.IsFilled, &t.FillTimestamp, &t.FillTxHash, &t.Relayer, &t.RepaymentChainID,
			&t.FillAmountRaw, &t.FillAmount, &t.FillAmountUSD,
			&t.FillLatencySeconds, &t.LatencyClamped,
			&t.BridgeFeeNominal, &t.BridgeFeePercent, &t.SlippagePercent,
			&t.GasCostUSD,
		); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// SelectRefundRecords loads refund_records in canonical order.
func (s *Store) SelectRefundRecords(ctx context.Context) ([]model.RefundRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			refund_id, tx_hash, leaf_id, refund_index, root_bundle_id, chain_id, event_ts,
			relayer, token_address, token_symbol,
			amount_raw::text, amount::text, amount_usd::text,
			low_confidence, deferred, matched_fill_ts, settlement_seconds
		FROM refund_records
		ORDER BY tx_hash, leaf_id, refund_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []model.RefundRecord
	for rows.Next() {
		var r model.RefundRecord
		if err := rows.Scan(
			&r.RefundID, &r.TxHash, &r.LeafID, &r.RefundIndex, &r.RootBundleID, &r.ChainID, &r.Timestamp,
			&r.Relayer, &r.TokenAddress, &r.TokenSymbol,
			&r.AmountRaw, &r.Amount, &r.AmountUSD,
			&r.LowConfidence, &r.Deferred, &r.MatchedFillTimestamp, &r.SettlementSeconds,
		); err != nil {
			return nil, err
		}
		refunds = append(refunds, r)
	}
	return refunds, rows.Err()
}
