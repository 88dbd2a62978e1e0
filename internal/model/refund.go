package model

import "fmt"

// RefundBatch is a batched relayer refund event. Relayers and RefundAmountsRaw
// are positional parallel arrays; both must carry exactly RefundCount entries.
type RefundBatch struct {
	Timestamp            uint64   `json:"timestamp"`
	TxHash               string   `json:"tx_hash"`
	ChainID              uint64   `json:"chain_id"`
	RootBundleID         uint64   `json:"root_bundle_id"`
	LeafID               uint64   `json:"leaf_id"`
	TokenAddress         string   `json:"token_address"`
	AmountToReturnRaw    string   `json:"amount_to_return_raw,omitempty"`
	TotalRefundAmountRaw string   `json:"total_refund_amount_raw"`
	RefundCount          int      `json:"refund_count"`
	Relayers             []string `json:"relayers"`
	RefundAmountsRaw     []string `json:"refund_amounts_raw"`
	Deferred             bool     `json:"deferred,omitempty"`
}

// Aligned reports whether the parallel arrays match the declared count.
func (b RefundBatch) Aligned() bool {
	return len(b.Relayers) == b.RefundCount && len(b.RefundAmountsRaw) == b.RefundCount
}

// RefundRecord is one relayer payout expanded from a RefundBatch.
// (TxHash, LeafID, RefundIndex) is the unique key; RefundIndex is 1-based.
type RefundRecord struct {
	RefundID             string  `json:"refund_id"`
	TxHash               string  `json:"tx_hash"`
	LeafID               uint64  `json:"leaf_id"`
	RefundIndex          int     `json:"refund_index"`
	RootBundleID         uint64  `json:"root_bundle_id"`
	ChainID              uint64  `json:"chain_id"`
	Timestamp            uint64  `json:"timestamp"`
	Relayer              string  `json:"relayer"`
	TokenAddress         string  `json:"token_address"`
	TokenSymbol          string  `json:"token_symbol"`
	AmountRaw            string  `json:"amount_raw"`
	Amount               string  `json:"amount"`
	AmountUSD            *string `json:"amount_usd,omitempty"`
	LowConfidence        bool    `json:"low_confidence"`
	Deferred             bool    `json:"deferred,omitempty"`
	MatchedFillTimestamp *uint64 `json:"matched_fill_timestamp,omitempty"`
	SettlementSeconds    *uint64 `json:"settlement_seconds,omitempty"`
}

// RefundRecordID builds the unique refund identifier.
func RefundRecordID(txHash string, leafID uint64, refundIndex int) string {
	return fmt.Sprintf("%s-%d-%d", txHash, leafID, refundIndex)
}
