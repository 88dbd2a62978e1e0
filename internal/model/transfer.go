package model

// MatchedTransfer joins zero-or-one Fill onto exactly one Deposit. When
// IsFilled is false every fill-derived pointer is nil, never zero.
type MatchedTransfer struct {
	DepositID          uint64 `json:"deposit_id"`
	OriginChainID      uint64 `json:"origin_chain_id"`
	DestinationChainID uint64 `json:"destination_chain_id"`
	DepositTimestamp   uint64 `json:"deposit_timestamp"`
	DepositTxHash      string `json:"deposit_tx_hash"`
	Depositor          string `json:"depositor"`
	Recipient          string `json:"recipient"`
	InputToken         string `json:"input_token"`
	OutputToken        string `json:"output_token"`
	InputSymbol        string `json:"input_symbol"`
	OutputSymbol       string `json:"output_symbol"`
	InputDecimals      uint8  `json:"input_decimals"`
	OutputDecimals     uint8  `json:"output_decimals"`
	InputAmountRaw     string `json:"input_amount_raw"`
	InputAmount        string `json:"input_amount"`
	ExpectedOutputRaw  string `json:"expected_output_raw"`
	ExpectedOutput     string `json:"expected_output"`

	InputAmountUSD *string `json:"input_amount_usd,omitempty"`
	PriceSource    string  `json:"price_source,omitempty"`
	LowConfidence  bool    `json:"low_confidence"`

	IsFilled           bool    `json:"is_filled"`
	FillTimestamp      *uint64 `json:"fill_timestamp,omitempty"`
	FillTxHash         *string `json:"fill_tx_hash,omitempty"`
	Relayer            *string `json:"relayer,omitempty"`
	RepaymentChainID   *uint64 `json:"repayment_chain_id,omitempty"`
	FillAmountRaw      *string `json:"fill_amount_raw,omitempty"`
	FillAmount         *string `json:"fill_amount,omitempty"`
	FillAmountUSD      *string `json:"fill_amount_usd,omitempty"`
	FillLatencySeconds *uint64 `json:"fill_latency_seconds,omitempty"`
	LatencyClamped     bool    `json:"latency_clamped,omitempty"`
	BridgeFeeNominal   *string `json:"bridge_fee_nominal,omitempty"`
	BridgeFeePercent   *string `json:"bridge_fee_percent,omitempty"`
	SlippagePercent    *string `json:"slippage_percent,omitempty"`
	GasCostUSD         *string `json:"gas_cost_usd,omitempty"`
}

// Key returns the transfer identity of the underlying deposit.
func (m MatchedTransfer) Key() TransferKey {
	return TransferKey{
		DepositID:          m.DepositID,
		OriginChainID:      m.OriginChainID,
		DestinationChainID: m.DestinationChainID,
	}
}
