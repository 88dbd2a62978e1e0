package model

// Fill is a unified relayer fill event in canonical form. GasPrice is a
// decimal wei string since it can exceed int64 on high-fee chains.
type Fill struct {
	Timestamp          uint64 `json:"timestamp"`
	TxHash             string `json:"tx_hash"`
	OriginChainID      uint64 `json:"origin_chain_id"`
	DestinationChainID uint64 `json:"destination_chain_id"`
	DepositID          uint64 `json:"deposit_id"`
	Relayer            string `json:"relayer"`
	Depositor          string `json:"depositor"`
	Recipient          string `json:"recipient"`
	InputToken         string `json:"input_token"`
	OutputToken        string `json:"output_token"`
	InputAmountRaw     string `json:"input_amount_raw"`
	OutputAmountRaw    string `json:"output_amount_raw"`
	RepaymentChainID   uint64 `json:"repayment_chain_id"`
	GasPrice           string `json:"gas_price,omitempty"`
	GasUsed            uint64 `json:"gas_used,omitempty"`
}

// Key returns the transfer identity the fill claims to complete.
func (f Fill) Key() TransferKey {
	return TransferKey{
		DepositID:          f.DepositID,
		OriginChainID:      f.OriginChainID,
		DestinationChainID: f.DestinationChainID,
	}
}
