package model

// DroppedRecord records a raw event rejected by the normalizer.
type DroppedRecord struct {
	ChainID uint64 `json:"chain_id"`
	Kind    string `json:"kind"`
	TxHash  string `json:"tx_hash,omitempty"`
	Field   string `json:"field,omitempty"`
	Error   string `json:"error"`
}

// DuplicateFill records more than one fill claiming the same transfer key.
type DuplicateFill struct {
	DepositID          uint64   `json:"deposit_id"`
	OriginChainID      uint64   `json:"origin_chain_id"`
	DestinationChainID uint64   `json:"destination_chain_id"`
	FillCount          int      `json:"fill_count"`
	TxHashes           []string `json:"tx_hashes"`
}

// MalformedBatch records a refund batch whose parallel arrays disagree
// with the declared refund count.
type MalformedBatch struct {
	ChainID      uint64 `json:"chain_id"`
	TxHash       string `json:"tx_hash"`
	RootBundleID uint64 `json:"root_bundle_id"`
	LeafID       uint64 `json:"leaf_id"`
	RefundCount  int    `json:"refund_count"`
	RelayerLen   int    `json:"relayer_len"`
	AmountLen    int    `json:"amount_len"`
	Error        string `json:"error"`
}

// UnresolvedToken records a token address with no registry match.
type UnresolvedToken struct {
	ChainID     uint64 `json:"chain_id"`
	Address     string `json:"address"`
	Occurrences uint64 `json:"occurrences"`
}

// PriceGap records a token hour bucket with activity but no price data.
type PriceGap struct {
	Symbol      string `json:"symbol"`
	HourBucket  uint64 `json:"hour_bucket"`
	Occurrences uint64 `json:"occurrences"`
}
