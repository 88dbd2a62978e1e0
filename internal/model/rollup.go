package model

import "time"

// RouteWindowStats stores aggregated transfer metrics for one route, input
// symbol, and time window.
type RouteWindowStats struct {
	ChainIDFrom        uint64
	ChainIDTo          uint64
	Route              string
	InputSymbol        string
	WindowSizeSecs     int64
	WindowStart        time.Time
	WindowEnd          time.Time
	DepositCount       uint64
	FillCount          uint64
	FillRatePercent    string
	TotalInputAmount   string
	TotalInputUSD      *string
	AvgFeePercent      *string
	P95LatencySeconds  *uint64
	FeeTier            string
	LatencyTier        string
	UniqueDepositors   uint64
	UniqueRelayers     uint64
	TopRelayerShare    *string
	RelayerHHI         *string
	LowConfidenceCount uint64
}

// SettlementWindowStats stores aggregated refund settlement metrics for one
// chain, token symbol, and time window.
type SettlementWindowStats struct {
	ChainID              uint64
	ChainName            string
	TokenSymbol          string
	WindowSizeSecs       int64
	WindowStart          time.Time
	WindowEnd            time.Time
	RefundCount          uint64
	MatchedCount         uint64
	DeferredCount        uint64
	TotalRefundAmount    string
	TotalRefundUSD       *string
	AvgSettlementSeconds *uint64
	P95SettlementSeconds *uint64
}
