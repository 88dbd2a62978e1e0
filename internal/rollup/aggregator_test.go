package rollup

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"bridgeScope/internal/model"
	"bridgeScope/internal/registry"
)

func testChains(t *testing.T) *registry.ChainRegistry {
	t.Helper()
	chains, err := registry.NewChainRegistry([]registry.Chain{
		{ChainID: 1, Name: "Ethereum", NativeSymbol: "ETH"},
		{ChainID: 42161, Name: "Arbitrum", NativeSymbol: "ETH"},
	})
	if err != nil {
		t.Fatalf("chain registry: %v", err)
	}
	return chains
}

func strPtr(s string) *string { return &s }

func u64Ptr(v uint64) *uint64 { return &v }

func filledTransfer(ts uint64, depositor, relayer, fee string, latency uint64) model.MatchedTransfer {
	return model.MatchedTransfer{
		DepositID:          1,
		OriginChainID:      42161,
		DestinationChainID: 1,
		DepositTimestamp:   ts,
		Depositor:          depositor,
		InputSymbol:        "USDC",
		InputDecimals:      6,
		InputAmount:        "100.000000",
		InputAmountUSD:     strPtr("100.00"),
		IsFilled:           true,
		Relayer:            strPtr(relayer),
		FillLatencySeconds: u64Ptr(latency),
		BridgeFeePercent:   strPtr(fee),
	}
}

func TestAggregatorRouteWindows(t *testing.T) {
	agg := NewAggregator(Config{WindowSeconds: 3600}, testChains(t), zap.NewNop())

	agg.AddTransfer(filledTransfer(7200, "0xdep1", "0xrel1", "0.100000", 10))
	agg.AddTransfer(model.MatchedTransfer{
		DepositID:          2,
		OriginChainID:      42161,
		DestinationChainID: 1,
		DepositTimestamp:   7300,
		Depositor:          "0xdep2",
		InputSymbol:        "USDC",
		InputDecimals:      6,
		InputAmount:        "50.000000",
		LowConfidence:      true,
	})
	agg.AddTransfer(filledTransfer(10800, "0xdep1", "0xrel1", "0.300000", 40))

	stats := agg.RouteStats()
	if len(stats) != 2 {
		t.Fatalf("route windows = %d, want 2", len(stats))
	}

	first := stats[0]
	if first.WindowStart != time.Unix(7200, 0).UTC() || first.WindowEnd != time.Unix(10800, 0).UTC() {
		t.Errorf("window bounds = %v..%v", first.WindowStart, first.WindowEnd)
	}
	if first.Route != "Arbitrum → Ethereum" {
		t.Errorf("route label = %q", first.Route)
	}
	if first.DepositCount != 2 || first.FillCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", first.DepositCount, first.FillCount)
	}
	if first.FillRatePercent != "50.00" {
		t.Errorf("fill rate = %q, want 50.00", first.FillRatePercent)
	}
	if first.TotalInputAmount != "150.000000" {
		t.Errorf("total input = %q, want 150.000000", first.TotalInputAmount)
	}
	if first.TotalInputUSD == nil || *first.TotalInputUSD != "100.00" {
		t.Errorf("total usd = %v, want 100.00", first.TotalInputUSD)
	}
	if first.AvgFeePercent == nil || *first.AvgFeePercent != "0.100000" {
		t.Errorf("avg fee = %v, want 0.100000", first.AvgFeePercent)
	}
	if first.FeeTier != FeeTierCompetitive {
		t.Errorf("fee tier = %q, want %q at the 0.1 boundary", first.FeeTier, FeeTierCompetitive)
	}
	if first.P95LatencySeconds == nil || *first.P95LatencySeconds != 10 {
		t.Errorf("p95 latency = %v, want 10", first.P95LatencySeconds)
	}
	if first.LatencyTier != LatencyTierHealthy {
		t.Errorf("latency tier = %q, want %q", first.LatencyTier, LatencyTierHealthy)
	}
	if first.UniqueDepositors != 2 || first.UniqueRelayers != 1 {
		t.Errorf("unique estimates = %d/%d, want 2/1", first.UniqueDepositors, first.UniqueRelayers)
	}
	if first.TopRelayerShare == nil || *first.TopRelayerShare != "100.00" {
		t.Errorf("top relayer share = %v, want 100.00", first.TopRelayerShare)
	}
	if first.RelayerHHI == nil || *first.RelayerHHI != "10000.00" {
		t.Errorf("relayer hhi = %v, want 10000.00", first.RelayerHHI)
	}
	if first.LowConfidenceCount != 1 {
		t.Errorf("low confidence = %d, want 1", first.LowConfidenceCount)
	}

	second := stats[1]
	if second.WindowStart != time.Unix(10800, 0).UTC() {
		t.Errorf("second window start = %v", second.WindowStart)
	}
	if second.DepositCount != 1 || second.FillCount != 1 {
		t.Errorf("second counts = %d/%d, want 1/1", second.DepositCount, second.FillCount)
	}
	if second.LatencyTier != LatencyTierModerate {
		t.Errorf("second latency tier = %q, want %q", second.LatencyTier, LatencyTierModerate)
	}
}

func TestAggregatorUnfilledWindow(t *testing.T) {
	agg := NewAggregator(Config{WindowSeconds: 3600}, testChains(t), zap.NewNop())
	agg.AddTransfer(model.MatchedTransfer{
		DepositID:          5,
		OriginChainID:      1,
		DestinationChainID: 42161,
		DepositTimestamp:   100,
		Depositor:          "0xdep1",
		InputSymbol:        "WETH",
		InputDecimals:      18,
		InputAmount:        "1.000000000000000000",
	})

	stats := agg.RouteStats()
	if len(stats) != 1 {
		t.Fatalf("route windows = %d, want 1", len(stats))
	}
	got := stats[0]
	if got.FeeTier != FeeTierUnknown || got.LatencyTier != LatencyTierUnknown {
		t.Errorf("tiers = %s/%s, want UNKNOWN/UNKNOWN", got.FeeTier, got.LatencyTier)
	}
	if got.TopRelayerShare != nil || got.RelayerHHI != nil {
		t.Error("concentration must be nil without fills")
	}
	if got.TotalInputUSD != nil {
		t.Error("usd total must be nil without usd rows")
	}
	if got.FillRatePercent != "0.00" {
		t.Errorf("fill rate = %q, want 0.00", got.FillRatePercent)
	}
	if got.TotalInputAmount != "1.000000000000000000" {
		t.Errorf("total input = %q", got.TotalInputAmount)
	}
}

func TestAggregatorSettlementWindows(t *testing.T) {
	agg := NewAggregator(Config{WindowSeconds: 3600}, testChains(t), zap.NewNop())

	agg.AddRefund(model.RefundRecord{
		RefundID:             "0xabc-1-1",
		ChainID:              1,
		Timestamp:            7200,
		TokenSymbol:          "USDC",
		Amount:               "100.000000",
		AmountUSD:            strPtr("100.00"),
		SettlementSeconds:    u64Ptr(100),
		MatchedFillTimestamp: u64Ptr(7100),
	})
	agg.AddRefund(model.RefundRecord{
		RefundID:    "0xabc-1-2",
		ChainID:     1,
		Timestamp:   7250,
		TokenSymbol: "USDC",
		Amount:      "50.000000",
		Deferred:    true,
	})

	stats := agg.SettlementStats()
	if len(stats) != 1 {
		t.Fatalf("settlement windows = %d, want 1", len(stats))
	}
	got := stats[0]
	if got.ChainName != "Ethereum" {
		t.Errorf("chain name = %q, want Ethereum", got.ChainName)
	}
	if got.RefundCount != 2 || got.MatchedCount != 1 || got.DeferredCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", got.RefundCount, got.MatchedCount, got.DeferredCount)
	}
	if got.TotalRefundAmount != "150.000000" {
		t.Errorf("total refund = %q, want 150.000000", got.TotalRefundAmount)
	}
	if got.TotalRefundUSD == nil || *got.TotalRefundUSD != "100.00" {
		t.Errorf("total usd = %v, want 100.00", got.TotalRefundUSD)
	}
	if got.AvgSettlementSeconds == nil || *got.AvgSettlementSeconds != 100 {
		t.Errorf("avg settlement = %v, want 100", got.AvgSettlementSeconds)
	}
	if got.P95SettlementSeconds == nil || *got.P95SettlementSeconds != 100 {
		t.Errorf("p95 settlement = %v, want 100", got.P95SettlementSeconds)
	}
}

func TestAggregatorRejectsBadRows(t *testing.T) {
	agg := NewAggregator(Config{}, testChains(t), zap.NewNop())
	agg.AddTransfer(model.MatchedTransfer{
		OriginChainID:      42161,
		DestinationChainID: 1,
		DepositTimestamp:   100,
		InputSymbol:        "USDC",
		InputAmount:        "not-a-number",
	})
	if agg.Failed() != 1 {
		t.Errorf("failed = %d, want 1", agg.Failed())
	}
}
