package reconcile

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"bridgeScope/internal/model"
)

var txDeposit2 = "0x" + strings.Repeat("6f", 32)

func engineFixture() ([]model.Deposit, []model.Fill, []model.RefundBatch) {
	deposits := []model.Deposit{
		{
			Timestamp:          1699999300,
			TxHash:             txDeposit,
			OriginChainID:      1,
			DestinationChainID: 137,
			DepositID:          42,
			Depositor:          depositorA,
			Recipient:          depositorA,
			InputToken:         usdcMainnet,
			OutputToken:        usdcPolygon,
			InputAmountRaw:     "5000000",
			OutputAmountRaw:    "4990000",
		},
		{
			Timestamp:          1699999300,
			TxHash:             txDeposit2,
			OriginChainID:      42161,
			DestinationChainID: 1,
			DepositID:          7,
			Depositor:          depositorA,
			Recipient:          depositorA,
			InputToken:         usdcArbitrum,
			OutputToken:        usdcMainnet,
			InputAmountRaw:     "1000000",
			OutputAmountRaw:    "995000",
		},
	}
	fills := []model.Fill{
		{
			Timestamp:          1699999345,
			TxHash:             txFill,
			OriginChainID:      42161,
			DestinationChainID: 1,
			DepositID:          7,
			Relayer:            relayerA,
			OutputAmountRaw:    "995000",
		},
		{
			Timestamp:          1699999100,
			TxHash:             txFill2,
			OriginChainID:      42161,
			DestinationChainID: 1,
			DepositID:          77,
			Relayer:            relayerA,
			OutputAmountRaw:    "5000000",
		},
	}
	batches := []model.RefundBatch{
		{
			Timestamp:            1699999400,
			TxHash:               txBatch,
			ChainID:              1,
			RootBundleID:         12,
			LeafID:               3,
			TokenAddress:         usdcMainnet,
			TotalRefundAmountRaw: "300000000",
			RefundCount:          2,
			Relayers:             []string{relayerA, relayerB},
			RefundAmountsRaw:     []string{"100000000", "200000000"},
		},
		{
			Timestamp:            1699999500,
			TxHash:               txBatch2,
			ChainID:              137,
			LeafID:               1,
			TokenAddress:         usdcPolygon,
			TotalRefundAmountRaw: "100",
			RefundCount:          3,
			Relayers:             []string{relayerA},
			RefundAmountsRaw:     []string{"100"},
		},
	}
	return deposits, fills, batches
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	chains, tokens, prices := testRegistries(t)
	return NewEngine(chains, tokens, prices, 0, 4, zap.NewNop())
}

func TestEngineRun(t *testing.T) {
	engine := testEngine(t)
	deposits, fills, batches := engineFixture()

	result, err := engine.Run(context.Background(), deposits, fills, batches)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Transfers) != 2 {
		t.Fatalf("transfers = %d, want 2", len(result.Transfers))
	}
	// Route order: (1,137) before (42161,1).
	if result.Transfers[0].DepositID != 42 || result.Transfers[0].IsFilled {
		t.Errorf("first transfer = %+v, want unfilled deposit 42", result.Transfers[0])
	}
	if result.Transfers[1].DepositID != 7 || !result.Transfers[1].IsFilled {
		t.Errorf("second transfer = %+v, want filled deposit 7", result.Transfers[1])
	}

	if len(result.RefundRecords) != 2 {
		t.Fatalf("refund records = %d, want 2", len(result.RefundRecords))
	}
	first := result.RefundRecords[0]
	if first.Relayer != relayerA || first.RefundIndex != 1 {
		t.Errorf("first refund record = %+v", first)
	}
	if first.SettlementSeconds == nil || *first.SettlementSeconds != 55 {
		t.Errorf("settlement = %v, want 55", first.SettlementSeconds)
	}
	second := result.RefundRecords[1]
	if second.SettlementSeconds != nil || second.MatchedFillTimestamp != nil {
		t.Errorf("relayer without fills correlated: %+v", second)
	}

	if len(result.MalformedBatches) != 1 || result.MalformedBatches[0].ChainID != 137 {
		t.Errorf("malformed batches = %+v, want one on chain 137", result.MalformedBatches)
	}
	if len(result.UnresolvedTokens) != 0 || len(result.PriceGaps) != 0 {
		t.Errorf("unexpected quality reports: %+v %+v", result.UnresolvedTokens, result.PriceGaps)
	}

	wantCounts := map[string]uint64{
		"deposits":          2,
		"fills":             2,
		"refund_batches":    2,
		"transfers":         2,
		"filled":            1,
		"unfilled":          1,
		"duplicate_fills":   0,
		"orphan_fills":      1,
		"refund_records":    2,
		"malformed_batches": 1,
		"matched_refunds":   1,
		"unresolved_tokens": 0,
		"price_gaps":        0,
		"negative_fees":     0,
		"skipped_records":   0,
	}
	if !reflect.DeepEqual(result.Counts, wantCounts) {
		t.Errorf("counts = %v, want %v", result.Counts, wantCounts)
	}
}

func reverseOrder[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func TestEngineRunDeterministic(t *testing.T) {
	engine := testEngine(t)

	deposits, fills, batches := engineFixture()
	first, err := engine.Run(context.Background(), deposits, fills, batches)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	deposits, fills, batches = engineFixture()
	reverseOrder(deposits)
	reverseOrder(fills)
	reverseOrder(batches)
	second, err := engine.Run(context.Background(), deposits, fills, batches)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("input order changed the result:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestEngineRunCancelled(t *testing.T) {
	engine := testEngine(t)
	deposits, fills, batches := engineFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Run(ctx, deposits, fills, batches); err == nil {
		t.Fatal("cancelled run returned no error")
	}
}
