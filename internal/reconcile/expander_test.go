package reconcile

import (
	"math/big"
	"testing"

	"bridgeScope/internal/model"
)

func testExpander(t *testing.T) *Expander {
	t.Helper()
	_, tokens, prices := testRegistries(t)
	return NewExpander(tokens, prices)
}

func TestExpandBatch(t *testing.T) {
	e := testExpander(t)
	batch := model.RefundBatch{
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
	}

	out := e.Expand([]model.RefundBatch{batch})
	if len(out.Malformed) != 0 {
		t.Fatalf("malformed = %v, want none", out.Malformed)
	}
	if len(out.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(out.Records))
	}

	first := out.Records[0]
	if first.RefundID != txBatch+"-3-1" {
		t.Errorf("refund id = %q, want %q", first.RefundID, txBatch+"-3-1")
	}
	if first.RefundIndex != 1 || first.Relayer != relayerA || first.AmountRaw != "100000000" {
		t.Errorf("first record = %+v", first)
	}
	if first.Amount != "100.000000" {
		t.Errorf("first amount = %q, want 100.000000", first.Amount)
	}
	if first.TokenSymbol != "USDC" || first.LowConfidence {
		t.Errorf("first resolution = %s low_confidence=%v", first.TokenSymbol, first.LowConfidence)
	}
	if first.AmountUSD == nil || *first.AmountUSD != "100.00" {
		t.Errorf("first usd = %v, want 100.00", first.AmountUSD)
	}

	second := out.Records[1]
	if second.RefundIndex != 2 || second.Relayer != relayerB || second.Amount != "200.000000" {
		t.Errorf("second record = %+v", second)
	}
	if second.MatchedFillTimestamp != nil || second.SettlementSeconds != nil {
		t.Error("expansion must leave settlement fields nil")
	}
}

func TestExpandMisalignedBatch(t *testing.T) {
	e := testExpander(t)
	batch := model.RefundBatch{
		Timestamp:            1699999400,
		TxHash:               txBatch,
		ChainID:              1,
		RootBundleID:         12,
		LeafID:               4,
		TokenAddress:         usdcMainnet,
		TotalRefundAmountRaw: "300000000",
		RefundCount:          3,
		Relayers:             []string{relayerA, relayerB},
		RefundAmountsRaw:     []string{"100000000", "200000000"},
	}

	out := e.Expand([]model.RefundBatch{batch})
	if len(out.Records) != 0 {
		t.Fatalf("records = %d, want 0 for misaligned batch", len(out.Records))
	}
	if len(out.Malformed) != 1 {
		t.Fatalf("malformed = %d, want 1", len(out.Malformed))
	}
	got := out.Malformed[0]
	if got.RefundCount != 3 || got.RelayerLen != 2 || got.AmountLen != 2 {
		t.Errorf("malformed = %+v", got)
	}
	if got.TxHash != txBatch || got.LeafID != 4 || got.RootBundleID != 12 {
		t.Errorf("malformed identifiers = %+v", got)
	}
}

func TestExpandUnresolvedToken(t *testing.T) {
	e := testExpander(t)
	unknown := "0x1234567890abcdef1234567890abcdef12345678"
	batch := model.RefundBatch{
		Timestamp:            1699999400,
		TxHash:               txBatch,
		ChainID:              999,
		LeafID:               1,
		TokenAddress:         unknown,
		TotalRefundAmountRaw: "2000000000000000000",
		RefundCount:          1,
		Relayers:             []string{relayerA},
		RefundAmountsRaw:     []string{"2000000000000000000"},
	}

	out := e.Expand([]model.RefundBatch{batch})
	if len(out.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(out.Records))
	}
	got := out.Records[0]
	if !got.LowConfidence {
		t.Error("unresolved token not flagged low confidence")
	}
	if got.Amount != "2.000000000000000000" {
		t.Errorf("amount = %q, want 18-decimal fallback scaling", got.Amount)
	}
	if got.AmountUSD != nil {
		t.Error("unresolved token must not carry a USD value")
	}
	if n := out.Unresolved[tokenKey{ChainID: 999, Address: unknown}]; n != 1 {
		t.Errorf("unresolved occurrences = %d, want 1", n)
	}
}

func TestExpandSumMatchesTotal(t *testing.T) {
	e := testExpander(t)
	batch := model.RefundBatch{
		Timestamp:            1699999400,
		TxHash:               txBatch,
		ChainID:              1,
		LeafID:               9,
		TokenAddress:         usdcMainnet,
		TotalRefundAmountRaw: "1000001",
		RefundCount:          2,
		Relayers:             []string{relayerA, relayerB},
		RefundAmountsRaw:     []string{"1", "1000000"},
	}

	out := e.Expand([]model.RefundBatch{batch})
	if len(out.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(out.Records))
	}
	sum := new(big.Rat)
	for _, record := range out.Records {
		amount, ok := new(big.Rat).SetString(record.Amount)
		if !ok {
			t.Fatalf("unparsable amount %q", record.Amount)
		}
		sum.Add(sum, amount)
	}
	want := new(big.Rat).SetFrac64(1000001, 1000000)
	if sum.Cmp(want) != 0 {
		t.Errorf("rescaled sum = %s, want %s", sum.RatString(), want.RatString())
	}
}

func TestExpandDeferredAndOrder(t *testing.T) {
	e := testExpander(t)
	batches := []model.RefundBatch{
		{
			Timestamp:            1699999500,
			TxHash:               txBatch2,
			ChainID:              1,
			LeafID:               1,
			TokenAddress:         usdcMainnet,
			TotalRefundAmountRaw: "5000000",
			RefundCount:          1,
			Relayers:             []string{relayerB},
			RefundAmountsRaw:     []string{"5000000"},
			Deferred:             true,
		},
		{
			Timestamp:            1699999400,
			TxHash:               txBatch,
			ChainID:              1,
			LeafID:               2,
			TokenAddress:         usdcMainnet,
			TotalRefundAmountRaw: "1000000",
			RefundCount:          1,
			Relayers:             []string{relayerA},
			RefundAmountsRaw:     []string{"1000000"},
		},
	}

	out := e.Expand(batches)
	if len(out.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(out.Records))
	}
	if out.Records[0].TxHash != txBatch || out.Records[1].TxHash != txBatch2 {
		t.Errorf("records not sorted by tx hash: %s then %s", out.Records[0].TxHash, out.Records[1].TxHash)
	}
	if !out.Records[1].Deferred {
		t.Error("deferred flag did not propagate to expanded record")
	}
	if out.Records[0].Deferred {
		t.Error("deferred flag leaked onto the wrong batch")
	}
}
