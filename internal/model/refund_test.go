package model

import "testing"

func TestRefundBatchAligned(t *testing.T) {
	batch := RefundBatch{
		RefundCount:      2,
		Relayers:         []string{"0xa", "0xb"},
		RefundAmountsRaw: []string{"100", "200"},
	}
	if !batch.Aligned() {
		t.Fatalf("expected aligned batch")
	}

	batch.RefundCount = 3
	if batch.Aligned() {
		t.Fatalf("count 3 with 2 entries should not be aligned")
	}

	batch.RefundCount = 2
	batch.RefundAmountsRaw = []string{"100"}
	if batch.Aligned() {
		t.Fatalf("mismatched parallel arrays should not be aligned")
	}
}

func TestRefundRecordID(t *testing.T) {
	got := RefundRecordID("0xdeadbeef", 4, 2)
	want := "0xdeadbeef-4-2"
	if got != want {
		t.Fatalf("refund id mismatch: %s != %s", got, want)
	}
}
