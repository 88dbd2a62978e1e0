package model

import (
	"encoding/json"
	"testing"
)

func TestUnfilledTransferOmitsFillFields(t *testing.T) {
	transfer := MatchedTransfer{
		DepositID:          42,
		OriginChainID:      1,
		DestinationChainID: 137,
		DepositTimestamp:   1717200000,
		DepositTxHash:      "0xabc",
		InputSymbol:        "USDC",
		InputDecimals:      6,
		InputAmountRaw:     "5000000",
		InputAmount:        "5.000000",
		IsFilled:           false,
	}

	data, err := json.Marshal(transfer)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	fillKeys := []string{
		"fill_timestamp", "fill_tx_hash", "relayer", "repayment_chain_id",
		"fill_amount_raw", "fill_amount", "fill_amount_usd",
		"fill_latency_seconds", "bridge_fee_nominal", "bridge_fee_percent",
		"slippage_percent", "gas_cost_usd",
	}
	for _, key := range fillKeys {
		if _, ok := decoded[key]; ok {
			t.Fatalf("unfilled transfer should omit %q", key)
		}
	}

	if filled, ok := decoded["is_filled"].(bool); !ok || filled {
		t.Fatalf("is_filled should be false, got %v", decoded["is_filled"])
	}
	if _, ok := decoded["input_amount"].(string); !ok {
		t.Fatalf("input_amount should be string")
	}
}

func TestFilledTransferCarriesStringAmounts(t *testing.T) {
	ts := uint64(1717200045)
	fee := "0.005000"
	transfer := MatchedTransfer{
		DepositID:        7,
		OriginChainID:    42161,
		IsFilled:         true,
		FillTimestamp:    &ts,
		BridgeFeeNominal: &fee,
	}

	data, err := json.Marshal(transfer)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["fill_timestamp"].(float64); !ok {
		t.Fatalf("fill_timestamp should be present for filled transfer")
	}
	if _, ok := decoded["bridge_fee_nominal"].(string); !ok {
		t.Fatalf("bridge_fee_nominal should be string")
	}
}
