package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"bridgeScope/internal/model"
)

func TestWriteAllReadAllRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deposits.jsonl")

	want := []model.Deposit{
		{
			Timestamp:          1700000000,
			TxHash:             "0xaa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66",
			OriginChainID:      1,
			DestinationChainID: 137,
			DepositID:          42,
			Depositor:          "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d",
			Recipient:          "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d",
			InputToken:         "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
			OutputToken:        "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359",
			InputAmountRaw:     "5000000",
			OutputAmountRaw:    "4995000",
		},
		{
			Timestamp:          1700000010,
			TxHash:             "0xbb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66aa77",
			OriginChainID:      42161,
			DestinationChainID: 1,
			DepositID:          7,
			Depositor:          "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d",
			Recipient:          "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d",
			InputToken:         "0xaf88d065e77c8cc2239327c5edb3a432268e5831",
			OutputToken:        "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
			InputAmountRaw:     "1000000",
			OutputAmountRaw:    "995000",
		},
	}

	if err := WriteAll(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadAll[model.Deposit](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch: %+v != %+v", got, want)
	}
}

func TestWriteAllTruncatesPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.jsonl")

	first := []model.DroppedRecord{
		{ChainID: 1, Kind: "deposit", Error: "missing timestamp"},
		{ChainID: 1, Kind: "deposit", Error: "missing depositor"},
	}
	if err := WriteAll(path, first); err != nil {
		t.Fatalf("first write: %v", err)
	}

	second := []model.DroppedRecord{{ChainID: 10, Kind: "fill", Error: "invalid address"}}
	if err := WriteAll(path, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := ReadAll[model.DroppedRecord](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, second) {
		t.Fatalf("previous content survived: %+v", got)
	}
}

func TestReadAllRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.jsonl")
	if err := os.WriteFile(path, []byte("{\"chain_id\": 1}\nnot json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := ReadAll[model.DroppedRecord](path); err == nil {
		t.Fatalf("expected error for malformed line")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "manifest.json")

	_, ok, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("read missing: %v", err)
	}
	if ok {
		t.Fatalf("missing manifest reported as present")
	}

	want := model.RunSummary{
		RunID:      "3b2e9a1c-0000-4000-8000-000000000000",
		Phase:      "normalize",
		StartedAt:  "2024-01-01T00:00:00Z",
		FinishedAt: "2024-01-01T00:00:05Z",
		Counts:     map[string]uint64{"deposits": 2, "fills": 1, "dropped": 1},
	}
	if err := WriteManifest(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !ok {
		t.Fatalf("manifest missing after write")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("manifest mismatch: %+v != %+v", got, want)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind")
	}
}
