package normalize

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"bridgeScope/internal/registry"
)

func writeLines(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := ""
	for _, line := range lines {
		body += line + "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunnerUnifiesSources(t *testing.T) {
	dir := t.TempDir()

	depositLine := `{"timestamp": 1700000000, "tx_hash": "0xaa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66", "destination_chain_id": 137, "deposit_id": 42, "depositor": "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d", "recipient": "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d", "input_token": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "output_token": "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", "input_amount_raw": "5000000", "output_amount_raw": "4995000"}`
	badLine := `{"timestamp": 1700000001, "tx_hash": "0xbb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66aa77", "destination_chain_id": 137, "deposit_id": 43}`

	mainnetDeposits := writeLines(t, dir, "mainnet_deposits.jsonl", depositLine, badLine, depositLine)
	arbFills := writeLines(t, dir, "arbitrum_fills.jsonl",
		`{"timestamp": 1700000045, "tx_hash": "0xcc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66aa77bb88", "origin_chain_id": 1, "deposit_id": 7, "relayer": "0x07ae8551be970cb1cca11dd7a11f47ae82e70e67", "depositor": "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d", "recipient": "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d", "input_token": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "output_token": "0xaf88d065e77c8cc2239327c5edb3a432268e5831", "input_amount_raw": "1000000", "output_amount_raw": "995000", "repayment_chain_id": 42161}`,
	)

	chains, err := registry.NewChainRegistry(registry.DefaultChains())
	if err != nil {
		t.Fatalf("chain registry: %v", err)
	}

	sources := []Source{
		{ChainID: 1, Kind: KindDeposit, Path: mainnetDeposits},
		{ChainID: 42161, Kind: KindFill, Path: arbFills},
	}
	runner, err := NewRunner(sources, chains, nil, 2, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	got, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// The duplicate deposit line collapses at the unifier, the incomplete
	// line is dropped with field attribution.
	if len(got.Deposits) != 1 {
		t.Fatalf("deposits: got %d, want 1", len(got.Deposits))
	}
	if len(got.Fills) != 1 {
		t.Fatalf("fills: got %d, want 1", len(got.Fills))
	}
	if len(got.Dropped) != 1 {
		t.Fatalf("dropped: got %d, want 1", len(got.Dropped))
	}
	if got.Dropped[0].Field != "depositor" {
		t.Fatalf("dropped field: got %q", got.Dropped[0].Field)
	}
	if got.Dropped[0].TxHash != "0xbb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66aa77" {
		t.Fatalf("dropped tx hash: got %q", got.Dropped[0].TxHash)
	}

	wantCounts := []SourceCount{
		{ChainID: 1, Kind: KindDeposit, Read: 3, Kept: 2, Dropped: 1},
		{ChainID: 42161, Kind: KindFill, Read: 1, Kept: 1, Dropped: 0},
	}
	if !reflect.DeepEqual(got.Sources, wantCounts) {
		t.Fatalf("source counts mismatch: %+v", got.Sources)
	}
}

func TestRunnerDeterministicOrder(t *testing.T) {
	dir := t.TempDir()

	lineA := `{"timestamp": 1700000000, "tx_hash": "0xaa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66", "destination_chain_id": 137, "deposit_id": 9, "depositor": "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d", "recipient": "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d", "input_token": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "output_token": "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", "input_amount_raw": "1", "output_amount_raw": "1"}`
	lineB := `{"timestamp": 1700000001, "tx_hash": "0xbb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66aa77", "destination_chain_id": 137, "deposit_id": 2, "depositor": "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d", "recipient": "0x9a8f92a830a5cb89a3816e3d267cb7791c16b04d", "input_token": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "output_token": "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", "input_amount_raw": "2", "output_amount_raw": "2"}`

	forward := writeLines(t, dir, "forward.jsonl", lineA, lineB)
	reversed := writeLines(t, dir, "reversed.jsonl", lineB, lineA)

	chains, err := registry.NewChainRegistry(registry.DefaultChains())
	if err != nil {
		t.Fatalf("chain registry: %v", err)
	}

	run := func(path string) Result {
		runner, err := NewRunner([]Source{{ChainID: 1, Kind: KindDeposit, Path: path}}, chains, nil, 1, nil)
		if err != nil {
			t.Fatalf("new runner: %v", err)
		}
		res, err := runner.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res
	}

	first := run(forward)
	second := run(reversed)

	if !reflect.DeepEqual(first.Deposits, second.Deposits) {
		t.Fatalf("input order leaked into output: %+v != %+v", first.Deposits, second.Deposits)
	}
	if first.Deposits[0].DepositID != 2 {
		t.Fatalf("sort order mismatch: %+v", first.Deposits)
	}
}

func TestRunnerRejectsBadSources(t *testing.T) {
	chains, err := registry.NewChainRegistry(registry.DefaultChains())
	if err != nil {
		t.Fatalf("chain registry: %v", err)
	}

	if _, err := NewRunner([]Source{{ChainID: 1, Kind: "swap", Path: "x.jsonl"}}, chains, nil, 1, nil); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := NewRunner([]Source{{ChainID: 140, Kind: KindDeposit, Path: "x.jsonl"}}, chains, nil, 1, nil); err == nil {
		t.Fatalf("expected error for unknown chain")
	}
	if _, err := NewRunner(nil, chains, nil, 1, nil); err == nil {
		t.Fatalf("expected error for empty source list")
	}

	runner, err := NewRunner([]Source{{ChainID: 1, Kind: KindDeposit, Path: "/nonexistent/deposits.jsonl"}}, chains, nil, 1, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error for unreadable source")
	}
}
