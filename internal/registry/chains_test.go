package registry

import "testing"

func TestDefaultChainRegistry(t *testing.T) {
	reg, err := NewChainRegistry(DefaultChains())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	monad, ok := reg.Lookup(143)
	if !ok {
		t.Fatalf("expected Monad at chain id 143")
	}
	if monad.Name != "Monad" || monad.NativeSymbol != "MON" {
		t.Fatalf("unexpected Monad entry: %+v", monad)
	}

	if reg.Contains(140) {
		t.Fatalf("chain id 140 should not be registered")
	}

	symbol, ok := reg.NativeSymbol(137)
	if !ok || symbol != "POL" {
		t.Fatalf("Polygon native symbol mismatch: %s %v", symbol, ok)
	}
}

func TestChainRegistryName(t *testing.T) {
	reg, err := NewChainRegistry(DefaultChains())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := reg.Name(42161); got != "Arbitrum" {
		t.Fatalf("name mismatch: %s", got)
	}
	if got := reg.Name(123456); got != "chain-123456" {
		t.Fatalf("placeholder mismatch: %s", got)
	}
}

func TestChainRegistryValidation(t *testing.T) {
	if _, err := NewChainRegistry(nil); err == nil {
		t.Fatalf("expected error for empty registry")
	}

	dup := []Chain{
		{ChainID: 1, Name: "Ethereum", NativeSymbol: "ETH"},
		{ChainID: 1, Name: "Ethereum Again", NativeSymbol: "ETH"},
	}
	if _, err := NewChainRegistry(dup); err == nil {
		t.Fatalf("expected error for duplicate chain id")
	}

	missing := []Chain{{ChainID: 2, Name: "NoGas"}}
	if _, err := NewChainRegistry(missing); err == nil {
		t.Fatalf("expected error for missing native symbol")
	}
}
