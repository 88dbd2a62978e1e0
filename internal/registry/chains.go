package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// Chain describes one supported chain.
type Chain struct {
	ChainID      uint64 `json:"chain_id"`
	Name         string `json:"name"`
	NativeSymbol string `json:"native_symbol"`
}

// ChainRegistry is the immutable set of supported chains, loaded once at
// phase start and passed into every stage that validates chain ids.
type ChainRegistry struct {
	byID map[uint64]Chain
}

// NewChainRegistry validates the chain list and builds the registry.
func NewChainRegistry(chains []Chain) (*ChainRegistry, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("chain registry is empty")
	}

	byID := make(map[uint64]Chain, len(chains))
	for _, chain := range chains {
		if chain.ChainID == 0 {
			return nil, fmt.Errorf("chain id must be positive: %+v", chain)
		}
		if chain.Name == "" {
			return nil, fmt.Errorf("chain %d has no name", chain.ChainID)
		}
		if chain.NativeSymbol == "" {
			return nil, fmt.Errorf("chain %d has no native symbol", chain.ChainID)
		}
		if _, ok := byID[chain.ChainID]; ok {
			return nil, fmt.Errorf("duplicate chain id %d", chain.ChainID)
		}
		byID[chain.ChainID] = chain
	}

	return &ChainRegistry{byID: byID}, nil
}

// LoadChainRegistry reads a chain registry JSON file. An empty path loads the
// built-in default set.
func LoadChainRegistry(path string) (*ChainRegistry, error) {
	if path == "" {
		return NewChainRegistry(DefaultChains())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain registry: %w", err)
	}

	var chains []Chain
	if err := json.Unmarshal(data, &chains); err != nil {
		return nil, fmt.Errorf("parse chain registry: %w", err)
	}

	return NewChainRegistry(chains)
}

// Lookup returns the chain entry for an id.
func (r *ChainRegistry) Lookup(id uint64) (Chain, bool) {
	chain, ok := r.byID[id]
	return chain, ok
}

// Contains reports whether the id is registered.
func (r *ChainRegistry) Contains(id uint64) bool {
	_, ok := r.byID[id]
	return ok
}

// Name returns the display name for an id, or a numeric placeholder for
// unregistered ids so labels never come out empty.
func (r *ChainRegistry) Name(id uint64) string {
	if chain, ok := r.byID[id]; ok {
		return chain.Name
	}
	return fmt.Sprintf("chain-%d", id)
}

// NativeSymbol returns the gas token symbol for an id.
func (r *ChainRegistry) NativeSymbol(id uint64) (string, bool) {
	chain, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return chain.NativeSymbol, true
}

// Size returns the number of registered chains.
func (r *ChainRegistry) Size() int {
	return len(r.byID)
}

// DefaultChains returns the built-in chain set covering the protocol's
// deployed networks.
func DefaultChains() []Chain {
	return []Chain{
		{ChainID: 1, Name: "Ethereum", NativeSymbol: "ETH"},
		{ChainID: 10, Name: "Optimism", NativeSymbol: "ETH"},
		{ChainID: 56, Name: "BNB Chain", NativeSymbol: "BNB"},
		{ChainID: 130, Name: "Unichain", NativeSymbol: "ETH"},
		{ChainID: 137, Name: "Polygon", NativeSymbol: "POL"},
		{ChainID: 143, Name: "Monad", NativeSymbol: "MON"},
		{ChainID: 232, Name: "Lens", NativeSymbol: "GHO"},
		{ChainID: 324, Name: "zkSync", NativeSymbol: "ETH"},
		{ChainID: 480, Name: "World Chain", NativeSymbol: "ETH"},
		{ChainID: 690, Name: "Redstone", NativeSymbol: "ETH"},
		{ChainID: 999, Name: "HyperEVM", NativeSymbol: "HYPE"},
		{ChainID: 1135, Name: "Lisk", NativeSymbol: "ETH"},
		{ChainID: 1868, Name: "Soneium", NativeSymbol: "ETH"},
		{ChainID: 8453, Name: "Base", NativeSymbol: "ETH"},
		{ChainID: 34443, Name: "Mode", NativeSymbol: "ETH"},
		{ChainID: 41455, Name: "Aleph Zero", NativeSymbol: "AZERO"},
		{ChainID: 42161, Name: "Arbitrum", NativeSymbol: "ETH"},
		{ChainID: 57073, Name: "Ink", NativeSymbol: "ETH"},
		{ChainID: 59144, Name: "Linea", NativeSymbol: "ETH"},
		{ChainID: 81457, Name: "Blast", NativeSymbol: "ETH"},
		{ChainID: 534352, Name: "Scroll", NativeSymbol: "ETH"},
		{ChainID: 7777777, Name: "Zora", NativeSymbol: "ETH"},
	}
}
