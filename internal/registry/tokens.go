package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// FallbackDecimals is applied when a token has no registry entry. The
	// resulting amounts must be tagged low-confidence by the caller.
	FallbackDecimals = 18

	// ZeroAddress marks native-token outputs in deposit events.
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	maxTokenDecimals = 77
)

// Token is one token registry entry. Addresses are stored lowercased and
// compared case-insensitively.
type Token struct {
	ChainID  uint64 `json:"chain_id"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Resolution is the outcome of a token lookup, including the documented
// fallback when the registry has no entry.
type Resolution struct {
	Symbol   string
	Decimals uint8
	Resolved bool
}

// TokenRegistry is the immutable token metadata table, keyed by chain and
// lowercase address.
type TokenRegistry struct {
	byChain map[uint64]map[string]Token
	size    int
}

// NewTokenRegistry validates the token list and builds the registry.
func NewTokenRegistry(tokens []Token) (*TokenRegistry, error) {
	byChain := make(map[uint64]map[string]Token)
	for _, token := range tokens {
		if token.ChainID == 0 {
			return nil, fmt.Errorf("token %s has no chain id", token.Address)
		}
		if !common.IsHexAddress(token.Address) {
			return nil, fmt.Errorf("invalid token address on chain %d: %s", token.ChainID, token.Address)
		}
		if token.Symbol == "" {
			return nil, fmt.Errorf("token %s on chain %d has no symbol", token.Address, token.ChainID)
		}
		if token.Decimals > maxTokenDecimals {
			return nil, fmt.Errorf("token %s on chain %d has decimals %d out of range", token.Address, token.ChainID, token.Decimals)
		}

		addr := strings.ToLower(token.Address)
		chainTokens := byChain[token.ChainID]
		if chainTokens == nil {
			chainTokens = make(map[string]Token)
			byChain[token.ChainID] = chainTokens
		}
		if _, ok := chainTokens[addr]; ok {
			return nil, fmt.Errorf("duplicate token %s on chain %d", addr, token.ChainID)
		}
		token.Address = addr
		chainTokens[addr] = token
	}

	size := 0
	for _, chainTokens := range byChain {
		size += len(chainTokens)
	}

	return &TokenRegistry{byChain: byChain, size: size}, nil
}

// LoadTokenRegistry reads a token registry JSON file. An empty path loads the
// built-in default set.
func LoadTokenRegistry(path string) (*TokenRegistry, error) {
	if path == "" {
		return NewTokenRegistry(DefaultTokens())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token registry: %w", err)
	}

	var tokens []Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse token registry: %w", err)
	}

	return NewTokenRegistry(tokens)
}

// Resolve returns the registry entry for (chain, address), case-insensitive.
func (r *TokenRegistry) Resolve(chainID uint64, address string) (Token, bool) {
	chainTokens, ok := r.byChain[chainID]
	if !ok {
		return Token{}, false
	}
	token, ok := chainTokens[strings.ToLower(address)]
	return token, ok
}

// ResolveOrFallback resolves a token or applies the 18-decimal fallback with
// a shortened placeholder symbol. Resolved is false on fallback.
func (r *TokenRegistry) ResolveOrFallback(chainID uint64, address string) Resolution {
	if token, ok := r.Resolve(chainID, address); ok {
		return Resolution{Symbol: token.Symbol, Decimals: token.Decimals, Resolved: true}
	}
	return Resolution{Symbol: FallbackSymbol(address), Decimals: FallbackDecimals, Resolved: false}
}

// Size returns the number of registered tokens.
func (r *TokenRegistry) Size() int {
	return r.size
}

// IsZeroAddress reports whether the address is the native-token marker.
func IsZeroAddress(address string) bool {
	return strings.EqualFold(address, ZeroAddress)
}

// FallbackSymbol builds the placeholder symbol for an unresolved address.
func FallbackSymbol(address string) string {
	addr := strings.ToLower(address)
	if len(addr) > 10 {
		return fmt.Sprintf("Unknown (%s...%s)", addr[:6], addr[len(addr)-4:])
	}
	return fmt.Sprintf("Unknown (%s)", addr)
}

// DefaultTokens returns the built-in token set. Decimal quirks are
// deliberate: USDC and USDT are 18-decimal on BNB Chain, 6 elsewhere; WBTC
// is 8-decimal.
func DefaultTokens() []Token {
	return []Token{
		{ChainID: 1, Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Symbol: "USDC", Decimals: 6},
		{ChainID: 1, Address: "0xdac17f958d2ee523a2206206994597c13d831ec7", Symbol: "USDT", Decimals: 6},
		{ChainID: 1, Address: "0x6b175474e89094c44da98b954eedeac495271d0f", Symbol: "DAI", Decimals: 18},
		{ChainID: 1, Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", Symbol: "WETH", Decimals: 18},
		{ChainID: 1, Address: "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", Symbol: "WBTC", Decimals: 8},
		{ChainID: 10, Address: "0x0b2c639c533813f4aa9d7837caf62653d097ff85", Symbol: "USDC", Decimals: 6},
		{ChainID: 10, Address: "0x94b008aa00579c1307b0ef2c499ad98a8ce58e58", Symbol: "USDT", Decimals: 6},
		{ChainID: 10, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: 18},
		{ChainID: 56, Address: "0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d", Symbol: "USDC", Decimals: 18},
		{ChainID: 56, Address: "0x55d398326f99059ff775485246999027b3197955", Symbol: "USDT", Decimals: 18},
		{ChainID: 56, Address: "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c", Symbol: "WBNB", Decimals: 18},
		{ChainID: 130, Address: "0x078d782b760474a361dda0af3839290b0ef57ad6", Symbol: "USDC", Decimals: 6},
		{ChainID: 130, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: 18},
		{ChainID: 137, Address: "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", Symbol: "USDC", Decimals: 6},
		{ChainID: 137, Address: "0xc2132d05d31c914a87c6611c10748aeb04b58e8f", Symbol: "USDT", Decimals: 6},
		{ChainID: 137, Address: "0x7ceb23fd6bc0add59e62ac25578270cff1b9f619", Symbol: "WETH", Decimals: 18},
		{ChainID: 137, Address: "0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270", Symbol: "WPOL", Decimals: 18},
		{ChainID: 143, Address: "0x760afe86e5de5fa0ee542fc7b7b713e1c5425701", Symbol: "WMON", Decimals: 18},
		{ChainID: 143, Address: "0xf817257fed379853cde0fa4f97ab987181b1e5ea", Symbol: "USDC", Decimals: 6},
		{ChainID: 324, Address: "0x1d17cbcf0d6d143135ae902365d2e5e2a16538d4", Symbol: "USDC", Decimals: 6},
		{ChainID: 324, Address: "0x5aea5775959fbc2557cc8789bc1bf90a239d9a91", Symbol: "WETH", Decimals: 18},
		{ChainID: 480, Address: "0x79a02482a880bce3f13e09da970dc34db4cd24d1", Symbol: "USDzC", Decimals: 6},
		{ChainID: 480, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: 18},
		{ChainID: 999, Address: "0x5555555555555555555555555555555555555555", Symbol: "WHYPE", Decimals: 18},
		{ChainID: 8453, Address: "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", Symbol: "USDC", Decimals: 6},
		{ChainID: 8453, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: 18},
		{ChainID: 42161, Address: "0xaf88d065e77c8cc2239327c5edb3a432268e5831", Symbol: "USDC", Decimals: 6},
		{ChainID: 42161, Address: "0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9", Symbol: "USDT", Decimals: 6},
		{ChainID: 42161, Address: "0x82af49447d8a07e3bd95bd0d56f35241523fbab1", Symbol: "WETH", Decimals: 18},
		{ChainID: 42161, Address: "0x2f2a2543b76a4166549f7aab2e75bef0aefc5b0f", Symbol: "WBTC", Decimals: 8},
		{ChainID: 59144, Address: "0x176211869ca2b568f2a7d4ee941e073a821ee1ff", Symbol: "USDC", Decimals: 6},
		{ChainID: 59144, Address: "0xe5d7c2a44ffddf6b295a15c148167daaaf5cf34f", Symbol: "WETH", Decimals: 18},
		{ChainID: 81457, Address: "0x4300000000000000000000000000000000000003", Symbol: "USDB", Decimals: 18},
		{ChainID: 81457, Address: "0x4300000000000000000000000000000000000004", Symbol: "WETH", Decimals: 18},
		{ChainID: 534352, Address: "0x06efdbff2a14a7c8e15944d1f4a48f9f95f663a4", Symbol: "USDC", Decimals: 6},
		{ChainID: 534352, Address: "0x5300000000000000000000000000000000000004", Symbol: "WETH", Decimals: 18},
		{ChainID: 7777777, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Decimals: 18},
	}
}
