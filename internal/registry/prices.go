package registry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
)

const hourSeconds = 3600

// Price source values recorded on USD-converted amounts.
const (
	PriceSourceHourly       = "hourly"
	PriceSourceStableParity = "stable-parity"
)

// HourBucket floors a timestamp to the start of its hour.
func HourBucket(ts uint64) uint64 {
	return ts - ts%hourSeconds
}

// PricePoint is one raw price observation. PriceUSD accepts both JSON
// numbers and strings so vendor decimals survive exactly.
type PricePoint struct {
	Symbol    string      `json:"token_symbol"`
	Timestamp uint64      `json:"timestamp"`
	PriceUSD  json.Number `json:"price_usd"`
}

// PriceQuote is a resolved price and the policy that produced it.
type PriceQuote struct {
	Price  *big.Rat
	Source string
}

// PriceBook holds hourly USD prices per token symbol. Multiple observations
// within the same hour are averaged at load (arithmetic mean).
type PriceBook struct {
	buckets map[string]map[uint64]*big.Rat
	stable  map[string]struct{}
}

// NewPriceBook buckets and averages raw observations. Symbols listed in
// stableSymbols fall back to parity pricing when a bucket is missing.
func NewPriceBook(points []PricePoint, stableSymbols []string) (*PriceBook, error) {
	type bucketSum struct {
		sum   *big.Rat
		count int64
	}

	sums := make(map[string]map[uint64]*bucketSum)
	for _, point := range points {
		if point.Symbol == "" {
			return nil, fmt.Errorf("price point has no symbol: %+v", point)
		}
		price, ok := new(big.Rat).SetString(point.PriceUSD.String())
		if !ok {
			return nil, fmt.Errorf("invalid price for %s: %s", point.Symbol, point.PriceUSD)
		}
		if price.Sign() < 0 {
			return nil, fmt.Errorf("negative price for %s: %s", point.Symbol, point.PriceUSD)
		}

		bucket := HourBucket(point.Timestamp)
		symbolSums := sums[point.Symbol]
		if symbolSums == nil {
			symbolSums = make(map[uint64]*bucketSum)
			sums[point.Symbol] = symbolSums
		}
		entry := symbolSums[bucket]
		if entry == nil {
			entry = &bucketSum{sum: new(big.Rat)}
			symbolSums[bucket] = entry
		}
		entry.sum.Add(entry.sum, price)
		entry.count++
	}

	buckets := make(map[string]map[uint64]*big.Rat, len(sums))
	for symbol, symbolSums := range sums {
		symbolBuckets := make(map[uint64]*big.Rat, len(symbolSums))
		for bucket, entry := range symbolSums {
			mean := new(big.Rat).Quo(entry.sum, new(big.Rat).SetInt64(entry.count))
			symbolBuckets[bucket] = mean
		}
		buckets[symbol] = symbolBuckets
	}

	stable := make(map[string]struct{}, len(stableSymbols))
	for _, symbol := range stableSymbols {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		stable[symbol] = struct{}{}
	}

	return &PriceBook{buckets: buckets, stable: stable}, nil
}

// LoadPriceBook reads a JSONL price file. An empty path yields an empty book
// (stable-parity still applies).
func LoadPriceBook(path string, stableSymbols []string) (*PriceBook, error) {
	if path == "" {
		return NewPriceBook(nil, stableSymbols)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price registry: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	points := make([]PricePoint, 0, 1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var point PricePoint
		if err := json.Unmarshal(line, &point); err != nil {
			return nil, fmt.Errorf("parse price registry: %w", err)
		}
		points = append(points, point)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan price registry: %w", err)
	}

	return NewPriceBook(points, stableSymbols)
}

// At returns the hourly price for a symbol at a timestamp. Missing buckets
// resolve to parity for stable symbols and report false otherwise.
func (b *PriceBook) At(symbol string, ts uint64) (PriceQuote, bool) {
	if symbolBuckets, ok := b.buckets[symbol]; ok {
		if price, ok := symbolBuckets[HourBucket(ts)]; ok {
			return PriceQuote{Price: price, Source: PriceSourceHourly}, true
		}
	}
	if _, ok := b.stable[symbol]; ok {
		return PriceQuote{Price: big.NewRat(1, 1), Source: PriceSourceStableParity}, true
	}
	return PriceQuote{}, false
}

// Symbols returns the number of symbols with at least one price bucket.
func (b *PriceBook) Symbols() int {
	return len(b.buckets)
}

// DefaultStableSymbols returns the symbols covered by the stable-parity
// fallback policy.
func DefaultStableSymbols() []string {
	return []string{"USDC", "USDT", "DAI", "USDB", "USDzC"}
}
