package rollup

import (
	"math/big"
	"sort"
	"strings"
)

const percentDigits = 6

// percentile95 returns the nearest-rank 95th percentile, nil for no data.
func percentile95(values []uint64) *uint64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]uint64(nil), values...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
	rank := (len(sorted)*95 + 99) / 100
	if rank < 1 {
		rank = 1
	}
	value := sorted[rank-1]
	return &value
}

// meanSeconds returns the integer mean, nil for no data.
func meanSeconds(values []uint64) *uint64 {
	if len(values) == 0 {
		return nil
	}
	var sum uint64
	for _, value := range values {
		sum += value
	}
	mean := sum / uint64(len(values))
	return &mean
}

// ratePercent renders part/whole as a percent with two digits.
func ratePercent(part, whole uint64) string {
	if whole == 0 {
		return "0.00"
	}
	rate := uintRat(part)
	rate.Quo(rate, uintRat(whole))
	rate.Mul(rate, big.NewRat(100, 1))
	return rate.FloatString(2)
}

// concentration derives the top relayer share (percent) and the Herfindahl
// index (sum of squared percent shares, 0..10000) from per-relayer fill
// counts. Both are nil when the window saw no fills.
func concentration(fillsByRelayer map[string]uint64, totalFills uint64) (topShare, hhi *string) {
	if totalFills == 0 || len(fillsByRelayer) == 0 {
		return nil, nil
	}
	var top uint64
	hhiSum := new(big.Rat)
	for _, count := range fillsByRelayer {
		if count > top {
			top = count
		}
		share := uintRat(count)
		share.Quo(share, uintRat(totalFills))
		share.Mul(share, big.NewRat(100, 1))
		share.Mul(share, share)
		hhiSum.Add(hhiSum, share)
	}
	topRat := uintRat(top)
	topRat.Quo(topRat, uintRat(totalFills))
	topRat.Mul(topRat, big.NewRat(100, 1))
	topText := topRat.FloatString(2)
	hhiText := hhiSum.FloatString(2)
	return &topText, &hhiText
}

func uintRat(value uint64) *big.Rat {
	return new(big.Rat).SetInt(new(big.Int).SetUint64(value))
}

// fracDigits counts decimal places in a rendered amount so sums re-render
// at the precision the inputs carried.
func fracDigits(amount string) int {
	dot := strings.IndexByte(amount, '.')
	if dot < 0 {
		return 0
	}
	return len(amount) - dot - 1
}
