package rollup

import (
	"math/big"
	"strconv"
)

// Fee tier labels ordered from most to least expensive.
const (
	FeeTierOverpriced  = "OVERPRICED"
	FeeTierHigh        = "HIGH"
	FeeTierCompetitive = "COMPETITIVE"
	FeeTierAggressive  = "AGGRESSIVE"
	FeeTierVeryLow     = "VERY_LOW"
	FeeTierUnknown     = "UNKNOWN"
)

// Latency tier labels ordered from worst to best.
const (
	LatencyTierCritical = "CRITICAL"
	LatencyTierHigh     = "HIGH"
	LatencyTierModerate = "MODERATE"
	LatencyTierHealthy  = "HEALTHY"
	LatencyTierUnknown  = "UNKNOWN"
)

// TierPolicy holds the classification thresholds. Fee thresholds are
// average fee percents, latency thresholds p95 seconds. Upper bounds are
// inclusive: an average fee of exactly 0.5 is HIGH, not OVERPRICED.
type TierPolicy struct {
	FeeOverpriced   float64
	FeeHigh         float64
	FeeCompetitive  float64
	FeeAggressive   float64
	LatencyCritical uint64
	LatencyHigh     uint64
	LatencyModerate uint64
}

// DefaultTierPolicy returns the shipped thresholds.
func DefaultTierPolicy() TierPolicy {
	return TierPolicy{
		FeeOverpriced:   0.5,
		FeeHigh:         0.1,
		FeeCompetitive:  0.02,
		FeeAggressive:   0.005,
		LatencyCritical: 100,
		LatencyHigh:     30,
		LatencyModerate: 15,
	}
}

// ClassifyFee buckets an average fee percent; nil means the window had no
// fee observations.
func (p TierPolicy) ClassifyFee(avg *big.Rat) string {
	if avg == nil {
		return FeeTierUnknown
	}
	switch {
	case avg.Cmp(ratFromFloat(p.FeeOverpriced)) > 0:
		return FeeTierOverpriced
	case avg.Cmp(ratFromFloat(p.FeeHigh)) > 0:
		return FeeTierHigh
	case avg.Cmp(ratFromFloat(p.FeeCompetitive)) > 0:
		return FeeTierCompetitive
	case avg.Cmp(ratFromFloat(p.FeeAggressive)) > 0:
		return FeeTierAggressive
	default:
		return FeeTierVeryLow
	}
}

// ClassifyLatency buckets a p95 fill latency; nil means the window had no
// fills.
func (p TierPolicy) ClassifyLatency(p95 *uint64) string {
	if p95 == nil {
		return LatencyTierUnknown
	}
	switch {
	case *p95 > p.LatencyCritical:
		return LatencyTierCritical
	case *p95 > p.LatencyHigh:
		return LatencyTierHigh
	case *p95 > p.LatencyModerate:
		return LatencyTierModerate
	default:
		return LatencyTierHealthy
	}
}

// ratFromFloat converts through the shortest decimal rendering so a flag
// value like 0.1 compares as exactly 1/10.
func ratFromFloat(value float64) *big.Rat {
	rat, ok := new(big.Rat).SetString(strconv.FormatFloat(value, 'f', -1, 64))
	if !ok {
		return new(big.Rat)
	}
	return rat
}
