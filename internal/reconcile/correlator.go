package reconcile

import (
	"sort"
	"time"

	"bridgeScope/internal/model"
)

// DefaultLookback bounds how far back a refund searches for the relayer
// activity that earned it.
const DefaultLookback = 168 * time.Hour

type relayerChainKey struct {
	Relayer string
	ChainID uint64
}

// Correlator links refund records to the most recent fill by the same
// relayer on the refund chain. Refund batches settle many fills at once, so
// the true originating fill is unrecoverable; the latest one inside the
// lookback window is the documented approximation.
type Correlator struct {
	lookback  uint64
	fillTimes map[relayerChainKey][]uint64
}

// NewCorrelator indexes fill timestamps per (relayer, destination chain).
func NewCorrelator(fills []model.Fill, lookback time.Duration) *Correlator {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	times := make(map[relayerChainKey][]uint64)
	for _, fill := range fills {
		key := relayerChainKey{Relayer: fill.Relayer, ChainID: fill.DestinationChainID}
		times[key] = append(times[key], fill.Timestamp)
	}
	for key := range times {
		sort.Slice(times[key], func(a, b int) bool { return times[key][a] < times[key][b] })
	}
	return &Correlator{
		lookback:  uint64(lookback / time.Second),
		fillTimes: times,
	}
}

// Correlate annotates records in place with the matched fill timestamp and
// settlement delay, returning how many records found a match. Records with
// no fill in the window keep nil fields and stay out of settlement
// aggregates.
func (c *Correlator) Correlate(records []model.RefundRecord) uint64 {
	var matched uint64
	for i := range records {
		fillTs, ok := c.match(records[i].Relayer, records[i].ChainID, records[i].Timestamp)
		if !ok {
			continue
		}
		delta := records[i].Timestamp - fillTs
		records[i].MatchedFillTimestamp = &fillTs
		records[i].SettlementSeconds = &delta
		matched++
	}
	return matched
}

// match finds the newest fill strictly inside (refundTs - lookback, refundTs).
func (c *Correlator) match(relayer string, chainID, refundTs uint64) (uint64, bool) {
	times := c.fillTimes[relayerChainKey{Relayer: relayer, ChainID: chainID}]
	if len(times) == 0 {
		return 0, false
	}
	idx := sort.Search(len(times), func(i int) bool { return times[i] >= refundTs })
	if idx == 0 {
		return 0, false
	}
	candidate := times[idx-1]
	if refundTs > c.lookback && candidate <= refundTs-c.lookback {
		return 0, false
	}
	return candidate, true
}
