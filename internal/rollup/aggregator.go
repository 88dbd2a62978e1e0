package rollup

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
	"bridgeScope/internal/registry"
)

// Config controls rollup behavior.
type Config struct {
	WindowSeconds uint64
	Policy        TierPolicy
}

// Aggregator folds canonical transfer and refund rows into route and
// settlement window stats. Transfers bucket by deposit timestamp, refunds
// by refund timestamp.
type Aggregator struct {
	cfg         Config
	chains      *registry.ChainRegistry
	logger      *zap.Logger
	routes      map[routeKey]*routeAccumulator
	settlements map[settlementKey]*settlementAccumulator
	failed      uint64
}

// NewAggregator builds an Aggregator. A zero window defaults to one hour and
// a zero policy to the shipped thresholds.
func NewAggregator(cfg Config, chains *registry.ChainRegistry, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowSeconds == 0 {
		cfg.WindowSeconds = 3600
	}
	if cfg.Policy == (TierPolicy{}) {
		cfg.Policy = DefaultTierPolicy()
	}
	return &Aggregator{
		cfg:         cfg,
		chains:      chains,
		logger:      logger,
		routes:      make(map[routeKey]*routeAccumulator),
		settlements: make(map[settlementKey]*settlementAccumulator),
	}
}

// AddTransfer folds one matched transfer into its route window.
func (a *Aggregator) AddTransfer(transfer model.MatchedTransfer) {
	key := routeKey{
		WindowStart: windowStart(transfer.DepositTimestamp, a.cfg.WindowSeconds),
		Origin:      transfer.OriginChainID,
		Destination: transfer.DestinationChainID,
		InputSymbol: transfer.InputSymbol,
	}
	acc := a.routes[key]
	if acc == nil {
		acc = newRouteAccumulator()
		a.routes[key] = acc
	}
	if err := acc.addTransfer(transfer); err != nil {
		a.failed++
		a.logger.Warn("aggregate transfer",
			zap.Error(err),
			zap.Uint64("deposit_id", transfer.DepositID),
			zap.Uint64("origin", transfer.OriginChainID),
		)
	}
}

// AddRefund folds one refund record into its settlement window.
func (a *Aggregator) AddRefund(record model.RefundRecord) {
	key := settlementKey{
		WindowStart: windowStart(record.Timestamp, a.cfg.WindowSeconds),
		ChainID:     record.ChainID,
		TokenSymbol: record.TokenSymbol,
	}
	acc := a.settlements[key]
	if acc == nil {
		acc = newSettlementAccumulator()
		a.settlements[key] = acc
	}
	if err := acc.addRefund(record); err != nil {
		a.failed++
		a.logger.Warn("aggregate refund",
			zap.Error(err),
			zap.String("refund_id", record.RefundID),
		)
	}
}

// Failed reports how many rows were rejected while folding.
func (a *Aggregator) Failed() uint64 {
	return a.failed
}

// RouteStats flushes the route windows, sorted by (window, origin,
// destination, symbol).
func (a *Aggregator) RouteStats() []model.RouteWindowStats {
	keys := make([]routeKey, 0, len(a.routes))
	for key := range a.routes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ka, kb := keys[i], keys[j]
		if ka.WindowStart != kb.WindowStart {
			return ka.WindowStart < kb.WindowStart
		}
		if ka.Origin != kb.Origin {
			return ka.Origin < kb.Origin
		}
		if ka.Destination != kb.Destination {
			return ka.Destination < kb.Destination
		}
		return ka.InputSymbol < kb.InputSymbol
	})

	out := make([]model.RouteWindowStats, 0, len(keys))
	for _, key := range keys {
		acc := a.routes[key]
		avgFee := acc.avgFee()
		p95 := percentile95(acc.latencies)
		topShare, hhi := concentration(acc.fillsByRelayer, acc.fillCount)

		stats := model.RouteWindowStats{
			ChainIDFrom:        key.Origin,
			ChainIDTo:          key.Destination,
			Route:              fmt.Sprintf("%s → %s", a.chains.Name(key.Origin), a.chains.Name(key.Destination)),
			InputSymbol:        key.InputSymbol,
			WindowSizeSecs:     int64(a.cfg.WindowSeconds),
			WindowStart:        time.Unix(int64(key.WindowStart), 0).UTC(),
			WindowEnd:          time.Unix(int64(key.WindowStart+a.cfg.WindowSeconds), 0).UTC(),
			DepositCount:       acc.depositCount,
			FillCount:          acc.fillCount,
			FillRatePercent:    ratePercent(acc.fillCount, acc.depositCount),
			TotalInputAmount:   acc.totalInput.FloatString(acc.inputDigits),
			AvgFeePercent:      nil,
			P95LatencySeconds:  p95,
			FeeTier:            a.cfg.Policy.ClassifyFee(avgFee),
			LatencyTier:        a.cfg.Policy.ClassifyLatency(p95),
			UniqueDepositors:   acc.depositors.Estimate(),
			UniqueRelayers:     acc.relayers.Estimate(),
			TopRelayerShare:    topShare,
			RelayerHHI:         hhi,
			LowConfidenceCount: acc.lowConfidence,
		}
		if avgFee != nil {
			text := avgFee.FloatString(percentDigits)
			stats.AvgFeePercent = &text
		}
		if acc.usdCount > 0 {
			text := acc.totalInputUSD.FloatString(2)
			stats.TotalInputUSD = &text
		}
		out = append(out, stats)
		metrics.RouteWindowsTotal.Inc()
	}
	return out
}

// SettlementStats flushes the settlement windows, sorted by (window, chain,
// symbol).
func (a *Aggregator) SettlementStats() []model.SettlementWindowStats {
	keys := make([]settlementKey, 0, len(a.settlements))
	for key := range a.settlements {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ka, kb := keys[i], keys[j]
		if ka.WindowStart != kb.WindowStart {
			return ka.WindowStart < kb.WindowStart
		}
		if ka.ChainID != kb.ChainID {
			return ka.ChainID < kb.ChainID
		}
		return ka.TokenSymbol < kb.TokenSymbol
	})

	out := make([]model.SettlementWindowStats, 0, len(keys))
	for _, key := range keys {
		acc := a.settlements[key]
		stats := model.SettlementWindowStats{
			ChainID:              key.ChainID,
			ChainName:            a.chains.Name(key.ChainID),
			TokenSymbol:          key.TokenSymbol,
			WindowSizeSecs:       int64(a.cfg.WindowSeconds),
			WindowStart:          time.Unix(int64(key.WindowStart), 0).UTC(),
			WindowEnd:            time.Unix(int64(key.WindowStart+a.cfg.WindowSeconds), 0).UTC(),
			RefundCount:          acc.refundCount,
			MatchedCount:         acc.matchedCount,
			DeferredCount:        acc.deferredCount,
			TotalRefundAmount:    acc.totalRefund.FloatString(acc.amountDigits),
			AvgSettlementSeconds: meanSeconds(acc.settlements),
			P95SettlementSeconds: percentile95(acc.settlements),
		}
		if acc.usdCount > 0 {
			text := acc.totalUSD.FloatString(2)
			stats.TotalRefundUSD = &text
		}
		out = append(out, stats)
		metrics.SettlementWindowsTotal.Inc()
	}
	return out
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - ts%windowSec
}
