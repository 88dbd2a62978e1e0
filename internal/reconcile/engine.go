package reconcile

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
	"bridgeScope/internal/normalize"
	"bridgeScope/internal/registry"
)

// Result is everything one reconcile run produces: the canonical outputs,
// the data-quality reports, and the counters for the run manifest.
type Result struct {
	Transfers        []model.MatchedTransfer
	RefundRecords    []model.RefundRecord
	Duplicates       []model.DuplicateFill
	MalformedBatches []model.MalformedBatch
	UnresolvedTokens []model.UnresolvedToken
	PriceGaps        []model.PriceGap
	Counts           map[string]uint64
}

// Engine drives matching, refund expansion, and settlement correlation over
// unified inputs.
type Engine struct {
	matcher  *Matcher
	expander *Expander
	lookback time.Duration
	workers  int
	logger   *zap.Logger
}

// NewEngine wires an Engine over loaded registries.
func NewEngine(chains *registry.ChainRegistry, tokens *registry.TokenRegistry, prices *registry.PriceBook, lookback time.Duration, workers int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Engine{
		matcher:  NewMatcher(chains, tokens, prices),
		expander: NewExpander(tokens, prices),
		lookback: lookback,
		workers:  workers,
		logger:   logger,
	}
}

// Run reconciles one snapshot. Inputs are re-sorted and de-duplicated on the
// way in, so the result does not depend on file order. Partitions run on
// workers goroutines writing private result slots; only the merge touches
// shared state, after the group waits.
func (e *Engine) Run(ctx context.Context, deposits []model.Deposit, fills []model.Fill, batches []model.RefundBatch) (Result, error) {
	normalize.SortDeposits(deposits)
	deposits = normalize.DedupDeposits(deposits)
	normalize.SortFills(fills)
	fills = normalize.DedupFills(fills)
	normalize.SortRefundBatches(batches)
	batches = normalize.DedupRefundBatches(batches)

	result := Result{Counts: make(map[string]uint64)}
	unresolved := make(map[tokenKey]uint64)
	gaps := make(map[bucketKey]uint64)

	matchStart := time.Now()
	routes := partitionRoutes(deposits, fills)
	matchResults := make([]MatchOutput, len(routes))
	matchGroup, matchCtx := errgroup.WithContext(ctx)
	matchGroup.SetLimit(e.workers)
	for i := range routes {
		i := i
		matchGroup.Go(func() error {
			if err := matchCtx.Err(); err != nil {
				return err
			}
			matchResults[i] = e.matcher.Match(routes[i].Deposits, routes[i].Fills)
			return nil
		})
	}
	if err := matchGroup.Wait(); err != nil {
		return Result{}, err
	}
	var negativeFees, skipped uint64
	for _, mr := range matchResults {
		result.Transfers = append(result.Transfers, mr.Transfers...)
		result.Duplicates = append(result.Duplicates, mr.Duplicates...)
		for key, n := range mr.Unresolved {
			unresolved[key] += n
		}
		for key, n := range mr.PriceGaps {
			gaps[key] += n
		}
		negativeFees += mr.NegativeFees
		skipped += mr.Skipped
	}
	metrics.StageDuration.WithLabelValues("match").Observe(time.Since(matchStart).Seconds())

	expandStart := time.Now()
	chains := partitionBatches(batches)
	expandResults := make([]ExpandOutput, len(chains))
	expandGroup, expandCtx := errgroup.WithContext(ctx)
	expandGroup.SetLimit(e.workers)
	for i := range chains {
		i := i
		expandGroup.Go(func() error {
			if err := expandCtx.Err(); err != nil {
				return err
			}
			expandResults[i] = e.expander.Expand(chains[i].Batches)
			return nil
		})
	}
	if err := expandGroup.Wait(); err != nil {
		return Result{}, err
	}
	for _, er := range expandResults {
		result.RefundRecords = append(result.RefundRecords, er.Records...)
		result.MalformedBatches = append(result.MalformedBatches, er.Malformed...)
		for key, n := range er.Unresolved {
			unresolved[key] += n
		}
		for key, n := range er.PriceGaps {
			gaps[key] += n
		}
	}
	sort.Slice(result.RefundRecords, func(a, b int) bool {
		ra, rb := result.RefundRecords[a], result.RefundRecords[b]
		if ra.TxHash != rb.TxHash {
			return ra.TxHash < rb.TxHash
		}
		if ra.LeafID != rb.LeafID {
			return ra.LeafID < rb.LeafID
		}
		return ra.RefundIndex < rb.RefundIndex
	})
	metrics.StageDuration.WithLabelValues("expand").Observe(time.Since(expandStart).Seconds())

	correlateStart := time.Now()
	matched := NewCorrelator(fills, e.lookback).Correlate(result.RefundRecords)
	metrics.StageDuration.WithLabelValues("correlate").Observe(time.Since(correlateStart).Seconds())

	result.UnresolvedTokens = flattenUnresolved(unresolved)
	result.PriceGaps = flattenPriceGaps(gaps)

	var filled uint64
	for _, transfer := range result.Transfers {
		if transfer.IsFilled {
			filled++
		}
	}
	result.Counts["deposits"] = uint64(len(deposits))
	result.Counts["fills"] = uint64(len(fills))
	result.Counts["refund_batches"] = uint64(len(batches))
	result.Counts["transfers"] = uint64(len(result.Transfers))
	result.Counts["filled"] = filled
	result.Counts["unfilled"] = uint64(len(result.Transfers)) - filled
	result.Counts["duplicate_fills"] = uint64(len(result.Duplicates))
	result.Counts["orphan_fills"] = orphanFills(deposits, fills)
	result.Counts["refund_records"] = uint64(len(result.RefundRecords))
	result.Counts["malformed_batches"] = uint64(len(result.MalformedBatches))
	result.Counts["matched_refunds"] = matched
	result.Counts["unresolved_tokens"] = uint64(len(result.UnresolvedTokens))
	result.Counts["price_gaps"] = uint64(len(result.PriceGaps))
	result.Counts["negative_fees"] = negativeFees
	result.Counts["skipped_records"] = skipped

	e.logger.Info("reconcile complete",
		zap.Uint64("deposits", result.Counts["deposits"]),
		zap.Uint64("fills", result.Counts["fills"]),
		zap.Uint64("transfers", result.Counts["transfers"]),
		zap.Uint64("filled", filled),
		zap.Uint64("refund_records", result.Counts["refund_records"]),
		zap.Uint64("matched_refunds", matched),
		zap.Uint64("skipped_records", result.Counts["skipped_records"]),
	)
	return result, nil
}

// orphanFills counts fills whose transfer key matches no deposit. They
// produce no transfer row but still feed the settlement correlator.
func orphanFills(deposits []model.Deposit, fills []model.Fill) uint64 {
	keys := make(map[model.TransferKey]struct{}, len(deposits))
	for _, deposit := range deposits {
		keys[deposit.Key()] = struct{}{}
	}
	var orphans uint64
	for _, fill := range fills {
		if _, ok := keys[fill.Key()]; !ok {
			orphans++
		}
	}
	return orphans
}

func flattenUnresolved(counts map[tokenKey]uint64) []model.UnresolvedToken {
	out := make([]model.UnresolvedToken, 0, len(counts))
	for key, n := range counts {
		out = append(out, model.UnresolvedToken{ChainID: key.ChainID, Address: key.Address, Occurrences: n})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].ChainID != out[b].ChainID {
			return out[a].ChainID < out[b].ChainID
		}
		return out[a].Address < out[b].Address
	})
	return out
}

func flattenPriceGaps(counts map[bucketKey]uint64) []model.PriceGap {
	out := make([]model.PriceGap, 0, len(counts))
	for key, n := range counts {
		out = append(out, model.PriceGap{Symbol: key.Symbol, HourBucket: key.Bucket, Occurrences: n})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Symbol != out[b].Symbol {
			return out[a].Symbol < out[b].Symbol
		}
		return out[a].HourBucket < out[b].HourBucket
	})
	return out
}
