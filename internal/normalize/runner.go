package normalize

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
	"bridgeScope/internal/registry"
)

// Source identifies one raw event file: the chain it came from, the event
// kind it carries, and its path.
type Source struct {
	ChainID uint64
	Kind    string
	Path    string
}

// SourceCount summarizes one source's outcome.
type SourceCount struct {
	ChainID uint64 `json:"chain_id"`
	Kind    string `json:"kind"`
	Read    uint64 `json:"read"`
	Kept    uint64 `json:"kept"`
	Dropped uint64 `json:"dropped"`
}

// Result holds the unified output of one normalize run. The slices are
// sorted and de-duplicated, so identical inputs produce identical results.
type Result struct {
	Deposits []model.Deposit
	Fills    []model.Fill
	Batches  []model.RefundBatch
	Dropped  []model.DroppedRecord
	Sources  []SourceCount
}

type sourceResult struct {
	deposits []model.Deposit
	fills    []model.Fill
	batches  []model.RefundBatch
	dropped  []model.DroppedRecord
	count    SourceCount
}

// Runner normalizes every configured source concurrently and merges the
// outputs at the unifier boundary.
type Runner struct {
	sources    []Source
	normalizer *Normalizer
	workers    int
	logger     *zap.Logger
}

// NewRunner validates the source list against the chain registry and builds
// a Runner.
func NewRunner(sources []Source, chains *registry.ChainRegistry, mappings Mappings, workers int, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	for _, src := range sources {
		switch src.Kind {
		case KindDeposit, KindFill, KindRefund:
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", src.Path, src.Kind)
		}
		if !chains.Contains(src.ChainID) {
			return nil, fmt.Errorf("source %q: unknown chain %d", src.Path, src.ChainID)
		}
		if src.Path == "" {
			return nil, fmt.Errorf("source chain %d kind %s: path is required", src.ChainID, src.Kind)
		}
	}

	return &Runner{
		sources:    sources,
		normalizer: NewNormalizer(chains, mappings),
		workers:    workers,
		logger:     logger,
	}, nil
}

// Run executes one worker per source under a bounded errgroup, then unifies
// all outputs into sorted, de-duplicated streams. A malformed record only
// costs that record; an unreadable source file fails the run.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	results := make([]sourceResult, len(r.sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, src := range r.sources {
		i, src := i, src
		g.Go(func() error {
			res, err := r.runSource(ctx, src)
			if err != nil {
				return fmt.Errorf("source %q: %w", src.Path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var out Result
	for i := range results {
		out.Deposits = append(out.Deposits, results[i].deposits...)
		out.Fills = append(out.Fills, results[i].fills...)
		out.Batches = append(out.Batches, results[i].batches...)
		out.Dropped = append(out.Dropped, results[i].dropped...)
		out.Sources = append(out.Sources, results[i].count)
	}

	SortDeposits(out.Deposits)
	out.Deposits = DedupDeposits(out.Deposits)
	SortFills(out.Fills)
	out.Fills = DedupFills(out.Fills)
	SortRefundBatches(out.Batches)
	out.Batches = DedupRefundBatches(out.Batches)

	r.logger.Info("normalize complete",
		zap.Int("deposits", len(out.Deposits)),
		zap.Int("fills", len(out.Fills)),
		zap.Int("refund_batches", len(out.Batches)),
		zap.Int("dropped", len(out.Dropped)),
	)

	return out, nil
}

func (r *Runner) runSource(ctx context.Context, src Source) (sourceResult, error) {
	file, err := os.Open(src.Path)
	if err != nil {
		return sourceResult{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	res := sourceResult{count: SourceCount{ChainID: src.ChainID, Kind: src.Kind}}
	chainLabel := strconv.FormatUint(src.ChainID, 10)

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return sourceResult{}, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		res.count.Read++
		metrics.RecordsTotal.WithLabelValues(chainLabel, src.Kind).Inc()

		fields, err := decodeRawEvent(line)
		if err != nil {
			r.dropRecord(&res, src, chainLabel, nil, fmt.Errorf("invalid json: %w", err))
			continue
		}

		switch src.Kind {
		case KindDeposit:
			deposit, err := r.normalizer.Deposit(src.ChainID, fields)
			if err != nil {
				r.dropRecord(&res, src, chainLabel, fields, err)
				continue
			}
			res.deposits = append(res.deposits, deposit)
		case KindFill:
			fill, err := r.normalizer.Fill(src.ChainID, fields)
			if err != nil {
				r.dropRecord(&res, src, chainLabel, fields, err)
				continue
			}
			res.fills = append(res.fills, fill)
		case KindRefund:
			batch, err := r.normalizer.RefundBatch(src.ChainID, fields)
			if err != nil {
				r.dropRecord(&res, src, chainLabel, fields, err)
				continue
			}
			res.batches = append(res.batches, batch)
		}
		res.count.Kept++
	}
	if err := scanner.Err(); err != nil {
		return sourceResult{}, fmt.Errorf("scan input: %w", err)
	}

	r.logger.Info("source complete",
		zap.Uint64("chain_id", src.ChainID),
		zap.String("kind", src.Kind),
		zap.Uint64("read", res.count.Read),
		zap.Uint64("kept", res.count.Kept),
		zap.Uint64("dropped", res.count.Dropped),
	)

	return res, nil
}

func (r *Runner) dropRecord(res *sourceResult, src Source, chainLabel string, fields map[string]any, cause error) {
	field := ""
	var dropErr *DropError
	if errors.As(cause, &dropErr) {
		field = dropErr.Field
	}
	reason := field
	if reason == "" {
		reason = "json"
	}
	metrics.DroppedRecordsTotal.WithLabelValues(chainLabel, src.Kind, reason).Inc()

	res.count.Dropped++
	res.dropped = append(res.dropped, model.DroppedRecord{
		ChainID: src.ChainID,
		Kind:    src.Kind,
		TxHash:  r.rawTxHash(src, fields),
		Field:   field,
		Error:   cause.Error(),
	})
	r.logger.Debug("drop record",
		zap.Uint64("chain_id", src.ChainID),
		zap.String("kind", src.Kind),
		zap.Error(cause),
	)
}

// rawTxHash recovers the transaction hash from a rejected record when it
// carries one, so the drop report stays actionable. Best effort, unvalidated.
func (r *Runner) rawTxHash(src Source, fields model.RawEvent) string {
	if fields == nil {
		return ""
	}
	rec := record{fields: fields, fm: r.normalizer.mappings.For(src.ChainID, src.Kind)}
	if s, ok := rec.str("tx_hash"); ok {
		return strings.ToLower(s)
	}
	return ""
}

func decodeRawEvent(line []byte) (model.RawEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var fields model.RawEvent
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// SortDeposits orders deposits by transfer key, then transaction hash.
func SortDeposits(deposits []model.Deposit) {
	sort.Slice(deposits, func(i, j int) bool {
		a, b := deposits[i], deposits[j]
		if a.OriginChainID != b.OriginChainID {
			return a.OriginChainID < b.OriginChainID
		}
		if a.DestinationChainID != b.DestinationChainID {
			return a.DestinationChainID < b.DestinationChainID
		}
		if a.DepositID != b.DepositID {
			return a.DepositID < b.DepositID
		}
		return a.TxHash < b.TxHash
	})
}

// SortFills orders fills by transfer key, then transaction hash.
func SortFills(fills []model.Fill) {
	sort.Slice(fills, func(i, j int) bool {
		a, b := fills[i], fills[j]
		if a.OriginChainID != b.OriginChainID {
			return a.OriginChainID < b.OriginChainID
		}
		if a.DestinationChainID != b.DestinationChainID {
			return a.DestinationChainID < b.DestinationChainID
		}
		if a.DepositID != b.DepositID {
			return a.DepositID < b.DepositID
		}
		return a.TxHash < b.TxHash
	})
}

// SortRefundBatches orders batches by chain, transaction hash, then leaf.
func SortRefundBatches(batches []model.RefundBatch) {
	sort.Slice(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if a.ChainID != b.ChainID {
			return a.ChainID < b.ChainID
		}
		if a.TxHash != b.TxHash {
			return a.TxHash < b.TxHash
		}
		return a.LeafID < b.LeafID
	})
}

// DedupDeposits removes exact re-exports: adjacent records sharing both
// transfer key and transaction hash. Same-key records from different
// transactions are kept so downstream anomaly surfacing sees them.
// Input must be sorted.
func DedupDeposits(deposits []model.Deposit) []model.Deposit {
	if len(deposits) < 2 {
		return deposits
	}
	out := deposits[:1]
	for _, d := range deposits[1:] {
		last := out[len(out)-1]
		if d.Key() == last.Key() && d.TxHash == last.TxHash {
			continue
		}
		out = append(out, d)
	}
	return out
}

// DedupFills removes exact re-exports the same way DedupDeposits does.
func DedupFills(fills []model.Fill) []model.Fill {
	if len(fills) < 2 {
		return fills
	}
	out := fills[:1]
	for _, f := range fills[1:] {
		last := out[len(out)-1]
		if f.Key() == last.Key() && f.TxHash == last.TxHash {
			continue
		}
		out = append(out, f)
	}
	return out
}

// DedupRefundBatches removes exact re-exports sharing (chain, tx, leaf).
// Input must be sorted.
func DedupRefundBatches(batches []model.RefundBatch) []model.RefundBatch {
	if len(batches) < 2 {
		return batches
	}
	out := batches[:1]
	for _, b := range batches[1:] {
		last := out[len(out)-1]
		if b.ChainID == last.ChainID && b.TxHash == last.TxHash && b.LeafID == last.LeafID {
			continue
		}
		out = append(out, b)
	}
	return out
}
