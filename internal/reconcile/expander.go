package reconcile

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
	"bridgeScope/internal/registry"
)

// ExpandOutput holds the per-relayer refund records plus the batches that
// had to be excluded.
type ExpandOutput struct {
	Records    []model.RefundRecord
	Malformed  []model.MalformedBatch
	Unresolved map[tokenKey]uint64
	PriceGaps  map[bucketKey]uint64
}

// Expander explodes refund batches into per-relayer refund records.
type Expander struct {
	tokens *registry.TokenRegistry
	prices *registry.PriceBook
}

// NewExpander builds an Expander over loaded registries.
func NewExpander(tokens *registry.TokenRegistry, prices *registry.PriceBook) *Expander {
	return &Expander{tokens: tokens, prices: prices}
}

// Expand turns every aligned batch into refund_count records and rejects
// misaligned ones whole. A batch never expands partially. Records come back
// sorted by (tx hash, leaf, refund index).
func (e *Expander) Expand(batches []model.RefundBatch) ExpandOutput {
	out := ExpandOutput{
		Unresolved: make(map[tokenKey]uint64),
		PriceGaps:  make(map[bucketKey]uint64),
	}
	for _, batch := range batches {
		e.expandBatch(&out, batch)
	}
	sort.Slice(out.Records, func(a, b int) bool {
		ra, rb := out.Records[a], out.Records[b]
		if ra.TxHash != rb.TxHash {
			return ra.TxHash < rb.TxHash
		}
		if ra.LeafID != rb.LeafID {
			return ra.LeafID < rb.LeafID
		}
		return ra.RefundIndex < rb.RefundIndex
	})
	return out
}

func (e *Expander) expandBatch(out *ExpandOutput, batch model.RefundBatch) {
	if !batch.Aligned() {
		e.rejectBatch(out, batch, "parallel arrays disagree with refund_count")
		return
	}

	totalRaw, err := parseRawAmount(batch.TotalRefundAmountRaw)
	if err != nil {
		e.rejectBatch(out, batch, fmt.Sprintf("total refund amount: %v", err))
		return
	}
	rowsRaw := make([]*big.Int, batch.RefundCount)
	for i, text := range batch.RefundAmountsRaw {
		raw, err := parseRawAmount(text)
		if err != nil {
			e.rejectBatch(out, batch, fmt.Sprintf("refund amount %d: %v", i+1, err))
			return
		}
		rowsRaw[i] = raw
	}

	res := e.tokens.ResolveOrFallback(batch.ChainID, batch.TokenAddress)
	if !res.Resolved {
		out.Unresolved[tokenKey{ChainID: batch.ChainID, Address: batch.TokenAddress}]++
		metrics.UnresolvedTokensTotal.WithLabelValues(strconv.FormatUint(batch.ChainID, 10)).Inc()
		metrics.FallbackRescalesTotal.Inc()
	}

	// Rows rescale through the batch total's ratio rather than a per-row
	// decimals division, so the rescaled rows sum exactly to the rescaled
	// total no matter what the registry said.
	totalHuman := humanRat(totalRaw, res.Decimals)
	var scale *big.Rat
	if totalRaw.Sign() != 0 {
		scale = new(big.Rat).Quo(totalHuman, new(big.Rat).SetInt(totalRaw))
	}

	for i, raw := range rowsRaw {
		amount := humanRat(raw, res.Decimals)
		if scale != nil {
			amount = new(big.Rat).Mul(new(big.Rat).SetInt(raw), scale)
		}
		record := model.RefundRecord{
			RefundID:      model.RefundRecordID(batch.TxHash, batch.LeafID, i+1),
			TxHash:        batch.TxHash,
			LeafID:        batch.LeafID,
			RefundIndex:   i + 1,
			RootBundleID:  batch.RootBundleID,
			ChainID:       batch.ChainID,
			Timestamp:     batch.Timestamp,
			Relayer:       batch.Relayers[i],
			TokenAddress:  batch.TokenAddress,
			TokenSymbol:   res.Symbol,
			AmountRaw:     raw.String(),
			Amount:        formatRat(amount, int(res.Decimals)),
			LowConfidence: !res.Resolved,
			Deferred:      batch.Deferred,
		}
		if res.Resolved {
			if usd, ok := e.usdValue(out, res.Symbol, batch.Timestamp, amount); ok {
				record.AmountUSD = &usd
			}
		}
		out.Records = append(out.Records, record)
	}
}

func (e *Expander) rejectBatch(out *ExpandOutput, batch model.RefundBatch, reason string) {
	out.Malformed = append(out.Malformed, model.MalformedBatch{
		ChainID:      batch.ChainID,
		TxHash:       batch.TxHash,
		RootBundleID: batch.RootBundleID,
		LeafID:       batch.LeafID,
		RefundCount:  batch.RefundCount,
		RelayerLen:   len(batch.Relayers),
		AmountLen:    len(batch.RefundAmountsRaw),
		Error:        reason,
	})
	metrics.MalformedBatchesTotal.WithLabelValues(strconv.FormatUint(batch.ChainID, 10)).Inc()
}

func (e *Expander) usdValue(out *ExpandOutput, symbol string, ts uint64, amount *big.Rat) (string, bool) {
	quote, ok := e.prices.At(symbol, ts)
	if !ok {
		out.PriceGaps[bucketKey{Symbol: symbol, Bucket: registry.HourBucket(ts)}]++
		metrics.MissingPriceTotal.WithLabelValues(symbol).Inc()
		return "", false
	}
	return usdString(new(big.Rat).Mul(amount, quote.Price)), true
}
