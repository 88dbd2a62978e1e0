package reconcile

import (
	"math/big"
	"sort"
	"strconv"

	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
	"bridgeScope/internal/registry"
)

// tokenKey identifies a token scoped by chain.
type tokenKey struct {
	ChainID uint64
	Address string
}

// bucketKey identifies one missing price observation.
type bucketKey struct {
	Symbol string
	Bucket uint64
}

// MatchOutput holds the matched transfers of one partition plus the
// data-quality events observed while producing them.
type MatchOutput struct {
	Transfers    []model.MatchedTransfer
	Duplicates   []model.DuplicateFill
	Unresolved   map[tokenKey]uint64
	PriceGaps    map[bucketKey]uint64
	NegativeFees uint64
	Skipped      uint64
}

func newMatchOutput() MatchOutput {
	return MatchOutput{
		Unresolved: make(map[tokenKey]uint64),
		PriceGaps:  make(map[bucketKey]uint64),
	}
}

// Matcher reconciles deposits against fills. Every referenced registry is
// immutable after load, so one Matcher serves all partitions concurrently.
type Matcher struct {
	chains *registry.ChainRegistry
	tokens *registry.TokenRegistry
	prices *registry.PriceBook
}

// NewMatcher builds a Matcher over loaded registries.
func NewMatcher(chains *registry.ChainRegistry, tokens *registry.TokenRegistry, prices *registry.PriceBook) *Matcher {
	return &Matcher{chains: chains, tokens: tokens, prices: prices}
}

// Match produces one MatchedTransfer per deposit. A deposit with no fill
// stays in the output as stuck capital; a deposit with more than one
// candidate fill is surfaced as a duplicate anomaly and left unmatched.
// Output order follows deposit input order.
func (m *Matcher) Match(deposits []model.Deposit, fills []model.Fill) MatchOutput {
	out := newMatchOutput()

	fillsByKey := make(map[model.TransferKey][]model.Fill, len(fills))
	for _, fill := range fills {
		key := fill.Key()
		fillsByKey[key] = append(fillsByKey[key], fill)
	}

	out.Transfers = make([]model.MatchedTransfer, 0, len(deposits))
	for _, deposit := range deposits {
		transfer, ok := m.buildTransfer(&out, deposit, fillsByKey[deposit.Key()])
		if !ok {
			out.Skipped++
			continue
		}
		metrics.MatchedTransfersTotal.WithLabelValues(strconv.FormatBool(transfer.IsFilled)).Inc()
		out.Transfers = append(out.Transfers, transfer)
	}

	return out
}

func (m *Matcher) buildTransfer(out *MatchOutput, deposit model.Deposit, candidates []model.Fill) (model.MatchedTransfer, bool) {
	inputRes := m.resolveToken(out, deposit.OriginChainID, deposit.InputToken)
	outputRes := m.resolveOutputToken(out, deposit)

	inputRaw, err := parseRawAmount(deposit.InputAmountRaw)
	if err != nil {
		return model.MatchedTransfer{}, false
	}
	expectedRaw, err := parseRawAmount(deposit.OutputAmountRaw)
	if err != nil {
		return model.MatchedTransfer{}, false
	}
	inputHuman := humanRat(inputRaw, inputRes.Decimals)

	transfer := model.MatchedTransfer{
		DepositID:          deposit.DepositID,
		OriginChainID:      deposit.OriginChainID,
		DestinationChainID: deposit.DestinationChainID,
		DepositTimestamp:   deposit.Timestamp,
		DepositTxHash:      deposit.TxHash,
		Depositor:          deposit.Depositor,
		Recipient:          deposit.Recipient,
		InputToken:         deposit.InputToken,
		OutputToken:        deposit.OutputToken,
		InputSymbol:        inputRes.Symbol,
		OutputSymbol:       outputRes.Symbol,
		InputDecimals:      inputRes.Decimals,
		OutputDecimals:     outputRes.Decimals,
		InputAmountRaw:     inputRaw.String(),
		InputAmount:        formatAmount(inputRaw, inputRes.Decimals),
		ExpectedOutputRaw:  expectedRaw.String(),
		ExpectedOutput:     formatAmount(expectedRaw, outputRes.Decimals),
		LowConfidence:      !inputRes.Resolved || !outputRes.Resolved,
	}

	if inputRes.Resolved {
		if usd, source, ok := m.usdValue(out, inputRes.Symbol, deposit.Timestamp, inputHuman); ok {
			transfer.InputAmountUSD = &usd
			transfer.PriceSource = source
		}
	}

	switch len(candidates) {
	case 0:
		// stuck capital: fill fields stay nil
	case 1:
		if !m.applyFill(out, &transfer, deposit, candidates[0], inputHuman, expectedRaw, inputRes, outputRes) {
			return model.MatchedTransfer{}, false
		}
	default:
		hashes := make([]string, 0, len(candidates))
		for _, fill := range candidates {
			hashes = append(hashes, fill.TxHash)
		}
		sort.Strings(hashes)
		out.Duplicates = append(out.Duplicates, model.DuplicateFill{
			DepositID:          deposit.DepositID,
			OriginChainID:      deposit.OriginChainID,
			DestinationChainID: deposit.DestinationChainID,
			FillCount:          len(candidates),
			TxHashes:           hashes,
		})
		metrics.DuplicateFillsTotal.Inc()
		// The deposit stays unmatched until the anomaly is resolved.
	}

	return transfer, true
}

func (m *Matcher) applyFill(out *MatchOutput, transfer *model.MatchedTransfer, deposit model.Deposit, fill model.Fill, inputHuman *big.Rat, expectedRaw *big.Int, inputRes, outputRes registry.Resolution) bool {
	fillRaw, err := parseRawAmount(fill.OutputAmountRaw)
	if err != nil {
		return false
	}
	fillHuman := humanRat(fillRaw, outputRes.Decimals)

	transfer.IsFilled = true
	ts := fill.Timestamp
	transfer.FillTimestamp = &ts
	txHash := fill.TxHash
	transfer.FillTxHash = &txHash
	relayer := fill.Relayer
	transfer.Relayer = &relayer
	if fill.RepaymentChainID > 0 {
		repayment := fill.RepaymentChainID
		transfer.RepaymentChainID = &repayment
	}

	// Cross-chain clocks can disagree; a fill recorded before its deposit is
	// clamped to zero and flagged rather than reported as negative latency.
	latency := uint64(0)
	if fill.Timestamp >= deposit.Timestamp {
		latency = fill.Timestamp - deposit.Timestamp
	} else {
		transfer.LatencyClamped = true
	}
	transfer.FillLatencySeconds = &latency

	fillRawText := fillRaw.String()
	transfer.FillAmountRaw = &fillRawText
	fillAmount := formatAmount(fillRaw, outputRes.Decimals)
	transfer.FillAmount = &fillAmount

	if outputRes.Resolved {
		if usd, _, ok := m.usdValue(out, outputRes.Symbol, fill.Timestamp, fillHuman); ok {
			transfer.FillAmountUSD = &usd
		}
	}

	// All-in fee: what the depositor put in minus what was delivered,
	// rendered at whichever side carries more precision so it stays exact.
	fee := new(big.Rat).Sub(inputHuman, fillHuman)
	feeScale := int(inputRes.Decimals)
	if int(outputRes.Decimals) > feeScale {
		feeScale = int(outputRes.Decimals)
	}
	feeText := formatRat(fee, feeScale)
	transfer.BridgeFeeNominal = &feeText
	if fee.Sign() < 0 {
		out.NegativeFees++
		metrics.NegativeFeesTotal.Inc()
	}

	if inputHuman.Sign() != 0 {
		pct := percentString(mulPercent(fee, inputHuman))
		transfer.BridgeFeePercent = &pct
	}

	if expectedRaw.Sign() > 0 {
		expectedHuman := humanRat(expectedRaw, outputRes.Decimals)
		shortfall := new(big.Rat).Sub(expectedHuman, fillHuman)
		slip := percentString(mulPercent(shortfall, expectedHuman))
		transfer.SlippagePercent = &slip
	}

	transfer.GasCostUSD = m.gasCost(out, fill)
	return true
}

// gasCost prices the fill transaction's gas in the destination chain's own
// native currency, never a global ETH proxy. Nil when the fill carries no
// gas data or the native price bucket is missing.
func (m *Matcher) gasCost(out *MatchOutput, fill model.Fill) *string {
	if fill.GasPrice == "" || fill.GasUsed == 0 {
		return nil
	}
	gasPrice, err := parseRawAmount(fill.GasPrice)
	if err != nil {
		return nil
	}
	nativeSymbol, ok := m.chains.NativeSymbol(fill.DestinationChainID)
	if !ok {
		return nil
	}
	wei := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(fill.GasUsed))
	native := humanRat(wei, weiDecimals)
	usd, _, ok := m.usdValue(out, nativeSymbol, fill.Timestamp, native)
	if !ok {
		return nil
	}
	return &usd
}

// usdValue converts an amount at the symbol's hourly price, recording a
// coverage gap when no bucket exists.
func (m *Matcher) usdValue(out *MatchOutput, symbol string, ts uint64, amount *big.Rat) (string, string, bool) {
	quote, ok := m.prices.At(symbol, ts)
	if !ok {
		out.PriceGaps[bucketKey{Symbol: symbol, Bucket: registry.HourBucket(ts)}]++
		metrics.MissingPriceTotal.WithLabelValues(symbol).Inc()
		return "", "", false
	}
	usd := new(big.Rat).Mul(amount, quote.Price)
	return usdString(usd), quote.Source, true
}

func (m *Matcher) resolveToken(out *MatchOutput, chainID uint64, address string) registry.Resolution {
	res := m.tokens.ResolveOrFallback(chainID, address)
	if !res.Resolved {
		out.Unresolved[tokenKey{ChainID: chainID, Address: address}]++
		metrics.UnresolvedTokensTotal.WithLabelValues(strconv.FormatUint(chainID, 10)).Inc()
		metrics.FallbackRescalesTotal.Inc()
	}
	return res
}

// resolveOutputToken applies the native-output policy: a zero output address
// is denominated in the input token's scale by protocol convention, so
// resolution reuses the input token on the origin chain.
func (m *Matcher) resolveOutputToken(out *MatchOutput, deposit model.Deposit) registry.Resolution {
	if registry.IsZeroAddress(deposit.OutputToken) {
		return m.resolveToken(out, deposit.OriginChainID, deposit.InputToken)
	}
	return m.resolveToken(out, deposit.DestinationChainID, deposit.OutputToken)
}
