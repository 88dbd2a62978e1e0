package rollup

import (
	"fmt"
	"math/big"

	"github.com/axiomhq/hyperloglog"

	"bridgeScope/internal/model"
)

// routeKey identifies one (window, route, input symbol) aggregate.
type routeKey struct {
	WindowStart uint64
	Origin      uint64
	Destination uint64
	InputSymbol string
}

// routeAccumulator holds running aggregates for one route window.
type routeAccumulator struct {
	depositCount   uint64
	fillCount      uint64
	lowConfidence  uint64
	totalInput     *big.Rat
	inputDigits    int
	totalInputUSD  *big.Rat
	usdCount       uint64
	feeSum         *big.Rat
	feeCount       uint64
	latencies      []uint64
	depositors     *hyperloglog.Sketch
	relayers       *hyperloglog.Sketch
	fillsByRelayer map[string]uint64
}

func newRouteAccumulator() *routeAccumulator {
	return &routeAccumulator{
		totalInput:     new(big.Rat),
		totalInputUSD:  new(big.Rat),
		feeSum:         new(big.Rat),
		depositors:     hyperloglog.New16(),
		relayers:       hyperloglog.New16(),
		fillsByRelayer: make(map[string]uint64),
	}
}

func (a *routeAccumulator) addTransfer(transfer model.MatchedTransfer) error {
	a.depositCount++
	if transfer.LowConfidence {
		a.lowConfidence++
	}

	amount, ok := new(big.Rat).SetString(transfer.InputAmount)
	if !ok {
		return fmt.Errorf("invalid input amount %q", transfer.InputAmount)
	}
	a.totalInput.Add(a.totalInput, amount)
	if digits := fracDigits(transfer.InputAmount); digits > a.inputDigits {
		a.inputDigits = digits
	}
	if transfer.InputAmountUSD != nil {
		usd, ok := new(big.Rat).SetString(*transfer.InputAmountUSD)
		if !ok {
			return fmt.Errorf("invalid input usd %q", *transfer.InputAmountUSD)
		}
		a.totalInputUSD.Add(a.totalInputUSD, usd)
		a.usdCount++
	}
	if transfer.Depositor != "" {
		a.depositors.Insert([]byte(transfer.Depositor))
	}

	if !transfer.IsFilled {
		return nil
	}
	a.fillCount++
	if transfer.Relayer != nil {
		a.relayers.Insert([]byte(*transfer.Relayer))
		a.fillsByRelayer[*transfer.Relayer]++
	}
	if transfer.FillLatencySeconds != nil {
		a.latencies = append(a.latencies, *transfer.FillLatencySeconds)
	}
	if transfer.BridgeFeePercent != nil {
		fee, ok := new(big.Rat).SetString(*transfer.BridgeFeePercent)
		if !ok {
			return fmt.Errorf("invalid fee percent %q", *transfer.BridgeFeePercent)
		}
		a.feeSum.Add(a.feeSum, fee)
		a.feeCount++
	}
	return nil
}

// avgFee returns the mean fee percent over fee-bearing fills, nil for none.
func (a *routeAccumulator) avgFee() *big.Rat {
	if a.feeCount == 0 {
		return nil
	}
	avg := new(big.Rat).Set(a.feeSum)
	return avg.Quo(avg, uintRat(a.feeCount))
}

// settlementKey identifies one (window, chain, token) refund aggregate.
type settlementKey struct {
	WindowStart uint64
	ChainID     uint64
	TokenSymbol string
}

type settlementAccumulator struct {
	refundCount   uint64
	matchedCount  uint64
	deferredCount uint64
	totalRefund   *big.Rat
	amountDigits  int
	totalUSD      *big.Rat
	usdCount      uint64
	settlements   []uint64
}

func newSettlementAccumulator() *settlementAccumulator {
	return &settlementAccumulator{
		totalRefund: new(big.Rat),
		totalUSD:    new(big.Rat),
	}
}

func (a *settlementAccumulator) addRefund(record model.RefundRecord) error {
	a.refundCount++
	if record.Deferred {
		a.deferredCount++
	}

	amount, ok := new(big.Rat).SetString(record.Amount)
	if !ok {
		return fmt.Errorf("invalid refund amount %q", record.Amount)
	}
	a.totalRefund.Add(a.totalRefund, amount)
	if digits := fracDigits(record.Amount); digits > a.amountDigits {
		a.amountDigits = digits
	}
	if record.AmountUSD != nil {
		usd, ok := new(big.Rat).SetString(*record.AmountUSD)
		if !ok {
			return fmt.Errorf("invalid refund usd %q", *record.AmountUSD)
		}
		a.totalUSD.Add(a.totalUSD, usd)
		a.usdCount++
	}
	if record.SettlementSeconds != nil {
		a.matchedCount++
		a.settlements = append(a.settlements, *record.SettlementSeconds)
	}
	return nil
}
