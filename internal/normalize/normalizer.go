package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"bridgeScope/internal/model"
	"bridgeScope/internal/registry"
)

var errMissing = errors.New("missing or empty")

// DropError explains why one raw record was rejected.
type DropError struct {
	Field string
	Err   error
}

func (e *DropError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *DropError) Unwrap() error { return e.Err }

func missingField(name string) error {
	return &DropError{Field: name, Err: errMissing}
}

func badField(name string, err error) error {
	return &DropError{Field: name, Err: err}
}

// Normalizer converts chain-specific raw events into canonical records.
type Normalizer struct {
	chains   *registry.ChainRegistry
	mappings Mappings
}

// NewNormalizer builds a Normalizer over the chain registry and optional
// per-chain field mappings.
func NewNormalizer(chains *registry.ChainRegistry, mappings Mappings) *Normalizer {
	return &Normalizer{chains: chains, mappings: mappings}
}

// Deposit normalizes one raw deposit event emitted on chainID. The origin
// chain is always the source chain; the destination comes from the record.
func (n *Normalizer) Deposit(chainID uint64, fields model.RawEvent) (model.Deposit, error) {
	r := record{fields: fields, fm: n.mappings.For(chainID, KindDeposit)}

	ts, err := r.timestampField("timestamp")
	if err != nil {
		return model.Deposit{}, err
	}
	txHash, err := r.txHashField("tx_hash")
	if err != nil {
		return model.Deposit{}, err
	}
	destination, err := r.uintField("destination_chain_id")
	if err != nil {
		return model.Deposit{}, err
	}
	if !n.chains.Contains(destination) {
		return model.Deposit{}, badField("destination_chain_id", fmt.Errorf("unknown chain %d", destination))
	}
	depositID, err := r.uintField("deposit_id")
	if err != nil {
		return model.Deposit{}, err
	}
	depositor, err := r.addressField("depositor")
	if err != nil {
		return model.Deposit{}, err
	}
	recipient, err := r.addressField("recipient")
	if err != nil {
		return model.Deposit{}, err
	}
	inputToken, err := r.addressField("input_token")
	if err != nil {
		return model.Deposit{}, err
	}
	outputToken, err := r.addressField("output_token")
	if err != nil {
		return model.Deposit{}, err
	}
	inputAmount, err := r.amountField("input_amount_raw")
	if err != nil {
		return model.Deposit{}, err
	}
	outputAmount, err := r.amountField("output_amount_raw")
	if err != nil {
		return model.Deposit{}, err
	}
	quoteTs, err := r.optionalUint("quote_timestamp")
	if err != nil {
		return model.Deposit{}, err
	}
	fillDeadline, err := r.optionalUint("fill_deadline")
	if err != nil {
		return model.Deposit{}, err
	}
	exclusivity, err := r.optionalUint("exclusivity_deadline")
	if err != nil {
		return model.Deposit{}, err
	}

	return model.Deposit{
		Timestamp:           ts,
		TxHash:              txHash,
		OriginChainID:       chainID,
		DestinationChainID:  destination,
		DepositID:           depositID,
		Depositor:           depositor,
		Recipient:           recipient,
		InputToken:          inputToken,
		OutputToken:         outputToken,
		InputAmountRaw:      inputAmount,
		OutputAmountRaw:     outputAmount,
		QuoteTimestamp:      quoteTs,
		FillDeadline:        fillDeadline,
		ExclusivityDeadline: exclusivity,
	}, nil
}

// Fill normalizes one raw fill event emitted on chainID. The destination
// chain is always the source chain; the origin comes from the record.
func (n *Normalizer) Fill(chainID uint64, fields model.RawEvent) (model.Fill, error) {
	r := record{fields: fields, fm: n.mappings.For(chainID, KindFill)}

	ts, err := r.timestampField("timestamp")
	if err != nil {
		return model.Fill{}, err
	}
	txHash, err := r.txHashField("tx_hash")
	if err != nil {
		return model.Fill{}, err
	}
	origin, err := r.uintField("origin_chain_id")
	if err != nil {
		return model.Fill{}, err
	}
	if !n.chains.Contains(origin) {
		return model.Fill{}, badField("origin_chain_id", fmt.Errorf("unknown chain %d", origin))
	}
	depositID, err := r.uintField("deposit_id")
	if err != nil {
		return model.Fill{}, err
	}
	relayer, err := r.addressField("relayer")
	if err != nil {
		return model.Fill{}, err
	}
	depositor, err := r.addressField("depositor")
	if err != nil {
		return model.Fill{}, err
	}
	recipient, err := r.addressField("recipient")
	if err != nil {
		return model.Fill{}, err
	}
	inputToken, err := r.addressField("input_token")
	if err != nil {
		return model.Fill{}, err
	}
	outputToken, err := r.addressField("output_token")
	if err != nil {
		return model.Fill{}, err
	}
	inputAmount, err := r.amountField("input_amount_raw")
	if err != nil {
		return model.Fill{}, err
	}
	outputAmount, err := r.amountField("output_amount_raw")
	if err != nil {
		return model.Fill{}, err
	}
	repaymentChain, err := r.optionalUint("repayment_chain_id")
	if err != nil {
		return model.Fill{}, err
	}
	gasPrice, err := r.optionalAmount("gas_price")
	if err != nil {
		return model.Fill{}, err
	}
	gasUsed, err := r.optionalUint("gas_used")
	if err != nil {
		return model.Fill{}, err
	}

	return model.Fill{
		Timestamp:          ts,
		TxHash:             txHash,
		OriginChainID:      origin,
		DestinationChainID: chainID,
		DepositID:          depositID,
		Relayer:            relayer,
		Depositor:          depositor,
		Recipient:          recipient,
		InputToken:         inputToken,
		OutputToken:        outputToken,
		InputAmountRaw:     inputAmount,
		OutputAmountRaw:    outputAmount,
		RepaymentChainID:   repaymentChain,
		GasPrice:           gasPrice,
		GasUsed:            gasUsed,
	}, nil
}

// RefundBatch normalizes one raw refund event emitted on chainID. The batch
// chain id falls back to the source chain when the record omits it. Parallel
// arrays are kept as emitted; positional alignment is checked downstream so
// the malformed batch stays identifiable.
func (n *Normalizer) RefundBatch(chainID uint64, fields model.RawEvent) (model.RefundBatch, error) {
	r := record{fields: fields, fm: n.mappings.For(chainID, KindRefund)}

	ts, err := r.timestampField("timestamp")
	if err != nil {
		return model.RefundBatch{}, err
	}
	txHash, err := r.txHashField("tx_hash")
	if err != nil {
		return model.RefundBatch{}, err
	}
	batchChain, err := r.optionalUint("chain_id")
	if err != nil {
		return model.RefundBatch{}, err
	}
	if batchChain == 0 {
		batchChain = chainID
	}
	if !n.chains.Contains(batchChain) {
		return model.RefundBatch{}, badField("chain_id", fmt.Errorf("unknown chain %d", batchChain))
	}
	rootBundle, err := r.uintField("root_bundle_id")
	if err != nil {
		return model.RefundBatch{}, err
	}
	leaf, err := r.uintField("leaf_id")
	if err != nil {
		return model.RefundBatch{}, err
	}
	token, err := r.addressField("token_address")
	if err != nil {
		return model.RefundBatch{}, err
	}
	count, err := r.uintField("refund_count")
	if err != nil {
		return model.RefundBatch{}, err
	}
	relayers, err := r.addressList("relayers")
	if err != nil {
		return model.RefundBatch{}, err
	}
	amounts, err := r.amountList("refund_amounts_raw")
	if err != nil {
		return model.RefundBatch{}, err
	}
	amountToReturn, err := r.optionalAmount("amount_to_return_raw")
	if err != nil {
		return model.RefundBatch{}, err
	}

	return model.RefundBatch{
		Timestamp:            ts,
		TxHash:               txHash,
		ChainID:              batchChain,
		RootBundleID:         rootBundle,
		LeafID:               leaf,
		TokenAddress:         token,
		AmountToReturnRaw:    amountToReturn,
		TotalRefundAmountRaw: sumAmounts(amounts),
		RefundCount:          int(count),
		Relayers:             relayers,
		RefundAmountsRaw:     amounts,
		Deferred:             r.boolField("deferred"),
	}, nil
}

func sumAmounts(values []string) string {
	total := new(big.Int)
	var term big.Int
	for _, value := range values {
		if _, ok := term.SetString(value, 10); ok {
			total.Add(total, &term)
		}
	}
	return total.String()
}

// record wraps one decoded raw event with mapping-aware field access.
type record struct {
	fields model.RawEvent
	fm     FieldMap
}

func (r record) raw(field string) (any, bool) {
	val, ok := r.fields[r.fm.source(field)]
	if !ok || val == nil {
		return nil, false
	}
	return val, true
}

func (r record) str(field string) (string, bool) {
	val, ok := r.raw(field)
	if !ok {
		return "", false
	}
	switch typed := val.(type) {
	case string:
		trimmed := strings.TrimSpace(typed)
		return trimmed, trimmed != ""
	case json.Number:
		return typed.String(), true
	default:
		return "", false
	}
}

func (r record) uintField(field string) (uint64, error) {
	s, ok := r.str(field)
	if !ok {
		return 0, missingField(field)
	}
	val, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, badField(field, err)
	}
	return val, nil
}

func (r record) optionalUint(field string) (uint64, error) {
	s, ok := r.str(field)
	if !ok {
		return 0, nil
	}
	val, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, badField(field, err)
	}
	return val, nil
}

func (r record) boolField(field string) bool {
	val, ok := r.raw(field)
	if !ok {
		return false
	}
	switch typed := val.(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(strings.TrimSpace(typed), "true")
	default:
		return false
	}
}

// timestampField accepts Unix seconds (number or numeric string) and
// ISO-8601 strings, with or without the T separator.
func (r record) timestampField(field string) (uint64, error) {
	s, ok := r.str(field)
	if !ok {
		return 0, missingField(field)
	}

	if isNumeric(s) {
		val, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, badField(field, err)
		}
		return val, nil
	}
	if tm, err := time.Parse(time.RFC3339, s); err == nil {
		return uint64(tm.Unix()), nil
	}
	tm, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return 0, badField(field, fmt.Errorf("unrecognized timestamp %q", s))
	}
	return uint64(tm.Unix()), nil
}

func (r record) addressField(field string) (string, error) {
	s, ok := r.str(field)
	if !ok {
		return "", missingField(field)
	}
	if !common.IsHexAddress(s) {
		return "", badField(field, fmt.Errorf("invalid address %q", s))
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}

func (r record) txHashField(field string) (string, error) {
	s, ok := r.str(field)
	if !ok {
		return "", missingField(field)
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		return "", badField(field, err)
	}
	if len(data) != 32 {
		return "", badField(field, fmt.Errorf("hash length %d", len(data)))
	}
	return strings.ToLower(s), nil
}

func (r record) amountField(field string) (string, error) {
	s, ok := r.str(field)
	if !ok {
		return "", missingField(field)
	}
	return canonicalAmount(field, s)
}

func (r record) optionalAmount(field string) (string, error) {
	s, ok := r.str(field)
	if !ok {
		return "", nil
	}
	return canonicalAmount(field, s)
}

// canonicalAmount parses a raw token amount into a base-10 integer string.
// Exports render integers in plain, hex, scientific, or trailing-zero decimal
// notation, so non-hex input goes through big.Rat.
func canonicalAmount(field, input string) (string, error) {
	if strings.HasPrefix(input, "0x") {
		val, err := hexutil.DecodeBig(input)
		if err != nil {
			return "", badField(field, err)
		}
		return val.String(), nil
	}
	rat, ok := new(big.Rat).SetString(input)
	if !ok {
		return "", badField(field, fmt.Errorf("invalid amount %q", input))
	}
	if !rat.IsInt() {
		return "", badField(field, fmt.Errorf("non-integer amount %q", input))
	}
	return rat.Num().String(), nil
}

func (r record) list(field string) ([]string, error) {
	val, ok := r.raw(field)
	if !ok {
		return nil, missingField(field)
	}
	switch typed := val.(type) {
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			switch entry := item.(type) {
			case string:
				items = append(items, strings.TrimSpace(entry))
			case json.Number:
				items = append(items, entry.String())
			default:
				return nil, badField(field, fmt.Errorf("unsupported element %T", item))
			}
		}
		return items, nil
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil, missingField(field)
		}
		// Split keeps empty entries so positional misalignment stays visible.
		parts := strings.Split(typed, ",")
		items := make([]string, 0, len(parts))
		for _, part := range parts {
			items = append(items, strings.TrimSpace(part))
		}
		return items, nil
	default:
		return nil, badField(field, fmt.Errorf("unsupported list type %T", val))
	}
}

func (r record) addressList(field string) ([]string, error) {
	items, err := r.list(field)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		if !common.IsHexAddress(item) {
			return nil, badField(field, fmt.Errorf("element %d: invalid address %q", i, item))
		}
		out = append(out, strings.ToLower(common.HexToAddress(item).Hex()))
	}
	return out, nil
}

func (r record) amountList(field string) ([]string, error) {
	items, err := r.list(field)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		val, err := canonicalAmount(fmt.Sprintf("%s[%d]", field, i), item)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
