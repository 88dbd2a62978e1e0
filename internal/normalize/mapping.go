package normalize

import (
	"fmt"
	"strconv"
)

// Event kinds accepted in source configs.
const (
	KindDeposit = "deposit"
	KindFill    = "fill"
	KindRefund  = "refund"
)

// FieldMap resolves canonical field names to the names one chain's raw
// export uses. Fields without an override fall through to the canonical name,
// so a chain whose export already matches needs no mapping at all.
type FieldMap map[string]string

func (m FieldMap) source(canonical string) string {
	if m == nil {
		return canonical
	}
	if mapped, ok := m[canonical]; ok && mapped != "" {
		return mapped
	}
	return canonical
}

// Mappings holds per-chain, per-kind field maps.
type Mappings map[uint64]map[string]FieldMap

// For returns the field map for one source, nil when no override exists.
func (m Mappings) For(chainID uint64, kind string) FieldMap {
	if m == nil {
		return nil
	}
	byKind, ok := m[chainID]
	if !ok {
		return nil
	}
	return byKind[kind]
}

// BuildMappings converts the config representation (chain ids as string keys)
// into typed per-chain field maps.
func BuildMappings(raw map[string]map[string]map[string]string) (Mappings, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	out := make(Mappings, len(raw))
	for chainKey, byKind := range raw {
		chainID, err := strconv.ParseUint(chainKey, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mapping chain id %q: %w", chainKey, err)
		}
		kinds := make(map[string]FieldMap, len(byKind))
		for kind, fields := range byKind {
			switch kind {
			case KindDeposit, KindFill, KindRefund:
			default:
				return nil, fmt.Errorf("mapping chain %d: unknown kind %q", chainID, kind)
			}
			fm := make(FieldMap, len(fields))
			for canonical, source := range fields {
				fm[canonical] = source
			}
			kinds[kind] = fm
		}
		out[chainID] = kinds
	}
	return out, nil
}
