package reconcile

import (
	"sort"

	"bridgeScope/internal/model"
)

// routePartition carries one (origin, destination) corridor's deposits and
// fills as an independent matching work unit.
type routePartition struct {
	Origin      uint64
	Destination uint64
	Deposits    []model.Deposit
	Fills       []model.Fill
}

// chainPartition carries one chain's refund batches as an independent
// expansion work unit.
type chainPartition struct {
	ChainID uint64
	Batches []model.RefundBatch
}

// partitionRoutes splits unified deposits and fills into per-route work
// units, ordered by (origin, destination). Relative order inside each
// partition follows the input.
func partitionRoutes(deposits []model.Deposit, fills []model.Fill) []routePartition {
	type route struct{ origin, destination uint64 }
	index := make(map[route]int)
	parts := make([]routePartition, 0)
	slot := func(origin, destination uint64) int {
		key := route{origin: origin, destination: destination}
		i, ok := index[key]
		if !ok {
			i = len(parts)
			index[key] = i
			parts = append(parts, routePartition{Origin: origin, Destination: destination})
		}
		return i
	}
	for _, deposit := range deposits {
		i := slot(deposit.OriginChainID, deposit.DestinationChainID)
		parts[i].Deposits = append(parts[i].Deposits, deposit)
	}
	for _, fill := range fills {
		i := slot(fill.OriginChainID, fill.DestinationChainID)
		parts[i].Fills = append(parts[i].Fills, fill)
	}
	sort.Slice(parts, func(a, b int) bool {
		if parts[a].Origin != parts[b].Origin {
			return parts[a].Origin < parts[b].Origin
		}
		return parts[a].Destination < parts[b].Destination
	})
	return parts
}

// partitionBatches splits refund batches into per-chain work units, ordered
// by chain id.
func partitionBatches(batches []model.RefundBatch) []chainPartition {
	index := make(map[uint64]int)
	parts := make([]chainPartition, 0)
	for _, batch := range batches {
		i, ok := index[batch.ChainID]
		if !ok {
			i = len(parts)
			index[batch.ChainID] = i
			parts = append(parts, chainPartition{ChainID: batch.ChainID})
		}
		parts[i].Batches = append(parts[i].Batches, batch)
	}
	sort.Slice(parts, func(a, b int) bool { return parts[a].ChainID < parts[b].ChainID })
	return parts
}
