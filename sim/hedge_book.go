package sim

import (
	"maps"
	"sync"
)

// HedgeBook is the one place that knows the hedge exposure each symbol
// pipeline holds in each shared hedge asset. Pipelines running on separate
// goroutines report their legs here, so totals are never double counted.
type HedgeBook struct {
	mu   sync.Mutex
	legs map[string]map[string]float64 // asset -> owner -> qty
}

func NewHedgeBook() *HedgeBook {
	return &HedgeBook{legs: make(map[string]map[string]float64)}
}

// Set records owner's current quantity in asset. Zero removes the leg.
func (b *HedgeBook) Set(owner, asset string, qty float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	owners := b.legs[asset]
	if qty == 0 {
		if owners != nil {
			delete(owners, owner)
			if len(owners) == 0 {
				delete(b.legs, asset)
			}
		}
		return
	}
	if owners == nil {
		owners = make(map[string]float64)
		b.legs[asset] = owners
	}
	owners[owner] = qty
}

// Held returns owner's quantity in asset.
func (b *HedgeBook) Held(owner, asset string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.legs[asset][owner]
}

// Exposure is the total quantity of asset across all owners.
func (b *HedgeBook) Exposure(asset string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var total float64
	for _, q := range b.legs[asset] {
		total += q
	}
	return total
}

// Snapshot returns total exposure per asset.
func (b *HedgeBook) Snapshot() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]float64, len(b.legs))
	for asset, owners := range b.legs {
		var total float64
		for _, q := range owners {
			total += q
		}
		out[asset] = total
	}
	return out
}

// Clear drops every leg held by owner.
func (b *HedgeBook) Clear(owner string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for asset, owners := range b.legs {
		delete(owners, owner)
		if len(owners) == 0 {
			delete(b.legs, asset)
		}
	}
}

// Owners returns a copy of the per-owner legs of asset.
func (b *HedgeBook) Owners(asset string) map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.legs[asset])
}
