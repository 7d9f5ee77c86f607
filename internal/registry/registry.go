// Package registry implements the BaseID-keyed position registry
package registry

import (
	"hedge_sync/internal/core"
	"hedge_sync/internal/infrastructure/metrics"
	"sync"

	"github.com/shopspring/decimal"
)

// Registry is the sole authority on remaining quantity per trade group. All
// mutation happens under one lock; callers receive copies, never pointers
// into the map.
type Registry struct {
	logger core.ILogger
	mu     sync.RWMutex
	groups map[string]*core.TradeGroup
}

// NewRegistry creates an empty registry
func NewRegistry(logger core.ILogger) *Registry {
	return &Registry{
		logger: logger.WithField("component", "registry"),
		groups: make(map[string]*core.TradeGroup),
	}
}

// AddOrIncrement inserts the group if its BaseID is absent, otherwise adds
// the group's quantities to the stored totals. Multi-fill entries sharing a
// BaseID accumulate this way.
func (r *Registry) AddOrIncrement(g core.TradeGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.groups[g.BaseID]
	if !ok {
		stored := g
		r.groups[g.BaseID] = &stored
		metrics.OpenTradeGroups.Set(float64(len(r.groups)))
		r.logger.Info("Tracking new trade group",
			"base_id", g.BaseID,
			"instrument", g.Instrument,
			"account", g.Account,
			"position", g.Position,
			"quantity", g.TotalQuantity.String())
		return
	}

	existing.TotalQuantity = existing.TotalQuantity.Add(g.TotalQuantity)
	existing.RemainingQuantity = existing.RemainingQuantity.Add(g.RemainingQuantity)
	r.logger.Info("Incremented trade group",
		"base_id", g.BaseID,
		"total_quantity", existing.TotalQuantity.String(),
		"remaining_quantity", existing.RemainingQuantity.String())
}

// Decrement reduces the remaining quantity for a BaseID and removes the
// group when it reaches zero or below. It reports whether removal occurred.
// An unknown BaseID is a benign no-op: closures routinely arrive for trades
// the registry never saw, such as positions opened before startup.
func (r *Registry) Decrement(baseID string, qty decimal.Decimal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[baseID]
	if !ok {
		r.logger.Warn("Decrement for untracked base id, ignoring",
			"base_id", baseID,
			"quantity", qty.String())
		return false
	}

	g.RemainingQuantity = g.RemainingQuantity.Sub(qty)
	if g.RemainingQuantity.Sign() <= 0 {
		delete(r.groups, baseID)
		metrics.OpenTradeGroups.Set(float64(len(r.groups)))
		r.logger.Info("Trade group fully closed",
			"base_id", baseID,
			"closed_quantity", qty.String())
		return true
	}

	r.logger.Info("Decremented trade group",
		"base_id", baseID,
		"closed_quantity", qty.String(),
		"remaining_quantity", g.RemainingQuantity.String())
	return false
}

// Lookup returns a copy of the group for a BaseID.
func (r *Registry) Lookup(baseID string) (core.TradeGroup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[baseID]
	if !ok {
		return core.TradeGroup{}, false
	}
	return *g, true
}

// AllFor returns copies of every group for an (instrument, account) pair.
func (r *Registry) AllFor(instrument, account string) []core.TradeGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []core.TradeGroup
	for _, g := range r.groups {
		if g.Instrument == instrument && g.Account == account {
			out = append(out, *g)
		}
	}
	return out
}

// NetPosition returns the signed net position for an (instrument, account)
// pair: long remaining quantity minus short remaining quantity.
func (r *Registry) NetPosition(instrument, account string) decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	net := decimal.Zero
	for _, g := range r.groups {
		if g.Instrument != instrument || g.Account != account {
			continue
		}
		switch g.Position {
		case core.PositionLong:
			net = net.Add(g.RemainingQuantity)
		case core.PositionShort:
			net = net.Sub(g.RemainingQuantity)
		}
	}
	return net
}

// Snapshot returns copies of all tracked groups.
func (r *Registry) Snapshot() []core.TradeGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.TradeGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, *g)
	}
	return out
}

// Len returns the number of tracked groups.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}
