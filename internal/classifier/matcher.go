package classifier

import (
	"hedge_sync/internal/core"
	"sort"
)

// Matcher resolves which BaseID a classified closure fill closes.
type Matcher struct {
	positions PositionSource
	logger    core.ILogger
}

// NewMatcher creates a matcher over the given position source.
func NewMatcher(positions PositionSource, logger core.ILogger) *Matcher {
	return &Matcher{
		positions: positions,
		logger:    logger.WithField("component", "closure_matcher"),
	}
}

// FindBaseID resolves the BaseID the fill closes, if any. Name-based
// resolution runs first; position-based matching with a FIFO tie-break is
// the fallback. FIFO is an approximation: when several same-direction
// groups coexist there is no way to know which physical trade a closing
// fill belongs to, so the oldest open group is assumed closed first.
func (m *Matcher) FindBaseID(f *core.Fill) (string, bool) {
	closes := closedPosition(f.Action)
	if closes == core.PositionFlat {
		return "", false
	}

	candidates := make([]core.TradeGroup, 0)
	for _, g := range m.positions.AllFor(f.Instrument, f.Account) {
		if g.Position == closes {
			candidates = append(candidates, g)
		}
	}

	// Stage 1: explicit name evidence with exactly one opposite-direction group.
	if HasClosureToken(f.OrderName) && len(candidates) == 1 {
		m.logger.Debug("Matched closure by name evidence",
			"order_id", f.OrderID,
			"base_id", candidates[0].BaseID)
		return candidates[0].BaseID, true
	}

	// Stage 2: position-based matching.
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0].BaseID, true
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].OpenedAt.Before(candidates[j].OpenedAt)
	})

	discarded := make([]string, 0, len(candidates)-1)
	for _, g := range candidates[1:] {
		discarded = append(discarded, g.BaseID)
	}
	m.logger.Info("Multiple closure candidates, picking oldest",
		"order_id", f.OrderID,
		"chosen", candidates[0].BaseID,
		"discarded", discarded)
	return candidates[0].BaseID, true
}

// closedPosition returns the position direction a closing fill with this
// action flattens: buying closes shorts, selling closes longs.
func closedPosition(a core.OrderAction) core.MarketPosition {
	if !a.IsRecognized() {
		return core.PositionFlat
	}
	if a.IsBuySide() {
		return core.PositionShort
	}
	return core.PositionLong
}
