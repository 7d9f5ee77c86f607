package classifier

import (
	"hedge_sync/internal/core"
	"hedge_sync/internal/registry"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBaseID_SingleCandidate(t *testing.T) {
	logger := testLogger(t)
	r := registry.NewRegistry(logger)
	openGroup(r, "base-1", core.PositionLong, 2, time.Now())
	m := NewMatcher(r, logger)

	baseID, ok := m.FindBaseID(fill(core.ActionSell, "TP_1"))
	require.True(t, ok)
	assert.Equal(t, "base-1", baseID)
}

func TestFindBaseID_NoCandidates(t *testing.T) {
	logger := testLogger(t)
	r := registry.NewRegistry(logger)
	m := NewMatcher(r, logger)

	_, ok := m.FindBaseID(fill(core.ActionSell, "TP_1"))
	assert.False(t, ok)
}

func TestFindBaseID_DirectionFilter(t *testing.T) {
	logger := testLogger(t)
	r := registry.NewRegistry(logger)
	openGroup(r, "short-1", core.PositionShort, 2, time.Now())
	m := NewMatcher(r, logger)

	// A sell closes longs; the only group is short, so nothing matches.
	_, ok := m.FindBaseID(fill(core.ActionSell, ""))
	assert.False(t, ok)

	// A buy closes shorts.
	baseID, ok := m.FindBaseID(fill(core.ActionBuyToCover, ""))
	require.True(t, ok)
	assert.Equal(t, "short-1", baseID)
}

func TestFindBaseID_FIFOTieBreak(t *testing.T) {
	logger := testLogger(t)
	r := registry.NewRegistry(logger)
	now := time.Now()
	openGroup(r, "newer", core.PositionLong, 2, now)
	openGroup(r, "oldest", core.PositionLong, 2, now.Add(-2*time.Hour))
	openGroup(r, "middle", core.PositionLong, 2, now.Add(-1*time.Hour))
	m := NewMatcher(r, logger)

	baseID, ok := m.FindBaseID(fill(core.ActionSell, ""))
	require.True(t, ok)
	assert.Equal(t, "oldest", baseID)
}

func TestFindBaseID_Deterministic(t *testing.T) {
	logger := testLogger(t)
	r := registry.NewRegistry(logger)
	now := time.Now()
	openGroup(r, "a", core.PositionLong, 2, now.Add(-3*time.Hour))
	openGroup(r, "b", core.PositionLong, 2, now.Add(-2*time.Hour))
	openGroup(r, "c", core.PositionLong, 2, now.Add(-1*time.Hour))
	m := NewMatcher(r, logger)

	first, ok := m.FindBaseID(fill(core.ActionSell, ""))
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		got, ok := m.FindBaseID(fill(core.ActionSell, ""))
		require.True(t, ok)
		assert.Equal(t, first, got)
	}
}

func TestFindBaseID_UnrecognizedAction(t *testing.T) {
	logger := testLogger(t)
	r := registry.NewRegistry(logger)
	openGroup(r, "base-1", core.PositionLong, 2, time.Now())
	m := NewMatcher(r, logger)

	_, ok := m.FindBaseID(fill(core.OrderAction("TRANSFER"), ""))
	assert.False(t, ok)
}

func TestFindBaseID_ScenarioRoundTrip(t *testing.T) {
	logger := testLogger(t)
	r := registry.NewRegistry(logger)

	// Entry: Buy 2 on an empty registry.
	r.AddOrIncrement(core.TradeGroup{
		BaseID:            "entry-1",
		Position:          core.PositionLong,
		Instrument:        "NQ 03-26",
		Account:           "Sim101",
		Action:            core.ActionBuy,
		TotalQuantity:     decimal.NewFromInt(2),
		RemainingQuantity: decimal.NewFromInt(2),
		OpenedAt:          time.Now(),
	})

	m := NewMatcher(r, logger)
	baseID, ok := m.FindBaseID(fill(core.ActionSell, "TP_1"))
	require.True(t, ok)
	require.Equal(t, "entry-1", baseID)

	removed := r.Decrement(baseID, decimal.NewFromInt(2))
	assert.True(t, removed)
	assert.Equal(t, 0, r.Len())
}
