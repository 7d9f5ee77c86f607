// Package classifier decides whether a fill opens or closes a tracked trade
package classifier

import (
	"hedge_sync/internal/core"
	"strings"

	"github.com/shopspring/decimal"
)

// closureTokens are substrings in an order's display name that mark it as a
// closing or protective order. Matching is heuristic; the layered fallback
// below keeps it from being the only signal.
var closureTokens = []string{"CLOSE", "EXIT", "TP", "SL", "STOP", "TARGET"}

// HasClosureToken reports whether an order name carries explicit closure evidence.
func HasClosureToken(name string) bool {
	upper := strings.ToUpper(name)
	for _, token := range closureTokens {
		if strings.Contains(upper, token) {
			return true
		}
	}
	return false
}

// OrderTracker answers whether an order id belongs to a hedge-closing order
// this system submitted itself.
type OrderTracker interface {
	IsHedgeClosingOrder(orderID string) bool
}

// PositionSource is the read-only registry view classification needs.
type PositionSource interface {
	NetPosition(instrument, account string) decimal.Decimal
	AllFor(instrument, account string) []core.TradeGroup
}

// Classifier applies the layered entry/closure detection rules. It is
// read-only against the registry.
type Classifier struct {
	positions PositionSource
	tracker   OrderTracker
	logger    core.ILogger
}

// NewClassifier creates a classifier over the given position source.
func NewClassifier(positions PositionSource, tracker OrderTracker, logger core.ILogger) *Classifier {
	return &Classifier{
		positions: positions,
		tracker:   tracker,
		logger:    logger.WithField("component", "classifier"),
	}
}

// Classify decides whether a fill is a new entry, a closure of an existing
// group, or noise. Rules apply in strict priority order; the first match wins.
func (c *Classifier) Classify(f *core.Fill) core.Classification {
	// Rule 1: our own hedge-closing orders must never be re-processed.
	if c.tracker != nil && c.tracker.IsHedgeClosingOrder(f.OrderID) {
		c.logger.Debug("Fill belongs to a hedge-closing order, ignoring",
			"order_id", f.OrderID, "name", f.OrderName)
		return core.ClassIgnore
	}

	// Rule 2: explicit closure evidence in the order name.
	if HasClosureToken(f.OrderName) {
		c.logger.Debug("Closure token in order name",
			"order_id", f.OrderID, "name", f.OrderName)
		return core.ClassClosure
	}

	// Rule 3: covering a short is unambiguously an exit.
	if f.Action == core.ActionBuyToCover {
		return core.ClassClosure
	}

	// Rule 4: net-position analysis for the pair.
	net := c.positions.NetPosition(f.Instrument, f.Account)
	switch {
	case net.Sign() > 0 && f.Action == core.ActionSell:
		c.logger.Debug("Sell against net long position",
			"order_id", f.OrderID, "net", net.String())
		return core.ClassClosure
	case net.Sign() < 0 && f.Action == core.ActionBuy:
		c.logger.Debug("Buy against net short position",
			"order_id", f.OrderID, "net", net.String())
		return core.ClassClosure
	}

	// Rule 5: any recognized directional action opens a position.
	if f.Action.IsRecognized() {
		return core.ClassNewEntry
	}
	return core.ClassIgnore
}
