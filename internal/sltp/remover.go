// Package sltp cancels sibling protective orders after an entry fill
package sltp

import (
	"context"
	"hedge_sync/internal/core"
	"hedge_sync/internal/infrastructure/metrics"
	"strings"
	"sync"
	"time"
)

// protectiveNameTokens mark an order whose display name already identifies
// it as a protective order; such fills never qualify as entries.
var protectiveNameTokens = []string{"stop", "profit", "sl", "tp", "target"}

// entryOrderTypes are the order types that can open a position.
var entryOrderTypes = map[core.OrderType]struct{}{
	core.OrderTypeMarket:     {},
	core.OrderTypeLimit:      {},
	core.OrderTypeStopMarket: {},
}

// Remover schedules one protective-order removal sweep per parent entry
// order. Each accepted entry fill arms a timer; when it fires, sibling SL/TP
// orders of the parent are cancelled on the serialized execution context.
type Remover struct {
	gateway core.IOrderGateway
	exec    core.IExecutor
	logger  core.ILogger
	delay   time.Duration

	mu        sync.Mutex
	pending   map[string]*time.Timer // execution id -> armed timer
	processed map[string]struct{}    // parent order ids already swept
}

// NewRemover creates a remover with the given sweep delay.
func NewRemover(gateway core.IOrderGateway, exec core.IExecutor, delay time.Duration, logger core.ILogger) *Remover {
	return &Remover{
		gateway:   gateway,
		exec:      exec,
		logger:    logger.WithField("component", "sltp_remover"),
		delay:     delay,
		pending:   make(map[string]*time.Timer),
		processed: make(map[string]struct{}),
	}
}

// IsEntryOrderFill reports whether a fill qualifies as an entry the remover
// should act on: an opening action, an entry-capable order type, and a name
// that does not itself look protective.
func (r *Remover) IsEntryOrderFill(f *core.Fill) bool {
	if _, ok := entryOrderTypes[f.OrderType]; !ok {
		return false
	}
	if !f.Action.IsRecognized() {
		return false
	}
	lower := strings.ToLower(f.OrderName)
	for _, token := range protectiveNameTokens {
		if strings.Contains(lower, token) {
			return false
		}
	}
	return true
}

// OnEntryFill arms a removal sweep for the fill's parent order.
func (r *Remover) OnEntryFill(f core.Fill) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, done := r.processed[f.OrderID]; done {
		r.logger.Debug("Parent order already swept, skipping",
			"order_id", f.OrderID, "execution_id", f.ExecutionID)
		return
	}
	if _, armed := r.pending[f.ExecutionID]; armed {
		return
	}

	fill := f
	r.pending[f.ExecutionID] = time.AfterFunc(r.delay, func() {
		r.fire(fill)
	})
	r.logger.Info("Armed protective-order removal",
		"order_id", f.OrderID,
		"execution_id", f.ExecutionID,
		"delay", r.delay)
}

// Stop cancels all armed timers and clears the pending and processed sets.
func (r *Remover) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, timer := range r.pending {
		timer.Stop()
		delete(r.pending, id)
	}
	r.processed = make(map[string]struct{})
	r.logger.Info("Stopped protective-order removal scheduler")
}

func (r *Remover) fire(f core.Fill) {
	r.mu.Lock()
	delete(r.pending, f.ExecutionID)
	r.mu.Unlock()

	err := r.exec.Submit(context.Background(), "sltp_sweep", func(ctx context.Context) error {
		return r.sweep(ctx, f)
	})
	if err != nil {
		r.logger.Error("Failed to queue removal sweep",
			"order_id", f.OrderID, "error", err.Error())
	}
}

// sweep cancels the parent order's sibling protective orders. It runs at
// most once per parent order id; the id is marked processed only after the
// sweep completes so a mid-sweep fill for the same parent cannot slip past.
func (r *Remover) sweep(ctx context.Context, f core.Fill) error {
	r.mu.Lock()
	if _, done := r.processed[f.OrderID]; done {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	metrics.SLTPSweeps.Inc()

	orders, err := r.gateway.OpenOrders(ctx, f.Instrument, f.Account)
	if err != nil {
		r.logger.Error("Failed to list open orders for sweep",
			"order_id", f.OrderID, "error", err.Error())
		return err
	}

	cancelled := 0
	for _, o := range orders {
		if !r.isProtectiveSibling(&f, &o) {
			continue
		}
		if err := r.gateway.CancelOrder(ctx, o.ID); err != nil {
			// Per-order failures do not abort the rest of the sweep.
			r.logger.Error("Failed to cancel protective order",
				"order_id", o.ID, "name", o.Name, "error", err.Error())
			continue
		}
		cancelled++
		metrics.SLTPOrdersCancelled.Inc()
		r.logger.Info("Cancelled protective order",
			"order_id", o.ID, "name", o.Name, "type", o.Type, "parent", f.OrderID)
	}

	r.mu.Lock()
	r.processed[f.OrderID] = struct{}{}
	r.mu.Unlock()

	r.logger.Info("Protective-order sweep complete",
		"parent", f.OrderID, "cancelled", cancelled)
	return nil
}

// isProtectiveSibling decides whether an open order is an SL/TP sibling of
// the entry fill's parent order: opposite direction, a stop (SL) or limit
// (TP) type, the parent's order quantity, and an OCO tag linking it to the
// fill's execution or to the parent's own OCO group.
func (r *Remover) isProtectiveSibling(f *core.Fill, o *core.OpenOrder) bool {
	if o.ID == f.OrderID {
		return false
	}
	if o.Action.IsBuySide() == f.Action.IsBuySide() {
		return false
	}
	if o.Type != core.OrderTypeStopMarket && o.Type != core.OrderTypeLimit {
		return false
	}
	if !o.Quantity.Equal(f.OrderQuantity) {
		return false
	}
	if o.OCO != "" && o.OCO == f.ExecutionID {
		return true
	}
	return o.OCO != "" && f.OCO != "" && o.OCO == f.OCO
}
