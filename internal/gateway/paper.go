// Package gateway implements the local-venue order capability
package gateway

import (
	"context"
	"hedge_sync/internal/core"
	apperrors "hedge_sync/pkg/errors"
	"sync"

	"github.com/google/uuid"
)

// Paper is an in-process order gateway: submitted orders are acknowledged
// immediately and kept in memory. It backs local runs and tests; a live
// deployment swaps in an adapter for the host venue's order API.
type Paper struct {
	logger core.ILogger

	mu           sync.RWMutex
	open         map[string]core.OpenOrder
	submitted    []core.MarketOrderRequest
	submittedIDs []string
}

// NewPaper creates an empty paper gateway.
func NewPaper(logger core.ILogger) *Paper {
	return &Paper{
		logger: logger.WithField("component", "paper_gateway"),
		open:   make(map[string]core.OpenOrder),
	}
}

// SubmitMarketOrder acknowledges a market order and returns its new id.
// Market orders fill immediately, so they never appear in the open set.
func (p *Paper) SubmitMarketOrder(ctx context.Context, req core.MarketOrderRequest) (string, error) {
	orderID := uuid.NewString()

	p.mu.Lock()
	p.submitted = append(p.submitted, req)
	p.submittedIDs = append(p.submittedIDs, orderID)
	p.mu.Unlock()

	p.logger.Info("Submitted market order",
		"order_id", orderID,
		"name", req.Name,
		"instrument", req.Instrument,
		"account", req.Account,
		"action", req.Action,
		"quantity", req.Quantity.String())
	return orderID, nil
}

// CancelOrder removes a working order.
func (p *Paper) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.open[orderID]; !ok {
		return apperrors.ErrOrderNotFound
	}
	delete(p.open, orderID)
	p.logger.Info("Cancelled order", "order_id", orderID)
	return nil
}

// OpenOrders returns the working orders for an (instrument, account) pair.
func (p *Paper) OpenOrders(ctx context.Context, instrument, account string) ([]core.OpenOrder, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []core.OpenOrder
	for _, o := range p.open {
		if o.Instrument == instrument && o.Account == account {
			out = append(out, o)
		}
	}
	return out, nil
}

// AddOpenOrder seeds a working order, as the venue would when a strategy
// places protective brackets.
func (p *Paper) AddOpenOrder(o core.OpenOrder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	p.open[o.ID] = o
}

// Submitted returns a copy of all market order requests seen so far.
func (p *Paper) Submitted() []core.MarketOrderRequest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]core.MarketOrderRequest, len(p.submitted))
	copy(out, p.submitted)
	return out
}

// SubmittedIDs returns the order ids assigned to submitted market orders, in
// submission order.
func (p *Paper) SubmittedIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.submittedIDs))
	copy(out, p.submittedIDs)
	return out
}
