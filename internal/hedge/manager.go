// Package hedge wires classification, matching and the notification channel
// into the position synchronization flow between the local venue and the relay.
package hedge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hedge_sync/internal/bridge"
	"hedge_sync/internal/classifier"
	"hedge_sync/internal/core"
	"hedge_sync/internal/infrastructure/metrics"
	"hedge_sync/internal/journal"
	"hedge_sync/internal/policy"
	"hedge_sync/internal/registry"
	"hedge_sync/internal/sltp"
	apperrors "hedge_sync/pkg/errors"
)

// unknownFieldPrefixLen bounds the fuzzy BaseID prefix match used when a
// notification arrives with unresolvable instrument or account fields.
const unknownFieldPrefixLen = 20

// Notifier is the outbound channel to the relay.
type Notifier interface {
	LogTrade(ev bridge.TradeEvent) error
	CloseHedge(ev bridge.TradeEvent) error
}

// Manager owns the end-to-end hedge synchronization flow. Fills from the
// local venue enter through OnFill, remote close notifications through
// HandleRemoteClose. All order-touching work runs on the serialized executor.
type Manager struct {
	registry   *registry.Registry
	classifier *classifier.Classifier
	matcher    *classifier.Matcher
	policy     *policy.ReasonPolicy
	remover    *sltp.Remover
	notifier   Notifier
	gateway    core.IOrderGateway
	exec       core.IExecutor
	journal    *journal.Store
	session    *bridge.SessionStats
	logger     core.ILogger

	mu           sync.RWMutex
	hedgeClosing map[string]struct{}
}

// Options carries the optional collaborators of a Manager. Any field may be
// nil; the corresponding behavior is simply skipped.
type Options struct {
	Remover *sltp.Remover
	Journal *journal.Store
	Session *bridge.SessionStats
}

func NewManager(reg *registry.Registry, notifier Notifier, gateway core.IOrderGateway, exec core.IExecutor, opts Options, logger core.ILogger) *Manager {
	m := &Manager{
		registry:     reg,
		policy:       policy.NewReasonPolicy(logger),
		remover:      opts.Remover,
		notifier:     notifier,
		gateway:      gateway,
		exec:         exec,
		journal:      opts.Journal,
		session:      opts.Session,
		logger:       logger.WithField("component", "hedge_manager"),
		hedgeClosing: make(map[string]struct{}),
	}
	m.classifier = classifier.NewClassifier(reg, m, logger)
	m.matcher = classifier.NewMatcher(reg, logger)
	return m
}

// IsHedgeClosingOrder reports whether the order id belongs to a closing order
// this manager itself submitted in response to a remote close.
func (m *Manager) IsHedgeClosingOrder(orderID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.hedgeClosing[orderID]
	return ok
}

// OnFill processes one execution reported by the local venue.
func (m *Manager) OnFill(ctx context.Context, f core.Fill) {
	cls := m.classifier.Classify(&f)
	metrics.FillsClassified.WithLabelValues(cls.String()).Inc()

	switch cls {
	case core.ClassIgnore:
		m.logger.Debug("Ignoring fill", "execution_id", f.ExecutionID, "order_id", f.OrderID)
	case core.ClassClosure:
		baseID, ok := m.matcher.FindBaseID(&f)
		if !ok {
			// A closure-looking fill with no open group to close starts a
			// fresh position rather than being silently lost.
			m.logger.Warn("Closure fill matched no open group, treating as new entry",
				"execution_id", f.ExecutionID, "action", f.Action, "instrument", f.Instrument)
			m.handleEntry(ctx, f)
			return
		}
		m.handleClosure(ctx, f, baseID)
	case core.ClassNewEntry:
		m.handleEntry(ctx, f)
	}
}

// OnOrderUpdate retires hedge-closing order ids once their order reaches a
// terminal state, keeping the tracked set from growing without bound.
func (m *Manager) OnOrderUpdate(u core.OrderUpdate) {
	if !u.State.IsTerminal() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hedgeClosing[u.OrderID]; ok {
		delete(m.hedgeClosing, u.OrderID)
		m.logger.Debug("Hedge-closing order finished", "order_id", u.OrderID, "state", u.State)
	}
}

func (m *Manager) handleEntry(ctx context.Context, f core.Fill) {
	position := f.Position
	if position == "" || position == core.PositionFlat {
		position = f.Action.OpenedPosition()
	}
	openedAt := f.Time
	if openedAt.IsZero() {
		openedAt = time.Now()
	}

	m.registry.AddOrIncrement(core.TradeGroup{
		BaseID:            f.BaseID(),
		Position:          position,
		Instrument:        f.Instrument,
		Account:           f.Account,
		Action:            f.Action,
		Price:             f.Price,
		TotalQuantity:     f.Quantity,
		RemainingQuantity: f.Quantity,
		OpenedAt:          openedAt,
	})
	if m.session != nil {
		m.session.RecordOpen()
	}
	m.journalEvent(journal.KindEntry, f.BaseID(), string(f.Action), f.Quantity, f.Price, f.Instrument, f.Account, "")

	group, _ := m.registry.Lookup(f.BaseID())
	qty, _ := f.Quantity.Float64()
	price, _ := f.Price.Float64()
	total, _ := group.TotalQuantity.Float64()
	if err := m.notifier.LogTrade(bridge.TradeEvent{
		ID:            f.ExecutionID,
		BaseID:        f.BaseID(),
		Time:          bridge.FormatTime(openedAt),
		Action:        string(f.Action),
		Quantity:      qty,
		Price:         price,
		TotalQuantity: total,
		ContractNum:   1,
		Instrument:    f.Instrument,
		Account:       f.Account,
		OrderType:     string(f.OrderType),
	}); err != nil {
		m.logger.Error("Failed to enqueue trade log", "base_id", f.BaseID(), "error", err)
	}

	m.logger.Info("New entry recorded",
		"base_id", f.BaseID(), "position", position,
		"quantity", f.Quantity, "instrument", f.Instrument)

	if m.remover != nil && m.remover.IsEntryOrderFill(&f) {
		m.remover.OnEntryFill(f)
	}
}

func (m *Manager) handleClosure(ctx context.Context, f core.Fill, baseID string) {
	group, ok := m.registry.Lookup(baseID)
	if !ok {
		m.logger.Warn("Matched group vanished before closure applied", "base_id", baseID)
		return
	}

	removed := m.registry.Decrement(baseID, f.Quantity)

	pnl := f.Price.Sub(group.Price).Mul(f.Quantity)
	if group.Position == core.PositionShort {
		pnl = pnl.Neg()
	}
	if m.session != nil {
		m.session.RecordClose(pnl)
	}
	m.journalEvent(journal.KindClosure, baseID, string(f.Action), f.Quantity, f.Price, f.Instrument, f.Account, bridge.LocalTradeClosedReason)

	qty, _ := f.Quantity.Float64()
	price, _ := f.Price.Float64()
	total, _ := group.TotalQuantity.Float64()
	if err := m.notifier.CloseHedge(bridge.TradeEvent{
		ID:            f.ExecutionID,
		BaseID:        baseID,
		Time:          bridge.FormatTime(f.Time),
		Quantity:      qty,
		Price:         price,
		TotalQuantity: total,
		ContractNum:   1,
		Instrument:    f.Instrument,
		Account:       f.Account,
	}); err != nil {
		m.logger.Error("Failed to enqueue hedge close", "base_id", baseID, "error", err)
	}

	m.logger.Info("Local closure processed",
		"base_id", baseID, "quantity", f.Quantity,
		"pnl", pnl, "group_removed", removed)
}

// HandleRemoteClose validates an inbound close notification and queues it on
// the serialized executor. The caller gets an acknowledgement as soon as the
// request is accepted; order submission happens asynchronously.
func (m *Manager) HandleRemoteClose(ctx context.Context, n bridge.HedgeCloseNotification) error {
	if n.BaseID == "" {
		return fmt.Errorf("%w: missing base_id", apperrors.ErrMalformedRequest)
	}
	if n.Quantity <= 0 {
		return fmt.Errorf("%w: closed_hedge_quantity must be positive, got %v", apperrors.ErrMalformedRequest, n.Quantity)
	}
	switch strings.ToLower(n.Action) {
	case "buy", "sell":
	default:
		return fmt.Errorf("%w: closed_hedge_action must be buy or sell, got %q", apperrors.ErrMalformedRequest, n.Action)
	}

	return m.exec.Submit(ctx, "remote_close", func(ctx context.Context) error {
		return m.processRemoteClose(ctx, n)
	})
}

func (m *Manager) processRemoteClose(ctx context.Context, n bridge.HedgeCloseNotification) error {
	baseID, ok := m.resolveNotification(&n)
	if !ok {
		metrics.RemoteCloses.WithLabelValues("unresolved").Inc()
		return nil
	}

	if !m.policy.ShouldPropagate(n.ClosureReason) {
		metrics.RemoteCloses.WithLabelValues("suppressed").Inc()
		m.logger.Info("Remote close suppressed by reason policy",
			"base_id", baseID, "closure_reason", n.ClosureReason)
		return nil
	}

	group, ok := m.registry.Lookup(baseID)
	if !ok {
		// Unknown or already-removed groups are treated as already handled.
		// Duplicate deliveries land here and stay no-ops.
		metrics.RemoteCloses.WithLabelValues("unknown_base_id").Inc()
		m.logger.Warn("Remote close for untracked base id, nothing to close",
			"base_id", baseID, "closure_reason", n.ClosureReason)
		return nil
	}

	if !isUnknownField(n.Instrument) && n.Instrument != group.Instrument {
		metrics.RemoteCloses.WithLabelValues("mismatch").Inc()
		return fmt.Errorf("%w: instrument %q does not match stored %q for base id %s",
			apperrors.ErrInconsistentState, n.Instrument, group.Instrument, baseID)
	}
	if !isUnknownField(n.Account) && n.Account != group.Account {
		metrics.RemoteCloses.WithLabelValues("mismatch").Inc()
		return fmt.Errorf("%w: account %q does not match stored %q for base id %s",
			apperrors.ErrInconsistentState, n.Account, group.Account, baseID)
	}

	closeAction, err := closingAction(group.Position, n.Action)
	if err != nil {
		metrics.RemoteCloses.WithLabelValues("direction_mismatch").Inc()
		return err
	}

	name := fmt.Sprintf("HedgeClose_%s_%d", baseID, time.Now().UnixNano())
	orderID, err := m.gateway.SubmitMarketOrder(ctx, core.MarketOrderRequest{
		Name:       name,
		Instrument: group.Instrument,
		Account:    group.Account,
		Action:     closeAction,
		Quantity:   group.TotalQuantity,
	})
	if err != nil {
		metrics.RemoteCloses.WithLabelValues("submit_error").Inc()
		return fmt.Errorf("%w: %v", apperrors.ErrOrderSubmission, err)
	}

	m.mu.Lock()
	m.hedgeClosing[orderID] = struct{}{}
	m.mu.Unlock()

	qty := decimal.NewFromFloat(n.Quantity)
	removed := m.registry.Decrement(baseID, qty)
	m.journalEvent(journal.KindRemoteClose, baseID, string(closeAction), qty, group.Price, group.Instrument, group.Account, n.ClosureReason)

	metrics.RemoteCloses.WithLabelValues("closed").Inc()
	m.logger.Info("Remote close executed",
		"base_id", baseID, "order_id", orderID, "action", closeAction,
		"quantity", qty, "group_removed", removed)
	return nil
}

// resolveNotification fills in instrument/account fields marked unknown. It
// tries the stored group for the notification's BaseID first, then a bounded
// prefix match against all tracked BaseIDs, and fails closed otherwise.
func (m *Manager) resolveNotification(n *bridge.HedgeCloseNotification) (string, bool) {
	if !isUnknownField(n.Instrument) && !isUnknownField(n.Account) {
		return n.BaseID, true
	}

	if group, ok := m.registry.Lookup(n.BaseID); ok {
		n.Instrument = group.Instrument
		n.Account = group.Account
		return n.BaseID, true
	}

	prefix := n.BaseID
	if len(prefix) > unknownFieldPrefixLen {
		prefix = prefix[:unknownFieldPrefixLen]
	}
	for _, group := range m.registry.Snapshot() {
		if strings.HasPrefix(group.BaseID, prefix) || strings.HasPrefix(n.BaseID, group.BaseID) {
			m.logger.Info("Resolved unknown fields via base id prefix match",
				"notified_base_id", n.BaseID, "matched_base_id", group.BaseID)
			n.Instrument = group.Instrument
			n.Account = group.Account
			return group.BaseID, true
		}
	}

	m.logger.Warn("Dropping remote close with unresolvable instrument/account",
		"base_id", n.BaseID, "instrument", n.Instrument, "account", n.Account)
	return "", false
}

func (m *Manager) journalEvent(kind journal.EventKind, baseID, action string, qty, price decimal.Decimal, instrument, account, reason string) {
	if m.journal == nil {
		return
	}
	q, _ := qty.Float64()
	p, _ := price.Float64()
	if err := m.journal.Append(journal.Entry{
		Kind:       kind,
		BaseID:     baseID,
		Action:     action,
		Quantity:   q,
		Price:      p,
		Instrument: instrument,
		Account:    account,
		Reason:     reason,
	}); err != nil {
		m.logger.Error("Failed to journal event", "kind", kind, "base_id", baseID, "error", err)
	}
}

// closingAction maps the stored position direction to the local closing
// action, rejecting notifications whose claimed direction disagrees with the
// direction actually held.
func closingAction(position core.MarketPosition, claimed string) (core.OrderAction, error) {
	switch position {
	case core.PositionLong:
		if !strings.EqualFold(claimed, "buy") {
			return "", fmt.Errorf("%w: stored position LONG but claimed direction %q",
				apperrors.ErrDirectionMismatch, claimed)
		}
		return core.ActionSell, nil
	case core.PositionShort:
		if !strings.EqualFold(claimed, "sell") {
			return "", fmt.Errorf("%w: stored position SHORT but claimed direction %q",
				apperrors.ErrDirectionMismatch, claimed)
		}
		return core.ActionBuyToCover, nil
	default:
		return "", fmt.Errorf("%w: stored position %q has no closing action",
			apperrors.ErrInconsistentState, position)
	}
}

func isUnknownField(v string) bool {
	return v == "" || strings.EqualFold(v, "UNKNOWN")
}
