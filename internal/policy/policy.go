// Package policy decides whether inbound closure reasons propagate locally
package policy

import "hedge_sync/internal/core"

// eaManagedReasons are closures originated by the remote side's own
// management logic (rebalancing, parallel-array tracking, reconciliation).
var eaManagedReasons = map[string]struct{}{
	"EA_ADJUSTMENT_CLOSE":            {},
	"EA_INTERNAL_REBALANCE":          {},
	"EA_PARALLEL_ARRAY_CLOSE":        {},
	"EA_COMMENT_BASED_CLOSE":         {},
	"EA_RECONCILED_AND_CLOSED":       {},
	"EA_PARALLEL_ARRAY_ORPHAN_CLOSE": {},
	"EA_COMMENT_ORPHAN_CLOSE":        {},
	"EA_OLD_MAP_FALLBACK_CLOSE":      {},
	"EA_GLOBALFUTURES_ZERO_CLOSE":    {},
	"EA_TRAILING_STOP_CLOSE":         {},
}

// externalReasons are closures initiated by a user, a protective order fill,
// or a broker action on the remote side.
var externalReasons = map[string]struct{}{
	"MANUAL_MT5_CLOSE":         {},
	"EA_MANUAL_CLOSE":          {},
	"USER_STOP_LOSS_CLOSE":     {},
	"USER_TAKE_PROFIT_CLOSE":   {},
	"NT_ORIGINAL_TRADE_CLOSED": {},
	"BROKER_MARGIN_CALL":       {},
	"BROKER_STOP_OUT":          {},
	"UNKNOWN_MT5_CLOSE":        {},
	"EA_STOP_LOSS_CLOSE":       {},
	"EA_TAKE_PROFIT_CLOSE":     {},
}

// ReasonPolicy gates inbound remote-close notifications on their reason tag.
type ReasonPolicy struct {
	logger core.ILogger
}

// NewReasonPolicy creates the policy.
func NewReasonPolicy(logger core.ILogger) *ReasonPolicy {
	return &ReasonPolicy{
		logger: logger.WithField("component", "closure_reason_policy"),
	}
}

// ShouldPropagate reports whether a remote closure with the given reason
// should flatten the matching local position.
//
// Remote-managed reasons propagate because the sync is bidirectional: an
// internal closure on the remote side still has to flatten the local leg or
// the two venues drift apart. External reasons propagate because they are
// genuine closes. Unknown and empty reasons default to propagating, favoring
// a closed position over silent inconsistency.
func (p *ReasonPolicy) ShouldPropagate(reason string) bool {
	if reason == "" {
		p.logger.Warn("Closure notification without a reason, propagating by default")
		return true
	}
	if _, ok := eaManagedReasons[reason]; ok {
		p.logger.Info("Remote-managed closure reason, propagating", "reason", reason)
		return true
	}
	if _, ok := externalReasons[reason]; ok {
		p.logger.Info("External closure reason, propagating", "reason", reason)
		return true
	}
	p.logger.Warn("Unrecognized closure reason, propagating to stay consistent", "reason", reason)
	return true
}
