package bridge

import (
	"sync"

	"github.com/shopspring/decimal"
)

// SessionStats tracks running balance and per-session trade outcomes so
// outbound events can carry the bookkeeping fields the relay displays.
type SessionStats struct {
	mu           sync.Mutex
	startBalance decimal.Decimal
	balance      decimal.Decimal
	dailyPnL     decimal.Decimal
	trades       int
	lastResult   string
}

func NewSessionStats(initialBalance decimal.Decimal) *SessionStats {
	return &SessionStats{
		startBalance: initialBalance,
		balance:      initialBalance,
		lastResult:   "pending",
	}
}

// RecordOpen counts a new entry. The outcome stays pending until it closes.
func (s *SessionStats) RecordOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades++
	s.lastResult = "pending"
}

// RecordClose applies realized pnl to the running balance.
func (s *SessionStats) RecordClose(pnl decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = s.balance.Add(pnl)
	s.dailyPnL = s.dailyPnL.Add(pnl)
	if pnl.IsNegative() {
		s.lastResult = "loss"
	} else {
		s.lastResult = "win"
	}
}

// Snapshot returns the current stats as wire-ready values.
func (s *SessionStats) Snapshot() (balance, dailyPnL float64, trades int, lastResult string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, _ := s.balance.Float64()
	pnl, _ := s.dailyPnL.Float64()
	return bal, pnl, s.trades, s.lastResult
}
