// Package bridge implements the outbound notification channel to the relay
package bridge

import "time"

// CloseHedgeAction tags an outbound event as a hedge-close instruction.
const CloseHedgeAction = "CLOSE_HEDGE"

// LocalTradeClosedReason is the fixed reason sent when a local trade closed.
const LocalTradeClosedReason = "NT_ORIGINAL_TRADE_CLOSED"

// TradeEvent is the wire shape for both trade logs and hedge-close pushes.
// Field names are the relay's contract and must not change.
type TradeEvent struct {
	ID            string  `json:"id"`
	BaseID        string  `json:"base_id"`
	Time          string  `json:"time"`
	Action        string  `json:"action"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"`
	TotalQuantity float64 `json:"total_quantity"`
	ContractNum   int     `json:"contract_num"`
	Instrument    string  `json:"instrument_name"`
	Account       string  `json:"account_name"`
	Balance       float64 `json:"nt_balance"`
	DailyPnL      float64 `json:"nt_daily_pnl"`
	TradeResult   string  `json:"nt_trade_result"`
	SessionTrades int     `json:"nt_session_trades"`
	OrderType     string  `json:"order_type,omitempty"`
	ClosureReason string  `json:"closure_reason,omitempty"`
}

// HedgeCloseNotification is the inbound wire shape for a remote hedge close.
type HedgeCloseNotification struct {
	EventType     string  `json:"event_type"`
	BaseID        string  `json:"base_id"`
	Instrument    string  `json:"nt_instrument_symbol"`
	Account       string  `json:"nt_account_name"`
	Quantity      float64 `json:"closed_hedge_quantity"`
	Action        string  `json:"closed_hedge_action"`
	Timestamp     string  `json:"timestamp"`
	ClosureReason string  `json:"closure_reason"`
}

// HealthStatus is the relay's health probe response.
type HealthStatus struct {
	Status      string  `json:"status"`
	QueueSize   int     `json:"queue_size"`
	NetPosition float64 `json:"net_position"`
	HedgeSize   float64 `json:"hedge_size"`
}

// FormatTime renders a timestamp the way the relay expects.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
