// Package core defines the shared types and interfaces for the hedge sync system
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketPosition is the direction of an open position.
type MarketPosition string

const (
	PositionLong  MarketPosition = "LONG"
	PositionShort MarketPosition = "SHORT"
	PositionFlat  MarketPosition = "FLAT"
)

// Inverse returns the opposite direction. Flat has no inverse.
func (p MarketPosition) Inverse() MarketPosition {
	switch p {
	case PositionLong:
		return PositionShort
	case PositionShort:
		return PositionLong
	default:
		return PositionFlat
	}
}

// OrderAction is the directional action of an order.
type OrderAction string

const (
	ActionBuy        OrderAction = "BUY"
	ActionSell       OrderAction = "SELL"
	ActionSellShort  OrderAction = "SELLSHORT"
	ActionBuyToCover OrderAction = "BUYTOCOVER"
)

// IsRecognized reports whether the action is one of the four directional
// actions the venue emits. Anything else is not eligible for entry handling.
func (a OrderAction) IsRecognized() bool {
	switch a {
	case ActionBuy, ActionSell, ActionSellShort, ActionBuyToCover:
		return true
	}
	return false
}

// IsBuySide reports whether the action adds long exposure.
func (a OrderAction) IsBuySide() bool {
	return a == ActionBuy || a == ActionBuyToCover
}

// OpenedPosition returns the position direction an order with this action
// opens when treated as an entry.
func (a OrderAction) OpenedPosition() MarketPosition {
	if a.IsBuySide() {
		return PositionLong
	}
	return PositionShort
}

// OrderType is the venue order type of a fill or open order.
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopMarket OrderType = "STOPMARKET"
	OrderTypeStopLimit  OrderType = "STOPLIMIT"
	OrderTypeMIT        OrderType = "MIT"
	OrderTypeUnknown    OrderType = "UNKNOWN"
)

// OrderState is the lifecycle state reported by order updates.
type OrderState string

const (
	OrderStateWorking    OrderState = "WORKING"
	OrderStateAccepted   OrderState = "ACCEPTED"
	OrderStateSubmitted  OrderState = "SUBMITTED"
	OrderStatePartFilled OrderState = "PARTFILLED"
	OrderStateFilled     OrderState = "FILLED"
	OrderStateCancelled  OrderState = "CANCELLED"
	OrderStateRejected   OrderState = "REJECTED"
)

// IsTerminal reports whether no further updates can arrive for the order.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCancelled, OrderStateRejected:
		return true
	}
	return false
}

// Fill is a single execution reported by the local venue.
type Fill struct {
	ExecutionID   string
	OrderID       string
	OrderName     string
	Action        OrderAction
	OrderType     OrderType
	Position      MarketPosition
	Quantity      decimal.Decimal
	OrderQuantity decimal.Decimal
	Price         decimal.Decimal
	Instrument    string
	Account       string
	OCO           string
	Time          time.Time
}

// BaseID returns the synchronization key grouping all fills of one logical
// opening trade. The parent order id serves as that key.
func (f *Fill) BaseID() string {
	return f.OrderID
}

// OrderUpdate is a lifecycle change reported for a working order.
type OrderUpdate struct {
	OrderID string
	Name    string
	State   OrderState
	Filled  decimal.Decimal
}

// TradeGroup is the registry record for one BaseID.
type TradeGroup struct {
	BaseID            string
	Position          MarketPosition
	Instrument        string
	Account           string
	Action            OrderAction
	Price             decimal.Decimal
	TotalQuantity     decimal.Decimal
	RemainingQuantity decimal.Decimal
	OpenedAt          time.Time
}

// Classification is the outcome of classifying a fill.
type Classification int

const (
	ClassIgnore Classification = iota
	ClassNewEntry
	ClassClosure
)

func (c Classification) String() string {
	switch c {
	case ClassNewEntry:
		return "new_entry"
	case ClassClosure:
		return "closure"
	default:
		return "ignore"
	}
}
