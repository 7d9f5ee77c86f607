package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// OpenOrder is a working order visible on the local venue.
type OpenOrder struct {
	ID         string
	Name       string
	Instrument string
	Account    string
	Action     OrderAction
	Type       OrderType
	Quantity   decimal.Decimal
	OCO        string
}

// MarketOrderRequest describes a market order to be submitted on the local venue.
type MarketOrderRequest struct {
	Name       string
	Instrument string
	Account    string
	Action     OrderAction
	Quantity   decimal.Decimal
}

// IOrderGateway is the injected order capability of the local venue.
type IOrderGateway interface {
	SubmitMarketOrder(ctx context.Context, req MarketOrderRequest) (orderID string, err error)
	CancelOrder(ctx context.Context, orderID string) error
	OpenOrders(ctx context.Context, instrument, account string) ([]OpenOrder, error)
}

// IExecutor marshals order-touching work onto the venue's single serialized
// execution context. Tasks run one at a time in submission order.
type IExecutor interface {
	Submit(ctx context.Context, name string, task func(ctx context.Context) error) error
}

// IHealthMonitor defines the interface for health monitoring
type IHealthMonitor interface {
	Register(component string, check func() error)
	GetStatus() map[string]string
	IsHealthy() bool
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
