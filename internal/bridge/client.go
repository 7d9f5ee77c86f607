package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hedge_sync/internal/core"
	"hedge_sync/internal/infrastructure/metrics"
	"hedge_sync/pkg/concurrency"
	apperrors "hedge_sync/pkg/errors"
	"hedge_sync/pkg/httpclient"
)

const (
	logTradePath   = "/log_trade"
	closeHedgePath = "/nt_close_hedge"
	healthPath     = "/health"
)

// Client pushes trade events to the relay. Deliveries are fire-and-forget:
// each push is handed to the worker pool and the caller never blocks on the
// network. A failed push is logged and counted but not retried.
type Client struct {
	http    *httpclient.Client
	pool    *concurrency.WorkerPool
	session *SessionStats
	logger  core.ILogger
	timeout time.Duration
}

func NewClient(http *httpclient.Client, pool *concurrency.WorkerPool, session *SessionStats, timeout time.Duration, logger core.ILogger) *Client {
	return &Client{
		http:    http,
		pool:    pool,
		session: session,
		logger:  logger.WithField("component", "bridge_client"),
		timeout: timeout,
	}
}

// LogTrade enqueues a trade event for delivery to the relay.
func (c *Client) LogTrade(ev TradeEvent) error {
	c.enrich(&ev)
	return c.push(logTradePath, ev)
}

// CloseHedge enqueues a hedge-close instruction for delivery to the relay.
func (c *Client) CloseHedge(ev TradeEvent) error {
	ev.Action = CloseHedgeAction
	if ev.ClosureReason == "" {
		ev.ClosureReason = LocalTradeClosedReason
	}
	c.enrich(&ev)
	return c.push(closeHedgePath, ev)
}

// Health probes the relay and returns its reported status. An unhealthy or
// unreachable relay yields ErrBridgeUnhealthy.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	body, err := c.http.Get(ctx, healthPath, map[string]string{"source": "addon"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBridgeUnhealthy, err)
	}

	var status HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("%w: malformed health response: %v", apperrors.ErrBridgeUnhealthy, err)
	}
	if status.Status != "healthy" {
		return &status, fmt.Errorf("%w: relay reports %q", apperrors.ErrBridgeUnhealthy, status.Status)
	}
	return &status, nil
}

func (c *Client) enrich(ev *TradeEvent) {
	if ev.Time == "" {
		ev.Time = FormatTime(time.Now())
	}
	if c.session != nil {
		balance, dailyPnL, trades, lastResult := c.session.Snapshot()
		ev.Balance = balance
		ev.DailyPnL = dailyPnL
		ev.SessionTrades = trades
		ev.TradeResult = lastResult
	}
}

func (c *Client) push(path string, ev TradeEvent) error {
	err := c.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		if _, err := c.http.Post(ctx, path, ev); err != nil {
			metrics.NotificationsSent.WithLabelValues(path, "error").Inc()
			c.logger.Error("Failed to deliver notification",
				"path", path, "base_id", ev.BaseID, "error", err)
			return
		}
		metrics.NotificationsSent.WithLabelValues(path, "ok").Inc()
		c.logger.Debug("Notification delivered", "path", path, "base_id", ev.BaseID)
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(path, "dropped").Inc()
		c.logger.Error("Notification queue full, dropping event",
			"path", path, "base_id", ev.BaseID)
		return fmt.Errorf("%w: %v", apperrors.ErrQueueFull, err)
	}
	return nil
}
