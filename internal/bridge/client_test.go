package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hedge_sync/internal/core"
	"hedge_sync/pkg/concurrency"
	apperrors "hedge_sync/pkg/errors"
	"hedge_sync/pkg/httpclient"
	"hedge_sync/pkg/logging"
)

func testLogger(t *testing.T) core.ILogger {
	t.Helper()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)
	return logger
}

type capture struct {
	mu     sync.Mutex
	paths  []string
	events []TradeEvent
	done   chan struct{}
}

func newCaptureServer(t *testing.T, expected int) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{done: make(chan struct{})}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev TradeEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))

		c.mu.Lock()
		c.paths = append(c.paths, r.URL.Path)
		c.events = append(c.events, ev)
		if len(c.events) == expected {
			close(c.done)
		}
		c.mu.Unlock()

		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newTestClient(t *testing.T, baseURL string, session *SessionStats) *Client {
	t.Helper()
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "bridge_test",
		MaxWorkers:  2,
		MaxCapacity: 16,
	}, testLogger(t))
	t.Cleanup(pool.Stop)

	return NewClient(httpclient.NewClient(baseURL, 2*time.Second), pool, session, 2*time.Second, testLogger(t))
}

func waitDelivered(t *testing.T, c *capture) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for notification delivery")
	}
}

func TestLogTrade_DeliversEnrichedEvent(t *testing.T) {
	srv, c := newCaptureServer(t, 1)
	session := NewSessionStats(decimal.NewFromInt(10000))
	session.RecordOpen()
	client := newTestClient(t, srv.URL, session)

	err := client.LogTrade(TradeEvent{
		ID:            "exec-1",
		BaseID:        "order-1",
		Action:        "Buy",
		Quantity:      2,
		Price:         101.25,
		TotalQuantity: 2,
		Instrument:    "NQ 03-26",
		Account:       "Sim101",
	})
	require.NoError(t, err)
	waitDelivered(t, c)

	assert.Equal(t, []string{"/log_trade"}, c.paths)
	ev := c.events[0]
	assert.Equal(t, "order-1", ev.BaseID)
	assert.Equal(t, 10000.0, ev.Balance)
	assert.Equal(t, 1, ev.SessionTrades)
	assert.Equal(t, "pending", ev.TradeResult)
	assert.NotEmpty(t, ev.Time)
	_, parseErr := time.Parse("2006-01-02T15:04:05Z", ev.Time)
	assert.NoError(t, parseErr)
}

func TestCloseHedge_SetsActionAndReason(t *testing.T) {
	srv, c := newCaptureServer(t, 1)
	client := newTestClient(t, srv.URL, NewSessionStats(decimal.Zero))

	err := client.CloseHedge(TradeEvent{
		ID:       "close-1",
		BaseID:   "order-1",
		Quantity: 2,
	})
	require.NoError(t, err)
	waitDelivered(t, c)

	assert.Equal(t, []string{"/nt_close_hedge"}, c.paths)
	assert.Equal(t, CloseHedgeAction, c.events[0].Action)
	assert.Equal(t, LocalTradeClosedReason, c.events[0].ClosureReason)
}

func TestCloseHedge_KeepsExplicitReason(t *testing.T) {
	srv, c := newCaptureServer(t, 1)
	client := newTestClient(t, srv.URL, nil)

	err := client.CloseHedge(TradeEvent{
		BaseID:        "order-2",
		Quantity:      1,
		ClosureReason: "EA_TRAILING_STOP",
	})
	require.NoError(t, err)
	waitDelivered(t, c)

	assert.Equal(t, "EA_TRAILING_STOP", c.events[0].ClosureReason)
}

func TestPush_ServerErrorDoesNotPropagate(t *testing.T) {
	hit := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(hit) })
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL, nil)

	// Delivery failures are logged and counted, never surfaced to the caller.
	err := client.LogTrade(TradeEvent{BaseID: "order-3"})
	require.NoError(t, err)

	select {
	case <-hit:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for request")
	}
}

func TestHealth_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "addon", r.URL.Query().Get("source"))
		json.NewEncoder(w).Encode(HealthStatus{
			Status:      "healthy",
			QueueSize:   3,
			NetPosition: 2,
			HedgeSize:   2,
		})
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL, nil)

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, status.QueueSize)
	assert.Equal(t, 2.0, status.NetPosition)
}

func TestHealth_DegradedRelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(HealthStatus{Status: "degraded"})
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL, nil)

	status, err := client.Health(context.Background())
	require.ErrorIs(t, err, apperrors.ErrBridgeUnhealthy)
	require.NotNil(t, status)
	assert.Equal(t, "degraded", status.Status)
}

func TestHealth_Unreachable(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1", nil)

	_, err := client.Health(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrBridgeUnhealthy)
}
