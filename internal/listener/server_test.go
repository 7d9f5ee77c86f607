package listener

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hedge_sync/internal/bridge"
	"hedge_sync/internal/config"
	"hedge_sync/internal/core"
	apperrors "hedge_sync/pkg/errors"
	"hedge_sync/pkg/logging"
)

func testLogger(t *testing.T) core.ILogger {
	t.Helper()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)
	return logger
}

type stubInbound struct {
	mu       sync.Mutex
	received []bridge.HedgeCloseNotification
	err      error
}

func (s *stubInbound) HandleRemoteClose(ctx context.Context, n bridge.HedgeCloseNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, n)
	return s.err
}

func newTestServer(t *testing.T, inbound *stubInbound, onPing func(), rateLimit float64) *Server {
	t.Helper()
	cfg := config.ListenerConfig{Host: "127.0.0.1", Port: 0, RateLimit: rateLimit, RateBurst: 1}
	return NewServer("hedgesync", cfg, inbound, onPing, testLogger(t))
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	pinged := false
	srv := newTestServer(t, &stubInbound{}, func() { pinged = true }, 0)

	req := httptest.NewRequest(http.MethodGet, "/ping_msm", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, pinged)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "hedgesync_active", body["status"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestNotifyClosed_Accepted(t *testing.T) {
	inbound := &stubInbound{}
	srv := newTestServer(t, inbound, nil, 0)

	rec := postJSON(t, srv.routes(), "/notify_hedge_closed", `{
		"event_type": "hedge_close_notification",
		"base_id": "order-1",
		"nt_instrument_symbol": "NQ 03-26",
		"nt_account_name": "Sim101",
		"closed_hedge_quantity": 2,
		"closed_hedge_action": "buy",
		"closure_reason": "EA_TRAILING_STOP"
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)

	require.Len(t, inbound.received, 1)
	n := inbound.received[0]
	assert.Equal(t, "order-1", n.BaseID)
	assert.Equal(t, "NQ 03-26", n.Instrument)
	assert.Equal(t, 2.0, n.Quantity)
	assert.Equal(t, "buy", n.Action)
}

func TestNotifyClosed_InvalidJSON(t *testing.T) {
	inbound := &stubInbound{}
	srv := newTestServer(t, inbound, nil, 0)

	rec := postJSON(t, srv.routes(), "/notify_hedge_closed", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, inbound.received)
}

func TestNotifyClosed_MalformedRequestMapsTo400(t *testing.T) {
	inbound := &stubInbound{err: apperrors.ErrMalformedRequest}
	srv := newTestServer(t, inbound, nil, 0)

	rec := postJSON(t, srv.routes(), "/notify_hedge_closed", `{"base_id":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestNotifyClosed_OtherErrorsMapTo500(t *testing.T) {
	inbound := &stubInbound{err: apperrors.ErrInconsistentState}
	srv := newTestServer(t, inbound, nil, 0)

	rec := postJSON(t, srv.routes(), "/notify_hedge_closed", `{"base_id":"order-1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNotifyClosed_RateLimited(t *testing.T) {
	inbound := &stubInbound{}
	srv := newTestServer(t, inbound, nil, 0.001)

	first := postJSON(t, srv.routes(), "/notify_hedge_closed", `{"base_id":"order-1"}`)
	second := postJSON(t, srv.routes(), "/notify_hedge_closed", `{"base_id":"order-2"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Len(t, inbound.received, 1)
}

func TestUnknownEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubInbound{}, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/no_such_path", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestWrongMethodIsNotFound(t *testing.T) {
	srv := newTestServer(t, &stubInbound{}, nil, 0)

	rec := postJSON(t, srv.routes(), "/ping_msm", ``)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/notify_hedge_closed", nil)
	getRec := httptest.NewRecorder()
	srv.routes().ServeHTTP(getRec, req)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestLifecycle(t *testing.T) {
	srv := newTestServer(t, &stubInbound{}, nil, 0)
	assert.Equal(t, StateStopped, srv.State())
	assert.Error(t, srv.Healthy())

	require.NoError(t, srv.Start())
	assert.Equal(t, StateListening, srv.State())
	assert.NoError(t, srv.Healthy())

	// Double start while listening must fail.
	assert.Error(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/ping_msm")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.Equal(t, StateStopped, srv.State())

	// Stopping again is a no-op.
	assert.NoError(t, srv.Stop(ctx))
}

func TestStart_BindFailureLeavesStopped(t *testing.T) {
	first := newTestServer(t, &stubInbound{}, nil, 0)
	require.NoError(t, first.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		first.Stop(ctx)
	})

	_, portStr, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.ListenerConfig{Host: "127.0.0.1", Port: port}
	second := NewServer("hedgesync", cfg, &stubInbound{}, nil, testLogger(t))
	assert.Error(t, second.Start())
	assert.Equal(t, StateStopped, second.State())
}
