package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hedge_sync/internal/core"
	"hedge_sync/internal/infrastructure/health"
	"hedge_sync/pkg/logging"
)

type mockAlertChannel struct {
	name string
	mu   sync.Mutex
	sent []AlertPayload
}

func (m *mockAlertChannel) Name() string {
	return m.name
}

func (m *mockAlertChannel) Send(ctx context.Context, alert AlertPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, alert)
	return nil
}

func (m *mockAlertChannel) getSent() []AlertPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]AlertPayload, len(m.sent))
	copy(res, m.sent)
	return res
}

func testLogger(t *testing.T) core.ILogger {
	t.Helper()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)
	return logger
}

func TestAlertManager_FansOutToAllChannels(t *testing.T) {
	am := NewAlertManager(testLogger(t))
	ch1 := &mockAlertChannel{name: "mock1"}
	ch2 := &mockAlertChannel{name: "mock2"}
	am.AddChannel(ch1)
	am.AddChannel(ch2)

	am.Alert(context.Background(), "Bridge unreachable", "relay health probe failed",
		Error, map[string]string{"bridge": "Unhealthy: timeout"})

	assert.Eventually(t, func() bool {
		return len(ch1.getSent()) == 1 && len(ch2.getSent()) == 1
	}, time.Second, 10*time.Millisecond)

	payload := ch1.getSent()[0]
	assert.Equal(t, "Bridge unreachable", payload.Title)
	assert.Equal(t, Error, payload.Level)
	assert.Equal(t, "Unhealthy: timeout", payload.Fields["bridge"])
}

func TestHealthWatcher_AlertsOnTransitionsOnly(t *testing.T) {
	logger := testLogger(t)
	hm := health.NewHealthManager(logger)

	var failing bool
	var mu sync.Mutex
	hm.Register("listener", func() error {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return errors.New("check failed")
		}
		return nil
	})

	am := NewAlertManager(logger)
	ch := &mockAlertChannel{name: "mock"}
	am.AddChannel(ch)
	w := NewHealthWatcher(am, hm, time.Minute, logger)
	ctx := context.Background()

	// Healthy first check primes the watcher without alerting.
	w.check(ctx)
	assert.Empty(t, ch.getSent())

	// Repeated healthy checks stay quiet.
	w.check(ctx)
	assert.Empty(t, ch.getSent())

	mu.Lock()
	failing = true
	mu.Unlock()
	w.check(ctx)
	assert.Eventually(t, func() bool { return len(ch.getSent()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, Error, ch.getSent()[0].Level)

	// Still failing, no duplicate alert.
	w.check(ctx)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, ch.getSent(), 1)

	mu.Lock()
	failing = false
	mu.Unlock()
	w.check(ctx)
	assert.Eventually(t, func() bool { return len(ch.getSent()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, Info, ch.getSent()[1].Level)
}
