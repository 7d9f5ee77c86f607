package alert

import (
	"context"
	"time"

	"hedge_sync/internal/core"
)

// HealthWatcher polls the health monitor and raises an alert on every
// healthy/unhealthy transition. Steady state stays quiet.
type HealthWatcher struct {
	manager  *AlertManager
	health   core.IHealthMonitor
	interval time.Duration
	logger   core.ILogger

	wasHealthy bool
	primed     bool
}

func NewHealthWatcher(manager *AlertManager, health core.IHealthMonitor, interval time.Duration, logger core.ILogger) *HealthWatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthWatcher{
		manager:  manager,
		health:   health,
		interval: interval,
		logger:   logger.WithField("component", "health_watcher"),
	}
}

// Run blocks until ctx is cancelled.
func (w *HealthWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *HealthWatcher) check(ctx context.Context) {
	healthy := w.health.IsHealthy()
	if w.primed && healthy == w.wasHealthy {
		return
	}

	if !healthy {
		w.manager.Alert(ctx, "Hedge sync unhealthy",
			"One or more components are failing health checks",
			Error, w.health.GetStatus())
	} else if w.primed {
		w.manager.Alert(ctx, "Hedge sync recovered",
			"All components are healthy again",
			Info, nil)
	}

	w.wasHealthy = healthy
	w.primed = true
}
