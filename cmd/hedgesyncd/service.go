package main

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"hedge_sync/internal/alert"
	"hedge_sync/internal/bridge"
	"hedge_sync/internal/config"
	"hedge_sync/internal/core"
	"hedge_sync/internal/execution"
	"hedge_sync/internal/gateway"
	"hedge_sync/internal/hedge"
	"hedge_sync/internal/infrastructure/health"
	"hedge_sync/internal/infrastructure/metrics"
	"hedge_sync/internal/journal"
	"hedge_sync/internal/listener"
	"hedge_sync/internal/registry"
	"hedge_sync/internal/sltp"
	"hedge_sync/pkg/concurrency"
	"hedge_sync/pkg/httpclient"
)

const shutdownTimeout = 10 * time.Second

// service owns every long-lived component and their shutdown order.
type service struct {
	cfg    *config.Config
	logger core.ILogger

	exec     *execution.Serial
	pool     *concurrency.WorkerPool
	remover  *sltp.Remover
	journal  *journal.Store
	listener *listener.Server
	metrics  *metrics.Server
	watcher  *alert.HealthWatcher
	manager  *hedge.Manager
}

func newService(cfg *config.Config, logger core.ILogger) (*service, error) {
	reg := registry.NewRegistry(logger)
	exec := execution.NewSerial(cfg.Concurrency.ExecQueueSize, logger)
	gw := gateway.NewPaper(logger)
	session := bridge.NewSessionStats(decimal.NewFromFloat(cfg.App.InitialBalance))

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "notify",
		MaxWorkers:  cfg.Concurrency.NotifyPoolSize,
		MaxCapacity: cfg.Concurrency.NotifyPoolBuffer,
		NonBlocking: true,
	}, logger)
	notifier := bridge.NewClient(
		httpclient.NewClient(cfg.Bridge.URL, cfg.Bridge.Timeout()),
		pool, session, cfg.Bridge.Timeout(), logger)

	opts := hedge.Options{Session: session}
	if cfg.SLTP.Enabled {
		opts.Remover = sltp.NewRemover(gw, exec, cfg.SLTP.Delay(), logger)
	}

	var store *journal.Store
	if cfg.Journal.Enabled {
		var err error
		store, err = journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return nil, err
		}
		opts.Journal = store
	}

	manager := hedge.NewManager(reg, notifier, gw, exec, opts, logger)

	svc := &service{
		cfg:     cfg,
		logger:  logger.WithField("component", "service"),
		exec:    exec,
		pool:    pool,
		remover: opts.Remover,
		journal: store,
		manager: manager,
	}

	hm := health.NewHealthManager(logger)
	svc.listener = listener.NewServer(cfg.App.Name, cfg.Listener, manager, func() {
		logger.Debug("Relay liveness ping received")
	}, logger)
	hm.Register("listener", svc.listener.Healthy)
	hm.Register("bridge", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Bridge.HealthTimeout())
		defer cancel()
		_, err := notifier.Health(ctx)
		return err
	})

	if cfg.Telemetry.EnableMetrics {
		svc.metrics = metrics.NewServer(cfg.Telemetry.MetricsPort, logger, hm)
	}

	if cfg.Alerting.Enabled {
		am := alert.NewAlertManager(logger)
		am.AddChannel(alert.NewWebhookChannel(cfg.Alerting.WebhookURL))
		svc.watcher = alert.NewHealthWatcher(am, hm, cfg.Alerting.HealthInterval(), logger)
	}

	return svc, nil
}

// Run starts all components and blocks until ctx is cancelled, then shuts
// them down in dependency order: stop accepting inbound work first, then
// drain the executor and notification pool.
func (s *service) Run(ctx context.Context) error {
	s.exec.Start()
	if err := s.listener.Start(); err != nil {
		s.exec.Stop()
		return err
	}
	if s.metrics != nil {
		s.metrics.Start()
	}
	if s.watcher != nil {
		go s.watcher.Run(ctx)
	}

	s.logger.Info("Hedge sync service running")
	<-ctx.Done()
	s.logger.Info("Shutting down")

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.listener.Stop(shCtx); err != nil {
		s.logger.Error("Listener shutdown failed", "error", err)
	}
	if s.remover != nil {
		s.remover.Stop()
	}
	s.exec.Stop()
	s.pool.Stop()
	if s.metrics != nil {
		if err := s.metrics.Stop(shCtx); err != nil {
			s.logger.Error("Metrics server shutdown failed", "error", err)
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Error("Journal close failed", "error", err)
		}
	}
	return nil
}
