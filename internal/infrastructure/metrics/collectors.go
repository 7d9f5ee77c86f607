// Package metrics exposes Prometheus collectors and the scrape endpoint
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpenTradeGroups tracks the number of BaseIDs currently in the registry.
	OpenTradeGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedgesync_open_trade_groups",
		Help: "Number of trade groups currently tracked in the position registry",
	})

	// FillsClassified counts classification outcomes by result.
	FillsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedgesync_fills_classified_total",
		Help: "Total fills classified, labeled by outcome",
	}, []string{"result"})

	// NotificationsSent counts outbound relay notifications by endpoint and status.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedgesync_notifications_sent_total",
		Help: "Total outbound notifications to the relay, labeled by endpoint and delivery status",
	}, []string{"endpoint", "status"})

	// RemoteCloses counts inbound remote close notifications by outcome.
	RemoteCloses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedgesync_remote_closes_total",
		Help: "Total inbound hedge close notifications, labeled by processing outcome",
	}, []string{"result"})

	// SLTPSweeps counts protective-order removal sweeps that ran.
	SLTPSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgesync_sltp_sweeps_total",
		Help: "Total protective-order removal sweeps executed",
	})

	// SLTPOrdersCancelled counts protective orders cancelled by sweeps.
	SLTPOrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgesync_sltp_orders_cancelled_total",
		Help: "Total protective orders cancelled by removal sweeps",
	})
)
