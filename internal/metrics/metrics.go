// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aimrange_active_sessions",
		Help: "Number of live game sessions.",
	})

	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aimrange_sessions_evicted_total",
		Help: "Sessions displaced by a newer connection for the same identity.",
	})

	ConnectionsRefused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aimrange_connections_refused_total",
		Help: "Connections refused before a session was created.",
	})

	ValidatorRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aimrange_validator_rejections_total",
		Help: "Clicks rejected by the interaction validator.",
	})

	RoundsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aimrange_rounds_persisted_total",
		Help: "Round results written to the store.",
	})

	WorkerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aimrange_worker_requests_total",
		Help: "Persistence worker requests by kind and result.",
	}, []string{"kind", "result"})

	SnapshotGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aimrange_snapshot_generation",
		Help: "Generation of the currently published ranking snapshot.",
	})
)
