package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	viewEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_view_evaluations_total",
			Help: "Total number of view evaluations by outcome (published, superseded, failed)",
		},
		[]string{"outcome"},
	)

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_sessions_active",
		Help: "Number of live query sessions",
	})

	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refreshes_total",
			Help: "Total number of catalog refreshes by trigger and result",
		},
		[]string{"trigger", "result"},
	)
)
