package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_loads_total",
		Help: "Catalog loads by outcome (published, failed, superseded, fallback).",
	}, []string{"outcome"})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_load_duration_seconds",
		Help:    "Time spent loading the catalog from its source.",
		Buckets: prometheus.DefBuckets,
	})

	snapshotVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_snapshot_version",
		Help: "Version of the currently published catalog snapshot.",
	})
)
