package ingestspec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	segmentLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestspec_segment_lookups_total",
		Help: "Used segment lookups issued while resolving ingestion specs, by result",
	}, []string{"result"})

	segmentLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestspec_segment_lookup_duration_seconds",
		Help:    "Used segment lookup duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
)
