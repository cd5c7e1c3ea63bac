package neighborhood

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	modeFocal = "focal"
	modeAll   = "all"

	resultOK       = "ok"
	resultNotFound = "not_found"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

var (
	aggregationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_aggregations_total",
		Help: "Neighborhood aggregations by mode and result",
	}, []string{"mode", "result"})

	aggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialgraph_aggregation_duration_seconds",
		Help:    "Neighborhood aggregation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"mode"})

	aggregatedNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "socialgraph_aggregated_nodes",
		Help:    "People per aggregated graph",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	aggregatedLinks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "socialgraph_aggregated_links",
		Help:    "Connections per aggregated graph",
		Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
)
