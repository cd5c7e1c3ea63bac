package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	rebuildApplied    = "applied"
	rebuildSuperseded = "superseded"
	rebuildFailed     = "failed"
)

var rebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "socialgraph_rebuilds_total",
	Help: "Graph rebuild requests by outcome",
}, []string{"result"})
