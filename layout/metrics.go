package layout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stepsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "socialgraph_layout_steps_total",
	Help: "Layout simulation steps executed",
})
