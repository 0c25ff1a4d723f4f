package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generationsDeleted counts stale-generation caches removed at
	// activation.
	generationsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mealkeeper_stale_caches_deleted_total",
		Help: "Stale-generation caches deleted during activation",
	})
)
