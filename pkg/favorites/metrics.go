package favorites

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// favoriteOps tracks store operations by kind and outcome.
	favoriteOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealkeeper_favorites_ops_total",
		Help: "Favorites store operations by kind and outcome",
	}, []string{"op", "outcome"})
)
