package hydrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// primesTotal counts prime operations by kind and outcome. Kind is
// "snapshot" (stored from memory) or "fetch" (network round trip);
// outcome is "primed", "suppressed" or "failed".
var primesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mealkeeper_hydrator_primes_total",
	Help: "Total cache prime operations by kind and outcome",
}, []string{"kind", "outcome"})
