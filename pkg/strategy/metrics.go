package strategy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeNetwork  = "network"
	outcomeCache    = "cache"
	outcomeFallback = "fallback"
)

var (
	// strategyRequests tracks handled requests by strategy and outcome.
	strategyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mealkeeper_strategy_requests_total",
		Help: "Requests handled by caching strategy and outcome",
	}, []string{"strategy", "outcome"})
)
