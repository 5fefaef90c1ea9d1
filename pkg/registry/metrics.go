package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// oracleCalls counts fitness oracle invocations
	oracleCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seqevolve_oracle_calls_total",
		Help: "Total fitness oracle invocations",
	})

	// cacheHits counts fitness requests answered from memoized data
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seqevolve_fitness_cache_hits_total",
		Help: "Total fitness requests served from the registry",
	})

	// invalidEvaluations counts evaluations recorded with the worst-fitness sentinel
	invalidEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seqevolve_invalid_evaluations_total",
		Help: "Total evaluations below the success threshold or failed",
	})

	// registrySize tracks the number of registered lineages
	registrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "seqevolve_registry_lineages",
		Help: "Number of lineages in the individual registry",
	})
)
