package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generationGauge tracks the generation most recently scored
	generationGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "seqevolve_generation",
		Help: "Index of the most recently scored generation",
	})

	// bestFitnessGauge tracks the best valid fitness of the latest generation
	bestFitnessGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "seqevolve_best_fitness",
		Help: "Best valid fitness in the most recently scored generation",
	})

	// generationsTotal counts scored generations across runs
	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seqevolve_generations_total",
		Help: "Total scored generations",
	})
)
