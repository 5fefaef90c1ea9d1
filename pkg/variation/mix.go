package variation

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sequence"
)

// Mix picks one crossover kind per application with weighted random selection
type Mix struct {
	kinds       []string
	ops         []Crossover
	weights     []float64
	totalWeight float64
	counts      map[string]int64
	mu          sync.RWMutex
	logger      *logrus.Logger
}

// NewMix creates a mix from kind -> weight. An empty map selects one-point only.
func NewMix(weights map[string]float64) (*Mix, error) {
	if len(weights) == 0 {
		weights = map[string]float64{constants.CrossoverOnePoint: 1.0}
	}

	kinds := make([]string, 0, len(weights))
	for kind := range weights {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	mix := &Mix{
		kinds:   kinds,
		ops:     make([]Crossover, len(kinds)),
		weights: make([]float64, len(kinds)),
		counts:  make(map[string]int64, len(kinds)),
		logger:  logrus.New(),
	}

	var totalWeight float64
	for i, kind := range kinds {
		op, err := Lookup(kind)
		if err != nil {
			return nil, err
		}
		w := weights[kind]
		if w < 0 {
			return nil, fmt.Errorf("negative weight %.2f for crossover %s", w, kind)
		}
		mix.ops[i] = op
		mix.weights[i] = w
		totalWeight += w
	}

	// Normalize weights
	if totalWeight > 0 {
		for i := range mix.weights {
			mix.weights[i] /= totalWeight
		}
		mix.totalWeight = totalWeight
	} else {
		equalWeight := 1.0 / float64(len(kinds))
		for i := range mix.weights {
			mix.weights[i] = equalWeight
		}
		mix.totalWeight = 1.0
	}

	return mix, nil
}

// SetLogger replaces the mix logger
func (m *Mix) SetLogger(logger *logrus.Logger) {
	m.logger = logger
}

// Cross applies one weighted-random crossover to a and b and returns its kind
func (m *Mix) Cross(rng *rand.Rand, a, b *sequence.Sequence) (string, bool) {
	i := m.selectIndex(rng)
	kind := m.kinds[i]
	changed := m.ops[i](rng, a, b)

	m.mu.Lock()
	m.counts[kind]++
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"crossover": kind,
		"changed":   changed,
	}).Debug("Applied crossover")

	return kind, changed
}

func (m *Mix) selectIndex(rng *rand.Rand) int {
	r := rng.Float64()
	cumulative := 0.0
	for i, weight := range m.weights {
		cumulative += weight
		if r < cumulative {
			return i
		}
	}
	// Rounding can leave the cumulative sum just below 1.0
	return len(m.weights) - 1
}

// Weights returns the normalized weight of every kind
func (m *Mix) Weights() map[string]float64 {
	out := make(map[string]float64, len(m.kinds))
	for i, kind := range m.kinds {
		out[kind] = m.weights[i]
	}
	return out
}

// GetStats returns statistics about the mix
func (m *Mix) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		counts[k] = v
	}

	return map[string]interface{}{
		"num_kinds":    len(m.kinds),
		"total_weight": m.totalWeight,
		"weights":      m.Weights(),
		"applied":      counts,
	}
}
