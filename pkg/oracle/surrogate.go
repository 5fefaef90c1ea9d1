package oracle

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"

	"github.com/ishanwen-byte/seqevolve-go/internal/types"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sequence"
)

// Surrogate scores a sequence without building anything. Each gene is mapped
// to an action in [-1, 1]; actions that match a position-dependent target phase
// lower a simulated program complexity. The final complexity is the cost.
type Surrogate struct {
	noise float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSurrogate creates a surrogate oracle. config.Noise is the relative
// standard deviation of the gaussian noise added to every run.
func NewSurrogate(config types.OracleConfig) *Surrogate {
	return &Surrogate{
		noise: config.Noise,
		rng:   rand.New(rand.NewSource(1)),
	}
}

// Evaluate returns budget samples of the simulated complexity
func (s *Surrogate) Evaluate(ctx context.Context, seq *sequence.Sequence, budget int) (*types.OracleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cost := Complexity(seq.Values())
	result := &types.OracleResult{
		Samples:      make([]float64, 0, budget),
		SuccessCount: budget,
	}

	s.mu.Lock()
	for i := 0; i < budget; i++ {
		sample := cost
		if s.noise > 0 {
			sample = math.Max(0, cost*(1+s.noise*s.rng.NormFloat64()))
		}
		result.Samples = append(result.Samples, sample)
	}
	s.mu.Unlock()

	result.AverageCost, _ = MeanVariance(result.Samples)
	return result, nil
}

// Complexity runs the phase model over values and returns the final complexity
func Complexity(values []string) float64 {
	complexity := 1.2
	n := len(values)
	for i, value := range values {
		pos := 0.0
		if n > 1 {
			pos = float64(i) / float64(n-1)
		}
		action := geneAction(value)
		target := clamp(1.0-2.0*pos, -1, 1)
		alignment := 1.0 - 0.5*math.Abs(action-target)
		improvement := 0.045*alignment - 0.015*math.Abs(action)
		complexity = clamp(complexity-improvement, 0.05, 2.0)
	}
	return complexity
}

func geneAction(value string) float64 {
	h := fnv.New32a()
	h.Write([]byte(value))
	return float64(h.Sum32())/float64(math.MaxUint32)*2 - 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
