package selection

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
)

// NoElite marks an elite slot left unfilled for lack of distinct lineages
const NoElite = -1

// Objective is the optimization direction
type Objective string

const (
	Minimize Objective = constants.ObjectiveMinimize
	Maximize Objective = constants.ObjectiveMaximize
)

// ParseObjective validates an objective name; empty means minimize
func ParseObjective(s string) (Objective, error) {
	switch Objective(s) {
	case "", Minimize:
		return Minimize, nil
	case Maximize:
		return Maximize, nil
	default:
		return "", fmt.Errorf("unknown objective: %s", s)
	}
}

// Better reports whether a is strictly better than b
func (o Objective) Better(a, b float64) bool {
	if o == Maximize {
		return a > b
	}
	return a < b
}

// Worst is the sentinel fitness of an individual that could not be measured
func (o Objective) Worst() float64 {
	if o == Maximize {
		return -math.MaxFloat64
	}
	return math.MaxFloat64
}

// Draw picks size distinct indices from [0, n) uniformly, in draw order.
// size is clamped to n.
func Draw(rng *rand.Rand, size, n int) []int {
	if n <= 0 {
		panic("selection: empty population")
	}
	if size > n {
		size = n
	}
	if size < 1 {
		size = 1
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	// partial Fisher-Yates
	for i := 0; i < size; i++ {
		j := i + rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:size]
}

// Winner returns the drawn index with the best fitness; ties go to the first drawn
func Winner(drawn []int, fitness func(int) float64, objective Objective) int {
	best := drawn[0]
	bestFitness := fitness(best)
	for _, idx := range drawn[1:] {
		f := fitness(idx)
		if objective.Better(f, bestFitness) {
			best = idx
			bestFitness = f
		}
	}
	return best
}

// Tournament draws size distinct contestants out of n and returns the winner
func Tournament(rng *rand.Rand, size, n int, fitness func(int) float64, objective Objective) int {
	return Winner(Draw(rng, size, n), fitness, objective)
}

// Elites returns up to k population indices, best first, such that no two
// share a lineage id. Missing slots hold NoElite.
func Elites(fitness []float64, lineage []int, k int, objective Objective) []int {
	if len(fitness) != len(lineage) {
		panic(fmt.Sprintf("selection: %d fitness values for %d lineages", len(fitness), len(lineage)))
	}

	order := make([]int, len(fitness))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return objective.Better(fitness[order[a]], fitness[order[b]])
	})

	elites := make([]int, k)
	for i := range elites {
		elites[i] = NoElite
	}

	seen := make(map[int]bool, k)
	filled := 0
	for _, idx := range order {
		if filled == k {
			break
		}
		if seen[lineage[idx]] {
			continue
		}
		seen[lineage[idx]] = true
		elites[filled] = idx
		filled++
	}
	return elites
}

// Best returns the index of the best fitness; ties go to the lowest index
func Best(fitness []float64, objective Objective) int {
	best := 0
	for i := 1; i < len(fitness); i++ {
		if objective.Better(fitness[i], fitness[best]) {
			best = i
		}
	}
	return best
}
