package variation

import (
	"fmt"
	"math/rand"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sequence"
)

// Crossover recombines a and b in place and reports whether anything was cut
type Crossover func(rng *rand.Rand, a, b *sequence.Sequence) bool

// Lookup returns the crossover registered under kind
func Lookup(kind string) (Crossover, error) {
	switch kind {
	case constants.CrossoverOnePoint:
		return OnePoint, nil
	case constants.CrossoverTwoPointBase:
		return TwoPointBasic, nil
	case constants.CrossoverTwoPointDiff:
		return TwoPointDiff, nil
	default:
		return nil, fmt.Errorf("unknown crossover kind: %s", kind)
	}
}

// CrossAt joins a[1..p-1] to b[p..] and b[1..p-1] to a[p..], swapping lengths
func CrossAt(a, b *sequence.Sequence, p int) {
	sequence.SwapTails(a, p, b, p)
}

// OnePoint cuts both sequences at p drawn uniformly from [2, min(len a, len b)].
// Pairs where either side has a single locus are left untouched.
func OnePoint(rng *rand.Rand, a, b *sequence.Sequence) bool {
	limit := minLen(a, b)
	if limit < 2 {
		return false
	}
	CrossAt(a, b, 2+rng.Intn(limit-1))
	return true
}

// TwoPointBasic applies two independent one-point crossovers in succession,
// the second drawn against the lengths left by the first.
func TwoPointBasic(rng *rand.Rand, a, b *sequence.Sequence) bool {
	first := OnePoint(rng, a, b)
	second := OnePoint(rng, a, b)
	return first || second
}

// TwoPointDiff draws two distinct cut points up front and applies them in
// order. Falls back to one-point when the bound admits a single point.
func TwoPointDiff(rng *rand.Rand, a, b *sequence.Sequence) bool {
	limit := minLen(a, b)
	if limit < 3 {
		return OnePoint(rng, a, b)
	}
	p1, p2 := distinctPoints(rng, limit)
	CrossAt(a, b, p1)
	// one-point crossover swaps lengths, so the shorter side still has limit loci
	CrossAt(a, b, p2)
	return true
}

// Mutate randomizes the gene of one uniformly chosen locus and returns its
// position. The locus keeps its identity.
func Mutate(rng *rand.Rand, s *sequence.Sequence) int {
	k := 1 + rng.Intn(s.Len())
	l := s.Nth(k)
	s.Variant().Randomize(rng, &l.Gene)
	return k
}

// Rates are the percent chances applied per candidate pair
type Rates struct {
	CrossoverPercent int
	MutationPercent  int
}

// Candidates builds n offspring candidates alternating clones of p1 and p2.
// The first two stay untouched so the parents compete with their offspring;
// every following consecutive pair gets a crossover roll then a mutation roll
// per candidate.
func Candidates(rng *rand.Rand, mix *Mix, p1, p2 *sequence.Sequence, n int, rates Rates) []*sequence.Sequence {
	if n < 4 || n%2 != 0 {
		panic(fmt.Sprintf("variation: offspring count %d must be even and >= 4", n))
	}

	candidates := make([]*sequence.Sequence, n)
	for i := range candidates {
		if i%2 == 0 {
			candidates[i] = p1.Clone()
		} else {
			candidates[i] = p2.Clone()
		}
	}

	for i := 2; i+1 < n; i += 2 {
		if roll(rng, rates.CrossoverPercent) {
			mix.Cross(rng, candidates[i], candidates[i+1])
		}
		for _, c := range candidates[i : i+2] {
			if roll(rng, rates.MutationPercent) {
				Mutate(rng, c)
			}
		}
	}

	return candidates
}

func roll(rng *rand.Rand, percent int) bool {
	return rng.Intn(100) < percent
}

func distinctPoints(rng *rand.Rand, limit int) (int, int) {
	p1 := 2 + rng.Intn(limit-1)
	p2 := 2 + rng.Intn(limit-2)
	if p2 >= p1 {
		p2++
	}
	return p1, p2
}

func minLen(a, b *sequence.Sequence) int {
	if a.Len() < b.Len() {
		return a.Len()
	}
	return b.Len()
}
