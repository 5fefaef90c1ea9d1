package report

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ishanwen-byte/seqevolve-go/internal/types"
)

func TestPopulation(t *testing.T) {
	s := Population([]float64{1, 2, 3, math.MaxFloat64})
	assert.Equal(t, 3, s.Valid)
	assert.Equal(t, 1, s.Invalid)
	assert.InDelta(t, 2.0, s.Mean, 1e-9)
	assert.InDelta(t, 1.0, s.StdDev, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
}

func TestPopulationEdgeCases(t *testing.T) {
	empty := Population(nil)
	assert.Zero(t, empty.Valid)
	assert.Zero(t, empty.Mean)

	invalid := Population([]float64{math.MaxFloat64, -math.MaxFloat64})
	assert.Equal(t, 2, invalid.Invalid)
	assert.Zero(t, invalid.Valid)

	single := Population([]float64{4})
	assert.Equal(t, 4.0, single.Mean)
	assert.Zero(t, single.StdDev)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, Summary{
		RunID:       "run-1",
		Variant:     "llvm-pass",
		Generations: 2,
		LineageID:   7,
		Values:      []string{"gvn", "licm"},
		Rendered:    "-passes=gvn,licm",
		Fitness:     0.25,
		Stats:       types.EvolutionStats{Registered: 9, TotalEvaluations: 12, Duration: time.Second},
		History: []types.GenerationRecord{
			{Generation: 0, BestFitness: 0.5, AvgFitness: 0.8},
			{Generation: 1, BestFitness: 0.25, AvgFitness: math.MaxFloat64},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "-passes=gvn,licm")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "0.25")
	assert.Contains(t, out, "invalid")
	assert.Contains(t, out, "GEN")
}

func TestWriteWithoutHistory(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, Summary{Fitness: math.MaxFloat64})
	assert.Contains(t, buf.String(), "invalid")
	assert.NotContains(t, buf.String(), "GEN")
}

func TestSequence(t *testing.T) {
	assert.Equal(t, "  1  gvn\n  2  licm\n", Sequence([]string{"gvn", "licm"}))
}
