package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ishanwen-byte/seqevolve-go/internal/types"
)

// FitnessStats summarizes one population's fitness values. Invalid sentinels
// are left out of every statistic.
type FitnessStats struct {
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
	Valid   int
	Invalid int
}

// Population computes FitnessStats over fitness
func Population(fitness []float64) FitnessStats {
	valid := make([]float64, 0, len(fitness))
	for _, f := range fitness {
		if math.Abs(f) == math.MaxFloat64 || math.IsNaN(f) {
			continue
		}
		valid = append(valid, f)
	}

	s := FitnessStats{Valid: len(valid), Invalid: len(fitness) - len(valid)}
	if len(valid) == 0 {
		return s
	}
	s.Mean = stat.Mean(valid, nil)
	if len(valid) > 1 {
		s.StdDev = stat.StdDev(valid, nil)
	}
	s.Min = floats.Min(valid)
	s.Max = floats.Max(valid)
	return s
}

// Summary is what the run report shows
type Summary struct {
	RunID       string
	Variant     string
	Generations int
	LineageID   int
	Values      []string
	Rendered    string
	Fitness     float64
	Stats       types.EvolutionStats
	History     []types.GenerationRecord
}

// Write renders the run summary and the per-generation history as tables
func Write(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Best Individual")
	t.AppendRows([]table.Row{
		{"Run", s.RunID},
		{"Variant", s.Variant},
		{"Generations", s.Generations},
		{"Lineage", s.LineageID},
		{"Length", len(s.Values)},
		{"Fitness", formatFitness(s.Fitness)},
		{"Rendered", s.Rendered},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Lineages", s.Stats.Registered},
		{"Evaluations", s.Stats.TotalEvaluations},
		{"Invalid", s.Stats.InvalidEvaluations},
		{"Cache hits", s.Stats.CacheHits},
		{"Duration", s.Stats.Duration.Round(1e6).String()},
	})
	t.Render()

	if len(s.History) == 0 {
		return
	}

	t = table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Generations")
	t.AppendHeader(table.Row{"GEN", "BEST", "AVG", "LINEAGE", "DISTINCT", "EVALS", "STALE"})
	best := make([]float64, 0, len(s.History))
	for _, g := range s.History {
		t.AppendRow(table.Row{
			g.Generation,
			formatFitness(g.BestFitness),
			formatFitness(g.AvgFitness),
			g.BestLineage,
			g.Distinct,
			g.Evaluations,
			g.Stale,
		})
		best = append(best, g.BestFitness)
	}
	trend := Population(best)
	t.AppendFooter(table.Row{"", formatFitness(trend.Min), formatFitness(trend.Mean), "", "", "", ""})
	t.Render()
}

// Sequence renders values as a numbered list, one per line
func Sequence(values []string) string {
	var b strings.Builder
	for i, v := range values {
		fmt.Fprintf(&b, "%3d  %s\n", i+1, v)
	}
	return b.String()
}

func formatFitness(f float64) string {
	if math.Abs(f) == math.MaxFloat64 {
		return "invalid"
	}
	return fmt.Sprintf("%.6g", f)
}
