package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ishanwen-byte/seqevolve-go/internal/types"
	"github.com/ishanwen-byte/seqevolve-go/pkg/config"
	"github.com/ishanwen-byte/seqevolve-go/pkg/gene"
	"github.com/ishanwen-byte/seqevolve-go/pkg/oracle"
	"github.com/ishanwen-byte/seqevolve-go/pkg/registry"
	"github.com/ishanwen-byte/seqevolve-go/pkg/report"
	"github.com/ishanwen-byte/seqevolve-go/pkg/selection"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sequence"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sink"
	"github.com/ishanwen-byte/seqevolve-go/pkg/variation"
)

// ErrAlreadyRun is returned by a second call to Run
var ErrAlreadyRun = errors.New("engine has already run")

// State is the engine lifecycle state
type State int

const (
	Initializing State = iota
	EvaluatingInitial
	EvolvingGeneration
	EvaluatingGeneration
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case EvaluatingInitial:
		return "evaluating-initial"
	case EvolvingGeneration:
		return "evolving-generation"
	case EvaluatingGeneration:
		return "evaluating-generation"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the best individual of the final generation
type Result struct {
	Best        *sequence.Sequence
	Values      []string
	Rendered    string
	Fitness     float64
	LineageID   int
	Generations int
	RunID       string
}

// Engine runs one evolution
type Engine struct {
	config    types.Config
	variant   gene.Variant
	objective selection.Objective
	registry  *registry.Registry
	oracle    oracle.Oracle
	sink      sink.Sink
	mix       *variation.Mix
	ids       sequence.IDSource
	rng       *rand.Rand
	runID     string

	state      State
	generation int
	population []*sequence.Sequence
	lineage    []int
	fitness    []float64
	history    []types.GenerationRecord
	bestEver   float64
	stale      int
	ran        bool

	logger *logrus.Logger
}

// New validates cfg and wires an engine around o and s. A nil oracle is built
// from cfg.Oracle; a nil sink records in memory.
func New(cfg types.Config, o oracle.Oracle, s sink.Sink) (*Engine, error) {
	if err := config.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	variant, err := gene.New(gene.Tag(cfg.Gene.Variant), gene.Options{IntRangeSize: cfg.Gene.IntRangeSize})
	if err != nil {
		return nil, err
	}
	objective, err := selection.ParseObjective(cfg.Evolution.Objective)
	if err != nil {
		return nil, err
	}
	mix, err := variation.NewMix(cfg.Evolution.CrossoverWeights)
	if err != nil {
		return nil, fmt.Errorf("failed to build crossover mix: %w", err)
	}
	if o == nil {
		o, err = oracle.New(cfg.Oracle)
		if err != nil {
			return nil, fmt.Errorf("failed to create oracle: %w", err)
		}
	}
	if s == nil {
		s = sink.NewMemory()
	}

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if cfg.Output.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	checkpointDir := ""
	if cfg.Output.CheckpointInterval > 0 {
		checkpointDir = cfg.Output.CheckpointDir
	}

	e := &Engine{
		config:    cfg,
		variant:   variant,
		objective: objective,
		registry: registry.New(variant, o, registry.Options{
			Budget:        cfg.Evolution.EvaluationBudget,
			VarianceAware: cfg.Evolution.VarianceAware,
			Objective:     objective,
			Seed:          cfg.Evolution.Seed,
			CheckpointDir: checkpointDir,
		}),
		oracle:   o,
		sink:     s,
		mix:      mix,
		ids:      sequence.NewCounter(1),
		rng:      rand.New(rand.NewSource(cfg.Evolution.Seed)),
		runID:    uuid.New().String(),
		bestEver: objective.Worst(),
		logger:   logger,
	}
	e.SetLogger(logger)
	e.registry.SetRecorder(e.recordEvaluation)

	return e, nil
}

// SetLogger shares one logger with the engine's components
func (e *Engine) SetLogger(logger *logrus.Logger) {
	e.logger = logger
	e.registry.SetLogger(logger)
	e.mix.SetLogger(logger)
	if l, ok := e.oracle.(loggerSetter); ok {
		l.SetLogger(logger)
	}
}

type loggerSetter interface {
	SetLogger(logger *logrus.Logger)
}

// peeker is an IDSource that can report its position without consuming it
type peeker interface {
	Peek() uint64
}

// SetIDSource replaces the locus identity source. Call before Run.
func (e *Engine) SetIDSource(ids sequence.IDSource) {
	e.ids = ids
}

// nextID is the identity a resumed run must start from. Sources that cannot
// peek fall back to one past the largest identity in use.
func (e *Engine) nextID() uint64 {
	if p, ok := e.ids.(peeker); ok {
		return p.Peek()
	}
	var max uint64
	for _, lineage := range e.registry.Snapshot() {
		for _, locus := range lineage.Loci {
			if locus.ID > max {
				max = locus.ID
			}
		}
	}
	for _, seq := range e.population {
		for _, id := range seq.IDs() {
			if id > max {
				max = id
			}
		}
	}
	return max + 1
}

// RunID returns the run identifier stamped on every sink record
func (e *Engine) RunID() string { return e.runID }

// State returns the current lifecycle state
func (e *Engine) State() State { return e.state }

// Registry exposes the individual registry
func (e *Engine) Registry() *registry.Registry { return e.registry }

// History returns the per-generation summaries recorded so far
func (e *Engine) History() []types.GenerationRecord {
	return append([]types.GenerationRecord(nil), e.history...)
}

// Population returns the decoded values of the current population
func (e *Engine) Population() [][]string {
	out := make([][]string, len(e.population))
	for i, seq := range e.population {
		out[i] = seq.Values()
	}
	return out
}

// Fitness returns the fitness of the current population, index-aligned with Population
func (e *Engine) Fitness() []float64 {
	return append([]float64(nil), e.fitness...)
}

// Lineages returns the lineage ids of the current population
func (e *Engine) Lineages() []int {
	return append([]int(nil), e.lineage...)
}

// Run evolves until the generation budget is spent or the stale limit is hit
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.ran {
		return nil, ErrAlreadyRun
	}
	e.ran = true
	startTime := time.Now()

	e.setState(Initializing)
	start, err := e.initialize()
	if err != nil {
		return nil, err
	}

	e.setState(EvaluatingInitial)
	if err := e.evaluatePopulation(ctx, start); err != nil {
		return nil, err
	}

	evolved := 0
	last := start + e.config.Evolution.Generations
	for g := start + 1; g <= last; g++ {
		if limit := e.config.Evolution.StaleGenerations; limit > 0 && e.stale >= limit {
			e.logger.WithFields(logrus.Fields{
				"generation": e.generation,
				"stale":      e.stale,
			}).Info("Stopping early: no improvement")
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e.setState(EvolvingGeneration)
		next, lineage, err := e.evolve(ctx, g)
		if err != nil {
			return nil, err
		}
		e.replacePopulation(next, lineage)

		e.setState(EvaluatingGeneration)
		if err := e.evaluatePopulation(ctx, g); err != nil {
			return nil, err
		}
		evolved++

		if interval := e.config.Output.CheckpointInterval; interval > 0 && evolved%interval == 0 {
			if err := e.registry.SaveCheckpoint(g, e.nextID()); err != nil {
				e.logger.WithError(err).Warn("Failed to save checkpoint")
			}
		}
	}

	e.setState(Terminated)
	if e.config.Output.CheckpointInterval > 0 {
		if err := e.registry.SaveCheckpoint(e.generation, e.nextID()); err != nil {
			e.logger.WithError(err).Warn("Failed to save final checkpoint")
		}
	}

	best := selection.Best(e.fitness, e.objective)
	bestSeq := e.population[best].Clone()
	result := &Result{
		Best:        bestSeq,
		Values:      bestSeq.Values(),
		Rendered:    bestSeq.String(),
		Fitness:     e.fitness[best],
		LineageID:   e.lineage[best],
		Generations: evolved,
		RunID:       e.runID,
	}

	e.logger.WithFields(logrus.Fields{
		"run":         e.runID,
		"generations": evolved,
		"fitness":     result.Fitness,
		"lineage":     result.LineageID,
		"duration":    time.Since(startTime),
	}).Info("Evolution finished")

	return result, nil
}

// Summary collects what the run report shows
func (e *Engine) Summary(result *Result) report.Summary {
	return report.Summary{
		RunID:       e.runID,
		Variant:     string(e.variant.Tag()),
		Generations: result.Generations,
		LineageID:   result.LineageID,
		Values:      result.Values,
		Rendered:    result.Rendered,
		Fitness:     result.Fitness,
		Stats:       e.registry.GetStats(),
		History:     e.History(),
	}
}

// Close releases the population and the registry's canonical snapshots
func (e *Engine) Close() {
	for _, seq := range e.population {
		seq.Free()
	}
	e.population = nil
	e.registry.Free()
}

func (e *Engine) setState(s State) {
	e.logger.WithFields(logrus.Fields{
		"from": e.state.String(),
		"to":   s.String(),
	}).Debug("Engine state change")
	e.state = s
}

// initialize builds the first population and returns its generation index
func (e *Engine) initialize() (int, error) {
	size := e.config.Evolution.PopulationSize
	e.population = make([]*sequence.Sequence, 0, size)
	start := 0

	if path := e.config.Output.ResumeFrom; path != "" {
		checkpoint, err := e.registry.LoadCheckpoint(path)
		if err != nil {
			return 0, fmt.Errorf("failed to resume: %w", err)
		}
		e.ids = sequence.NewCounter(checkpoint.NextID)
		start = checkpoint.Generation

		seeds, err := e.resumeSeeds(checkpoint.Lineages, size/2)
		if err != nil {
			return 0, err
		}
		e.population = append(e.population, seeds...)
	}

	numSeeded := e.config.Evolution.SeedPercent * size / 100
	if seeder, ok := e.variant.(gene.Seeder); ok && numSeeded > 0 {
		defaults := seeder.Defaults()
		prototypes := make([]*sequence.Sequence, 0, len(defaults))
		for _, values := range defaults {
			seq, err := sequence.FromValues(e.variant, e.ids, values)
			if err != nil {
				return 0, fmt.Errorf("failed to build default sequence: %w", err)
			}
			prototypes = append(prototypes, seq)
		}
		for i := 0; i < numSeeded && len(prototypes) > 0 && len(e.population) < size; i++ {
			e.population = append(e.population, prototypes[i%len(prototypes)].Clone())
		}
		for _, p := range prototypes {
			p.Free()
		}
	}

	for len(e.population) < size {
		e.population = append(e.population, e.randomSequence())
	}

	e.logger.WithFields(logrus.Fields{
		"population": size,
		"variant":    e.variant.Tag(),
		"start":      start,
	}).Info("Initialized population")

	return start, nil
}

// resumeSeeds rebuilds up to n of the best evaluated lineages of a checkpoint
func (e *Engine) resumeSeeds(lineages []types.LineageRecord, n int) ([]*sequence.Sequence, error) {
	evaluated := make([]types.LineageRecord, 0, len(lineages))
	for _, l := range lineages {
		if l.NumEval > 0 {
			evaluated = append(evaluated, l)
		}
	}
	sort.SliceStable(evaluated, func(a, b int) bool {
		return e.objective.Better(evaluated[a].Fitness, evaluated[b].Fitness)
	})
	if len(evaluated) > n {
		evaluated = evaluated[:n]
	}

	seeds := make([]*sequence.Sequence, 0, len(evaluated))
	for _, l := range evaluated {
		seq, err := sequence.FromRecords(e.variant, l.Loci)
		if err != nil {
			return nil, fmt.Errorf("failed to restore lineage %d: %w", l.ID, err)
		}
		seeds = append(seeds, seq)
	}
	return seeds, nil
}

func (e *Engine) randomSequence() *sequence.Sequence {
	minLen, maxLen := e.config.Gene.MinLength, e.config.Gene.MaxLength
	n := minLen + e.rng.Intn(maxLen-minLen+1)
	return sequence.Random(e.variant, e.ids, e.rng, n)
}

// score registers seqs and queries the registry once per individual, in
// order, fanning out over the configured workers. Every query of a lineage
// not yet measured this generation gets its own re-evaluation roll, and a
// measurement times the querying individual's own sequence.
func (e *Engine) score(ctx context.Context, seqs []*sequence.Sequence, generation int) ([]int, []float64, error) {
	lineage := make([]int, len(seqs))
	for i, seq := range seqs {
		lineage[i] = e.registry.Register(seq)
	}

	fitness := make([]float64, len(seqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Evolution.Workers)
	for i, seq := range seqs {
		g.Go(func() error {
			f, err := e.registry.Fitness(gctx, lineage[i], seq, generation)
			if err != nil {
				return err
			}
			fitness[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// a later re-evaluation may have moved a lineage's fitness after an
	// earlier individual of it was scored
	for i, id := range lineage {
		if node, ok := e.registry.Node(id); ok {
			fitness[i] = node.Fitness()
		}
	}
	return lineage, fitness, nil
}

func (e *Engine) evaluatePopulation(ctx context.Context, generation int) error {
	lineage, fitness, err := e.score(ctx, e.population, generation)
	if err != nil {
		return err
	}
	e.lineage = lineage
	e.fitness = fitness
	e.generation = generation

	distinct := make(map[int]bool, len(lineage))
	for _, id := range lineage {
		if !distinct[id] {
			distinct[id] = true
			e.registry.Participate(id)
		}
	}

	best := selection.Best(fitness, e.objective)
	if e.objective.Better(fitness[best], e.bestEver) {
		e.bestEver = fitness[best]
		e.stale = 0
	} else if len(e.history) > 0 {
		e.stale++
	}

	stats := report.Population(fitness)
	record := types.GenerationRecord{
		RunID:       e.runID,
		Generation:  generation,
		BestFitness: fitness[best],
		AvgFitness:  stats.Mean,
		BestLineage: lineage[best],
		Distinct:    len(distinct),
		Evaluations: e.registry.GetStats().TotalEvaluations,
		Stale:       e.stale,
		CreatedAt:   time.Now(),
	}
	e.history = append(e.history, record)

	if err := e.sink.RecordGeneration(ctx, record); err != nil {
		e.logger.WithError(err).Warn("Failed to record generation")
	}
	if err := e.sink.RecordBest(ctx, types.BestRecord{
		RunID:      e.runID,
		Generation: generation,
		LineageID:  lineage[best],
		Sequence:   e.population[best].Values(),
		Fitness:    fitness[best],
		CreatedAt:  record.CreatedAt,
	}); err != nil {
		e.logger.WithError(err).Warn("Failed to record best individual")
	}

	generationGauge.Set(float64(generation))
	generationsTotal.Inc()
	if stats.Valid > 0 {
		bestFitnessGauge.Set(fitness[best])
	}

	e.logger.WithFields(logrus.Fields{
		"generation": generation,
		"best":       fitness[best],
		"avg":        stats.Mean,
		"distinct":   len(distinct),
		"invalid":    stats.Invalid,
		"stale":      e.stale,
	}).Info("Generation evaluated")

	return nil
}

// evolve builds the next population from the scored current one, which stays
// frozen while the new one is assembled.
func (e *Engine) evolve(ctx context.Context, generation int) ([]*sequence.Sequence, []int, error) {
	size := e.config.Evolution.PopulationSize
	numElites := e.config.Evolution.ElitePercent * size / 100

	next := make([]*sequence.Sequence, 0, size)
	lineage := make([]int, 0, size)

	for _, idx := range selection.Elites(e.fitness, e.lineage, numElites, e.objective) {
		if idx == selection.NoElite {
			seq := e.randomSequence()
			next = append(next, seq)
			lineage = append(lineage, -1)
			continue
		}
		next = append(next, e.population[idx].Clone())
		lineage = append(lineage, e.lineage[idx])
	}

	for i := 0; i < numElites; i++ {
		next = append(next, e.randomSequence())
		lineage = append(lineage, -1)
	}

	fitnessOf := func(i int) float64 { return e.fitness[i] }
	rates := variation.Rates{
		CrossoverPercent: e.config.Evolution.CrossoverPercent,
		MutationPercent:  e.config.Evolution.MutationPercent,
	}

	for len(next) < size {
		p1 := selection.Tournament(e.rng, e.config.Evolution.TournamentSize, len(e.population), fitnessOf, e.objective)
		p2 := selection.Tournament(e.rng, e.config.Evolution.TournamentSize, len(e.population), fitnessOf, e.objective)

		candidates := variation.Candidates(e.rng, e.mix, e.population[p1], e.population[p2], e.config.Evolution.NumOffspring, rates)
		ids, fitness, err := e.score(ctx, candidates, generation)
		if err != nil {
			freeAll(candidates)
			freeAll(next)
			return nil, nil, err
		}

		even, odd := pickChildren(fitness, e.objective)
		next = append(next, candidates[even])
		lineage = append(lineage, ids[even])
		keep := map[int]bool{even: true}
		if len(next) < size {
			next = append(next, candidates[odd])
			lineage = append(lineage, ids[odd])
			keep[odd] = true
		}
		for i, c := range candidates {
			if !keep[i] {
				c.Free()
			}
		}
	}

	e.logger.WithFields(logrus.Fields{
		"generation": generation,
		"elites":     numElites,
		"registry":   e.registry.Len(),
	}).Debug("Built next population")

	return next, lineage, nil
}

// pickChildren returns the best even-indexed and best odd-indexed candidate
func pickChildren(fitness []float64, objective selection.Objective) (int, int) {
	evens := make([]int, 0, len(fitness)/2)
	odds := make([]int, 0, len(fitness)/2)
	for i := range fitness {
		if i%2 == 0 {
			evens = append(evens, i)
		} else {
			odds = append(odds, i)
		}
	}
	lookup := func(i int) float64 { return fitness[i] }
	return selection.Winner(evens, lookup, objective), selection.Winner(odds, lookup, objective)
}

func (e *Engine) replacePopulation(next []*sequence.Sequence, lineage []int) {
	freeAll(e.population)
	e.population = next
	e.lineage = lineage
	e.fitness = nil
}

func (e *Engine) recordEvaluation(record types.EvaluationRecord) {
	record.RunID = e.runID
	if err := e.sink.RecordEvaluation(context.Background(), record); err != nil {
		e.logger.WithError(err).Warn("Failed to record evaluation")
	}
}

func freeAll(seqs []*sequence.Sequence) {
	for _, s := range seqs {
		s.Free()
	}
}
