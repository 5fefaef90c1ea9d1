package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/internal/types"
	"github.com/ishanwen-byte/seqevolve-go/pkg/gene"
	"github.com/ishanwen-byte/seqevolve-go/pkg/oracle"
	"github.com/ishanwen-byte/seqevolve-go/pkg/selection"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sequence"
)

// Options configure fitness memoization
type Options struct {
	Budget        int
	VarianceAware bool
	Objective     selection.Objective
	Seed          int64
	CheckpointDir string
}

// Recorder receives every folded evaluation
type Recorder func(record types.EvaluationRecord)

// DataNode is the accumulated evaluation history of one lineage
type DataNode struct {
	mu sync.Mutex

	id            int
	seq           *sequence.Sequence
	fitness       float64
	evaluations   []types.EvaluationEntry
	participation int
}

// ID returns the lineage id
func (n *DataNode) ID() int { return n.id }

// Sequence returns the canonical snapshot. Callers must not modify it.
func (n *DataNode) Sequence() *sequence.Sequence { return n.seq }

// Fitness returns the current aggregate
func (n *DataNode) Fitness() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fitness
}

// NumEval returns how many evaluations were folded, invalid ones included
func (n *DataNode) NumEval() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.evaluations)
}

// Participation returns how many scored generations the lineage appeared in
func (n *DataNode) Participation() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.participation
}

func (n *DataNode) evaluatedAt(generation int) bool {
	for _, e := range n.evaluations {
		if e.Generation == generation {
			return true
		}
	}
	return false
}

// Registry maps sequence equality classes to lineage ids and memoizes their
// noisy fitness. Lookup is a linear scan with sequence.Equal so the
// per-variant hybrid equality is honored exactly.
type Registry struct {
	mu    sync.Mutex
	nodes []*DataNode

	variant  gene.Variant
	oracle   oracle.Oracle
	options  Options
	recorder Recorder

	rngMu sync.Mutex
	rng   *rand.Rand

	registered  atomic.Int64
	evaluations atomic.Int64
	invalid     atomic.Int64
	cacheHits   atomic.Int64
	startTime   time.Time

	logger *logrus.Logger
}

// New creates an empty registry for one gene variant
func New(variant gene.Variant, o oracle.Oracle, options Options) *Registry {
	if options.Budget <= 0 {
		options.Budget = constants.DefaultEvaluationBudget
	}
	if options.Objective == "" {
		options.Objective = selection.Minimize
	}

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	return &Registry{
		nodes:     make([]*DataNode, 0, 64),
		variant:   variant,
		oracle:    o,
		options:   options,
		rng:       rand.New(rand.NewSource(options.Seed)),
		startTime: time.Now(),
		logger:    logger,
	}
}

// SetLogger replaces the registry logger
func (r *Registry) SetLogger(logger *logrus.Logger) {
	r.logger = logger
}

// SetRecorder installs a callback for folded evaluations
func (r *Registry) SetRecorder(recorder Recorder) {
	r.recorder = recorder
}

// Register returns the lineage id of seq's equality class, creating one from a
// clone of seq when none exists. Registering an equal sequence again is a no-op.
func (r *Registry) Register(seq *sequence.Sequence) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.lookupLocked(seq); ok {
		return id
	}

	node := &DataNode{
		id:      len(r.nodes),
		seq:     seq.Clone(),
		fitness: r.options.Objective.Worst(),
	}
	r.nodes = append(r.nodes, node)
	r.registered.Add(1)
	registrySize.Set(float64(len(r.nodes)))

	r.logger.WithFields(logrus.Fields{
		"lineage": node.id,
		"length":  seq.Len(),
	}).Debug("Registered lineage")

	return node.id
}

// Lookup returns the lineage id of seq's equality class if one exists
func (r *Registry) Lookup(seq *sequence.Sequence) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupLocked(seq)
}

func (r *Registry) lookupLocked(seq *sequence.Sequence) (int, bool) {
	for _, node := range r.nodes {
		if sequence.Equal(node.seq, seq) {
			return node.id, true
		}
	}
	return 0, false
}

// Node returns the data node for a lineage id
func (r *Registry) Node(id int) (*DataNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 0 || id >= len(r.nodes) {
		return nil, false
	}
	return r.nodes[id], true
}

// Len returns the number of registered lineages
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// Participate counts one more generation the lineage appeared in
func (r *Registry) Participate(id int) {
	node, ok := r.Node(id)
	if !ok {
		return
	}
	node.mu.Lock()
	node.participation++
	node.mu.Unlock()
}

// Fitness returns the lineage's fitness for generation, calling the oracle on
// seq when the record has never been evaluated, or with ReEvalProbability when
// it has not been evaluated in this generation yet.
func (r *Registry) Fitness(ctx context.Context, id int, seq *sequence.Sequence, generation int) (float64, error) {
	node, ok := r.Node(id)
	if !ok {
		return 0, fmt.Errorf("unknown lineage id: %d", id)
	}

	node.mu.Lock()
	defer node.mu.Unlock()

	evaluate := false
	switch {
	case len(node.evaluations) == 0:
		evaluate = true
	case node.evaluatedAt(generation):
	default:
		evaluate = r.chance(constants.ReEvalProbability)
	}

	if !evaluate {
		r.cacheHits.Add(1)
		cacheHits.Inc()
		return node.fitness, nil
	}

	if err := r.evaluate(ctx, node, seq, generation); err != nil {
		return 0, err
	}
	return node.fitness, nil
}

// evaluate calls the oracle and folds its answer into node. Oracle failures
// become invalid evaluations; only context cancellation is returned.
func (r *Registry) evaluate(ctx context.Context, node *DataNode, seq *sequence.Sequence, generation int) error {
	budget := r.options.Budget
	result, err := r.oracle.Evaluate(ctx, seq, budget)
	oracleCalls.Inc()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	entry := types.EvaluationEntry{Generation: generation}
	switch {
	case err != nil || result == nil:
		r.logger.WithFields(logrus.Fields{
			"lineage":    node.id,
			"generation": generation,
			"error":      err,
		}).Warn("Oracle evaluation failed")
	case !oracle.Meets(result, budget):
		entry.Samples = result.Samples
		entry.SuccessCount = result.SuccessCount
		r.logger.WithFields(logrus.Fields{
			"lineage": node.id,
			"success": result.SuccessCount,
			"budget":  budget,
		}).Debug("Evaluation below success threshold")
	default:
		entry.Samples = result.Samples
		entry.SuccessCount = result.SuccessCount
		entry.AvgTime = result.AverageCost
		_, entry.Variance = oracle.MeanVariance(result.Samples)
		entry.Valid = true
	}
	if !entry.Valid {
		entry.AvgTime = r.options.Objective.Worst()
		r.invalid.Add(1)
		invalidEvaluations.Inc()
	}

	node.evaluations = append(node.evaluations, entry)
	node.fitness = r.aggregate(node.evaluations)
	r.evaluations.Add(1)

	if r.recorder != nil {
		r.recorder(types.EvaluationRecord{
			LineageID:    node.id,
			Generation:   generation,
			Sequence:     seq.Values(),
			Samples:      entry.Samples,
			SuccessCount: entry.SuccessCount,
			AvgTime:      entry.AvgTime,
			Variance:     entry.Variance,
			Valid:        entry.Valid,
			Fitness:      node.fitness,
			CreatedAt:    time.Now(),
		})
	}
	return nil
}

// aggregate is the success-weighted mean time over valid evaluations, plus the
// mean variance when variance-aware scoring is on.
func (r *Registry) aggregate(evaluations []types.EvaluationEntry) float64 {
	var weighted, weights, variance float64
	valid := 0
	for _, e := range evaluations {
		if !e.Valid {
			continue
		}
		w := float64(e.SuccessCount)
		weighted += w * e.AvgTime
		weights += w
		variance += e.Variance
		valid++
	}
	if valid == 0 || weights == 0 {
		return r.options.Objective.Worst()
	}

	fitness := weighted / weights
	if r.options.VarianceAware {
		fitness += variance / float64(valid)
	}
	return fitness
}

func (r *Registry) chance(p float64) bool {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Float64() < p
}

// Snapshot returns the serialized form of every lineage in id order
func (r *Registry) Snapshot() []types.LineageRecord {
	r.mu.Lock()
	nodes := make([]*DataNode, len(r.nodes))
	copy(nodes, r.nodes)
	r.mu.Unlock()

	records := make([]types.LineageRecord, 0, len(nodes))
	for _, node := range nodes {
		node.mu.Lock()
		evaluations := make([]types.EvaluationEntry, len(node.evaluations))
		copy(evaluations, node.evaluations)
		records = append(records, types.LineageRecord{
			ID:            node.id,
			Loci:          node.seq.Records(),
			Fitness:       node.fitness,
			NumEval:       len(node.evaluations),
			Evaluations:   evaluations,
			Participation: node.participation,
		})
		node.mu.Unlock()
	}
	return records
}

// GetStats returns current registry statistics
func (r *Registry) GetStats() types.EvolutionStats {
	stats := types.EvolutionStats{
		Registered:         r.registered.Load(),
		TotalEvaluations:   r.evaluations.Load(),
		InvalidEvaluations: r.invalid.Load(),
		CacheHits:          r.cacheHits.Load(),
		BestFitness:        r.options.Objective.Worst(),
		StartTime:          r.startTime,
		LastUpdate:         time.Now(),
	}
	stats.Duration = time.Since(r.startTime)

	for _, record := range r.Snapshot() {
		if record.NumEval > 0 && r.options.Objective.Better(record.Fitness, stats.BestFitness) {
			stats.BestFitness = record.Fitness
		}
	}
	return stats
}

// SaveCheckpoint writes the registry to checkpoint_<generation>.json and
// latest.json in the checkpoint directory. nextID is the locus id counter
// position to resume from.
func (r *Registry) SaveCheckpoint(generation int, nextID uint64) error {
	if r.options.CheckpointDir == "" {
		return nil
	}

	checkpoint := &types.Checkpoint{
		Version:    "1.0",
		CreatedAt:  time.Now(),
		Generation: generation,
		Variant:    string(r.variant.Tag()),
		NextID:     nextID,
		Lineages:   r.Snapshot(),
		Stats:      r.GetStats(),
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := os.MkdirAll(r.options.CheckpointDir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	checkpointFile := filepath.Join(r.options.CheckpointDir, fmt.Sprintf("checkpoint_%d.json", generation))
	if err := os.WriteFile(checkpointFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	latestFile := filepath.Join(r.options.CheckpointDir, "latest.json")
	if err := os.WriteFile(latestFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write latest checkpoint: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"generation": generation,
		"lineages":   len(checkpoint.Lineages),
		"file":       checkpointFile,
	}).Info("Saved checkpoint")

	return nil
}

// LoadCheckpoint replaces the registry contents with a saved checkpoint
func (r *Registry) LoadCheckpoint(path string) (*types.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint types.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if checkpoint.Variant != string(r.variant.Tag()) {
		return nil, fmt.Errorf("checkpoint variant %s does not match %s", checkpoint.Variant, r.variant.Tag())
	}

	nodes := make([]*DataNode, 0, len(checkpoint.Lineages))
	for i, record := range checkpoint.Lineages {
		if record.ID != i {
			return nil, fmt.Errorf("checkpoint lineage %d stored at position %d", record.ID, i)
		}
		seq, err := sequence.FromRecords(r.variant, record.Loci)
		if err != nil {
			return nil, fmt.Errorf("failed to restore lineage %d: %w", record.ID, err)
		}
		nodes = append(nodes, &DataNode{
			id:            record.ID,
			seq:           seq,
			fitness:       record.Fitness,
			evaluations:   record.Evaluations,
			participation: record.Participation,
		})
	}

	r.mu.Lock()
	r.nodes = nodes
	r.mu.Unlock()

	r.registered.Store(checkpoint.Stats.Registered)
	r.evaluations.Store(checkpoint.Stats.TotalEvaluations)
	r.invalid.Store(checkpoint.Stats.InvalidEvaluations)
	r.cacheHits.Store(checkpoint.Stats.CacheHits)
	registrySize.Set(float64(len(nodes)))

	r.logger.WithFields(logrus.Fields{
		"generation": checkpoint.Generation,
		"lineages":   len(nodes),
		"file":       path,
	}).Info("Loaded checkpoint")

	return &checkpoint, nil
}

// Free releases every canonical snapshot. The registry is empty afterwards.
func (r *Registry) Free() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, node := range r.nodes {
		node.seq.Free()
	}
	r.nodes = nil
	registrySize.Set(0)
}
