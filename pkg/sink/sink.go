package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/internal/types"
)

// Sink is an append-only destination for run records
type Sink interface {
	RecordGeneration(ctx context.Context, record types.GenerationRecord) error
	RecordEvaluation(ctx context.Context, record types.EvaluationRecord) error
	RecordBest(ctx context.Context, record types.BestRecord) error
	Close() error
}

// New opens the sink selected by config.Kind
func New(ctx context.Context, config types.SinkConfig) (Sink, error) {
	switch config.Kind {
	case "", constants.SinkMemory:
		return NewMemory(), nil
	case constants.SinkJSONL:
		return NewJSONL(config.Target)
	case constants.SinkSQLite:
		return NewSQLite(ctx, config.Target)
	case constants.SinkMongo:
		return NewMongo(ctx, config.Target, config.Database)
	default:
		return nil, fmt.Errorf("unsupported sink backend: %s", config.Kind)
	}
}

// Memory keeps every record in process
type Memory struct {
	mu          sync.RWMutex
	generations []types.GenerationRecord
	evaluations []types.EvaluationRecord
	bests       []types.BestRecord
}

// NewMemory creates an empty in-memory sink
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordGeneration(_ context.Context, record types.GenerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations = append(m.generations, record)
	return nil
}

func (m *Memory) RecordEvaluation(_ context.Context, record types.EvaluationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations = append(m.evaluations, record)
	return nil
}

func (m *Memory) RecordBest(_ context.Context, record types.BestRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bests = append(m.bests, record)
	return nil
}

func (m *Memory) Close() error { return nil }

// Generations returns a copy of the recorded generation summaries
func (m *Memory) Generations() []types.GenerationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.GenerationRecord(nil), m.generations...)
}

// Evaluations returns a copy of the recorded evaluations
func (m *Memory) Evaluations() []types.EvaluationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.EvaluationRecord(nil), m.evaluations...)
}

// Bests returns a copy of the recorded best snapshots
func (m *Memory) Bests() []types.BestRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.BestRecord(nil), m.bests...)
}
