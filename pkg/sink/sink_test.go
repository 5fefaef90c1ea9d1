package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/internal/types"
)

func sampleRecords(runID string) (types.GenerationRecord, types.EvaluationRecord, types.BestRecord) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return types.GenerationRecord{
			RunID: runID, Generation: 1, BestFitness: 0.5, AvgFitness: 0.9,
			BestLineage: 3, Distinct: 4, Evaluations: 12, CreatedAt: now,
		},
		types.EvaluationRecord{
			RunID: runID, LineageID: 3, Generation: 1, Sequence: []string{"gvn", "licm"},
			Samples: []float64{0.5, 0.5}, SuccessCount: 2, AvgTime: 0.5, Valid: true, Fitness: 0.5, CreatedAt: now,
		},
		types.BestRecord{
			RunID: runID, Generation: 1, LineageID: 3, Sequence: []string{"gvn", "licm"}, Fitness: 0.5, CreatedAt: now,
		}
}

func writeAll(t *testing.T, s Sink, runID string) {
	t.Helper()
	ctx := context.Background()
	gen, eval, best := sampleRecords(runID)
	require.NoError(t, s.RecordGeneration(ctx, gen))
	require.NoError(t, s.RecordEvaluation(ctx, eval))
	require.NoError(t, s.RecordBest(ctx, best))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, types.SinkConfig{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = New(ctx, types.SinkConfig{Kind: constants.SinkJSONL, Target: filepath.Join(t.TempDir(), "run.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &JSONL{}, s)
	assert.NoError(t, s.Close())

	_, err = New(ctx, types.SinkConfig{Kind: constants.SinkJSONL})
	assert.Error(t, err)

	_, err = New(ctx, types.SinkConfig{Kind: "tape"})
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	writeAll(t, m, "run-1")

	assert.Len(t, m.Generations(), 1)
	assert.Len(t, m.Evaluations(), 1)
	require.Len(t, m.Bests(), 1)
	assert.Equal(t, []string{"gvn", "licm"}, m.Bests()[0].Sequence)
	assert.NoError(t, m.Close())
}

func TestJSONLAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.jsonl")

	s, err := NewJSONL(path)
	require.NoError(t, err)
	writeAll(t, s, "run-1")
	require.NoError(t, s.Close())

	// reopening appends rather than truncating
	s, err = NewJSONL(path)
	require.NoError(t, err)
	writeAll(t, s, "run-2")
	require.NoError(t, s.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var kinds []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line Line
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		kinds = append(kinds, line.Kind)
		if line.Kind == KindBest {
			var best types.BestRecord
			require.NoError(t, json.Unmarshal(line.Record, &best))
			assert.Equal(t, 3, best.LineageID)
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{
		KindGeneration, KindEvaluation, KindBest,
		KindGeneration, KindEvaluation, KindBest,
	}, kinds)
}

func TestJSONLClosed(t *testing.T) {
	s, err := NewJSONL(filepath.Join(t.TempDir(), "run.jsonl"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	gen, _, _ := sampleRecords("x")
	assert.Error(t, s.RecordGeneration(context.Background(), gen))
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := New(ctx, types.SinkConfig{Kind: constants.SinkSQLite, Target: path})
	require.NoError(t, err)
	db := s.(*SQLite)

	runID := uuid.New().String()
	writeAll(t, db, runID)
	writeAll(t, db, "other-run")

	for _, table := range []string{"generations", "evaluations", "bests"} {
		n, err := db.CountRows(ctx, table)
		require.NoError(t, err)
		assert.Equal(t, 2, n, table)
	}
	_, err = db.CountRows(ctx, "sqlite_master; DROP TABLE bests")
	assert.Error(t, err)

	bests, err := db.Bests(ctx, runID)
	require.NoError(t, err)
	require.Len(t, bests, 1)
	assert.Equal(t, []string{"gvn", "licm"}, bests[0].Sequence)
	assert.Equal(t, 0.5, bests[0].Fitness)

	require.NoError(t, db.Close())
	assert.NoError(t, db.Close())

	_, _, best := sampleRecords(runID)
	assert.Error(t, db.RecordBest(ctx, best))
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	first, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	writeAll(t, first, "run")
	require.NoError(t, first.Close())

	second, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	n, err := second.CountRows(ctx, "bests")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteRequiresPath(t *testing.T) {
	_, err := NewSQLite(context.Background(), "")
	assert.Error(t, err)
}

func TestMongo(t *testing.T) {
	uri := os.Getenv("SEQEVOLVE_MONGO_URI")
	if uri == "" {
		t.Skip("SEQEVOLVE_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m, err := NewMongo(ctx, uri, "seqevolve_test_"+uuid.New().String()[:8])
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, m.Drop(ctx))
		assert.NoError(t, m.Close())
	}()

	runID := uuid.New().String()
	writeAll(t, m, runID)

	bests, err := m.Bests(ctx, runID)
	require.NoError(t, err)
	require.Len(t, bests, 1)
	assert.Equal(t, 3, bests[0].LineageID)
}

func TestMongoRequiresURI(t *testing.T) {
	_, err := NewMongo(context.Background(), "", "")
	assert.Error(t, err)
}
