package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/ishanwen-byte/seqevolve-go/internal/types"
)

// SQLite stores records in three append-only tables
type SQLite struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and ensures the schema
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite sink: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite sink: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{path: path, db: db}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			best_fitness REAL NOT NULL,
			avg_fitness REAL NOT NULL,
			best_lineage INTEGER NOT NULL,
			distinct_lineages INTEGER NOT NULL,
			evaluations INTEGER NOT NULL,
			stale INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			run_id TEXT NOT NULL,
			lineage_id INTEGER NOT NULL,
			generation INTEGER NOT NULL,
			sequence TEXT NOT NULL,
			samples TEXT NOT NULL,
			success_count INTEGER NOT NULL,
			avg_time REAL NOT NULL,
			variance REAL NOT NULL,
			valid INTEGER NOT NULL,
			fitness REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bests (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			lineage_id INTEGER NOT NULL,
			sequence TEXT NOT NULL,
			fitness REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_generations_run ON generations (run_id, generation)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_lineage ON evaluations (run_id, lineage_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLite) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("sqlite sink is closed")
	}
	return s.db, nil
}

func (s *SQLite) RecordGeneration(ctx context.Context, record types.GenerationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, best_fitness, avg_fitness, best_lineage, distinct_lineages, evaluations, stale, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.RunID, record.Generation, record.BestFitness, record.AvgFitness, record.BestLineage,
		record.Distinct, record.Evaluations, record.Stale, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert generation %d: %w", record.Generation, err)
	}
	return nil
}

func (s *SQLite) RecordEvaluation(ctx context.Context, record types.EvaluationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	seq, err := json.Marshal(record.Sequence)
	if err != nil {
		return fmt.Errorf("failed to encode sequence: %w", err)
	}
	samples, err := json.Marshal(record.Samples)
	if err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO evaluations (run_id, lineage_id, generation, sequence, samples, success_count, avg_time, variance, valid, fitness, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.RunID, record.LineageID, record.Generation, string(seq), string(samples), record.SuccessCount,
		record.AvgTime, record.Variance, record.Valid, record.Fitness, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation for lineage %d: %w", record.LineageID, err)
	}
	return nil
}

func (s *SQLite) RecordBest(ctx context.Context, record types.BestRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	seq, err := json.Marshal(record.Sequence)
	if err != nil {
		return fmt.Errorf("failed to encode sequence: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO bests (run_id, generation, lineage_id, sequence, fitness, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.RunID, record.Generation, record.LineageID, string(seq), record.Fitness, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert best for generation %d: %w", record.Generation, err)
	}
	return nil
}

// Bests reads back the best snapshots of a run in generation order
func (s *SQLite) Bests(ctx context.Context, runID string) ([]types.BestRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT generation, lineage_id, sequence, fitness FROM bests
		WHERE run_id = ? ORDER BY generation, rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bests: %w", err)
	}
	defer rows.Close()

	var out []types.BestRecord
	for rows.Next() {
		record := types.BestRecord{RunID: runID}
		var seq string
		if err := rows.Scan(&record.Generation, &record.LineageID, &seq, &record.Fitness); err != nil {
			return nil, fmt.Errorf("failed to scan best: %w", err)
		}
		if err := json.Unmarshal([]byte(seq), &record.Sequence); err != nil {
			return nil, fmt.Errorf("failed to decode sequence: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// CountRows returns the number of rows in one of the sink tables
func (s *SQLite) CountRows(ctx context.Context, table string) (int, error) {
	switch table {
	case "generations", "evaluations", "bests":
	default:
		return 0, fmt.Errorf("unknown sink table: %s", table)
	}
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
