package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ishanwen-byte/seqevolve-go/internal/types"
)

// Entry kinds written by the JSONL sink
const (
	KindGeneration = "generation"
	KindEvaluation = "evaluation"
	KindBest       = "best"
)

// Line is one JSONL row
type Line struct {
	Kind   string          `json:"kind"`
	Record json.RawMessage `json:"record"`
}

// JSONL appends one JSON object per record to a file
type JSONL struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONL opens path for appending, creating parent directories
func NewJSONL(path string) (*JSONL, error) {
	if path == "" {
		return nil, errors.New("jsonl path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create sink directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open jsonl sink: %w", err)
	}
	return &JSONL{file: file, enc: json.NewEncoder(file)}, nil
}

func (j *JSONL) write(kind string, record interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", kind, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return errors.New("jsonl sink is closed")
	}
	if err := j.enc.Encode(Line{Kind: kind, Record: payload}); err != nil {
		return fmt.Errorf("failed to write %s record: %w", kind, err)
	}
	return nil
}

func (j *JSONL) RecordGeneration(_ context.Context, record types.GenerationRecord) error {
	return j.write(KindGeneration, record)
}

func (j *JSONL) RecordEvaluation(_ context.Context, record types.EvaluationRecord) error {
	return j.write(KindEvaluation, record)
}

func (j *JSONL) RecordBest(_ context.Context, record types.BestRecord) error {
	return j.write(KindBest, record)
}

func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
