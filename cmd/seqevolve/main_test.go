package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanwen-byte/seqevolve-go/pkg/config"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sink"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, mutate func(m *config.Manager)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seqevolve.yaml")
	manager := config.NewManager()
	cfg := manager.GetConfig()
	cfg.Evolution.Generations = 2
	cfg.Evolution.PopulationSize = 6
	cfg.Output.CheckpointInterval = 0
	if mutate != nil {
		mutate(manager)
	}
	require.NoError(t, manager.Save(path))
	return path
}

func TestVariantsCommand(t *testing.T) {
	out, err := execute(t, "variants")
	require.NoError(t, err)
	assert.Contains(t, out, "llvm-pass")
	assert.Contains(t, out, "random-string")

	out, err = execute(t, "variants", "int-range", "--int-range-size", "3")
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)

	out, err = execute(t, "variants", "random-string")
	require.NoError(t, err)
	assert.Contains(t, out, "draws random values")

	_, err = execute(t, "variants", "dna")
	assert.Error(t, err)
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "seqevolve.toml")
	out, err := execute(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	manager := config.NewManager()
	require.NoError(t, manager.Load(path))
}

func TestRunCommand(t *testing.T) {
	path := writeConfig(t, nil)

	out, err := execute(t, "run", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "fitness:")
	assert.Contains(t, out, "  1  ")
}

func TestRunCommandVerboseWritesReport(t *testing.T) {
	target := filepath.Join(t.TempDir(), "records.jsonl")
	path := writeConfig(t, func(m *config.Manager) {
		m.GetConfig().Sink.Kind = "jsonl"
		m.GetConfig().Sink.Target = target
	})

	out, err := execute(t, "run", "--config", path, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Best Individual")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, 3*2+strings.Count(string(data), `"kind":"evaluation"`), strings.Count(string(data), "\n"))
}

func TestRunCommandRejectsBadConfig(t *testing.T) {
	path := writeConfig(t, func(m *config.Manager) {
		m.GetConfig().Sink.Kind = "tape"
	})
	_, err := execute(t, "run", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported sink backend")
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.Default()
	cfg.Output.CheckpointInterval = 0
	require.NoError(t, config.Validate(cfg))

	var out bytes.Buffer
	err := run(ctx, &out, *cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetricsMux(t *testing.T) {
	server := httptest.NewServer(metricsMux())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSinkKindsReachable(t *testing.T) {
	s, err := sink.New(context.Background(), config.Default().Sink)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
