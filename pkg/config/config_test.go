package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/internal/types"
)

func TestNewManager(t *testing.T) {
	manager := NewManager()
	assert.NotNil(t, manager)
	assert.NotNil(t, manager.config)
	assert.Empty(t, manager.path)
}

func TestDefaultIsValid(t *testing.T) {
	config := Default()
	require.NoError(t, Validate(config))
	assert.Equal(t, constants.OracleSurrogate, config.Oracle.Kind)
	assert.Equal(t, 0, config.Evolution.StaleGenerations)
	assert.Equal(t, 1, config.Evolution.Workers)
}

func TestLoadAndSave(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	manager := NewManager()
	require.NoError(t, manager.Save(configPath))

	_, err := os.Stat(configPath)
	require.NoError(t, err)

	newManager := NewManager()
	require.NoError(t, newManager.Load(configPath))

	assert.Equal(t, manager.config, newManager.config)
	assert.Equal(t, configPath, newManager.path)
}

func TestLoadAndSaveTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	manager := NewManager()
	manager.GetConfig().Evolution.Generations = 7
	manager.GetConfig().Gene.Variant = "gcc-flag"
	manager.GetConfig().Evolution.CrossoverWeights[constants.CrossoverTwoPointDiff] = 0.5
	require.NoError(t, manager.Save(configPath))

	newManager := NewManager()
	require.NoError(t, newManager.Load(configPath))

	config := newManager.GetConfig()
	assert.Equal(t, 7, config.Evolution.Generations)
	assert.Equal(t, "gcc-flag", config.Gene.Variant)
	assert.Equal(t, 0.5, config.Evolution.CrossoverWeights[constants.CrossoverTwoPointDiff])
	assert.Equal(t, manager.config.Output, config.Output)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
evolution:
  generations: 3
  population_size: 8
gene:
  variant: int-range
  int_range_size: 4
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	manager := NewManager()
	require.NoError(t, manager.Load(configPath))

	config := manager.GetConfig()
	assert.Equal(t, 3, config.Evolution.Generations)
	assert.Equal(t, 8, config.Evolution.PopulationSize)
	assert.Equal(t, constants.DefaultTournamentSize, config.Evolution.TournamentSize)
	assert.Equal(t, 4, config.Gene.IntRangeSize)
}

func TestLoadNonExistentFile(t *testing.T) {
	manager := NewManager()
	err := manager.Load("/non/existent/file.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestInvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid_config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644))

	manager := NewManager()
	err := manager.Load(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("evolution:\n  num_offspring: 3\n"), 0644))

	err := NewManager().Load(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *types.Config)
		errMsg string
	}{
		{"negative generations", func(c *types.Config) { c.Evolution.Generations = -1 }, "generations must not be negative"},
		{"tiny population", func(c *types.Config) { c.Evolution.PopulationSize = 1 }, "population size must be at least 2"},
		{"percent range", func(c *types.Config) { c.Evolution.MutationPercent = 101 }, "mutation percent"},
		{"too many elites", func(c *types.Config) { c.Evolution.ElitePercent = 60 }, "no room"},
		{"tournament too large", func(c *types.Config) { c.Evolution.TournamentSize = 100 }, "tournament size"},
		{"odd offspring", func(c *types.Config) { c.Evolution.NumOffspring = 5 }, "offspring count"},
		{"few offspring", func(c *types.Config) { c.Evolution.NumOffspring = 2 }, "offspring count"},
		{"zero budget", func(c *types.Config) { c.Evolution.EvaluationBudget = 0 }, "evaluation budget"},
		{"negative stale", func(c *types.Config) { c.Evolution.StaleGenerations = -2 }, "stale generations"},
		{"no workers", func(c *types.Config) { c.Evolution.Workers = 0 }, "workers must be positive"},
		{"bad objective", func(c *types.Config) { c.Evolution.Objective = "sideways" }, "objective"},
		{"bad crossover", func(c *types.Config) { c.Evolution.CrossoverWeights = map[string]float64{"uniform": 1} }, "unknown crossover kind"},
		{"negative weight", func(c *types.Config) { c.Evolution.CrossoverWeights = map[string]float64{"one-point": -1} }, "must not be negative"},
		{"unknown variant", func(c *types.Config) { c.Gene.Variant = "dna" }, "unknown gene variant"},
		{"int range size", func(c *types.Config) { c.Gene.Variant = "int-range"; c.Gene.IntRangeSize = 0 }, "int-range size"},
		{"min length", func(c *types.Config) { c.Gene.MinLength = 0 }, "min length"},
		{"max below min", func(c *types.Config) { c.Gene.MaxLength = 2; c.Gene.MinLength = 3 }, "below min length"},
		{"command without run", func(c *types.Config) { c.Oracle.Kind = constants.OracleCommand }, "run command"},
		{"http without url", func(c *types.Config) { c.Oracle.Kind = constants.OracleHTTP }, "url"},
		{"negative noise", func(c *types.Config) { c.Oracle.Noise = -0.1 }, "noise"},
		{"unknown oracle", func(c *types.Config) { c.Oracle.Kind = "crystal-ball" }, "unsupported oracle kind"},
		{"sink target", func(c *types.Config) { c.Sink.Kind = constants.SinkSQLite }, "requires a target"},
		{"unknown sink", func(c *types.Config) { c.Sink.Kind = "tape" }, "unsupported sink backend"},
		{"checkpoint interval", func(c *types.Config) { c.Output.CheckpointInterval = -1 }, "checkpoint interval"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := Default()
			test.mutate(config)
			err := Validate(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.errMsg)
		})
	}
}

func TestValidateFillsPaths(t *testing.T) {
	config := Default()
	config.Output.Dir = ""
	config.Output.CheckpointDir = ""

	require.NoError(t, Validate(config))
	assert.Equal(t, constants.OutputDir, config.Output.Dir)
	assert.Equal(t, filepath.Join(constants.OutputDir, constants.CheckpointDir), config.Output.CheckpointDir)
}

func TestEnvOverrides(t *testing.T) {
	manager := NewManager()
	config := Default()

	t.Setenv(EnvGenerations, "12")
	t.Setenv(EnvPopulation, "30")
	t.Setenv(EnvSeed, "123")
	t.Setenv(EnvWorkers, "4")
	t.Setenv(EnvVariant, "int-range")
	t.Setenv(EnvVerbose, "TRUE")

	require.NoError(t, manager.applyEnvOverrides(config))

	assert.Equal(t, 12, config.Evolution.Generations)
	assert.Equal(t, 30, config.Evolution.PopulationSize)
	assert.Equal(t, int64(123), config.Evolution.Seed)
	assert.Equal(t, 4, config.Evolution.Workers)
	assert.Equal(t, "int-range", config.Gene.Variant)
	assert.True(t, config.Output.Verbose)
}

func TestEnvOverridesRejectGarbage(t *testing.T) {
	t.Setenv(EnvPopulation, "lots")
	err := NewManager().applyEnvOverrides(Default())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), EnvPopulation)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvGenerations, "2")
	manager := NewManager()
	require.NoError(t, manager.ApplyEnv())
	assert.Equal(t, 2, manager.GetConfig().Evolution.Generations)

	t.Setenv(EnvWorkers, "0")
	assert.Error(t, NewManager().ApplyEnv())
}

func TestGetSetConfig(t *testing.T) {
	manager := NewManager()
	assert.NotNil(t, manager.GetConfig())

	newConfig := Default()
	newConfig.Evolution.Generations = 999
	manager.SetConfig(newConfig)

	assert.Equal(t, 999, manager.GetConfig().Evolution.Generations)
}

func TestCreateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "default_config.yaml")
	require.NoError(t, CreateDefaultConfig(configPath))

	manager := NewManager()
	require.NoError(t, manager.Load(configPath))

	config := manager.GetConfig()
	assert.Equal(t, constants.DefaultPopulationSize, config.Evolution.PopulationSize)
	assert.Equal(t, constants.DefaultGenerations, config.Evolution.Generations)
}
