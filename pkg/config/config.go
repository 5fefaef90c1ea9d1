package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/internal/types"
	"github.com/ishanwen-byte/seqevolve-go/pkg/gene"
	"github.com/ishanwen-byte/seqevolve-go/pkg/selection"
)

// Environment variables that override file values
const (
	EnvGenerations = "SEQEVOLVE_GENERATIONS"
	EnvPopulation  = "SEQEVOLVE_POPULATION"
	EnvSeed        = "SEQEVOLVE_SEED"
	EnvWorkers     = "SEQEVOLVE_WORKERS"
	EnvVariant     = "SEQEVOLVE_VARIANT"
	EnvVerbose     = "SEQEVOLVE_VERBOSE"
)

// Manager handles configuration loading and validation
type Manager struct {
	config *types.Config
	path   string
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from a YAML or TOML file. The format is chosen by
// the file extension; anything other than .toml is read as YAML.
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), config); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := m.applyEnvOverrides(config); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m.config = config
	m.path = path
	return nil
}

// Save saves configuration to a file, as TOML when path ends in .toml
func (m *Manager) Save(path string) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(m.config); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(m.config)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *types.Config {
	return m.config
}

// SetConfig updates the configuration
func (m *Manager) SetConfig(config *types.Config) {
	m.config = config
}

// GetPath returns the configuration file path
func (m *Manager) GetPath() string {
	return m.path
}

// ApplyEnv applies environment overrides and validates the current configuration.
// Used when running without a config file.
func (m *Manager) ApplyEnv() error {
	if err := m.applyEnvOverrides(m.config); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := Validate(m.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (m *Manager) applyEnvOverrides(config *types.Config) error {
	ints := []struct {
		name   string
		target *int
	}{
		{EnvGenerations, &config.Evolution.Generations},
		{EnvPopulation, &config.Evolution.PopulationSize},
		{EnvWorkers, &config.Evolution.Workers},
	}
	for _, env := range ints {
		value := os.Getenv(env.name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env.name, err)
		}
		*env.target = n
	}

	if seed := os.Getenv(EnvSeed); seed != "" {
		n, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSeed, err)
		}
		config.Evolution.Seed = n
	}
	if variant := os.Getenv(EnvVariant); variant != "" {
		config.Gene.Variant = variant
	}
	if verbose := os.Getenv(EnvVerbose); verbose != "" {
		config.Output.Verbose = strings.ToLower(verbose) == "true"
	}

	return nil
}

// Validate checks a configuration and fills in derived paths
func Validate(config *types.Config) error {
	evo := config.Evolution

	if evo.Generations < 0 {
		return fmt.Errorf("generations must not be negative")
	}
	if evo.PopulationSize < 2 {
		return fmt.Errorf("population size must be at least 2")
	}
	percents := map[string]int{
		"crossover": evo.CrossoverPercent,
		"mutation":  evo.MutationPercent,
		"elite":     evo.ElitePercent,
		"seed":      evo.SeedPercent,
	}
	for name, p := range percents {
		if p < 0 || p > 100 {
			return fmt.Errorf("%s percent must be within [0, 100], got %d", name, p)
		}
	}
	if elites := evo.ElitePercent * evo.PopulationSize / 100; 2*elites > evo.PopulationSize {
		return fmt.Errorf("elite percent %d leaves no room for elites plus random injection", evo.ElitePercent)
	}
	if evo.TournamentSize < 1 || evo.TournamentSize > evo.PopulationSize {
		return fmt.Errorf("tournament size must be within [1, population size]")
	}
	if evo.NumOffspring < 4 || evo.NumOffspring%2 != 0 {
		return fmt.Errorf("offspring count must be even and at least 4, got %d", evo.NumOffspring)
	}
	if evo.EvaluationBudget < 1 {
		return fmt.Errorf("evaluation budget must be positive")
	}
	if evo.StaleGenerations < 0 {
		return fmt.Errorf("stale generations must not be negative")
	}
	if evo.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if _, err := selection.ParseObjective(evo.Objective); err != nil {
		return err
	}
	for kind, weight := range evo.CrossoverWeights {
		switch kind {
		case constants.CrossoverOnePoint, constants.CrossoverTwoPointBase, constants.CrossoverTwoPointDiff:
		default:
			return fmt.Errorf("unknown crossover kind: %s", kind)
		}
		if weight < 0 {
			return fmt.Errorf("crossover weight for %s must not be negative", kind)
		}
	}

	if _, err := gene.New(gene.Tag(config.Gene.Variant), gene.Options{IntRangeSize: config.Gene.IntRangeSize}); err != nil {
		return err
	}
	if config.Gene.MinLength < 1 {
		return fmt.Errorf("min length must be positive")
	}
	if config.Gene.MaxLength < config.Gene.MinLength {
		return fmt.Errorf("max length %d is below min length %d", config.Gene.MaxLength, config.Gene.MinLength)
	}

	switch config.Oracle.Kind {
	case constants.OracleCommand:
		if len(config.Oracle.RunCommand) == 0 {
			return fmt.Errorf("command oracle requires a run command")
		}
	case constants.OracleHTTP:
		if config.Oracle.URL == "" {
			return fmt.Errorf("http oracle requires a url")
		}
	case constants.OracleSurrogate:
		if config.Oracle.Noise < 0 {
			return fmt.Errorf("surrogate noise must not be negative")
		}
	default:
		return fmt.Errorf("unsupported oracle kind: %s", config.Oracle.Kind)
	}

	switch config.Sink.Kind {
	case "", constants.SinkMemory:
	case constants.SinkJSONL, constants.SinkSQLite, constants.SinkMongo:
		if config.Sink.Target == "" {
			return fmt.Errorf("%s sink requires a target", config.Sink.Kind)
		}
	default:
		return fmt.Errorf("unsupported sink backend: %s", config.Sink.Kind)
	}

	if config.Output.CheckpointInterval < 0 {
		return fmt.Errorf("checkpoint interval must not be negative")
	}
	if config.Output.Dir == "" {
		config.Output.Dir = constants.OutputDir
	}
	if config.Output.CheckpointDir == "" {
		config.Output.CheckpointDir = filepath.Join(config.Output.Dir, constants.CheckpointDir)
	}

	return nil
}

// Default returns the default configuration
func Default() *types.Config {
	return &types.Config{
		Evolution: types.EvolutionConfig{
			Generations:      constants.DefaultGenerations,
			PopulationSize:   constants.DefaultPopulationSize,
			CrossoverPercent: constants.DefaultCrossoverPercent,
			MutationPercent:  constants.DefaultMutationPercent,
			ElitePercent:     constants.DefaultElitePercent,
			SeedPercent:      constants.DefaultSeedPercent,
			TournamentSize:   constants.DefaultTournamentSize,
			NumOffspring:     constants.DefaultNumOffspring,
			EvaluationBudget: constants.DefaultEvaluationBudget,
			StaleGenerations: constants.DefaultStaleGenerations,
			Objective:        constants.DefaultObjective,
			Workers:          constants.DefaultWorkers,
			Seed:             constants.DefaultSeed,
			CrossoverWeights: map[string]float64{
				constants.CrossoverOnePoint: 1.0,
			},
		},
		Gene: types.GeneConfig{
			Variant:      constants.DefaultVariant,
			MinLength:    constants.DefaultMinLength,
			MaxLength:    constants.DefaultMaxLength,
			IntRangeSize: constants.DefaultIntRangeSize,
		},
		Oracle: types.OracleConfig{
			Kind:         constants.DefaultOracleKind,
			BuildCommand: []string{},
			RunCommand:   []string{},
			BuildTimeout: constants.DefaultBuildTimeout,
			RunTimeout:   constants.DefaultRunTimeout,
			Timeout:      constants.DefaultHTTPTimeout,
			Retries:      constants.DefaultRetries,
			RetryDelay:   constants.DefaultRetryDelay,
		},
		Sink: types.SinkConfig{
			Kind: constants.DefaultSinkKind,
		},
		Output: types.OutputConfig{
			Dir:                constants.OutputDir,
			CheckpointDir:      filepath.Join(constants.OutputDir, constants.CheckpointDir),
			CheckpointInterval: constants.DefaultCheckpointInterval,
		},
	}
}

// CreateDefaultConfig creates a default configuration file
func CreateDefaultConfig(path string) error {
	manager := NewManager()
	return manager.Save(path)
}
