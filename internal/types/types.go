package types

import (
	"time"
)

// OracleResult is what a fitness oracle reports for one evaluation request
type OracleResult struct {
	AverageCost  float64   `json:"average_cost"`
	SuccessCount int       `json:"success_count"`
	Samples      []float64 `json:"samples"`
}

// EvaluationRecord is one oracle evaluation folded into a lineage
type EvaluationRecord struct {
	RunID        string    `json:"run_id" bson:"run_id"`
	LineageID    int       `json:"lineage_id" bson:"lineage_id"`
	Generation   int       `json:"generation" bson:"generation"`
	Sequence     []string  `json:"sequence" bson:"sequence"`
	Samples      []float64 `json:"samples" bson:"samples"`
	SuccessCount int       `json:"success_count" bson:"success_count"`
	AvgTime      float64   `json:"avg_time" bson:"avg_time"`
	Variance     float64   `json:"variance" bson:"variance"`
	Valid        bool      `json:"valid" bson:"valid"`
	Fitness      float64   `json:"fitness" bson:"fitness"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// GenerationRecord summarizes one scored generation
type GenerationRecord struct {
	RunID       string    `json:"run_id" bson:"run_id"`
	Generation  int       `json:"generation" bson:"generation"`
	BestFitness float64   `json:"best_fitness" bson:"best_fitness"`
	AvgFitness  float64   `json:"avg_fitness" bson:"avg_fitness"`
	BestLineage int       `json:"best_lineage" bson:"best_lineage"`
	Distinct    int       `json:"distinct" bson:"distinct"`
	Evaluations int64     `json:"evaluations" bson:"evaluations"`
	Stale       int       `json:"stale" bson:"stale"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// BestRecord is the best individual known after a generation
type BestRecord struct {
	RunID      string    `json:"run_id" bson:"run_id"`
	Generation int       `json:"generation" bson:"generation"`
	LineageID  int       `json:"lineage_id" bson:"lineage_id"`
	Sequence   []string  `json:"sequence" bson:"sequence"`
	Fitness    float64   `json:"fitness" bson:"fitness"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// LocusRecord is the serialized form of one locus
type LocusRecord struct {
	ID    uint64 `json:"id"`
	Value string `json:"value"`
}

// EvaluationEntry is the serialized form of one evaluation inside a lineage
type EvaluationEntry struct {
	Samples      []float64 `json:"samples"`
	SuccessCount int       `json:"success_count"`
	AvgTime      float64   `json:"avg_time"`
	Variance     float64   `json:"variance"`
	Generation   int       `json:"generation"`
	Valid        bool      `json:"valid"`
}

// LineageRecord is the serialized form of one registry entry
type LineageRecord struct {
	ID            int               `json:"id"`
	Loci          []LocusRecord     `json:"loci"`
	Fitness       float64           `json:"fitness"`
	NumEval       int               `json:"num_eval"`
	Evaluations   []EvaluationEntry `json:"evaluations"`
	Participation int               `json:"participation"`
}

// Checkpoint represents a saved state of the individual registry
type Checkpoint struct {
	Version    string          `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	Generation int             `json:"generation"`
	Variant    string          `json:"variant"`
	NextID     uint64          `json:"next_id"`
	Lineages   []LineageRecord `json:"lineages"`
	Stats      EvolutionStats  `json:"stats"`
}

// EvolutionStats tracks statistics about the evolution process
type EvolutionStats struct {
	Registered         int64         `json:"registered"`
	TotalEvaluations   int64         `json:"total_evaluations"`
	InvalidEvaluations int64         `json:"invalid_evaluations"`
	CacheHits          int64         `json:"cache_hits"`
	BestFitness        float64       `json:"best_fitness"`
	Duration           time.Duration `json:"duration"`
	StartTime          time.Time     `json:"start_time"`
	LastUpdate         time.Time     `json:"last_update"`
}

// Config represents the main configuration
type Config struct {
	Evolution EvolutionConfig `yaml:"evolution" json:"evolution" toml:"evolution"`
	Gene      GeneConfig      `yaml:"gene" json:"gene" toml:"gene"`
	Oracle    OracleConfig    `yaml:"oracle" json:"oracle" toml:"oracle"`
	Sink      SinkConfig      `yaml:"sink" json:"sink" toml:"sink"`
	Output    OutputConfig    `yaml:"output" json:"output" toml:"output"`
}

// EvolutionConfig holds the generation lifecycle parameters
type EvolutionConfig struct {
	Generations      int                `yaml:"generations" json:"generations" toml:"generations"`
	PopulationSize   int                `yaml:"population_size" json:"population_size" toml:"population_size"`
	CrossoverPercent int                `yaml:"crossover_percent" json:"crossover_percent" toml:"crossover_percent"`
	MutationPercent  int                `yaml:"mutation_percent" json:"mutation_percent" toml:"mutation_percent"`
	ElitePercent     int                `yaml:"elite_percent" json:"elite_percent" toml:"elite_percent"`
	SeedPercent      int                `yaml:"seed_percent" json:"seed_percent" toml:"seed_percent"`
	TournamentSize   int                `yaml:"tournament_size" json:"tournament_size" toml:"tournament_size"`
	NumOffspring     int                `yaml:"num_offspring" json:"num_offspring" toml:"num_offspring"`
	EvaluationBudget int                `yaml:"evaluation_budget" json:"evaluation_budget" toml:"evaluation_budget"`
	VarianceAware    bool               `yaml:"variance_aware" json:"variance_aware" toml:"variance_aware"`
	StaleGenerations int                `yaml:"stale_generations" json:"stale_generations" toml:"stale_generations"`
	Objective        string             `yaml:"objective" json:"objective" toml:"objective"`
	Workers          int                `yaml:"workers" json:"workers" toml:"workers"`
	Seed             int64              `yaml:"seed" json:"seed" toml:"seed"`
	CrossoverWeights map[string]float64 `yaml:"crossover_weights" json:"crossover_weights" toml:"crossover_weights"`
}

// GeneConfig selects the gene alphabet and sequence shape
type GeneConfig struct {
	Variant      string `yaml:"variant" json:"variant" toml:"variant"`
	MinLength    int    `yaml:"min_length" json:"min_length" toml:"min_length"`
	MaxLength    int    `yaml:"max_length" json:"max_length" toml:"max_length"`
	IntRangeSize int    `yaml:"int_range_size" json:"int_range_size" toml:"int_range_size"`
}

// OracleConfig represents fitness oracle configuration
type OracleConfig struct {
	Kind         string   `yaml:"kind" json:"kind" toml:"kind"`
	BuildCommand []string `yaml:"build_command" json:"build_command" toml:"build_command"`
	RunCommand   []string `yaml:"run_command" json:"run_command" toml:"run_command"`
	WorkDir      string   `yaml:"work_dir" json:"work_dir" toml:"work_dir"`
	Binary       string   `yaml:"binary" json:"binary" toml:"binary"`
	BuildTimeout int      `yaml:"build_timeout" json:"build_timeout" toml:"build_timeout"`
	RunTimeout   int      `yaml:"run_timeout" json:"run_timeout" toml:"run_timeout"`
	SelfTimed    bool     `yaml:"self_timed" json:"self_timed" toml:"self_timed"`
	URL          string   `yaml:"url" json:"url" toml:"url"`
	APIKey       string   `yaml:"api_key" json:"api_key" toml:"api_key"`
	Timeout      int      `yaml:"timeout" json:"timeout" toml:"timeout"`
	Retries      int      `yaml:"retries" json:"retries" toml:"retries"`
	RetryDelay   int      `yaml:"retry_delay" json:"retry_delay" toml:"retry_delay"`
	Noise        float64  `yaml:"noise" json:"noise" toml:"noise"`
}

// SinkConfig selects where run records are appended
type SinkConfig struct {
	Kind     string `yaml:"kind" json:"kind" toml:"kind"`
	Target   string `yaml:"target" json:"target" toml:"target"`
	Database string `yaml:"database" json:"database" toml:"database"`
}

// OutputConfig controls checkpoints and console output
type OutputConfig struct {
	Dir                string `yaml:"dir" json:"dir" toml:"dir"`
	CheckpointDir      string `yaml:"checkpoint_dir" json:"checkpoint_dir" toml:"checkpoint_dir"`
	CheckpointInterval int    `yaml:"checkpoint_interval" json:"checkpoint_interval" toml:"checkpoint_interval"`
	ResumeFrom         string `yaml:"resume_from" json:"resume_from" toml:"resume_from"`
	MetricsAddr        string `yaml:"metrics_addr" json:"metrics_addr" toml:"metrics_addr"`
	Verbose            bool   `yaml:"verbose" json:"verbose" toml:"verbose"`
}
