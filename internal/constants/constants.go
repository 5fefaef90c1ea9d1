package constants

// Application constants
const (
	Name        = "seqevolve-go"
	Version     = "1.0.0"
	Description = "Linear genetic programming over gene sequences scored by an external oracle"

	// Default run values
	DefaultGenerations      = 50
	DefaultPopulationSize   = 40
	DefaultCrossoverPercent = 80
	DefaultMutationPercent  = 30
	DefaultElitePercent     = 10
	DefaultSeedPercent      = 0
	DefaultTournamentSize   = 3
	DefaultNumOffspring     = 4
	DefaultMinLength        = 4
	DefaultMaxLength        = 24
	DefaultIntRangeSize     = 16
	DefaultEvaluationBudget = 5
	DefaultStaleGenerations = 0 // early stop off
	DefaultWorkers          = 1
	DefaultSeed             = 42
	DefaultVariant          = "llvm-pass"
	DefaultObjective        = ObjectiveMinimize

	// Fitness memoization
	ReEvalProbability = 0.25
	SuccessThreshold  = 0.95

	// Oracle defaults
	DefaultOracleKind   = OracleSurrogate
	DefaultBuildTimeout = 120 // seconds
	DefaultRunTimeout   = 30  // seconds
	DefaultHTTPTimeout  = 300 // seconds
	DefaultRetries      = 3
	DefaultRetryDelay   = 5 // seconds
	SequencePlaceholder = "{{sequence}}"
	BinaryPlaceholder   = "{{binary}}"

	// Sink defaults
	DefaultSinkKind           = SinkMemory
	DefaultCheckpointInterval = 10

	// Directory names
	OutputDir     = "seqevolve_output"
	CheckpointDir = "checkpoints"

	// Exit codes
	ExitSuccess   = 0
	ExitError     = 1
	ExitInterrupt = 2
)

// Objectives
const (
	ObjectiveMinimize = "minimize"
	ObjectiveMaximize = "maximize"
)

// Oracle kinds
const (
	OracleCommand   = "command"
	OracleHTTP      = "http"
	OracleSurrogate = "surrogate"
)

// Sink kinds
const (
	SinkMemory = "memory"
	SinkJSONL  = "jsonl"
	SinkSQLite = "sqlite"
	SinkMongo  = "mongo"
)

// Crossover kinds
const (
	CrossoverOnePoint     = "one-point"
	CrossoverTwoPointBase = "two-point-basic"
	CrossoverTwoPointDiff = "two-point-diff"
)
