package oracle

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/internal/types"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sequence"
)

// Oracle measures the cost of a candidate sequence.
// budget is the number of runs the oracle may spend on one request.
type Oracle interface {
	Evaluate(ctx context.Context, seq *sequence.Sequence, budget int) (*types.OracleResult, error)
}

// Func adapts a plain function to the Oracle interface
type Func func(ctx context.Context, seq *sequence.Sequence, budget int) (*types.OracleResult, error)

// Evaluate calls f
func (f Func) Evaluate(ctx context.Context, seq *sequence.Sequence, budget int) (*types.OracleResult, error) {
	return f(ctx, seq, budget)
}

// New creates the oracle selected by config.Kind
func New(config types.OracleConfig) (Oracle, error) {
	switch config.Kind {
	case constants.OracleCommand:
		return NewCommand(config)
	case constants.OracleHTTP:
		return NewHTTP(config)
	case "", constants.OracleSurrogate:
		return NewSurrogate(config), nil
	default:
		return nil, fmt.Errorf("unsupported oracle kind: %s", config.Kind)
	}
}

// MeanVariance returns the sample mean and unbiased variance. Fewer than two
// samples have zero variance.
func MeanVariance(samples []float64) (float64, float64) {
	switch len(samples) {
	case 0:
		return 0, 0
	case 1:
		return samples[0], 0
	}
	return stat.MeanVariance(samples, nil)
}

// Meets reports whether an oracle result clears the success threshold for budget
func Meets(result *types.OracleResult, budget int) bool {
	if result == nil {
		return false
	}
	return float64(result.SuccessCount) >= constants.SuccessThreshold*float64(budget)
}
