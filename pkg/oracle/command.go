package oracle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/internal/types"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sequence"
)

// ErrBuildFailed is returned when the build stage rejects a sequence
var ErrBuildFailed = errors.New("build stage failed")

// Command builds the target program with the sequence rendered into the build
// command, then runs it budget times and times each run.
type Command struct {
	config types.OracleConfig
	logger *logrus.Logger
}

// NewCommand creates a command oracle
func NewCommand(config types.OracleConfig) (*Command, error) {
	if len(config.RunCommand) == 0 {
		return nil, fmt.Errorf("run command is required for the command oracle")
	}
	if config.Binary == "" {
		config.Binary = "a.out"
	}
	if config.BuildTimeout <= 0 {
		config.BuildTimeout = constants.DefaultBuildTimeout
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = constants.DefaultRunTimeout
	}

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	return &Command{
		config: config,
		logger: logger,
	}, nil
}

// SetLogger replaces the oracle logger
func (c *Command) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Evaluate builds once and runs budget times. Failed runs lower SuccessCount;
// a failed build is returned as an error.
func (c *Command) Evaluate(ctx context.Context, seq *sequence.Sequence, budget int) (*types.OracleResult, error) {
	workDir, err := os.MkdirTemp(c.config.WorkDir, "seqevolve-eval-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	binary := filepath.Join(workDir, c.config.Binary)
	rendered := seq.String()

	if len(c.config.BuildCommand) > 0 {
		if err := c.build(ctx, workDir, expandArgs(c.config.BuildCommand, rendered, binary)); err != nil {
			return nil, err
		}
	}

	result := &types.OracleResult{
		Samples: make([]float64, 0, budget),
	}
	runArgs := expandArgs(c.config.RunCommand, rendered, binary)
	for i := 0; i < budget; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		elapsed, err := c.run(ctx, workDir, runArgs)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"run":   i,
				"error": err,
			}).Debug("Timed run failed")
			continue
		}
		result.Samples = append(result.Samples, elapsed)
		result.SuccessCount++
	}

	result.AverageCost, _ = MeanVariance(result.Samples)
	return result, nil
}

func (c *Command) build(ctx context.Context, workDir string, args []string) error {
	buildCtx, cancel := context.WithTimeout(ctx, time.Duration(c.config.BuildTimeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(buildCtx, args[0], args[1:]...)
	cmd.Dir = workDir
	output, err := cmd.CombinedOutput()

	if buildCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: timed out after %ds", ErrBuildFailed, c.config.BuildTimeout)
	}
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"command": strings.Join(args, " "),
			"output":  truncate(string(output), 512),
		}).Debug("Build failed")
		return fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}
	return nil
}

func (c *Command) run(ctx context.Context, workDir string, args []string) (float64, error) {
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(c.config.RunTimeout)*time.Second)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = workDir
	cmd.Stdout = &stdout

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Seconds()

	if runCtx.Err() == context.DeadlineExceeded {
		return 0, fmt.Errorf("run timed out after %ds", c.config.RunTimeout)
	}
	if err != nil {
		return 0, fmt.Errorf("run failed: %w", err)
	}

	if c.config.SelfTimed {
		reported, ok := parseTimeOutput(stdout.String())
		if !ok {
			return 0, fmt.Errorf("no TIME line in program output")
		}
		return reported, nil
	}
	return elapsed, nil
}

// expandArgs substitutes the placeholders. An argument that is exactly the
// sequence placeholder expands into one argument per rendered field.
func expandArgs(template []string, rendered, binary string) []string {
	args := make([]string, 0, len(template))
	for _, arg := range template {
		if arg == constants.SequencePlaceholder {
			args = append(args, strings.Fields(rendered)...)
			continue
		}
		arg = strings.ReplaceAll(arg, constants.SequencePlaceholder, rendered)
		arg = strings.ReplaceAll(arg, constants.BinaryPlaceholder, binary)
		args = append(args, arg)
	}
	return args
}

// parseTimeOutput extracts a self-reported run time from program output.
// Accepts "TIME: <seconds>" lines, a JSON object with a "time" field, or a bare number.
func parseTimeOutput(output string) (float64, bool) {
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err == nil {
		if t, ok := result["time"].(float64); ok {
			return t, true
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "TIME: ") {
			var t float64
			if _, err := fmt.Sscanf(line[6:], "%f", &t); err == nil {
				return t, true
			}
		}
	}

	var t float64
	if _, err := fmt.Sscanf(strings.TrimSpace(output), "%f", &t); err == nil {
		return t, true
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}
