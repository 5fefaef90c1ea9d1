package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/seqevolve-go/internal/constants"
	"github.com/ishanwen-byte/seqevolve-go/internal/types"
	"github.com/ishanwen-byte/seqevolve-go/pkg/sequence"
)

// HTTPError represents a non-2xx answer from a remote timing service
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Request is the body posted to a remote timing service
type Request struct {
	Variant  string   `json:"variant"`
	Sequence []string `json:"sequence"`
	Rendered string   `json:"rendered"`
	Budget   int      `json:"budget"`
}

// HTTP delegates evaluation to a remote timing service
type HTTP struct {
	config types.OracleConfig
	client *resty.Client
	logger *logrus.Logger
}

// NewHTTP creates an oracle that posts sequences to config.URL
func NewHTTP(config types.OracleConfig) (*HTTP, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("url is required for the http oracle")
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = constants.DefaultHTTPTimeout * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(config.Retries).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			// Client errors are not retried
			return r.StatusCode() >= 500
		})
	if config.RetryDelay > 0 {
		delay := time.Duration(config.RetryDelay) * time.Second
		client.SetRetryWaitTime(delay).SetRetryMaxWaitTime(2 * delay)
	}
	if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	return &HTTP{
		config: config,
		client: client,
		logger: logger,
	}, nil
}

// SetLogger replaces the oracle logger
func (h *HTTP) SetLogger(logger *logrus.Logger) {
	h.logger = logger
}

// Evaluate posts the sequence and decodes the service's OracleResult
func (h *HTTP) Evaluate(ctx context.Context, seq *sequence.Sequence, budget int) (*types.OracleResult, error) {
	request := Request{
		Variant:  string(seq.Variant().Tag()),
		Sequence: seq.Values(),
		Rendered: seq.String(),
		Budget:   budget,
	}

	startTime := time.Now()
	var result types.OracleResult
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&result).
		Post(h.config.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to reach timing service: %w", err)
	}
	if resp.IsError() {
		return nil, &HTTPError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 512)}
	}

	if result.AverageCost == 0 && len(result.Samples) > 0 {
		result.AverageCost, _ = MeanVariance(result.Samples)
	}

	h.logger.WithFields(logrus.Fields{
		"url":      h.config.URL,
		"budget":   budget,
		"success":  result.SuccessCount,
		"duration": time.Since(startTime),
	}).Debug("Remote evaluation completed")

	return &result, nil
}
