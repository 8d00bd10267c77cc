// Package similarity provides a thin client for an external text
// similarity provider.
package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relaylabs/leadmatch/internal/common"
)

// Result is a bounded similarity score with the provider's explanation.
type Result struct {
	Explanation string
	Score       float64
}

// Estimator computes the semantic similarity of two texts.
type Estimator interface {
	Estimate(ctx context.Context, textA, textB string) (Result, error)
}

// Config holds configuration for the similarity client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is an HTTP implementation of Estimator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient creates a similarity client. BaseURL is required.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: similarity base url", common.ErrConfigMissing)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type similarityRequest struct {
	Model string `json:"model,omitempty"`
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

type similarityResponse struct {
	Explanation string   `json:"explanation"`
	Score       *float64 `json:"score"`
}

// Estimate sends both texts to the provider and returns a score in [0,1].
func (c *Client) Estimate(ctx context.Context, textA, textB string) (Result, error) {
	if strings.TrimSpace(textA) == "" || strings.TrimSpace(textB) == "" {
		return Result{}, fmt.Errorf("similarity requires two non-empty texts")
	}

	payload, err := json.Marshal(similarityRequest{Model: c.model, TextA: textA, TextB: textB})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/similarity", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Result{}, fmt.Errorf("%w: %v", common.ErrProviderTimeout, err)
		}
		return Result{}, fmt.Errorf("%w: %v", common.ErrProviderFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: similarity API status %d: %s", common.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded similarityResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{}, fmt.Errorf("%w: %v", common.ErrResponseParse, err)
	}
	if decoded.Score == nil {
		return Result{}, fmt.Errorf("%w: no score in similarity response", common.ErrResponseParse)
	}

	score := *decoded.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return Result{Score: score, Explanation: decoded.Explanation}, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
