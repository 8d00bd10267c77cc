// Package judge wraps external semantic-judgment providers behind a
// caching, circuit-broken oracle with defensive response parsing.
package judge

import (
	"context"
	"time"
)

// Provider defines the interface for judgment providers. Implementations
// send the prompts to an external LLM and return its raw text response.
type Provider interface {
	Judge(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ParseSource tags which tier of the fallback chain produced a result.
type ParseSource string

// Parse chain tiers, in order of preference.
const (
	SourceJSON    ParseSource = "json"
	SourceRegex   ParseSource = "regex_fallback"
	SourceDefault ParseSource = "default"
)

// Result is a parsed, validated judgment for one (intent, profile) pair.
type Result struct {
	Explanation    string
	Source         ParseSource
	MatchedAspects []string
	MissingAspects []string
	Score          float64
	Confidence     float64
	Cached         bool
}

// Config holds configuration for judgment providers.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}
