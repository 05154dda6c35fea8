package provider

import (
	"context"
	"errors"
	"time"
)

// Uniform error conditions surfaced by every adapter, so the orchestrator
// can decide whether to advance to the next provider.
var (
	// ErrUnavailable marks a provider that is not configured (e.g. missing
	// API key). Skipped, not fatal.
	ErrUnavailable = errors.New("provider not configured")

	// ErrRateLimited marks a provider-side rate limit or quota error
	ErrRateLimited = errors.New("provider rate limited")
)

// ClassifyResult is the raw outcome of a single provider classification call.
// RawResponse is always populated when the call succeeded at the transport
// level, even if the response could not be parsed into a clean label.
type ClassifyResult struct {
	ProviderName    string
	RawLabel        string
	RawResponse     string
	ConfidenceHint  float64 // provider-reported hint in [0,1]; 0 when absent
	Truncated       bool    // response cut off at the token limit
	ContentFiltered bool    // response suppressed by the provider's filter
	Duration        time.Duration
}

// Provider is the uniform capability interface over heterogeneous AI
// backends. Adapters enforce their own request timeout, never mutate shared
// state, and return raw text upward rather than failing on parse errors.
type Provider interface {
	Name() string

	// Available reports whether the adapter is configured for use
	Available() bool

	// Classify sends a classification prompt and returns the labeled result
	Classify(ctx context.Context, prompt string) (*ClassifyResult, error)

	// Analyze sends an analysis prompt and returns the response text,
	// structured or not; callers fall back to heuristic parsing
	Analyze(ctx context.Context, prompt string) (string, error)
}
