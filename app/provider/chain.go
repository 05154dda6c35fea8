package provider

import (
	"context"
	"fmt"
)

// Chain fans analysis requests over the configured providers in order,
// returning the first successful response. Unavailable providers are
// skipped; errors advance to the next provider.
type Chain struct {
	providers []Provider
}

func NewChain(providers []Provider) *Chain {
	return &Chain{providers: providers}
}

func (c *Chain) Analyze(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		response, err := p.Analyze(ctx, prompt)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", p.Name(), err)
			continue
		}
		return response, nil
	}

	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrUnavailable
}
