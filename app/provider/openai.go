package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProvider talks to any OpenAI-compatible chat-completions endpoint:
// hosted OpenAI, vLLM, Ollama and friends all speak the same surface, so a
// base URL plus model name is enough to address each backend.
type OpenAIProvider struct {
	name    string
	model   string
	timeout time.Duration
	client  openai.Client
	enabled bool
}

type OpenAIOptions struct {
	Name    string // adapter name reported in results ("openai", "local", ...)
	APIKey  string
	BaseURL string // empty for hosted OpenAI
	Model   string
	Timeout time.Duration
}

func NewOpenAIProvider(opts OpenAIOptions) *OpenAIProvider {
	requestOpts := []option.RequestOption{}
	enabled := false

	if opts.APIKey != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(opts.APIKey))
		enabled = true
	}
	if opts.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(opts.BaseURL))
		// Local endpoints usually need no key
		enabled = true
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIProvider{
		name:    opts.Name,
		model:   opts.Model,
		timeout: timeout,
		client:  openai.NewClient(requestOpts...),
		enabled: enabled,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Available() bool {
	return p.enabled
}

func (p *OpenAIProvider) Classify(ctx context.Context, prompt string) (*ClassifyResult, error) {
	if !p.enabled {
		return nil, ErrUnavailable
	}

	start := time.Now()
	completion, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := &ClassifyResult{
		ProviderName: p.name,
		RawResponse:  completion.content,
		RawLabel:     extractLabel(completion.content),
		Duration:     time.Since(start),
	}

	switch completion.finishReason {
	case "length":
		result.Truncated = true
	case "content_filter":
		result.ContentFiltered = true
	}

	slog.Debug("Provider classification completed",
		"provider", p.name,
		"label", result.RawLabel,
		"duration", result.Duration.String())

	return result, nil
}

func (p *OpenAIProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	if !p.enabled {
		return "", ErrUnavailable
	}

	completion, err := p.complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	return completion.content, nil
}

type completionResult struct {
	content      string
	finishReason string
}

func (p *OpenAIProvider) complete(ctx context.Context, prompt string) (*completionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, p.name)
		}
		return nil, fmt.Errorf("provider %s request failed: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("provider %s returned no choices", p.name)
	}

	choice := resp.Choices[0]
	return &completionResult{
		content:      choice.Message.Content,
		finishReason: string(choice.FinishReason),
	}, nil
}

// extractLabel pulls a category label out of a completion. Providers are
// prompted to answer with the bare category name, but some wrap it in
// punctuation, quotes or a leading "Category:".
func extractLabel(response string) string {
	line := response
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	line = strings.TrimSpace(line)
	for _, prefix := range []string{"Category:", "category:", "Label:", "label:", "Answer:"} {
		line = strings.TrimSpace(strings.TrimPrefix(line, prefix))
	}
	line = strings.Trim(line, `"'.`+" ")

	return line
}
