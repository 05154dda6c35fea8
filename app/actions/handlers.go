package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loydmilligan/dailies-sub000/app/classify"
	"github.com/loydmilligan/dailies-sub000/app/database"
)

// AnalysisClient is the provider capability the handlers consume
type AnalysisClient interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

const analysisExcerptLimit = 4000

// BiasAnalyzer detects political bias in content. Structured JSON output is
// preferred; free-text responses fall back to keyword extraction.
type BiasAnalyzer struct {
	client AnalysisClient
}

func NewBiasAnalyzer(client AnalysisClient) *BiasAnalyzer {
	return &BiasAnalyzer{client: client}
}

func (a *BiasAnalyzer) Name() string { return "bias_analyzer" }

func (a *BiasAnalyzer) Execute(ctx context.Context, item database.ContentItem, config map[string]interface{}) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`Analyze the political bias of this content.
Respond with JSON: {"label": "left|center|right", "score": 0-10, "rationale": "..."}

Title: %s
Content: %s`, item.Title, truncate(item.RawText, analysisExcerptLimit))

	response, err := a.client.Analyze(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if parsed := tryParseJSON(response); parsed != nil {
		if label, ok := parsed["label"].(string); ok && label != "" {
			payload := map[string]interface{}{
				"bias_label":      strings.ToLower(label),
				"bias_confidence": 0.9,
			}
			if score, ok := parsed["score"].(float64); ok {
				payload["bias_score"] = score
			}
			if rationale, ok := parsed["rationale"].(string); ok {
				payload["bias_rationale"] = rationale
			}
			return payload, nil
		}
	}

	bias := classify.ParseBiasLabel(response)
	return map[string]interface{}{
		"bias_label":      bias.Label,
		"bias_confidence": bias.Confidence,
	}, nil
}

// QualityScorer rates overall content quality on a 0-10 scale
type QualityScorer struct {
	client AnalysisClient
}

func NewQualityScorer(client AnalysisClient) *QualityScorer {
	return &QualityScorer{client: client}
}

func (a *QualityScorer) Name() string { return "quality_scorer" }

func (a *QualityScorer) Execute(ctx context.Context, item database.ContentItem, config map[string]interface{}) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`Rate the journalistic quality of this content from 0 to 10.
Respond with JSON: {"score": 0-10}

Title: %s
Content: %s`, item.Title, truncate(item.RawText, analysisExcerptLimit))

	return scoreWithFallback(ctx, a.client, prompt, "quality_score")
}

// CredibilityScorer rates source and claim credibility on a 0-10 scale
type CredibilityScorer struct {
	client AnalysisClient
}

func NewCredibilityScorer(client AnalysisClient) *CredibilityScorer {
	return &CredibilityScorer{client: client}
}

func (a *CredibilityScorer) Name() string { return "credibility_scorer" }

func (a *CredibilityScorer) Execute(ctx context.Context, item database.ContentItem, config map[string]interface{}) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`Rate the credibility of this content from 0 to 10, considering
sourcing, verifiable claims and the reputation of %s.
Respond with JSON: {"score": 0-10}

Title: %s
Content: %s`, item.SourceDomain, item.Title, truncate(item.RawText, analysisExcerptLimit))

	return scoreWithFallback(ctx, a.client, prompt, "credibility_score")
}

// LoadedLanguageDetector finds emotionally loaded phrasing
type LoadedLanguageDetector struct {
	client AnalysisClient
}

func NewLoadedLanguageDetector(client AnalysisClient) *LoadedLanguageDetector {
	return &LoadedLanguageDetector{client: client}
}

func (a *LoadedLanguageDetector) Name() string { return "loaded_language_detector" }

func (a *LoadedLanguageDetector) Execute(ctx context.Context, item database.ContentItem, config map[string]interface{}) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`List emotionally loaded or manipulative phrases in this content.
Respond with JSON: {"phrases": ["...", "..."]}

Title: %s
Content: %s`, item.Title, truncate(item.RawText, analysisExcerptLimit))

	response, err := a.client.Analyze(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var phrases []string
	if parsed := tryParseJSON(response); parsed != nil {
		if raw, ok := parsed["phrases"].([]interface{}); ok {
			for _, entry := range raw {
				if phrase, ok := entry.(string); ok && phrase != "" {
					phrases = append(phrases, phrase)
				}
			}
		}
	}
	if phrases == nil {
		phrases = extractListItems(response)
	}

	return map[string]interface{}{
		"loaded_language_phrases": phrases,
		"loaded_language_count":   len(phrases),
	}, nil
}

// Summarizer produces tiered summaries of the content. Sentence counts for
// the executive and detailed tiers come from the action config.
type Summarizer struct {
	client AnalysisClient
}

func NewSummarizer(client AnalysisClient) *Summarizer {
	return &Summarizer{client: client}
}

func (a *Summarizer) Name() string { return "summarizer" }

func (a *Summarizer) Execute(ctx context.Context, item database.ContentItem, config map[string]interface{}) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`Summarize this content in plain prose. Start with the key takeaway,
then the supporting details, then the wider implications.

Title: %s
Content: %s`, item.Title, truncate(item.RawText, analysisExcerptLimit))

	response, err := a.client.Analyze(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sections := classify.SplitSummary(response, configInt(config, "executive_sentences", 2), configInt(config, "detailed_sentences", 5))

	return map[string]interface{}{
		"summary_executive":    sections.Executive,
		"summary_detailed":     sections.Detailed,
		"summary_implications": sections.Implications,
	}, nil
}

// EntityExtractor pulls named entities (people, organizations, places)
type EntityExtractor struct {
	client AnalysisClient
}

func NewEntityExtractor(client AnalysisClient) *EntityExtractor {
	return &EntityExtractor{client: client}
}

func (a *EntityExtractor) Name() string { return "entity_extractor" }

func (a *EntityExtractor) Execute(ctx context.Context, item database.ContentItem, config map[string]interface{}) (map[string]interface{}, error) {
	prompt := fmt.Sprintf(`Extract the named entities (people, organizations, places) from this content.
Respond with JSON: {"entities": ["...", "..."]}

Title: %s
Content: %s`, item.Title, truncate(item.RawText, analysisExcerptLimit))

	response, err := a.client.Analyze(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var entities []string
	if parsed := tryParseJSON(response); parsed != nil {
		if raw, ok := parsed["entities"].([]interface{}); ok {
			for _, entry := range raw {
				if entity, ok := entry.(string); ok && entity != "" {
					entities = append(entities, entity)
				}
			}
		}
	}
	if entities == nil {
		entities = extractListItems(response)
	}

	return map[string]interface{}{
		"entities": entities,
	}, nil
}

func scoreWithFallback(ctx context.Context, client AnalysisClient, prompt, key string) (map[string]interface{}, error) {
	response, err := client.Analyze(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if parsed := tryParseJSON(response); parsed != nil {
		if score, ok := parsed["score"].(float64); ok {
			return map[string]interface{}{
				key:                 score,
				key + "_confidence": 0.9,
			}, nil
		}
	}

	if score, ok := classify.ParseScore(response); ok {
		return map[string]interface{}{
			key:                 score,
			key + "_confidence": classify.FallbackConfidence,
		}, nil
	}

	// No score found anywhere; report a neutral midpoint rather than failing
	return map[string]interface{}{
		key:                 5.0,
		key + "_confidence": classify.FallbackConfidence,
	}, nil
}

// tryParseJSON attempts to parse a provider response as a JSON object,
// tolerating markdown code fences. Returns nil when the response is not
// structured.
func tryParseJSON(response string) map[string]interface{} {
	trimmed := strings.TrimSpace(response)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil
	}
	return parsed
}

// extractListItems pulls bullet or numbered list entries out of free text
func extractListItems(response string) []string {
	var items []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(line, prefix) {
				items = append(items, strings.TrimSpace(strings.TrimPrefix(line, prefix)))
				break
			}
		}
	}
	return items
}

func configInt(config map[string]interface{}, key string, fallback int) int {
	if config == nil {
		return fallback
	}
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
