package actions

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/loydmilligan/dailies-sub000/app/classify"
)

type stubClient struct {
	response string
	err      error
	calls    int
}

func (c *stubClient) Analyze(ctx context.Context, prompt string) (string, error) {
	c.calls++
	return c.response, c.err
}

func TestBiasAnalyzerStructuredResponse(t *testing.T) {
	client := &stubClient{response: `{"label": "Left", "score": 7, "rationale": "framing"}`}
	analyzer := NewBiasAnalyzer(client)

	payload, err := analyzer.Execute(context.Background(), testItem(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload["bias_label"] != "left" {
		t.Errorf("expected normalized label 'left', got %v", payload["bias_label"])
	}
	if payload["bias_score"] != 7.0 {
		t.Errorf("expected score 7, got %v", payload["bias_score"])
	}
	if payload["bias_confidence"] != 0.9 {
		t.Errorf("structured response should carry high confidence, got %v", payload["bias_confidence"])
	}
}

func TestBiasAnalyzerFreeTextFallback(t *testing.T) {
	client := &stubClient{response: "The article shows a clear left-leaning bias throughout."}
	analyzer := NewBiasAnalyzer(client)

	payload, err := analyzer.Execute(context.Background(), testItem(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload["bias_label"] != "left" {
		t.Errorf("expected fallback label 'left', got %v", payload["bias_label"])
	}
	if payload["bias_confidence"] != classify.FallbackConfidence {
		t.Errorf("fallback parse must carry fixed confidence %v, got %v",
			classify.FallbackConfidence, payload["bias_confidence"])
	}
}

func TestQualityScorerFallbackParsing(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantScore  float64
		structured bool
	}{
		{"structured", `{"score": 8}`, 8, true},
		{"slash notation", "I would rate this article 7/10 overall.", 7, false},
		{"no score anywhere", "A thoughtful piece with no obvious issues.", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := NewQualityScorer(&stubClient{response: tt.response})
			payload, err := scorer.Execute(context.Background(), testItem(), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if payload["quality_score"] != tt.wantScore {
				t.Errorf("expected score %v, got %v", tt.wantScore, payload["quality_score"])
			}
			wantConfidence := classify.FallbackConfidence
			if tt.structured {
				wantConfidence = 0.9
			}
			if payload["quality_score_confidence"] != wantConfidence {
				t.Errorf("expected confidence %v, got %v", wantConfidence, payload["quality_score_confidence"])
			}
		})
	}
}

func TestLoadedLanguageDetectorListFallback(t *testing.T) {
	client := &stubClient{response: "Loaded phrases found:\n- radical agenda\n- so-called experts\nSome closing remark."}
	detector := NewLoadedLanguageDetector(client)

	payload, err := detector.Execute(context.Background(), testItem(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	phrases, ok := payload["loaded_language_phrases"].([]string)
	if !ok || len(phrases) != 2 {
		t.Fatalf("expected 2 extracted phrases, got %v", payload["loaded_language_phrases"])
	}
	if phrases[0] != "radical agenda" || phrases[1] != "so-called experts" {
		t.Errorf("unexpected phrases: %v", phrases)
	}
	if payload["loaded_language_count"] != 2 {
		t.Errorf("expected count 2, got %v", payload["loaded_language_count"])
	}
}

func TestSummarizerSectionsFromConfig(t *testing.T) {
	client := &stubClient{response: "First point. Second point. Third point. Fourth point. Fifth point."}
	summarizer := NewSummarizer(client)

	config := map[string]interface{}{"executive_sentences": float64(1), "detailed_sentences": float64(2)}
	payload, err := summarizer.Execute(context.Background(), testItem(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	executive, _ := payload["summary_executive"].(string)
	if !strings.Contains(executive, "First point") || strings.Contains(executive, "Second point") {
		t.Errorf("expected a 1-sentence executive summary, got %q", executive)
	}
	detailed, _ := payload["summary_detailed"].(string)
	if !strings.Contains(detailed, "Second point") || !strings.Contains(detailed, "Third point") {
		t.Errorf("expected the next 2 sentences in the detailed tier, got %q", detailed)
	}
	implications, _ := payload["summary_implications"].(string)
	if !strings.Contains(implications, "Fourth point") {
		t.Errorf("expected remaining sentences in implications, got %q", implications)
	}
}

func TestTryParseJSONHandlesCodeFences(t *testing.T) {
	fenced := "```json\n{\"score\": 6}\n```"
	parsed := tryParseJSON(fenced)
	if parsed == nil || parsed["score"] != 6.0 {
		t.Errorf("expected fenced JSON to parse, got %v", parsed)
	}
	if tryParseJSON("just some prose about scores") != nil {
		t.Error("expected prose not to parse as JSON")
	}
}

// failingClient fails only for prompts matching a marker, so the composite
// analyzer sees a mix of successful and failed sub-analyses.
type failingClient struct {
	failOn string
}

func (c *failingClient) Analyze(ctx context.Context, prompt string) (string, error) {
	if c.failOn != "" && strings.Contains(prompt, c.failOn) {
		return "", fmt.Errorf("provider unavailable")
	}
	return `{"label": "center", "score": 5, "phrases": []}`, nil
}

func TestPoliticalAnalyzerMergesSubAnalyses(t *testing.T) {
	analyzer := NewPoliticalAnalyzer(&failingClient{})

	payload, err := analyzer.Execute(context.Background(), testItem(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"bias_label", "quality_score", "credibility_score", "loaded_language_count", "summary_executive"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("expected merged payload to contain %q, got keys %v", key, payloadKeys(payload))
		}
	}
	if _, ok := payload["analysis_partial_failures"]; ok {
		t.Error("expected no partial failures when every analysis succeeds")
	}
}

func TestPoliticalAnalyzerSurvivesPartialFailure(t *testing.T) {
	// credibility prompts mention the source domain reputation
	analyzer := NewPoliticalAnalyzer(&failingClient{failOn: "credibility"})

	payload, err := analyzer.Execute(context.Background(), testItem(), nil)
	if err != nil {
		t.Fatalf("expected partial failure to be tolerated, got %v", err)
	}
	if _, ok := payload["credibility_score"]; ok {
		t.Error("failed sub-analysis must not contribute to the payload")
	}
	if _, ok := payload["bias_label"]; !ok {
		t.Error("surviving sub-analyses must still contribute")
	}
	failures, ok := payload["analysis_partial_failures"].([]string)
	if !ok || len(failures) != 1 || !strings.Contains(failures[0], "credibility_scorer") {
		t.Errorf("expected the failed analysis recorded, got %v", payload["analysis_partial_failures"])
	}
}

func TestPoliticalAnalyzerAllFailed(t *testing.T) {
	client := &stubClient{err: fmt.Errorf("provider down")}
	analyzer := NewPoliticalAnalyzer(client)

	if _, err := analyzer.Execute(context.Background(), testItem(), nil); err == nil {
		t.Error("expected error when every analysis fails")
	}
}

func payloadKeys(payload map[string]interface{}) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	return keys
}
