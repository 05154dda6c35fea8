package classify

import (
	"strings"
	"testing"
)

func TestParseBiasLabel(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"This article shows a clear left-leaning bias", "left"},
		{"The piece is written from a liberal perspective", "left"},
		{"A progressive take on the economy", "left"},
		{"Strongly conservative framing throughout", "right"},
		{"The article has a right-wing slant", "right"},
		{"The coverage is balanced and neutral", "center"},
		{"A centrist analysis of the debate", "center"},
		{"No political language at all here", "center"},
	}

	for _, tt := range tests {
		result := ParseBiasLabel(tt.text)
		if result.Label != tt.expected {
			t.Errorf("ParseBiasLabel(%q) = %q, expected %q", tt.text, result.Label, tt.expected)
		}
		if result.Confidence != FallbackConfidence {
			t.Errorf("ParseBiasLabel(%q): expected confidence %f, got %f", tt.text, FallbackConfidence, result.Confidence)
		}
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		text     string
		expected float64
		ok       bool
	}{
		{"I'd rate this 7/10 overall", 7, true},
		{"The quality is 8 out of 10", 8, true},
		{"Score: 6.5", 6.5, true},
		{"Rating: 9", 9, true},
		{"quality score 15/10 hyperbole", 10, true},
		{"no score here at all", 0, false},
	}

	for _, tt := range tests {
		score, ok := ParseScore(tt.text)
		if ok != tt.ok {
			t.Errorf("ParseScore(%q): expected ok=%v, got %v", tt.text, tt.ok, ok)
			continue
		}
		if ok && score != tt.expected {
			t.Errorf("ParseScore(%q) = %f, expected %f", tt.text, score, tt.expected)
		}
	}
}

func TestSplitSummary(t *testing.T) {
	text := "First sentence. Second sentence. Third sentence. Fourth sentence. " +
		"Fifth sentence. Sixth sentence. Seventh sentence. Eighth sentence. Ninth sentence."

	sections := SplitSummary(text, 2, 5)

	if !strings.Contains(sections.Executive, "First sentence") || !strings.Contains(sections.Executive, "Second sentence") {
		t.Errorf("Executive should hold the first 2 sentences, got %q", sections.Executive)
	}
	if strings.Contains(sections.Executive, "Third") {
		t.Errorf("Executive should not include the third sentence, got %q", sections.Executive)
	}
	if !strings.Contains(sections.Detailed, "Third sentence") || !strings.Contains(sections.Detailed, "Seventh sentence") {
		t.Errorf("Detailed should hold sentences 3-7, got %q", sections.Detailed)
	}
	if !strings.Contains(sections.Implications, "Eighth sentence") {
		t.Errorf("Implications should hold the remainder, got %q", sections.Implications)
	}
}

func TestSplitSummary_ShortInput(t *testing.T) {
	sections := SplitSummary("Only one sentence here.", 2, 5)

	if sections.Executive == "" {
		t.Error("Executive should hold the available text")
	}
	if sections.Detailed != "" || sections.Implications != "" {
		t.Error("Later sections should be empty for short input")
	}
}

func TestSplitSummary_NeverPanics(t *testing.T) {
	inputs := []string{"", "   ", "no terminal punctuation", "!!!", "a. b. c."}
	for _, input := range inputs {
		// Must always produce a best-effort result
		_ = SplitSummary(input, 0, 0)
	}
}
