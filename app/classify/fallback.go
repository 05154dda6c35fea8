package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// FallbackConfidence is the fixed confidence tag for heuristically parsed
// results. Lower than any structured parse, higher than the floor.
const FallbackConfidence = 0.6

// BiasResult is a heuristically extracted bias label
type BiasResult struct {
	Label      string // left, right, center
	Confidence float64
}

var biasKeywords = []struct {
	label    string
	keywords []string
}{
	{"left", []string{"left-leaning", "left leaning", "leftist", "liberal", "progressive", "left"}},
	{"right", []string{"right-leaning", "right leaning", "rightist", "conservative", "right-wing", "right"}},
	{"center", []string{"centrist", "center", "centre", "neutral", "balanced", "unbiased"}},
}

// ParseBiasLabel extracts a bias label from free text. Keyword order
// matters: compound forms are checked before their bare stems. Unmatched
// text reports center, the least surprising default.
func ParseBiasLabel(text string) BiasResult {
	lower := strings.ToLower(text)

	for _, entry := range biasKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return BiasResult{Label: entry.label, Confidence: FallbackConfidence}
			}
		}
	}

	return BiasResult{Label: "center", Confidence: FallbackConfidence}
}

var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*10`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s+out\s+of\s+10`),
	regexp.MustCompile(`(?i)score[:\s]+(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)rating[:\s]+(\d+(?:\.\d+)?)`),
}

// ParseScore extracts a 0-10 numeric score from free text ("7/10",
// "7 out of 10", "score: 7"). Returns false when no pattern matches.
func ParseScore(text string) (float64, bool) {
	for _, pattern := range scorePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		score, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		if score < 0 {
			score = 0
		}
		if score > 10 {
			score = 10
		}
		return score, true
	}

	return 0, false
}

// SummarySections is a best-effort split of analysis text into summary tiers
type SummarySections struct {
	Executive    string
	Detailed     string
	Implications string
}

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// SplitSummary splits text at sentence boundaries: the first execN
// sentences become the executive summary, the next detailN the detailed
// summary, and the remainder the implications. Never fails; short inputs
// simply leave later sections empty.
func SplitSummary(text string, execN, detailN int) SummarySections {
	sentences := splitSentences(text)

	var sections SummarySections
	if len(sentences) == 0 {
		sections.Executive = strings.TrimSpace(text)
		return sections
	}

	if execN <= 0 {
		execN = 2
	}
	if detailN <= 0 {
		detailN = 5
	}

	take := func(from, n int) string {
		if from >= len(sentences) {
			return ""
		}
		to := from + n
		if to > len(sentences) {
			to = len(sentences)
		}
		return strings.TrimSpace(strings.Join(sentences[from:to], " "))
	}

	sections.Executive = take(0, execN)
	sections.Detailed = take(execN, detailN)
	if rest := execN + detailN; rest < len(sentences) {
		sections.Implications = strings.TrimSpace(strings.Join(sentences[rest:], " "))
	}

	return sections
}

func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}
