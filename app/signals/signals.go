// Package signals computes per-category content signals used to adjust
// classification confidence. Everything here is a pure function of the
// content text and source domain: no I/O, safe to call from tests and from
// concurrent pipeline workers.
package signals

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

// ContentSignals holds the precomputed signals for one content item
type ContentSignals struct {
	// Length is the token count of the content text
	Length int

	// DomainHits marks categories whose domain matcher pattern is contained
	// in the item's source domain
	DomainHits map[int64]bool

	// KeywordDensity is the fraction of content tokens matching a
	// category's keyword matchers, per category
	KeywordDensity map[int64]float64

	// Excluded marks categories where an exclusion matcher fired
	Excluded map[int64]bool
}

// Compute derives signals for the given content against the matcher set
func Compute(title, text, sourceDomain string, matchers []database.Matcher) *ContentSignals {
	tokens := tokenize(title + " " + text)

	signals := &ContentSignals{
		Length:         len(tokens),
		DomainHits:     make(map[int64]bool),
		KeywordDensity: make(map[int64]float64),
		Excluded:       make(map[int64]bool),
	}

	domain := strings.ToLower(strings.TrimSpace(sourceDomain))

	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}

	for _, m := range matchers {
		pattern := strings.ToLower(strings.TrimSpace(m.Pattern))
		if pattern == "" {
			continue
		}

		switch m.MatchType {
		case "domain":
			if domain == "" || !strings.Contains(domain, pattern) {
				continue
			}
			if m.IsExclusion {
				signals.Excluded[m.CategoryID] = true
			} else {
				signals.DomainHits[m.CategoryID] = true
			}

		case "keyword":
			occurrences := countOccurrences(counts, tokens, pattern)
			if occurrences == 0 {
				continue
			}
			if m.IsExclusion {
				signals.Excluded[m.CategoryID] = true
				continue
			}
			if len(tokens) > 0 {
				signals.KeywordDensity[m.CategoryID] += float64(occurrences) / float64(len(tokens))
			}
		}
	}

	return signals
}

// Alignment scores how strongly the signals support the given category,
// in [0, 1]. A domain hit is the strongest single signal; keyword density
// adds on top. Exclusion matchers zero the score.
func (s *ContentSignals) Alignment(categoryID int64) float64 {
	if s.Excluded[categoryID] {
		return 0
	}

	score := 0.0
	if s.DomainHits[categoryID] {
		score += 0.6
	}

	if density := s.KeywordDensity[categoryID]; density > 0 {
		boost := density * 20
		if boost > 0.4 {
			boost = 0.4
		}
		score += boost
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// HasAny reports whether any positive signal exists for the category
func (s *ContentSignals) HasAny(categoryID int64) bool {
	return s.DomainHits[categoryID] || s.KeywordDensity[categoryID] > 0
}

func tokenize(text string) []string {
	normalized := norm.NFC.String(strings.ToLower(text))
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// countOccurrences counts how often the pattern appears in the token
// stream; multi-word patterns are matched as a token sequence.
func countOccurrences(counts map[string]int, tokens []string, pattern string) int {
	parts := strings.Fields(pattern)
	if len(parts) == 0 {
		return 0
	}
	if len(parts) == 1 {
		return counts[parts[0]]
	}

	occurrences := 0
	for i := 0; i+len(parts) <= len(tokens); i++ {
		match := true
		for j, part := range parts {
			if tokens[i+j] != part {
				match = false
				break
			}
		}
		if match {
			occurrences++
		}
	}
	return occurrences
}
