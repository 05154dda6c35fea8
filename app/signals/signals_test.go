package signals

import (
	"testing"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

func testMatchers() []database.Matcher {
	return []database.Matcher{
		{ID: 1, CategoryID: 1, Pattern: "politico.com", MatchType: "domain"},
		{ID: 2, CategoryID: 1, Pattern: "senate", MatchType: "keyword"},
		{ID: 3, CategoryID: 2, Pattern: "github.com", MatchType: "domain"},
		{ID: 4, CategoryID: 2, Pattern: "compiler", MatchType: "keyword"},
		{ID: 5, CategoryID: 1, Pattern: "satire", MatchType: "keyword", IsExclusion: true},
	}
}

func TestCompute_DomainHit(t *testing.T) {
	s := Compute("Senate Passes Bill", "The Senate passed the bill today.", "politico.com", testMatchers())

	if !s.DomainHits[1] {
		t.Error("Expected domain hit for category 1 on politico.com")
	}
	if s.DomainHits[2] {
		t.Error("Did not expect domain hit for category 2")
	}
}

func TestCompute_DomainSubstring(t *testing.T) {
	s := Compute("title", "text", "www.politico.com", testMatchers())

	if !s.DomainHits[1] {
		t.Error("Expected substring domain match on www.politico.com")
	}
}

func TestCompute_KeywordDensity(t *testing.T) {
	s := Compute("Senate Vote", "The senate will vote on the measure before the senate recess.", "example.com", testMatchers())

	if s.KeywordDensity[1] <= 0 {
		t.Error("Expected positive keyword density for category 1")
	}
	if s.KeywordDensity[2] != 0 {
		t.Error("Expected zero keyword density for category 2")
	}
	if s.Length == 0 {
		t.Error("Expected nonzero token count")
	}
}

func TestCompute_Exclusion(t *testing.T) {
	s := Compute("Satire roundup", "A satire piece about the senate.", "politico.com", testMatchers())

	if !s.Excluded[1] {
		t.Error("Expected exclusion matcher to fire for category 1")
	}
	if s.Alignment(1) != 0 {
		t.Errorf("Expected zero alignment for excluded category, got %f", s.Alignment(1))
	}
}

func TestAlignment_Bounds(t *testing.T) {
	s := Compute("Senate senate senate", "senate senate senate senate senate", "politico.com", testMatchers())

	alignment := s.Alignment(1)
	if alignment < 0 || alignment > 1 {
		t.Errorf("Alignment must stay in [0, 1], got %f", alignment)
	}
	// Domain hit plus saturated keyword boost
	if alignment != 1.0 {
		t.Errorf("Expected saturated alignment 1.0, got %f", alignment)
	}
}

func TestAlignment_NoSignals(t *testing.T) {
	s := Compute("Cooking tips", "How to bake bread at home.", "cooking.example.com", testMatchers())

	if s.Alignment(1) != 0 {
		t.Errorf("Expected zero alignment without signals, got %f", s.Alignment(1))
	}
	if s.HasAny(1) {
		t.Error("Expected no signals for category 1")
	}
}

func TestCountOccurrences_MultiWord(t *testing.T) {
	tokens := tokenize("the supreme court ruled on the supreme court case")
	counts := map[string]int{}
	for _, tok := range tokens {
		counts[tok]++
	}

	if got := countOccurrences(counts, tokens, "supreme court"); got != 2 {
		t.Errorf("Expected 2 occurrences of 'supreme court', got %d", got)
	}
}

func TestTokenize_Normalization(t *testing.T) {
	tokens := tokenize("Senate, Vote! (2024)")
	expected := []string{"senate", "vote", "2024"}
	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, tok := range tokens {
		if tok != expected[i] {
			t.Errorf("Token %d: expected %q, got %q", i, expected[i], tok)
		}
	}
}
