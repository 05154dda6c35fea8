package classify

import (
	"context"
	"testing"

	"github.com/loydmilligan/dailies-sub000/app/database"
	"github.com/loydmilligan/dailies-sub000/app/provider"
	"github.com/loydmilligan/dailies-sub000/app/taxonomy"
)

type stubTaxonomyRepo struct {
	categories []database.Category
	matchers   []database.Matcher
	aliases    []database.CategoryAlias
}

func (s *stubTaxonomyRepo) GetActiveCategories() ([]database.Category, error) {
	return s.categories, nil
}

func (s *stubTaxonomyRepo) GetMatchers() ([]database.Matcher, error) {
	return s.matchers, nil
}

func (s *stubTaxonomyRepo) GetAliases() ([]database.CategoryAlias, error) {
	return s.aliases, nil
}

func (s *stubTaxonomyRepo) GetActiveActions() ([]database.Action, error) {
	return nil, nil
}

func (s *stubTaxonomyRepo) GetCategoryActions() ([]database.CategoryAction, error) {
	return nil, nil
}

func (s *stubTaxonomyRepo) UpsertCategory(string, int, bool) (int64, error) { return 0, nil }

func (s *stubTaxonomyRepo) UpsertMatcher(int64, string, string, bool) error { return nil }

func (s *stubTaxonomyRepo) UpsertAlias(string, int64, float64) error { return nil }

func (s *stubTaxonomyRepo) UpsertAction(string, string) (int64, error) { return 0, nil }

func (s *stubTaxonomyRepo) UpsertCategoryAction(int64, int64, int, map[string]interface{}) error {
	return nil
}

// testTaxonomy builds a loaded taxonomy cache with a politics category, a
// technology category and a fallback, mirroring the canonical test scenario.
func testTaxonomy(t *testing.T) *taxonomy.Cache {
	t.Helper()

	repo := &stubTaxonomyRepo{
		categories: []database.Category{
			{ID: 1, Name: "US_Politics_News", Priority: 100, IsActive: true},
			{ID: 2, Name: "Technology", Priority: 50, IsActive: true},
			{ID: 3, Name: "General", Priority: 0, IsActive: true, IsFallback: true},
		},
		matchers: []database.Matcher{
			{ID: 1, CategoryID: 1, Pattern: "politico.com", MatchType: "domain"},
			{ID: 2, CategoryID: 1, Pattern: "senate", MatchType: "keyword"},
			{ID: 3, CategoryID: 2, Pattern: "github.com", MatchType: "domain"},
		},
		aliases: []database.CategoryAlias{
			{ID: 1, Alias: "US Politics", CategoryID: 1, ConfidenceThreshold: 0.9},
			{ID: 2, Alias: "Tech", CategoryID: 2, ConfidenceThreshold: 0.9},
		},
	}

	cache := taxonomy.NewCache(repo, map[string]bool{})
	if err := cache.Reload(); err != nil {
		t.Fatalf("Failed to load test taxonomy: %v", err)
	}
	return cache
}

// stubProvider returns canned classifications for orchestrator tests
type stubProvider struct {
	name      string
	label     string
	hint      float64
	err       error
	available bool
	calls     int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Available() bool { return s.available }

func (s *stubProvider) Classify(ctx context.Context, prompt string) (*provider.ClassifyResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &provider.ClassifyResult{
		ProviderName:   s.name,
		RawLabel:       s.label,
		RawResponse:    s.label,
		ConfidenceHint: s.hint,
	}, nil
}

func (s *stubProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.label, nil
}

// testItem is the canonical politics content item
func testItem() database.ContentItem {
	return database.ContentItem{
		ID:           "item-1",
		Title:        "Senate Passes Bill",
		RawText:      "The Senate passed the infrastructure bill today after a long debate.",
		URL:          "https://politico.com/senate-bill",
		SourceDomain: "politico.com",
		ContentHash:  "hash-1",
		ContentType:  "article",
	}
}
