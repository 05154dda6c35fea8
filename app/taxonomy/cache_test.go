package taxonomy

import (
	"errors"
	"testing"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

type stubTaxonomyRepo struct {
	categories      []database.Category
	matchers        []database.Matcher
	aliases         []database.CategoryAlias
	actions         []database.Action
	categoryActions []database.CategoryAction
	failLoad        bool
}

func (s *stubTaxonomyRepo) GetActiveCategories() ([]database.Category, error) {
	if s.failLoad {
		return nil, errors.New("database unavailable")
	}
	return s.categories, nil
}

func (s *stubTaxonomyRepo) GetMatchers() ([]database.Matcher, error) {
	return s.matchers, nil
}

func (s *stubTaxonomyRepo) GetAliases() ([]database.CategoryAlias, error) {
	return s.aliases, nil
}

func (s *stubTaxonomyRepo) GetActiveActions() ([]database.Action, error) {
	return s.actions, nil
}

func (s *stubTaxonomyRepo) GetCategoryActions() ([]database.CategoryAction, error) {
	return s.categoryActions, nil
}

func (s *stubTaxonomyRepo) UpsertCategory(name string, priority int, isFallback bool) (int64, error) {
	return 0, nil
}

func (s *stubTaxonomyRepo) UpsertMatcher(categoryID int64, pattern, matchType string, isExclusion bool) error {
	return nil
}

func (s *stubTaxonomyRepo) UpsertAlias(alias string, categoryID int64, threshold float64) error {
	return nil
}

func (s *stubTaxonomyRepo) UpsertAction(name, handler string) (int64, error) {
	return 0, nil
}

func (s *stubTaxonomyRepo) UpsertCategoryAction(categoryID, actionID int64, executionOrder int, config map[string]interface{}) error {
	return nil
}

func validRepo() *stubTaxonomyRepo {
	return &stubTaxonomyRepo{
		categories: []database.Category{
			{ID: 1, Name: "US_Politics_News", Priority: 100, IsActive: true},
			{ID: 2, Name: "Technology", Priority: 50, IsActive: true},
			{ID: 3, Name: "General", Priority: 0, IsActive: true, IsFallback: true},
		},
		matchers: []database.Matcher{
			{ID: 1, CategoryID: 1, Pattern: "politico.com", MatchType: "domain"},
			{ID: 2, CategoryID: 1, Pattern: "senate", MatchType: "keyword"},
		},
		aliases: []database.CategoryAlias{
			{ID: 1, Alias: "US Politics", CategoryID: 1, ConfidenceThreshold: 0.9},
		},
		actions: []database.Action{
			{ID: 1, Name: "bias_analysis", Handler: "bias_analyzer", IsActive: true},
			{ID: 2, Name: "summary", Handler: "summarizer", IsActive: true},
		},
		categoryActions: []database.CategoryAction{
			{ID: 1, CategoryID: 1, ActionID: 2, ExecutionOrder: 20},
			{ID: 2, CategoryID: 1, ActionID: 1, ExecutionOrder: 10},
		},
	}
}

func testHandlers() map[string]bool {
	return map[string]bool{
		"bias_analyzer": true,
		"summarizer":    true,
	}
}

func TestCache_Reload(t *testing.T) {
	cache := NewCache(validRepo(), testHandlers())

	if err := cache.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	snapshot := cache.Current()
	if len(snapshot.Categories) != 3 {
		t.Errorf("Expected 3 categories, got %d", len(snapshot.Categories))
	}
	if snapshot.FallbackCategory().Name != "General" {
		t.Errorf("Expected fallback 'General', got '%s'", snapshot.FallbackCategory().Name)
	}
}

func TestCache_Reload_ChainSortedByExecutionOrder(t *testing.T) {
	cache := NewCache(validRepo(), testHandlers())

	if err := cache.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	chain := cache.Current().ActionChain(1)
	if len(chain) != 2 {
		t.Fatalf("Expected 2 chain steps, got %d", len(chain))
	}
	if chain[0].Action.Name != "bias_analysis" {
		t.Errorf("Expected 'bias_analysis' first (order 10), got '%s'", chain[0].Action.Name)
	}
	if chain[1].Action.Name != "summary" {
		t.Errorf("Expected 'summary' second (order 20), got '%s'", chain[1].Action.Name)
	}
}

func TestCache_Reload_EmptyChainAllowed(t *testing.T) {
	cache := NewCache(validRepo(), testHandlers())

	if err := cache.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if chain := cache.Current().ActionChain(2); len(chain) != 0 {
		t.Errorf("Expected empty chain for category 2, got %d steps", len(chain))
	}
}

func TestCache_Reload_MissingFallbackRejected(t *testing.T) {
	repo := validRepo()
	repo.categories[2].IsFallback = false
	cache := NewCache(repo, testHandlers())

	err := cache.Reload()
	if err == nil {
		t.Fatal("Expected error for missing fallback category")
	}
	var invalid *ErrConfigurationInvalid
	if !errors.As(err, &invalid) {
		t.Errorf("Expected ErrConfigurationInvalid, got %T", err)
	}
}

func TestCache_Reload_MultipleFallbacksRejected(t *testing.T) {
	repo := validRepo()
	repo.categories[0].IsFallback = true
	cache := NewCache(repo, testHandlers())

	if err := cache.Reload(); err == nil {
		t.Fatal("Expected error for multiple fallback categories")
	}
}

func TestCache_Reload_DuplicateExecutionOrderRejected(t *testing.T) {
	repo := validRepo()
	repo.categoryActions[0].ExecutionOrder = 10
	cache := NewCache(repo, testHandlers())

	err := cache.Reload()
	if err == nil {
		t.Fatal("Expected error for duplicate execution order")
	}
	var invalid *ErrConfigurationInvalid
	if !errors.As(err, &invalid) {
		t.Errorf("Expected ErrConfigurationInvalid, got %T", err)
	}
}

func TestCache_Reload_UnknownHandlerRejected(t *testing.T) {
	repo := validRepo()
	repo.actions[0].Handler = "missing_handler"
	cache := NewCache(repo, testHandlers())

	if err := cache.Reload(); err == nil {
		t.Fatal("Expected error for unknown handler name")
	}
}

func TestCache_Reload_KeepsPreviousSnapshotOnFailure(t *testing.T) {
	repo := validRepo()
	cache := NewCache(repo, testHandlers())

	if err := cache.Reload(); err != nil {
		t.Fatalf("Initial reload failed: %v", err)
	}

	repo.failLoad = true
	if err := cache.Reload(); err == nil {
		t.Fatal("Expected reload to fail")
	}

	// Previous snapshot must survive the failed reload
	snapshot := cache.Current()
	if len(snapshot.Categories) != 3 {
		t.Errorf("Expected previous snapshot to remain, got %d categories", len(snapshot.Categories))
	}
}

func TestValidateSeed(t *testing.T) {
	seed := &SeedFile{
		Actions: []SeedAction{
			{Name: "bias_analysis", Handler: "bias_analyzer"},
		},
		Categories: []SeedCategory{
			{Name: "General", Fallback: true},
			{
				Name: "US_Politics_News",
				Actions: []SeedChain{
					{Name: "bias_analysis", Order: 10},
					{Name: "bias_analysis", Order: 10},
				},
			},
		},
	}

	if err := validateSeed(seed); err == nil {
		t.Error("Expected error for duplicate execution order in seed")
	}

	seed.Categories[1].Actions = seed.Categories[1].Actions[:1]
	if err := validateSeed(seed); err != nil {
		t.Errorf("Expected valid seed, got error: %v", err)
	}
}
