package actions

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/loydmilligan/dailies-sub000/app/database"
	"github.com/loydmilligan/dailies-sub000/app/taxonomy"
)

type stubTaxonomyRepo struct {
	categories []database.Category
	actions    []database.Action
	chains     []database.CategoryAction
}

func (s *stubTaxonomyRepo) GetActiveCategories() ([]database.Category, error) {
	return s.categories, nil
}
func (s *stubTaxonomyRepo) GetMatchers() ([]database.Matcher, error)      { return nil, nil }
func (s *stubTaxonomyRepo) GetAliases() ([]database.CategoryAlias, error) { return nil, nil }
func (s *stubTaxonomyRepo) GetActiveActions() ([]database.Action, error)  { return s.actions, nil }
func (s *stubTaxonomyRepo) GetCategoryActions() ([]database.CategoryAction, error) {
	return s.chains, nil
}
func (s *stubTaxonomyRepo) UpsertCategory(string, int, bool) (int64, error) { return 0, nil }
func (s *stubTaxonomyRepo) UpsertMatcher(int64, string, string, bool) error { return nil }
func (s *stubTaxonomyRepo) UpsertAlias(string, int64, float64) error        { return nil }
func (s *stubTaxonomyRepo) UpsertAction(string, string) (int64, error)      { return 0, nil }
func (s *stubTaxonomyRepo) UpsertCategoryAction(int64, int64, int, map[string]interface{}) error {
	return nil
}

type stubHandler struct {
	name    string
	payload map[string]interface{}
	err     error
	block   bool
	calls   int
}

func (h *stubHandler) Name() string { return h.name }

func (h *stubHandler) Execute(ctx context.Context, item database.ContentItem, config map[string]interface{}) (map[string]interface{}, error) {
	h.calls++
	if h.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return h.payload, h.err
}

type stubContentRepo struct {
	merged map[string]map[string]interface{}
}

func (s *stubContentRepo) StoreItem(database.ContentItem) error            { return nil }
func (s *stubContentRepo) GetItem(string) (*database.ContentItem, error)   { return nil, nil }
func (s *stubContentRepo) GetItemByHash(string) (*database.ContentItem, error) {
	return nil, nil
}
func (s *stubContentRepo) GetItems(string, *int64, int) ([]database.ContentItem, error) {
	return nil, nil
}
func (s *stubContentRepo) GetItemCount() (int, error)               { return 0, nil }
func (s *stubContentRepo) GetStatusCounts() (map[string]int, error) { return nil, nil }
func (s *stubContentRepo) UpdateClassification(string, int64, float64, string, bool) error {
	return nil
}
func (s *stubContentRepo) UpdateStatus(string, string) error { return nil }

func (s *stubContentRepo) MergeMetadata(id string, metadata map[string]interface{}) error {
	if s.merged == nil {
		s.merged = map[string]map[string]interface{}{}
	}
	if s.merged[id] == nil {
		s.merged[id] = map[string]interface{}{}
	}
	for k, v := range metadata {
		s.merged[id][k] = v
	}
	return nil
}

// buildExecutor wires an executor over a taxonomy where category 1 runs the
// given handlers in registration order.
func buildExecutor(t *testing.T, contentRepo database.ContentRepository, handlers ...*stubHandler) *Executor {
	t.Helper()

	repo := &stubTaxonomyRepo{
		categories: []database.Category{
			{ID: 1, Name: "Technology", Priority: 1, IsActive: true},
			{ID: 2, Name: "General", Priority: 99, IsActive: true, IsFallback: true},
		},
	}

	registry := NewRegistry()
	for i, h := range handlers {
		if err := registry.Register(h); err != nil {
			t.Fatalf("Register(%s): %v", h.name, err)
		}
		actionID := int64(i + 1)
		repo.actions = append(repo.actions, database.Action{
			ID: actionID, Name: h.name, Handler: h.name, IsActive: true,
		})
		repo.chains = append(repo.chains, database.CategoryAction{
			CategoryID: 1, ActionID: actionID, ExecutionOrder: i + 1,
		})
	}

	cache := taxonomy.NewCache(repo, registry.Names())
	if err := cache.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	return NewExecutor(registry, cache, contentRepo, nil)
}

func testItem() database.ContentItem {
	return database.ContentItem{
		ID:           "item-1",
		Title:        "Quarterly results",
		RawText:      "Revenue grew modestly this quarter.",
		SourceDomain: "example.com",
	}
}

func TestExecuteActionsForCategoryEmptyChain(t *testing.T) {
	executor := buildExecutor(t, nil)

	// category 2 has no configured actions
	result, err := executor.ExecuteActionsForCategory(context.Background(), testItem(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 || result.Executed != 0 || result.Errors != 0 {
		t.Errorf("empty chain: got total=%d executed=%d errors=%d", result.Total, result.Executed, result.Errors)
	}
}

func TestExecuteActionsForCategoryFailureIsolation(t *testing.T) {
	ok1 := &stubHandler{name: "bias", payload: map[string]interface{}{"bias_label": "center"}}
	failing := &stubHandler{name: "quality", err: fmt.Errorf("provider unavailable")}
	ok2 := &stubHandler{name: "summary", payload: map[string]interface{}{"summary_executive": "short"}}

	repo := &stubContentRepo{}
	executor := buildExecutor(t, repo, ok1, failing, ok2)

	result, err := executor.ExecuteActionsForCategory(context.Background(), testItem(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Executed != 3 {
		t.Errorf("expected all 3 actions executed, got %d", result.Executed)
	}
	if result.Errors != 1 {
		t.Errorf("expected exactly 1 error, got %d", result.Errors)
	}
	if !result.Results["bias"].Success || !result.Results["summary"].Success {
		t.Error("expected surviving actions to report success")
	}
	if result.Results["quality"].Success {
		t.Error("expected failing action to report failure")
	}
	if !strings.Contains(result.Results["quality"].Error, "provider unavailable") {
		t.Errorf("expected handler error to be recorded, got %q", result.Results["quality"].Error)
	}
	if ok2.calls != 1 {
		t.Error("expected pipeline to continue past the failure")
	}

	merged := repo.merged["item-1"]
	if merged["bias_label"] != "center" || merged["summary_executive"] != "short" {
		t.Errorf("expected successful payloads merged into metadata, got %v", merged)
	}
	if _, ok := merged["quality_score"]; ok {
		t.Error("failing action must not contribute metadata")
	}
}

func TestExecuteActionsForCategoryTimeoutIsolation(t *testing.T) {
	blocking := &stubHandler{name: "slow", block: true}
	ok := &stubHandler{name: "fast", payload: map[string]interface{}{"done": true}}

	executor := buildExecutor(t, nil, blocking, ok)

	// the parent deadline fires long before the per-action limit, which
	// lets the test exercise the timeout path without waiting it out
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := executor.ExecuteActionsForCategory(ctx, testItem(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Results["slow"].Success {
		t.Error("expected timed-out action to report failure")
	}
	if result.Results["slow"].Error == "" {
		t.Error("expected timeout to be recorded as the action error")
	}
	if result.Errors == 0 {
		t.Error("expected timed-out action counted in errors")
	}
	if result.Executed != 2 {
		t.Errorf("expected pipeline to run all actions despite the timeout, got %d", result.Executed)
	}
}

func TestExecuteActionsForCategoryMissingHandler(t *testing.T) {
	ok := &stubHandler{name: "bias", payload: map[string]interface{}{"bias_label": "left"}}

	repo := &stubTaxonomyRepo{
		categories: []database.Category{
			{ID: 1, Name: "Technology", Priority: 1, IsActive: true},
			{ID: 2, Name: "General", Priority: 99, IsActive: true, IsFallback: true},
		},
		actions: []database.Action{
			{ID: 1, Name: "bias", Handler: "bias", IsActive: true},
			{ID: 2, Name: "ghost", Handler: "ghost", IsActive: true},
		},
		chains: []database.CategoryAction{
			{CategoryID: 1, ActionID: 1, ExecutionOrder: 1},
			{CategoryID: 1, ActionID: 2, ExecutionOrder: 2},
		},
	}

	registry := NewRegistry()
	if err := registry.Register(ok); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// validate against a superset of handlers, then drop one: this models
	// a registry/taxonomy drift that load-time validation cannot catch
	cache := taxonomy.NewCache(repo, map[string]bool{"bias": true, "ghost": true})
	if err := cache.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	executor := NewExecutor(registry, cache, nil, nil)
	result, err := executor.ExecuteActionsForCategory(context.Background(), testItem(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Results["ghost"].Error, "processor not found: ghost") {
		t.Errorf("expected processor-not-found error, got %q", result.Results["ghost"].Error)
	}
	if result.Errors != 1 || !result.Results["bias"].Success {
		t.Errorf("expected one error and one success, got errors=%d", result.Errors)
	}
}

func TestRegistryRejectsDuplicatesAndEmptyNames(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(&stubHandler{name: "bias"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(&stubHandler{name: "bias"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if err := registry.Register(&stubHandler{name: ""}); err == nil {
		t.Error("expected empty handler name to fail")
	}

	if _, ok := registry.Resolve("bias"); !ok {
		t.Error("expected registered handler to resolve")
	}
	if _, ok := registry.Resolve("missing"); ok {
		t.Error("expected unknown handler not to resolve")
	}
	if names := registry.Names(); !names["bias"] || len(names) != 1 {
		t.Errorf("unexpected Names(): %v", names)
	}
}
