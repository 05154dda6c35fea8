package taxonomy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

// ErrConfigurationInvalid wraps validation failures that reject a reload
type ErrConfigurationInvalid struct {
	Reason string
}

func (e *ErrConfigurationInvalid) Error() string {
	return fmt.Sprintf("configuration invalid: %s", e.Reason)
}

// Cache holds the current taxonomy snapshot. Reload builds and validates a
// fresh snapshot from the repository and swaps it atomically; a failed
// reload keeps the previous snapshot in place.
type Cache struct {
	repo     database.TaxonomyRepository
	handlers map[string]bool // registered handler names, fixed at startup
	mu       sync.RWMutex
	snapshot *Snapshot
}

func NewCache(repo database.TaxonomyRepository, handlers map[string]bool) *Cache {
	return &Cache{
		repo:     repo,
		handlers: handlers,
	}
}

// Current returns the active snapshot. Panics if Reload was never called;
// main loads the taxonomy before starting any worker.
func (c *Cache) Current() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		panic("taxonomy not loaded - call Reload() first")
	}
	return c.snapshot
}

// Reload loads, validates and atomically swaps the taxonomy snapshot
func (c *Cache) Reload() error {
	snapshot, err := c.build()
	if err != nil {
		return err
	}

	if err := c.validate(snapshot); err != nil {
		return err
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	slog.Debug("Taxonomy snapshot loaded",
		"categories", len(snapshot.Categories),
		"matchers", len(snapshot.Matchers),
		"aliases", len(snapshot.Aliases))

	return nil
}

func (c *Cache) build() (*Snapshot, error) {
	categories, err := c.repo.GetActiveCategories()
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	matchers, err := c.repo.GetMatchers()
	if err != nil {
		return nil, fmt.Errorf("failed to load matchers: %w", err)
	}

	aliases, err := c.repo.GetAliases()
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}

	actions, err := c.repo.GetActiveActions()
	if err != nil {
		return nil, fmt.Errorf("failed to load actions: %w", err)
	}

	categoryActions, err := c.repo.GetCategoryActions()
	if err != nil {
		return nil, fmt.Errorf("failed to load category actions: %w", err)
	}

	snapshot := &Snapshot{
		Categories:     categories,
		Matchers:       matchers,
		Aliases:        aliases,
		categoriesByID: make(map[int64]database.Category, len(categories)),
		chains:         make(map[int64][]ChainStep),
	}

	for _, category := range categories {
		snapshot.categoriesByID[category.ID] = category
	}

	actionsByID := make(map[int64]database.Action, len(actions))
	for _, action := range actions {
		actionsByID[action.ID] = action
	}

	for _, ca := range categoryActions {
		action, ok := actionsByID[ca.ActionID]
		if !ok {
			// Inactive action referenced by a chain; skip it
			continue
		}
		snapshot.chains[ca.CategoryID] = append(snapshot.chains[ca.CategoryID], ChainStep{
			Action:         action,
			ExecutionOrder: ca.ExecutionOrder,
			Config:         ca.Config,
		})
	}

	for categoryID := range snapshot.chains {
		chain := snapshot.chains[categoryID]
		sort.SliceStable(chain, func(i, j int) bool {
			return chain[i].ExecutionOrder < chain[j].ExecutionOrder
		})
		snapshot.chains[categoryID] = chain
	}

	return snapshot, nil
}

func (c *Cache) validate(snapshot *Snapshot) error {
	fallbackCount := 0
	for _, category := range snapshot.Categories {
		if category.IsFallback {
			snapshot.fallback = category
			fallbackCount++
		}
	}
	if fallbackCount != 1 {
		return &ErrConfigurationInvalid{
			Reason: fmt.Sprintf("exactly one fallback category required, found %d", fallbackCount),
		}
	}

	for categoryID, chain := range snapshot.chains {
		seen := make(map[int]string, len(chain))
		for _, step := range chain {
			if other, dup := seen[step.ExecutionOrder]; dup {
				return &ErrConfigurationInvalid{
					Reason: fmt.Sprintf("duplicate execution order %d in category %d (%s, %s)",
						step.ExecutionOrder, categoryID, other, step.Action.Name),
				}
			}
			seen[step.ExecutionOrder] = step.Action.Name

			if !c.handlers[step.Action.Handler] {
				return &ErrConfigurationInvalid{
					Reason: fmt.Sprintf("unknown handler '%s' for action '%s'",
						step.Action.Handler, step.Action.Name),
				}
			}
		}
	}

	for _, m := range snapshot.Matchers {
		if m.MatchType != "domain" && m.MatchType != "keyword" {
			return &ErrConfigurationInvalid{
				Reason: fmt.Sprintf("invalid matcher type '%s'", m.MatchType),
			}
		}
	}

	return nil
}
