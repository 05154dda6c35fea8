package taxonomy

import (
	"github.com/loydmilligan/dailies-sub000/app/database"
)

// Snapshot is an immutable view of the classification configuration.
// A snapshot is built once per (re)load and never mutated, so in-flight
// resolutions always observe a consistent category/alias/action set.
type Snapshot struct {
	Categories []database.Category
	Matchers   []database.Matcher
	Aliases    []database.CategoryAlias

	categoriesByID map[int64]database.Category
	fallback       database.Category
	chains         map[int64][]ChainStep
}

// ChainStep is one resolved entry of a category's action chain
type ChainStep struct {
	Action         database.Action
	ExecutionOrder int
	Config         map[string]interface{}
}

// CategoryByID returns the category for the given id
func (s *Snapshot) CategoryByID(id int64) (database.Category, bool) {
	c, ok := s.categoriesByID[id]
	return c, ok
}

// FallbackCategory returns the single category marked as fallback
func (s *Snapshot) FallbackCategory() database.Category {
	return s.fallback
}

// ActionChain returns the ordered action chain for a category.
// An empty chain is valid and returns a nil slice.
func (s *Snapshot) ActionChain(categoryID int64) []ChainStep {
	return s.chains[categoryID]
}

// MatchersByType returns all matchers with the given match type
func (s *Snapshot) MatchersByType(matchType string) []database.Matcher {
	var out []database.Matcher
	for _, m := range s.Matchers {
		if m.MatchType == matchType {
			out = append(out, m)
		}
	}
	return out
}

// SeedFile is the YAML document seeding the taxonomy tables
type SeedFile struct {
	Actions    []SeedAction   `yaml:"actions"`
	Categories []SeedCategory `yaml:"categories"`
}

type SeedAction struct {
	Name    string `yaml:"name"`
	Handler string `yaml:"handler"`
}

type SeedCategory struct {
	Name     string        `yaml:"name"`
	Priority int           `yaml:"priority"`
	Fallback bool          `yaml:"fallback"`
	Matchers []SeedMatcher `yaml:"matchers"`
	Aliases  []SeedAlias   `yaml:"aliases"`
	Actions  []SeedChain   `yaml:"actions"`
}

type SeedMatcher struct {
	Type    string `yaml:"type"`
	Pattern string `yaml:"pattern"`
	Exclude bool   `yaml:"exclude"`
}

type SeedAlias struct {
	Label     string  `yaml:"label"`
	Threshold float64 `yaml:"threshold"`
}

type SeedChain struct {
	Name   string                 `yaml:"name"`
	Order  int                    `yaml:"order"`
	Config map[string]interface{} `yaml:"config"`
}
