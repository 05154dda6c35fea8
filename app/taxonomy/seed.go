package taxonomy

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

// Seed reads the taxonomy YAML file and upserts its contents into the
// database. Missing file is not an error: the taxonomy may already be
// seeded, or managed directly in the database.
func Seed(path string, repo database.TaxonomyRepository) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("Taxonomy seed file not found, skipping", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read taxonomy file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse taxonomy YAML: %w", err)
	}

	if err := validateSeed(&seed); err != nil {
		return err
	}

	actionIDs := make(map[string]int64, len(seed.Actions))
	for _, action := range seed.Actions {
		id, err := repo.UpsertAction(action.Name, action.Handler)
		if err != nil {
			return fmt.Errorf("failed to seed action '%s': %w", action.Name, err)
		}
		actionIDs[action.Name] = id
	}

	for _, category := range seed.Categories {
		categoryID, err := repo.UpsertCategory(category.Name, category.Priority, category.Fallback)
		if err != nil {
			return fmt.Errorf("failed to seed category '%s': %w", category.Name, err)
		}

		for _, matcher := range category.Matchers {
			if err := repo.UpsertMatcher(categoryID, matcher.Pattern, matcher.Type, matcher.Exclude); err != nil {
				return fmt.Errorf("failed to seed matcher '%s': %w", matcher.Pattern, err)
			}
		}

		for _, alias := range category.Aliases {
			threshold := alias.Threshold
			if threshold == 0 {
				threshold = 0.9
			}
			if err := repo.UpsertAlias(alias.Label, categoryID, threshold); err != nil {
				return fmt.Errorf("failed to seed alias '%s': %w", alias.Label, err)
			}
		}

		for _, chain := range category.Actions {
			actionID, ok := actionIDs[chain.Name]
			if !ok {
				return &ErrConfigurationInvalid{
					Reason: fmt.Sprintf("category '%s' references unknown action '%s'", category.Name, chain.Name),
				}
			}
			if err := repo.UpsertCategoryAction(categoryID, actionID, chain.Order, chain.Config); err != nil {
				return fmt.Errorf("failed to seed chain entry '%s': %w", chain.Name, err)
			}
		}
	}

	slog.Debug("Taxonomy seeded",
		"categories", len(seed.Categories),
		"actions", len(seed.Actions))

	return nil
}

func validateSeed(seed *SeedFile) error {
	fallbackCount := 0
	for _, category := range seed.Categories {
		if category.Name == "" {
			return &ErrConfigurationInvalid{Reason: "category name is required"}
		}
		if category.Fallback {
			fallbackCount++
		}

		seen := make(map[int]string, len(category.Actions))
		for _, chain := range category.Actions {
			if other, dup := seen[chain.Order]; dup {
				return &ErrConfigurationInvalid{
					Reason: fmt.Sprintf("category '%s' has duplicate execution order %d (%s, %s)",
						category.Name, chain.Order, other, chain.Name),
				}
			}
			seen[chain.Order] = chain.Name
		}

		for _, matcher := range category.Matchers {
			if matcher.Type != "domain" && matcher.Type != "keyword" {
				return &ErrConfigurationInvalid{
					Reason: fmt.Sprintf("category '%s' has invalid matcher type '%s'", category.Name, matcher.Type),
				}
			}
		}
	}

	if fallbackCount != 1 {
		return &ErrConfigurationInvalid{
			Reason: fmt.Sprintf("exactly one fallback category required, found %d", fallbackCount),
		}
	}

	for _, action := range seed.Actions {
		if action.Name == "" || action.Handler == "" {
			return &ErrConfigurationInvalid{Reason: "action name and handler are required"}
		}
	}

	return nil
}
