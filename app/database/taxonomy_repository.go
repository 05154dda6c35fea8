package database

import (
	"encoding/json"
	"fmt"
)

var _ TaxonomyRepository = (*TaxonomyRepositoryImpl)(nil)

type TaxonomyRepositoryImpl struct {
	db *DB
}

func NewTaxonomyRepository(db *DB) *TaxonomyRepositoryImpl {
	return &TaxonomyRepositoryImpl{db: db}
}

func (r *TaxonomyRepositoryImpl) GetActiveCategories() ([]Category, error) {
	rows, err := r.db.Query(`
		SELECT id, name, priority, is_active, is_fallback
		FROM categories
		WHERE is_active = 1
		ORDER BY priority DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Priority, &c.IsActive, &c.IsFallback); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

func (r *TaxonomyRepositoryImpl) GetMatchers() ([]Matcher, error) {
	rows, err := r.db.Query(`
		SELECT m.id, m.category_id, m.pattern, m.match_type, m.is_exclusion
		FROM matchers m
		JOIN categories c ON c.id = m.category_id
		WHERE c.is_active = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query matchers: %w", err)
	}
	defer rows.Close()

	var matchers []Matcher
	for rows.Next() {
		var m Matcher
		if err := rows.Scan(&m.ID, &m.CategoryID, &m.Pattern, &m.MatchType, &m.IsExclusion); err != nil {
			return nil, fmt.Errorf("failed to scan matcher: %w", err)
		}
		matchers = append(matchers, m)
	}

	return matchers, rows.Err()
}

func (r *TaxonomyRepositoryImpl) GetAliases() ([]CategoryAlias, error) {
	rows, err := r.db.Query(`
		SELECT a.id, a.alias, a.category_id, a.confidence_threshold
		FROM category_aliases a
		JOIN categories c ON c.id = a.category_id
		WHERE c.is_active = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()

	var aliases []CategoryAlias
	for rows.Next() {
		var a CategoryAlias
		if err := rows.Scan(&a.ID, &a.Alias, &a.CategoryID, &a.ConfidenceThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}

	return aliases, rows.Err()
}

func (r *TaxonomyRepositoryImpl) GetActiveActions() ([]Action, error) {
	rows, err := r.db.Query(`
		SELECT id, name, handler, is_active
		FROM actions
		WHERE is_active = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.Name, &a.Handler, &a.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

func (r *TaxonomyRepositoryImpl) GetCategoryActions() ([]CategoryAction, error) {
	rows, err := r.db.Query(`
		SELECT id, category_id, action_id, execution_order, config
		FROM category_actions
		ORDER BY category_id, execution_order ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category actions: %w", err)
	}
	defer rows.Close()

	var categoryActions []CategoryAction
	for rows.Next() {
		var ca CategoryAction
		var config string
		if err := rows.Scan(&ca.ID, &ca.CategoryID, &ca.ActionID, &ca.ExecutionOrder, &config); err != nil {
			return nil, fmt.Errorf("failed to scan category action: %w", err)
		}
		if config != "" {
			if err := json.Unmarshal([]byte(config), &ca.Config); err != nil {
				ca.Config = map[string]interface{}{}
			}
		}
		categoryActions = append(categoryActions, ca)
	}

	return categoryActions, rows.Err()
}

func (r *TaxonomyRepositoryImpl) UpsertCategory(name string, priority int, isFallback bool) (int64, error) {
	var id int64
	err := r.db.QueryRow(`
		INSERT INTO categories (name, priority, is_fallback)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			priority = EXCLUDED.priority,
			is_fallback = EXCLUDED.is_fallback
		RETURNING id
	`, name, priority, isFallback).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to upsert category: %w", err)
	}

	return id, nil
}

func (r *TaxonomyRepositoryImpl) UpsertMatcher(categoryID int64, pattern, matchType string, isExclusion bool) error {
	// Matchers have no natural key; replace by (category, pattern, type)
	_, err := r.db.Exec(`
		DELETE FROM matchers WHERE category_id = $1 AND pattern = $2 AND match_type = $3
	`, categoryID, pattern, matchType)
	if err != nil {
		return fmt.Errorf("failed to replace matcher: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO matchers (category_id, pattern, match_type, is_exclusion)
		VALUES ($1, $2, $3, $4)
	`, categoryID, pattern, matchType, isExclusion)
	if err != nil {
		return fmt.Errorf("failed to upsert matcher: %w", err)
	}

	return nil
}

func (r *TaxonomyRepositoryImpl) UpsertAlias(alias string, categoryID int64, threshold float64) error {
	_, err := r.db.Exec(`
		INSERT INTO category_aliases (alias, category_id, confidence_threshold)
		VALUES ($1, $2, $3)
		ON CONFLICT (alias) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			confidence_threshold = EXCLUDED.confidence_threshold
	`, alias, categoryID, threshold)

	if err != nil {
		return fmt.Errorf("failed to upsert alias: %w", err)
	}

	return nil
}

func (r *TaxonomyRepositoryImpl) UpsertAction(name, handler string) (int64, error) {
	var id int64
	err := r.db.QueryRow(`
		INSERT INTO actions (name, handler)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			handler = EXCLUDED.handler
		RETURNING id
	`, name, handler).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to upsert action: %w", err)
	}

	return id, nil
}

func (r *TaxonomyRepositoryImpl) UpsertCategoryAction(categoryID, actionID int64, executionOrder int, config map[string]interface{}) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}
	if config == nil {
		data = []byte("{}")
	}

	_, err = r.db.Exec(`
		INSERT INTO category_actions (category_id, action_id, execution_order, config)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (category_id, action_id) DO UPDATE SET
			execution_order = EXCLUDED.execution_order,
			config = EXCLUDED.config
	`, categoryID, actionID, executionOrder, string(data))

	if err != nil {
		return fmt.Errorf("failed to upsert category action: %w", err)
	}

	return nil
}
