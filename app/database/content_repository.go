package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

var _ ContentRepository = (*ContentRepositoryImpl)(nil)

type ContentRepositoryImpl struct {
	db *DB
}

func NewContentRepository(db *DB) *ContentRepositoryImpl {
	return &ContentRepositoryImpl{db: db}
}

func (r *ContentRepositoryImpl) StoreItem(item ContentItem) error {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if item.Metadata == nil {
		metadata = []byte("{}")
	}

	_, err = r.db.Exec(`
		INSERT INTO content_items (
			id, url, title, raw_text, source_domain, content_type,
			content_hash, status, needs_manual_review, metadata, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, item.ID, item.URL, item.Title, item.RawText, item.SourceDomain,
		item.ContentType, item.ContentHash, item.Status,
		item.NeedsManualReview, string(metadata), item.CapturedAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to store content item: %w", err)
	}

	return nil
}

func (r *ContentRepositoryImpl) GetItem(id string) (*ContentItem, error) {
	row := r.db.QueryRow(selectItemQuery+` WHERE id = $1`, id)
	return scanItem(row)
}

func (r *ContentRepositoryImpl) GetItemByHash(contentHash string) (*ContentItem, error) {
	row := r.db.QueryRow(selectItemQuery+` WHERE content_hash = $1`, contentHash)
	return scanItem(row)
}

func (r *ContentRepositoryImpl) GetItems(status string, categoryID *int64, limit int) ([]ContentItem, error) {
	query := selectItemQuery + ` WHERE 1 = 1`
	args := []interface{}{}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if categoryID != nil {
		args = append(args, *categoryID)
		query += fmt.Sprintf(` AND category_id = $%d`, len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY captured_at DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content items: %w", err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		item, err := scanItemRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

func (r *ContentRepositoryImpl) GetItemCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM content_items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count content items: %w", err)
	}
	return count, nil
}

func (r *ContentRepositoryImpl) GetStatusCounts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM content_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

func (r *ContentRepositoryImpl) UpdateClassification(id string, categoryID int64, confidence float64, matchType string, needsManualReview bool) error {
	status := StatusClassified
	if needsManualReview {
		status = StatusManualReview
	}

	_, err := r.db.Exec(`
		UPDATE content_items
		SET category_id = $2, confidence = $3, match_type = $4,
			needs_manual_review = $5, status = $6,
			classified_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, categoryID, confidence, matchType, needsManualReview, status)

	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}

	return nil
}

func (r *ContentRepositoryImpl) UpdateStatus(id string, status string) error {
	_, err := r.db.Exec(`
		UPDATE content_items
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, status)

	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	return nil
}

// MergeMetadata merges the given keys into the item's stored metadata,
// preserving keys written by earlier actions.
func (r *ContentRepositoryImpl) MergeMetadata(id string, metadata map[string]interface{}) error {
	item, err := r.GetItem(id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("content item '%s' not found", id)
	}

	merged := item.Metadata
	if merged == nil {
		merged = make(map[string]interface{})
	}
	for k, v := range metadata {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE content_items
		SET metadata = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, string(data))

	if err != nil {
		return fmt.Errorf("failed to merge metadata: %w", err)
	}

	return nil
}

const selectItemQuery = `
	SELECT id, url, title, raw_text, source_domain, content_type,
		content_hash, category_id, confidence, match_type, status,
		needs_manual_review, metadata, captured_at, classified_at,
		created_at, updated_at
	FROM content_items`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row *sql.Row) (*ContentItem, error) {
	item, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

func scanItemRows(rows *sql.Rows) (*ContentItem, error) {
	return scanRow(rows)
}

func scanRow(s rowScanner) (*ContentItem, error) {
	var item ContentItem
	var categoryID sql.NullInt64
	var confidence sql.NullFloat64
	var classifiedAt sql.NullTime
	var metadata string

	err := s.Scan(&item.ID, &item.URL, &item.Title, &item.RawText,
		&item.SourceDomain, &item.ContentType, &item.ContentHash,
		&categoryID, &confidence, &item.MatchType, &item.Status,
		&item.NeedsManualReview, &metadata, &item.CapturedAt,
		&classifiedAt, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan content item: %w", err)
	}

	if categoryID.Valid {
		item.CategoryID = &categoryID.Int64
	}
	if confidence.Valid {
		item.Confidence = &confidence.Float64
	}
	if classifiedAt.Valid {
		t := classifiedAt.Time
		item.ClassifiedAt = &t
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &item.Metadata); err != nil {
			item.Metadata = map[string]interface{}{}
		}
	}

	return &item, nil
}
