package database

import (
	"fmt"
)

var _ LogRepository = (*LogRepositoryImpl)(nil)

type LogRepositoryImpl struct {
	db *DB
}

func NewLogRepository(db *DB) *LogRepositoryImpl {
	return &LogRepositoryImpl{db: db}
}

func (r *LogRepositoryImpl) Append(entry ProcessingLog) error {
	_, err := r.db.Exec(`
		INSERT INTO processing_logs (content_id, step, status, detail, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ContentID, entry.Step, entry.Status, entry.Detail, entry.DurationMs)

	if err != nil {
		return fmt.Errorf("failed to append processing log: %w", err)
	}

	return nil
}

func (r *LogRepositoryImpl) GetByContentID(contentID string, limit int) ([]ProcessingLog, error) {
	rows, err := r.db.Query(`
		SELECT id, content_id, step, status, detail, duration_ms, created_at
		FROM processing_logs
		WHERE content_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, contentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing logs: %w", err)
	}
	defer rows.Close()

	var entries []ProcessingLog
	for rows.Next() {
		var e ProcessingLog
		if err := rows.Scan(&e.ID, &e.ContentID, &e.Step, &e.Status, &e.Detail, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan processing log: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
