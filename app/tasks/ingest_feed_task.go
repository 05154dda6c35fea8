package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loydmilligan/dailies-sub000/app/capture"
	"github.com/loydmilligan/dailies-sub000/app/database"
)

// IngestFeedTask pulls a feed and stores its new entries as pending content
// items. Entries already present (matched by content hash) are skipped.
type IngestFeedTask struct {
	Task
	feedURL     string
	feedSource  *capture.FeedSource
	contentRepo database.ContentRepository
}

func NewIngestFeedTask(feedURL string, feedSource *capture.FeedSource,
	contentRepo database.ContentRepository) *IngestFeedTask {
	return &IngestFeedTask{
		Task:        NewTask(TaskTypeIngestFeed, feedURL),
		feedURL:     feedURL,
		feedSource:  feedSource,
		contentRepo: contentRepo,
	}
}

func (t *IngestFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items, err := t.feedSource.Fetch(ctx, t.feedURL)
	if err != nil {
		return fmt.Errorf("feed ingestion failed: %w", err)
	}

	newCount := 0
	skippedCount := 0

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		existing, err := t.contentRepo.GetItemByHash(item.ContentHash)
		if err != nil {
			slog.Error("Failed to check for existing item", "url", item.URL, "error", err)
			continue
		}
		if existing != nil {
			skippedCount++
			continue
		}

		if err := t.contentRepo.StoreItem(item); err != nil {
			slog.Error("Failed to store feed item", "url", item.URL, "error", err)
			continue
		}
		newCount++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.feedURL,
		"new", newCount,
		"skipped", skippedCount,
		"duration", t.GetDuration())

	return nil
}
