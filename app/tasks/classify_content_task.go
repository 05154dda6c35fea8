package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/loydmilligan/dailies-sub000/app/classify"
	"github.com/loydmilligan/dailies-sub000/app/database"
)

// Enqueuer lets a task chain follow-up work without depending on the
// scheduler implementation
type Enqueuer interface {
	EnqueueTask(task TaskInterface) error
}

// ClassifyContentTask classifies one pending content item and records the
// result. On success it chains an AnalyzeContentTask for the resolved
// category's action pipeline.
type ClassifyContentTask struct {
	Task
	item         database.ContentItem
	orchestrator *classify.Orchestrator
	opts         classify.Options
	contentRepo  database.ContentRepository
	analyzer     *AnalyzeContentTaskFactory
	enqueuer     Enqueuer
}

func NewClassifyContentTask(item database.ContentItem, orchestrator *classify.Orchestrator,
	opts classify.Options, contentRepo database.ContentRepository,
	analyzer *AnalyzeContentTaskFactory, enqueuer Enqueuer) *ClassifyContentTask {
	return &ClassifyContentTask{
		Task:         NewTask(TaskTypeClassifyContent, item.ID),
		item:         item,
		orchestrator: orchestrator,
		opts:         opts,
		contentRepo:  contentRepo,
		analyzer:     analyzer,
		enqueuer:     enqueuer,
	}
}

func (t *ClassifyContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.orchestrator.Classify(ctx, t.item, t.opts)
	if err != nil {
		var exhausted *classify.ExhaustedError
		if !errors.As(err, &exhausted) {
			return fmt.Errorf("classification failed: %w", err)
		}

		// Every provider failed. Items still end up in a category: resolve
		// to the fallback with the error_fallback match type and route to
		// manual review.
		slog.Warn("All providers exhausted, applying error fallback",
			"content_id", t.item.ID,
			"attempted", exhausted.Attempted,
			"error", exhausted.LastErr)
		result = t.orchestrator.ErrorFallback()
	}

	err = t.contentRepo.UpdateClassification(t.item.ID, result.Category.ID,
		result.Confidence, result.MatchType, result.NeedsManualReview)
	if err != nil {
		return fmt.Errorf("failed to record classification: %w", err)
	}

	status := database.StatusClassified
	if result.NeedsManualReview {
		status = database.StatusManualReview
	}
	if err := t.contentRepo.UpdateStatus(t.item.ID, status); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"content_id", t.item.ID,
		"category", result.Category.Name,
		"confidence", result.Confidence,
		"match_type", result.MatchType,
		"duration", t.GetDuration())

	if t.analyzer != nil && t.enqueuer != nil {
		analyzeTask := t.analyzer.New(t.item, result.Category.ID)
		if err := t.enqueuer.EnqueueTask(analyzeTask); err != nil {
			slog.Warn("Failed to enqueue AnalyzeContentTask", "content_id", t.item.ID, "error", err)
		}
	}

	return nil
}

// OnPermanentFailure marks the item failed once the scheduler gives up
// retrying, so it stops being picked up as pending
func (t *ClassifyContentTask) OnPermanentFailure() {
	if err := t.contentRepo.UpdateStatus(t.item.ID, database.StatusFailed); err != nil {
		slog.Error("Failed to mark item failed", "content_id", t.item.ID, "error", err)
	}
}
