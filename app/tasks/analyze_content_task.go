package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loydmilligan/dailies-sub000/app/actions"
	"github.com/loydmilligan/dailies-sub000/app/database"
)

// AnalyzeContentTaskFactory builds analysis tasks over a shared executor
type AnalyzeContentTaskFactory struct {
	executor *actions.Executor
}

func NewAnalyzeContentTaskFactory(executor *actions.Executor) *AnalyzeContentTaskFactory {
	return &AnalyzeContentTaskFactory{executor: executor}
}

func (f *AnalyzeContentTaskFactory) New(item database.ContentItem, categoryID int64) *AnalyzeContentTask {
	return &AnalyzeContentTask{
		Task:       NewTask(TaskTypeAnalyzeContent, item.ID),
		item:       item,
		categoryID: categoryID,
		executor:   f.executor,
	}
}

// AnalyzeContentTask runs the action pipeline configured for the item's
// resolved category. Individual action failures are reported by the
// executor, not propagated.
type AnalyzeContentTask struct {
	Task
	item       database.ContentItem
	categoryID int64
	executor   *actions.Executor
}

func (t *AnalyzeContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.executor.ExecuteActionsForCategory(ctx, t.item, t.categoryID)
	if err != nil {
		return fmt.Errorf("action pipeline failed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"content_id", t.item.ID,
		"executed", result.Executed,
		"errors", result.Errors,
		"duration", t.GetDuration())

	return nil
}
