package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loydmilligan/dailies-sub000/app/database"
	"github.com/loydmilligan/dailies-sub000/app/taxonomy"
)

// ActionTimeout is the uniform per-action deadline. It bounds every handler
// invocation regardless of category or handler type.
const ActionTimeout = 30 * time.Second

// ActionResult records the outcome of one action in a pipeline run
type ActionResult struct {
	Success       bool
	Payload       map[string]interface{}
	Error         string
	ExecutionTime time.Duration // handler execution only
	TotalTime     time.Duration // including dispatch overhead
}

// PipelineResult aggregates a full pipeline run for one content item
type PipelineResult struct {
	Results     map[string]ActionResult
	Executed    int
	Total       int
	Errors      int
	AverageTime time.Duration
}

// Executor runs the ordered action chain for a category. Failures are
// isolated per action: a missing handler, a timeout or a handler error is
// recorded in that action's slot and the pipeline continues.
type Executor struct {
	registry    *Registry
	taxonomy    *taxonomy.Cache
	contentRepo database.ContentRepository // optional; merges payloads into item metadata
	logRepo     database.LogRepository     // optional, best effort
}

func NewExecutor(registry *Registry, taxonomyCache *taxonomy.Cache,
	contentRepo database.ContentRepository, logRepo database.LogRepository) *Executor {
	return &Executor{
		registry:    registry,
		taxonomy:    taxonomyCache,
		contentRepo: contentRepo,
		logRepo:     logRepo,
	}
}

// ExecuteActionsForCategory runs the category's action chain against the
// item, in ascending execution order. A category with no configured actions
// yields an empty result, not an error.
func (e *Executor) ExecuteActionsForCategory(ctx context.Context, item database.ContentItem, categoryID int64) (*PipelineResult, error) {
	chain := e.taxonomy.Current().ActionChain(categoryID)

	pipeline := &PipelineResult{
		Results: make(map[string]ActionResult, len(chain)),
		Total:   len(chain),
	}

	if len(chain) == 0 {
		return pipeline, nil
	}

	var totalTime time.Duration
	for _, step := range chain {
		result := e.executeStep(ctx, item, step)
		pipeline.Results[step.Action.Name] = result
		pipeline.Executed++
		totalTime += result.ExecutionTime

		if result.Success {
			e.mergePayload(item.ID, step.Action.Name, result.Payload)
		} else {
			pipeline.Errors++
		}
	}

	if pipeline.Executed > 0 {
		pipeline.AverageTime = totalTime / time.Duration(pipeline.Executed)
	}

	slog.Debug("Action pipeline completed",
		"content_id", item.ID,
		"category_id", categoryID,
		"executed", pipeline.Executed,
		"errors", pipeline.Errors)

	return pipeline, nil
}

func (e *Executor) executeStep(ctx context.Context, item database.ContentItem, step taxonomy.ChainStep) ActionResult {
	dispatchStart := time.Now()

	handler, ok := e.registry.Resolve(step.Action.Handler)
	if !ok {
		// Load-time validation makes this unreachable for a current
		// snapshot, but a reload may race an in-flight pipeline
		e.logStep(item.ID, step.Action.Name, "error", "processor not found", 0)
		return ActionResult{
			Error:     fmt.Sprintf("processor not found: %s", step.Action.Handler),
			TotalTime: time.Since(dispatchStart),
		}
	}

	actionCtx, cancel := context.WithTimeout(ctx, ActionTimeout)
	defer cancel()

	type outcome struct {
		payload map[string]interface{}
		err     error
	}
	done := make(chan outcome, 1)

	executionStart := time.Now()
	go func() {
		payload, err := handler.Execute(actionCtx, item, step.Config)
		done <- outcome{payload: payload, err: err}
	}()

	var result ActionResult
	select {
	case out := <-done:
		result.ExecutionTime = time.Since(executionStart)
		if out.err != nil {
			result.Error = out.err.Error()
			slog.Warn("Action failed",
				"content_id", item.ID,
				"action", step.Action.Name,
				"error", out.err)
		} else {
			result.Success = true
			result.Payload = out.payload
		}

	case <-actionCtx.Done():
		result.ExecutionTime = time.Since(executionStart)
		result.Error = fmt.Sprintf("action timed out after %s", ActionTimeout)
		slog.Warn("Action timed out",
			"content_id", item.ID,
			"action", step.Action.Name,
			"timeout", ActionTimeout.String())
	}

	result.TotalTime = time.Since(dispatchStart)

	status := "success"
	if !result.Success {
		status = "error"
	}
	e.logStep(item.ID, step.Action.Name, status, result.Error, result.ExecutionTime)

	return result
}

func (e *Executor) mergePayload(contentID, actionName string, payload map[string]interface{}) {
	if e.contentRepo == nil || len(payload) == 0 {
		return
	}
	if err := e.contentRepo.MergeMetadata(contentID, payload); err != nil {
		slog.Warn("Failed to merge action payload",
			"content_id", contentID,
			"action", actionName,
			"error", err)
	}
}

func (e *Executor) logStep(contentID, action, status, detail string, duration time.Duration) {
	if e.logRepo == nil {
		return
	}
	err := e.logRepo.Append(database.ProcessingLog{
		ContentID:  contentID,
		Step:       "action:" + action,
		Status:     status,
		Detail:     detail,
		DurationMs: duration.Milliseconds(),
	})
	if err != nil {
		slog.Warn("Failed to append processing log", "content_id", contentID, "action", action, "error", err)
	}
}
