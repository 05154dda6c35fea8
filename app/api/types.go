package api

import (
	"github.com/loydmilligan/dailies-sub000/app/capture"
	"github.com/loydmilligan/dailies-sub000/app/database"
	"github.com/loydmilligan/dailies-sub000/app/tasks"
	"github.com/loydmilligan/dailies-sub000/app/taxonomy"
)

// SchedulerInterface is the slice of the task scheduler the API needs:
// direct enqueueing of classification work for captured items, and forced
// re-classification that bypasses the result cache.
type SchedulerInterface interface {
	EnqueueClassification(item database.ContentItem) error
	EnqueueReclassification(item database.ContentItem) error
}

var _ SchedulerInterface = (*tasks.Scheduler)(nil)

type Handler struct {
	contentRepo database.ContentRepository
	logRepo     database.LogRepository
	taxonomy    *taxonomy.Cache
	extractor   *capture.Extractor
	scheduler   SchedulerInterface
}

type captureRequest struct {
	URL string `json:"url" binding:"required"`
}
