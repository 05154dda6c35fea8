package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. Used by the main application and the API layer to enqueue
// classification and ingestion work.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
