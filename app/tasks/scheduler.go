package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loydmilligan/dailies-sub000/app/capture"
	"github.com/loydmilligan/dailies-sub000/app/cfg"
	"github.com/loydmilligan/dailies-sub000/app/classify"
	"github.com/loydmilligan/dailies-sub000/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)
var _ Enqueuer = (*Scheduler)(nil)

const pendingBatchSize = 50

// Scheduler runs the background worker pool. A ticker periodically scans
// for due work: configured feeds to ingest and pending items to classify.
// Tasks can also be enqueued directly, e.g. from the capture endpoint.
type Scheduler struct {
	contentRepo  database.ContentRepository
	orchestrator *classify.Orchestrator
	opts         classify.Options
	feedSource   *capture.FeedSource
	analyzer     *AnalyzeContentTaskFactory
	feedURLs     []string
	interval     time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface
}

func NewScheduler(contentRepo database.ContentRepository, orchestrator *classify.Orchestrator,
	feedSource *capture.FeedSource, analyzer *AnalyzeContentTaskFactory) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		contentRepo:  contentRepo,
		orchestrator: orchestrator,
		opts: classify.Options{
			UseConsensus:  cfg.UseConsensus,
			MinConfidence: cfg.MinConfidence,
		},
		feedSource:  feedSource,
		analyzer:    analyzer,
		feedURLs:    cfg.FeedURLs,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueClassification wraps a content item in a classification task and
// queues it
func (s *Scheduler) EnqueueClassification(item database.ContentItem) error {
	task := NewClassifyContentTask(item, s.orchestrator, s.opts, s.contentRepo, s.analyzer, s)
	return s.EnqueueTask(task)
}

// EnqueueReclassification queues a forced re-classification: the cached
// result for the item's content hash is bypassed and providers are
// consulted again.
func (s *Scheduler) EnqueueReclassification(item database.ContentItem) error {
	opts := s.opts
	opts.Force = true
	task := NewClassifyContentTask(item, s.orchestrator, opts, s.contentRepo, s.analyzer, s)
	return s.EnqueueTask(task)
}

func (s *Scheduler) enqueueDueTasks() {
	for _, feedURL := range s.feedURLs {
		task := NewIngestFeedTask(feedURL, s.feedSource, s.contentRepo)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue IngestFeedTask", "feed", feedURL, "error", err)
		}
	}

	pending, err := s.contentRepo.GetItems(database.StatusPending, nil, pendingBatchSize)
	if err != nil {
		slog.Error("Failed to load pending items", "error", err)
		return
	}
	if len(pending) == 0 {
		slog.Debug("No pending items to classify")
		return
	}

	slog.Debug("Scheduling pending items for classification", "count", len(pending))

	for _, item := range pending {
		if err := s.EnqueueClassification(item); err != nil {
			slog.Warn("Failed to enqueue ClassifyContentTask", "content_id", item.ID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
			if h, ok := task.(permanentFailureHandler); ok {
				h.OnPermanentFailure()
			}
		}
	}
}
