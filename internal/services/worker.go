package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

// Task identifies one document waiting for the pipeline.
type Task struct {
	Kind          DocumentKind
	ID            uuid.UUID
	CorrelationID string
}

type Worker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(task Task)
}

type WorkerOptions struct {
	Concurrency  int
	QueueSize    int
	PollInterval time.Duration
	PollBatch    int
	StaleAfter   time.Duration
}

type worker struct {
	resumeRepo repositories.ResumeRepository
	jobRepo    repositories.JobRepository
	processor  DocumentProcessor
	opts       WorkerOptions
	taskQueue  chan Task
	wg         sync.WaitGroup
	stopChan   chan struct{}
	stopOnce   sync.Once
	inflight   sync.Map
	log        *slog.Logger
}

func NewWorker(
	resumeRepo repositories.ResumeRepository,
	jobRepo repositories.JobRepository,
	processor DocumentProcessor,
	opts WorkerOptions,
	log *slog.Logger,
) Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.PollBatch <= 0 {
		opts.PollBatch = 10
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}

	return &worker{
		resumeRepo: resumeRepo,
		jobRepo:    jobRepo,
		processor:  processor,
		opts:       opts,
		taskQueue:  make(chan Task, opts.QueueSize),
		stopChan:   make(chan struct{}),
		log:        log.With("component", "worker"),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("starting worker", "concurrency", w.opts.Concurrency)

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processTasks(ctx, i+1)
	}

	// Start polling for queued rows
	w.wg.Add(1)
	go w.pollPending(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.log.Info("stopping worker")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.log.Info("worker stopped")
}

// Enqueue implements Worker. A task already waiting in the queue is not
// queued twice.
func (w *worker) Enqueue(task Task) {
	key := task.key()
	if _, loaded := w.inflight.LoadOrStore(key, struct{}{}); loaded {
		return
	}

	select {
	case w.taskQueue <- task:
		w.log.Debug("task enqueued", "kind", task.Kind, "id", task.ID)
	case <-w.stopChan:
		w.inflight.Delete(key)
		w.log.Warn("worker stopped, cannot enqueue task", "kind", task.Kind, "id", task.ID)
	}
}

func (t Task) key() string {
	return string(t.Kind) + ":" + t.ID.String()
}

func (w *worker) processTasks(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With("worker_id", workerID)

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case task := <-w.taskQueue:
			w.inflight.Delete(task.key())
			taskCtx := logger.WithCorrelationID(ctx, task.CorrelationID)
			if err := w.processor.Process(taskCtx, task.Kind, task.ID); err != nil {
				logger.FromContext(taskCtx, log).Error("task failed", "kind", task.Kind, "id", task.ID, "error", err)
				continue
			}
			logger.FromContext(taskCtx, log).Info("task completed", "kind", task.Kind, "id", task.ID)
		}
	}
}

func (w *worker) pollPending(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.enqueuePending()
		}
	}
}

func (w *worker) enqueuePending() {
	w.requeueStale()

	resumes, err := w.resumeRepo.FindPending(w.opts.PollBatch)
	if err != nil {
		w.log.Warn("failed to fetch pending resumes", "error", err)
	}
	for _, r := range resumes {
		w.Enqueue(Task{Kind: KindResume, ID: r.ID})
	}

	jobs, err := w.jobRepo.FindPending(w.opts.PollBatch)
	if err != nil {
		w.log.Warn("failed to fetch pending jobs", "error", err)
	}
	for _, j := range jobs {
		w.Enqueue(Task{Kind: KindJob, ID: j.ID})
	}

	if n := len(resumes) + len(jobs); n > 0 {
		w.log.Info("found pending documents", "count", n)
	}
}

// requeueStale returns rows left in processing by a run that never finished
// to the queue.
func (w *worker) requeueStale() {
	cutoff := time.Now().Add(-w.opts.StaleAfter)

	resumes, err := w.resumeRepo.RequeueStale(cutoff)
	if err != nil {
		w.log.Warn("failed to requeue stale resumes", "error", err)
	}
	jobs, err := w.jobRepo.RequeueStale(cutoff)
	if err != nil {
		w.log.Warn("failed to requeue stale jobs", "error", err)
	}

	if n := resumes + jobs; n > 0 {
		w.log.Warn("requeued documents stuck in processing", "count", n, "stale_after", w.opts.StaleAfter)
	}
}
