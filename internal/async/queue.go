// Package async fans pipeline runs out to a bounded worker pool. Jobs are
// accepted until shutdown; a full queue applies backpressure instead of
// dropping work.
package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/pipeline"
)

// Job is one document to run through the pipeline.
type Job struct {
	// ID correlates queue logs with the pipeline run; Enqueue assigns one
	// when empty.
	ID          string
	Path        string
	CSVPath     string
	XLSXPath    string
	MimeType    string
	SubmittedAt time.Time
}

type RunnerQueue struct {
	runner  *pipeline.Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*RunnerQueue)

func WithWorkers(n int) Option {
	return func(q *RunnerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *RunnerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *RunnerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRunnerQueue(runner *pipeline.Runner, logger *slog.Logger, opts ...Option) *RunnerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunnerQueue{
		runner:  runner,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunnerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					ctx = common.WithRunID(ctx, job.ID)
					res, err := q.runner.Run(ctx, pipeline.Request{
						FilePath: job.Path,
						MimeType: job.MimeType,
						CSVPath:  job.CSVPath,
						XLSXPath: job.XLSXPath,
					})
					cancel()

					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "run_id", job.ID, "file", job.Path, "error", err)
					} else {
						q.logger.Info("processed document successfully", "worker_id", workerID, "run_id", job.ID, "file", job.Path, "fields", res.Fields)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunnerQueue) Enqueue(_ context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "file", job.Path)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "run_id", job.ID, "file", job.Path)
	default:
		q.logger.Warn("queue full, applying backpressure", "file", job.Path)
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake, drains queued jobs, and waits for workers until
// ctx expires.
func (q *RunnerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
