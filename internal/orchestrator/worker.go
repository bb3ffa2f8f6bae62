package orchestrator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/slotship/internal/pipeline"
	"github.com/alvesdmateus/slotship/internal/queue"
)

// Worker processes run jobs from the queue with configurable concurrency
type Worker struct {
	engine       *Engine
	pipeline     *pipeline.Engine
	workspaceDir string
	concurrency  int
	pollTimeout  time.Duration
	logger       zerolog.Logger
}

// NewWorker creates a new worker. An empty workspace dir falls back to the
// host temp directory.
func NewWorker(engine *Engine, pipelineEngine *pipeline.Engine, workspaceDir string, concurrency int, logger zerolog.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if workspaceDir == "" {
		workspaceDir = os.TempDir()
	}

	return &Worker{
		engine:       engine,
		pipeline:     pipelineEngine,
		workspaceDir: workspaceDir,
		concurrency:  concurrency,
		pollTimeout:  5 * time.Second, // Blocking poll timeout
		logger:       logger.With().Str("component", "worker").Logger(),
	}
}

// Start starts the worker with N concurrent job processors. It blocks
// until the context is cancelled and all processors have drained.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().
		Int("concurrency", w.concurrency).
		Msg("Starting pipeline worker")

	var wg sync.WaitGroup

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processJobs(ctx, workerID)
		}(i)
	}

	wg.Wait()

	w.logger.Info().Msg("Pipeline worker stopped")
	return nil
}

// processJobs is the main worker loop that processes jobs from the queue
func (w *Worker) processJobs(ctx context.Context, workerID int) {
	logger := w.logger.With().Int("worker_id", workerID).Logger()
	logger.Info().Msg("Worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Worker goroutine stopped (context cancelled)")
			return
		default:
			job, err := w.engine.queue.Dequeue(ctx, queue.JobTypeRun, w.pollTimeout)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.Error().Err(err).Msg("Failed to dequeue job")
				continue
			}

			if job == nil {
				// No job available within the poll timeout
				continue
			}

			logger.Info().
				Str("job_id", job.ID).
				Str("run_id", job.RunID).
				Msg("Processing run job")

			if err := w.engine.queue.MarkProcessing(ctx, job.ID); err != nil {
				logger.Warn().
					Err(err).
					Str("job_id", job.ID).
					Msg("Failed to mark job as processing")
			}

			if err := w.handleJob(ctx, job); err != nil {
				logger.Error().
					Err(err).
					Str("job_id", job.ID).
					Str("run_id", job.RunID).
					Msg("Run job failed")

				// Run jobs are single-attempt; record the failure and move on
				reason := w.engine.redactor.RedactError(err)
				if markErr := w.engine.queue.MarkFailed(ctx, job.ID, reason); markErr != nil {
					logger.Error().
						Err(markErr).
						Str("job_id", job.ID).
						Msg("Failed to mark job as failed")
				}
			} else {
				logger.Info().
					Str("job_id", job.ID).
					Str("run_id", job.RunID).
					Msg("Run job processed successfully")
			}

			if err := w.engine.queue.MarkComplete(ctx, job.ID); err != nil {
				logger.Warn().
					Err(err).
					Str("job_id", job.ID).
					Msg("Failed to clear processing marker")
			}
		}
	}
}

// handleJob routes a job to the appropriate handler based on job type
func (w *Worker) handleJob(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeRun:
		return w.handleRunJob(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}
