package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alvesdmateus/slotship/internal/queue"
	"github.com/alvesdmateus/slotship/internal/secrets"
	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/internal/workflow"
)

// Engine coordinates pipeline runs: the API side enqueues run jobs, the
// worker side dequeues them and drives the pipeline
type Engine struct {
	queue    *queue.RedisQueue
	repo     *state.Repository
	workflow *workflow.Workflow
	redactor *secrets.Redactor
	logger   zerolog.Logger
}

// NewEngine creates a new orchestrator engine
func NewEngine(
	q *queue.RedisQueue,
	repo *state.Repository,
	wf *workflow.Workflow,
	redactor *secrets.Redactor,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		queue:    q,
		repo:     repo,
		workflow: wf,
		redactor: redactor,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// EnqueueRunJob enqueues a pipeline run job. Run jobs carry a single
// attempt: a failed pipeline run stays failed until a new trigger arrives.
func (e *Engine) EnqueueRunJob(ctx context.Context, payload *queue.RunPayload) error {
	e.logger.Info().
		Str("run_id", payload.RunID).
		Str("branch", payload.Branch).
		Str("trigger", payload.Trigger).
		Msg("Enqueueing run job")

	payloadMap := map[string]interface{}{
		"run_id":     payload.RunID,
		"repo_url":   payload.RepoURL,
		"branch":     payload.Branch,
		"commit_sha": payload.CommitSHA,
		"trigger":    payload.Trigger,
	}

	job := &queue.Job{
		ID:          uuid.New().String(),
		Type:        queue.JobTypeRun,
		RunID:       payload.RunID,
		Payload:     payloadMap,
		MaxAttempts: 1,
	}

	if err := e.queue.Enqueue(ctx, job); err != nil {
		e.logger.Error().
			Err(err).
			Str("run_id", payload.RunID).
			Msg("Failed to enqueue run job")
		return fmt.Errorf("enqueue run job: %w", err)
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Str("run_id", payload.RunID).
		Msg("Run job enqueued successfully")

	return nil
}

// parseRunPayload parses a run job payload
func parseRunPayload(job *queue.Job) (*queue.RunPayload, error) {
	data, err := json.Marshal(job.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var payload queue.RunPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	return &payload, nil
}
