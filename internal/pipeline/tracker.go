package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/pkg/models"
)

// Tracker persists per-stage execution records as the engine advances
type Tracker struct {
	repo *state.Repository
}

// NewTracker creates a stage tracker backed by the state repository
func NewTracker(repo *state.Repository) *Tracker {
	return &Tracker{repo: repo}
}

// StageStarted records a stage entering the RUNNING state
func (t *Tracker) StageStarted(ctx context.Context, runID uuid.UUID, ordinal int, name string) (*state.StageExecution, error) {
	now := time.Now()
	stage := &state.StageExecution{
		RunID:     runID,
		Ordinal:   ordinal,
		Name:      name,
		Status:    models.StageRunning,
		StartedAt: &now,
	}

	if err := t.repo.CreateStageExecution(ctx, stage); err != nil {
		return nil, err
	}

	return stage, nil
}

// StageSucceeded records a completed stage with its captured output
func (t *Tracker) StageSucceeded(ctx context.Context, stage *state.StageExecution, output string) error {
	now := time.Now()
	stage.Status = models.StageSucceeded
	stage.Output = output
	stage.CompletedAt = &now

	return t.repo.UpdateStageExecution(ctx, stage)
}

// StageFailed records a failed stage with its captured output and error.
// Output and error text must already be credential-redacted.
func (t *Tracker) StageFailed(ctx context.Context, stage *state.StageExecution, output, errMsg string) error {
	now := time.Now()
	stage.Status = models.StageFailed
	stage.Output = output
	stage.Error = errMsg
	stage.CompletedAt = &now

	return t.repo.UpdateStageExecution(ctx, stage)
}

// StageSkipped records a stage that never started because an earlier stage
// failed
func (t *Tracker) StageSkipped(ctx context.Context, runID uuid.UUID, ordinal int, name string) error {
	return t.repo.CreateStageExecution(ctx, &state.StageExecution{
		RunID:   runID,
		Ordinal: ordinal,
		Name:    name,
		Status:  models.StageSkipped,
	})
}
