package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alvesdmateus/slotship/pkg/models"
)

// Repository provides database operations for pipeline runs
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new state repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun creates a new pipeline run record
func (r *Repository) CreateRun(ctx context.Context, run *PipelineRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID, including its stage executions
func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (*PipelineRun, error) {
	var run PipelineRun

	if err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC")
		}).
		First(&run, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListRuns retrieves runs ordered by creation time, newest first
func (r *Repository) ListRuns(ctx context.Context, limit, offset int) ([]PipelineRun, error) {
	var runs []PipelineRun

	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// UpdateRun updates a run record
func (r *Repository) UpdateRun(ctx context.Context, run *PipelineRun) error {
	if err := r.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return nil
}

// UpdateRunStatus updates only the status of a run
func (r *Repository) UpdateRunStatus(ctx context.Context, id uuid.UUID, status models.RunStatus) error {
	if err := r.db.WithContext(ctx).
		Model(&PipelineRun{}).
		Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	return nil
}

// MarkRunStarted transitions a run to RUNNING and stamps its start time
func (r *Repository) MarkRunStarted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()

	if err := r.db.WithContext(ctx).
		Model(&PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.StatusRunning,
			"started_at": now,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark run started: %w", err)
	}

	return nil
}

// MarkRunSucceeded records a successful run with its deployment URL
func (r *Repository) MarkRunSucceeded(ctx context.Context, id uuid.UUID, url string) error {
	now := time.Now()

	if err := r.db.WithContext(ctx).
		Model(&PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.StatusSucceeded,
			"url":         url,
			"finished_at": now,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark run succeeded: %w", err)
	}

	return nil
}

// MarkRunFailed records a failed run with its (redacted) error text
func (r *Repository) MarkRunFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	now := time.Now()

	if err := r.db.WithContext(ctx).
		Model(&PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.StatusFailed,
			"error":       errMsg,
			"finished_at": now,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}

	return nil
}

// GetRunsByStatus retrieves runs by status
func (r *Repository) GetRunsByStatus(ctx context.Context, status models.RunStatus) ([]PipelineRun, error) {
	var runs []PipelineRun

	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to get runs by status: %w", err)
	}

	return runs, nil
}

// CountRunsByStatus counts runs by status
func (r *Repository) CountRunsByStatus(ctx context.Context, status models.RunStatus) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).
		Model(&PipelineRun{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}

	return count, nil
}

// CreateStageExecution creates a stage execution record
func (r *Repository) CreateStageExecution(ctx context.Context, stage *StageExecution) error {
	if stage.ID == uuid.Nil {
		stage.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(stage).Error; err != nil {
		return fmt.Errorf("failed to create stage execution: %w", err)
	}

	return nil
}

// UpdateStageExecution updates a stage execution record
func (r *Repository) UpdateStageExecution(ctx context.Context, stage *StageExecution) error {
	if err := r.db.WithContext(ctx).Save(stage).Error; err != nil {
		return fmt.Errorf("failed to update stage execution: %w", err)
	}

	return nil
}

// GetStageExecutions retrieves the stage executions for a run in pipeline order
func (r *Repository) GetStageExecutions(ctx context.Context, runID uuid.UUID) ([]StageExecution, error) {
	var stages []StageExecution

	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("ordinal ASC").
		Find(&stages).Error; err != nil {
		return nil, fmt.Errorf("failed to get stage executions: %w", err)
	}

	return stages, nil
}

// CreateRunLog persists a run-level log entry
func (r *Repository) CreateRunLog(ctx context.Context, entry *RunLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create run log: %w", err)
	}

	return nil
}

// GetRunLogs retrieves the log entries for a run in chronological order
func (r *Repository) GetRunLogs(ctx context.Context, runID uuid.UUID) ([]RunLog, error) {
	var logs []RunLog

	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("timestamp ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get run logs: %w", err)
	}

	return logs, nil
}
