package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/pkg/models"
)

// PushEventRequest is the push webhook payload
type PushEventRequest struct {
	Ref        string `json:"ref"` // e.g. "refs/heads/main"
	After      string `json:"after"`
	Repository struct {
		CloneURL string `json:"clone_url"`
	} `json:"repository"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version"`
}

// ListRunsResponse represents a paginated list of pipeline runs
type ListRunsResponse struct {
	Runs   []models.RunResponse `json:"runs"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// RunLogResponse represents a run log entry in API responses
type RunLogResponse struct {
	ID        uint      `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	Stage     string    `json:"stage"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunToResponse converts a run record to its API representation
func RunToResponse(run *state.PipelineRun) models.RunResponse {
	return models.RunResponse{
		ID:         run.ID,
		Trigger:    run.Trigger,
		Branch:     run.Branch,
		CommitSHA:  run.CommitSHA,
		Status:     run.Status,
		AppName:    run.AppName,
		Slot:       run.Slot,
		URL:        run.URL,
		Error:      run.Error,
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

// RunsToResponse converts run records to their API representations
func RunsToResponse(runs []state.PipelineRun) []models.RunResponse {
	responses := make([]models.RunResponse, 0, len(runs))
	for i := range runs {
		responses = append(responses, RunToResponse(&runs[i]))
	}
	return responses
}

// StageToResponse converts a stage execution to its API representation
func StageToResponse(stage *state.StageExecution) models.StageResponse {
	return models.StageResponse{
		Ordinal:     stage.Ordinal,
		Name:        stage.Name,
		Status:      stage.Status,
		Error:       stage.Error,
		StartedAt:   stage.StartedAt,
		CompletedAt: stage.CompletedAt,
	}
}

// StagesToResponse converts stage executions to their API representations
func StagesToResponse(stages []state.StageExecution) []models.StageResponse {
	responses := make([]models.StageResponse, 0, len(stages))
	for i := range stages {
		responses = append(responses, StageToResponse(&stages[i]))
	}
	return responses
}

// LogToResponse converts a run log entry to its API representation
func LogToResponse(entry *state.RunLog) RunLogResponse {
	return RunLogResponse{
		ID:        entry.ID,
		RunID:     entry.RunID,
		Stage:     entry.Stage,
		Level:     entry.Level,
		Message:   entry.Message,
		Details:   entry.Details,
		Timestamp: entry.Timestamp,
	}
}

// LogsToResponse converts run log entries to their API representations
func LogsToResponse(entries []state.RunLog) []RunLogResponse {
	responses := make([]RunLogResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, LogToResponse(&entries[i]))
	}
	return responses
}
