package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the current state of a pipeline run
type RunStatus string

const (
	StatusQueued    RunStatus = "QUEUED"
	StatusRunning   RunStatus = "RUNNING"
	StatusSucceeded RunStatus = "SUCCEEDED"
	StatusFailed    RunStatus = "FAILED"
)

// TriggerType identifies what started a pipeline run
type TriggerType string

const (
	TriggerPush     TriggerType = "push"
	TriggerDispatch TriggerType = "dispatch"
)

// StageStatus represents the state of a single pipeline stage
type StageStatus string

const (
	StagePending   StageStatus = "PENDING"
	StageRunning   StageStatus = "RUNNING"
	StageSucceeded StageStatus = "SUCCEEDED"
	StageFailed    StageStatus = "FAILED"
	StageSkipped   StageStatus = "SKIPPED"
)

// RunRequest represents a request to start a pipeline run
type RunRequest struct {
	RepoURL   string `json:"repo_url,omitempty"`
	Branch    string `json:"branch,omitempty"`
	CommitSHA string `json:"commit_sha,omitempty"`
}

// RunResponse represents a pipeline run in API responses
type RunResponse struct {
	ID         uuid.UUID   `json:"id"`
	Trigger    TriggerType `json:"trigger"`
	Branch     string      `json:"branch"`
	CommitSHA  string      `json:"commit_sha,omitempty"`
	Status     RunStatus   `json:"status"`
	AppName    string      `json:"app_name"`
	Slot       string      `json:"slot"`
	URL        string      `json:"url,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// StageResponse represents a stage execution in API responses
type StageResponse struct {
	Ordinal     int         `json:"ordinal"`
	Name        string      `json:"name"`
	Status      StageStatus `json:"status"`
	Error       string      `json:"error,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
