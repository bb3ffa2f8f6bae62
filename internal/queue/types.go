package queue

import (
	"time"
)

// JobType represents the type of job to be processed
type JobType string

const (
	// JobTypeRun represents a pipeline run job
	JobTypeRun JobType = "run"
)

// Job represents a work item in the queue
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	RunID       string                 `json:"run_id"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	Attempts    int                    `json:"attempts"`
	MaxAttempts int                    `json:"max_attempts"`
}

// RunPayload contains data for a pipeline run job. Run jobs carry
// MaxAttempts 1: a failed pipeline is never retried automatically.
type RunPayload struct {
	RunID     string `json:"run_id"`
	RepoURL   string `json:"repo_url"`
	Branch    string `json:"branch"`
	CommitSHA string `json:"commit_sha"`
	Trigger   string `json:"trigger"`
}
