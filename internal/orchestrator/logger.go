package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alvesdmateus/slotship/internal/state"
)

// Log levels
const (
	LogLevelDebug = "DEBUG"
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

// RunLogger writes run-level log entries to the database so the triggering
// actor can inspect them later
type RunLogger struct {
	repo   *state.Repository
	runID  uuid.UUID
	jobID  string
	stage  string
	logger zerolog.Logger // Also log to stdout for debugging
}

// NewRunLogger creates a new run logger
func NewRunLogger(repo *state.Repository, runID uuid.UUID, jobID, stage string, logger zerolog.Logger) *RunLogger {
	return &RunLogger{
		repo:   repo,
		runID:  runID,
		jobID:  jobID,
		stage:  stage,
		logger: logger,
	}
}

// write writes a log entry to the database
func (l *RunLogger) write(ctx context.Context, level, message string, details map[string]interface{}) {
	var detailsJSON string
	if details != nil {
		if jsonBytes, err := json.Marshal(details); err == nil {
			detailsJSON = string(jsonBytes)
		}
	}

	entry := &state.RunLog{
		RunID:     l.runID,
		JobID:     l.jobID,
		Stage:     l.stage,
		Level:     level,
		Message:   message,
		Details:   detailsJSON,
		Timestamp: time.Now(),
	}

	// Write to database (don't fail the operation if logging fails)
	if err := l.repo.CreateRunLog(ctx, entry); err != nil {
		l.logger.Warn().
			Err(err).
			Str("run_id", l.runID.String()).
			Str("message", message).
			Msg("Failed to write run log to database")
	}
}

// Debug logs a debug message
func (l *RunLogger) Debug(ctx context.Context, message string, details map[string]interface{}) {
	l.write(ctx, LogLevelDebug, message, details)
	l.logger.Debug().
		Str("run_id", l.runID.String()).
		Str("stage", l.stage).
		Interface("details", details).
		Msg(message)
}

// Info logs an info message
func (l *RunLogger) Info(ctx context.Context, message string, details map[string]interface{}) {
	l.write(ctx, LogLevelInfo, message, details)
	l.logger.Info().
		Str("run_id", l.runID.String()).
		Str("stage", l.stage).
		Interface("details", details).
		Msg(message)
}

// Warn logs a warning message
func (l *RunLogger) Warn(ctx context.Context, message string, details map[string]interface{}) {
	l.write(ctx, LogLevelWarn, message, details)
	l.logger.Warn().
		Str("run_id", l.runID.String()).
		Str("stage", l.stage).
		Interface("details", details).
		Msg(message)
}

// Error logs an error message
func (l *RunLogger) Error(ctx context.Context, message string, err error, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	if err != nil {
		details["error"] = err.Error()
	}

	l.write(ctx, LogLevelError, message, details)
	l.logger.Error().
		Err(err).
		Str("run_id", l.runID.String()).
		Str("stage", l.stage).
		Interface("details", details).
		Msg(message)
}

// SetStage updates the current stage
func (l *RunLogger) SetStage(stage string) {
	l.stage = stage
}

// Details is a helper function to create a details map
func Details(pairs ...interface{}) map[string]interface{} {
	details := make(map[string]interface{})
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			details[key] = pairs[i+1]
		}
	}
	return details
}
