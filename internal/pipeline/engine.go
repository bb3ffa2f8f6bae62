package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/slotship/internal/secrets"
)

// Engine executes pipeline stages strictly in order. The first stage error
// halts the run; stages after the failed one are recorded as skipped and
// never start. A run has no internal concurrency and is never retried.
type Engine struct {
	stages       []Stage
	tracker      *Tracker
	redactor     *secrets.Redactor
	stageTimeout time.Duration
	logger       zerolog.Logger
}

// NewEngine creates a pipeline engine over the given stages
func NewEngine(stages []Stage, tracker *Tracker, redactor *secrets.Redactor, stageTimeout time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{
		stages:       stages,
		tracker:      tracker,
		redactor:     redactor,
		stageTimeout: stageTimeout,
		logger:       logger.With().Str("component", "pipeline").Logger(),
	}
}

// Execute runs all stages for the given run context. On return the run's
// execution environment, if one was provisioned, has been released.
func (e *Engine) Execute(ctx context.Context, rc *RunContext) error {
	out := &switchWriter{}
	rc.Output = out

	defer func() {
		if rc.Env != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := rc.Env.Close(closeCtx); err != nil {
				e.logger.Warn().Err(err).Msg("Failed to release execution environment")
			}
		}
	}()

	for i, stage := range e.stages {
		if err := e.runStage(ctx, rc, i, stage, out); err != nil {
			e.skipRemaining(ctx, rc, i+1)
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
	}

	return nil
}

// runStage executes one stage with output captured through the credential
// redactor
func (e *Engine) runStage(ctx context.Context, rc *RunContext, ordinal int, stage Stage, out *switchWriter) error {
	logger := e.logger.With().
		Str("run_id", rc.RunID.String()).
		Str("stage", stage.Name()).
		Logger()

	record, err := e.tracker.StageStarted(ctx, rc.RunID, ordinal, stage.Name())
	if err != nil {
		return fmt.Errorf("record stage start: %w", err)
	}

	var buf bytes.Buffer
	redacting := e.redactor.Writer(&buf)
	out.swap(redacting)

	stageCtx := ctx
	if e.stageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, e.stageTimeout)
		defer cancel()
	}

	logger.Info().Msg("Stage started")
	start := time.Now()

	runErr := stage.Run(stageCtx, rc)

	out.swap(nil)
	if err := redacting.Flush(); err != nil {
		logger.Warn().Err(err).Msg("Failed to flush stage output")
	}
	output := buf.String()

	if runErr != nil {
		logger.Error().
			Str("error", e.redactor.RedactError(runErr)).
			Dur("duration", time.Since(start)).
			Msg("Stage failed")

		if err := e.tracker.StageFailed(ctx, record, output, e.redactor.RedactError(runErr)); err != nil {
			logger.Warn().Err(err).Msg("Failed to record stage failure")
		}
		return runErr
	}

	logger.Info().Dur("duration", time.Since(start)).Msg("Stage completed")

	if err := e.tracker.StageSucceeded(ctx, record, output); err != nil {
		return fmt.Errorf("record stage completion: %w", err)
	}

	return nil
}

// skipRemaining records stages after a failure as skipped
func (e *Engine) skipRemaining(ctx context.Context, rc *RunContext, from int) {
	for i := from; i < len(e.stages); i++ {
		if err := e.tracker.StageSkipped(ctx, rc.RunID, i, e.stages[i].Name()); err != nil {
			e.logger.Warn().
				Err(err).
				Str("stage", e.stages[i].Name()).
				Msg("Failed to record skipped stage")
		}
	}
}
