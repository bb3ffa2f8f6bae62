package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alvesdmateus/slotship/internal/pipeline"
	"github.com/alvesdmateus/slotship/internal/queue"
	"github.com/alvesdmateus/slotship/internal/state"
)

// handleRunJob executes one pipeline run end to end. Once the run is
// marked started, every failure path marks it FAILED so it never stays
// RUNNING after the job finishes.
func (w *Worker) handleRunJob(ctx context.Context, job *queue.Job) error {
	logger := w.logger.With().
		Str("job_id", job.ID).
		Str("run_id", job.RunID).
		Logger()

	logger.Info().Msg("Handling run job")

	payload, err := parseRunPayload(job)
	if err != nil {
		return fmt.Errorf("parse run payload: %w", err)
	}

	runID, err := uuid.Parse(payload.RunID)
	if err != nil {
		return fmt.Errorf("parse run ID: %w", err)
	}

	run, err := w.engine.repo.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	runLogger := NewRunLogger(w.engine.repo, runID, job.ID, pipeline.StageCheckout, logger)

	if err := w.engine.repo.MarkRunStarted(ctx, runID); err != nil {
		return fmt.Errorf("mark run started: %w", err)
	}
	runLogger.Info(ctx, "Pipeline run started", Details(
		"branch", payload.Branch,
		"trigger", payload.Trigger,
	))

	if err := w.executeRun(ctx, run, payload, logger); err != nil {
		redacted := w.engine.redactor.RedactError(err)
		runLogger.Error(ctx, "Pipeline run failed", errors.New(redacted), nil)

		if markErr := w.engine.repo.MarkRunFailed(ctx, runID, redacted); markErr != nil {
			logger.Error().Err(markErr).Msg("Failed to mark run failed")
		}

		return err
	}

	runLogger.SetStage(pipeline.StageDeploy)
	runLogger.Info(ctx, "Pipeline run succeeded", Details("url", run.URL))

	return nil
}

// executeRun provisions the run's workspace, drives the pipeline and
// records the successful outcome
func (w *Worker) executeRun(ctx context.Context, run *state.PipelineRun, payload *queue.RunPayload, logger zerolog.Logger) error {
	if err := os.MkdirAll(w.workspaceDir, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	workdir, err := os.MkdirTemp(w.workspaceDir, "run-")
	if err != nil {
		return fmt.Errorf("create run workdir: %w", err)
	}

	rc := &pipeline.RunContext{
		RunID:     run.ID,
		Workflow:  w.engine.workflow,
		RepoURL:   payload.RepoURL,
		Branch:    payload.Branch,
		CommitSHA: payload.CommitSHA,
		Workdir:   workdir,
		Logger:    logger,
	}
	if rc.RepoURL == "" {
		rc.RepoURL = run.RepoURL
	}

	defer func() {
		if err := os.RemoveAll(workdir); err != nil {
			logger.Warn().Err(err).Str("workdir", workdir).Msg("Failed to remove run workdir")
		}
		if rc.ArchivePath != "" {
			if err := os.Remove(rc.ArchivePath); err != nil && !os.IsNotExist(err) {
				logger.Warn().Err(err).Str("archive", rc.ArchivePath).Msg("Failed to remove run archive")
			}
		}
	}()

	if err := w.pipeline.Execute(ctx, rc); err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	// Persist the commit the checkout stage resolved
	if rc.CommitSHA != "" && rc.CommitSHA != run.CommitSHA {
		run.CommitSHA = rc.CommitSHA
		if err := w.engine.repo.UpdateRun(ctx, run); err != nil {
			logger.Warn().Err(err).Msg("Failed to record resolved commit")
		}
	}

	url := ""
	if rc.Result != nil {
		url = rc.Result.URL
	}

	if err := w.engine.repo.MarkRunSucceeded(ctx, run.ID, url); err != nil {
		return fmt.Errorf("mark run succeeded: %w", err)
	}
	run.URL = url

	return nil
}
