package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alvesdmateus/slotship/internal/queue"
	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/internal/workflow"
	"github.com/alvesdmateus/slotship/pkg/models"
)

// RunEnqueuer hands accepted runs to the orchestrator
type RunEnqueuer interface {
	EnqueueRunJob(ctx context.Context, payload *queue.RunPayload) error
}

// RunHandler handles pipeline run HTTP requests
type RunHandler struct {
	repo     *state.Repository
	engine   RunEnqueuer
	workflow *workflow.Workflow
	repoURL  string
}

// NewRunHandler creates a new run handler
func NewRunHandler(repo *state.Repository, engine RunEnqueuer, wf *workflow.Workflow, repoURL string) *RunHandler {
	return &RunHandler{
		repo:     repo,
		engine:   engine,
		workflow: wf,
		repoURL:  repoURL,
	}
}

// DispatchRun handles POST /api/v1/runs/dispatch
func (h *RunHandler) DispatchRun(w http.ResponseWriter, r *http.Request) {
	var req models.RunRequest
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	event := workflow.TriggerEvent{
		Type:      models.TriggerDispatch,
		Branch:    req.Branch,
		CommitSHA: req.CommitSHA,
	}

	if !h.workflow.Matches(event) {
		RespondWithError(w, http.StatusUnprocessableEntity, "Workflow does not allow manual dispatch")
		return
	}

	repoURL := req.RepoURL
	if repoURL == "" {
		repoURL = h.repoURL
	}

	run, err := h.createAndEnqueue(r, models.TriggerDispatch, repoURL, req.Branch, req.CommitSHA)
	if err != nil {
		log.Error().Err(err).Msg("Failed to dispatch run")
		RespondWithError(w, http.StatusInternalServerError, "Failed to dispatch run")
		return
	}

	RespondWithJSON(w, http.StatusAccepted, RunToResponse(run))
}

// createAndEnqueue persists a queued run and hands it to the orchestrator
func (h *RunHandler) createAndEnqueue(r *http.Request, trigger models.TriggerType, repoURL, branch, commitSHA string) (*state.PipelineRun, error) {
	run := &state.PipelineRun{
		WorkflowName: h.workflow.Name,
		AppName:      h.workflow.Deploy.App,
		Slot:         h.workflow.SlotName(),
		Trigger:      trigger,
		RepoURL:      repoURL,
		Branch:       branch,
		CommitSHA:    commitSHA,
		Status:       models.StatusQueued,
	}

	if err := h.repo.CreateRun(r.Context(), run); err != nil {
		return nil, err
	}

	payload := &queue.RunPayload{
		RunID:     run.ID.String(),
		RepoURL:   repoURL,
		Branch:    branch,
		CommitSHA: commitSHA,
		Trigger:   string(trigger),
	}

	if err := h.engine.EnqueueRunJob(r.Context(), payload); err != nil {
		return nil, err
	}

	return run, nil
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 20 // default
	offset := 0

	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	runs, err := h.repo.ListRuns(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list runs")
		RespondWithError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	response := ListRunsResponse{
		Runs:   RunsToResponse(runs),
		Total:  len(runs),
		Limit:  limit,
		Offset: offset,
	}

	RespondWithJSON(w, http.StatusOK, response)
}

// GetRun handles GET /api/v1/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseRunID(w, r)
	if !ok {
		return
	}

	run, err := h.repo.GetRun(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("Failed to get run")
		RespondWithError(w, http.StatusNotFound, "Run not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, RunToResponse(run))
}

// GetRunStages handles GET /api/v1/runs/{id}/stages
func (h *RunHandler) GetRunStages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseRunID(w, r)
	if !ok {
		return
	}

	stages, err := h.repo.GetStageExecutions(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("Failed to get run stages")
		RespondWithError(w, http.StatusInternalServerError, "Failed to get run stages")
		return
	}

	RespondWithJSON(w, http.StatusOK, StagesToResponse(stages))
}

// GetRunLogs handles GET /api/v1/runs/{id}/logs
func (h *RunHandler) GetRunLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseRunID(w, r)
	if !ok {
		return
	}

	logs, err := h.repo.GetRunLogs(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("Failed to get run logs")
		RespondWithError(w, http.StatusInternalServerError, "Failed to get run logs")
		return
	}

	RespondWithJSON(w, http.StatusOK, LogsToResponse(logs))
}

// parseRunID extracts and validates the run ID path parameter
func (h *RunHandler) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid run ID")
		return uuid.Nil, false
	}
	return id, true
}
