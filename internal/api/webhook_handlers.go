package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/alvesdmateus/slotship/internal/workflow"
	"github.com/alvesdmateus/slotship/pkg/models"
)

// maxEventBody caps webhook payload size
const maxEventBody = 1 << 20

// WebhookHandler handles repository event webhooks
type WebhookHandler struct {
	runs          *RunHandler
	workflow      *workflow.Workflow
	webhookSecret string
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(runs *RunHandler, wf *workflow.Workflow, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		runs:          runs,
		workflow:      wf,
		webhookSecret: webhookSecret,
	}
}

// PushEvent handles POST /api/v1/events/push
func (h *WebhookHandler) PushEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	if !VerifySignature(h.webhookSecret, body, r.Header.Get(SignatureHeader)) {
		RespondWithError(w, http.StatusUnauthorized, "Invalid payload signature")
		return
	}

	var event PushEventRequest
	if err := json.Unmarshal(body, &event); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	branch := branchFromRef(event.Ref)
	if branch == "" {
		RespondWithError(w, http.StatusBadRequest, "Event ref is not a branch")
		return
	}

	trigger := workflow.TriggerEvent{
		Type:      models.TriggerPush,
		Branch:    branch,
		CommitSHA: event.After,
	}

	if !h.workflow.Matches(trigger) {
		// Acknowledged but ignored: the branch is not in the trigger filter
		log.Info().
			Str("branch", branch).
			Msg("Push event ignored, branch not in trigger filter")
		RespondWithSuccess(w, http.StatusAccepted, "Branch not in trigger filter, run not started", nil)
		return
	}

	repoURL := event.Repository.CloneURL
	if repoURL == "" {
		repoURL = h.runs.repoURL
	}

	run, err := h.runs.createAndEnqueue(r, models.TriggerPush, repoURL, branch, event.After)
	if err != nil {
		log.Error().Err(err).Str("branch", branch).Msg("Failed to start run for push event")
		RespondWithError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	RespondWithJSON(w, http.StatusAccepted, RunToResponse(run))
}

// branchFromRef extracts the branch name from a fully qualified ref
func branchFromRef(ref string) string {
	const prefix = "refs/heads/"
	if !strings.HasPrefix(ref, prefix) {
		return ""
	}
	return strings.TrimPrefix(ref, prefix)
}
