package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvesdmateus/slotship/pkg/models"
)

func TestDispatchRun(t *testing.T) {
	handler, enqueuer, _ := setupWebhookTest(t)
	runs := handler.runs

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/dispatch",
		strings.NewReader(`{"branch":"main"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	runs.DispatchRun(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp models.RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.TriggerDispatch, resp.Trigger)
	assert.Equal(t, models.StatusQueued, resp.Status)

	require.Len(t, enqueuer.payloads, 1)
	assert.Equal(t, "dispatch", enqueuer.payloads[0].Trigger)
	assert.Equal(t, "https://example.com/acme/word-mail-merge.git", enqueuer.payloads[0].RepoURL)
}

func TestDispatchRunNotAllowed(t *testing.T) {
	handler, enqueuer, _ := setupWebhookTest(t)
	runs := handler.runs
	runs.workflow.On.Dispatch = false
	t.Cleanup(func() { runs.workflow.On.Dispatch = true })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/dispatch", nil)
	rec := httptest.NewRecorder()
	runs.DispatchRun(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, enqueuer.payloads)
}

func TestGetRunInvalidID(t *testing.T) {
	handler, _, _ := setupWebhookTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	handler.runs.GetRun(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
