//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alvesdmateus/slotship/internal/api"
	"github.com/alvesdmateus/slotship/internal/queue"
	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/internal/workflow"
	"github.com/alvesdmateus/slotship/pkg/config"
	"github.com/alvesdmateus/slotship/pkg/models"
)

const (
	testJWTSecret     = "integration-jwt-secret"
	testWebhookSecret = "integration-webhook-secret"
	testRepoURL       = "https://example.com/word-mail-merge.git"
)

// recordingEnqueuer captures run payloads instead of pushing them to Redis
type recordingEnqueuer struct {
	payloads []*queue.RunPayload
}

func (f *recordingEnqueuer) EnqueueRunJob(ctx context.Context, payload *queue.RunPayload) error {
	f.payloads = append(f.payloads, payload)
	return nil
}

// APITestEnvironment holds test server and database for API integration tests
type APITestEnvironment struct {
	Server   *httptest.Server
	DB       *gorm.DB
	Repo     *state.Repository
	Workflow *workflow.Workflow
	Enqueuer *recordingEnqueuer
	Config   *config.Config
	t        *testing.T
}

// SetupAPITestEnvironment creates a new test environment with an in-memory
// SQLite database and a recording enqueuer in place of the Redis queue
func SetupAPITestEnvironment(t *testing.T) *APITestEnvironment {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := state.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	wf := &workflow.Workflow{
		Name: "deploy word-mail-merge",
		On: workflow.Triggers{
			Push:     &workflow.PushTrigger{Branches: []string{"main"}},
			Dispatch: true,
		},
		Runtime: workflow.RuntimeSpec{Python: "3.9"},
		Deploy:  workflow.DeploySpec{App: "word-mail-merge"},
	}

	cfg := &config.Config{
		Pipeline: config.PipelineConfig{
			RepoURL:      testRepoURL,
			WorkflowPath: "deploy.yml",
		},
		Auth: config.AuthConfig{
			JWTSecret:          testJWTSecret,
			JWTExpirationHours: 1,
			WebhookSecret:      testWebhookSecret,
		},
	}

	enqueuer := &recordingEnqueuer{}
	server := api.NewServer(db, cfg, wf, enqueuer)
	testServer := httptest.NewServer(server.Handler())

	env := &APITestEnvironment{
		Server:   testServer,
		DB:       db,
		Repo:     state.NewRepository(db),
		Workflow: wf,
		Enqueuer: enqueuer,
		Config:   cfg,
		t:        t,
	}

	t.Cleanup(func() {
		testServer.Close()
		db.Exec("DELETE FROM run_logs")
		db.Exec("DELETE FROM stage_executions")
		db.Exec("DELETE FROM pipeline_runs")
	})

	return env
}

// MakeRequest makes an HTTP request to the test server
func (e *APITestEnvironment) MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Response {
	e.t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		e.t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// GET makes a GET request
func (e *APITestEnvironment) GET(path string) *http.Response {
	return e.MakeRequest(http.MethodGet, path, nil, nil)
}

// POST makes a POST request
func (e *APITestEnvironment) POST(path string, body interface{}) *http.Response {
	return e.MakeRequest(http.MethodPost, path, body, nil)
}

// POSTSigned makes a webhook POST request with a valid payload signature
func (e *APITestEnvironment) POSTSigned(path string, body interface{}) *http.Response {
	e.t.Helper()

	jsonBody, err := json.Marshal(body)
	if err != nil {
		e.t.Fatalf("Failed to marshal request body: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.Server.URL+path, bytes.NewReader(jsonBody))
	if err != nil {
		e.t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.SignatureHeader, api.SignPayload(testWebhookSecret, jsonBody))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AuthToken issues a valid API token for authenticated endpoints
func (e *APITestEnvironment) AuthToken() string {
	e.t.Helper()

	token, _, err := api.IssueToken(&e.Config.Auth, "integration-tests")
	if err != nil {
		e.t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

// DecodeResponse decodes JSON response body into the provided struct
func (e *APITestEnvironment) DecodeResponse(resp *http.Response, v interface{}) {
	e.t.Helper()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		e.t.Fatalf("Failed to decode response: %v", err)
	}
}

// CreateTestRun creates a pipeline run directly in the database
func (e *APITestEnvironment) CreateTestRun(status models.RunStatus) *state.PipelineRun {
	e.t.Helper()

	run := &state.PipelineRun{
		ID:           uuid.New(),
		WorkflowName: e.Workflow.Name,
		AppName:      e.Workflow.Deploy.App,
		Slot:         e.Workflow.SlotName(),
		Trigger:      models.TriggerPush,
		RepoURL:      testRepoURL,
		Branch:       "main",
		Status:       status,
		CreatedAt:    time.Now(),
	}

	if err := e.Repo.CreateRun(context.Background(), run); err != nil {
		e.t.Fatalf("Failed to create test run: %v", err)
	}

	return run
}
