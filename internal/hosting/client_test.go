package hosting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04fake-zip-content"), 0644))
	return path
}

func newTestClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint:     endpoint,
		SiteSuffix:   "azurewebsites.net",
		PollInterval: 5 * time.Millisecond,
		Timeout:      2 * time.Second,
	}, zerolog.Nop())
}

func TestSiteURL(t *testing.T) {
	c := NewClient(Config{SiteSuffix: "azurewebsites.net"}, zerolog.Nop())

	assert.Equal(t, "https://word-mail-merge.azurewebsites.net",
		c.SiteURL(Target{App: "word-mail-merge", Slot: "production"}))
	assert.Equal(t, "https://word-mail-merge-staging.azurewebsites.net",
		c.SiteURL(Target{App: "word-mail-merge", Slot: "staging"}))
}

func TestSiteURLIdempotent(t *testing.T) {
	c := NewTestClientForURL(t)
	target := Target{App: "word-mail-merge", Slot: "production"}

	first := c.SiteURL(target)
	second := c.SiteURL(target)
	assert.Equal(t, first, second, "same target must always yield the same URL")
}

// NewTestClientForURL builds a client without a server, for URL derivation
func NewTestClientForURL(t *testing.T) *Client {
	t.Helper()
	return NewClient(Config{SiteSuffix: "azurewebsites.net"}, zerolog.Nop())
}

func TestDeployAsyncSuccess(t *testing.T) {
	var polls int

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("POST /api/zipdeploy", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "publisher", user)
		assert.Equal(t, "hunter2", pass)
		assert.Equal(t, "application/zip", r.Header.Get("Content-Type"))

		w.Header().Set("Location", srv.URL+"/api/deployments/latest")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /api/deployments/latest", func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := deploymentStatus{Status: DeployStatusInProgress}
		if polls >= 3 {
			status = deploymentStatus{Status: DeployStatusSuccess, Complete: true}
		}
		_ = json.NewEncoder(w).Encode(status)
	})

	c := newTestClient(srv.URL)
	result, err := c.Deploy(context.Background(), Target{App: "word-mail-merge", Slot: "production"},
		Credential{User: "publisher", Password: "hunter2"}, writeTestArchive(t))

	require.NoError(t, err)
	assert.Equal(t, "https://word-mail-merge.azurewebsites.net", result.URL)
	assert.Equal(t, DeployStatusSuccess, result.Status)
	assert.GreaterOrEqual(t, polls, 3)
}

func TestDeploySynchronousSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Deploy(context.Background(), Target{App: "word-mail-merge"},
		Credential{User: "publisher", Password: "hunter2"}, writeTestArchive(t))

	require.NoError(t, err)
	assert.Equal(t, DeployStatusSuccess, result.Status)
}

func TestDeployRejectedCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Deploy(context.Background(), Target{App: "word-mail-merge", Slot: "production"},
		Credential{User: "publisher", Password: "wrong"}, writeTestArchive(t))

	require.Error(t, err)
	var authErr ErrAuthenticationFailed
	assert.ErrorAs(t, err, &authErr)
	assert.NotContains(t, err.Error(), "wrong", "credential must not leak into error text")
}

func TestDeployPlatformFailure(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("POST /api/zipdeploy", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", srv.URL+"/api/deployments/latest")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /api/deployments/latest", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(deploymentStatus{Status: DeployStatusFailed, Complete: true})
	})

	c := newTestClient(srv.URL)
	_, err := c.Deploy(context.Background(), Target{App: "word-mail-merge", Slot: "production"},
		Credential{User: "publisher", Password: "hunter2"}, writeTestArchive(t))

	require.Error(t, err)
	var deployErr ErrDeploymentFailed
	assert.ErrorAs(t, err, &deployErr)
	assert.Equal(t, DeployStatusFailed, deployErr.Status)
}

func TestDeployMissingArchive(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")
	_, err := c.Deploy(context.Background(), Target{App: "a"}, Credential{}, "/nonexistent/app.zip")
	assert.Error(t, err)
}
