package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Client publishes zip archives to hosting slots and reports the
// resulting public URL
type Client struct {
	httpClient   *http.Client
	endpoint     string
	scmSuffix    string
	siteSuffix   string
	pollInterval time.Duration
	timeout      time.Duration
	logger       zerolog.Logger
}

// Config holds hosting client settings
type Config struct {
	SCMSuffix    string // management endpoint suffix, e.g. "scm.azurewebsites.net"
	SiteSuffix   string // public site suffix, e.g. "azurewebsites.net"
	Endpoint     string // explicit management endpoint, overrides SCMSuffix when set
	PollInterval time.Duration
	Timeout      time.Duration
}

// NewClient creates a hosting client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Client{
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		endpoint:     cfg.Endpoint,
		scmSuffix:    cfg.SCMSuffix,
		siteSuffix:   cfg.SiteSuffix,
		pollInterval: pollInterval,
		timeout:      timeout,
		logger:       logger.With().Str("component", "hosting").Logger(),
	}
}

// SiteURL returns the public URL for a target. The URL is a pure function
// of app name and slot, so repeated deployments land at the same address.
func (c *Client) SiteURL(target Target) string {
	host := target.App
	if target.Slot != "" && target.Slot != "production" {
		host = fmt.Sprintf("%s-%s", target.App, target.Slot)
	}
	return fmt.Sprintf("https://%s.%s", host, c.siteSuffix)
}

// scmBase returns the slot's management endpoint
func (c *Client) scmBase(target Target) string {
	if c.endpoint != "" {
		return c.endpoint
	}
	host := target.App
	if target.Slot != "" && target.Slot != "production" {
		host = fmt.Sprintf("%s-%s", target.App, target.Slot)
	}
	return fmt.Sprintf("https://%s.%s", host, c.scmSuffix)
}

// Deploy uploads a zip archive to the target slot and waits for the
// platform to finish applying it. The platform's slot mechanism only swaps
// in a fully-uploaded artifact, so a failed run leaves no partial
// deployment visible.
func (c *Client) Deploy(ctx context.Context, target Target, cred Credential, archivePath string) (*Result, error) {
	start := time.Now()

	archive, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	info, err := archive.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	c.logger.Info().
		Str("app", target.App).
		Str("slot", target.Slot).
		Int64("archive_bytes", info.Size()).
		Msg("Uploading deployment archive")

	pollURL, err := c.upload(ctx, target, cred, archive, info.Size())
	if err != nil {
		return nil, err
	}

	status, err := c.waitForDeployment(ctx, target, cred, pollURL)
	if err != nil {
		return nil, err
	}

	result := &Result{
		URL:        c.SiteURL(target),
		Status:     status,
		DurationMS: time.Since(start).Milliseconds(),
	}

	c.logger.Info().
		Str("app", target.App).
		Str("slot", target.Slot).
		Str("url", result.URL).
		Int64("duration_ms", result.DurationMS).
		Msg("Deployment completed")

	return result, nil
}

// upload pushes the archive to the slot's zipdeploy endpoint and returns
// the URL to poll for deployment status
func (c *Client) upload(ctx context.Context, target Target, cred Credential, archive io.Reader, size int64) (string, error) {
	uploadURL := c.scmBase(target) + "/api/zipdeploy?isAsync=true"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, archive)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.SetBasicAuth(cred.User, cred.Password)
	req.Header.Set("Content-Type", "application/zip")
	req.ContentLength = size

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		// Accepted: poll the Location header; OK: synchronous deploy
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrAuthenticationFailed{Target: target}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, string(body))
	}

	if resp.StatusCode == http.StatusOK {
		return "", nil
	}

	pollURL := resp.Header.Get("Location")
	if pollURL == "" {
		return "", fmt.Errorf("async upload accepted but no status location returned")
	}

	return pollURL, nil
}

// deploymentStatus is the platform's deployment status document
type deploymentStatus struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Complete bool   `json:"complete"`
	Message  string `json:"message"`
}

// waitForDeployment polls the deployment status URL until the platform
// reports a terminal state
func (c *Client) waitForDeployment(ctx context.Context, target Target, cred Credential, pollURL string) (string, error) {
	if pollURL == "" {
		return DeployStatusSuccess, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.fetchStatus(ctx, cred, pollURL)
		if err != nil {
			return "", err
		}

		c.logger.Debug().
			Str("app", target.App).
			Str("status", status.Status).
			Bool("complete", status.Complete).
			Msg("Deployment status")

		if status.Complete {
			if status.Status != DeployStatusSuccess {
				return status.Status, ErrDeploymentFailed{Target: target, Status: status.Status}
			}
			return status.Status, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("deployment status wait: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// fetchStatus retrieves one deployment status document
func (c *Client) fetchStatus(ctx context.Context, cred Credential, pollURL string) (*deploymentStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	req.SetBasicAuth(cred.User, cred.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch deployment status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deployment status returned %d", resp.StatusCode)
	}

	var status deploymentStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode deployment status: %w", err)
	}

	return &status, nil
}
