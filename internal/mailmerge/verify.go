package mailmerge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Verifier smoke-tests a freshly deployed word-mail-merge service: it
// checks the service info endpoint, then round-trips a minimal template
// through the document-merge endpoint.
type Verifier struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewVerifier creates a deployment verifier
func NewVerifier(logger zerolog.Logger) *Verifier {
	return &Verifier{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("component", "verify").Logger(),
	}
}

// serviceInfo is the merge service's root endpoint document
type serviceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// mergeRequest is the document-merge request body
type mergeRequest struct {
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

// mergeResponse is the document-merge response body
type mergeResponse struct {
	Success  bool     `json:"success"`
	Document string   `json:"document"`
	Fields   []string `json:"fields"`
	Error    string   `json:"error"`
}

// verifyData is the sample payload merged during verification
var verifyData = map[string]string{
	"client_name": "Deployment Verification",
	"date":        "2024-12-18",
}

// Verify checks the deployed service at baseURL responds correctly
func (v *Verifier) Verify(ctx context.Context, baseURL string) error {
	if err := v.checkServiceInfo(ctx, baseURL); err != nil {
		return err
	}

	if err := v.checkDocumentMerge(ctx, baseURL); err != nil {
		return err
	}

	v.logger.Info().Str("url", baseURL).Msg("Deployment verified")
	return nil
}

// checkServiceInfo verifies the root endpoint reports a running service
func (v *Verifier) checkServiceInfo(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create info request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deployed service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service info returned %d", resp.StatusCode)
	}

	var info serviceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("decode service info: %w", err)
	}

	if info.Status != "running" {
		return fmt.Errorf("service reports status %q", info.Status)
	}

	v.logger.Debug().
		Str("name", info.Name).
		Str("version", info.Version).
		Msg("Service info ok")

	return nil
}

// checkDocumentMerge round-trips a template through the merge endpoint and
// verifies the merged values appear in the returned document
func (v *Verifier) checkDocumentMerge(ctx context.Context, baseURL string) error {
	fields := make([]string, 0, len(verifyData))
	for field := range verifyData {
		fields = append(fields, field)
	}

	template, err := BuildTemplate(fields...)
	if err != nil {
		return fmt.Errorf("build verification template: %w", err)
	}

	body, err := json.Marshal(mergeRequest{
		Template: base64.StdEncoding.EncodeToString(template),
		Data:     verifyData,
	})
	if err != nil {
		return fmt.Errorf("encode merge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/api/document-merge", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create merge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("merge request failed: %w", err)
	}
	defer resp.Body.Close()

	var merged mergeResponse
	if err := json.NewDecoder(resp.Body).Decode(&merged); err != nil {
		return fmt.Errorf("decode merge response: %w", err)
	}

	if !merged.Success {
		return fmt.Errorf("merge endpoint reported failure: %s", merged.Error)
	}

	document, err := base64.StdEncoding.DecodeString(merged.Document)
	if err != nil {
		return fmt.Errorf("decode merged document: %w", err)
	}

	text, err := Text(document)
	if err != nil {
		return fmt.Errorf("read merged document: %w", err)
	}

	for field, value := range verifyData {
		if !bytes.Contains([]byte(text), []byte(value)) {
			return fmt.Errorf("merged document is missing value for field %q", field)
		}
	}

	return nil
}
