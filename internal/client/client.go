// Package client is a Go client for the press release console API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/prflow/internal/eligibility"
	"github.com/jonathan/prflow/internal/types"
)

// DefaultTimeout bounds each API call.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response. Detail holds the message; for validation
// failures Fields holds every field error and Detail the first message.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     []types.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Detail)
}

// Client calls the API at BaseURL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// RunAccepted is the response to a run submission.
type RunAccepted struct {
	OK    bool          `json:"ok"`
	RunID uuid.UUID     `json:"run_id"`
	Mode  types.RunMode `json:"mode"`
}

// Processed is the response to marking a release processed.
type Processed struct {
	OK          bool      `json:"ok"`
	ID          uuid.UUID `json:"id"`
	Unprocessed bool      `json:"unprocessed"`
}

// ListCompanies returns every company.
func (c *Client) ListCompanies(ctx context.Context) ([]types.Company, error) {
	var resp struct {
		Companies []types.Company `json:"companies"`
	}
	if err := c.do(ctx, http.MethodGet, "/companies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Companies, nil
}

// ListPressReleases returns a ticker's releases, newest first, without raw_result.
func (c *Client) ListPressReleases(ctx context.Context, ticker string) ([]types.PressRelease, error) {
	var resp struct {
		PressReleases []types.PressRelease `json:"press_releases"`
	}
	path := "/press-releases?ticker=" + url.QueryEscape(ticker)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.PressReleases, nil
}

// GetPressRelease returns one release with its crawl payload.
func (c *Client) GetPressRelease(ctx context.Context, id uuid.UUID) (*types.PressRelease, error) {
	var pr types.PressRelease
	if err := c.do(ctx, http.MethodGet, "/press-releases/"+id.String(), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// Eligibility returns the server's gate state for a release.
func (c *Client) Eligibility(ctx context.Context, id uuid.UUID) (*eligibility.Gates, error) {
	var gates eligibility.Gates
	if err := c.do(ctx, http.MethodGet, "/press-releases/"+id.String()+"/eligibility", nil, &gates); err != nil {
		return nil, err
	}
	return &gates, nil
}

// SubmitRun hands a release to the pipeline in the given mode.
func (c *Client) SubmitRun(ctx context.Context, id uuid.UUID, mode types.RunMode) (*RunAccepted, error) {
	var resp RunAccepted
	body := types.RunRequest{Mode: mode}
	if err := c.do(ctx, http.MethodPost, "/press-releases/"+id.String()+"/run", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkProcessed clears a release's unprocessed flag.
func (c *Client) MarkProcessed(ctx context.Context, id uuid.UUID) (*Processed, error) {
	var resp Processed
	if err := c.do(ctx, http.MethodPost, "/press-releases/"+id.String()+"/processed", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError reads {"detail": string} or {"detail": [{loc, msg}]}.
func decodeError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Detail) == 0 {
		apiErr.Detail = strings.TrimSpace(string(data))
		if apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(status)
		}
		return apiErr
	}

	var msg string
	if err := json.Unmarshal(envelope.Detail, &msg); err == nil {
		apiErr.Detail = msg
		return apiErr
	}
	var fields []types.FieldError
	if err := json.Unmarshal(envelope.Detail, &fields); err == nil && len(fields) > 0 {
		apiErr.Fields = fields
		apiErr.Detail = fields[0].Msg
		return apiErr
	}
	apiErr.Detail = string(envelope.Detail)
	return apiErr
}
