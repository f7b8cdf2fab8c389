// Package client is the Go SDK for the tracesmith daemon API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tracesmith/tracesmith/pkg/api"
	"github.com/tracesmith/tracesmith/pkg/dataset"
	"github.com/tracesmith/tracesmith/pkg/store"
)

// Client is the tracesmith SDK client.
type Client struct {
	endpoint string
	http     *http.Client
	backoff  RetryPolicy
	retries  int
}

// NewClient creates a new tracesmith client.
// endpoint defaults to "http://127.0.0.1:8098" if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8098"
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: DefaultBackoff(),
		retries: 3,
	}
}

// SetRetries overrides the retry budget for transient failures.
func (c *Client) SetRetries(n int, policy RetryPolicy) {
	c.retries = n
	if policy != nil {
		c.backoff = policy
	}
}

// Generate asks the daemon to generate and persist a dataset.
func (c *Client) Generate(ctx context.Context, req api.GenerateRequest) (api.GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return api.GenerateResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/datasets", bytes.NewReader(body))
	if err != nil {
		return api.GenerateResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return api.GenerateResponse{}, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return api.GenerateResponse{}, fmt.Errorf("daemon rejected request: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusCreated {
		return api.GenerateResponse{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var out api.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return api.GenerateResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// ListDatasets fetches metadata for all stored datasets, newest first.
func (c *Client) ListDatasets(ctx context.Context) ([]store.DatasetInfo, error) {
	var infos []store.DatasetInfo
	if err := c.getJSON(ctx, "/v1/datasets", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetDataset fetches a stored dataset's records.
func (c *Client) GetDataset(ctx context.Context, datasetID string) (dataset.Dataset, error) {
	var ds dataset.Dataset
	if err := c.getJSON(ctx, "/v1/datasets/"+url.PathEscape(datasetID), nil, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// GetRoots fetches hierarchy roots. Empty datasetID means the newest dataset.
func (c *Client) GetRoots(ctx context.Context, datasetID string, limit int) ([]api.RootEntry, error) {
	q := url.Values{}
	if datasetID != "" {
		q.Set("dataset", datasetID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var roots []api.RootEntry
	if err := c.getJSON(ctx, "/v1/roots", q, &roots); err != nil {
		return nil, err
	}
	return roots, nil
}

// GetHierarchy fetches one hierarchy's records by root trace id.
func (c *Client) GetHierarchy(ctx context.Context, datasetID, rootID string) (dataset.Dataset, error) {
	q := url.Values{}
	if datasetID != "" {
		q.Set("dataset", datasetID)
	}
	var ds dataset.Dataset
	if err := c.getJSON(ctx, "/v1/hierarchies/"+url.PathEscape(rootID), q, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// GetSummary fetches aggregate statistics. Empty datasetID means the newest
// dataset.
func (c *Client) GetSummary(ctx context.Context, datasetID string) (*dataset.Summary, error) {
	q := url.Values{}
	if datasetID != "" {
		q.Set("dataset", datasetID)
	}
	var sum dataset.Summary
	if err := c.getJSON(ctx, "/v1/summary", q, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// DeleteDataset removes a stored dataset.
func (c *Client) DeleteDataset(ctx context.Context, datasetID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint+"/v1/datasets/"+url.PathEscape(datasetID), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// Ping checks the health of the daemon.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// getJSON performs a GET with retry on transient failures and decodes the
// JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff.Delay(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("daemon unreachable: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("upstream error: status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
	return lastErr
}
