package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/imathwy/tbps/internal/models"
	"github.com/imathwy/tbps/internal/server"
	"github.com/rs/zerolog"
)

const DefaultTimeout = 30 * time.Second

const (
	healthPath   = "/health"
	searchPath   = "/find-similar-theorems"
	mockInfoPath = "/mock-info"
)

// Client talks to the theorem similarity backend selected per call.
// It never retries; every call is a single request/response.
type Client struct {
	httpClient *http.Client
	registry   *server.Registry
	logger     *zerolog.Logger
}

func NewClient(registry *server.Registry, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		registry:   registry,
		logger:     logger,
	}
}

// NewClientWithHTTP uses a caller supplied http.Client, mainly for tests.
func NewClientWithHTTP(registry *server.Registry, httpClient *http.Client, logger *zerolog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		registry:   registry,
		logger:     logger,
	}
}

func (c *Client) CheckHealth(ctx context.Context, sel server.Selector) (*models.HealthSnapshot, error) {
	body, status, err := c.do(ctx, sel, http.MethodGet, healthPath, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &HealthCheckError{Path: healthPath, StatusCode: status}
	}

	snapshot, err := decodeHealth(body)
	if err != nil {
		return nil, &DeserializationError{Path: healthPath, Err: err}
	}
	return snapshot, nil
}

func (c *Client) FindSimilarTheorems(ctx context.Context, sel server.Selector, params models.SearchParameters) (*models.SearchResponse, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search parameters: %w", err)
	}

	body, status, err := c.do(ctx, sel, http.MethodPost, searchPath, payload)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &SearchError{StatusCode: status, Message: errorDetail(body, status)}
	}

	response, err := decodeSearch(body)
	if err != nil {
		return nil, &DeserializationError{Path: searchPath, Err: err}
	}
	return response, nil
}

// GetMockInfo is only served by the mock backend. Other selectors fail
// before any request is made.
func (c *Client) GetMockInfo(ctx context.Context, sel server.Selector) (map[string]any, error) {
	if sel != server.Mock {
		return nil, &UnsupportedOperationError{Operation: "mock info", Selector: sel}
	}

	body, status, err := c.do(ctx, sel, http.MethodGet, mockInfoPath, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &HealthCheckError{Path: mockInfoPath, StatusCode: status}
	}

	var info map[string]any
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &DeserializationError{Path: mockInfoPath, Err: err}
	}
	return info, nil
}

func (c *Client) do(ctx context.Context, sel server.Selector, method string, path string, payload []byte) ([]byte, int, error) {
	baseURL, err := c.registry.BaseURL(sel)
	if err != nil {
		return nil, 0, err
	}
	url := baseURL + path

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("url", url).Msg("request failed")
		return nil, 0, &ConnectionError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &ConnectionError{Method: method, URL: url, Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request complete")

	return body, resp.StatusCode, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// errorDetail extracts {"detail": "..."} from an error body, falling back to
// the status code.
func errorDetail(body []byte, status int) string {
	var errBody struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil {
		if detail, ok := errBody.Detail.(string); ok && detail != "" {
			return detail
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
