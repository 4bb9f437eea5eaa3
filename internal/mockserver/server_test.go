package mockserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/imathwy/tbps/internal/client"
	"github.com/imathwy/tbps/internal/mockserver"
	"github.com/imathwy/tbps/internal/models"
	"github.com/imathwy/tbps/internal/server"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// setupTestAPI builds the mock API with no simulated latency or outages.
func setupTestAPI(t *testing.T) *restful.Container {
	t.Helper()
	return mockserver.NewContainer(mockserver.Config{}, newTestLogger())
}

func postSearch(t *testing.T, container *restful.Container, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/find-similar-theorems", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)
	return recorder
}

func TestAPI_Health(t *testing.T) {
	container := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", recorder.Code)
	}

	var response models.HealthSnapshot
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if response.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", response.Status)
	}
	if response.Version != mockserver.Version {
		t.Errorf("Expected version %s, got %s", mockserver.Version, response.Version)
	}
}

func TestAPI_Health_Degraded(t *testing.T) {
	container := mockserver.NewContainer(mockserver.Config{DBFailureRate: 1.1}, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)

	var response models.HealthSnapshot
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if response.Status != "degraded" {
		t.Errorf("Expected status 'degraded', got '%s'", response.Status)
	}
	if response.DatabaseConnected {
		t.Error("Expected database_connected=false")
	}
}

func TestAPI_FindSimilarTheorems(t *testing.T) {
	container := setupTestAPI(t)

	recorder := postSearch(t, container, `{"expression":"∀ (a b : Nat), a + b = b + a","k":5}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response models.SearchResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if !response.Success {
		t.Error("Expected success=true")
	}
	if len(response.Results) != 5 || response.TotalProcessed != 5 {
		t.Fatalf("Expected 5 results, got %d (total_processed %d)", len(response.Results), response.TotalProcessed)
	}
	for i := 1; i < len(response.Results); i++ {
		if response.Results[i].SimilarityScore > response.Results[i-1].SimilarityScore {
			t.Errorf("Results not sorted by score at index %d", i)
		}
	}
	for _, r := range response.Results {
		if r.SimilarityScore < 0.1 || r.SimilarityScore > 0.99 {
			t.Errorf("Score %v out of range", r.SimilarityScore)
		}
		if r.NodeCount < 10 || r.NodeCount > 150 {
			t.Errorf("Node count %d out of range", r.NodeCount)
		}
	}
	if response.ExpressionParsed != "Mock parsed: ∀ (a b : Nat), a + b = b + a" {
		t.Errorf("Unexpected expression_parsed: %s", response.ExpressionParsed)
	}
}

func TestAPI_FindSimilarTheorems_Deterministic(t *testing.T) {
	container := setupTestAPI(t)
	body := `{"expression":"x + 0 = x","k":10}`

	first := postSearch(t, container, body)
	second := postSearch(t, container, body)

	var a, b models.SearchResponse
	json.Unmarshal(first.Body.Bytes(), &a)
	json.Unmarshal(second.Body.Bytes(), &b)

	if !reflect.DeepEqual(a, b) {
		t.Error("Expected identical results for identical input")
	}
}

func TestAPI_FindSimilarTheorems_DefaultsAndCaps(t *testing.T) {
	container := setupTestAPI(t)

	recorder := postSearch(t, container, `{"expression":"p ∧ q"}`)
	var response models.SearchResponse
	json.Unmarshal(recorder.Body.Bytes(), &response)
	if len(response.Results) != 20 {
		t.Errorf("Expected default of 20 results, got %d", len(response.Results))
	}

	recorder = postSearch(t, container, `{"expression":"p ∧ q","k":100}`)
	json.Unmarshal(recorder.Body.Bytes(), &response)
	if len(response.Results) != 30 {
		t.Errorf("Expected results capped at catalogue size 30, got %d", len(response.Results))
	}
}

func TestAPI_FindSimilarTheorems_LongExpressionPreview(t *testing.T) {
	container := setupTestAPI(t)
	expression := strings.Repeat("α", 60)

	recorder := postSearch(t, container, `{"expression":"`+expression+`","k":1}`)
	var response models.SearchResponse
	json.Unmarshal(recorder.Body.Bytes(), &response)

	want := "Mock parsed: " + strings.Repeat("α", 50) + "..."
	if response.ExpressionParsed != want {
		t.Errorf("Expected %q, got %q", want, response.ExpressionParsed)
	}
}

func TestAPI_FindSimilarTheorems_Errors(t *testing.T) {
	container := setupTestAPI(t)

	tests := []struct {
		name   string
		body   string
		status int
		detail string
	}{
		{"blank expression", `{"expression":"   ","k":5}`, http.StatusBadRequest, "Expression cannot be empty"},
		{"too long", `{"expression":"` + strings.Repeat("a", 1001) + `"}`, http.StatusBadRequest, "Expression too long (max 1000 characters)"},
		{"k too small", `{"expression":"x","k":0}`, http.StatusUnprocessableEntity, ""},
		{"k too large", `{"expression":"x","k":101}`, http.StatusUnprocessableEntity, ""},
		{"node ratio out of range", `{"expression":"x","node_ratio":2.5}`, http.StatusUnprocessableEntity, ""},
		{"missing expression", `{"k":5}`, http.StatusUnprocessableEntity, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := postSearch(t, container, tt.body)
			if recorder.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, recorder.Code)
			}
			if tt.detail == "" {
				return
			}

			var response mockserver.ErrorResponse
			if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if response.Detail != tt.detail {
				t.Errorf("Expected detail %q, got %q", tt.detail, response.Detail)
			}
		})
	}
}

func TestAPI_MockInfo(t *testing.T) {
	container := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/mock-info", nil)
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)

	var response mockserver.MockInfoResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if !response.IsMock {
		t.Error("Expected is_mock=true")
	}
	if response.AvailableMockTheorems != 30 {
		t.Errorf("Expected 30 mock theorems, got %d", response.AvailableMockTheorems)
	}
	if len(response.SampleTheorems) != 5 || len(response.SampleStatements) != 3 {
		t.Errorf("Unexpected sample sizes: %d theorems, %d statements", len(response.SampleTheorems), len(response.SampleStatements))
	}
}

func TestAPI_APIDocs(t *testing.T) {
	container := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, mockserver.APIDocsPath, nil)
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "/find-similar-theorems") {
		t.Error("Expected OpenAPI document to describe /find-similar-theorems")
	}
}

// The client and the mock server agree on the wire format end to end.
func TestAPI_WithClient(t *testing.T) {
	srv := httptest.NewServer(setupTestAPI(t))
	defer srv.Close()

	c := client.NewClient(server.NewRegistry(srv.URL, ""), 5*time.Second, newTestLogger())
	ctx := context.Background()

	health, err := c.CheckHealth(ctx, server.Mock)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if health.Status.Level() != models.HealthLevelHealthy {
		t.Errorf("Expected healthy, got %s", health.Status)
	}

	ratio := 1.5
	resp, err := c.FindSimilarTheorems(ctx, server.Mock, models.SearchParameters{Expression: "a * b = b * a", K: 3, NodeRatio: &ratio})
	if err != nil {
		t.Fatalf("FindSimilarTheorems failed: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(resp.Results))
	}

	_, err = c.FindSimilarTheorems(ctx, server.Mock, models.SearchParameters{Expression: " ", K: 3})
	var searchErr *client.SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("Expected SearchError, got %v", err)
	}
	if searchErr.Message != "Expression cannot be empty" {
		t.Errorf("Expected backend detail verbatim, got %q", searchErr.Message)
	}

	info, err := c.GetMockInfo(ctx, server.Mock)
	if err != nil {
		t.Fatalf("GetMockInfo failed: %v", err)
	}
	if info["is_mock"] != true {
		t.Errorf("Expected is_mock=true, got %v", info["is_mock"])
	}
}
