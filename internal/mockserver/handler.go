package mockserver

import (
	"math/rand"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emicklei/go-restful/v3"
	"github.com/imathwy/tbps/internal/models"
	"github.com/rs/zerolog"
)

const (
	Version       = "1.0.0-mock"
	maxExpression = 1000
	defaultK      = 20
)

type Config struct {
	// Simulated processing time for each search, drawn uniformly from [MinLatency, MaxLatency].
	MinLatency time.Duration
	MaxLatency time.Duration

	DBFailureRate   float64
	LeanFailureRate float64
}

func DefaultConfig() Config {
	return Config{
		MinLatency:      1 * time.Second,
		MaxLatency:      3 * time.Second,
		DBFailureRate:   0.05,
		LeanFailureRate: 0.02,
	}
}

// SearchRequest is decoded with pointer fields so that missing keys can be told apart from zero values.
type SearchRequest struct {
	Expression *string  `json:"expression"`
	K          *int     `json:"k"`
	NodeRatio  *float64 `json:"node_ratio"`
}

// ValidationIssue mirrors one entry of a 422 detail list.
type ValidationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type ValidationResponse struct {
	Detail []ValidationIssue `json:"detail"`
}

type InfoResponse struct {
	Message   string   `json:"message"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
	Docs      string   `json:"docs"`
	Note      string   `json:"note"`
}

type MockInfoResponse struct {
	IsMock                bool     `json:"is_mock"`
	AvailableMockTheorems int      `json:"available_mock_theorems"`
	SampleTheorems        []string `json:"sample_theorems"`
	SampleStatements      []string `json:"sample_statements"`
	Features              []string `json:"features"`
}

type Handler struct {
	cfg    Config
	logger *zerolog.Logger
}

func NewHandler(cfg Config, logger *zerolog.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: logger,
	}
}

// POST /find-similar-theorems
// Body: SearchRequest
// Returns: models.SearchResponse
func (h *Handler) FindSimilarTheorems(req *restful.Request, resp *restful.Response) {
	var body SearchRequest
	if err := req.ReadEntity(&body); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to parse request body")
		resp.WriteHeaderAndEntity(http.StatusUnprocessableEntity, ValidationResponse{
			Detail: []ValidationIssue{{Loc: []string{"body"}, Msg: err.Error(), Type: "json_invalid"}},
		})
		return
	}

	if issues := validateRequest(&body); len(issues) > 0 {
		resp.WriteHeaderAndEntity(http.StatusUnprocessableEntity, ValidationResponse{Detail: issues})
		return
	}

	if !h.simulateLatency(req) {
		return
	}

	expression := *body.Expression
	if strings.TrimSpace(expression) == "" {
		writeDetail(resp, http.StatusBadRequest, "Expression cannot be empty")
		return
	}
	if utf8.RuneCountInString(expression) > maxExpression {
		writeDetail(resp, http.StatusBadRequest, "Expression too long (max 1000 characters)")
		return
	}

	k := defaultK
	if body.K != nil {
		k = *body.K
	}
	results := generateResults(expression, k)

	h.logger.Info().
		Int("k", k).
		Int("results", len(results)).
		Msg("Mock search complete")

	resp.WriteHeaderAndEntity(http.StatusOK, models.SearchResponse{
		Success:          true,
		Results:          results,
		TotalProcessed:   len(results),
		ExpressionParsed: parsedPreview(expression),
	})
}

// GET /health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	dbUp := rand.Float64() >= h.cfg.DBFailureRate
	leanUp := rand.Float64() >= h.cfg.LeanFailureRate

	status := models.HealthStatus("healthy")
	if !dbUp || !leanUp {
		status = "degraded"
	}

	resp.WriteHeaderAndEntity(http.StatusOK, models.HealthSnapshot{
		Status:            status,
		Version:           Version,
		DatabaseConnected: dbUp,
		LeanAvailable:     leanUp,
	})
}

// GET /
func (h *Handler) Root(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, InfoResponse{
		Message:   "Mock Theorem Similarity Search API",
		Version:   Version,
		Endpoints: []string{"/find-similar-theorems", "/health"},
		Docs:      "/apidocs.json",
		Note:      "This is a mock server for testing. Results are simulated.",
	})
}

// GET /mock-info
func (h *Handler) MockInfo(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, MockInfoResponse{
		IsMock:                true,
		AvailableMockTheorems: len(mockTheoremNames),
		SampleTheorems:        mockTheoremNames[:5],
		SampleStatements:      mockStatements[:3],
		Features: []string{
			"Consistent results for same input",
			"Realistic similarity scores",
			"Simulated processing delays",
			"Random service degradation for testing",
			"No external dependencies required",
		},
	})
}

// simulateLatency reports false when the client went away while waiting.
func (h *Handler) simulateLatency(req *restful.Request) bool {
	d := h.cfg.MinLatency
	if spread := h.cfg.MaxLatency - h.cfg.MinLatency; spread > 0 {
		d += time.Duration(rand.Int63n(int64(spread)))
	}
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-req.Request.Context().Done():
		h.logger.Debug().Msg("Client cancelled mock search")
		return false
	}
}

func validateRequest(body *SearchRequest) []ValidationIssue {
	var issues []ValidationIssue

	if body.Expression == nil {
		issues = append(issues, ValidationIssue{Loc: []string{"body", "expression"}, Msg: "Field required", Type: "missing"})
	}
	if body.K != nil {
		if *body.K < 1 {
			issues = append(issues, ValidationIssue{Loc: []string{"body", "k"}, Msg: "Input should be greater than or equal to 1", Type: "greater_than_equal"})
		} else if *body.K > 100 {
			issues = append(issues, ValidationIssue{Loc: []string{"body", "k"}, Msg: "Input should be less than or equal to 100", Type: "less_than_equal"})
		}
	}
	if body.NodeRatio != nil {
		if *body.NodeRatio < 1.0 {
			issues = append(issues, ValidationIssue{Loc: []string{"body", "node_ratio"}, Msg: "Input should be greater than or equal to 1", Type: "greater_than_equal"})
		} else if *body.NodeRatio > 2.0 {
			issues = append(issues, ValidationIssue{Loc: []string{"body", "node_ratio"}, Msg: "Input should be less than or equal to 2", Type: "less_than_equal"})
		}
	}

	return issues
}
