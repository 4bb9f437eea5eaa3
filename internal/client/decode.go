package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/imathwy/tbps/internal/models"
)

// The wire types use pointers so a missing field can be told apart from a
// zero value. Missing fields are never defaulted.

type healthWire struct {
	Status            *string `json:"status"`
	Version           *string `json:"version"`
	DatabaseConnected *bool   `json:"database_connected"`
	LeanAvailable     *bool   `json:"lean_available"`
}

type theoremWire struct {
	Name            *string  `json:"name"`
	SimilarityScore *float64 `json:"similarity_score"`
	Statement       *string  `json:"statement"`
	NodeCount       *int     `json:"node_count"`
}

type searchWire struct {
	Success          *bool          `json:"success"`
	Results          *[]theoremWire `json:"results"`
	TotalProcessed   *int           `json:"total_processed"`
	ExpressionParsed *string        `json:"expression_parsed"`
}

var errNullBody = errors.New("response body is null")

func missingField(name string) error {
	return fmt.Errorf("missing field %q", name)
}

func decodeHealth(body []byte) (*models.HealthSnapshot, error) {
	var wire *healthWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, errNullBody
	}

	switch {
	case wire.Status == nil:
		return nil, missingField("status")
	case wire.Version == nil:
		return nil, missingField("version")
	case wire.DatabaseConnected == nil:
		return nil, missingField("database_connected")
	case wire.LeanAvailable == nil:
		return nil, missingField("lean_available")
	}

	return &models.HealthSnapshot{
		Status:            models.HealthStatus(*wire.Status),
		Version:           *wire.Version,
		DatabaseConnected: *wire.DatabaseConnected,
		LeanAvailable:     *wire.LeanAvailable,
	}, nil
}

func decodeSearch(body []byte) (*models.SearchResponse, error) {
	var wire *searchWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, errNullBody
	}

	switch {
	case wire.Success == nil:
		return nil, missingField("success")
	case wire.Results == nil:
		return nil, missingField("results")
	case wire.TotalProcessed == nil:
		return nil, missingField("total_processed")
	case wire.ExpressionParsed == nil:
		return nil, missingField("expression_parsed")
	}

	results := make([]models.TheoremResult, 0, len(*wire.Results))
	for i, r := range *wire.Results {
		result, err := r.toModel()
		if err != nil {
			return nil, fmt.Errorf("results[%d]: %w", i, err)
		}
		results = append(results, result)
	}

	return &models.SearchResponse{
		Success:          *wire.Success,
		Results:          results,
		TotalProcessed:   *wire.TotalProcessed,
		ExpressionParsed: *wire.ExpressionParsed,
	}, nil
}

func (w theoremWire) toModel() (models.TheoremResult, error) {
	switch {
	case w.Name == nil:
		return models.TheoremResult{}, missingField("name")
	case w.SimilarityScore == nil:
		return models.TheoremResult{}, missingField("similarity_score")
	case w.Statement == nil:
		return models.TheoremResult{}, missingField("statement")
	case w.NodeCount == nil:
		return models.TheoremResult{}, missingField("node_count")
	}

	return models.TheoremResult{
		Name:            *w.Name,
		SimilarityScore: *w.SimilarityScore,
		Statement:       *w.Statement,
		NodeCount:       *w.NodeCount,
	}, nil
}
