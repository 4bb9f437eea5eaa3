package mcpadapter

import (
	"context"
	"errors"

	"github.com/imathwy/tbps/internal/client"
	"github.com/imathwy/tbps/internal/health"
	"github.com/imathwy/tbps/internal/models"
	"github.com/imathwy/tbps/internal/search"
	"github.com/imathwy/tbps/internal/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FindSimilarInput is the MCP tool input schema for a similarity search.
type FindSimilarInput struct {
	Expression string   `json:"expression" jsonschema:"Lean expression to find similar theorems for"`
	K          int      `json:"k,omitempty" jsonschema:"number of results to return (1-100, default: 20)"`
	NodeRatio  *float64 `json:"node_ratio,omitempty" jsonschema:"node ratio filter (1.0-2.0, auto-determined if omitted)"`
	Server     string   `json:"server,omitempty" jsonschema:"backend to query: mock or production (default: configured server)"`
}

type CheckHealthInput struct {
	Server string `json:"server,omitempty" jsonschema:"backend to check: mock or production (default: configured server)"`
}

type CheckHealthOutput struct {
	Server            string `json:"server"`
	Status            string `json:"status"`
	Level             string `json:"level"`
	Version           string `json:"version"`
	DatabaseConnected bool   `json:"database_connected"`
	LeanAvailable     bool   `json:"lean_available"`
}

// NewFindSimilarHandler returns a tool handler that validates input and runs one search.
// Pass the returned function to mcp.AddTool.
func NewFindSimilarHandler(searcher search.Searcher, selection *server.Selection) func(context.Context, *mcp.CallToolRequest, FindSimilarInput) (*mcp.CallToolResult, models.SearchResponse, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FindSimilarInput) (*mcp.CallToolResult, models.SearchResponse, error) {
		return FindSimilar(ctx, searcher, selection, input)
	}
}

func FindSimilar(
	ctx context.Context,
	searcher search.Searcher,
	selection *server.Selection,
	input FindSimilarInput,
) (*mcp.CallToolResult, models.SearchResponse, error) {
	sel, err := resolveServer(input.Server, selection)
	if err != nil {
		return nil, models.SearchResponse{}, err
	}

	k := input.K
	if k == 0 {
		k = search.DefaultK
	}

	validation := search.ValidateParameters(models.SearchParameters{
		Expression: input.Expression,
		K:          k,
		NodeRatio:  input.NodeRatio,
	})
	if !validation.OK() {
		return nil, models.SearchResponse{}, validation.Err()
	}

	resp, err := searcher.FindSimilarTheorems(ctx, sel, validation.Params)
	if err != nil {
		return nil, models.SearchResponse{}, errors.New(client.Message(err))
	}

	return nil, *resp, nil
}

// NewCheckHealthHandler returns a tool handler reporting backend health.
// Pass the returned function to mcp.AddTool.
func NewCheckHealthHandler(checker health.Checker, selection *server.Selection) func(context.Context, *mcp.CallToolRequest, CheckHealthInput) (*mcp.CallToolResult, CheckHealthOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CheckHealthInput) (*mcp.CallToolResult, CheckHealthOutput, error) {
		sel, err := resolveServer(input.Server, selection)
		if err != nil {
			return nil, CheckHealthOutput{}, err
		}

		snapshot, err := checker.CheckHealth(ctx, sel)
		if err != nil {
			return nil, CheckHealthOutput{}, errors.New(client.Message(err))
		}

		return nil, CheckHealthOutput{
			Server:            string(sel),
			Status:            string(snapshot.Status),
			Level:             string(snapshot.Status.Level()),
			Version:           snapshot.Version,
			DatabaseConnected: snapshot.DatabaseConnected,
			LeanAvailable:     snapshot.LeanAvailable,
		}, nil
	}
}

func resolveServer(value string, selection *server.Selection) (server.Selector, error) {
	if value == "" {
		return selection.Get(), nil
	}
	return server.ParseSelector(value)
}
