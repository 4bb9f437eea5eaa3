package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/imathwy/tbps/internal/mcpadapter"
	"github.com/imathwy/tbps/internal/setup"
	"github.com/imathwy/tbps/internal/setup/logger"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

func main() {
	// stdout carries the MCP protocol, so logs go to stderr
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	_ = godotenv.Load()

	cfg, err := setup.LoadConfig()
	if err != nil {
		bootLogger := logger.NewConsole("info")
		bootLogger.Error().Err(err).Msg("Unable to load config")
		os.Exit(1)
	}
	log := logger.NewConsole(cfg.LogLevel)

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := setup.Wire(ctx, cfg, &log)
	if err != nil {
		log.Error().Err(err).Msg("Unable to load dependencies")
		os.Exit(1)
	}
	defer deps.Close()

	server := createMCPServer(deps)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		// EOF / "server is closing" is expected when stdin closes
		if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "server is closing") {
			log.Debug().Err(err).Msg("MCP server stopped")
			return
		}
		log.Error().Err(err).Msg("Failed to run mcp server")
		os.Exit(1)
	}
}

func createMCPServer(deps *setup.Dependencies) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "tbps",
			Version: "1.0.0",
		}, nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_similar_theorems",
		Description: "Find Mathlib theorems structurally similar to a Lean expression. Returns ranked results with similarity scores.",
	}, mcpadapter.NewFindSimilarHandler(deps.Client, deps.Selection))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_health",
		Description: "Check the health of the theorem search backend (mock or production).",
	}, mcpadapter.NewCheckHealthHandler(deps.Client, deps.Selection))

	return server
}
