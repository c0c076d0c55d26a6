// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Exposes ingestion, question answering and cache tools via stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/AustinKang666/jarvis-assistant/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs Jarvis as an MCP (Model Context Protocol) server, enabling
LLM agents like Claude to ingest documents and ask questions
against the local knowledge base via stdio.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  jarvis mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "jarvis": {
  #       "command": "jarvis",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil && !quiet {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	eng, err := buildEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	if eng.client == nil {
		log.Println("Warning: OPENAI_API_KEY not set - ingestion and answering will be limited")
	}

	server := mcpserver.NewMCPServer(
		"Jarvis Knowledge Base",
		"0.1.0",
	)

	mcp.RegisterTools(server, eng.coordinator, eng.cache, eng.client)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		log.Println("Jarvis MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, shutting down")
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
