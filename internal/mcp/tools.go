// ABOUTME: MCP tool definitions and registration for the Jarvis engine
// ABOUTME: Exposes document ingestion, augmented asking and cache management
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/AustinKang666/jarvis-assistant/internal/cache"
	"github.com/AustinKang666/jarvis-assistant/internal/llm"
	"github.com/AustinKang666/jarvis-assistant/internal/rag"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, coordinator *rag.Coordinator, responseCache *cache.ResponseCache, client *llm.OpenAIClient) *Handlers {
	handlers := &Handlers{
		coordinator: coordinator,
		cache:       responseCache,
		client:      client,
	}

	// 1. ingest_document - add a document to the knowledge base
	server.AddTool(mcp.Tool{
		Name:        "ingest_document",
		Description: "Ingest a document file into the knowledge base. The file is chunked, embedded and indexed for retrieval.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the document file (.txt or .md)",
				},
			},
			Required: []string{"path"},
		},
	}, handlers.IngestDocument)

	// 2. ask_knowledge_base - cached, retrieval-augmented answering
	server.AddTool(mcp.Tool{
		Name:        "ask_knowledge_base",
		Description: "Answer a question using the knowledge base. Checks the semantic response cache first, then builds a retrieval-augmented prompt.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question to answer",
				},
				"allow_web_search": map[string]interface{}{
					"type":        "boolean",
					"description": "Allow the web-search supplement when local context is thin (default: false)",
					"default":     false,
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskKnowledgeBase)

	// 3. cache_stats - response cache usage statistics
	server.AddTool(mcp.Tool{
		Name:        "cache_stats",
		Description: "Get usage statistics for the semantic response cache.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.CacheStats)

	// 4. clear_cache - drop all cached responses
	server.AddTool(mcp.Tool{
		Name:        "clear_cache",
		Description: "Clear every entry from the semantic response cache.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ClearCache)

	return handlers
}
