// ABOUTME: MCP tool handler implementations for the Jarvis engine
// ABOUTME: Wraps the retrieval coordinator and response cache with JSON results
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AustinKang666/jarvis-assistant/internal/cache"
	"github.com/AustinKang666/jarvis-assistant/internal/llm"
	"github.com/AustinKang666/jarvis-assistant/internal/rag"
)

const answerSystemPrompt = "You are Jarvis, a helpful assistant. Answer using the provided context when it is relevant, and say so when it is not."

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	coordinator *rag.Coordinator
	cache       *cache.ResponseCache
	client      *llm.OpenAIClient // nil disables generation; the augmented prompt is returned instead
}

// IngestDocument handles the ingest_document tool
func (h *Handlers) IngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path argument is required and must be a string"), nil
	}

	ok := h.coordinator.Ingest(path)

	response := map[string]interface{}{
		"ingested":     ok,
		"path":         path,
		"chunks_total": h.coordinator.Store().Len(),
	}
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// AskKnowledgeBase handles the ask_knowledge_base tool
func (h *Handlers) AskKnowledgeBase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	allowWeb := request.GetBool("allow_web_search", false)

	// Cache first: identical or similar questions skip generation entirely
	if hit, ok := h.cache.Get(question); ok {
		h.cache.UpdateStats(hit.Entry.Question)
		response := map[string]interface{}{
			"answer":      hit.Entry.Response,
			"cached":      true,
			"source_type": string(hit.Entry.SourceType),
		}
		if hit.MatchedQuestion != "" {
			response["similarity"] = hit.Similarity
			response["matched_question"] = hit.MatchedQuestion
		}
		responseJSON, err := json.Marshal(response)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(responseJSON)), nil
	}

	prompt, sourceType := h.coordinator.QueryWithContext(question, allowWeb)
	augmented := prompt != question

	response := map[string]interface{}{
		"cached":    false,
		"augmented": augmented,
	}

	if h.client == nil {
		// No generation backend: hand the augmented prompt back to the agent
		response["prompt"] = prompt
	} else {
		answer, err := h.client.Generate([]llm.Message{{Role: "user", Content: prompt}}, answerSystemPrompt)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
		}
		h.cache.Add(question, answer, sourceType, nil)
		response["answer"] = answer
		response["source_type"] = string(sourceType)
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// CacheStats handles the cache_stats tool
func (h *Handlers) CacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := h.cache.Stats()
	responseJSON, err := json.Marshal(stats)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// ClearCache handles the clear_cache tool
func (h *Handlers) ClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.cache.Clear()
	responseJSON, err := json.Marshal(map[string]interface{}{"cleared": true})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
