// ABOUTME: Retriever formats top-k vector store results into ranked context passages
// ABOUTME: Returns an empty string when no local context clears the relevance floor
package rag

import (
	"fmt"
	"log"
	"strings"
)

// Encoder maps text to a fixed-dimension embedding vector. It must be
// deterministic for identical input.
type Encoder interface {
	Encode(text string) ([]float64, error)
	EncodeBatch(texts []string) ([][]float64, error)
}

// Retriever wraps a VectorStore to produce formatted context for a query
type Retriever struct {
	store   *VectorStore
	encoder Encoder
	topK    int
}

// NewRetriever creates a retriever. Non-positive topK falls back to the default.
func NewRetriever(store *VectorStore, encoder Encoder, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, encoder: encoder, topK: topK}
}

// GetContext retrieves the top-k passages for a query and formats them as
// numbered passages with similarity scores and source metadata, highest
// first. An empty result means "no local context available", not an error.
func (r *Retriever) GetContext(query string) string {
	if r.store.Len() == 0 || r.encoder == nil {
		return ""
	}

	queryVector, err := r.encoder.Encode(query)
	if err != nil {
		log.Printf("Warning: embedding query failed: %v", err)
		return ""
	}

	results, err := r.store.Search(queryVector, r.topK)
	if err != nil {
		log.Printf("Warning: vector search failed: %v", err)
		return ""
	}

	var b strings.Builder
	n := 0
	for _, result := range results {
		// Relevance floor: drop non-positive similarities
		if result.Score <= 0 {
			continue
		}
		n++
		fmt.Fprintf(&b, "Passage %d [relevance: %.2f]:\n", n, result.Score)
		b.WriteString(strings.TrimSpace(result.Chunk.Text))
		b.WriteString("\n\n")
		if result.Chunk.Metadata.Source != "" {
			fmt.Fprintf(&b, "Source: %s\n\n", result.Chunk.Metadata.Source)
		}
	}
	if n == 0 {
		return ""
	}

	return "Here is information relevant to your question:\n\n" + strings.TrimSpace(b.String())
}
