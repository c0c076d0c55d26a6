// ABOUTME: SearchResult pairs a retrieved chunk with its similarity score
// ABOUTME: Returned by VectorStore.Search ordered by descending score
package models

// SearchResult represents a retrieved chunk with its cosine similarity score
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
