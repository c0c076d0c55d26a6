// ABOUTME: Cache entry and statistics models for the semantic response cache
// ABOUTME: Defines CacheEntry, CacheHit and CacheStats structures
package models

import "time"

// SourceType identifies where a cached response originally came from
type SourceType string

const (
	SourceDirect    SourceType = "direct"
	SourceRAG       SourceType = "rag"
	SourceWebSearch SourceType = "web_search"
)

// CacheEntry stores a cached response keyed by a content hash of the question
type CacheEntry struct {
	Question          string         `json:"question"`
	Response          string         `json:"response"`
	SourceType        SourceType     `json:"source_type"`
	CreatedAt         time.Time      `json:"created_at"`
	LastAccessed      time.Time      `json:"last_accessed"`
	AccessCount       int            `json:"access_count"`
	SimilarityMatches int            `json:"similarity_matches"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// CacheHit is the result of a successful cache lookup. Similarity and
// MatchedQuestion are populated only when the hit was found through
// semantic matching rather than an exact hash match.
type CacheHit struct {
	Entry           CacheEntry `json:"entry"`
	Similarity      float64    `json:"similarity,omitempty"`
	MatchedQuestion string     `json:"matched_question,omitempty"`
}

// EntryDigest is a short summary of a cache entry used in statistics
type EntryDigest struct {
	Question    string    `json:"question"`
	CreatedAt   time.Time `json:"created_at"`
	AccessCount int       `json:"access_count,omitempty"`
}

// CacheStats reports usage statistics for the response cache
type CacheStats struct {
	TotalEntries     int                `json:"total_entries"`
	CacheSizeBytes   int64              `json:"cache_size_bytes"`
	VectorSizeBytes  int64              `json:"vector_size_bytes"`
	SourceTypeCounts map[SourceType]int `json:"source_type_counts"`
	OldestEntry      *EntryDigest       `json:"oldest_entry,omitempty"`
	NewestEntry      *EntryDigest       `json:"newest_entry,omitempty"`
	MostAccessed     *EntryDigest       `json:"most_accessed,omitempty"`
}
