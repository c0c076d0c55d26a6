// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies environment variable parsing and validation
package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify defaults
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %s, want gpt-4o-mini", cfg.ChatModel)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %s, want text-embedding-3-small", cfg.EmbeddingModel)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.RetryDelay)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %s, want data", cfg.DataDir)
	}
	if cfg.ChunkSize != 1000 {
		t.Errorf("ChunkSize = %d, want 1000", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 200 {
		t.Errorf("ChunkOverlap = %d, want 200", cfg.ChunkOverlap)
	}
	if cfg.TopK != 3 {
		t.Errorf("TopK = %d, want 3", cfg.TopK)
	}
	if cfg.MinContextChars != 200 {
		t.Errorf("MinContextChars = %d, want 200", cfg.MinContextChars)
	}
	if cfg.SimilarityThreshold != 0.85 {
		t.Errorf("SimilarityThreshold = %f, want 0.85", cfg.SimilarityThreshold)
	}
	if cfg.CacheTTLDays != 7 {
		t.Errorf("CacheTTLDays = %d, want 7", cfg.CacheTTLDays)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	// Set custom environment variables
	os.Clearenv()
	os.Setenv("OPENAI_API_KEY", "test-key")
	os.Setenv("JARVIS_CHAT_MODEL", "gpt-4")
	os.Setenv("JARVIS_EMBEDDING_MODEL", "text-embedding-3-large")
	os.Setenv("OPENAI_TIMEOUT", "60s")
	os.Setenv("OPENAI_MAX_RETRIES", "5")
	os.Setenv("OPENAI_RETRY_DELAY", "3s")
	os.Setenv("JARVIS_DATA_DIR", "/tmp/jarvis")
	os.Setenv("CHUNK_SIZE", "500")
	os.Setenv("CHUNK_OVERLAP", "100")
	os.Setenv("TOP_K", "5")
	os.Setenv("MIN_CONTEXT_CHARS", "300")
	os.Setenv("SIMILARITY_THRESHOLD", "0.9")
	os.Setenv("CACHE_TTL_DAYS", "14")
	os.Setenv("SERPAPI_KEY", "serp-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify custom values
	if cfg.OpenAIKey != "test-key" {
		t.Errorf("OpenAIKey = %s, want test-key", cfg.OpenAIKey)
	}
	if cfg.ChatModel != "gpt-4" {
		t.Errorf("ChatModel = %s, want gpt-4", cfg.ChatModel)
	}
	if cfg.EmbeddingModel != "text-embedding-3-large" {
		t.Errorf("EmbeddingModel = %s, want text-embedding-3-large", cfg.EmbeddingModel)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 3*time.Second {
		t.Errorf("RetryDelay = %v, want 3s", cfg.RetryDelay)
	}
	if cfg.DataDir != "/tmp/jarvis" {
		t.Errorf("DataDir = %s, want /tmp/jarvis", cfg.DataDir)
	}
	if cfg.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want 500", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 100 {
		t.Errorf("ChunkOverlap = %d, want 100", cfg.ChunkOverlap)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if cfg.MinContextChars != 300 {
		t.Errorf("MinContextChars = %d, want 300", cfg.MinContextChars)
	}
	if cfg.SimilarityThreshold != 0.9 {
		t.Errorf("SimilarityThreshold = %f, want 0.9", cfg.SimilarityThreshold)
	}
	if cfg.CacheTTLDays != 14 {
		t.Errorf("CacheTTLDays = %d, want 14", cfg.CacheTTLDays)
	}
	if cfg.SerpAPIKey != "serp-key" {
		t.Errorf("SerpAPIKey = %s, want serp-key", cfg.SerpAPIKey)
	}
}

func TestValidate_InvalidThreshold(t *testing.T) {
	cfg := &Config{
		SimilarityThreshold: 1.5,
		CacheTTLDays:        7,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		MaxRetries:          3,
	}

	err := cfg.Validate()
	if err == nil {
		t.Error("Validate() should fail for threshold > 1")
	}

	cfg.SimilarityThreshold = -0.1
	err = cfg.Validate()
	if err == nil {
		t.Error("Validate() should fail for threshold < 0")
	}
}

func TestValidate_InvalidChunking(t *testing.T) {
	cfg := &Config{
		SimilarityThreshold: 0.85,
		CacheTTLDays:        7,
		ChunkSize:           0,
		ChunkOverlap:        0,
		MaxRetries:          3,
	}

	err := cfg.Validate()
	if err == nil {
		t.Error("Validate() should fail for zero chunk size")
	}

	cfg.ChunkSize = 1000
	cfg.ChunkOverlap = 1000
	err = cfg.Validate()
	if err == nil {
		t.Error("Validate() should fail when overlap >= chunk size")
	}
}

func TestValidate_InvalidMaxRetries(t *testing.T) {
	cfg := &Config{
		SimilarityThreshold: 0.85,
		CacheTTLDays:        7,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		MaxRetries:          15,
	}

	err := cfg.Validate()
	if err == nil {
		t.Error("Validate() should fail for MaxRetries > 10")
	}

	cfg.MaxRetries = -1
	err = cfg.Validate()
	if err == nil {
		t.Error("Validate() should fail for MaxRetries < 0")
	}
}

func TestCacheTTL(t *testing.T) {
	cfg := &Config{CacheTTLDays: 7}
	if cfg.CacheTTL() != 7*24*time.Hour {
		t.Errorf("CacheTTL() = %v, want 168h", cfg.CacheTTL())
	}
}
