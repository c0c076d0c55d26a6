// ABOUTME: Chunk represents a bounded span of a source document
// ABOUTME: Carries provenance metadata used for retrieval formatting
package models

// ChunkMetadata records the provenance of a chunk
type ChunkMetadata struct {
	Source     string `json:"source"`
	ChunkID    int    `json:"chunk_id"`
	OriginPath string `json:"origin_path"`
}

// Chunk is an immutable piece of a source document. Once inserted into the
// vector store the store owns it exclusively.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}
