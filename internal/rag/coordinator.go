// ABOUTME: Coordinator orchestrates ingestion and retrieval-augmented prompt building
// ABOUTME: Merges local context with an optional web-search supplement
package rag

import (
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/AustinKang666/jarvis-assistant/internal/models"
)

// DefaultMinContextChars is the length under which local context is judged
// too thin and a supplement may be requested
const DefaultMinContextChars = 200

// Searcher supplies supplementary context from an external search service.
// ok is false when the service is unavailable or found nothing.
type Searcher interface {
	SearchContext(query string) (text string, ok bool)
}

// Coordinator ties the document processor, vector store and retriever
// together and builds the final augmented prompt
type Coordinator struct {
	processor       *DocumentProcessor
	store           *VectorStore
	retriever       *Retriever
	encoder         Encoder
	searcher        Searcher // nil disables the web supplement
	storePath       string   // empty disables persistence after ingest
	minContextChars int

	mu sync.Mutex // serializes ingest and persist
}

// NewCoordinator wires the retrieval pipeline. searcher may be nil;
// storePath may be empty to keep the store in memory only.
func NewCoordinator(processor *DocumentProcessor, store *VectorStore, retriever *Retriever, encoder Encoder, searcher Searcher, storePath string, minContextChars int) *Coordinator {
	if minContextChars <= 0 {
		minContextChars = DefaultMinContextChars
	}
	return &Coordinator{
		processor:       processor,
		store:           store,
		retriever:       retriever,
		encoder:         encoder,
		searcher:        searcher,
		storePath:       storePath,
		minContextChars: minContextChars,
	}
}

// Store returns the underlying vector store
func (c *Coordinator) Store() *VectorStore {
	return c.store
}

// Ingest processes a document file into the vector store. Returns false,
// without an error, when the file produced no usable chunks.
func (c *Coordinator) Ingest(path string) bool {
	chunks := c.processor.ProcessFile(path)
	return c.addChunks(chunks) > 0
}

// IngestDirectory processes every supported file under dir and returns the
// number of chunks added
func (c *Coordinator) IngestDirectory(dir string) int {
	chunks := c.processor.ProcessDirectory(dir)
	return c.addChunks(chunks)
}

// addChunks embeds and stores chunks, then persists the store. A failure to
// embed one chunk skips that chunk only.
func (c *Coordinator) addChunks(chunks []models.Chunk) int {
	if len(chunks) == 0 {
		return 0
	}
	if c.encoder == nil {
		log.Printf("Warning: no embedder available, cannot ingest")
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	kept := chunks
	vectors, err := c.encoder.EncodeBatch(texts)
	if err != nil {
		// Batch failed: retry item by item, skipping the ones that still fail
		log.Printf("Warning: batch embedding failed, retrying per chunk: %v", err)
		kept = kept[:0:0]
		vectors = vectors[:0:0]
		for _, chunk := range chunks {
			vec, err := c.encoder.Encode(chunk.Text)
			if err != nil {
				log.Printf("Warning: skipping chunk %d of %s: %v", chunk.Metadata.ChunkID, chunk.Metadata.Source, err)
				continue
			}
			kept = append(kept, chunk)
			vectors = append(vectors, vec)
		}
	}
	if len(kept) == 0 {
		return 0
	}

	if err := c.store.Add(kept, vectors); err != nil {
		log.Printf("Warning: adding chunks to vector store: %v", err)
		return 0
	}

	if c.storePath != "" {
		if err := c.store.Save(c.storePath); err != nil {
			// In-memory store stays authoritative for the session
			log.Printf("Warning: persisting vector store: %v", err)
		}
	}
	return len(kept)
}

// QueryWithContext builds the augmented prompt for a query and reports where
// its context came from. Local retrieval runs first; when it is empty or
// shorter than the minimum and the caller allows it, the web-search
// supplement is consulted. With no context at all the original query is
// returned unchanged with SourceDirect, which callers can detect by string
// equality. A prompt carrying the web supplement is tagged SourceWebSearch
// even when local context is also present.
func (c *Coordinator) QueryWithContext(query string, allowSupplement bool) (string, models.SourceType) {
	local := c.localContext(query)

	var supplement string
	if allowSupplement && c.searcher != nil && len([]rune(local)) < c.minContextChars {
		if text, ok := c.searcher.SearchContext(query); ok {
			supplement = text
		}
	}

	var b strings.Builder
	if local != "" {
		b.WriteString("Information found in the local knowledge base:\n")
		b.WriteString(local)
		b.WriteString("\n\n")
	}
	if supplement != "" {
		b.WriteString(supplement)
		b.WriteString("\n\n")
	}
	if b.Len() == 0 {
		return query, models.SourceDirect
	}

	b.WriteString("Based on the information above, please answer the following question:\n\n")
	b.WriteString(query)

	source := models.SourceRAG
	if supplement != "" {
		source = models.SourceWebSearch
	}
	return b.String(), source
}

// localContext retrieves context for the query. Long multi-sentence queries
// also retrieve per sentence so each clause can pull its own passages.
func (c *Coordinator) localContext(query string) string {
	if c.store.Len() == 0 {
		return ""
	}

	contexts := []string{}
	if primary := c.retriever.GetContext(query); primary != "" {
		contexts = append(contexts, primary)
	}

	sentences := querySentences(query)
	if len(sentences) > 1 {
		// Cap the extra lookups to keep latency bounded
		if len(sentences) > 3 {
			sentences = sentences[:3]
		}
		for _, sentence := range sentences {
			if len([]rune(sentence)) <= 10 {
				continue
			}
			ctx := c.retriever.GetContext(sentence)
			if ctx == "" || containsContext(contexts, ctx) {
				continue
			}
			contexts = append(contexts, ctx)
		}
	}

	if len(contexts) == 0 {
		return ""
	}
	if len(contexts) == 1 {
		return contexts[0]
	}

	var b strings.Builder
	b.WriteString("Relevant passages from several lookups:\n")
	for i, ctx := range contexts {
		ctx = strings.TrimPrefix(ctx, "Here is information relevant to your question:\n\n")
		b.WriteString("\n---- Lookup ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" ----\n")
		b.WriteString(ctx)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// querySentences splits a query on terminal punctuation, dropping fragments
// of five characters or fewer
func querySentences(query string) []string {
	parts := splitSentences(query)
	var sentences []string
	for _, part := range parts {
		part = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(part), ".!?。！？"))
		if len([]rune(part)) > 5 {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

func containsContext(contexts []string, ctx string) bool {
	for _, existing := range contexts {
		if existing == ctx {
			return true
		}
	}
	return false
}
