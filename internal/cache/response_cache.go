// ABOUTME: ResponseCache is a similarity-aware response cache with TTL expiry
// ABOUTME: Exact hash fast path with semantic fallback over question embeddings
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AustinKang666/jarvis-assistant/internal/models"
)

const (
	// DefaultSimilarityThreshold decides when a cached question counts as
	// the same question
	DefaultSimilarityThreshold = 0.85
	// DefaultTTL is how long an entry stays live
	DefaultTTL = 7 * 24 * time.Hour

	// statsPersistInterval bounds write amplification from UpdateStats
	statsPersistInterval = 10

	cacheSchemaVersion = 1

	cacheFileName  = "response_cache.json"
	vectorFileName = "vectors.bin"
)

// cacheVecMagic identifies the question-embedding blob format
var cacheVecMagic = [4]byte{'J', 'C', 'A', 'C'}

// Mode says whether semantic matching is available. It is fixed at
// construction from encoder availability and never probed afterwards.
type Mode int

const (
	// ModeExactOnly matches questions by hash only
	ModeExactOnly Mode = iota
	// ModeSemantic additionally matches near-duplicate questions by
	// embedding similarity
	ModeSemantic
)

// Encoder maps a question to its embedding vector
type Encoder interface {
	Encode(text string) ([]float64, error)
}

// cacheImage is the on-disk shape of the cache metadata artifact
type cacheImage struct {
	SchemaVersion int                           `json:"schema_version"`
	Generation    string                        `json:"generation"`
	Entries       map[string]*models.CacheEntry `json:"entries"`
}

// ResponseCache caches responses keyed by a content hash of the question,
// with a semantic fallback over stored question embeddings. Not safe for
// concurrent use from multiple goroutines without its internal mutex, which
// serializes all operations.
type ResponseCache struct {
	mu         sync.Mutex
	cacheFile  string
	vectorFile string
	threshold  float64
	ttl        time.Duration
	mode       Mode
	encoder    Encoder

	entries map[string]*models.CacheEntry
	// Question embeddings keyed by question hash, kept separate from the
	// entries so near-duplicate phrasings reuse vectors without recomputation
	vectors map[string][]float64
}

// NewResponseCache creates a cache rooted at dir and loads any persisted
// state, dropping expired entries. A nil encoder degrades the cache to
// exact-match-only mode. Out-of-range threshold and non-positive ttl fall
// back to defaults.
func NewResponseCache(dir string, encoder Encoder, threshold float64, ttl time.Duration) *ResponseCache {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Warning: creating cache directory %s: %v", dir, err)
	}

	mode := ModeExactOnly
	if encoder != nil {
		mode = ModeSemantic
	}

	rc := &ResponseCache{
		cacheFile:  filepath.Join(dir, cacheFileName),
		vectorFile: filepath.Join(dir, vectorFileName),
		threshold:  threshold,
		ttl:        ttl,
		mode:       mode,
		encoder:    encoder,
		entries:    make(map[string]*models.CacheEntry),
		vectors:    make(map[string][]float64),
	}
	rc.load()
	return rc
}

// Mode reports whether the cache runs with semantic matching
func (rc *ResponseCache) Mode() Mode {
	return rc.mode
}

// Get looks a question up. Exact hash match first; in semantic mode a
// best-similarity fallback follows. A miss is a normal outcome, never an
// error.
func (rc *ResponseCache) Get(question string) (*models.CacheHit, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	key := hashQuestion(question)
	if entry, ok := rc.entries[key]; ok {
		entry.LastAccessed = time.Now()
		hit := &models.CacheHit{Entry: *entry}
		return hit, true
	}

	if rc.mode != ModeSemantic {
		return nil, false
	}

	matchedKey, similarity := rc.findSimilar(question)
	if matchedKey == "" || similarity < rc.threshold {
		return nil, false
	}

	entry := rc.entries[matchedKey]
	entry.LastAccessed = time.Now()
	entry.SimilarityMatches++
	return &models.CacheHit{
		Entry:           *entry,
		Similarity:      similarity,
		MatchedQuestion: entry.Question,
	}, true
}

// Add creates or overwrites the entry for a question. Empty question or
// response makes it a no-op. The question embedding is recomputed and stored
// for future semantic matches.
func (rc *ResponseCache) Add(question, response string, sourceType models.SourceType, metadata map[string]any) {
	if isBlank(question) || isBlank(response) {
		return
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := time.Now()
	key := hashQuestion(question)
	rc.entries[key] = &models.CacheEntry{
		Question:     question,
		Response:     response,
		SourceType:   sourceType,
		CreatedAt:    now,
		LastAccessed: now,
		AccessCount:  1,
		Metadata:     metadata,
	}

	if rc.mode == ModeSemantic {
		rc.questionEmbedding(question)
	}
	rc.persist()
}

// UpdateStats bumps the access count for an exact-matching entry and
// persists every tenth access to bound write amplification
func (rc *ResponseCache) UpdateStats(question string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	entry, ok := rc.entries[hashQuestion(question)]
	if !ok {
		return
	}
	entry.AccessCount++
	entry.LastAccessed = time.Now()
	if entry.AccessCount%statsPersistInterval == 0 {
		rc.persist()
	}
}

// Clear drops every entry and embedding and persists the empty state
func (rc *ResponseCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.entries = make(map[string]*models.CacheEntry)
	rc.vectors = make(map[string][]float64)
	rc.persist()
}

// Len returns the number of live entries
func (rc *ResponseCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}

// Stats walks all entries and summarizes usage. Linear scan; fine for the
// bounded cache sizes this engine holds.
func (rc *ResponseCache) Stats() models.CacheStats {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	stats := models.CacheStats{
		TotalEntries:     len(rc.entries),
		SourceTypeCounts: make(map[models.SourceType]int),
	}
	if info, err := os.Stat(rc.cacheFile); err == nil {
		stats.CacheSizeBytes = info.Size()
	}
	if info, err := os.Stat(rc.vectorFile); err == nil {
		stats.VectorSizeBytes = info.Size()
	}
	if len(rc.entries) == 0 {
		return stats
	}

	var oldest, newest, mostAccessed *models.CacheEntry
	for _, entry := range rc.entries {
		stats.SourceTypeCounts[entry.SourceType]++
		if oldest == nil || entry.CreatedAt.Before(oldest.CreatedAt) {
			oldest = entry
		}
		if newest == nil || entry.CreatedAt.After(newest.CreatedAt) {
			newest = entry
		}
		if mostAccessed == nil || entry.AccessCount > mostAccessed.AccessCount {
			mostAccessed = entry
		}
	}

	stats.OldestEntry = &models.EntryDigest{Question: truncateQuestion(oldest.Question), CreatedAt: oldest.CreatedAt}
	stats.NewestEntry = &models.EntryDigest{Question: truncateQuestion(newest.Question), CreatedAt: newest.CreatedAt}
	stats.MostAccessed = &models.EntryDigest{
		Question:    truncateQuestion(mostAccessed.Question),
		CreatedAt:   mostAccessed.CreatedAt,
		AccessCount: mostAccessed.AccessCount,
	}
	return stats
}

// findSimilar returns the key and similarity of the closest cached question
func (rc *ResponseCache) findSimilar(question string) (string, float64) {
	queryVec := rc.questionEmbedding(question)
	if queryVec == nil {
		return "", 0
	}

	bestKey := ""
	bestScore := 0.0
	for key, entry := range rc.entries {
		cachedVec := rc.questionEmbedding(entry.Question)
		if cachedVec == nil {
			continue
		}
		score := cosineSimilarity(queryVec, cachedVec)
		if score > bestScore {
			bestScore = score
			bestKey = key
		}
	}
	return bestKey, bestScore
}

// questionEmbedding returns the cached embedding for a question, computing
// and memoizing it on first use. Returns nil when embedding fails; the
// lookup then degrades to a miss rather than an error.
func (rc *ResponseCache) questionEmbedding(question string) []float64 {
	key := hashQuestion(question)
	if vec, ok := rc.vectors[key]; ok {
		return vec
	}
	vec, err := rc.encoder.Encode(question)
	if err != nil {
		log.Printf("Warning: embedding question failed: %v", err)
		return nil
	}
	rc.vectors[key] = vec
	return vec
}

// load reads persisted state. Expiry is evaluated here, once: entries older
// than the TTL are dropped before becoming visible. Entries without a valid
// timestamp are treated as freshly created rather than discarded.
func (rc *ResponseCache) load() {
	data, err := os.ReadFile(rc.cacheFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: reading response cache: %v", err)
		}
		return
	}

	var image cacheImage
	if err := json.Unmarshal(data, &image); err != nil {
		log.Printf("Warning: corrupt response cache, starting empty: %v", err)
		return
	}
	if image.SchemaVersion != cacheSchemaVersion {
		log.Printf("Warning: response cache schema version %d (want %d), rebuilding empty", image.SchemaVersion, cacheSchemaVersion)
		return
	}

	now := time.Now()
	expired := 0
	for key, entry := range image.Entries {
		if entry == nil || entry.Question == "" {
			continue
		}
		if entry.CreatedAt.IsZero() {
			// Conservative recovery from corrupt data
			entry.CreatedAt = now
			entry.LastAccessed = now
		} else if now.Sub(entry.CreatedAt) > rc.ttl {
			expired++
			continue
		}
		rc.entries[key] = entry
	}
	if expired > 0 {
		log.Printf("Dropped %d expired cache entries", expired)
	}

	if rc.mode == ModeSemantic {
		rc.loadVectors(image.Generation)
	}
}

// loadVectors reads the question-embedding blob. The blob is only meaningful
// paired with a metadata file of the same generation; on any mismatch the
// embeddings are dropped and recomputed lazily.
func (rc *ResponseCache) loadVectors(generation string) {
	data, err := os.ReadFile(rc.vectorFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: reading question vectors: %v", err)
		}
		return
	}

	vectors, gen, err := decodeQuestionVectors(data)
	if err != nil {
		log.Printf("Warning: corrupt question vectors, recomputing lazily: %v", err)
		return
	}
	if gen != generation {
		log.Printf("Warning: question vectors generation mismatch, recomputing lazily")
		return
	}

	// Keep only vectors for questions that survived expiry
	for key, vec := range vectors {
		if _, ok := rc.entries[key]; ok {
			rc.vectors[key] = vec
		}
	}
}

// persist writes the metadata file and the embedding blob with a shared
// generation ID, atomically replacing both. I/O errors are logged and
// swallowed; the in-memory cache remains authoritative for the session.
func (rc *ResponseCache) persist() {
	generation := uuid.New().String()

	image := cacheImage{
		SchemaVersion: cacheSchemaVersion,
		Generation:    generation,
		Entries:       rc.entries,
	}
	data, err := json.MarshalIndent(image, "", "  ")
	if err != nil {
		log.Printf("Warning: encoding response cache: %v", err)
		return
	}

	if rc.mode == ModeSemantic && len(rc.vectors) > 0 {
		blob := encodeQuestionVectors(rc.vectors, generation)
		if err := writeFileAtomic(rc.vectorFile, blob); err != nil {
			log.Printf("Warning: writing question vectors: %v", err)
			return
		}
	}
	if err := writeFileAtomic(rc.cacheFile, data); err != nil {
		log.Printf("Warning: writing response cache: %v", err)
	}
}

// encodeQuestionVectors serializes hash→embedding pairs as magic, version,
// generation, count, then length-prefixed keys with their float64 vectors
func encodeQuestionVectors(vectors map[string][]float64, generation string) []byte {
	var buf bytes.Buffer
	buf.Write(cacheVecMagic[:])
	binary.Write(&buf, binary.LittleEndian, uint32(cacheSchemaVersion))
	binary.Write(&buf, binary.LittleEndian, uint32(len(generation)))
	buf.WriteString(generation)
	binary.Write(&buf, binary.LittleEndian, uint32(len(vectors)))
	for key, vec := range vectors {
		binary.Write(&buf, binary.LittleEndian, uint32(len(key)))
		buf.WriteString(key)
		binary.Write(&buf, binary.LittleEndian, uint32(len(vec)))
		for _, v := range vec {
			binary.Write(&buf, binary.LittleEndian, math.Float64bits(v))
		}
	}
	return buf.Bytes()
}

func decodeQuestionVectors(data []byte) (map[string][]float64, string, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil || magic != cacheVecMagic {
		return nil, "", fmt.Errorf("bad question vector magic")
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, "", err
	}
	if version != cacheSchemaVersion {
		return nil, "", fmt.Errorf("unsupported question vector version %d", version)
	}

	generation, err := readLengthPrefixed(r)
	if err != nil {
		return nil, "", err
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, "", err
	}

	vectors := make(map[string][]float64, count)
	for i := uint32(0); i < count; i++ {
		key, err := readLengthPrefixed(r)
		if err != nil {
			return nil, "", err
		}
		var dim uint32
		if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
			return nil, "", err
		}
		if int64(dim)*8 > int64(r.Len()) {
			return nil, "", fmt.Errorf("question vector blob truncated")
		}
		vec := make([]float64, dim)
		for j := range vec {
			var bits uint64
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, "", err
			}
			vec[j] = math.Float64frombits(bits)
		}
		vectors[key] = vec
	}
	return vectors, generation, nil
}

func readLengthPrefixed(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int64(n) > int64(r.Len()) {
		return "", fmt.Errorf("length prefix exceeds remaining data")
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

// writeFileAtomic writes data to a temp file and renames it into place
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// hashQuestion computes the content hash key for a question
func hashQuestion(question string) string {
	sum := sha256.Sum256([]byte(normalizeQuestion(question)))
	return hex.EncodeToString(sum[:])
}

// normalizeQuestion trims surrounding whitespace so trivially re-padded
// questions hash identically
func normalizeQuestion(question string) string {
	return strings.TrimSpace(question)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func truncateQuestion(q string) string {
	runes := []rune(q)
	if len(runes) <= 50 {
		return q
	}
	return string(runes[:50])
}
