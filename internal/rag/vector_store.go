// ABOUTME: VectorStore holds chunks and their embedding vectors with cosine similarity search
// ABOUTME: Persists as co-versioned JSON metadata plus a binary float64 vector blob
package rag

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/AustinKang666/jarvis-assistant/internal/models"
)

const (
	// DefaultTopK is used when a caller passes a non-positive k
	DefaultTopK = 3

	// storeSchemaVersion is bumped when either artifact format changes.
	// The docs file and the vector blob must carry the same version and
	// generation to be loaded together.
	storeSchemaVersion = 1
)

// vecMagic identifies the vector blob format
var vecMagic = [4]byte{'J', 'V', 'E', 'C'}

// docsImage is the on-disk shape of the chunk metadata artifact
type docsImage struct {
	SchemaVersion int            `json:"schema_version"`
	Generation    string         `json:"generation"`
	Dimension     int            `json:"dimension"`
	Documents     []models.Chunk `json:"documents"`
}

// VectorStore keeps parallel slices of chunks and vectors. Index position is
// the only linkage between the two. Reads may run concurrently; writes are
// exclusive.
type VectorStore struct {
	mu        sync.RWMutex
	dimension int
	documents []models.Chunk
	vectors   [][]float64
	units     [][]float64 // unit-normalized copies used for search
}

// NewVectorStore creates an empty store. A zero dimension means the first
// added batch fixes it.
func NewVectorStore(dimension int) *VectorStore {
	return &VectorStore{dimension: dimension}
}

// Add appends chunks with their caller-computed vectors. The batch is
// atomic: any length or dimension mismatch rejects the whole batch.
func (vs *VectorStore) Add(chunks []models.Chunk, vectors [][]float64) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()

	dim := vs.dimension
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return fmt.Errorf("cannot add zero-dimension vectors")
		}
	}
	// Validate the full batch before touching state
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d: dimension mismatch: expected %d, got %d", i, dim, len(v))
		}
	}

	vs.dimension = dim
	vs.documents = append(vs.documents, chunks...)
	for _, v := range vectors {
		vs.vectors = append(vs.vectors, v)
		vs.units = append(vs.units, unitVector(v))
	}
	return nil
}

// Search returns the k most similar chunks ordered by descending cosine
// similarity. Ties keep insertion order. Never mutates the store.
func (vs *VectorStore) Search(queryVector []float64, k int) ([]models.SearchResult, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	if len(vs.documents) == 0 {
		return nil, nil
	}
	if k <= 0 {
		log.Printf("Warning: invalid top_k value %d, using default %d", k, DefaultTopK)
		k = DefaultTopK
	}
	if len(queryVector) != vs.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", vs.dimension, len(queryVector))
	}

	queryUnit := unitVector(queryVector)
	results := make([]models.SearchResult, len(vs.documents))
	for i := range vs.documents {
		results[i] = models.SearchResult{
			Chunk: vs.documents[i],
			Score: dot(vs.units[i], queryUnit),
		}
	}

	// Stable sort keeps earlier insertions first on equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of stored chunks
func (vs *VectorStore) Len() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return len(vs.documents)
}

// Dimension returns the fixed vector dimension (0 while the store is empty
// and unconfigured)
func (vs *VectorStore) Dimension() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.dimension
}

// Documents returns a copy of the stored chunks in insertion order
func (vs *VectorStore) Documents() []models.Chunk {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	out := make([]models.Chunk, len(vs.documents))
	copy(out, vs.documents)
	return out
}

// Reset drops all chunks and vectors. There is no partial delete.
func (vs *VectorStore) Reset() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.documents = nil
	vs.vectors = nil
	vs.units = nil
}

// Save writes the store as two co-versioned artifacts: <path>.docs.json with
// chunk metadata and <path>.vec with the raw vectors. Both carry the same
// generation ID and are replaced atomically.
func (vs *VectorStore) Save(path string) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	generation := uuid.New()

	image := docsImage{
		SchemaVersion: storeSchemaVersion,
		Generation:    generation.String(),
		Dimension:     vs.dimension,
		Documents:     vs.documents,
	}
	docsData, err := json.MarshalIndent(image, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding documents: %w", err)
	}

	vecData, err := encodeVectors(generation, vs.dimension, vs.vectors)
	if err != nil {
		return fmt.Errorf("encoding vectors: %w", err)
	}

	// Vector blob first: a docs file without its blob is rejected at load,
	// while an orphaned blob is simply ignored
	if err := writeFileAtomic(path+".vec", vecData); err != nil {
		return fmt.Errorf("writing vector blob: %w", err)
	}
	if err := writeFileAtomic(path+".docs.json", docsData); err != nil {
		return fmt.Errorf("writing documents: %w", err)
	}
	return nil
}

// LoadVectorStore reads a persisted store image. An absent, partial, or
// mismatched image yields an empty writable store. A dimension conflict with
// a non-zero expectDimension is the one construction-time error.
func LoadVectorStore(path string, expectDimension int) (*VectorStore, error) {
	docsData, err := os.ReadFile(path + ".docs.json")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: reading vector store documents: %v", err)
		}
		return NewVectorStore(expectDimension), nil
	}

	var image docsImage
	if err := json.Unmarshal(docsData, &image); err != nil {
		log.Printf("Warning: corrupt vector store documents, starting empty: %v", err)
		return NewVectorStore(expectDimension), nil
	}
	if image.SchemaVersion != storeSchemaVersion {
		log.Printf("Warning: vector store schema version %d (want %d), rebuilding empty", image.SchemaVersion, storeSchemaVersion)
		return NewVectorStore(expectDimension), nil
	}

	vecData, err := os.ReadFile(path + ".vec")
	if err != nil {
		log.Printf("Warning: vector blob missing for %s, starting empty", path)
		return NewVectorStore(expectDimension), nil
	}

	generation, dimension, vectors, err := decodeVectors(vecData)
	if err != nil {
		log.Printf("Warning: corrupt vector blob, starting empty: %v", err)
		return NewVectorStore(expectDimension), nil
	}
	if generation.String() != image.Generation {
		log.Printf("Warning: vector blob generation %s does not match documents %s, starting empty", generation, image.Generation)
		return NewVectorStore(expectDimension), nil
	}
	if dimension != image.Dimension || len(vectors) != len(image.Documents) {
		log.Printf("Warning: vector store artifacts disagree (%d/%d vectors, dim %d/%d), starting empty",
			len(vectors), len(image.Documents), dimension, image.Dimension)
		return NewVectorStore(expectDimension), nil
	}

	if expectDimension > 0 && dimension > 0 && dimension != expectDimension {
		return nil, fmt.Errorf("persisted vector store dimension %d does not match embedder dimension %d", dimension, expectDimension)
	}

	vs := NewVectorStore(dimension)
	if err := vs.Add(image.Documents, vectors); err != nil {
		log.Printf("Warning: rejecting persisted vector store: %v", err)
		return NewVectorStore(expectDimension), nil
	}
	return vs, nil
}

// encodeVectors serializes vectors as magic, schema version, generation,
// dimension, count, then little-endian float64 values row by row
func encodeVectors(generation uuid.UUID, dimension int, vectors [][]float64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(vecMagic[:])
	if err := binary.Write(&buf, binary.LittleEndian, uint32(storeSchemaVersion)); err != nil {
		return nil, err
	}
	buf.Write(generation[:])
	if err := binary.Write(&buf, binary.LittleEndian, uint32(dimension)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return nil, err
	}
	for _, vec := range vectors {
		for _, v := range vec {
			if err := binary.Write(&buf, binary.LittleEndian, math.Float64bits(v)); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func decodeVectors(data []byte) (uuid.UUID, int, [][]float64, error) {
	var generation uuid.UUID
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil || magic != vecMagic {
		return generation, 0, nil, fmt.Errorf("bad vector blob magic")
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return generation, 0, nil, err
	}
	if version != storeSchemaVersion {
		return generation, 0, nil, fmt.Errorf("unsupported vector blob version %d", version)
	}
	if _, err := r.Read(generation[:]); err != nil {
		return generation, 0, nil, err
	}
	var dimension, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dimension); err != nil {
		return generation, 0, nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return generation, 0, nil, err
	}

	expected := int64(count) * int64(dimension) * 8
	if int64(r.Len()) != expected {
		return generation, 0, nil, fmt.Errorf("vector blob truncated: %d bytes remain, want %d", r.Len(), expected)
	}

	vectors := make([][]float64, count)
	for i := range vectors {
		vec := make([]float64, dimension)
		for j := range vec {
			var bits uint64
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return generation, 0, nil, err
			}
			vec[j] = math.Float64frombits(bits)
		}
		vectors[i] = vec
	}
	return generation, int(dimension), vectors, nil
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

// unitVector returns a unit-length copy; a zero vector stays zero
func unitVector(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	unit := make([]float64, len(v))
	if norm == 0 {
		return unit
	}
	for i, x := range v {
		unit[i] = x / norm
	}
	return unit
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
