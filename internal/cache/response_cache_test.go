// ABOUTME: Tests for the similarity-aware response cache
// ABOUTME: Covers exact and semantic hits, TTL expiry, persistence and stats
package cache

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AustinKang666/jarvis-assistant/internal/models"
)

// stubEncoder returns canned vectors per question and fails for unknown ones
type stubEncoder struct {
	vectors map[string][]float64
	failAll bool
}

func (s *stubEncoder) Encode(text string) ([]float64, error) {
	if s.failAll {
		return nil, fmt.Errorf("encoder unavailable")
	}
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func TestGet_ExactHit(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 0.85, time.Hour)

	rc.Add("What is TSMC?", "A semiconductor foundry.", models.SourceRAG, nil)

	hit, ok := rc.Get("What is TSMC?")
	if !ok {
		t.Fatal("expected exact hit")
	}
	if hit.Entry.Response != "A semiconductor foundry." {
		t.Errorf("response = %q", hit.Entry.Response)
	}
	// Exact hits carry no similarity annotation
	if hit.Similarity != 0 || hit.MatchedQuestion != "" {
		t.Errorf("exact hit annotated as semantic: %+v", hit)
	}

	// Repeated lookups stay hits
	if _, ok := rc.Get("What is TSMC?"); !ok {
		t.Error("second lookup missed")
	}
}

func TestGet_ExactHitIgnoresSurroundingWhitespace(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 0.85, time.Hour)
	rc.Add("What is TSMC?", "A foundry.", models.SourceDirect, nil)

	if _, ok := rc.Get("  What is TSMC?  "); !ok {
		t.Error("padded question should hash to the same entry")
	}
}

func TestGet_Miss(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 0.85, time.Hour)
	if _, ok := rc.Get("never asked"); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestGet_SemanticHit(t *testing.T) {
	cached := "台股2330現在多少錢?"
	paraphrase := "2330的股價是多少?"

	enc := &stubEncoder{vectors: map[string][]float64{
		cached:     {1, 0},
		paraphrase: {0.9, 0.4358898943540674}, // cosine 0.90 against cached
	}}
	rc := NewResponseCache(t.TempDir(), enc, 0.85, time.Hour)
	rc.Add(cached, "約900元", models.SourceWebSearch, nil)

	hit, ok := rc.Get(paraphrase)
	if !ok {
		t.Fatal("expected semantic hit")
	}
	if hit.Entry.Response != "約900元" {
		t.Errorf("response = %q", hit.Entry.Response)
	}
	if hit.MatchedQuestion != cached {
		t.Errorf("matched question = %q, want %q", hit.MatchedQuestion, cached)
	}
	if hit.Similarity < 0.89 || hit.Similarity > 0.91 {
		t.Errorf("similarity = %f, want ~0.90", hit.Similarity)
	}
	if hit.Entry.SimilarityMatches != 1 {
		t.Errorf("similarity matches = %d, want 1", hit.Entry.SimilarityMatches)
	}
}

func TestGet_SemanticThresholdBoundary(t *testing.T) {
	// {1,0,0,0} against {1,1,1,1}: dot 1, norms 1 and 2, cosine exactly 0.5
	// in float64
	vectors := map[string][]float64{
		"cached question": {1, 0, 0, 0},
		"boundary":        {1, 1, 1, 1},
	}

	t.Run("exactly at threshold is a hit", func(t *testing.T) {
		rc := NewResponseCache(t.TempDir(), &stubEncoder{vectors: vectors}, 0.5, time.Hour)
		rc.Add("cached question", "answer", models.SourceDirect, nil)

		hit, ok := rc.Get("boundary")
		if !ok {
			t.Fatal("similarity equal to the threshold should hit")
		}
		if hit.Similarity != 0.5 {
			t.Errorf("similarity = %v, want exactly 0.5", hit.Similarity)
		}
	})

	t.Run("just below threshold is a miss", func(t *testing.T) {
		justAbove := math.Nextafter(0.5, 1)
		rc := NewResponseCache(t.TempDir(), &stubEncoder{vectors: vectors}, justAbove, time.Hour)
		rc.Add("cached question", "answer", models.SourceDirect, nil)

		if _, ok := rc.Get("boundary"); ok {
			t.Error("similarity just below the threshold should miss")
		}
	})
}

func TestGet_SemanticMissBelowThreshold(t *testing.T) {
	enc := &stubEncoder{vectors: map[string][]float64{
		"cached question": {1, 0},
		"unrelated":       {0.5, 0.8660254037844386}, // cosine 0.50
	}}
	rc := NewResponseCache(t.TempDir(), enc, 0.85, time.Hour)
	rc.Add("cached question", "answer", models.SourceDirect, nil)

	if _, ok := rc.Get("unrelated"); ok {
		t.Error("similarity below threshold should miss")
	}
}

func TestGet_ExactOnlyModeSkipsSemantic(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 0.85, time.Hour)
	if rc.Mode() != ModeExactOnly {
		t.Fatalf("mode = %v, want exact-only", rc.Mode())
	}
	rc.Add("the question", "the answer", models.SourceDirect, nil)

	if _, ok := rc.Get("the question rephrased"); ok {
		t.Error("exact-only mode must not match semantically")
	}
}

func TestGet_EncoderFailureDegradesToMiss(t *testing.T) {
	enc := &stubEncoder{failAll: true}
	rc := NewResponseCache(t.TempDir(), enc, 0.85, time.Hour)
	rc.Add("cached", "answer", models.SourceDirect, nil)

	if _, ok := rc.Get("something else"); ok {
		t.Error("embedding failure should degrade to a miss")
	}
	// The exact path is unaffected
	if _, ok := rc.Get("cached"); !ok {
		t.Error("exact hit should survive encoder failure")
	}
}

func TestAdd_BlankInputsIgnored(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 0.85, time.Hour)

	rc.Add("", "answer", models.SourceDirect, nil)
	rc.Add("   ", "answer", models.SourceDirect, nil)
	rc.Add("question", "", models.SourceDirect, nil)
	rc.Add("question", "  \n ", models.SourceDirect, nil)

	if rc.Len() != 0 {
		t.Errorf("blank adds created %d entries", rc.Len())
	}
}

func TestAdd_OverwritesExisting(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 0.85, time.Hour)
	rc.Add("q", "first answer", models.SourceDirect, nil)
	rc.Add("q", "second answer", models.SourceRAG, nil)

	hit, ok := rc.Get("q")
	if !ok {
		t.Fatal("expected hit")
	}
	if hit.Entry.Response != "second answer" {
		t.Errorf("response = %q, want the overwrite", hit.Entry.Response)
	}
	if hit.Entry.SourceType != models.SourceRAG {
		t.Errorf("source type = %q, want rag", hit.Entry.SourceType)
	}
	if rc.Len() != 1 {
		t.Errorf("len = %d, want 1", rc.Len())
	}
}

func TestPersistence_SurvivesReload(t *testing.T) {
	dir := t.TempDir()

	rc := NewResponseCache(dir, nil, 0.85, time.Hour)
	rc.Add("persisted question", "persisted answer", models.SourceRAG, nil)

	reloaded := NewResponseCache(dir, nil, 0.85, time.Hour)
	hit, ok := reloaded.Get("persisted question")
	if !ok {
		t.Fatal("entry did not survive reload")
	}
	if hit.Entry.Response != "persisted answer" {
		t.Errorf("response = %q", hit.Entry.Response)
	}
}

func TestPersistence_VectorsSurviveReload(t *testing.T) {
	dir := t.TempDir()
	enc := &stubEncoder{vectors: map[string][]float64{
		"the question": {1, 0},
	}}

	rc := NewResponseCache(dir, enc, 0.85, time.Hour)
	rc.Add("the question", "the answer", models.SourceDirect, nil)

	reloaded := NewResponseCache(dir, enc, 0.85, time.Hour)
	if len(reloaded.vectors) != 1 {
		t.Errorf("loaded %d question vectors, want 1", len(reloaded.vectors))
	}
	vec := reloaded.vectors[hashQuestion("the question")]
	if len(vec) != 2 || vec[0] != 1 || vec[1] != 0 {
		t.Errorf("loaded vector = %v", vec)
	}
}

func TestPersistence_CorruptVectorBlobRecomputesLazily(t *testing.T) {
	dir := t.TempDir()
	cached := "the question"
	paraphrase := "question, the"
	enc := &stubEncoder{vectors: map[string][]float64{
		cached:     {1, 0},
		paraphrase: {1, 0.01},
	}}

	rc := NewResponseCache(dir, enc, 0.85, time.Hour)
	rc.Add(cached, "the answer", models.SourceDirect, nil)

	if err := os.WriteFile(filepath.Join(dir, vectorFileName), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := NewResponseCache(dir, enc, 0.85, time.Hour)
	if len(reloaded.vectors) != 0 {
		t.Errorf("corrupt blob should load no vectors, got %d", len(reloaded.vectors))
	}
	// Semantic matching still works by recomputing through the encoder
	if _, ok := reloaded.Get(paraphrase); !ok {
		t.Error("semantic hit should survive a corrupt vector blob")
	}
}

func TestTTL_ExpiredEntriesDroppedAtLoad(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	writeCacheFile(t, dir, map[string]*models.CacheEntry{
		hashQuestion("stale"): {
			Question:  "stale",
			Response:  "old answer",
			CreatedAt: now.Add(-8 * 24 * time.Hour),
		},
		hashQuestion("fresh"): {
			Question:  "fresh",
			Response:  "new answer",
			CreatedAt: now.Add(-6 * 24 * time.Hour),
		},
	})

	rc := NewResponseCache(dir, nil, 0.85, 7*24*time.Hour)
	if rc.Len() != 1 {
		t.Fatalf("len = %d, want 1 after expiry", rc.Len())
	}
	if _, ok := rc.Get("stale"); ok {
		t.Error("expired entry still retrievable")
	}
	if _, ok := rc.Get("fresh"); !ok {
		t.Error("fresh entry lost")
	}
}

func TestTTL_ZeroTimestampTreatedAsFresh(t *testing.T) {
	dir := t.TempDir()
	writeCacheFile(t, dir, map[string]*models.CacheEntry{
		hashQuestion("no timestamp"): {
			Question: "no timestamp",
			Response: "answer",
		},
	})

	rc := NewResponseCache(dir, nil, 0.85, 7*24*time.Hour)
	hit, ok := rc.Get("no timestamp")
	if !ok {
		t.Fatal("zero-timestamp entry should survive")
	}
	if hit.Entry.CreatedAt.IsZero() {
		t.Error("timestamp should be repaired at load")
	}
}

func TestLoad_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, cacheFileName), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	rc := NewResponseCache(dir, nil, 0.85, time.Hour)
	if rc.Len() != 0 {
		t.Errorf("corrupt file loaded %d entries", rc.Len())
	}
}

func TestLoad_WrongSchemaVersionStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	image := map[string]any{
		"schema_version": 99,
		"generation":     "g",
		"entries": map[string]any{
			"k": map[string]any{"question": "q", "response": "r"},
		},
	}
	data, err := json.Marshal(image)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheFileName), data, 0o644); err != nil {
		t.Fatal(err)
	}

	rc := NewResponseCache(dir, nil, 0.85, time.Hour)
	if rc.Len() != 0 {
		t.Errorf("wrong schema version loaded %d entries", rc.Len())
	}
}

func TestUpdateStats_PersistsEveryTenthAccess(t *testing.T) {
	dir := t.TempDir()
	rc := NewResponseCache(dir, nil, 0.85, time.Hour)
	rc.Add("q", "a", models.SourceDirect, nil)

	// Counts 2..10; the tenth access persists
	for i := 0; i < 9; i++ {
		rc.UpdateStats("q")
	}
	reloaded := NewResponseCache(dir, nil, 0.85, time.Hour)
	hit, ok := reloaded.Get("q")
	if !ok {
		t.Fatal("expected hit after reload")
	}
	if hit.Entry.AccessCount != 10 {
		t.Errorf("persisted access count = %d, want 10", hit.Entry.AccessCount)
	}

	// Counts 11..14 stay in memory only
	for i := 0; i < 4; i++ {
		rc.UpdateStats("q")
	}
	reloaded = NewResponseCache(dir, nil, 0.85, time.Hour)
	hit, ok = reloaded.Get("q")
	if !ok {
		t.Fatal("expected hit after second reload")
	}
	if hit.Entry.AccessCount != 10 {
		t.Errorf("persisted access count = %d, want still 10", hit.Entry.AccessCount)
	}
}

func TestUpdateStats_UnknownQuestionIsNoOp(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 0.85, time.Hour)
	rc.UpdateStats("never cached") // must not panic or create entries
	if rc.Len() != 0 {
		t.Errorf("len = %d, want 0", rc.Len())
	}
}

func TestClear_RemovesEverythingPersistently(t *testing.T) {
	dir := t.TempDir()
	rc := NewResponseCache(dir, nil, 0.85, time.Hour)
	rc.Add("q1", "a1", models.SourceDirect, nil)
	rc.Add("q2", "a2", models.SourceRAG, nil)

	rc.Clear()
	if rc.Len() != 0 {
		t.Errorf("len = %d after Clear", rc.Len())
	}

	reloaded := NewResponseCache(dir, nil, 0.85, time.Hour)
	if reloaded.Len() != 0 {
		t.Errorf("cleared cache reloaded %d entries", reloaded.Len())
	}
}

func TestStats_SummarizesEntries(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 0.85, time.Hour)
	rc.Add("first", "a", models.SourceDirect, nil)
	rc.Add("second", "b", models.SourceRAG, nil)
	rc.Add("third", "c", models.SourceRAG, nil)
	rc.UpdateStats("second")
	rc.UpdateStats("second")

	stats := rc.Stats()
	if stats.TotalEntries != 3 {
		t.Errorf("total = %d, want 3", stats.TotalEntries)
	}
	if stats.SourceTypeCounts[models.SourceRAG] != 2 {
		t.Errorf("rag count = %d, want 2", stats.SourceTypeCounts[models.SourceRAG])
	}
	if stats.SourceTypeCounts[models.SourceDirect] != 1 {
		t.Errorf("direct count = %d, want 1", stats.SourceTypeCounts[models.SourceDirect])
	}
	if stats.MostAccessed == nil || stats.MostAccessed.Question != "second" {
		t.Errorf("most accessed = %+v, want second", stats.MostAccessed)
	}
	if stats.MostAccessed.AccessCount != 3 {
		t.Errorf("most accessed count = %d, want 3", stats.MostAccessed.AccessCount)
	}
	if stats.CacheSizeBytes == 0 {
		t.Error("cache size should be non-zero after persistence")
	}
}

func TestStats_EmptyCache(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 0.85, time.Hour)
	stats := rc.Stats()
	if stats.TotalEntries != 0 {
		t.Errorf("total = %d", stats.TotalEntries)
	}
	if stats.OldestEntry != nil || stats.NewestEntry != nil || stats.MostAccessed != nil {
		t.Error("empty cache should have no entry digests")
	}
}

func TestNewResponseCache_NormalizesBadInputs(t *testing.T) {
	rc := NewResponseCache(t.TempDir(), nil, 2.0, -time.Hour)
	if rc.threshold != DefaultSimilarityThreshold {
		t.Errorf("threshold = %f, want default", rc.threshold)
	}
	if rc.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want default", rc.ttl)
	}
}

// writeCacheFile writes a valid cache metadata file with the given entries
func writeCacheFile(t *testing.T, dir string, entries map[string]*models.CacheEntry) {
	t.Helper()
	image := cacheImage{
		SchemaVersion: cacheSchemaVersion,
		Generation:    "test-generation",
		Entries:       entries,
	}
	data, err := json.MarshalIndent(image, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheFileName), data, 0o644); err != nil {
		t.Fatal(err)
	}
}
