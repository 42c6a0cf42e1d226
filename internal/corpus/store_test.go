package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasper-ai/backend/internal/vector/flat"
)

// fakeEmbedder maps every sentence to a deterministic vector derived from its
// length, so tests need no model server.
type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dim)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

// pipeSegment splits on "|" so sentence counts are fully controlled by tests.
func pipeSegment(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()

	idx, _, err := flat.Open(filepath.Join(dir, "index.bin"), 4)
	require.NoError(t, err)

	store, err := NewStore(dir, idx, &fakeEmbedder{dim: 4}, pipeSegment)
	require.NoError(t, err)
	return store
}

func TestAddDocument(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	ctx := context.Background()

	err := store.AddDocument(ctx, "doc1", "First", "one|two|three", "test", "http://a")
	require.NoError(t, err)

	stats := store.Stats()
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, int64(3), stats.VectorCount)
}

func TestAddDocumentDuplicateID(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.AddDocument(ctx, "doc1", "First", "one|two", "test", ""))

	err := store.AddDocument(ctx, "doc1", "Again", "three", "test", "")
	assert.ErrorIs(t, err, ErrDuplicateID)

	// The failed add must not have touched the corpus.
	stats := store.Stats()
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, int64(2), stats.VectorCount)
}

func TestAddDocumentNoSentencesIsNoOp(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	ctx := context.Background()

	require.NoError(t, store.AddDocument(ctx, "empty", "Empty", "   ", "test", ""))

	stats := store.Stats()
	assert.Equal(t, 0, stats.DocumentCount)
	assert.Equal(t, int64(0), stats.VectorCount)

	_, err := os.Stat(filepath.Join(dir, "texts", "empty.txt"))
	assert.True(t, os.IsNotExist(err))

	// The id stays available for a later non-empty add.
	require.NoError(t, store.AddDocument(ctx, "empty", "Empty", "real sentence", "test", ""))
	assert.Equal(t, 1, store.DocumentCount())
}

func TestVectorCountMatchesSentenceTotal(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.AddDocument(ctx, "a", "A", "s1|s2|s3", "test", ""))
	require.NoError(t, store.AddDocument(ctx, "b", "B", "s1", "test", ""))
	require.NoError(t, store.AddDocument(ctx, "c", "C", "s1|s2|s3|s4|s5", "test", ""))

	stats := store.Stats()
	assert.Equal(t, 3, stats.DocumentCount)
	assert.Equal(t, int64(3+1+5), stats.VectorCount)
}

func TestResolve(t *testing.T) {
	store := newTestStore(t, t.TempDir())
	ctx := context.Background()

	// Unequal sentence counts: slots 0-2 belong to a, 3 to b, 4-8 to c.
	require.NoError(t, store.AddDocument(ctx, "a", "Doc A", "s1|s2|s3", "test", ""))
	require.NoError(t, store.AddDocument(ctx, "b", "Doc B", "s1", "test", ""))
	require.NoError(t, store.AddDocument(ctx, "c", "Doc C", "s1|s2|s3|s4|s5", "test", ""))

	cases := []struct {
		slot  int64
		title string
	}{
		{0, "Doc A"},
		{2, "Doc A"},
		{3, "Doc B"},
		{4, "Doc C"},
		{8, "Doc C"},
	}
	for _, tc := range cases {
		meta, ok := store.Resolve(tc.slot)
		require.True(t, ok, "slot %d", tc.slot)
		assert.Equal(t, tc.title, meta.Title, "slot %d", tc.slot)
	}

	_, ok := store.Resolve(9)
	assert.False(t, ok)
	_, ok = store.Resolve(-1)
	assert.False(t, ok)
}

func TestPersistAndReload(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	ctx := context.Background()

	require.NoError(t, store.AddDocument(ctx, "a", "Doc A", "s1|s2", "test", "http://a"))
	require.NoError(t, store.AddDocument(ctx, "b", "Doc B", "longer sentence here", "test", ""))
	require.NoError(t, store.Persist(ctx))

	reloaded := newTestStore(t, dir)

	stats := reloaded.Stats()
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, int64(3), stats.VectorCount)

	meta, ok := reloaded.Resolve(2)
	require.True(t, ok)
	assert.Equal(t, "Doc B", meta.Title)

	texts := reloaded.Texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "s1|s2", texts[0])
	assert.Equal(t, "longer sentence here", texts[1])
}

func TestBuildIsIdempotentAcrossRuns(t *testing.T) {
	ctx := context.Background()

	docs := []struct{ id, title, text string }{
		{"a", "Doc A", "s1|s2|s3"},
		{"b", "Doc B", "s1|s2"},
	}

	build := func(dir string) Stats {
		store := newTestStore(t, dir)
		for _, doc := range docs {
			require.NoError(t, store.AddDocument(ctx, doc.id, doc.title, doc.text, "test", ""))
		}
		require.NoError(t, store.Persist(ctx))
		return store.Stats()
	}

	first := build(t.TempDir())
	second := build(t.TempDir())

	assert.Equal(t, first.DocumentCount, second.DocumentCount)
	assert.Equal(t, first.VectorCount, second.VectorCount)
}

func TestLoadRejectsVectorCountMismatch(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	ctx := context.Background()

	require.NoError(t, store.AddDocument(ctx, "a", "Doc A", "s1|s2", "test", ""))
	require.NoError(t, store.Persist(ctx))

	// Claim an extra sentence in the metadata without adding its vector.
	metaPath := filepath.Join(dir, "metadata.json")
	data, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	corrupted := strings.Replace(string(data), `"num_sentences": 2`, `"num_sentences": 3`, 1)
	require.NotEqual(t, string(data), corrupted)
	require.NoError(t, os.WriteFile(metaPath, []byte(corrupted), 0644))

	idx, _, err := flat.Open(filepath.Join(dir, "index.bin"), 4)
	require.NoError(t, err)

	_, err = NewStore(dir, idx, &fakeEmbedder{dim: 4}, pipeSegment)
	assert.ErrorIs(t, err, ErrCorpusCorrupt)
}

func TestLoadRejectsMissingMetadata(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	ctx := context.Background()

	require.NoError(t, store.AddDocument(ctx, "a", "Doc A", "s1|s2", "test", ""))
	require.NoError(t, store.Persist(ctx))
	require.NoError(t, os.Remove(filepath.Join(dir, "metadata.json")))

	idx, _, err := flat.Open(filepath.Join(dir, "index.bin"), 4)
	require.NoError(t, err)

	_, err = NewStore(dir, idx, &fakeEmbedder{dim: 4}, pipeSegment)
	assert.ErrorIs(t, err, ErrCorpusCorrupt)
}

func TestLoadRejectsMissingText(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	ctx := context.Background()

	require.NoError(t, store.AddDocument(ctx, "a", "Doc A", "s1|s2", "test", ""))
	require.NoError(t, store.Persist(ctx))
	require.NoError(t, os.Remove(filepath.Join(dir, "texts", "a.txt")))

	idx, _, err := flat.Open(filepath.Join(dir, "index.bin"), 4)
	require.NoError(t, err)

	_, err = NewStore(dir, idx, &fakeEmbedder{dim: 4}, pipeSegment)
	assert.ErrorIs(t, err, ErrCorpusCorrupt)
}
