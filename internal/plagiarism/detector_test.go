package plagiarism

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasper-ai/backend/internal/corpus"
	"github.com/jasper-ai/backend/internal/vector/flat"
)

// wordCountEmbedder maps a sentence to a vector driven by its word count, so
// identical sentences embed identically and nearby lengths embed nearby.
type wordCountEmbedder struct{}

func (wordCountEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(strings.Fields(text))) * 0.3, 0, 0, 0}
	}
	return out, nil
}

func (wordCountEmbedder) Dimension() int { return 4 }

type failingEmbedder struct{}

func (failingEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("model server unavailable")
}

func (failingEmbedder) Dimension() int { return 4 }

func pipeSegment(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func newTestStore(t *testing.T) *corpus.Store {
	t.Helper()

	idx, _, err := flat.Open(filepath.Join(t.TempDir(), "index.bin"), 4)
	require.NoError(t, err)

	store, err := corpus.NewStore(t.TempDir(), idx, wordCountEmbedder{}, pipeSegment)
	require.NoError(t, err)
	return store
}

func TestDetectEmptyText(t *testing.T) {
	store := newTestStore(t)
	d := NewDetector(store, wordCountEmbedder{}, pipeSegment)

	result, err := d.Detect(context.Background(), "   \n  ")
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, "None", result.Level)
	assert.Empty(t, result.Matches)
	assert.Equal(t, 0, result.CorpusSize)
}

func TestDetectEmptyCorpus(t *testing.T) {
	store := newTestStore(t)
	d := NewDetector(store, wordCountEmbedder{}, pipeSegment)

	result, err := d.Detect(context.Background(), "some original writing here")
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Score)
	assert.Equal(t, "Low", result.Level)
	assert.Equal(t, 0, result.CorpusSize)
	assert.Contains(t, result.Note, "Expand corpus")
}

func TestDetectExactDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	text := "machine learning automates analytical model building from data"
	require.NoError(t, store.AddDocument(ctx, "doc1", "ML Basics", text, "test", "http://src"))

	d := NewDetector(store, wordCountEmbedder{}, pipeSegment)
	result, err := d.Detect(ctx, text)
	require.NoError(t, err)

	assert.Greater(t, result.Score, 80.0)
	assert.Equal(t, "High", result.Level)
	assert.Equal(t, 1, result.CorpusSize)
	require.NotEmpty(t, result.Matches)
	for _, m := range result.Matches {
		assert.Greater(t, m.Similarity, 0.9)
		assert.Equal(t, "ML Basics", m.MatchedSource)
		assert.Equal(t, "http://src", m.SourceURL)
	}
}

func TestDetectMatchesSortedDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Five words per corpus sentence.
	require.NoError(t, store.AddDocument(ctx, "doc1", "Doc", "one two three four five", "test", ""))

	d := NewDetector(store, wordCountEmbedder{}, pipeSegment)

	// First input sentence matches exactly (five words), second is one word
	// off so its similarity is lower but still above the threshold.
	result, err := d.Detect(ctx, "aa bb cc dd ee|aa bb cc dd")
	require.NoError(t, err)

	require.Len(t, result.Matches, 2)
	assert.InDelta(t, 1.0, result.Matches[0].Similarity, 1e-4)
	assert.Greater(t, result.Matches[0].Similarity, result.Matches[1].Similarity)
	assert.Greater(t, result.Matches[1].Similarity, 0.7)
}

func TestDetectMatchesCapped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Four corpus sentences with identical embeddings: every input sentence
	// collects three matches, so twelve input sentences exceed the cap.
	require.NoError(t, store.AddDocument(ctx, "doc1", "Doc",
		"a b c|d e f|g h i|j k l", "test", ""))

	input := strings.Repeat("x y z|", 12)
	d := NewDetector(store, wordCountEmbedder{}, pipeSegment)

	result, err := d.Detect(ctx, input)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 10)
}

func TestDetectDegradesWhenEncodingFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddDocument(ctx, "doc1", "Doc", "shared words appear here", "test", ""))

	d := NewDetector(store, failingEmbedder{}, pipeSegment)
	result, err := d.Detect(ctx, "shared words appear here")
	require.NoError(t, err)

	assert.Empty(t, result.Matches)
	assert.Contains(t, result.Note, "TF-IDF only")
	// TF-IDF still scores the duplicate text.
	assert.Greater(t, result.Score, 0.0)
}

func TestDetectLevels(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddDocument(ctx, "doc1", "Doc",
		"completely unrelated corpus material about gardening", "test", ""))

	d := NewDetector(store, wordCountEmbedder{}, pipeSegment)

	// An exact duplicate lands High; the level mirrors the score bands.
	high, err := d.Detect(ctx, "completely unrelated corpus material about gardening")
	require.NoError(t, err)
	assert.Equal(t, "High", high.Level)
	assert.GreaterOrEqual(t, high.Score, 25.0)
}
