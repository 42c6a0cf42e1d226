package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasper-ai/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func TestInsertAndListDetections(t *testing.T) {
	client := newTestClient(t)

	base := time.Now().Truncate(time.Second)
	records := []models.DetectionRecord{
		{ID: "r1", Kind: "plagiarism", TextHash: "h1", TextLength: 100, Score: 12.5, Level: "Moderate", LatencyMS: 40, CreatedAt: base},
		{ID: "r2", Kind: "ai", TextHash: "h2", TextLength: 200, Score: 80.0, Level: "High", LatencyMS: 90, CreatedAt: base.Add(time.Second)},
		{ID: "r3", Kind: "plagiarism", TextHash: "h3", TextLength: 50, Score: 3.0, Level: "Low", LatencyMS: 20, CreatedAt: base.Add(2 * time.Second)},
	}
	for i := range records {
		require.NoError(t, client.InsertDetection(&records[i]))
	}

	all, err := client.ListDetections("", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Newest first.
	assert.Equal(t, "r3", all[0].ID)
	assert.Equal(t, "r1", all[2].ID)
	assert.Equal(t, 3.0, all[0].Score)
	assert.Equal(t, "Low", all[0].Level)
}

func TestListDetectionsFiltersByKind(t *testing.T) {
	client := newTestClient(t)

	now := time.Now()
	require.NoError(t, client.InsertDetection(&models.DetectionRecord{
		ID: "p1", Kind: "plagiarism", TextHash: "h", TextLength: 1, Score: 1, Level: "Low", CreatedAt: now,
	}))
	require.NoError(t, client.InsertDetection(&models.DetectionRecord{
		ID: "a1", Kind: "ai", TextHash: "h", TextLength: 1, Score: 1, Level: "Low", CreatedAt: now,
	}))

	plagiarismOnly, err := client.ListDetections("plagiarism", 10)
	require.NoError(t, err)
	require.Len(t, plagiarismOnly, 1)
	assert.Equal(t, "p1", plagiarismOnly[0].ID)
}

func TestListDetectionsLimit(t *testing.T) {
	client := newTestClient(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.InsertDetection(&models.DetectionRecord{
			ID:        string(rune('a' + i)),
			Kind:      "ai",
			TextHash:  "h",
			Score:     1,
			Level:     "Low",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	limited, err := client.ListDetections("", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestInsertDuplicateIDFails(t *testing.T) {
	client := newTestClient(t)

	rec := models.DetectionRecord{
		ID: "dup", Kind: "ai", TextHash: "h", Score: 1, Level: "Low", CreatedAt: time.Now(),
	}
	require.NoError(t, client.InsertDetection(&rec))
	assert.Error(t, client.InsertDetection(&rec))
}
