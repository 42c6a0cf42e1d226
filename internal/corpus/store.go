// Package corpus manages the on-disk document set backing the plagiarism
// engine: one raw-text file per document, an ordered metadata sequence and
// the sentence-vector index. Metadata order and index append order are kept
// in a single record list so they cannot drift apart.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/inference"
	"github.com/jasper-ai/backend/internal/nlp"
	"github.com/jasper-ai/backend/internal/vector"
	"github.com/jasper-ai/backend/pkg/logger"
)

const (
	metadataFile = "metadata.json"
	textsDir     = "texts"
)

var (
	// ErrDuplicateID rejects re-adding an indexed document: an append-only
	// index cannot remove the old vectors, so replace-in-place would leave
	// orphaned entries. Rebuild the corpus to replace a document.
	ErrDuplicateID = errors.New("document id already indexed")

	// ErrCorpusCorrupt signals that the index and the metadata sequence
	// disagree. This is fatal at load time, never an empty-corpus fallback.
	ErrCorpusCorrupt = errors.New("corpus storage is inconsistent")
)

// Metadata is one entry of the ordered metadata sequence. The on-disk JSON
// layout matches the established corpus format.
type Metadata struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Source        string `json:"source"`
	URL           string `json:"url"`
	SentenceCount int    `json:"num_sentences"`
}

// record couples a document's metadata with its contiguous slot range in the
// vector index: [SlotStart, SlotEnd).
type record struct {
	Metadata
	SlotStart int64
	SlotEnd   int64
}

// Stats reports corpus size, read-only.
type Stats struct {
	DocumentCount  int   `json:"document_count"`
	VectorCount    int64 `json:"vector_count"`
	IndexSizeBytes int64 `json:"index_size_bytes"`
}

// Store owns the corpus directory. Reads are safe concurrently; writes
// (AddDocument, Persist) are serialized against reads and each other.
type Store struct {
	mu       sync.RWMutex
	dir      string
	index    vector.Index
	embedder inference.Embedder
	segment  nlp.SegmentFunc
	records  []record
	texts    []string
	byID     map[string]int
}

// NewStore opens the corpus at dir against the given index. Existing metadata
// is loaded and verified against the index vector count; any mismatch between
// the two (in either direction) fails with ErrCorpusCorrupt.
func NewStore(dir string, index vector.Index, embedder inference.Embedder, segment nlp.SegmentFunc) (*Store, error) {
	if segment == nil {
		segment = nlp.Sentences
	}

	if err := os.MkdirAll(filepath.Join(dir, textsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create corpus directories: %w", err)
	}

	s := &Store{
		dir:      dir,
		index:    index,
		embedder: embedder,
		segment:  segment,
		byID:     make(map[string]int),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	logger.Info("Corpus store opened",
		zap.String("dir", dir),
		zap.Int("documents", len(s.records)),
		zap.Int64("vectors", index.Count()),
	)

	return s, nil
}

func (s *Store) load() error {
	metaPath := filepath.Join(s.dir, metadataFile)

	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		if s.index.Count() > 0 {
			return fmt.Errorf("%w: index holds %d vectors but %s is missing",
				ErrCorpusCorrupt, s.index.Count(), metadataFile)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metas []Metadata
	if err := json.Unmarshal(data, &metas); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrCorpusCorrupt, metadataFile, err)
	}

	var offset int64
	for _, meta := range metas {
		rec := record{
			Metadata:  meta,
			SlotStart: offset,
			SlotEnd:   offset + int64(meta.SentenceCount),
		}
		offset = rec.SlotEnd

		text, err := os.ReadFile(s.textPath(meta.ID))
		if err != nil {
			return fmt.Errorf("%w: missing raw text for document %q: %v", ErrCorpusCorrupt, meta.ID, err)
		}

		s.byID[meta.ID] = len(s.records)
		s.records = append(s.records, rec)
		s.texts = append(s.texts, string(text))
	}

	if offset != s.index.Count() {
		return fmt.Errorf("%w: metadata expects %d vectors, index holds %d",
			ErrCorpusCorrupt, offset, s.index.Count())
	}

	return nil
}

func (s *Store) textPath(id string) string {
	return filepath.Join(s.dir, textsDir, id+".txt")
}

// AddDocument segments text into sentences, appends their embeddings to the
// index and records the document. A document with zero sentences is a
// complete no-op: no metadata record, no vectors, no raw-text file.
func (s *Store) AddDocument(ctx context.Context, id, title, text, source, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}

	sentences := s.segment(text)
	if len(sentences) == 0 {
		logger.Warn("Skipping document with no sentences", zap.String("id", id))
		return nil
	}

	embeddings, err := s.embedder.Encode(ctx, sentences)
	if err != nil {
		return fmt.Errorf("failed to encode document %q: %w", id, err)
	}

	if err := s.index.Add(ctx, embeddings); err != nil {
		return fmt.Errorf("failed to index document %q: %w", id, err)
	}

	if err := os.WriteFile(s.textPath(id), []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write raw text for %q: %w", id, err)
	}

	start := int64(0)
	if len(s.records) > 0 {
		start = s.records[len(s.records)-1].SlotEnd
	}
	rec := record{
		Metadata: Metadata{
			ID:            id,
			Title:         title,
			Source:        source,
			URL:           url,
			SentenceCount: len(sentences),
		},
		SlotStart: start,
		SlotEnd:   start + int64(len(sentences)),
	}

	s.byID[id] = len(s.records)
	s.records = append(s.records, rec)
	s.texts = append(s.texts, text)

	logger.Info("Document added to corpus",
		zap.String("id", id),
		zap.String("title", title),
		zap.Int("sentences", len(sentences)),
	)

	return nil
}

// Persist flushes the index and writes the metadata sequence atomically.
// Metadata is written last: it is the commit point for the batch.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.index.Persist(ctx); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}

	metas := make([]Metadata, len(s.records))
	for i, rec := range s.records {
		metas[i] = rec.Metadata
	}

	data, err := json.MarshalIndent(metas, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	metaPath := filepath.Join(s.dir, metadataFile)
	tmp := metaPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp, metaPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace metadata: %w", err)
	}

	logger.Info("Corpus persisted",
		zap.Int("documents", len(s.records)),
		zap.Int64("vectors", s.index.Count()),
	)

	return nil
}

// Stats returns corpus counters without side effects.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		DocumentCount:  len(s.records),
		VectorCount:    s.index.Count(),
		IndexSizeBytes: s.index.SizeBytes(),
	}
}

// DocumentCount reports the number of indexed documents.
func (s *Store) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Texts returns the raw corpus texts in index order. The returned slice is a
// copy and safe to hold across store mutations.
func (s *Store) Texts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}

// Search runs a nearest-neighbor query against the sentence index.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]vector.Hit, error) {
	return s.index.Search(ctx, query, k)
}

// Resolve maps a vector slot back to its owning document by binary search
// over the contiguous slot ranges. Per-document sentence counts vary, so a
// fixed-stride division would attribute matches to the wrong document.
func (s *Store) Resolve(slot int64) (Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].SlotEnd > slot
	})
	if i >= len(s.records) || slot < s.records[i].SlotStart {
		return Metadata{}, false
	}
	return s.records[i].Metadata, true
}
