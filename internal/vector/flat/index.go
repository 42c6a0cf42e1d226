// Package flat implements an exact squared-L2 nearest-neighbor index over a
// flat slice of fixed-dimension vectors, persisted as a single binary file.
// Exact search is sufficient at the target corpus scale (hundreds to low
// thousands of documents).
package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/vector"
	"github.com/jasper-ai/backend/pkg/logger"
)

var fileMagic = [8]byte{'J', 'F', 'L', 'A', 'T', '0', '0', '1'}

type Index struct {
	mu      sync.RWMutex
	path    string
	dim     int
	vectors [][]float32
}

// Open loads the index file at path if it exists, otherwise starts empty.
// The second return value reports whether an on-disk index was loaded.
func Open(path string, dim int) (*Index, bool, error) {
	if dim <= 0 {
		return nil, false, fmt.Errorf("invalid vector dimension %d", dim)
	}

	idx := &Index{path: path, dim: dim}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return idx, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	if err := idx.read(bufio.NewReader(f)); err != nil {
		return nil, false, fmt.Errorf("failed to read index file %s: %w", path, err)
	}

	logger.Info("Flat index loaded",
		zap.String("path", path),
		zap.Int("vectors", len(idx.vectors)),
		zap.Int("dim", dim),
	)

	return idx, true, nil
}

func (idx *Index) read(r io.Reader) error {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if magic != fileMagic {
		return fmt.Errorf("unrecognized index file format")
	}

	var dim uint32
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("failed to read dimension: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("failed to read vector count: %w", err)
	}
	if int(dim) != idx.dim {
		return fmt.Errorf("index dimension %d does not match configured dimension %d", dim, idx.dim)
	}

	vectors := make([][]float32, 0, count)
	for i := uint64(0); i < count; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("failed to read vector %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}

	idx.vectors = vectors
	return nil
}

func (idx *Index) Add(ctx context.Context, vectors [][]float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, vec := range vectors {
		if len(vec) != idx.dim {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), idx.dim)
		}
	}

	idx.vectors = append(idx.vectors, vectors...)
	return nil
}

func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]vector.Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(query) != idx.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), idx.dim)
	}
	if len(idx.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(idx.vectors) {
		k = len(idx.vectors)
	}

	hits := make([]vector.Hit, 0, len(idx.vectors))
	for slot, vec := range idx.vectors {
		hits = append(hits, vector.Hit{
			Slot:     int64(slot),
			Distance: squaredL2(query, vec),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Slot < hits[j].Slot
	})

	return hits[:k], nil
}

func (idx *Index) Count() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return int64(len(idx.vectors))
}

// Persist writes the index atomically: a temp file in the same directory is
// renamed over the target so readers never observe a half-written index.
func (idx *Index) Persist(ctx context.Context) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tmp := idx.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := idx.write(w); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to flush index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close index file: %w", err)
	}

	if err := os.Rename(tmp, idx.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace index file: %w", err)
	}

	logger.Info("Flat index persisted",
		zap.String("path", idx.path),
		zap.Int("vectors", len(idx.vectors)),
	)

	return nil
}

func (idx *Index) write(w io.Writer) error {
	if _, err := w.Write(fileMagic[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(idx.dim)); err != nil {
		return fmt.Errorf("failed to write dimension: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(idx.vectors))); err != nil {
		return fmt.Errorf("failed to write vector count: %w", err)
	}
	for i, vec := range idx.vectors {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("failed to write vector %d: %w", i, err)
		}
	}
	return nil
}

func (idx *Index) SizeBytes() int64 {
	info, err := os.Stat(idx.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
