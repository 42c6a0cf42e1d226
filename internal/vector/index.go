// Package vector defines the nearest-neighbor index capability shared by the
// corpus store and the plagiarism detector. Backends are swappable without
// touching the document/metadata contract.
package vector

import "context"

// Hit is a single nearest-neighbor result. Slot is the append-order position
// of the stored vector; Distance is the squared L2 distance to the query.
type Hit struct {
	Slot     int64
	Distance float32
}

type Index interface {
	// Add appends vectors in order. Slots are assigned sequentially.
	Add(ctx context.Context, vectors [][]float32) error
	// Search returns up to k nearest hits, closest first.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	// Count reports the number of stored vectors.
	Count() int64
	// Persist flushes the index to durable storage.
	Persist(ctx context.Context) error
	// SizeBytes reports the on-disk size of the index, 0 if unknown.
	SizeBytes() int64
}
