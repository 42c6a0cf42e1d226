// Package milvus implements the vector.Index capability on a Milvus
// collection, for deployments that prefer a service-backed index over the
// default flat file. Slots are stored as the primary key so the slot-range
// document mapping works identically across backends.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/vector"
	"github.com/jasper-ai/backend/pkg/logger"
)

type Index struct {
	mu             sync.Mutex
	client         client.Client
	collectionName string
	dim            int
	count          int64
}

func Open(ctx context.Context, endpoint, collectionName string, dim int) (*Index, error) {
	c, err := client.NewGrpcClient(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	idx := &Index{
		client:         c,
		collectionName: collectionName,
		dim:            dim,
	}

	if err := idx.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	count, err := idx.rowCount(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	idx.count = count

	logger.Info("Milvus index opened",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
		zap.Int64("vectors", count),
	)

	return idx, nil
}

func (idx *Index) Close() error {
	return idx.client.Close()
}

func (idx *Index) ensureCollection(ctx context.Context) error {
	has, err := idx.client.HasCollection(ctx, idx.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !has {
		schema := &entity.Schema{
			CollectionName: idx.collectionName,
			Description:    "Sentence embeddings for plagiarism detection",
			Fields: []*entity.Field{
				{
					Name:       "slot",
					DataType:   entity.FieldTypeInt64,
					PrimaryKey: true,
					AutoID:     false,
				},
				{
					Name:     "embedding",
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", idx.dim),
					},
				},
			},
		}

		if err := idx.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		index, err := entity.NewIndexIvfFlat(entity.L2, 128)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := idx.client.CreateIndex(ctx, idx.collectionName, "embedding", index, false); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := idx.client.LoadCollection(ctx, idx.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

func (idx *Index) rowCount(ctx context.Context) (int64, error) {
	stats, err := idx.client.GetCollectionStatistics(ctx, idx.collectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}

	raw, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse row count %q: %w", raw, err)
	}
	return count, nil
}

func (idx *Index) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	slots := make([]int64, len(vectors))
	for i := range vectors {
		if len(vectors[i]) != idx.dim {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vectors[i]), idx.dim)
		}
		slots[i] = idx.count + int64(i)
	}

	_, err := idx.client.Insert(
		ctx,
		idx.collectionName,
		"",
		entity.NewColumnInt64("slot", slots),
		entity.NewColumnFloatVector("embedding", idx.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("failed to insert vectors: %w", err)
	}

	idx.count += int64(len(vectors))
	return nil
}

func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]vector.Hit, error) {
	if idx.Count() == 0 || k <= 0 {
		return nil, nil
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	results, err := idx.client.Search(
		ctx,
		idx.collectionName,
		[]string{},
		"",
		[]string{"slot"},
		[]entity.Vector{entity.FloatVector(query)},
		"embedding",
		entity.L2,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]vector.Hit, 0, k)
	for _, sr := range results {
		slotCol, ok := sr.IDs.(*entity.ColumnInt64)
		if !ok {
			return nil, fmt.Errorf("unexpected id column type %T", sr.IDs)
		}
		for i, slot := range slotCol.Data() {
			hits = append(hits, vector.Hit{
				Slot:     slot,
				Distance: sr.Scores[i],
			})
		}
	}

	return hits, nil
}

func (idx *Index) Count() int64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.count
}

func (idx *Index) Persist(ctx context.Context) error {
	if err := idx.client.Flush(ctx, idx.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	return nil
}

func (idx *Index) SizeBytes() int64 {
	// Storage is managed by the Milvus service.
	return 0
}
