package repository

import (
	"context"
	"time"

	"newsbot/internal/domain/entity"
)

// SimilarItem is one result of a nearest-neighbor embedding search.
// PublishedAt rides along so the clustering pass can break exact
// similarity ties toward the oldest publication; nil when the item
// carried no date.
type SimilarItem struct {
	RawItemID   int64
	Similarity  float64
	PublishedAt *time.Time
}

// ItemEmbeddingRepository manages the fixed-dimension vector representation
// of each RawItem and the pgvector-backed similarity search over them.
type ItemEmbeddingRepository interface {
	// Upsert creates or replaces the embedding for a RawItem.
	Upsert(ctx context.Context, embedding *entity.ItemEmbedding) error

	GetByRawItemID(ctx context.Context, rawItemID int64) (*entity.ItemEmbedding, error)

	// SearchSimilar finds the raw items whose embeddings are closest to
	// vector by cosine distance, restricted to items fetched at or after
	// since, ordered by similarity descending, bounded by limit.
	SearchSimilar(ctx context.Context, vector []float32, since time.Time, limit int) ([]SimilarItem, error)

	DeleteByRawItemID(ctx context.Context, rawItemID int64) (int64, error)
}
