package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"

	"github.com/pgvector/pgvector-go"
)

// DefaultSimilaritySearchTimeout bounds how long a nearest-neighbor query
// over item_embeddings may run before the caller's context is cancelled.
const DefaultSimilaritySearchTimeout = 5 * time.Second

// ItemEmbeddingRepo implements repository.ItemEmbeddingRepository for PostgreSQL,
// backed by pgvector's ivfflat cosine-distance index.
type ItemEmbeddingRepo struct {
	db *sql.DB
}

// NewItemEmbeddingRepo creates a new PostgreSQL-based ItemEmbeddingRepository.
func NewItemEmbeddingRepo(db *sql.DB) repository.ItemEmbeddingRepository {
	return &ItemEmbeddingRepo{db: db}
}

func (r *ItemEmbeddingRepo) Upsert(ctx context.Context, embedding *entity.ItemEmbedding) error {
	if err := embedding.Validate(); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	vector := pgvector.NewVector(embedding.Vector)

	const query = `
INSERT INTO item_embeddings (raw_item_id, model_id, provider, dimension, vector, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (raw_item_id) DO UPDATE SET
	model_id  = EXCLUDED.model_id,
	provider  = EXCLUDED.provider,
	dimension = EXCLUDED.dimension,
	vector    = EXCLUDED.vector,
	created_at = NOW()
RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		embedding.RawItemID, embedding.ModelID, string(embedding.Provider),
		embedding.Dimension, vector,
	).Scan(&embedding.CreatedAt)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *ItemEmbeddingRepo) GetByRawItemID(ctx context.Context, rawItemID int64) (*entity.ItemEmbedding, error) {
	const query = `
SELECT raw_item_id, model_id, provider, dimension, vector, created_at
FROM item_embeddings
WHERE raw_item_id = $1`

	var emb entity.ItemEmbedding
	var vector pgvector.Vector
	var provider string

	err := r.db.QueryRowContext(ctx, query, rawItemID).Scan(
		&emb.RawItemID, &emb.ModelID, &provider, &emb.Dimension, &vector, &emb.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("GetByRawItemID: %w", err)
	}
	emb.Provider = entity.EmbeddingProvider(provider)
	emb.Vector = vector.Slice()
	return &emb, nil
}

// SearchSimilar finds the raw items whose vectors are closest to vector by
// cosine distance, restricted to items fetched at or after since.
func (r *ItemEmbeddingRepo) SearchSimilar(ctx context.Context, vector []float32, since time.Time, limit int) ([]repository.SimilarItem, error) {
	searchCtx, cancel := context.WithTimeout(ctx, DefaultSimilaritySearchTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	vec := pgvector.NewVector(vector)

	// published_at NULLS LAST mirrors the tie-break in the clustering
	// pass: among equally-similar neighbors the oldest publication is
	// the most authoritative origin.
	const query = `
SELECT e.raw_item_id, 1 - (e.vector <=> $1) AS similarity, i.published_at
FROM item_embeddings e
JOIN raw_items i ON i.id = e.raw_item_id
WHERE i.fetched_at >= $2
ORDER BY e.vector <=> $1, i.published_at ASC NULLS LAST
LIMIT $3`

	rows, err := r.db.QueryContext(searchCtx, query, vec, since, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.SimilarItem, 0, limit)
	for rows.Next() {
		var result repository.SimilarItem
		var publishedAt sql.NullTime
		if err := rows.Scan(&result.RawItemID, &result.Similarity, &publishedAt); err != nil {
			return nil, fmt.Errorf("SearchSimilar: Scan: %w", err)
		}
		if publishedAt.Valid {
			result.PublishedAt = &publishedAt.Time
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (r *ItemEmbeddingRepo) DeleteByRawItemID(ctx context.Context, rawItemID int64) (int64, error) {
	const query = `DELETE FROM item_embeddings WHERE raw_item_id = $1`
	result, err := r.db.ExecContext(ctx, query, rawItemID)
	if err != nil {
		return 0, fmt.Errorf("DeleteByRawItemID: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteByRawItemID: RowsAffected: %w", err)
	}
	return count, nil
}
