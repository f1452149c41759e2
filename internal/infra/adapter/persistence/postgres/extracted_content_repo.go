package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// ExtractedContentRepo implements repository.ExtractedContentRepository for PostgreSQL.
type ExtractedContentRepo struct {
	db *sql.DB
}

// NewExtractedContentRepo creates a new PostgreSQL-based ExtractedContentRepository.
func NewExtractedContentRepo(db *sql.DB) repository.ExtractedContentRepository {
	return &ExtractedContentRepo{db: db}
}

const extractedContentColumns = `raw_item_id, final_url, text, word_count, method, quality, extracted_at`

func (r *ExtractedContentRepo) Create(ctx context.Context, content *entity.ExtractedContent) error {
	if err := content.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO extracted_content (raw_item_id, final_url, text, word_count, method, quality)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING extracted_at`

	err := r.db.QueryRowContext(ctx, query,
		content.RawItemID, nullString(content.FinalURL), content.Text,
		content.WordCount, content.Method, content.Quality,
	).Scan(&content.ExtractedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ExtractedContentRepo) GetByRawItemID(ctx context.Context, rawItemID int64) (*entity.ExtractedContent, error) {
	query := `SELECT ` + extractedContentColumns + ` FROM extracted_content WHERE raw_item_id = $1`

	var content entity.ExtractedContent
	var finalURL sql.NullString
	err := r.db.QueryRowContext(ctx, query, rawItemID).Scan(
		&content.RawItemID, &finalURL, &content.Text, &content.WordCount,
		&content.Method, &content.Quality, &content.ExtractedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("GetByRawItemID: %w", err)
	}
	content.FinalURL = finalURL.String
	return &content, nil
}
