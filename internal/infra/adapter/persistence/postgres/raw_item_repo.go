package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// RawItemRepo implements repository.RawItemRepository for PostgreSQL.
type RawItemRepo struct {
	db *sql.DB
}

// NewRawItemRepo creates a new PostgreSQL-based RawItemRepository.
func NewRawItemRepo(db *sql.DB) repository.RawItemRepository {
	return &RawItemRepo{db: db}
}

const rawItemColumns = `id, source_id, external_id, url, canonical_url, title, author, kind,
	published_at, fetched_at, raw_text, raw_payload, content_hash, status`

func scanRawItem(row interface{ Scan(...any) error }) (*entity.RawItem, error) {
	var item entity.RawItem
	var canonicalURL, author sql.NullString
	var publishedAt sql.NullTime
	var payloadRaw []byte

	if err := row.Scan(
		&item.ID, &item.SourceID, &item.ExternalID, &item.URL, &canonicalURL,
		&item.Title, &author, &item.Kind, &publishedAt, &item.FetchedAt,
		&item.RawText, &payloadRaw, &item.ContentHash, &item.Status,
	); err != nil {
		return nil, err
	}

	item.CanonicalURL = canonicalURL.String
	item.Author = author.String
	if publishedAt.Valid {
		item.PublishedAt = &publishedAt.Time
	}
	if len(payloadRaw) > 0 {
		if err := json.Unmarshal(payloadRaw, &item.RawPayload); err != nil {
			return nil, fmt.Errorf("unmarshal raw_payload: %w", err)
		}
	}

	return &item, nil
}

func (r *RawItemRepo) Get(ctx context.Context, id int64) (*entity.RawItem, error) {
	query := `SELECT ` + rawItemColumns + ` FROM raw_items WHERE id = $1`
	item, err := scanRawItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return item, nil
}

func (r *RawItemRepo) ExistsByExternalID(ctx context.Context, sourceID int64, externalID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM raw_items WHERE source_id = $1 AND external_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, sourceID, externalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ExistsByExternalID: %w", err)
	}
	return exists, nil
}

func (r *RawItemRepo) Create(ctx context.Context, item *entity.RawItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	payloadRaw, err := json.Marshal(item.RawPayload)
	if err != nil {
		return fmt.Errorf("Create: marshal raw_payload: %w", err)
	}
	if item.Status == "" {
		item.Status = entity.ItemStatusNew
	}

	const query = `
INSERT INTO raw_items (source_id, external_id, url, canonical_url, title, author, kind,
	published_at, raw_text, raw_payload, content_hash, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id, fetched_at`

	err = r.db.QueryRowContext(ctx, query,
		item.SourceID, item.ExternalID, item.URL, nullString(item.CanonicalURL),
		item.Title, nullString(item.Author), string(item.Kind), item.PublishedAt,
		item.RawText, payloadRaw, item.ContentHash, string(item.Status),
	).Scan(&item.ID, &item.FetchedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *RawItemRepo) ListByStatus(ctx context.Context, status entity.ItemStatus, limit int) ([]*entity.RawItem, error) {
	query := `SELECT ` + rawItemColumns + ` FROM raw_items WHERE status = $1 ORDER BY fetched_at ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.RawItem, 0, limit)
	for rows.Next() {
		item, err := scanRawItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByStatus: Scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *RawItemRepo) UpdateStatus(ctx context.Context, id int64, status entity.ItemStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE raw_items SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: RowsAffected: %w", err)
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *RawItemRepo) FindCandidatesSince(ctx context.Context, since time.Time, filters repository.RawItemFilters) ([]*entity.RawItem, error) {
	query := `SELECT ` + rawItemColumns + ` FROM raw_items WHERE fetched_at >= $1`
	args := []any{since}

	if filters.SourceID != nil {
		args = append(args, *filters.SourceID)
		query += fmt.Sprintf(" AND source_id = $%d", len(args))
	}
	if filters.Since != nil {
		args = append(args, *filters.Since)
		query += fmt.Sprintf(" AND fetched_at >= $%d", len(args))
	}
	query += " ORDER BY fetched_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("FindCandidatesSince: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.RawItem, 0)
	for rows.Next() {
		item, err := scanRawItem(rows)
		if err != nil {
			return nil, fmt.Errorf("FindCandidatesSince: Scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *RawItemRepo) FindByTitleWindow(ctx context.Context, title string, since time.Time) ([]*entity.RawItem, error) {
	query := `SELECT ` + rawItemColumns + ` FROM raw_items WHERE title = $1 AND fetched_at >= $2 ORDER BY fetched_at DESC`
	rows, err := r.db.QueryContext(ctx, query, title, since)
	if err != nil {
		return nil, fmt.Errorf("FindByTitleWindow: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.RawItem, 0)
	for rows.Next() {
		item, err := scanRawItem(rows)
		if err != nil {
			return nil, fmt.Errorf("FindByTitleWindow: Scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *RawItemRepo) FindByURL(ctx context.Context, url string) (*entity.RawItem, error) {
	query := `SELECT ` + rawItemColumns + ` FROM raw_items WHERE url = $1 ORDER BY fetched_at ASC LIMIT 1`
	item, err := scanRawItem(r.db.QueryRowContext(ctx, query, url))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("FindByURL: %w", err)
	}
	return item, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
