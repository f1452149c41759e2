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

// SourceRepo implements repository.SourceRepository for PostgreSQL.
type SourceRepo struct {
	db *sql.DB
}

// NewSourceRepo creates a new PostgreSQL-based SourceRepository.
func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

func scanSource(row interface{ Scan(...any) error }) (*entity.Source, error) {
	var s entity.Source
	var configRaw []byte
	var lastCrawledAt sql.NullTime

	if err := row.Scan(
		&s.ID, &s.Name, &s.Type, &s.URL, &s.Category, &s.CredibilityTier,
		&s.Enabled, &configRaw, &lastCrawledAt, &s.CreatedAt,
	); err != nil {
		return nil, err
	}

	if lastCrawledAt.Valid {
		s.LastCrawledAt = &lastCrawledAt.Time
	}
	if len(configRaw) > 0 {
		if err := json.Unmarshal(configRaw, &s.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	return &s, nil
}

const sourceColumns = `id, name, type, url, category, credibility_tier, enabled, config, last_crawled_at, created_at`

func (r *SourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	source, err := scanSource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return source, nil
}

func (r *SourceRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Source, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("list: Scan: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return sources, nil
}

func (r *SourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	return r.list(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
}

func (r *SourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	return r.list(ctx, `SELECT `+sourceColumns+` FROM sources WHERE enabled = TRUE ORDER BY name`)
}

func (r *SourceRepo) ListActiveByType(ctx context.Context, sourceType entity.SourceType) ([]*entity.Source, error) {
	return r.list(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE enabled = TRUE AND type = $1 ORDER BY name`,
		string(sourceType))
}

func (r *SourceRepo) Create(ctx context.Context, source *entity.Source) error {
	if err := source.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	configRaw, err := json.Marshal(source.Config)
	if err != nil {
		return fmt.Errorf("Create: marshal config: %w", err)
	}

	const query = `
INSERT INTO sources (name, type, url, category, credibility_tier, enabled, config)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		source.Name, string(source.Type), source.URL, source.Category,
		source.CredibilityTier, source.Enabled, configRaw,
	).Scan(&source.ID, &source.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *SourceRepo) Update(ctx context.Context, source *entity.Source) error {
	if err := source.Validate(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	configRaw, err := json.Marshal(source.Config)
	if err != nil {
		return fmt.Errorf("Update: marshal config: %w", err)
	}

	const query = `
UPDATE sources
SET name = $1, type = $2, url = $3, category = $4, credibility_tier = $5, enabled = $6, config = $7
WHERE id = $8`

	result, err := r.db.ExecContext(ctx, query,
		source.Name, string(source.Type), source.URL, source.Category,
		source.CredibilityTier, source.Enabled, configRaw, source.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: RowsAffected: %w", err)
	}
	if rows == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *SourceRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: RowsAffected: %w", err)
	}
	if rows == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *SourceRepo) TouchCrawledAt(ctx context.Context, id int64, t time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE sources SET last_crawled_at = $1 WHERE id = $2`, t, id)
	if err != nil {
		return fmt.Errorf("TouchCrawledAt: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("TouchCrawledAt: RowsAffected: %w", err)
	}
	if rows == 0 {
		return entity.ErrNotFound
	}
	return nil
}
