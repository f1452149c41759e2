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

// BriefingRepo implements repository.BriefingRepository for PostgreSQL.
type BriefingRepo struct {
	db *sql.DB
}

// NewBriefingRepo creates a new PostgreSQL-based BriefingRepository.
func NewBriefingRepo(db *sql.DB) repository.BriefingRepository {
	return &BriefingRepo{db: db}
}

func (r *BriefingRepo) ExistsForScopeSince(ctx context.Context, scope string, since time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM briefings WHERE scope = $1 AND created_at >= $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, scope, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("ExistsForScopeSince: %w", err)
	}
	return exists, nil
}

// Create inserts the briefing and its ranked items inside one transaction,
// returning the new briefing's id.
func (r *BriefingRepo) Create(ctx context.Context, briefing *entity.Briefing, items []*entity.BriefingItem) (int64, error) {
	if err := briefing.Validate(); err != nil {
		return 0, fmt.Errorf("Create: %w", err)
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return 0, fmt.Errorf("Create: %w", err)
		}
	}

	metaRaw, err := json.Marshal(briefing.Meta)
	if err != nil {
		return 0, fmt.Errorf("Create: marshal meta: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("Create: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const briefingQuery = `
INSERT INTO briefings (scope, period_start, period_end, summary_md, meta)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`

	err = tx.QueryRowContext(ctx, briefingQuery,
		briefing.Scope, briefing.PeriodStart, briefing.PeriodEnd, briefing.SummaryMD, metaRaw,
	).Scan(&briefing.ID, &briefing.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("Create: insert briefing: %w", err)
	}

	const itemQuery = `
INSERT INTO briefing_items
	(briefing_id, rank, raw_item_id, cluster_id, title, one_liner, why_it_matters, confidence, signal_score, sources)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, item := range items {
		item.BriefingID = briefing.ID
		sourcesRaw, err := json.Marshal(item.Sources)
		if err != nil {
			return 0, fmt.Errorf("Create: marshal sources: %w", err)
		}
		var clusterID sql.NullInt64
		if item.ClusterID > 0 {
			clusterID = sql.NullInt64{Int64: item.ClusterID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, itemQuery,
			item.BriefingID, item.Rank, item.RawItemID, clusterID, item.Title,
			nullString(item.OneLiner), nullString(item.WhyItMatters), string(item.Confidence),
			item.SignalScore, sourcesRaw,
		); err != nil {
			return 0, fmt.Errorf("Create: insert briefing_item rank %d: %w", item.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("Create: commit: %w", err)
	}
	return briefing.ID, nil
}

func scanBriefing(row interface{ Scan(...any) error }) (*entity.Briefing, error) {
	var b entity.Briefing
	var metaRaw []byte

	if err := row.Scan(&b.ID, &b.Scope, &b.PeriodStart, &b.PeriodEnd, &b.SummaryMD, &metaRaw, &b.CreatedAt); err != nil {
		return nil, err
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &b.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
	}
	return &b, nil
}

const briefingColumns = `id, scope, period_start, period_end, summary_md, meta, created_at`

func (r *BriefingRepo) Get(ctx context.Context, id int64) (*entity.Briefing, error) {
	query := `SELECT ` + briefingColumns + ` FROM briefings WHERE id = $1`
	briefing, err := scanBriefing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return briefing, nil
}

func (r *BriefingRepo) GetItems(ctx context.Context, briefingID int64) ([]*entity.BriefingItem, error) {
	const query = `
SELECT briefing_id, rank, raw_item_id, cluster_id, title, one_liner, why_it_matters, confidence, signal_score, sources
FROM briefing_items
WHERE briefing_id = $1
ORDER BY rank ASC`

	rows, err := r.db.QueryContext(ctx, query, briefingID)
	if err != nil {
		return nil, fmt.Errorf("GetItems: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.BriefingItem, 0)
	for rows.Next() {
		var item entity.BriefingItem
		var clusterID sql.NullInt64
		var oneLiner, whyItMatters sql.NullString
		var sourcesRaw []byte

		if err := rows.Scan(
			&item.BriefingID, &item.Rank, &item.RawItemID, &clusterID, &item.Title,
			&oneLiner, &whyItMatters, &item.Confidence, &item.SignalScore, &sourcesRaw,
		); err != nil {
			return nil, fmt.Errorf("GetItems: Scan: %w", err)
		}
		item.ClusterID = clusterID.Int64
		item.OneLiner = oneLiner.String
		item.WhyItMatters = whyItMatters.String
		if len(sourcesRaw) > 0 {
			if err := json.Unmarshal(sourcesRaw, &item.Sources); err != nil {
				return nil, fmt.Errorf("GetItems: unmarshal sources: %w", err)
			}
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *BriefingRepo) LatestForScope(ctx context.Context, scope string) (*entity.Briefing, error) {
	query := `SELECT ` + briefingColumns + ` FROM briefings WHERE scope = $1 ORDER BY created_at DESC LIMIT 1`
	briefing, err := scanBriefing(r.db.QueryRowContext(ctx, query, scope))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("LatestForScope: %w", err)
	}
	return briefing, nil
}

// ListForScope returns scope's briefings newest-first, bounded by limit.
func (r *BriefingRepo) ListForScope(ctx context.Context, scope string, limit int) ([]*entity.Briefing, error) {
	query := `SELECT ` + briefingColumns + ` FROM briefings WHERE scope = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("ListForScope: %w", err)
	}
	defer func() { _ = rows.Close() }()

	briefings := make([]*entity.Briefing, 0, limit)
	for rows.Next() {
		b, err := scanBriefing(rows)
		if err != nil {
			return nil, fmt.Errorf("ListForScope: Scan: %w", err)
		}
		briefings = append(briefings, b)
	}
	return briefings, rows.Err()
}
