package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// ItemScoreRepo implements repository.ItemScoreRepository for PostgreSQL.
// item_scores is append-only: Create always inserts a new row, never
// updates one, so a RawItemID's scoring history stays intact.
type ItemScoreRepo struct {
	db *sql.DB
}

// NewItemScoreRepo creates a new PostgreSQL-based ItemScoreRepository.
func NewItemScoreRepo(db *sql.DB) repository.ItemScoreRepository {
	return &ItemScoreRepo{db: db}
}

const itemScoreColumns = `raw_item_id, computed_at, relevance, velocity, cross_source, novelty, signal_score, score_meta`

func scanItemScore(row interface{ Scan(...any) error }) (*entity.ItemScore, error) {
	var s entity.ItemScore
	var metaRaw []byte

	if err := row.Scan(
		&s.RawItemID, &s.ComputedAt, &s.Relevance, &s.Velocity,
		&s.CrossSource, &s.Novelty, &s.SignalScore, &metaRaw,
	); err != nil {
		return nil, err
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &s.ScoreMeta); err != nil {
			return nil, fmt.Errorf("unmarshal score_meta: %w", err)
		}
	}
	return &s, nil
}

func (r *ItemScoreRepo) Create(ctx context.Context, score *entity.ItemScore) error {
	if err := score.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	metaRaw, err := json.Marshal(score.ScoreMeta)
	if err != nil {
		return fmt.Errorf("Create: marshal score_meta: %w", err)
	}

	const query = `
INSERT INTO item_scores (raw_item_id, relevance, velocity, cross_source, novelty, signal_score, score_meta)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING computed_at`

	err = r.db.QueryRowContext(ctx, query,
		score.RawItemID, score.Relevance, score.Velocity, score.CrossSource,
		score.Novelty, score.SignalScore, metaRaw,
	).Scan(&score.ComputedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ItemScoreRepo) GetLatest(ctx context.Context, rawItemID int64) (*entity.ItemScore, error) {
	query := `
SELECT ` + itemScoreColumns + `
FROM item_scores
WHERE raw_item_id = $1
ORDER BY computed_at DESC
LIMIT 1`

	score, err := scanItemScore(r.db.QueryRowContext(ctx, query, rawItemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("GetLatest: %w", err)
	}
	return score, nil
}

// ListCandidates returns the most recent score per item fetched since the
// given time with signal_score >= minSignal, for briefing candidate
// selection. DISTINCT ON picks each item's newest row before the signal
// filter and limit are applied; the category restriction also applies
// before the limit, so a topic-scoped briefing still fills its quota.
func (r *ItemScoreRepo) ListCandidates(ctx context.Context, since time.Time, minSignal float64, categories []string, limit int) ([]*entity.ItemScore, error) {
	args := []any{since}
	categoryClause := ""
	if len(categories) > 0 {
		placeholders := make([]string, len(categories))
		for i, category := range categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		categoryClause = " AND src.category IN (" + strings.Join(placeholders, ", ") + ")"
	}
	args = append(args, minSignal, limit)

	query := fmt.Sprintf(`
SELECT raw_item_id, computed_at, relevance, velocity, cross_source, novelty, signal_score, score_meta
FROM (
	SELECT DISTINCT ON (s.raw_item_id) s.raw_item_id, s.computed_at, s.relevance,
		s.velocity, s.cross_source, s.novelty, s.signal_score, s.score_meta
	FROM item_scores s
	JOIN raw_items i ON i.id = s.raw_item_id
	JOIN sources src ON src.id = i.source_id
	WHERE i.fetched_at >= $1%s
	ORDER BY s.raw_item_id, s.computed_at DESC
) latest
WHERE signal_score >= $%d
ORDER BY signal_score DESC, computed_at DESC
LIMIT $%d`, categoryClause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListCandidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scores := make([]*entity.ItemScore, 0, limit)
	for rows.Next() {
		score, err := scanItemScore(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCandidates: Scan: %w", err)
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// latestScoresCTE picks each item's most recent scoring pass. Every signals
// read query builds on top of it so "most-recent wins for reads" (§3) is
// enforced in one place.
const latestScoresCTE = `
SELECT DISTINCT ON (s.raw_item_id) s.raw_item_id, s.computed_at, s.relevance,
	s.velocity, s.cross_source, s.novelty, s.signal_score, s.score_meta
FROM item_scores s
ORDER BY s.raw_item_id, s.computed_at DESC`

func scanSignalView(row interface{ Scan(...any) error }) (*repository.SignalView, error) {
	var v repository.SignalView
	var publishedAt sql.NullTime
	var metaRaw []byte

	if err := row.Scan(
		&v.RawItemID, &v.Title, &v.URL, &v.SourceID, &v.SourceName, &v.SourceType,
		&v.Category, &publishedAt, &v.FetchedAt,
		&v.Score.ComputedAt, &v.Score.Relevance, &v.Score.Velocity,
		&v.Score.CrossSource, &v.Score.Novelty, &v.Score.SignalScore, &metaRaw,
	); err != nil {
		return nil, err
	}
	v.Score.RawItemID = v.RawItemID
	if publishedAt.Valid {
		v.PublishedAt = &publishedAt.Time
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &v.Score.ScoreMeta); err != nil {
			return nil, fmt.Errorf("unmarshal score_meta: %w", err)
		}
	}
	return &v, nil
}

const signalViewColumns = `
	i.id, i.title, i.url, i.source_id, src.name, src.type, src.category,
	i.published_at, i.fetched_at,
	latest.computed_at, latest.relevance, latest.velocity, latest.cross_source,
	latest.novelty, latest.signal_score, latest.score_meta`

// ListSignals implements repository.ItemScoreRepository.ListSignals.
func (r *ItemScoreRepo) ListSignals(ctx context.Context, filter repository.SignalFilter) ([]*repository.SignalView, int64, error) {
	where := `WHERE latest.signal_score >= $1 AND i.fetched_at >= $2`
	args := []any{filter.MinScore, filter.Since}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND src.category = $%d", len(args))
	}
	if filter.SourceType != "" {
		args = append(args, string(filter.SourceType))
		where += fmt.Sprintf(" AND src.type = $%d", len(args))
	}

	countQuery := `
SELECT COUNT(*)
FROM (` + latestScoresCTE + `) latest
JOIN raw_items i ON i.id = latest.raw_item_id
JOIN sources src ON src.id = i.source_id
` + where

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListSignals: count: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `
SELECT ` + signalViewColumns + `
FROM (` + latestScoresCTE + `) latest
JOIN raw_items i ON i.id = latest.raw_item_id
JOIN sources src ON src.id = i.source_id
` + where + fmt.Sprintf(" ORDER BY latest.signal_score DESC, latest.computed_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListSignals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	views := make([]*repository.SignalView, 0, filter.Limit)
	for rows.Next() {
		v, err := scanSignalView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListSignals: Scan: %w", err)
		}
		views = append(views, v)
	}
	return views, total, rows.Err()
}

// GetSignal implements repository.ItemScoreRepository.GetSignal.
func (r *ItemScoreRepo) GetSignal(ctx context.Context, rawItemID int64) (*repository.SignalView, error) {
	query := `
SELECT ` + signalViewColumns + `
FROM (` + latestScoresCTE + `) latest
JOIN raw_items i ON i.id = latest.raw_item_id
JOIN sources src ON src.id = i.source_id
WHERE i.id = $1`

	v, err := scanSignalView(r.db.QueryRowContext(ctx, query, rawItemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("GetSignal: %w", err)
	}
	return v, nil
}

// TopSignals implements repository.ItemScoreRepository.TopSignals.
func (r *ItemScoreRepo) TopSignals(ctx context.Context, since time.Time, limit int) ([]*repository.SignalView, error) {
	query := `
SELECT ` + signalViewColumns + `
FROM (` + latestScoresCTE + `) latest
JOIN raw_items i ON i.id = latest.raw_item_id
JOIN sources src ON src.id = i.source_id
WHERE i.fetched_at >= $1
ORDER BY latest.signal_score DESC, latest.computed_at DESC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("TopSignals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	views := make([]*repository.SignalView, 0, limit)
	for rows.Next() {
		v, err := scanSignalView(rows)
		if err != nil {
			return nil, fmt.Errorf("TopSignals: Scan: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// CategoryStats implements repository.ItemScoreRepository.CategoryStats.
func (r *ItemScoreRepo) CategoryStats(ctx context.Context, since time.Time) ([]repository.CategoryStat, error) {
	query := `
SELECT COALESCE(src.category, ''), COUNT(*), AVG(latest.signal_score)
FROM (` + latestScoresCTE + `) latest
JOIN raw_items i ON i.id = latest.raw_item_id
JOIN sources src ON src.id = i.source_id
WHERE i.fetched_at >= $1
GROUP BY src.category
ORDER BY AVG(latest.signal_score) DESC`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("CategoryStats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make([]repository.CategoryStat, 0)
	for rows.Next() {
		var s repository.CategoryStat
		if err := rows.Scan(&s.Category, &s.Count, &s.AvgScore); err != nil {
			return nil, fmt.Errorf("CategoryStats: Scan: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
