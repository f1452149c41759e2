package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// FeedbackRepo implements repository.FeedbackRepository for PostgreSQL.
type FeedbackRepo struct {
	db *sql.DB
}

// NewFeedbackRepo creates a new PostgreSQL-based FeedbackRepository.
func NewFeedbackRepo(db *sql.DB) repository.FeedbackRepository {
	return &FeedbackRepo{db: db}
}

func (r *FeedbackRepo) Create(ctx context.Context, feedback *entity.Feedback) error {
	if err := feedback.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO feedback (user_id, raw_item_id, kind)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, raw_item_id, kind) DO NOTHING
RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, feedback.UserID, feedback.RawItemID, string(feedback.Kind)).
		Scan(&feedback.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			// Already recorded; leave CreatedAt unset for this duplicate call.
			return nil
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *FeedbackRepo) ListByUser(ctx context.Context, userID int64) ([]*entity.Feedback, error) {
	const query = `
SELECT user_id, raw_item_id, kind, created_at
FROM feedback
WHERE user_id = $1
ORDER BY created_at DESC`

	return r.queryFeedback(ctx, "ListByUser", query, userID)
}

func (r *FeedbackRepo) ListByUserAndKind(ctx context.Context, userID int64, kind entity.FeedbackKind) ([]*entity.Feedback, error) {
	const query = `
SELECT user_id, raw_item_id, kind, created_at
FROM feedback
WHERE user_id = $1 AND kind = $2
ORDER BY created_at DESC`

	return r.queryFeedback(ctx, "ListByUserAndKind", query, userID, string(kind))
}

func (r *FeedbackRepo) queryFeedback(ctx context.Context, op, query string, args ...any) ([]*entity.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.Feedback, 0)
	for rows.Next() {
		var f entity.Feedback
		if err := rows.Scan(&f.UserID, &f.RawItemID, &f.Kind, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		items = append(items, &f)
	}
	return items, rows.Err()
}

// Delete removes every reaction userID recorded against rawItemID. A
// no-op delete is not an error: feedback removal is idempotent, same as
// every other stage's constraint-violation handling.
func (r *FeedbackRepo) Delete(ctx context.Context, userID, rawItemID int64) error {
	const query = `DELETE FROM feedback WHERE user_id = $1 AND raw_item_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, rawItemID); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
