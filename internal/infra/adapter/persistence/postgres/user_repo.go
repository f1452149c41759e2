package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// UserRepo implements repository.UserRepository for PostgreSQL.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new PostgreSQL-based UserRepository.
func NewUserRepo(db *sql.DB) repository.UserRepository {
	return &UserRepo{db: db}
}

const userColumns = `id, email, display_name, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*entity.User, error) {
	var u entity.User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Get(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}
	return user, nil
}

func (r *UserRepo) ListActive(ctx context.Context) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_active = TRUE ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]*entity.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: Scan: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO users (email, display_name, is_active)
VALUES ($1, $2, $3)
RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, user.Email, user.DisplayName, user.IsActive).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *UserRepo) GetPreference(ctx context.Context, userID int64) (*entity.UserPreference, error) {
	const query = `
SELECT user_id, topics, keywords_include, keywords_exclude, sources_blocked,
	risk_tolerance, email_daily, email_time_utc
FROM user_preferences
WHERE user_id = $1`

	var pref entity.UserPreference
	var topicsRaw, includeRaw, excludeRaw, blockedRaw []byte
	var emailTimeUTC sql.NullString

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&pref.UserID, &topicsRaw, &includeRaw, &excludeRaw, &blockedRaw,
		&pref.RiskTolerance, &pref.EmailDaily, &emailTimeUTC,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("GetPreference: %w", err)
	}

	pref.EmailTimeUTC = emailTimeUTC.String
	for raw, dst := range map[*[]byte]any{&topicsRaw: &pref.Topics, &includeRaw: &pref.KeywordsInclude,
		&excludeRaw: &pref.KeywordsExclude, &blockedRaw: &pref.SourcesBlocked} {
		if len(*raw) > 0 {
			if err := json.Unmarshal(*raw, dst); err != nil {
				return nil, fmt.Errorf("GetPreference: unmarshal: %w", err)
			}
		}
	}
	return &pref, nil
}

func (r *UserRepo) UpsertPreference(ctx context.Context, pref *entity.UserPreference) error {
	if err := pref.Validate(); err != nil {
		return fmt.Errorf("UpsertPreference: %w", err)
	}

	topicsRaw, err := json.Marshal(pref.Topics)
	if err != nil {
		return fmt.Errorf("UpsertPreference: marshal topics: %w", err)
	}
	includeRaw, err := json.Marshal(pref.KeywordsInclude)
	if err != nil {
		return fmt.Errorf("UpsertPreference: marshal keywords_include: %w", err)
	}
	excludeRaw, err := json.Marshal(pref.KeywordsExclude)
	if err != nil {
		return fmt.Errorf("UpsertPreference: marshal keywords_exclude: %w", err)
	}
	blockedRaw, err := json.Marshal(pref.SourcesBlocked)
	if err != nil {
		return fmt.Errorf("UpsertPreference: marshal sources_blocked: %w", err)
	}

	const query = `
INSERT INTO user_preferences
	(user_id, topics, keywords_include, keywords_exclude, sources_blocked, risk_tolerance, email_daily, email_time_utc)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id) DO UPDATE SET
	topics           = EXCLUDED.topics,
	keywords_include = EXCLUDED.keywords_include,
	keywords_exclude = EXCLUDED.keywords_exclude,
	sources_blocked  = EXCLUDED.sources_blocked,
	risk_tolerance   = EXCLUDED.risk_tolerance,
	email_daily      = EXCLUDED.email_daily,
	email_time_utc   = EXCLUDED.email_time_utc`

	_, err = r.db.ExecContext(ctx, query,
		pref.UserID, topicsRaw, includeRaw, excludeRaw, blockedRaw,
		pref.RiskTolerance, pref.EmailDaily, nullString(pref.EmailTimeUTC),
	)
	if err != nil {
		return fmt.Errorf("UpsertPreference: %w", err)
	}
	return nil
}

func (r *UserRepo) ListDueForEmail(ctx context.Context, hhmm string) ([]*entity.User, error) {
	query := `
SELECT u.id, u.email, u.display_name, u.is_active, u.created_at
FROM users u
JOIN user_preferences p ON p.user_id = u.id
WHERE u.is_active = TRUE AND p.email_daily = TRUE AND p.email_time_utc = $1
ORDER BY u.id`

	rows, err := r.db.QueryContext(ctx, query, hhmm)
	if err != nil {
		return nil, fmt.Errorf("ListDueForEmail: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]*entity.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDueForEmail: Scan: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
