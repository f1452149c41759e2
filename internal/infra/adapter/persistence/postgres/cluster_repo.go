package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// ClusterRepo implements repository.ClusterRepository for PostgreSQL.
type ClusterRepo struct {
	db *sql.DB
}

// NewClusterRepo creates a new PostgreSQL-based ClusterRepository.
func NewClusterRepo(db *sql.DB) repository.ClusterRepository {
	return &ClusterRepo{db: db}
}

func scanCluster(row interface{ Scan(...any) error }) (*entity.Cluster, error) {
	var c entity.Cluster
	if err := row.Scan(&c.ID, &c.CanonicalItemID, &c.Status, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

const clusterColumns = `id, canonical_item_id, status, created_at`

func (r *ClusterRepo) Create(ctx context.Context, cluster *entity.Cluster) error {
	if err := cluster.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO clusters (canonical_item_id, status)
VALUES ($1, $2)
RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, cluster.CanonicalItemID, string(cluster.Status)).
		Scan(&cluster.ID, &cluster.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ClusterRepo) Get(ctx context.Context, id int64) (*entity.Cluster, error) {
	query := `SELECT ` + clusterColumns + ` FROM clusters WHERE id = $1`
	cluster, err := scanCluster(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return cluster, nil
}

func (r *ClusterRepo) GetByCanonicalItemID(ctx context.Context, rawItemID int64) (*entity.Cluster, error) {
	query := `SELECT ` + clusterColumns + ` FROM clusters WHERE canonical_item_id = $1`
	cluster, err := scanCluster(r.db.QueryRowContext(ctx, query, rawItemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("GetByCanonicalItemID: %w", err)
	}
	return cluster, nil
}

func (r *ClusterRepo) GetByMemberItemID(ctx context.Context, rawItemID int64) (*entity.Cluster, error) {
	query := `
SELECT c.id, c.canonical_item_id, c.status, c.created_at
FROM clusters c
JOIN cluster_members m ON m.cluster_id = c.id
WHERE m.raw_item_id = $1
LIMIT 1`
	cluster, err := scanCluster(r.db.QueryRowContext(ctx, query, rawItemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("GetByMemberItemID: %w", err)
	}
	return cluster, nil
}

func (r *ClusterRepo) AddMember(ctx context.Context, member *entity.ClusterMember) error {
	if err := member.Validate(); err != nil {
		return fmt.Errorf("AddMember: %w", err)
	}

	const query = `
INSERT INTO cluster_members (cluster_id, raw_item_id, is_canonical, similarity)
VALUES ($1, $2, $3, $4)
RETURNING joined_at`

	err := r.db.QueryRowContext(ctx, query,
		member.ClusterID, member.RawItemID, member.IsCanonical, member.Similarity,
	).Scan(&member.JoinedAt)
	if err != nil {
		return fmt.Errorf("AddMember: %w", err)
	}
	return nil
}

func (r *ClusterRepo) ListMembers(ctx context.Context, clusterID int64) ([]*entity.ClusterMember, error) {
	const query = `
SELECT cluster_id, raw_item_id, is_canonical, similarity, joined_at
FROM cluster_members
WHERE cluster_id = $1
ORDER BY joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, clusterID)
	if err != nil {
		return nil, fmt.Errorf("ListMembers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	members := make([]*entity.ClusterMember, 0)
	for rows.Next() {
		var m entity.ClusterMember
		if err := rows.Scan(&m.ClusterID, &m.RawItemID, &m.IsCanonical, &m.Similarity, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("ListMembers: Scan: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r *ClusterRepo) CountMembers(ctx context.Context, clusterID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM cluster_members WHERE cluster_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, clusterID).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountMembers: %w", err)
	}
	return count, nil
}

func (r *ClusterRepo) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]*entity.Cluster, error) {
	query := `
SELECT c.id, c.canonical_item_id, c.status, c.created_at
FROM clusters c
JOIN raw_items i ON i.id = c.canonical_item_id
WHERE c.status = $1 AND i.fetched_at < $2
ORDER BY c.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, string(entity.ClusterStatusOpen), cutoff)
	if err != nil {
		return nil, fmt.Errorf("ListOpenOlderThan: %w", err)
	}
	defer func() { _ = rows.Close() }()

	clusters := make([]*entity.Cluster, 0)
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("ListOpenOlderThan: Scan: %w", err)
		}
		clusters = append(clusters, cluster)
	}
	return clusters, rows.Err()
}

func (r *ClusterRepo) SetStatus(ctx context.Context, id int64, status entity.ClusterStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE clusters SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("SetStatus: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetStatus: RowsAffected: %w", err)
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// Merge folds src's members into dst and marks src merged. Runs inside a
// transaction: moving members and flipping src's status must be atomic, or
// a crash mid-merge would leave members pointing at a cluster that still
// claims to be open.
func (r *ClusterRepo) Merge(ctx context.Context, dstClusterID, srcClusterID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Merge: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// src members move to dst as non-canonical (only dst's own canonical
	// member may hold that flag there). A raw item already present in dst
	// is left where it is; ON CONFLICT DO NOTHING drops its src row.
	if _, err := tx.ExecContext(ctx, `
INSERT INTO cluster_members (cluster_id, raw_item_id, is_canonical, similarity, joined_at)
SELECT $1, raw_item_id, FALSE, similarity, joined_at
FROM cluster_members
WHERE cluster_id = $2
ON CONFLICT (cluster_id, raw_item_id) DO NOTHING`, dstClusterID, srcClusterID); err != nil {
		return fmt.Errorf("Merge: reassign members: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cluster_members WHERE cluster_id = $1`, srcClusterID,
	); err != nil {
		return fmt.Errorf("Merge: clear src members: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE clusters SET status = $1 WHERE id = $2`,
		string(entity.ClusterStatusMerged), srcClusterID,
	); err != nil {
		return fmt.Errorf("Merge: mark src merged: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Merge: commit: %w", err)
	}
	return nil
}
