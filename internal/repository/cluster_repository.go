package repository

import (
	"context"
	"time"

	"newsbot/internal/domain/entity"
)

// ClusterRepository manages clusters and their membership.
type ClusterRepository interface {
	Create(ctx context.Context, cluster *entity.Cluster) error
	Get(ctx context.Context, id int64) (*entity.Cluster, error)
	// GetByCanonicalItemID finds the cluster whose canonical item is
	// rawItemID, used by the dedup service to decide whether a matched
	// item already anchors a cluster.
	GetByCanonicalItemID(ctx context.Context, rawItemID int64) (*entity.Cluster, error)
	// GetByMemberItemID finds the cluster containing rawItemID as any
	// member (canonical or not), used by the scorer's cross-source axis.
	GetByMemberItemID(ctx context.Context, rawItemID int64) (*entity.Cluster, error)
	AddMember(ctx context.Context, member *entity.ClusterMember) error
	ListMembers(ctx context.Context, clusterID int64) ([]*entity.ClusterMember, error)
	// CountMembers returns cluster size, used directly by the scorer's
	// cross-source axis.
	CountMembers(ctx context.Context, clusterID int64) (int, error)
	// ListOpenOlderThan returns open clusters whose canonical item was
	// fetched before cutoff, candidates for archival.
	ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]*entity.Cluster, error)
	SetStatus(ctx context.Context, id int64, status entity.ClusterStatus) error
	// Merge folds src's members into dst and marks src merged.
	Merge(ctx context.Context, dstClusterID, srcClusterID int64) error
}
