// Package dedup implements the fourth pipeline stage: exact and semantic
// duplicate detection, and the cluster assignment protocol both passes
// share.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/observability/metrics"
	"newsbot/internal/repository"
)

// TimeWindow bounds how far back exact and semantic duplicate checks look.
const TimeWindow = 7 * 24 * time.Hour

// SemanticThreshold is the minimum cosine similarity for a semantic match.
const SemanticThreshold = 0.92

// semanticCandidates bounds how many nearest neighbors the vector search
// returns.
const semanticCandidates = 5

// Service runs the exact pass (at ingest time) and the semantic pass (once
// an item has an embedding).
type Service struct {
	items     repository.RawItemRepository
	clusters  repository.ClusterRepository
	embedding repository.ItemEmbeddingRepository
	logger    *slog.Logger
}

// NewService builds a Service.
func NewService(items repository.RawItemRepository, clusters repository.ClusterRepository, embedding repository.ItemEmbeddingRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{items: items, clusters: clusters, embedding: embedding, logger: logger}
}

// CheckExactDuplicate looks for an existing item sharing item's URL, or
// sharing its title within TimeWindow. On a match it joins item to the
// match's cluster (similarity 1.0) and returns true. The exact pass never
// touches item's status: it runs inline during ingestion, before the item
// has even reached "new" persistence in some callers, so status transition
// is left to the caller.
func (s *Service) CheckExactDuplicate(ctx context.Context, item *entity.RawItem) (bool, error) {
	if item.URL != "" {
		if match, err := s.items.FindByURL(ctx, item.URL); err == nil && match != nil && match.ID != item.ID {
			if err := s.joinCluster(ctx, item.ID, match.ID, 1.0); err != nil {
				return false, err
			}
			metrics.DuplicatesFoundTotal.WithLabelValues("exact").Inc()
			return true, nil
		}
	}

	since := time.Now().Add(-TimeWindow)
	if matches, err := s.items.FindByTitleWindow(ctx, item.Title, since); err == nil {
		for _, match := range matches {
			if match == nil || match.ID == item.ID {
				continue
			}
			if err := s.joinCluster(ctx, item.ID, match.ID, 1.0); err != nil {
				return false, err
			}
			metrics.DuplicatesFoundTotal.WithLabelValues("exact").Inc()
			return true, nil
		}
	}

	return false, nil
}

// RunResult summarizes one semantic clustering batch.
type RunResult struct {
	Processed       int
	ClustersCreated int
	DuplicatesFound int
}

// Run processes up to limit items at status "embedded": each runs the
// semantic pass (a no-op if the exact pass already clustered it), then
// advances to "clustered".
func (s *Service) Run(ctx context.Context, limit int) (RunResult, error) {
	items, err := s.items.ListByStatus(ctx, entity.ItemStatusEmbedded, limit)
	if err != nil {
		return RunResult{}, fmt.Errorf("listing embedded items: %w", err)
	}

	var res RunResult
	for _, item := range items {
		res.Processed++
		created, dup, err := s.clusterOne(ctx, item)
		if err != nil {
			s.logger.Warn("failed to cluster item", slog.Int64("item_id", item.ID), slog.Any("error", err))
			continue
		}
		if created {
			res.ClustersCreated++
		}
		if dup {
			res.DuplicatesFound++
		}
		if err := s.items.UpdateStatus(ctx, item.ID, entity.ItemStatusClustered); err != nil {
			s.logger.Warn("failed to advance item status to clustered",
				slog.Int64("item_id", item.ID), slog.Any("error", err))
		}
	}
	return res, nil
}

// clusterOne runs the semantic pass for item, which is a no-op if the item
// is already in a cluster from the exact pass.
func (s *Service) clusterOne(ctx context.Context, item *entity.RawItem) (created bool, duplicate bool, err error) {
	if already, err := s.alreadyClustered(ctx, item.ID); err != nil {
		return false, false, err
	} else if already {
		return false, false, nil
	}

	emb, err := s.embedding.GetByRawItemID(ctx, item.ID)
	if err != nil || emb == nil {
		return s.openCluster(ctx, item.ID)
	}

	since := time.Now().Add(-TimeWindow)
	candidates, err := s.embedding.SearchSimilar(ctx, emb.Vector, since, semanticCandidates)
	if err != nil {
		return false, false, fmt.Errorf("searching similar embeddings: %w", err)
	}

	best := bestCandidate(candidates, item.ID)
	if best == nil || best.Similarity < SemanticThreshold {
		return s.openCluster(ctx, item.ID)
	}

	if err := s.joinCluster(ctx, item.ID, best.RawItemID, best.Similarity); err != nil {
		return false, false, err
	}
	metrics.DuplicatesFoundTotal.WithLabelValues("semantic").Inc()
	return false, true, nil
}

// bestCandidate picks the highest-similarity neighbor, excluding the item
// itself. Candidates tied exactly on similarity with the best resolve to
// the oldest published_at (the most authoritative origin); an undated
// candidate never wins a tie against a dated one.
func bestCandidate(candidates []repository.SimilarItem, selfID int64) *repository.SimilarItem {
	var best *repository.SimilarItem
	for i := range candidates {
		c := &candidates[i]
		if c.RawItemID == selfID {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		if c.Similarity != best.Similarity {
			// Results arrive similarity-descending; once it drops, no
			// later candidate can tie the best.
			break
		}
		if olderThan(c.PublishedAt, best.PublishedAt) {
			best = c
		}
	}
	return best
}

// olderThan reports whether a is strictly older than b, with nil (no
// publication date) always losing.
func olderThan(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Before(*b)
}

// alreadyClustered reports whether item already has a cluster, e.g. from
// the exact pass.
func (s *Service) alreadyClustered(ctx context.Context, rawItemID int64) (bool, error) {
	if c, err := s.clusters.GetByCanonicalItemID(ctx, rawItemID); err == nil && c != nil {
		return true, nil
	}
	if c, err := s.clusters.GetByMemberItemID(ctx, rawItemID); err == nil && c != nil {
		return true, nil
	}
	return false, nil
}

// openCluster creates a fresh cluster with rawItemID as its sole canonical
// member.
func (s *Service) openCluster(ctx context.Context, rawItemID int64) (bool, bool, error) {
	cluster := &entity.Cluster{CanonicalItemID: rawItemID, Status: entity.ClusterStatusOpen, CreatedAt: time.Now()}
	if err := s.clusters.Create(ctx, cluster); err != nil {
		return false, false, fmt.Errorf("creating cluster: %w", err)
	}
	member := &entity.ClusterMember{ClusterID: cluster.ID, RawItemID: rawItemID, IsCanonical: true, Similarity: 1.0, JoinedAt: time.Now()}
	if err := s.clusters.AddMember(ctx, member); err != nil {
		return false, false, fmt.Errorf("adding canonical member: %w", err)
	}
	metrics.ClustersCreatedTotal.Inc()
	return true, false, nil
}

// joinCluster implements the cluster assignment protocol: find or create
// canonicalItemID's cluster, then add duplicateItemID to it as a
// non-canonical member at the given similarity.
func (s *Service) joinCluster(ctx context.Context, duplicateItemID, canonicalItemID int64, similarity float64) error {
	cluster, err := s.clusters.GetByCanonicalItemID(ctx, canonicalItemID)
	if err != nil || cluster == nil {
		cluster = &entity.Cluster{CanonicalItemID: canonicalItemID, Status: entity.ClusterStatusOpen, CreatedAt: time.Now()}
		if err := s.clusters.Create(ctx, cluster); err != nil {
			return fmt.Errorf("creating cluster: %w", err)
		}
		canonicalMember := &entity.ClusterMember{ClusterID: cluster.ID, RawItemID: canonicalItemID, IsCanonical: true, Similarity: 1.0, JoinedAt: time.Now()}
		if err := s.clusters.AddMember(ctx, canonicalMember); err != nil {
			return fmt.Errorf("adding canonical member: %w", err)
		}
	}

	member := &entity.ClusterMember{ClusterID: cluster.ID, RawItemID: duplicateItemID, IsCanonical: false, Similarity: similarity, JoinedAt: time.Now()}
	if err := member.Validate(); err != nil {
		return fmt.Errorf("invalid cluster member: %w", err)
	}
	if err := s.clusters.AddMember(ctx, member); err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

// MergeClusters folds every cluster in ids[1:] into ids[0], returning the
// number of clusters merged.
func (s *Service) MergeClusters(ctx context.Context, ids []int64) (int, error) {
	if len(ids) < 2 {
		return 0, fmt.Errorf("need at least 2 clusters to merge")
	}
	target := ids[0]
	for _, src := range ids[1:] {
		if err := s.clusters.Merge(ctx, target, src); err != nil {
			return 0, fmt.Errorf("merging cluster %d into %d: %w", src, target, err)
		}
	}
	return len(ids) - 1, nil
}

// ArchiveOldClusters marks open clusters created before the retention
// window as archived, returning how many were archived.
func (s *Service) ArchiveOldClusters(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	clusters, err := s.clusters.ListOpenOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing old open clusters: %w", err)
	}
	for _, c := range clusters {
		if err := s.clusters.SetStatus(ctx, c.ID, entity.ClusterStatusArchived); err != nil {
			return 0, fmt.Errorf("archiving cluster %d: %w", c.ID, err)
		}
	}
	return len(clusters), nil
}
