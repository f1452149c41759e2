package entity

import "time"

// ClusterStatus is the lifecycle stage of a Cluster.
type ClusterStatus string

const (
	ClusterStatusOpen     ClusterStatus = "open"
	ClusterStatusMerged   ClusterStatus = "merged"
	ClusterStatusArchived ClusterStatus = "archived"
)

// Cluster groups RawItems that the deduplicator judged to be the same
// underlying story, whether by exact URL/title match or semantic
// similarity. CanonicalItemID is the first item to land in the cluster.
type Cluster struct {
	ID              int64
	CanonicalItemID int64
	Status          ClusterStatus
	CreatedAt       time.Time
}

// Validate checks the Cluster's required fields.
func (c *Cluster) Validate() error {
	if c.CanonicalItemID <= 0 {
		return &ValidationError{Field: "CanonicalItemID", Message: "must be a positive id"}
	}
	switch c.Status {
	case ClusterStatusOpen, ClusterStatusMerged, ClusterStatusArchived:
	default:
		return &ValidationError{Field: "Status", Message: "must be open, merged, or archived"}
	}
	return nil
}

// ClusterMember links a RawItem to the Cluster it was assigned to.
// Exactly one member per cluster has IsCanonical=true, and that member's
// Similarity is always 1.0.
type ClusterMember struct {
	ClusterID   int64
	RawItemID   int64
	IsCanonical bool
	Similarity  float64
	JoinedAt    time.Time
}

// Validate checks the ClusterMember's invariants, including the
// canonical-implies-similarity-one rule.
func (m *ClusterMember) Validate() error {
	if m.ClusterID <= 0 {
		return &ValidationError{Field: "ClusterID", Message: "must be a positive id"}
	}
	if m.RawItemID <= 0 {
		return &ValidationError{Field: "RawItemID", Message: "must be a positive id"}
	}
	if m.Similarity < 0 || m.Similarity > 1 {
		return &ValidationError{Field: "Similarity", Message: "must be within [0, 1]"}
	}
	if m.IsCanonical && m.Similarity != 1.0 {
		return &ValidationError{Field: "Similarity", Message: "canonical member must have similarity 1.0"}
	}
	return nil
}
