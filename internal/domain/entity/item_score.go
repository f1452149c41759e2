package entity

import "time"

// Scoring axis weights for the composite signal score.
const (
	WeightRelevance   = 0.40
	WeightVelocity    = 0.20
	WeightCrossSource = 0.20
	WeightNovelty     = 0.20
)

// ItemScore is one scoring pass over a RawItem. Rows are append-only: a
// new pass creates a new row rather than mutating a prior one, and reads
// use the most recent row for a given RawItemID.
type ItemScore struct {
	RawItemID   int64
	ComputedAt  time.Time
	Relevance   float64
	Velocity    float64
	CrossSource float64
	Novelty     float64
	SignalScore float64
	ScoreMeta   map[string]any
}

// ComputeSignalScore returns the weighted composite of the four axes.
// Callers set SignalScore to this value before persisting a new pass.
func ComputeSignalScore(relevance, velocity, crossSource, novelty float64) float64 {
	return relevance*WeightRelevance +
		velocity*WeightVelocity +
		crossSource*WeightCrossSource +
		novelty*WeightNovelty
}

// Validate checks that each axis is within [0, 1] and the composite score
// matches what ComputeSignalScore would produce from the stored axes.
func (s *ItemScore) Validate() error {
	if s.RawItemID <= 0 {
		return &ValidationError{Field: "RawItemID", Message: "must be a positive id"}
	}
	for field, v := range map[string]float64{
		"Relevance":   s.Relevance,
		"Velocity":    s.Velocity,
		"CrossSource": s.CrossSource,
		"Novelty":     s.Novelty,
	} {
		if v < 0 || v > 1 {
			return &ValidationError{Field: field, Message: "must be within [0, 1]"}
		}
	}
	want := ComputeSignalScore(s.Relevance, s.Velocity, s.CrossSource, s.Novelty)
	const epsilon = 1e-9
	if diff := want - s.SignalScore; diff > epsilon || diff < -epsilon {
		return &ValidationError{Field: "SignalScore", Message: "does not match weighted composite of axes"}
	}
	return nil
}
