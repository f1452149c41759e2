package signal

import (
	"time"

	"newsbot/internal/repository"
)

// DTO is the JSON projection of a scored item returned by the signals API.
type DTO struct {
	RawItemID   int64      `json:"raw_item_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	SourceID    int64      `json:"source_id"`
	SourceName  string     `json:"source_name"`
	SourceType  string     `json:"source_type"`
	Category    string     `json:"category,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
	ComputedAt  time.Time  `json:"computed_at"`
	Relevance   float64    `json:"relevance"`
	Velocity    float64    `json:"velocity"`
	CrossSource float64    `json:"cross_source"`
	Novelty     float64    `json:"novelty"`
	SignalScore float64    `json:"signal_score"`
}

func toDTO(v *repository.SignalView) DTO {
	return DTO{
		RawItemID:   v.RawItemID,
		Title:       v.Title,
		URL:         v.URL,
		SourceID:    v.SourceID,
		SourceName:  v.SourceName,
		SourceType:  string(v.SourceType),
		Category:    v.Category,
		PublishedAt: v.PublishedAt,
		FetchedAt:   v.FetchedAt,
		ComputedAt:  v.Score.ComputedAt,
		Relevance:   v.Score.Relevance,
		Velocity:    v.Score.Velocity,
		CrossSource: v.Score.CrossSource,
		Novelty:     v.Score.Novelty,
		SignalScore: v.Score.SignalScore,
	}
}

// CategoryStatDTO is the JSON projection of a category's rollup stats.
type CategoryStatDTO struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

func toStatDTO(s repository.CategoryStat) CategoryStatDTO {
	return CategoryStatDTO{Category: s.Category, Count: s.Count, AvgScore: s.AvgScore}
}
