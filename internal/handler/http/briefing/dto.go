package briefing

import (
	"time"

	"newsbot/internal/domain/entity"
)

// DTO is the JSON projection of a Briefing returned by the briefings API.
type DTO struct {
	ID          int64          `json:"id"`
	Scope       string         `json:"scope"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	SummaryMD   string         `json:"summary_md"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Items       []ItemDTO      `json:"items,omitempty"`
}

// ItemDTO is the JSON projection of a BriefingItem.
type ItemDTO struct {
	Rank         int      `json:"rank"`
	RawItemID    int64    `json:"raw_item_id"`
	ClusterID    int64    `json:"cluster_id,omitempty"`
	Title        string   `json:"title"`
	OneLiner     string   `json:"one_liner,omitempty"`
	WhyItMatters string   `json:"why_it_matters,omitempty"`
	Confidence   string   `json:"confidence"`
	SignalScore  float64  `json:"signal_score"`
	Sources      []string `json:"sources,omitempty"`
}

func toDTO(b *entity.Briefing, items []*entity.BriefingItem) DTO {
	d := DTO{
		ID:          b.ID,
		Scope:       b.Scope,
		PeriodStart: b.PeriodStart,
		PeriodEnd:   b.PeriodEnd,
		SummaryMD:   b.SummaryMD,
		Meta:        b.Meta,
		CreatedAt:   b.CreatedAt,
	}
	for _, it := range items {
		d.Items = append(d.Items, ItemDTO{
			Rank:         it.Rank,
			RawItemID:    it.RawItemID,
			ClusterID:    it.ClusterID,
			Title:        it.Title,
			OneLiner:     it.OneLiner,
			WhyItMatters: it.WhyItMatters,
			Confidence:   string(it.Confidence),
			SignalScore:  it.SignalScore,
			Sources:      it.Sources,
		})
	}
	return d
}
