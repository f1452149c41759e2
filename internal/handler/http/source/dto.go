package source

import (
	"time"

	"newsbot/internal/domain/entity"
)

// DTO is the JSON projection of a Source returned by the sources API.
type DTO struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Type            string            `json:"type"`
	URL             string            `json:"url"`
	Category        string            `json:"category,omitempty"`
	CredibilityTier int               `json:"credibility_tier"`
	Enabled         bool              `json:"enabled"`
	Config          map[string]string `json:"config,omitempty"`
	LastCrawledAt   *time.Time        `json:"last_crawled_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toDTO(s *entity.Source) DTO {
	return DTO{
		ID:              s.ID,
		Name:            s.Name,
		Type:            string(s.Type),
		URL:             s.URL,
		Category:        s.Category,
		CredibilityTier: s.CredibilityTier,
		Enabled:         s.Enabled,
		Config:          s.Config,
		LastCrawledAt:   s.LastCrawledAt,
		CreatedAt:       s.CreatedAt,
	}
}
