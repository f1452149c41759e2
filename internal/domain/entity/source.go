package entity

import (
	"fmt"
	"time"
)

// SourceType identifies which ingester a Source is fetched by.
type SourceType string

const (
	SourceTypeFeed   SourceType = "feed"
	SourceTypeHN     SourceType = "hn"
	SourceTypeReddit SourceType = "reddit"
)

// IsValid reports whether t is one of the known source types.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeFeed, SourceTypeHN, SourceTypeReddit:
		return true
	default:
		return false
	}
}

// Source represents a registered content source: an RSS/Atom feed, a
// Hacker News listing, or a subreddit. Config holds type-specific
// ingester settings (e.g. the HN listing name, the subreddit name).
type Source struct {
	ID              int64
	Name            string
	Type            SourceType
	URL             string
	Category        string
	CredibilityTier int // 1 (low) .. 5 (high)
	Enabled         bool
	Config          map[string]string
	LastCrawledAt   *time.Time
	CreatedAt       time.Time
}

// Validate checks that the Source has a recognized type, a credibility
// tier within range, and a non-empty name.
func (s *Source) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "Name", Message: "name is required"}
	}

	if !s.Type.IsValid() {
		return fmt.Errorf("%w: %q (must be feed, hn, or reddit)", ErrInvalidInput, s.Type)
	}

	if s.CredibilityTier < 1 || s.CredibilityTier > 5 {
		return &ValidationError{Field: "CredibilityTier", Message: "must be between 1 and 5"}
	}

	if s.Type == SourceTypeFeed {
		if err := ValidateURL(s.URL); err != nil {
			return err
		}
	}

	return nil
}
