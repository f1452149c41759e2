package entity

import (
	"net/mail"
	"time"
)

// User is an ambient account entity: it owns a UserPreference and is the
// subject of user-scoped Briefings. The pipeline itself never reasons
// about authentication; that belongs to the handler/middleware layer.
type User struct {
	ID          int64
	Email       string
	DisplayName string
	IsActive    bool
	CreatedAt   time.Time
}

// Validate checks that the User has a well-formed email and display name.
func (u *User) Validate() error {
	if u.Email == "" {
		return &ValidationError{Field: "Email", Message: "email is required"}
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return &ValidationError{Field: "Email", Message: "must be a valid email address"}
	}
	if u.DisplayName == "" {
		return &ValidationError{Field: "DisplayName", Message: "display name is required"}
	}
	return nil
}

// UserPreference holds a user's topic filters, delivery settings, and risk
// tolerance, edited by the user and read by the briefing composer and the
// scheduler's per-user email job.
type UserPreference struct {
	UserID           int64
	Topics           []string
	KeywordsInclude  []string
	KeywordsExclude  []string
	SourcesBlocked   []int64
	RiskTolerance    int // 1 (conservative) .. 5 (adventurous)
	EmailDaily       bool
	EmailTimeUTC     string // "HH:MM"
}

// Validate checks the UserPreference's bounded fields.
func (p *UserPreference) Validate() error {
	if p.UserID <= 0 {
		return &ValidationError{Field: "UserID", Message: "must be a positive id"}
	}
	if p.RiskTolerance < 1 || p.RiskTolerance > 5 {
		return &ValidationError{Field: "RiskTolerance", Message: "must be between 1 and 5"}
	}
	if p.EmailDaily {
		if _, err := time.Parse("15:04", p.EmailTimeUTC); err != nil {
			return &ValidationError{Field: "EmailTimeUTC", Message: "must be HH:MM when email_daily is set"}
		}
	}
	return nil
}
