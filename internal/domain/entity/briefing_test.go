package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserScope_IsUserScope(t *testing.T) {
	scope := UserScope(42)
	assert.Equal(t, "user:42", scope)

	id, ok := IsUserScope(scope)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = IsUserScope(GlobalScope)
	assert.False(t, ok)

	_, ok = IsUserScope("user:not-a-number")
	assert.False(t, ok)
}

func TestBriefing_Validate(t *testing.T) {
	start := time.Now()
	valid := func() *Briefing {
		return &Briefing{
			Scope:       GlobalScope,
			PeriodStart: start,
			PeriodEnd:   start.Add(24 * time.Hour),
			SummaryMD:   "# Today\n\n...",
		}
	}

	t.Run("valid global briefing passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("valid user-scoped briefing passes", func(t *testing.T) {
		b := valid()
		b.Scope = UserScope(1)
		assert.NoError(t, b.Validate())
	})

	t.Run("malformed scope fails", func(t *testing.T) {
		b := valid()
		b.Scope = "everyone"
		assert.Error(t, b.Validate())
	})

	t.Run("period end before start fails", func(t *testing.T) {
		b := valid()
		b.PeriodEnd = start.Add(-time.Hour)
		assert.Error(t, b.Validate())
	})

	t.Run("empty summary fails", func(t *testing.T) {
		b := valid()
		b.SummaryMD = ""
		assert.Error(t, b.Validate())
	})
}

func TestBriefingItem_Validate(t *testing.T) {
	valid := func() *BriefingItem {
		return &BriefingItem{
			Rank:        1,
			RawItemID:   1,
			Confidence:  ConfidenceHigh,
			SignalScore: 0.8,
		}
	}

	t.Run("valid item passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("zero rank fails", func(t *testing.T) {
		i := valid()
		i.Rank = 0
		assert.Error(t, i.Validate())
	})

	t.Run("invalid confidence fails", func(t *testing.T) {
		i := valid()
		i.Confidence = Confidence("certain")
		assert.Error(t, i.Validate())
	})
}
