package briefing

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TemplateComposer renders a deterministic markdown briefing without an
// LLM: a header plus one ranked section per candidate, used when no LLM
// is configured and whenever the LLM composer fails.
type TemplateComposer struct {
	numItems int
}

// NewTemplateComposer builds a TemplateComposer capped at numItems
// sections; numItems <= 0 falls back to DefaultNumItems.
func NewTemplateComposer(numItems int) *TemplateComposer {
	if numItems <= 0 {
		numItems = DefaultNumItems
	}
	return &TemplateComposer{numItems: numItems}
}

// Compose implements Composer. focusAreas and targetWords are accepted for
// interface compatibility but have no effect on the deterministic template.
func (c *TemplateComposer) Compose(_ context.Context, candidates []Candidate, _ string, _ int) (*ComposeResult, error) {
	n := len(candidates)
	if n > c.numItems {
		n = c.numItems
	}

	var b strings.Builder
	b.WriteString("# Daily Intelligence Briefing\n")
	fmt.Fprintf(&b, "*Generated %s*\n\n", time.Now().UTC().Format("January 2, 2006"))
	b.WriteString("## Top Signals\n\n")

	itemsUsed := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		cand := candidates[i]
		fmt.Fprintf(&b, "### %d. %s\n", i+1, cand.Title)
		fmt.Fprintf(&b, "*Source: %s | Score: %.2f*\n\n", cand.Source, cand.SignalScore)
		if cand.Snippet != "" {
			b.WriteString(cand.Snippet)
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Read more](%s)\n\n", cand.URL)
		itemsUsed = append(itemsUsed, cand.RawItemID)
	}

	return &ComposeResult{Markdown: b.String(), ItemsUsed: itemsUsed}, nil
}
