package entity

import "time"

// ExtractedContent holds the cleaned body text pulled from a RawItem's URL.
// It has a 1:1 relationship with its RawItem and is created once, when an
// extraction pass succeeds.
type ExtractedContent struct {
	RawItemID      int64
	FinalURL       string
	Text           string
	WordCount      int
	Method         string // "precision" or "readability"
	Quality        float64
	ExtractedAt    time.Time
}

// Validate checks that an ExtractedContent row meets the minimum word-count
// bar the extractor contract requires before a pass is accepted.
func (c *ExtractedContent) Validate() error {
	if c.RawItemID <= 0 {
		return &ValidationError{Field: "RawItemID", Message: "must be a positive id"}
	}
	if c.WordCount <= 50 {
		return &ValidationError{Field: "WordCount", Message: "extracted content must exceed 50 words"}
	}
	if c.Method != "precision" && c.Method != "readability" {
		return &ValidationError{Field: "Method", Message: "must be precision or readability"}
	}
	return nil
}
