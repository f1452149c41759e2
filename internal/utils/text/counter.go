// Package text holds small text measurement helpers shared by the LLM
// integrations.
package text

// CountRunes returns the Unicode character count of text. Rune-based so
// Japanese, emoji, and other multi-byte content measure the way a reader
// (and an LLM word-count target) would expect, not by bytes.
func CountRunes(text string) int {
	return len([]rune(text))
}
