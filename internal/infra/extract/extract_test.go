package extract

import "testing"

func TestSkip(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://twitter.com/someone/status/1", true},
		{"https://x.com/someone/status/1", true},
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"https://reddit.com/r/programming/comments/x/y", true},
		{"https://www.reddit.com/r/programming/comments/x/y", true},

		// An HN self-post's synthetic URL is the discussion permalink;
		// there is no article behind it to fetch.
		{"https://news.ycombinator.com/item?id=43210987", true},

		{"https://example.com/story", false},
		{"https://blog.ycombinator.com/post", false}, // only the item permalink host is skipped
		{"https://example.com/twitter.com", false},   // path, not host
		{"not a url at all", false},
	}
	for _, tt := range tests {
		if got := Skip(tt.url); got != tt.want {
			t.Errorf("Skip(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
