package pagination

import (
	"net/http/httptest"
	"testing"
)

func TestParseQueryParams(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
		wantErr   bool
	}{
		{name: "defaults when absent", query: "", wantPage: 1, wantLimit: 20},
		{name: "explicit page and limit", query: "page=3&limit=50", wantPage: 3, wantLimit: 50},
		{name: "page zero rejected", query: "page=0", wantErr: true},
		{name: "negative page rejected", query: "page=-2", wantErr: true},
		{name: "non-numeric page rejected", query: "page=abc", wantErr: true},
		{name: "limit above max rejected", query: "limit=101", wantErr: true},
		{name: "limit zero rejected", query: "limit=0", wantErr: true},
		{name: "limit at max accepted", query: "limit=100", wantPage: 1, wantLimit: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/signals?"+tt.query, nil)
			params, err := ParseQueryParams(r, cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("want error for %q, got params %+v", tt.query, params)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if params.Page != tt.wantPage || params.Limit != tt.wantLimit {
				t.Fatalf("got page=%d limit=%d, want page=%d limit=%d", params.Page, params.Limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestCalculateOffset(t *testing.T) {
	tests := []struct {
		page, limit, want int
	}{
		{1, 20, 0},
		{2, 20, 20},
		{3, 10, 20},
		{5, 100, 400},
	}
	for _, tt := range tests {
		if got := CalculateOffset(tt.page, tt.limit); got != tt.want {
			t.Errorf("CalculateOffset(%d, %d) = %d, want %d", tt.page, tt.limit, got, tt.want)
		}
	}
}

func TestCalculateTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 20, 1},
		{10, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 20, 5},
	}
	for _, tt := range tests {
		if got := CalculateTotalPages(tt.total, tt.limit); got != tt.want {
			t.Errorf("CalculateTotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}

func TestLoadFromEnv_FallsBackOnBadValues(t *testing.T) {
	t.Setenv("PAGINATION_DEFAULT_PAGE", "not-a-number")
	t.Setenv("PAGINATION_DEFAULT_LIMIT", "-5")
	t.Setenv("PAGINATION_MAX_LIMIT", "250")

	cfg := LoadFromEnv()
	if cfg.DefaultPage != 1 {
		t.Errorf("DefaultPage = %d, want fallback 1", cfg.DefaultPage)
	}
	if cfg.DefaultLimit != 20 {
		t.Errorf("DefaultLimit = %d, want fallback 20", cfg.DefaultLimit)
	}
	if cfg.MaxLimit != 250 {
		t.Errorf("MaxLimit = %d, want 250", cfg.MaxLimit)
	}
}

func TestNewResponse(t *testing.T) {
	meta := Metadata{Total: 42, Page: 2, Limit: 20, TotalPages: 3}
	resp := NewResponse([]string{"a", "b"}, meta)
	if len(resp.Data) != 2 || resp.Pagination != meta {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
