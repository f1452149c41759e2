package auth

import "testing"

func TestCheckRolePermission_Admin(t *testing.T) {
	for _, tc := range []struct{ method, path string }{
		{"GET", "/signals"},
		{"POST", "/sources"},
		{"PUT", "/sources/3"},
		{"DELETE", "/sources/3"},
		{"POST", "/briefings/generate"},
		{"DELETE", "/feedback/9"},
		{"OPTIONS", "/signals"},
	} {
		if !checkRolePermission(RoleAdmin, tc.method, tc.path) {
			t.Errorf("admin should be allowed %s %s", tc.method, tc.path)
		}
	}
}

func TestCheckRolePermission_ViewerReads(t *testing.T) {
	for _, tc := range []struct{ method, path string }{
		{"GET", "/signals"},
		{"GET", "/signals/42"},
		{"GET", "/signals/categories/stats"},
		{"GET", "/sources"},
		{"GET", "/briefings/latest"},
		{"GET", "/feedback/saved"},
		{"OPTIONS", "/signals"},
	} {
		if !checkRolePermission(RoleViewer, tc.method, tc.path) {
			t.Errorf("viewer should be allowed %s %s", tc.method, tc.path)
		}
	}
}

func TestCheckRolePermission_ViewerWrites(t *testing.T) {
	// Viewer may write only its own feedback and request a briefing;
	// the source registry stays admin-only.
	allowed := []struct{ method, path string }{
		{"POST", "/briefings/generate"},
		{"POST", "/feedback"},
		{"DELETE", "/feedback/9"},
	}
	for _, tc := range allowed {
		if !checkRolePermission(RoleViewer, tc.method, tc.path) {
			t.Errorf("viewer should be allowed %s %s", tc.method, tc.path)
		}
	}

	denied := []struct{ method, path string }{
		{"POST", "/sources"},
		{"DELETE", "/sources/3"},
		{"PUT", "/sources/3"},
		{"POST", "/signals"},
		{"DELETE", "/briefings/7"},
		{"PATCH", "/feedback"},
	}
	for _, tc := range denied {
		if checkRolePermission(RoleViewer, tc.method, tc.path) {
			t.Errorf("viewer must not be allowed %s %s", tc.method, tc.path)
		}
	}
}

func TestCheckRolePermission_UnknownRoles(t *testing.T) {
	if checkRolePermission("", "GET", "/signals") {
		t.Error("empty role must be denied")
	}
	if checkRolePermission("superuser", "GET", "/signals") {
		t.Error("unknown role must be denied")
	}
}

func TestCheckRolePermission_ViewerPathsOutsideScope(t *testing.T) {
	for _, path := range []string{"/users", "/admin", "/internal/debug"} {
		if checkRolePermission(RoleViewer, "GET", path) {
			t.Errorf("viewer must not reach %s", path)
		}
	}
}

func TestMatchesPathPattern(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"/anything/at/all", []string{"/*"}, true},
		{"/signals", []string{"/signals/*"}, true},
		{"/signals/1", []string{"/signals/*"}, true},
		{"/signals/1/detail", []string{"/signals/*"}, true},
		{"/signalsfoo", []string{"/signals/*"}, false},
		{"/sources", []string{"/sources"}, true},
		{"/sources/1", []string{"/sources"}, false},
		{"/users", []string{"/signals/*", "/sources"}, false},
	}
	for _, tt := range tests {
		if got := matchesPathPattern(tt.path, tt.patterns); got != tt.want {
			t.Errorf("matchesPathPattern(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}
