package auth

import "strings"

// Roles carried in JWT claims and checked per request.
const (
	// RoleAdmin has full access to every endpoint and method.
	RoleAdmin = "admin"
	// RoleViewer can read signals/briefings and record its own feedback
	// and on-demand briefing requests, but cannot manage the source
	// registry.
	RoleViewer = "viewer"
)

// Permission is one role's allowed operations.
type Permission struct {
	// AllowedMethods this role may use at all. OPTIONS is included for
	// CORS preflight.
	AllowedMethods []string

	// AllowedPaths the role may reach. "/*" matches everything;
	// "/signals/*" matches /signals and any subpath; a bare path
	// matches exactly.
	AllowedPaths []string

	// WritablePaths narrows which of AllowedPaths may also be hit with
	// a non-GET/OPTIONS method. Unset (nil) means AllowedMethods
	// applies uniformly to every path in AllowedPaths.
	WritablePaths []string
}

// RolePermissions maps each role to its permission.
var RolePermissions = map[string]Permission{
	RoleAdmin: {
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedPaths:   []string{"/*"},
	},
	RoleViewer: {
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedPaths: []string{
			"/signals",
			"/signals/*",
			"/sources",
			"/sources/*",
			"/briefings",
			"/briefings/*",
			"/feedback",
			"/feedback/*",
		},
		WritablePaths: []string{
			"/briefings/generate",
			"/feedback",
			"/feedback/*",
		},
	},
}

// checkRolePermission reports whether role may perform method on path.
// Empty or unknown roles are denied; the method must be allowed, the
// path must match AllowedPaths, and anything past GET/OPTIONS must also
// match WritablePaths when the role declares them.
func checkRolePermission(role, method, path string) bool {
	if role == "" {
		return false
	}
	perm, exists := RolePermissions[role]
	if !exists {
		return false
	}

	methodAllowed := false
	for _, allowedMethod := range perm.AllowedMethods {
		if allowedMethod == method {
			methodAllowed = true
			break
		}
	}
	if !methodAllowed {
		return false
	}

	if !matchesPathPattern(path, perm.AllowedPaths) {
		return false
	}

	if perm.WritablePaths != nil && method != "GET" && method != "OPTIONS" {
		return matchesPathPattern(path, perm.WritablePaths)
	}
	return true
}

// matchesPathPattern reports whether path matches any pattern. "/*" is a
// universal match; a "/signals/*" pattern matches "/signals" itself and
// any subpath; anything else matches exactly.
func matchesPathPattern(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == "/*" {
			return true
		}
		if strings.HasSuffix(pattern, "/*") {
			prefix := strings.TrimSuffix(pattern, "/*")
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == pattern {
			return true
		}
	}
	return false
}
