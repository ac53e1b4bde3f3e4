// Package authorization decides whether a role may perform an operation.
// Role checks are pure functions so they stay testable without HTTP context.
package authorization

import (
	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
)

// Allowed reports whether role is in the allowed set. Unknown roles are
// always denied.
func Allowed(role authdomain.Role, allowed ...authdomain.Role) bool {
	if !role.Valid() {
		return false
	}
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}
