package middleware

import (
	"net/http"

	"github.com/good-yellow-bee/secdash/internal/models"
)

// RequireRole returns middleware that requires specific roles.
func RequireRole(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasRole(GetRole(r.Context()), allowedRoles) {
				next.ServeHTTP(w, r)
				return
			}
			jsonForbidden(w)
		})
	}
}

// RequireAdmin is shorthand for RequireRole(RoleAdmin).
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(models.RoleAdmin)(next)
}

// RequireImporter allows admin and operator roles. Import clients treat
// every auth failure alike, so a role without import rights gets the
// same 401 as a missing token.
func RequireImporter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRole(r.Context()).CanImport() {
			next.ServeHTTP(w, r)
			return
		}
		jsonUnauthorized(w)
	})
}

func hasRole(userRole models.Role, allowed []models.Role) bool {
	if userRole == "" {
		return false
	}
	// Admin always has access
	if userRole == models.RoleAdmin {
		return true
	}
	for _, role := range allowed {
		if userRole == role {
			return true
		}
	}
	return false
}
