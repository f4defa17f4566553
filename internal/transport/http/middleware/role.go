package middleware

import (
	"fmt"
	"net/http"

	"github.com/exam-registration/internal/domain"
	"github.com/exam-registration/internal/transport/http/respond"
)

// RequireRole admits only callers whose token role is one of roles. It must run
// after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			switch {
			case !ok:
				respond.Error(w, http.StatusUnauthorized, domain.ErrUnauthorized, "no token claims on request")
			case !allowed[claims.Role]:
				respond.Error(w, http.StatusForbidden, domain.ErrForbidden, fmt.Sprintf("role %q may not use this endpoint", claims.Role))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
