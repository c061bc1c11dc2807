package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-tracking-agent/internal/domain/tracking"
	"github.com/cmlabs-hris/hris-tracking-agent/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// RequireTrackedRole admits only tokens whose role may be tracked.
func RequireTrackedRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, tracking.ErrRoleNotTracked)
			return
		}

		role, ok := claims["role"].(string)
		if !ok {
			response.HandleError(w, tracking.ErrRoleNotTracked)
			return
		}

		if !tracking.Role(role).IsTracked() {
			response.HandleError(w, tracking.ErrRoleNotTracked)
			return
		}

		next.ServeHTTP(w, r)
	})
}
