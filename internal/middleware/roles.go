package middleware

import (
	"net/http"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
)

// RequirePermission rejects principals whose role is not granted permission.
// It assumes IsAuthenticated ran first.
func RequirePermission(perms *models.Permissions, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := CurrentUser(r.Context())
			if u == nil {
				apperrors.Write(w, r, apperrors.NotLoggedIn())
				return
			}
			if !perms.Granted(u.Role, permission) {
				apperrors.Write(w, r, apperrors.UnauthorizedUser(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsModerator admits moderators and admins.
func IsModerator(perms *models.Permissions) func(http.Handler) http.Handler {
	return RequirePermission(perms, models.PermModerate)
}
