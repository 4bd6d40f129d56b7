package middleware

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
)

// BanChecker reports whether a user currently has an active ban.
type BanChecker interface {
	IsBanned(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

// CheckBanStatus rejects banned principals. Requests without a principal are
// left to IsAuthenticated.
func CheckBanStatus(bans BanChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := CurrentUser(r.Context())
			if u == nil {
				next.ServeHTTP(w, r)
				return
			}

			banned, err := bans.IsBanned(r.Context(), u.ID)
			if err != nil {
				apperrors.Write(w, r, apperrors.Internal("Failed to check ban status", err))
				return
			}
			if banned {
				apperrors.Write(w, r, apperrors.UnauthorizedUser("Your account has been banned"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
