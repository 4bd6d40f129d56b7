package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

// Predicate decides whether user may act on doc.
type Predicate[T any] func(user *models.User, doc *T) bool

// Authorize loads the document named by the route parameter and admits the
// request only if pred holds. The loaded document is available to the handler
// through Resource.
func Authorize[T any](s store.Store[T], param string, pred Predicate[T]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := chi.URLParam(r, param)
			id, err := store.ParseID(raw)
			if err != nil {
				apperrors.Write(w, r, apperrors.Validation(fmt.Sprintf("%q is not a valid id", raw), err))
				return
			}

			doc, err := s.FindByID(r.Context(), id)
			if err != nil {
				apperrors.Write(w, r, err)
				return
			}

			u := CurrentUser(r.Context())
			if u == nil {
				apperrors.Write(w, r, apperrors.NotLoggedIn())
				return
			}
			if !pred(u, doc) {
				apperrors.Write(w, r, apperrors.UnauthorizedUser(""))
				return
			}

			ctx := context.WithValue(r.Context(), resourceKey, doc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Resource returns the document loaded by Authorize.
func Resource[T any](ctx context.Context) *T {
	doc, _ := ctx.Value(resourceKey).(*T)
	return doc
}

// OwnerOrModerator admits the document's owner and anyone holding the
// moderation permission.
func OwnerOrModerator[T any](perms *models.Permissions) Predicate[T] {
	return func(u *models.User, doc *T) bool {
		if perms.IsModerator(u) {
			return true
		}
		owned, ok := any(doc).(models.Owned)
		return ok && owned.OwnerID() == u.ID
	}
}
