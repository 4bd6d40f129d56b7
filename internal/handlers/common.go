package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kennygrant/sanitize"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/crud"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/middleware"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	crud.WriteJSON(w, status, data)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Validation("Invalid request body", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := store.ParseID(raw)
	if err != nil {
		return id, apperrors.Validation(fmt.Sprintf("%q is not a valid id", raw), err)
	}
	return id, nil
}

// principal returns the session user. Routes using it sit behind
// IsAuthenticated.
func principal(r *http.Request) (*models.User, error) {
	u := middleware.CurrentUser(r.Context())
	if u == nil {
		return nil, apperrors.NotLoggedIn()
	}
	return u, nil
}

// cleanText strips markup from user supplied plain text.
func cleanText(s string) string {
	return strings.TrimSpace(sanitize.HTML(s))
}

// dropFields removes keys a caller may not set through an update.
func dropFields(fields map[string]interface{}, keys ...string) map[string]interface{} {
	for _, k := range keys {
		delete(fields, k)
	}
	return fields
}

// cleanStringFields sanitizes the named string values of an update payload.
func cleanStringFields(fields map[string]interface{}, keys ...string) {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok {
			fields[k] = cleanText(s)
		}
	}
}
