package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

type staticTokens map[string]primitive.ObjectID

func (s staticTokens) Parse(token string) (primitive.ObjectID, error) {
	id, ok := s[token]
	if !ok {
		return primitive.NilObjectID, errors.New("bad token")
	}
	return id, nil
}

type banList map[primitive.ObjectID]bool

func (b banList) IsBanned(_ context.Context, id primitive.ObjectID) (bool, error) {
	return b[id], nil
}

type brokenBans struct{}

func (brokenBans) IsBanned(context.Context, primitive.ObjectID) (bool, error) {
	return false, errors.New("database down")
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newUsers(t *testing.T, users ...*models.User) store.Store[models.User] {
	t.Helper()
	s := store.NewMemoryStore[models.User](store.NewMemoryDB(), "users")
	for _, u := range users {
		if err := s.Insert(context.Background(), u); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	return s
}

func serve(h http.Handler, req *http.Request) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthenticate(t *testing.T) {
	alice := &models.User{ExternalID: "g-1", DisplayName: "Alice", EmailAddress: "a@example.com", Role: models.RoleUser}
	users := newUsers(t, alice)
	tokens := staticTokens{"alice": alice.ID, "ghost": primitive.NewObjectID()}
	h := Authenticate(tokens, users)(IsAuthenticated(ok))

	tests := []struct {
		name string
		set  func(r *http.Request)
		want int
	}{
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer alice") }, http.StatusOK},
		{"session cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "alice"}) }, http.StatusOK},
		{"invalid token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"deleted user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer ghost") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		tt.set(req)
		if got := serve(h, req); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestIsModerator(t *testing.T) {
	perms := models.NewPermissions()
	h := IsModerator(perms)(ok)

	tests := []struct {
		user *models.User
		want int
	}{
		{nil, http.StatusUnauthorized},
		{&models.User{Role: models.RoleUser}, http.StatusForbidden},
		{&models.User{}, http.StatusForbidden},
		{&models.User{Role: models.RoleModerator}, http.StatusOK},
		{&models.User{Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.user != nil {
			req = req.WithContext(WithUser(req.Context(), tt.user))
		}
		if got := serve(h, req); got != tt.want {
			t.Errorf("role %v: status = %d, want %d", tt.user, got, tt.want)
		}
	}

	admin := RequirePermission(perms, models.PermManageConfiguration)(ok)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &models.User{Role: models.RoleModerator}))
	if got := serve(admin, req); got != http.StatusForbidden {
		t.Errorf("moderator managing configuration: status = %d, want 403", got)
	}
}

func TestAuthorizeOwnerOrModerator(t *testing.T) {
	perms := models.NewPermissions()
	owner := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	stranger := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	moderator := &models.User{ID: primitive.NewObjectID(), Role: models.RoleModerator}

	comments := store.NewMemoryStore[models.Comment](store.NewMemoryDB(), "comments")
	c := &models.Comment{ExperienceID: primitive.NewObjectID(), UserID: owner.ID, Text: "hi"}
	if err := comments.Insert(context.Background(), c); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var loaded *models.Comment
	r := chi.NewRouter()
	r.With(Authorize(comments, "id", OwnerOrModerator[models.Comment](perms))).
		Patch("/comments/{id}", func(w http.ResponseWriter, r *http.Request) {
			loaded = Resource[models.Comment](r.Context())
			w.WriteHeader(http.StatusOK)
		})

	tests := []struct {
		name string
		user *models.User
		id   string
		want int
	}{
		{"owner", owner, c.ID.Hex(), http.StatusOK},
		{"moderator", moderator, c.ID.Hex(), http.StatusOK},
		{"stranger", stranger, c.ID.Hex(), http.StatusForbidden},
		{"malformed id", owner, "123", http.StatusBadRequest},
		{"missing document", owner, primitive.NewObjectID().Hex(), http.StatusNotFound},
		{"anonymous", nil, c.ID.Hex(), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		loaded = nil
		req := httptest.NewRequest(http.MethodPatch, "/comments/"+tt.id, nil)
		if tt.user != nil {
			req = req.WithContext(WithUser(req.Context(), tt.user))
		}
		if got := serve(r, req); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, got, tt.want)
		}
		if tt.want == http.StatusOK && (loaded == nil || loaded.ID != c.ID) {
			t.Errorf("%s: handler did not receive the loaded document", tt.name)
		}
	}
}

func TestCheckBanStatus(t *testing.T) {
	banned := &models.User{ID: primitive.NewObjectID()}
	free := &models.User{ID: primitive.NewObjectID()}
	h := CheckBanStatus(banList{banned.ID: true})(ok)

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"banned", banned, http.StatusForbidden},
		{"not banned", free, http.StatusOK},
		{"anonymous", nil, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if tt.user != nil {
			req = req.WithContext(WithUser(req.Context(), tt.user))
		}
		if got := serve(h, req); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, got, tt.want)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithUser(req.Context(), free))
	if got := serve(CheckBanStatus(brokenBans{})(ok), req); got != http.StatusInternalServerError {
		t.Errorf("lookup failure: status = %d, want 500", got)
	}
}
