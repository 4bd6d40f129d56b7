package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

type fakePhotos struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	fail     bool
}

func (f *fakePhotos) UploadFile(_ context.Context, data []byte, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", io.ErrUnexpectedEOF
	}
	url := "https://cdn.test/" + primitive.NewObjectID().Hex() + "-" + name
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakePhotos) DeleteFile(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

type testEnv struct {
	t      *testing.T
	api    *API
	h      http.Handler
	stores *store.Collections
	tokens *services.TokenIssuer
	photos *fakePhotos
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stores := store.OpenMemoryCollections(store.NewMemoryDB())
	tokens := services.NewTokenIssuer("test-secret", time.Hour)
	photos := &fakePhotos{}
	api := NewAPI(Deps{
		Stores: stores,
		Tokens: tokens,
		Photos: photos,
		Logger: zap.NewNop(),
		Options: Options{
			MaxUploadMB:  5,
			DefaultLimit: 20,
			MaxBans:      3,
		},
	})
	return &testEnv{t: t, api: api, h: api.Routes(), stores: stores, tokens: tokens, photos: photos}
}

func (e *testEnv) user(role models.Role) *models.User {
	e.t.Helper()
	tag := primitive.NewObjectID().Hex()
	u := &models.User{
		ExternalID:   "g-" + tag,
		Provider:     "google",
		DisplayName:  "User " + tag[:6],
		EmailAddress: tag + "@example.com",
		Role:         role,
		JoinDate:     time.Now().UTC(),
		LoginCount:   1,
	}
	if err := e.stores.Users.Insert(context.Background(), u); err != nil {
		e.t.Fatalf("insert user: %v", err)
	}
	return u
}

func (e *testEnv) experience(owner *models.User, lng, lat float64) *models.Experience {
	e.t.Helper()
	x := &models.Experience{
		Title:          "Pierogi at Nonna's",
		Place:          models.Place{Location: models.NewGeoPoint(lng, lat)},
		Description:    "Sunday dumplings",
		ExperienceDate: "1995-06-01",
		CreatedAt:      time.Now().UTC(),
		UserID:         owner.ID,
	}
	if err := e.stores.Experiences.Insert(context.Background(), x); err != nil {
		e.t.Fatalf("insert experience: %v", err)
	}
	return x
}

func (e *testEnv) request(u *models.User, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if u != nil {
		tok, err := e.tokens.Issue(u.ID)
		if err != nil {
			e.t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

// do sends body as JSON; an empty body sends none.
func (e *testEnv) do(u *models.User, method, target, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	if body == "" {
		return e.request(u, method, target, nil, "")
	}
	return e.request(u, method, target, strings.NewReader(body), "application/json")
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	decode(t, rec, &resp)
	return resp.Message
}
