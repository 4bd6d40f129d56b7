package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
)

func flagBody(contentID, reason string) string {
	return fmt.Sprintf(`{"contentId":%q,"contentType":"Experience","priority":"high","reason":%q,"userComment":"<b>not food</b>"}`,
		contentID, reason)
}

func (e *testEnv) flags(reporter *models.User, n int) []models.Flag {
	e.t.Helper()
	x := e.experience(reporter, 1, 1)
	var out []models.Flag
	for i := 0; i < n; i++ {
		rec := e.do(reporter, http.MethodPost, "/flags", flagBody(x.ID.Hex(), "spam"))
		expectStatus(e.t, rec, http.StatusCreated)
		var f models.Flag
		decode(e.t, rec, &f)
		out = append(out, f)
	}
	return out
}

func TestCreateFlag(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.user(models.RoleUser)
	created := env.flags(reporter, 1)[0]

	if created.UserID != reporter.ID || created.Resolved || created.ResolvedBy != nil {
		t.Fatalf("unexpected flag %+v", created)
	}
	if created.UserComment != "not food" {
		t.Fatalf("userComment = %q, want markup stripped", created.UserComment)
	}

	x := env.experience(reporter, 2, 2)
	rec := env.do(reporter, http.MethodPost, "/flags", flagBody(x.ID.Hex(), "boring"))
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(nil, http.MethodPost, "/flags", flagBody(x.ID.Hex(), "spam"))
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestReadFlagsRequiresModerator(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.user(models.RoleUser)
	env.flags(reporter, 1)

	expectStatus(t, env.do(reporter, http.MethodGet, "/flags", ""), http.StatusForbidden)
	expectStatus(t, env.do(nil, http.MethodGet, "/flags", ""), http.StatusUnauthorized)
	expectStatus(t, env.do(env.user(models.RoleModerator), http.MethodGet, "/flags", ""), http.StatusOK)
	expectStatus(t, env.do(env.user(models.RoleAdmin), http.MethodGet, "/flags", ""), http.StatusOK)
}

func TestReadFlagsPagination(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.user(models.RoleUser)
	moderator := env.user(models.RoleModerator)
	all := env.flags(reporter, 25)

	tests := []struct {
		name  string
		query string
		first int
		count int
	}{
		{"defaults", "", 0, 20},
		{"window", "?offset=5&limit=10", 5, 10},
		{"tail", "?offset=20&limit=10", 20, 5},
		{"past the end", "?offset=40", 0, 0},
		{"invalid values fall back", "?offset=abc&limit=-3", 0, 20},
		{"zero limit falls back", "?limit=0", 0, 20},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(moderator, http.MethodGet, "/flags"+tc.query, "")
			expectStatus(t, rec, http.StatusOK)
			var got []models.Flag
			decode(t, rec, &got)
			if len(got) != tc.count {
				t.Fatalf("got %d flags, want %d", len(got), tc.count)
			}
			for i, f := range got {
				if f.ID != all[tc.first+i].ID {
					t.Fatalf("flag %d out of insertion order", i)
				}
			}
		})
	}
}

func TestReadFlagsFilters(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user(models.RoleUser), env.user(models.RoleUser)
	moderator := env.user(models.RoleModerator)
	env.flags(alice, 2)
	env.flags(bob, 1)

	var got []models.Flag
	rec := env.do(moderator, http.MethodGet, "/flags?userId="+bob.ID.Hex(), "")
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &got)
	if len(got) != 1 || got[0].UserID != bob.ID {
		t.Fatalf("userId filter returned %+v", got)
	}

	expectStatus(t, env.do(moderator, http.MethodGet, "/flags?resolved=maybe", ""), http.StatusBadRequest)
	expectStatus(t, env.do(moderator, http.MethodGet, "/flags?contentId=nope", ""), http.StatusBadRequest)
}

func TestResolveFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reporter := env.user(models.RoleUser)
	moderator := env.user(models.RoleModerator)
	f := env.flags(reporter, 1)[0]
	target := "/flags/" + f.ID.Hex()

	expectStatus(t, env.do(reporter, http.MethodPatch, target, `{"resolved":true}`), http.StatusForbidden)
	expectStatus(t, env.do(moderator, http.MethodPatch, target, `{"resolved":true,"priority":"low"}`), http.StatusOK)

	stored, err := env.stores.Flags.FindByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.Resolved || stored.Priority != "low" {
		t.Fatalf("resolve not applied: %+v", stored)
	}
	if stored.ResolvedBy == nil || *stored.ResolvedBy != moderator.ID || stored.ResolvedAt == nil {
		t.Fatalf("resolution not stamped: %+v", stored)
	}

	expectStatus(t, env.do(moderator, http.MethodPatch, target, `{"resolved":false}`), http.StatusOK)
	stored, err = env.stores.Flags.FindByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Resolved || stored.ResolvedBy != nil || stored.ResolvedAt != nil {
		t.Fatalf("reopen should clear the stamp: %+v", stored)
	}

	expectStatus(t, env.do(moderator, http.MethodPatch, target, `{"priority":"urgent"}`), http.StatusBadRequest)
	expectStatus(t, env.do(moderator, http.MethodDelete, target, ""), http.StatusOK)
	expectStatus(t, env.do(moderator, http.MethodGet, target, ""), http.StatusNotFound)
}
