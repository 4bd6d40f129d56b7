package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

func TestReadUserSelfOrModerator(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user(models.RoleUser), env.user(models.RoleUser)
	moderator := env.user(models.RoleModerator)

	var got models.User
	rec := env.do(alice, http.MethodGet, "/users/"+alice.ID.Hex(), "")
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &got)
	if got.EmailAddress != alice.EmailAddress {
		t.Fatalf("own email should be visible, got %q", got.EmailAddress)
	}

	expectStatus(t, env.do(bob, http.MethodGet, "/users/"+alice.ID.Hex(), ""), http.StatusForbidden)
	expectStatus(t, env.do(nil, http.MethodGet, "/users/"+alice.ID.Hex(), ""), http.StatusUnauthorized)
	expectStatus(t, env.do(moderator, http.MethodGet, "/users/"+alice.ID.Hex(), ""), http.StatusOK)

	expectStatus(t, env.do(alice, http.MethodGet, "/users", ""), http.StatusForbidden)
	var list []models.User
	rec = env.do(moderator, http.MethodGet, "/users?role=user", "")
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("role filter returned %d users", len(list))
	}
}

func TestUpdateUserRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(models.RoleUser)
	moderator := env.user(models.RoleModerator)
	admin := env.user(models.RoleAdmin)
	target := "/users/" + alice.ID.Hex()

	expectStatus(t, env.do(alice, http.MethodPatch, target, `{"role":"admin"}`), http.StatusForbidden)
	expectStatus(t, env.do(moderator, http.MethodPatch, target, `{"role":"moderator"}`), http.StatusForbidden)

	expectStatus(t, env.do(alice, http.MethodPatch, target, `{"displayName":"Alice <i>B.</i>","loginCount":99}`), http.StatusOK)
	stored, err := env.stores.Users.FindByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.DisplayName != "Alice B." || stored.LoginCount != 1 || stored.Role != models.RoleUser {
		t.Fatalf("unexpected user %+v", stored)
	}

	expectStatus(t, env.do(admin, http.MethodPatch, target, `{"role":"moderator"}`), http.StatusOK)
	stored, err = env.stores.Users.FindByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Role != models.RoleModerator {
		t.Fatalf("role = %q", stored.Role)
	}

	expectStatus(t, env.do(admin, http.MethodPatch, target, `{"role":"owner"}`), http.StatusBadRequest)
}

func TestDeleteUserWithPosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := env.user(models.RoleUser), env.user(models.RoleUser)
	mine := env.experience(alice, 1, 1)
	theirs := env.experience(bob, 2, 2)

	expectStatus(t, env.do(bob, http.MethodPut, "/experiences/"+mine.ID.Hex()+"/reactions", `{"reaction":"wantToTry"}`), http.StatusOK)
	expectStatus(t, env.do(alice, http.MethodPut, "/experiences/"+theirs.ID.Hex()+"/reactions", `{"reaction":"meToo"}`), http.StatusOK)
	expectStatus(t, env.do(alice, http.MethodPost, "/comments", `{"experienceId":"`+theirs.ID.Hex()+`","text":"Lovely"}`), http.StatusCreated)

	expectStatus(t, env.do(bob, http.MethodDelete, "/users/"+alice.ID.Hex(), ""), http.StatusForbidden)
	expectStatus(t, env.do(alice, http.MethodDelete, "/users/"+alice.ID.Hex()+"?deletePosts=true", ""), http.StatusOK)

	if _, err := env.stores.Users.FindByID(ctx, alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("user still present: %v", err)
	}
	if _, err := env.stores.Experiences.FindByID(ctx, mine.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("experience still present: %v", err)
	}
	if _, err := env.stores.Experiences.FindByID(ctx, theirs.ID); err != nil {
		t.Fatalf("other users' posts must survive: %v", err)
	}
	reactions, _ := env.stores.Reactions.Find(ctx, store.Query{})
	comments, _ := env.stores.Comments.Find(ctx, store.Query{})
	if len(reactions) != 0 || len(comments) != 0 {
		t.Fatalf("left %d reactions and %d comments", len(reactions), len(comments))
	}
}

func TestDeleteUserKeepsPostsByDefault(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(models.RoleUser)
	x := env.experience(alice, 1, 1)

	expectStatus(t, env.do(env.user(models.RoleModerator), http.MethodDelete, "/users/"+alice.ID.Hex(), ""), http.StatusOK)
	if _, err := env.stores.Experiences.FindByID(context.Background(), x.ID); err != nil {
		t.Fatalf("posts should be kept without deletePosts: %v", err)
	}
}
