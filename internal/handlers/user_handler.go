package handlers

import (
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/crud"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/middleware"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

type UserHandler struct {
	*crud.Controller[models.User]
	perms       *models.Permissions
	experiences *ExperienceHandler
	comments    store.Store[models.Comment]
	reactions   *services.ReactionService
}

func NewUserHandler(users store.Store[models.User], perms *models.Permissions, experiences *ExperienceHandler, comments store.Store[models.Comment], reactions *services.ReactionService, defaultLimit int64) *UserHandler {
	h := &UserHandler{
		perms:       perms,
		experiences: experiences,
		comments:    comments,
		reactions:   reactions,
	}
	h.Controller = crud.New(users, crud.Options{
		Filterable: []crud.Field{
			{Name: "role", Kind: crud.StringField},
			{Name: "emailAddress", Kind: crud.StringField},
			{Name: "firstLogin", Kind: crud.BoolField},
		},
		DateField:    "joinDate",
		DefaultLimit: defaultLimit,
	}, crud.Hooks[models.User]{
		PrepareCreate:  h.prepareCreate,
		ProcessResults: h.redact,
		FilterUpdate:   h.filterUpdate,
		AfterDelete:    h.afterDelete,
	})
	return h
}

func (h *UserHandler) prepareCreate(r *http.Request, u *models.User) error {
	u.ID = primitive.NilObjectID
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.JoinDate.IsZero() {
		u.JoinDate = time.Now().UTC()
	}
	u.DisplayName = cleanText(u.DisplayName)
	return nil
}

// redact hides identity details of other users from non-moderators.
func (h *UserHandler) redact(r *http.Request, users []models.User) ([]models.User, error) {
	viewer := middleware.CurrentUser(r.Context())
	if h.perms.IsModerator(viewer) {
		return users, nil
	}
	for i := range users {
		if viewer != nil && users[i].ID == viewer.ID {
			continue
		}
		users[i].EmailAddress = ""
		users[i].ExternalID = ""
		users[i].Provider = ""
	}
	return users, nil
}

// filterUpdate keeps login bookkeeping server-owned and role changes to
// admins.
func (h *UserHandler) filterUpdate(r *http.Request, fields map[string]interface{}) (map[string]interface{}, error) {
	fields = dropFields(fields, "externalId", "provider", "joinDate", "firstLogin", "loginCount")
	if _, ok := fields["role"]; ok {
		u := middleware.CurrentUser(r.Context())
		if u == nil || !h.perms.Granted(u.Role, models.PermManageRoles) {
			return nil, apperrors.UnauthorizedUser("Only admins can change roles")
		}
	}
	cleanStringFields(fields, "displayName")
	return fields, nil
}

// afterDelete removes the user's posts when deletePosts=true.
func (h *UserHandler) afterDelete(r *http.Request, id primitive.ObjectID) error {
	if r.URL.Query().Get("deletePosts") != "true" {
		return nil
	}
	ctx := r.Context()

	experiences, err := h.experiences.Store.Find(ctx, store.Where(store.Eq("userId", id)))
	if err != nil {
		return err
	}
	for _, e := range experiences {
		h.experiences.deletePhotos(ctx, e.FoodPhotoURL, e.PersonPhotoURL)
		if _, err := h.reactions.DeleteForExperience(ctx, e.ID); err != nil {
			return err
		}
		if _, err := h.comments.DeleteMany(ctx, store.Where(store.Eq("experienceId", e.ID))); err != nil {
			return err
		}
	}
	removed, err := h.experiences.Store.DeleteMany(ctx, store.Where(store.Eq("userId", id)))
	if err != nil {
		return err
	}
	if _, err := h.comments.DeleteMany(ctx, store.Where(store.Eq("userId", id))); err != nil {
		return err
	}
	if _, err := h.reactions.DeleteForUser(ctx, id); err != nil {
		return err
	}
	zap.L().Info("deleted user posts", zap.String("user_id", id.Hex()), zap.Int64("experiences", removed))
	return nil
}

// SelfOrModerator admits a user acting on their own record and moderators.
func SelfOrModerator(perms *models.Permissions) middleware.Predicate[models.User] {
	return middleware.OwnerOrModerator[models.User](perms)
}
