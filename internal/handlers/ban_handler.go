package handlers

import (
	"errors"
	"net/http"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

type BanHandler struct {
	bans  *services.BanService
	users store.Store[models.User]
	perms *models.Permissions
}

func NewBanHandler(bans *services.BanService, users store.Store[models.User], perms *models.Permissions) *BanHandler {
	return &BanHandler{bans: bans, users: users, perms: perms}
}

func (h *BanHandler) targetUser(r *http.Request) (*models.User, error) {
	id, err := idParam(r, "id")
	if err != nil {
		return nil, err
	}
	u, err := h.users.FindByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	return u, err
}

func (h *BanHandler) Create(w http.ResponseWriter, r *http.Request) {
	target, err := h.targetUser(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	if h.perms.IsModerator(target) {
		apperrors.Write(w, r, apperrors.UnauthorizedUser("Moderators cannot be banned"))
		return
	}

	var req models.BanRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.Write(w, r, err)
		return
	}

	ban, err := h.bans.Ban(r.Context(), target.ID, cleanText(req.Reason))
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ban)
}

// Get returns the ban record to moderators and to the banned user.
func (h *BanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	viewer, err := principal(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	if viewer.ID != id && !h.perms.IsModerator(viewer) {
		apperrors.Write(w, r, apperrors.UnauthorizedUser(""))
		return
	}

	ban, err := h.bans.Get(r.Context(), id)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ban)
}

func (h *BanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	ban, err := h.bans.Reinstate(r.Context(), id)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ban)
}
