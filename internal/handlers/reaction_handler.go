package handlers

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/middleware"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

type ReactionHandler struct {
	reactions   *services.ReactionService
	store       store.Store[models.Reaction]
	experiences store.Store[models.Experience]
}

func NewReactionHandler(reactions *services.ReactionService, reactionStore store.Store[models.Reaction], experiences store.Store[models.Experience]) *ReactionHandler {
	return &ReactionHandler{reactions: reactions, store: reactionStore, experiences: experiences}
}

func (h *ReactionHandler) experienceID(r *http.Request) (primitive.ObjectID, error) {
	id, err := idParam(r, "id")
	if err != nil {
		return id, err
	}
	if _, err := h.experiences.FindByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return id, apperrors.NotFound("Experience not found")
		}
		return id, err
	}
	return id, nil
}

func (h *ReactionHandler) readRequest(r *http.Request) (*models.User, primitive.ObjectID, models.ReactionType, error) {
	u, err := principal(r)
	if err != nil {
		return nil, primitive.NilObjectID, "", err
	}
	experienceID, err := h.experienceID(r)
	if err != nil {
		return nil, experienceID, "", err
	}
	var req models.ReactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, experienceID, "", err
	}
	return u, experienceID, req.Reaction, nil
}

// Add records the principal's reaction. Repeating it is a no-op.
func (h *ReactionHandler) Add(w http.ResponseWriter, r *http.Request) {
	u, experienceID, reaction, err := h.readRequest(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	if err := h.reactions.Add(r.Context(), u.ID, experienceID, reaction); err != nil {
		apperrors.Write(w, r, err)
		return
	}
	h.writeUserReactions(w, r, experienceID, u.ID)
}

// Remove deletes the principal's reaction if present.
func (h *ReactionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	u, experienceID, reaction, err := h.readRequest(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	if _, err := h.reactions.Remove(r.Context(), u.ID, experienceID, reaction); err != nil {
		apperrors.Write(w, r, err)
		return
	}
	h.writeUserReactions(w, r, experienceID, u.ID)
}

func (h *ReactionHandler) writeUserReactions(w http.ResponseWriter, r *http.Request, experienceID, userID primitive.ObjectID) {
	list, err := h.reactions.List(r.Context(), experienceID, &userID)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// List returns the experience's reactions, filtered by ?userId= when given.
func (h *ReactionHandler) List(w http.ResponseWriter, r *http.Request) {
	experienceID, err := h.experienceID(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	var userID *primitive.ObjectID
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := store.ParseID(raw)
		if err != nil {
			apperrors.Write(w, r, apperrors.Validation("userId: \""+raw+"\" is not a valid id", err))
			return
		}
		userID = &id
	}

	list, err := h.reactions.List(r.Context(), experienceID, userID)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Delete removes one reaction by id. Ownership is checked by the route; the
// reaction must also belong to the experience named in the path.
func (h *ReactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	experienceID, err := idParam(r, "id")
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	id, err := idParam(r, "reactionId")
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	if rx := middleware.Resource[models.Reaction](r.Context()); rx != nil && rx.ExperienceID != experienceID {
		apperrors.Write(w, r, apperrors.NotFound("Reaction not found"))
		return
	}
	n, err := h.store.DeleteByID(r.Context(), id)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	if n == 0 {
		apperrors.Write(w, r, apperrors.Internal("Failed to delete document", nil))
		return
	}
	w.WriteHeader(http.StatusOK)
}
