package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/crud"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

type CommentHandler struct {
	*crud.Controller[models.Comment]
	experiences store.Store[models.Experience]
}

func NewCommentHandler(comments store.Store[models.Comment], experiences store.Store[models.Experience], defaultLimit int64) *CommentHandler {
	h := &CommentHandler{experiences: experiences}
	h.Controller = crud.New(comments, crud.Options{
		Filterable: []crud.Field{
			{Name: "experienceId", Kind: crud.ObjectIDField},
			{Name: "userId", Kind: crud.ObjectIDField},
		},
		DefaultLimit: defaultLimit,
	}, crud.Hooks[models.Comment]{
		PrepareCreate: h.prepareCreate,
		FilterUpdate:  h.filterUpdate,
	})
	return h
}

func (h *CommentHandler) prepareCreate(r *http.Request, c *models.Comment) error {
	u, err := principal(r)
	if err != nil {
		return err
	}
	if c.ExperienceID.IsZero() {
		return apperrors.Validation("experienceId: is required", nil)
	}
	if _, err := h.experiences.FindByID(r.Context(), c.ExperienceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("Experience not found")
		}
		return err
	}
	c.ID = primitive.NilObjectID
	c.UserID = u.ID
	c.CreatedAt = time.Now().UTC()
	c.Text = cleanText(c.Text)
	return nil
}

func (h *CommentHandler) filterUpdate(r *http.Request, fields map[string]interface{}) (map[string]interface{}, error) {
	fields = dropFields(fields, "experienceId", "userId", "createdAt")
	cleanStringFields(fields, "text")
	return fields, nil
}
