package handlers

import (
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/crud"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

type FlagHandler struct {
	*crud.Controller[models.Flag]
}

func NewFlagHandler(flags store.Store[models.Flag], defaultLimit int64) *FlagHandler {
	h := &FlagHandler{}
	h.Controller = crud.New(flags, crud.Options{
		Filterable: []crud.Field{
			{Name: "contentId", Kind: crud.ObjectIDField},
			{Name: "contentType", Kind: crud.StringField},
			{Name: "userId", Kind: crud.ObjectIDField},
			{Name: "priority", Kind: crud.StringField},
			{Name: "reason", Kind: crud.StringField},
			{Name: "resolved", Kind: crud.BoolField},
		},
		DefaultLimit: defaultLimit,
	}, crud.Hooks[models.Flag]{
		PrepareCreate: h.prepareCreate,
		FilterUpdate:  h.filterUpdate,
	})
	return h
}

func (h *FlagHandler) prepareCreate(r *http.Request, f *models.Flag) error {
	u, err := principal(r)
	if err != nil {
		return err
	}
	f.ID = primitive.NilObjectID
	f.UserID = u.ID
	f.Resolved = false
	f.ResolvedBy = nil
	f.ResolvedAt = nil
	f.CreatedAt = time.Now().UTC()
	f.UserComment = cleanText(f.UserComment)
	return nil
}

// filterUpdate lets moderators change the triage fields. Resolving stamps the
// acting moderator; reopening clears the stamp.
func (h *FlagHandler) filterUpdate(r *http.Request, fields map[string]interface{}) (map[string]interface{}, error) {
	fields = dropFields(fields, "contentId", "contentType", "userId", "createdAt", "resolvedBy", "resolvedAt")
	cleanStringFields(fields, "userComment")

	resolved, ok := fields["resolved"].(bool)
	if !ok {
		return fields, nil
	}
	if resolved {
		u, err := principal(r)
		if err != nil {
			return nil, err
		}
		fields["resolvedBy"] = u.ID.Hex()
		fields["resolvedAt"] = time.Now().UTC().Format(time.RFC3339Nano)
	} else {
		fields["resolvedBy"] = nil
		fields["resolvedAt"] = nil
	}
	return fields, nil
}
