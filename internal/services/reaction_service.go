package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

// ReactionService treats a reaction as a membership fact: adding it twice
// leaves one record.
type ReactionService struct {
	reactions store.Store[models.Reaction]
	now       func() time.Time
}

func NewReactionService(reactions store.Store[models.Reaction]) *ReactionService {
	return &ReactionService{reactions: reactions, now: time.Now}
}

func tripleQuery(userID, experienceID primitive.ObjectID, reaction models.ReactionType) store.Query {
	return store.Where(
		store.Eq("userId", userID),
		store.Eq("experienceId", experienceID),
		store.Eq("reaction", string(reaction)),
	)
}

func checkReaction(reaction models.ReactionType) error {
	if !reaction.Valid() {
		return apperrors.Validation(fmt.Sprintf("reaction: %q is not a valid reaction", reaction), nil)
	}
	return nil
}

func (s *ReactionService) Add(ctx context.Context, userID, experienceID primitive.ObjectID, reaction models.ReactionType) error {
	if err := checkReaction(reaction); err != nil {
		return err
	}
	err := s.reactions.Upsert(ctx, tripleQuery(userID, experienceID, reaction), nil, bson.M{
		"createdAt": s.now().UTC(),
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		// A concurrent add inserted the same triple.
		return nil
	}
	return err
}

// Remove deletes the triple if present and reports whether it existed.
func (s *ReactionService) Remove(ctx context.Context, userID, experienceID primitive.ObjectID, reaction models.ReactionType) (bool, error) {
	if err := checkReaction(reaction); err != nil {
		return false, err
	}
	n, err := s.reactions.DeleteMany(ctx, tripleQuery(userID, experienceID, reaction))
	return n > 0, err
}

// List returns an experience's reactions, optionally only those of one user.
func (s *ReactionService) List(ctx context.Context, experienceID primitive.ObjectID, userID *primitive.ObjectID) ([]models.Reaction, error) {
	q := store.Where(store.Eq("experienceId", experienceID))
	if userID != nil {
		q.Add(store.Eq("userId", *userID))
	}
	out, err := s.reactions.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Reaction{}
	}
	return out, nil
}

func (s *ReactionService) DeleteForExperience(ctx context.Context, experienceID primitive.ObjectID) (int64, error) {
	return s.reactions.DeleteMany(ctx, store.Where(store.Eq("experienceId", experienceID)))
}

func (s *ReactionService) DeleteForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.reactions.DeleteMany(ctx, store.Where(store.Eq("userId", userID)))
}
