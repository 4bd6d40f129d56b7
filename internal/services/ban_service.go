package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

const DefaultMaxBans = 3

// BanService drives the per-user ban record through active and restored.
// Once a ban has been activated maxBans times it can no longer be restored.
type BanService struct {
	bans    store.Store[models.Ban]
	maxBans int
	now     func() time.Time
}

func NewBanService(bans store.Store[models.Ban], maxBans int) *BanService {
	if maxBans < 1 {
		maxBans = DefaultMaxBans
	}
	return &BanService{bans: bans, maxBans: maxBans, now: time.Now}
}

func (s *BanService) MaxBans() int { return s.maxBans }

// Get returns the user's ban record.
func (s *BanService) Get(ctx context.Context, userID primitive.ObjectID) (*models.Ban, error) {
	ban, err := s.bans.FindOne(ctx, store.Where(store.Eq("userId", userID)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("User has no ban record")
	}
	return ban, err
}

func (s *BanService) IsBanned(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	ban, err := s.bans.FindOne(ctx, store.Where(store.Eq("userId", userID)))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ban.IsActive(), nil
}

// Ban activates the user's ban: a new record starts at count 1, a restored one
// is reactivated with the new reason and its count incremented.
func (s *BanService) Ban(ctx context.Context, userID primitive.ObjectID, reason string) (*models.Ban, error) {
	if reason == "" {
		return nil, apperrors.Validation("reason: is required", nil)
	}
	now := s.now().UTC()

	ban, err := s.bans.FindOne(ctx, store.Where(store.Eq("userId", userID)))
	if errors.Is(err, store.ErrNotFound) {
		ban = &models.Ban{
			UserID:    userID,
			Reason:    reason,
			Status:    models.BanActive,
			BanCount:  1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := models.Validate(ban); err != nil {
			return nil, apperrors.Translate(err)
		}
		if err := s.bans.Insert(ctx, ban); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return nil, apperrors.Conflict("User is already banned")
			}
			return nil, err
		}
		zap.L().Info("user banned", zap.String("user_id", userID.Hex()), zap.Int("ban_count", ban.BanCount))
		return ban, nil
	}
	if err != nil {
		return nil, err
	}

	if ban.IsActive() {
		return nil, apperrors.Conflict("User is already banned")
	}
	if ban.BanCount >= s.maxBans {
		return nil, apperrors.Conflict("User has reached the maximum number of bans")
	}

	ban.Status = models.BanActive
	ban.Reason = reason
	ban.BanCount++
	ban.UpdatedAt = now
	err = s.bans.UpdateByID(ctx, ban.ID, bson.M{
		"status":    ban.Status,
		"reason":    ban.Reason,
		"banCount":  ban.BanCount,
		"updatedAt": ban.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("user banned", zap.String("user_id", userID.Hex()), zap.Int("ban_count", ban.BanCount))
	return ban, nil
}

// Reinstate restores a banned user. Bans that reached the maximum count are
// permanent.
func (s *BanService) Reinstate(ctx context.Context, userID primitive.ObjectID) (*models.Ban, error) {
	ban, err := s.bans.FindOne(ctx, store.Where(store.Eq("userId", userID)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Conflict("User is not banned")
	}
	if err != nil {
		return nil, err
	}
	if !ban.IsActive() {
		return nil, apperrors.Conflict("User is not banned")
	}
	if ban.BanCount >= s.maxBans {
		return nil, apperrors.Conflict("User has reached the maximum number of bans and cannot be reinstated")
	}

	ban.Status = models.BanRestored
	ban.UpdatedAt = s.now().UTC()
	err = s.bans.UpdateByID(ctx, ban.ID, bson.M{
		"status":    ban.Status,
		"updatedAt": ban.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("user reinstated", zap.String("user_id", userID.Hex()))
	return ban, nil
}
