package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/markbates/goth"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

// AuthService keeps the user records behind OAuth logins.
type AuthService struct {
	users store.Store[models.User]
	now   func() time.Time
}

func NewAuthService(users store.Store[models.User]) *AuthService {
	return &AuthService{users: users, now: time.Now}
}

// Login records a completed provider login. The first login for an external
// id creates the user with FirstLogin set; later logins clear FirstLogin and
// bump LoginCount.
func (s *AuthService) Login(ctx context.Context, identity goth.User) (*models.User, error) {
	if identity.UserID == "" {
		return nil, fmt.Errorf("login: provider %q returned no user id", identity.Provider)
	}

	user, err := s.users.FindOne(ctx, store.Where(store.Eq("externalId", identity.UserID)))
	switch {
	case errors.Is(err, store.ErrNotFound):
		user, err = s.register(ctx, identity)
		if errors.Is(err, store.ErrDuplicateKey) {
			// Either a concurrent first login won the race, or another
			// account already holds this email address.
			user, err = s.users.FindOne(ctx, store.Where(store.Eq("externalId", identity.UserID)))
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperrors.Conflict("An account with this email address already exists")
			}
			if err != nil {
				return nil, err
			}
			return s.recordLogin(ctx, user)
		}
		return user, err
	case err != nil:
		return nil, err
	}
	return s.recordLogin(ctx, user)
}

func (s *AuthService) register(ctx context.Context, identity goth.User) (*models.User, error) {
	user := &models.User{
		ExternalID:   identity.UserID,
		Provider:     identity.Provider,
		DisplayName:  displayName(identity),
		EmailAddress: strings.ToLower(identity.Email),
		Role:         models.RoleUser,
		JoinDate:     s.now().UTC(),
		FirstLogin:   true,
		LoginCount:   1,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	zap.L().Info("registered user", zap.String("user_id", user.ID.Hex()), zap.String("provider", user.Provider))
	return user, nil
}

func (s *AuthService) recordLogin(ctx context.Context, user *models.User) (*models.User, error) {
	user.FirstLogin = false
	user.LoginCount++
	err := s.users.UpdateByID(ctx, user.ID, bson.M{
		"firstLogin": user.FirstLogin,
		"loginCount": user.LoginCount,
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func displayName(u goth.User) string {
	switch {
	case u.Name != "":
		return u.Name
	case u.FirstName != "" || u.LastName != "":
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	case u.NickName != "":
		return u.NickName
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
