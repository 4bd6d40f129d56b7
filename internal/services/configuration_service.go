package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

// ConfigurationService reads and writes persisted key/value configuration.
type ConfigurationService struct {
	configs store.Store[models.Configuration]
	tx      store.Transactor
	now     func() time.Time
}

func NewConfigurationService(configs store.Store[models.Configuration], tx store.Transactor) *ConfigurationService {
	return &ConfigurationService{configs: configs, tx: tx, now: time.Now}
}

func (s *ConfigurationService) GetConfiguration(ctx context.Context, key string) (*models.Configuration, error) {
	c, err := s.configs.FindOne(ctx, store.Where(store.Eq("key", key)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Configuration " + key + " not found")
	}
	return c, err
}

// Get returns the value stored under key.
func (s *ConfigurationService) Get(ctx context.Context, key string) (string, error) {
	c, err := s.GetConfiguration(ctx, key)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// SetConfiguration creates or overwrites key.
func (s *ConfigurationService) SetConfiguration(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperrors.Validation("key: is required", nil)
	}
	now := s.now().UTC()
	return s.configs.Upsert(ctx, store.Where(store.Eq("key", key)),
		bson.M{"value": value, "updatedAt": now},
		bson.M{"createdAt": now},
	)
}

// SetConfigurations applies every pair or none of them.
func (s *ConfigurationService) SetConfigurations(ctx context.Context, pairs []models.ConfigurationPair) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, p := range pairs {
			if err := s.SetConfiguration(ctx, p.Key, p.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
