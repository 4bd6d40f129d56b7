package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Configuration is a persisted key/value pair, used for secrets rotated at
// runtime (image host tokens).
type Configuration struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Key       string             `json:"key" bson:"key" validate:"required"`
	Value     string             `json:"value" bson:"value"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (c *Configuration) GetID() primitive.ObjectID   { return c.ID }
func (c *Configuration) SetID(id primitive.ObjectID) { c.ID = id }

// ConfigurationPair is one entry of a batch update.
type ConfigurationPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
