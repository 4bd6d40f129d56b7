package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BanStatus string

const (
	BanActive   BanStatus = "active"
	BanRestored BanStatus = "restored"
)

// Ban is the single moderation record kept per user. BanCount counts how many
// times the ban has been (re)activated.
type Ban struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId" validate:"required"`
	Reason    string             `json:"reason" bson:"reason" validate:"required,max=1000"`
	Status    BanStatus          `json:"status" bson:"status" validate:"oneof=active restored"`
	BanCount  int                `json:"banCount" bson:"banCount" validate:"min=1"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (b *Ban) GetID() primitive.ObjectID   { return b.ID }
func (b *Ban) SetID(id primitive.ObjectID) { b.ID = id }

func (b *Ban) IsActive() bool { return b.Status == BanActive }

type BanRequest struct {
	Reason string `json:"reason"`
}
