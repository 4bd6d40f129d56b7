package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ContentTypeExperience = "Experience"
	ContentTypeComment    = "Comment"
)

var (
	FlagPriorities = []string{"low", "medium", "high"}
	FlagReasons    = []string{"spam", "offensive", "inappropriate", "misinformation", "other"}
)

// Flag is a moderation report against a piece of content.
type Flag struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	ContentID   primitive.ObjectID  `json:"contentId" bson:"contentId" validate:"required"`
	ContentType string              `json:"contentType" bson:"contentType" validate:"required,oneof=Experience Comment"`
	UserID      primitive.ObjectID  `json:"userId" bson:"userId" validate:"required"`
	Priority    string              `json:"priority" bson:"priority" validate:"required,oneof=low medium high"`
	Reason      string              `json:"reason" bson:"reason" validate:"required,oneof=spam offensive inappropriate misinformation other"`
	UserComment string              `json:"userComment,omitempty" bson:"userComment,omitempty" validate:"max=1000"`
	Resolved    bool                `json:"resolved" bson:"resolved"`
	ResolvedBy  *primitive.ObjectID `json:"resolvedBy,omitempty" bson:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time          `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
}

func (f *Flag) GetID() primitive.ObjectID   { return f.ID }
func (f *Flag) SetID(id primitive.ObjectID) { f.ID = id }
func (f *Flag) OwnerID() primitive.ObjectID { return f.UserID }
