package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	ExperienceID primitive.ObjectID `json:"experienceId" bson:"experienceId" validate:"required"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId" validate:"required"`
	Text         string             `json:"text" bson:"text" validate:"required,max=2000"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

func (c *Comment) GetID() primitive.ObjectID   { return c.ID }
func (c *Comment) SetID(id primitive.ObjectID) { c.ID = id }
func (c *Comment) OwnerID() primitive.ObjectID { return c.UserID }
