package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReactionType is the closed set of reactions a user can attach to an
// experience.
type ReactionType string

const (
	ReactionMeToo            ReactionType = "meToo"
	ReactionThanksForSharing ReactionType = "thanksForSharing"
	ReactionLooksDelicious   ReactionType = "looksDelicious"
	ReactionWantToTry        ReactionType = "wantToTry"
)

var ReactionTypes = []ReactionType{
	ReactionMeToo,
	ReactionThanksForSharing,
	ReactionLooksDelicious,
	ReactionWantToTry,
}

func (t ReactionType) Valid() bool {
	for _, rt := range ReactionTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// Reaction records that a user reacted to an experience. The (user,
// experience, reaction) triple is unique.
type Reaction struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId" validate:"required"`
	ExperienceID primitive.ObjectID `json:"experienceId" bson:"experienceId" validate:"required"`
	Reaction     ReactionType       `json:"reaction" bson:"reaction" validate:"required,oneof=meToo thanksForSharing looksDelicious wantToTry"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

func (r *Reaction) GetID() primitive.ObjectID   { return r.ID }
func (r *Reaction) SetID(id primitive.ObjectID) { r.ID = id }
func (r *Reaction) OwnerID() primitive.ObjectID { return r.UserID }

// ReactionRequest is the body of the reaction create/remove endpoints.
type ReactionRequest struct {
	Reaction ReactionType `json:"reaction"`
}
