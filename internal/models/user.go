package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account created on first OAuth login.
type User struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	ExternalID   string             `json:"externalId" bson:"externalId" validate:"required"`
	Provider     string             `json:"provider,omitempty" bson:"provider,omitempty"`
	DisplayName  string             `json:"displayName" bson:"displayName" validate:"required,max=100"`
	EmailAddress string             `json:"emailAddress" bson:"emailAddress" validate:"required,email"`
	Role         Role               `json:"role" bson:"role" validate:"omitempty,oneof=user moderator admin"`
	JoinDate     time.Time          `json:"joinDate" bson:"joinDate"`
	FirstLogin   bool               `json:"firstLogin" bson:"firstLogin"`
	LoginCount   int                `json:"loginCount" bson:"loginCount"`
}

func (u *User) GetID() primitive.ObjectID   { return u.ID }
func (u *User) SetID(id primitive.ObjectID) { u.ID = id }
func (u *User) OwnerID() primitive.ObjectID { return u.ID }
