package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Identifiable is implemented by every persisted document.
type Identifiable interface {
	GetID() primitive.ObjectID
	SetID(primitive.ObjectID)
}

// Owned is implemented by documents that belong to a user.
type Owned interface {
	OwnerID() primitive.ObjectID
}
