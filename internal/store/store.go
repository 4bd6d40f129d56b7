// Package store persists documents. Store is implemented by a MongoDB backend
// and an in-memory backend used for local development and tests.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidID         = errors.New("invalid id")
	ErrMalformedDocument = errors.New("malformed document")
	ErrMixedProjection   = errors.New("projection mixes included and excluded fields")
)

// Store is a collection of documents of type T.
type Store[T any] interface {
	Insert(ctx context.Context, doc *T) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*T, error)
	FindOne(ctx context.Context, q Query) (*T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) error
	// Upsert applies set to the first document matching q, or inserts a new
	// document built from q's equality conditions, set and setOnInsert.
	Upsert(ctx context.Context, q Query, set, setOnInsert bson.M) error
	DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error)
	DeleteMany(ctx context.Context, q Query) (int64, error)
}

// Transactor runs fn atomically: when fn fails every write it made is
// discarded.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Index describes a collection index. Sphere marks a 2dsphere geo index on a
// single key.
type Index struct {
	Keys   []string
	Unique bool
	Sphere bool
}

// ParseID parses a hex ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

func assignID(doc interface{}) primitive.ObjectID {
	d, ok := doc.(models.Identifiable)
	if !ok {
		return primitive.NilObjectID
	}
	if d.GetID().IsZero() {
		d.SetID(primitive.NewObjectID())
	}
	return d.GetID()
}
