package store

import (
	"context"
	"fmt"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
)

// Collections is one store per persisted entity plus the transaction runner
// shared by them.
type Collections struct {
	Users          Store[models.User]
	Experiences    Store[models.Experience]
	Comments       Store[models.Comment]
	Flags          Store[models.Flag]
	Reactions      Store[models.Reaction]
	Bans           Store[models.Ban]
	Configurations Store[models.Configuration]
	Tx             Transactor
}

var collectionIndexes = map[string][]Index{
	"users": {
		{Keys: []string{"externalId"}, Unique: true},
		{Keys: []string{"emailAddress"}, Unique: true},
	},
	"experiences": {
		{Keys: []string{"place.location"}, Sphere: true},
		{Keys: []string{"userId"}},
		{Keys: []string{"createdAt"}},
	},
	"comments": {
		{Keys: []string{"experienceId"}},
		{Keys: []string{"userId"}},
	},
	"flags": {
		{Keys: []string{"contentId"}},
		{Keys: []string{"resolved", "priority"}},
	},
	"reactions": {
		{Keys: []string{"userId", "experienceId", "reaction"}, Unique: true},
		{Keys: []string{"experienceId"}},
	},
	"bans": {
		{Keys: []string{"userId"}, Unique: true},
	},
	"configurations": {
		{Keys: []string{"key"}, Unique: true},
	},
}

// OpenMongoCollections binds every collection to m, creating indexes.
func OpenMongoCollections(ctx context.Context, m *Mongo) *Collections {
	return &Collections{
		Users:          NewMongoStore[models.User](ctx, m, "users", collectionIndexes["users"]...),
		Experiences:    NewMongoStore[models.Experience](ctx, m, "experiences", collectionIndexes["experiences"]...),
		Comments:       NewMongoStore[models.Comment](ctx, m, "comments", collectionIndexes["comments"]...),
		Flags:          NewMongoStore[models.Flag](ctx, m, "flags", collectionIndexes["flags"]...),
		Reactions:      NewMongoStore[models.Reaction](ctx, m, "reactions", collectionIndexes["reactions"]...),
		Bans:           NewMongoStore[models.Ban](ctx, m, "bans", collectionIndexes["bans"]...),
		Configurations: NewMongoStore[models.Configuration](ctx, m, "configurations", collectionIndexes["configurations"]...),
		Tx:             m,
	}
}

// OpenMemoryCollections is the in-memory equivalent of OpenMongoCollections.
func OpenMemoryCollections(db *MemoryDB) *Collections {
	return &Collections{
		Users:          NewMemoryStore[models.User](db, "users", collectionIndexes["users"]...),
		Experiences:    NewMemoryStore[models.Experience](db, "experiences", collectionIndexes["experiences"]...),
		Comments:       NewMemoryStore[models.Comment](db, "comments", collectionIndexes["comments"]...),
		Flags:          NewMemoryStore[models.Flag](db, "flags", collectionIndexes["flags"]...),
		Reactions:      NewMemoryStore[models.Reaction](db, "reactions", collectionIndexes["reactions"]...),
		Bans:           NewMemoryStore[models.Ban](db, "bans", collectionIndexes["bans"]...),
		Configurations: NewMemoryStore[models.Configuration](db, "configurations", collectionIndexes["configurations"]...),
		Tx:             db,
	}
}

// Open returns the collections for backend ("mongo" or "memory") and a
// function that releases the connection.
func Open(ctx context.Context, backend, mongoURI, dbName string) (*Collections, func(context.Context) error, error) {
	if backend == "memory" {
		return OpenMemoryCollections(NewMemoryDB()), func(context.Context) error { return nil }, nil
	}
	m, err := Connect(ctx, mongoURI, dbName)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}
	return OpenMongoCollections(ctx, m), m.Close, nil
}
