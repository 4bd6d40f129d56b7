package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Mongo owns the client connection and hands out collections.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func Connect(ctx context.Context, mongoURI, dbName string) (*Mongo, error) {
	opts := options.Client().ApplyURI(mongoURI)
	if strings.HasPrefix(mongoURI, "mongodb+srv://") {
		// Atlas occasionally fails TLS negotiation unless TLS 1.2 is forced.
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	zap.L().Info("MongoDB connected", zap.String("db", dbName))
	return &Mongo{Client: client, DB: client.Database(dbName)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// WithTransaction runs fn inside a multi-document transaction. Requires a
// replica set or sharded deployment.
func (m *Mongo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := m.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

type MongoStore[T any] struct {
	col *mongo.Collection
}

// NewMongoStore returns a store over the named collection and creates its
// indexes. Index creation is best-effort.
func NewMongoStore[T any](ctx context.Context, m *Mongo, name string, indexes ...Index) *MongoStore[T] {
	col := m.DB.Collection(name)

	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		keys := bson.D{}
		for _, k := range idx.Keys {
			if idx.Sphere {
				keys = append(keys, bson.E{Key: k, Value: "2dsphere"})
				continue
			}
			keys = append(keys, bson.E{Key: k, Value: 1})
		}
		model := mongo.IndexModel{Keys: keys}
		if idx.Unique {
			model.Options = options.Index().SetUnique(true)
		}
		models = append(models, model)
	}
	if len(models) > 0 {
		if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
			zap.L().Warn("index creation failed", zap.String("collection", name), zap.Error(err))
		}
	}

	return &MongoStore[T]{col: col}
}

func wrapWriteErr(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

func wrapDecodeErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoStore[T]) Insert(ctx context.Context, doc *T) error {
	assignID(doc)
	_, err := s.col.InsertOne(ctx, doc)
	return wrapWriteErr(err)
}

func (s *MongoStore[T]) FindByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	var out T
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		return nil, wrapDecodeErr(err)
	}
	return &out, nil
}

func (s *MongoStore[T]) FindOne(ctx context.Context, q Query) (*T, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	proj, err := ParseProjection(q.Projection)
	if err != nil {
		return nil, err
	}
	if proj != nil {
		opts.SetProjection(proj)
	}
	if q.Offset > 0 {
		opts.SetSkip(q.Offset)
	}

	var out T
	if err := s.col.FindOne(ctx, MongoFilter(q.Conditions), opts).Decode(&out); err != nil {
		return nil, wrapDecodeErr(err)
	}
	return &out, nil
}

func (s *MongoStore[T]) Find(ctx context.Context, q Query) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	proj, err := ParseProjection(q.Projection)
	if err != nil {
		return nil, err
	}
	if proj != nil {
		opts.SetProjection(proj)
	}
	if q.Offset > 0 {
		opts.SetSkip(q.Offset)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := s.col.Find(ctx, MongoFilter(q.Conditions), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapDecodeErr(err)
	}
	return out, nil
}

func (s *MongoStore[T]) UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if len(set) == 0 {
		return nil
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return wrapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore[T]) Upsert(ctx context.Context, q Query, set, setOnInsert bson.M) error {
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(setOnInsert) > 0 {
		update["$setOnInsert"] = setOnInsert
	}
	if len(update) == 0 {
		update["$setOnInsert"] = bson.M{}
	}
	_, err := s.col.UpdateOne(ctx, MongoFilter(q.Conditions), update, options.Update().SetUpsert(true))
	return wrapWriteErr(err)
}

func (s *MongoStore[T]) DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore[T]) DeleteMany(ctx context.Context, q Query) (int64, error) {
	res, err := s.col.DeleteMany(ctx, MongoFilter(q.Conditions))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// MongoFilter translates conditions into a query document. Conditions on the
// same field are merged into one operator document; repeated equalities
// become $all and other repeated operators are spilled into $and.
func MongoFilter(conds []Condition) bson.M {
	var fields []string
	byField := map[string][]Condition{}
	for _, c := range conds {
		if _, seen := byField[c.Field]; !seen {
			fields = append(fields, c.Field)
		}
		byField[c.Field] = append(byField[c.Field], c)
	}

	filter := bson.M{}
	var and bson.A
	for _, field := range fields {
		list := byField[field]
		if len(list) == 1 && list[0].Op == OpEq {
			filter[field] = list[0].Value
			continue
		}
		ops := bson.M{}
		var eqs bson.A
		for _, c := range list {
			if c.Op == OpEq {
				eqs = append(eqs, c.Value)
				continue
			}
			key, v := mongoOperator(c)
			if _, dup := ops[key]; dup {
				and = append(and, bson.M{field: bson.M{key: v}})
				continue
			}
			ops[key] = v
		}
		switch len(eqs) {
		case 0:
		case 1:
			ops["$eq"] = eqs[0]
		default:
			ops["$all"] = eqs
		}
		filter[field] = ops
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

func mongoOperator(c Condition) (string, interface{}) {
	switch c.Op {
	case OpGte:
		return "$gte", c.Value
	case OpLte:
		return "$lte", c.Value
	case OpIn:
		return "$in", bson.A(c.Value.([]interface{}))
	case OpNotIn:
		return "$nin", bson.A(c.Value.([]interface{}))
	case OpWithinBox:
		b := c.Value.(Box)
		return "$geoWithin", bson.M{
			"$box": bson.A{
				bson.A{b.MinLng, b.MinLat},
				bson.A{b.MaxLng, b.MaxLat},
			},
		}
	}
	return "$eq", c.Value
}
