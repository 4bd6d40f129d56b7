package store

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryDB keeps collections in process. Documents are held as BSON so reads
// and writes go through the same codecs as the Mongo backend.
type MemoryDB struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	collections map[string]*memCollection
}

type memCollection struct {
	docs    []memDoc
	indexes []Index
}

type memDoc struct {
	id  primitive.ObjectID
	raw bson.Raw
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{collections: make(map[string]*memCollection)}
}

// WithTransaction serializes transactions and restores every collection to
// its prior contents when fn fails. Writes outside a transaction are not
// isolated from it.
func (db *MemoryDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(ctx); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *MemoryDB) snapshot() map[string][]memDoc {
	db.mu.RLock()
	defer db.mu.RUnlock()

	snap := make(map[string][]memDoc, len(db.collections))
	for name, c := range db.collections {
		docs := make([]memDoc, len(c.docs))
		copy(docs, c.docs)
		snap[name] = docs
	}
	return snap
}

func (db *MemoryDB) restore(snap map[string][]memDoc) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for name, c := range db.collections {
		c.docs = snap[name]
	}
}

type MemoryStore[T any] struct {
	db   *MemoryDB
	name string
}

func NewMemoryStore[T any](db *MemoryDB, name string, indexes ...Index) *MemoryStore[T] {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.collections[name]
	if !ok {
		c = &memCollection{}
		db.collections[name] = c
	}
	c.indexes = append(c.indexes, indexes...)
	return &MemoryStore[T]{db: db, name: name}
}

func (s *MemoryStore[T]) col() *memCollection {
	return s.db.collections[s.name]
}

func (s *MemoryStore[T]) Insert(_ context.Context, doc *T) error {
	id := assignID(doc)
	b, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	raw := bson.Raw(b)
	if id.IsZero() {
		id, _ = raw.Lookup("_id").ObjectIDOK()
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.col()
	m, err := toMap(raw)
	if err != nil {
		return err
	}
	if err := c.checkUnique(m, primitive.NilObjectID); err != nil {
		return err
	}
	c.docs = append(c.docs, memDoc{id: id, raw: raw})
	return nil
}

func (s *MemoryStore[T]) FindByID(_ context.Context, id primitive.ObjectID) (*T, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	i := s.col().indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return decodeRaw[T](s.col().docs[i].raw)
}

func (s *MemoryStore[T]) FindOne(ctx context.Context, q Query) (*T, error) {
	q.Limit = 1
	out, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *MemoryStore[T]) Find(_ context.Context, q Query) ([]T, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	proj, err := ParseProjection(q.Projection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	var skipped int64
	for _, d := range s.col().docs {
		m, err := toMap(d.raw)
		if err != nil {
			return nil, err
		}
		if !Matches(m, q.Conditions) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		if proj != nil {
			m = Project(m, proj)
		}
		raw, err := bson.Marshal(m)
		if err != nil {
			return nil, err
		}
		doc, err := decodeRaw[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
		if q.Limit > 0 && int64(len(out)) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore[T]) UpdateByID(_ context.Context, id primitive.ObjectID, set bson.M) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.col()
	i := c.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	return c.apply(i, set)
}

func (s *MemoryStore[T]) Upsert(_ context.Context, q Query, set, setOnInsert bson.M) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.col()
	for i, d := range c.docs {
		m, err := toMap(d.raw)
		if err != nil {
			return err
		}
		if Matches(m, q.Conditions) {
			return c.apply(i, set)
		}
	}

	id := primitive.NewObjectID()
	m := bson.M{"_id": id}
	for _, cond := range q.Conditions {
		if cond.Op == OpEq {
			setPath(m, cond.Field, cond.Value)
		}
	}
	for k, v := range set {
		setPath(m, k, v)
	}
	for k, v := range setOnInsert {
		setPath(m, k, v)
	}
	raw, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	normalized, err := toMap(raw)
	if err != nil {
		return err
	}
	if err := c.checkUnique(normalized, primitive.NilObjectID); err != nil {
		return err
	}
	c.docs = append(c.docs, memDoc{id: id, raw: raw})
	return nil
}

func (s *MemoryStore[T]) DeleteByID(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.col()
	i := c.indexOf(id)
	if i < 0 {
		return 0, nil
	}
	c.docs = append(c.docs[:i:i], c.docs[i+1:]...)
	return 1, nil
}

func (s *MemoryStore[T]) DeleteMany(_ context.Context, q Query) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c := s.col()
	kept := make([]memDoc, 0, len(c.docs))
	var deleted int64
	for _, d := range c.docs {
		m, err := toMap(d.raw)
		if err != nil {
			return 0, err
		}
		if Matches(m, q.Conditions) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	c.docs = kept
	return deleted, nil
}

func (c *memCollection) indexOf(id primitive.ObjectID) int {
	for i, d := range c.docs {
		if d.id == id {
			return i
		}
	}
	return -1
}

// apply sets fields on the document at position i. The slice element is
// replaced rather than mutated so transaction snapshots stay intact.
func (c *memCollection) apply(i int, set bson.M) error {
	if len(set) == 0 {
		return nil
	}
	m, err := toMap(c.docs[i].raw)
	if err != nil {
		return err
	}
	for k, v := range set {
		setPath(m, k, v)
	}
	raw, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	normalized, err := toMap(raw)
	if err != nil {
		return err
	}
	if err := c.checkUnique(normalized, c.docs[i].id); err != nil {
		return err
	}
	c.docs[i] = memDoc{id: c.docs[i].id, raw: raw}
	return nil
}

func (c *memCollection) checkUnique(m bson.M, self primitive.ObjectID) error {
	for _, idx := range c.indexes {
		if !idx.Unique {
			continue
		}
		key := indexKey(m, idx.Keys)
		for _, d := range c.docs {
			if d.id == self {
				continue
			}
			other, err := toMap(d.raw)
			if err != nil {
				return err
			}
			if indexKey(other, idx.Keys) == key {
				return fmt.Errorf("%w: %v", ErrDuplicateKey, idx.Keys)
			}
		}
	}
	return nil
}

func indexKey(m bson.M, keys []string) string {
	key := ""
	for _, k := range keys {
		v, _ := lookup(m, k)
		key += fmt.Sprintf("%v\x00", normalize(v))
	}
	return key
}

func toMap(raw bson.Raw) (bson.M, error) {
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return m, nil
}

func decodeRaw[T any](raw bson.Raw) (*T, error) {
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &out, nil
}
