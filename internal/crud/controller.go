// Package crud provides the create/read/update/delete skeleton shared by the
// resource handlers. Resources customise it through Hooks instead of
// reimplementing the operations; a handler that embeds *Controller can still
// shadow any operation with its own method.
package crud

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

const DefaultLimit = 20

// Hooks are the override points of a Controller. Every hook is optional.
type Hooks[T any] struct {
	// PrepareCreate fills server-owned fields before validation and insert.
	PrepareCreate func(r *http.Request, doc *T) error
	// ModifyQuery adjusts the query built from the recognised parameters.
	ModifyQuery func(r *http.Request, q *store.Query) error
	// Projection returns a space-separated field list ("-field" excludes).
	Projection func(r *http.Request) string
	// ProcessResults reshapes read results, e.g. redacting fields.
	ProcessResults func(r *http.Request, docs []T) ([]T, error)
	// FilterUpdate removes or rewrites fields of an update payload.
	FilterUpdate func(r *http.Request, fields map[string]interface{}) (map[string]interface{}, error)
	// AfterDelete runs once the document is gone.
	AfterDelete func(r *http.Request, id primitive.ObjectID) error
}

type FieldKind int

const (
	StringField FieldKind = iota
	ObjectIDField
	BoolField
)

// Field is a query parameter matched exactly against the document field of
// the same name.
type Field struct {
	Name string
	Kind FieldKind
}

type Options struct {
	// IDParam is the route parameter holding the document id.
	IDParam string
	// Filterable lists the exact-match query parameters.
	Filterable []Field
	// DateField is compared against createdBefore/createdAfter.
	DateField    string
	DefaultLimit int64
}

type Controller[T any] struct {
	Store store.Store[T]
	Hooks Hooks[T]
	Opts  Options
}

func New[T any](s store.Store[T], opts Options, hooks Hooks[T]) *Controller[T] {
	if opts.IDParam == "" {
		opts.IDParam = "id"
	}
	if opts.DateField == "" {
		opts.DateField = "createdAt"
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	return &Controller[T]{Store: s, Hooks: hooks, Opts: opts}
}

func (c *Controller[T]) Create(w http.ResponseWriter, r *http.Request) {
	var doc T
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		apperrors.Write(w, r, apperrors.Validation("Invalid request body", err))
		return
	}
	if err := c.Insert(r, &doc); err != nil {
		apperrors.Write(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, doc)
}

// Insert runs PrepareCreate, validates doc and persists it.
func (c *Controller[T]) Insert(r *http.Request, doc *T) error {
	if c.Hooks.PrepareCreate != nil {
		if err := c.Hooks.PrepareCreate(r, doc); err != nil {
			return err
		}
	}
	if err := models.Validate(doc); err != nil {
		return apperrors.Translate(err)
	}
	return apperrors.Translate(c.Store.Insert(r.Context(), doc))
}

func (c *Controller[T]) ReadByID(w http.ResponseWriter, r *http.Request) {
	id, err := c.ID(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	doc, err := c.Store.FindByID(r.Context(), id)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	docs := []T{*doc}
	if c.Hooks.ProcessResults != nil {
		if docs, err = c.Hooks.ProcessResults(r, docs); err != nil {
			apperrors.Write(w, r, err)
			return
		}
	}
	if len(docs) == 0 {
		apperrors.Write(w, r, apperrors.NotFound(""))
		return
	}
	WriteJSON(w, http.StatusOK, docs[0])
}

func (c *Controller[T]) Read(w http.ResponseWriter, r *http.Request) {
	q, err := c.BuildQuery(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	docs, err := c.Store.Find(r.Context(), q)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	if c.Hooks.ProcessResults != nil {
		if docs, err = c.Hooks.ProcessResults(r, docs); err != nil {
			apperrors.Write(w, r, err)
			return
		}
	}

	if docs == nil {
		docs = []T{}
	}
	out, err := Shape(docs, q.Projection)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// BuildQuery turns the request's query string into a store query: exact-match
// fields, the createdBefore/createdAfter range, the ModifyQuery and Projection
// hooks and offset/limit pagination.
func (c *Controller[T]) BuildQuery(r *http.Request) (store.Query, error) {
	params := r.URL.Query()
	var q store.Query

	for _, f := range c.Opts.Filterable {
		raw := params.Get(f.Name)
		if raw == "" {
			continue
		}
		v, err := parseField(f, raw)
		if err != nil {
			return q, err
		}
		q.Add(store.Eq(f.Name, v))
	}

	if raw := params.Get("createdAfter"); raw != "" {
		t, ok := models.ParseCalendarDate(raw)
		if !ok {
			return q, apperrors.Validation(fmt.Sprintf("createdAfter: %q is not a valid date", raw), nil)
		}
		q.Add(store.Gte(c.Opts.DateField, t))
	}
	if raw := params.Get("createdBefore"); raw != "" {
		t, ok := models.ParseCalendarDate(raw)
		if !ok {
			return q, apperrors.Validation(fmt.Sprintf("createdBefore: %q is not a valid date", raw), nil)
		}
		q.Add(store.Lte(c.Opts.DateField, t))
	}

	if c.Hooks.ModifyQuery != nil {
		if err := c.Hooks.ModifyQuery(r, &q); err != nil {
			return q, err
		}
	}
	if c.Hooks.Projection != nil {
		q.Projection = c.Hooks.Projection(r)
	}

	q.Offset = positiveOr(params.Get("offset"), 0)
	q.Limit = positiveOr(params.Get("limit"), c.Opts.DefaultLimit)
	return q, nil
}

func parseField(f Field, raw string) (interface{}, error) {
	switch f.Kind {
	case ObjectIDField:
		id, err := store.ParseID(raw)
		if err != nil {
			return nil, apperrors.Validation(fmt.Sprintf("%s: %q is not a valid id", f.Name, raw), err)
		}
		return id, nil
	case BoolField:
		switch raw {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, apperrors.Validation(fmt.Sprintf("%s must be true or false", f.Name), nil)
	}
	return raw, nil
}

// positiveOr parses a pagination parameter; anything non-numeric or below 1
// yields def.
func positiveOr(raw string, def int64) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (c *Controller[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := c.ID(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		apperrors.Write(w, r, apperrors.Validation("Invalid request body", err))
		return
	}
	if err := c.Patch(r, id, fields); err != nil {
		apperrors.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Patch strips identifier and version fields, applies FilterUpdate, validates
// the patched document and sets the remaining fields on it.
func (c *Controller[T]) Patch(r *http.Request, id primitive.ObjectID, fields map[string]interface{}) error {
	delete(fields, "_id")
	delete(fields, "id")
	delete(fields, "__v")

	if c.Hooks.FilterUpdate != nil {
		var err error
		if fields, err = c.Hooks.FilterUpdate(r, fields); err != nil {
			return err
		}
	}

	existing, err := c.Store.FindByID(r.Context(), id)
	if err != nil {
		return apperrors.Translate(err)
	}
	set, err := mergeFields(existing, fields)
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return nil
	}
	return apperrors.Translate(c.Store.UpdateByID(r.Context(), id, set))
}

// mergeFields overlays fields on doc, validates the result and returns the
// typed values of the fields that exist on T. Unknown fields are dropped.
func mergeFields[T any](doc *T, fields map[string]interface{}) (bson.M, error) {
	current, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var merged map[string]interface{}
	if err := json.Unmarshal(current, &merged); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}

	patched, err := json.Marshal(merged)
	if err != nil {
		return nil, apperrors.Validation("Malformed document", err)
	}
	var next T
	if err := json.Unmarshal(patched, &next); err != nil {
		return nil, apperrors.Validation("Malformed document", err)
	}
	if err := models.Validate(&next); err != nil {
		return nil, apperrors.Translate(err)
	}

	raw, err := bson.Marshal(&next)
	if err != nil {
		return nil, apperrors.Validation("Malformed document", err)
	}
	var typed bson.M
	if err := bson.Unmarshal(raw, &typed); err != nil {
		return nil, err
	}

	known := fieldNames(reflect.TypeOf(next))
	set := bson.M{}
	for k := range fields {
		if v, ok := typed[k]; ok {
			set[k] = v
		} else if known[k] {
			// Emptied omitempty field.
			set[k] = nil
		}
	}
	return set, nil
}

// fieldNames lists the top-level JSON names of struct type t.
func fieldNames(t reflect.Type) map[string]bool {
	names := map[string]bool{}
	if t.Kind() != reflect.Struct {
		return names
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		names[name] = true
	}
	return names
}

func (c *Controller[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := c.ID(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	n, err := c.Store.DeleteByID(r.Context(), id)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	if n == 0 {
		apperrors.Write(w, r, apperrors.Internal("Failed to delete document", nil))
		return
	}
	if c.Hooks.AfterDelete != nil {
		if err := c.Hooks.AfterDelete(r, id); err != nil {
			apperrors.Write(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// ID parses the route's id parameter.
func (c *Controller[T]) ID(r *http.Request) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, c.Opts.IDParam)
	id, err := store.ParseID(raw)
	if err != nil {
		return id, apperrors.Validation(fmt.Sprintf("%q is not a valid id", raw), err)
	}
	return id, nil
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
