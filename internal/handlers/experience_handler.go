package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/crud"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/middleware"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

// PhotoStore is the slice of the upload pipeline the API needs.
type PhotoStore interface {
	UploadFile(ctx context.Context, data []byte, name string) (string, error)
	DeleteFile(ctx context.Context, url string) error
}

var photoFields = map[string]string{
	"foodPhoto":   "foodPhotoUrl",
	"personPhoto": "personPhotoUrl",
}

type ExperienceHandler struct {
	*crud.Controller[models.Experience]
	photos    PhotoStore
	reactions *services.ReactionService
	comments  store.Store[models.Comment]
	maxSizeMB int64
}

func NewExperienceHandler(experiences store.Store[models.Experience], comments store.Store[models.Comment], reactions *services.ReactionService, photos PhotoStore, maxSizeMB, defaultLimit int64) *ExperienceHandler {
	h := &ExperienceHandler{
		photos:    photos,
		reactions: reactions,
		comments:  comments,
		maxSizeMB: maxSizeMB,
	}
	h.Controller = crud.New(experiences, crud.Options{
		Filterable:   []crud.Field{{Name: "userId", Kind: crud.ObjectIDField}},
		DefaultLimit: defaultLimit,
	}, crud.Hooks[models.Experience]{
		PrepareCreate: h.prepareCreate,
		ModifyQuery:   h.modifyQuery,
		Projection:    h.projection,
		FilterUpdate:  h.filterUpdate,
		AfterDelete:   h.afterDelete,
	})
	return h
}

func (h *ExperienceHandler) prepareCreate(r *http.Request, e *models.Experience) error {
	u, err := principal(r)
	if err != nil {
		return err
	}
	e.ID = primitive.NilObjectID
	e.UserID = u.ID
	e.CreatedAt = time.Now().UTC()
	// Photo URLs only come from the upload pipeline.
	e.FoodPhotoURL = ""
	e.PersonPhotoURL = ""
	e.Title = cleanText(e.Title)
	e.Description = cleanText(e.Description)
	e.Recipe = cleanText(e.Recipe)
	for i, d := range e.Descriptors {
		e.Descriptors[i] = cleanText(d)
	}
	return nil
}

// modifyQuery requires bbox=minLon,minLat,maxLon,maxLat and applies
// excludedIds.
func (h *ExperienceHandler) modifyQuery(r *http.Request, q *store.Query) error {
	params := r.URL.Query()

	box, err := parseBBox(params.Get("bbox"))
	if err != nil {
		return err
	}
	q.Add(store.WithinBox("place.location.coordinates", box))

	if raw := params.Get("excludedIds"); raw != "" {
		var ids []interface{}
		for _, part := range strings.Split(raw, ",") {
			id, err := store.ParseID(strings.TrimSpace(part))
			if err != nil {
				return apperrors.Validation(fmt.Sprintf("excludedIds: %q is not a valid id", part), err)
			}
			ids = append(ids, id)
		}
		q.Add(store.NotIn("_id", ids...))
	}
	return nil
}

func parseBBox(raw string) (store.Box, error) {
	parts := strings.Split(raw, ",")
	if raw == "" || len(parts) != 4 {
		return store.Box{}, apperrors.Validation("bbox must be minLon,minLat,maxLon,maxLat", nil)
	}
	var nums [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return store.Box{}, apperrors.Validation(fmt.Sprintf("bbox: %q is not a number", p), err)
		}
		nums[i] = n
	}
	return store.Box{MinLng: nums[0], MinLat: nums[1], MaxLng: nums[2], MaxLat: nums[3]}, nil
}

func (h *ExperienceHandler) projection(r *http.Request) string {
	if r.URL.Query().Get("locationsOnly") == "true" {
		return "place.location"
	}
	return ""
}

func (h *ExperienceHandler) filterUpdate(r *http.Request, fields map[string]interface{}) (map[string]interface{}, error) {
	fields = dropFields(fields, "userId", "createdAt")
	cleanStringFields(fields, "title", "description", "recipe")
	return fields, nil
}

// afterDelete removes what hangs off the experience. Photo removal is best
// effort.
func (h *ExperienceHandler) afterDelete(r *http.Request, id primitive.ObjectID) error {
	ctx := r.Context()
	if e := middleware.Resource[models.Experience](ctx); e != nil {
		h.deletePhotos(ctx, e.FoodPhotoURL, e.PersonPhotoURL)
	}
	if _, err := h.reactions.DeleteForExperience(ctx, id); err != nil {
		return err
	}
	_, err := h.comments.DeleteMany(ctx, store.Where(store.Eq("experienceId", id)))
	return err
}

func (h *ExperienceHandler) deletePhotos(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := h.photos.DeleteFile(ctx, url); err != nil {
			zap.L().Warn("failed to delete photo", zap.String("url", url), zap.Error(err))
		}
	}
}

// Create accepts either a JSON experience or a multipart form with the
// experience JSON in the "experience" field and optional foodPhoto and
// personPhoto files.
func (h *ExperienceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var e models.Experience
	photos, err := h.readBody(w, r, &e)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	if err := h.Insert(r, &e); err != nil {
		apperrors.Write(w, r, err)
		return
	}

	if len(photos) > 0 {
		urls, err := h.uploadPhotos(r.Context(), photos)
		if err != nil {
			// Keep the catalogue free of half-created posts.
			if _, derr := h.Store.DeleteByID(r.Context(), e.ID); derr != nil {
				zap.L().Error("failed to remove experience after upload error", zap.String("id", e.ID.Hex()), zap.Error(derr))
			}
			apperrors.Write(w, r, err)
			return
		}
		if err := h.Store.UpdateByID(r.Context(), e.ID, toSet(urls)); err != nil {
			apperrors.Write(w, r, err)
			return
		}
		e.FoodPhotoURL = urls["foodPhotoUrl"]
		e.PersonPhotoURL = urls["personPhotoUrl"]
	}

	writeJSON(w, http.StatusCreated, e)
}

// Update patches the experience. New photos replace the stored ones.
func (h *ExperienceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.ID(r)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}

	fields := map[string]interface{}{}
	photos, err := h.readBody(w, r, &fields)
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	// Photo URLs are only set through uploads.
	dropFields(fields, "foodPhotoUrl", "personPhotoUrl")

	var replaced, added []string
	if len(photos) > 0 {
		urls, err := h.uploadPhotos(r.Context(), photos)
		if err != nil {
			apperrors.Write(w, r, err)
			return
		}
		if old := middleware.Resource[models.Experience](r.Context()); old != nil {
			if _, ok := urls["foodPhotoUrl"]; ok {
				replaced = append(replaced, old.FoodPhotoURL)
			}
			if _, ok := urls["personPhotoUrl"]; ok {
				replaced = append(replaced, old.PersonPhotoURL)
			}
		}
		for k, v := range urls {
			fields[k] = v
			added = append(added, v)
		}
	}

	if err := h.Patch(r, id, fields); err != nil {
		h.deletePhotos(r.Context(), added...)
		apperrors.Write(w, r, err)
		return
	}
	h.deletePhotos(r.Context(), replaced...)
	w.WriteHeader(http.StatusOK)
}

type photoUpload struct {
	field string
	name  string
	data  []byte
}

func (h *ExperienceHandler) readBody(w http.ResponseWriter, r *http.Request, v interface{}) ([]photoUpload, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, decodeJSON(r, v)
	}

	limit := h.maxSizeMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, apperrors.Validation("File too large or invalid form data", err)
	}

	raw := r.FormValue("experience")
	if raw == "" {
		return nil, apperrors.Validation("experience: is required", nil)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return nil, apperrors.Validation("experience: invalid JSON", err)
	}

	var photos []photoUpload
	for field := range photoFields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, apperrors.Validation(fmt.Sprintf("%s: invalid file", field), err)
		}
		data, err := readAll(file)
		if err != nil {
			return nil, apperrors.Validation(fmt.Sprintf("%s: could not read the file", field), err)
		}
		if !isValidImageType(http.DetectContentType(data)) {
			return nil, apperrors.Validation(fmt.Sprintf("%s: invalid image type. Allowed: JPEG, PNG, GIF, WebP", field), nil)
		}
		photos = append(photos, photoUpload{field: field, name: header.Filename, data: data})
	}
	return photos, nil
}

func readAll(f multipart.File) ([]byte, error) {
	defer f.Close()
	return io.ReadAll(f)
}

func (h *ExperienceHandler) uploadPhotos(ctx context.Context, photos []photoUpload) (map[string]string, error) {
	urls := make(map[string]string, len(photos))
	for _, p := range photos {
		url, err := h.photos.UploadFile(ctx, p.data, p.name)
		if err != nil {
			for _, done := range urls {
				h.deletePhotos(ctx, done)
			}
			return nil, fmt.Errorf("upload %s: %w", p.field, err)
		}
		urls[photoFields[p.field]] = url
	}
	return urls, nil
}

func toSet(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func isValidImageType(contentType string) bool {
	validTypes := map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	return validTypes[contentType]
}
