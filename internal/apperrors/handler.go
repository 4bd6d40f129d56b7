package apperrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/raven-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

// Mongo server error code for a document failing collection validation.
const documentValidationFailure = 121

// Translate maps data-layer errors onto the taxonomy. Errors it does not
// recognise are returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	var schemaErr *models.ValidationError
	if errors.As(err, &schemaErr) {
		return Validation(schemaErr.Error(), err)
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return Validation(models.DescribeFieldErrors(fieldErrs), err)
	}

	switch {
	case errors.Is(err, primitive.ErrInvalidHex), errors.Is(err, store.ErrInvalidID):
		return Validation("Invalid id", err)
	case errors.Is(err, store.ErrDuplicateKey), mongo.IsDuplicateKeyError(err):
		return Validation("Document violates a uniqueness constraint", err)
	case errors.Is(err, store.ErrMalformedDocument):
		return Validation("Malformed document", err)
	case errors.Is(err, store.ErrNotFound):
		return NotFound("")
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == documentValidationFailure {
		return Validation("Malformed document", err)
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == documentValidationFailure {
				return Validation("Malformed document", err)
			}
		}
	}

	return err
}

// Write is the centralized error handler: it translates err and writes
// {"message": ...} with the resolved status code.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	err = Translate(err)
	status := StatusOf(err)
	msg := MessageOf(err)

	fields := []zap.Field{
		zap.Int("status", status),
		zap.Error(err),
	}
	if r != nil {
		fields = append(fields,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	}

	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", fields...)
		raven.CaptureError(err, map[string]string{"status": http.StatusText(status)})
		var appErr *Error
		if !errors.As(err, &appErr) {
			msg = "Internal server error"
		}
	} else {
		zap.L().Debug("request rejected", fields...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.NewErrorResponse(msg))
}
