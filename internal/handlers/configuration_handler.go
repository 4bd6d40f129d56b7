package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/services"
)

type ConfigurationHandler struct {
	configs *services.ConfigurationService
}

func NewConfigurationHandler(configs *services.ConfigurationService) *ConfigurationHandler {
	return &ConfigurationHandler{configs: configs}
}

func (h *ConfigurationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.configs.GetConfiguration(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		apperrors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Set applies a batch of key/value pairs atomically.
func (h *ConfigurationHandler) Set(w http.ResponseWriter, r *http.Request) {
	var pairs []models.ConfigurationPair
	if err := decodeJSON(r, &pairs); err != nil {
		apperrors.Write(w, r, err)
		return
	}
	if len(pairs) == 0 {
		apperrors.Write(w, r, apperrors.Validation("At least one configuration is required", nil))
		return
	}
	if err := h.configs.SetConfigurations(r.Context(), pairs); err != nil {
		apperrors.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
