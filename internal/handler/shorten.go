package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/snaplink/snaplink/internal/handler/dto"
	"github.com/snaplink/snaplink/internal/shortener"
)

// ShortenHandler handles URL shortening requests.
type ShortenHandler struct {
	svc    *shortener.Service
	logger *slog.Logger
}

// NewShortenHandler creates a new ShortenHandler.
func NewShortenHandler(svc *shortener.Service, logger *slog.Logger) *ShortenHandler {
	return &ShortenHandler{
		svc:    svc,
		logger: logger,
	}
}

// Shorten handles POST /api/shorten.
func (h *ShortenHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req dto.ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	shortURL, err := h.svc.Shorten(r.Context(), req.URL)
	if err != nil {
		h.handleServiceError(w, req.URL, err)
		return
	}

	h.logger.Info("link_created", "short_url", shortURL)

	writeJSON(w, http.StatusCreated, dto.ShortenResponse{ShortURL: shortURL})
}

// handleServiceError maps service errors to HTTP responses.
func (h *ShortenHandler) handleServiceError(w http.ResponseWriter, target string, err error) {
	switch {
	case errors.Is(err, shortener.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, "INVALID_URL", "URL must be a valid http or https URL")

	case errors.Is(err, shortener.ErrTargetTooLong):
		writeError(w, http.StatusBadRequest, "URL_TOO_LONG", "URL exceeds the maximum length")

	case errors.Is(err, shortener.ErrGenerationExhausted):
		h.logger.Error("alias generation exhausted", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")

	default:
		h.logger.Error("shorten_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
