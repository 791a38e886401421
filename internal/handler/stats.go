package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snaplink/snaplink/internal/handler/dto"
	"github.com/snaplink/snaplink/internal/shortener"
)

// StatsHandler handles per-link statistics requests.
type StatsHandler struct {
	svc    *shortener.Service
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc *shortener.Service, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		svc:    svc,
		logger: logger,
	}
}

// Stats handles GET /api/stats/{alias}.
// An unknown alias yields 404 regardless of any counter state left behind
// by an expired link.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	if alias == "" {
		writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
		return
	}

	stats, err := h.svc.Stats(r.Context(), alias)
	if err != nil {
		if errors.Is(err, shortener.ErrLinkNotFound) {
			writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
			return
		}
		h.logger.Error("stats_error", "alias", alias, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.StatsResponse{
		Alias:   stats.Alias,
		LongURL: stats.LongURL,
		Clicks:  stats.Clicks,
	})
}
