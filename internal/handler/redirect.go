package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/snaplink/snaplink/internal/analytics"
	"github.com/snaplink/snaplink/internal/shortener"
)

// RedirectHandler handles redirect requests.
type RedirectHandler struct {
	svc       *shortener.Service
	publisher *analytics.Publisher
	logger    *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(svc *shortener.Service, publisher *analytics.Publisher, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{
		svc:       svc,
		publisher: publisher,
		logger:    logger,
	}
}

// Redirect handles GET /{alias} for URL redirection.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	if alias == "" {
		writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
		return
	}

	start := time.Now()

	target, err := h.svc.Resolve(r.Context(), alias)
	duration := time.Since(start)

	if err != nil {
		h.handleResolveError(w, alias, err, duration)
		return
	}

	// Publish the click event asynchronously (fire-and-forget): a failed
	// or slow publish never delays or fails the redirect.
	if h.publisher != nil {
		h.publisher.PublishAsync(analytics.ClickEvent{
			Alias:     alias,
			ClickedAt: time.Now(),
		})
	}

	h.logger.Info("redirect_success",
		"alias", alias,
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	// Set security headers
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "private, max-age=0")

	http.Redirect(w, r, target, http.StatusFound)
}

// handleResolveError handles errors during redirect resolution.
func (h *RedirectHandler) handleResolveError(w http.ResponseWriter, alias string, err error, duration time.Duration) {
	switch {
	case errors.Is(err, shortener.ErrLinkNotFound):
		h.logger.Info("redirect_not_found",
			"alias", alias,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")

	default:
		h.logger.Error("redirect_error",
			"alias", alias,
			"error", err,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
