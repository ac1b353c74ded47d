package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/user/page-insight-service/internal/delivery/http/response"
	"github.com/user/page-insight-service/internal/usecase"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	pageInsight usecase.PageInsight
	cache       Pinger
	logger      *zap.Logger
}

func NewHandler(pageInsight usecase.PageInsight, cache Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		pageInsight: pageInsight,
		cache:       cache,
		logger:      logger,
	}
}

// HandleGetPage serves GET ?url=<target>.
func (h *Handler) HandleGetPage(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if strings.TrimSpace(rawURL) == "" {
		h.writeJSONError(w, http.StatusBadRequest, "Missing url parameter", "")
		return
	}

	data, err := h.pageInsight.Handle(r.Context(), rawURL)
	if err != nil {
		if errors.Is(err, usecase.ErrBadRequest) {
			h.writeJSONError(w, http.StatusBadRequest, "Invalid url parameter", "")
			return
		}
		h.logger.Error("Failed to fetch page data",
			zap.String("url", rawURL),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		h.writeJSONError(w, http.StatusInternalServerError, "Failed to fetch page data", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, data)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.cache.Ping(ctx); err != nil {
		h.logger.Error("health check failed for cache", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, response.HealthResponse{Status: "degraded", Cache: "unhealthy"})
		return
	}
	h.writeJSON(w, http.StatusOK, response.HealthResponse{Status: "ok", Cache: "healthy"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, status int, message, details string) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message, Details: details})
}
