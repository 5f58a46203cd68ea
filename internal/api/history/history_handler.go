package history

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	appMiddleware "github.com/kopisiew/go-makan-suggestions/app/middleware"
	"github.com/kopisiew/go-makan-suggestions/internal/api"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetScopeStats(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	repo   Repository
	logger *slog.Logger
}

func NewHandler(repo Repository, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		repo:   repo,
		logger: logger,
	}
}

// GetScopeStats returns saved/visited counters for a scope
// @Summary Get scope history stats
// @Description Returns counts of saved entries, visited entries and logged visits for one scope
// @Tags history
// @Produce json
// @Param scope_id query string true "Scope to count for"
// @Success 200 {object} types.ScopeStats
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/history/stats [get]
func (h *HandlerImpl) GetScopeStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HistoryHandler").Start(r.Context(), "GetScopeStats")
	defer span.End()

	l := h.logger.With(slog.String("method", "GetScopeStats"))

	if _, ok := appMiddleware.GetUserIDFromContext(ctx); !ok {
		l.ErrorContext(ctx, "User ID not found in context")
		span.SetStatus(codes.Error, "User not authenticated")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scopeID := r.URL.Query().Get("scope_id")
	if scopeID == "" {
		span.SetStatus(codes.Error, "Missing scope_id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "scope_id query parameter is required")
		return
	}
	if !appMiddleware.ScopeAllowed(ctx, scopeID) {
		l.WarnContext(ctx, "Scope not accessible from this session", slog.String("scope_id", scopeID))
		span.SetStatus(codes.Error, "Scope forbidden")
		api.ErrorResponse(w, r, http.StatusForbidden, "Scope not accessible from this session")
		return
	}

	span.SetAttributes(attribute.String("scope_id", scopeID))

	stats, err := h.repo.ScopeStats(ctx, scopeID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get scope stats", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get scope stats")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	span.SetStatus(codes.Ok, "Scope stats retrieved")
	api.WriteJSONResponse(w, r, http.StatusOK, stats)
}
