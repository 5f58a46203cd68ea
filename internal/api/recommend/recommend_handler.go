package recommend

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	appMiddleware "github.com/kopisiew/go-makan-suggestions/app/middleware"
	"github.com/kopisiew/go-makan-suggestions/internal/api"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetRecommendations(w http.ResponseWriter, r *http.Request)
	SuggestedPrompts(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

// GetRecommendations answers a free-text dining query for a scope
// @Summary Get recommendations for a query
// @Description Runs the recommendation pipeline for a scope's free-text query. Degraded pipelines still return 200 with mode/degraded set.
// @Tags recommendations
// @Accept json
// @Produce json
// @Param request body types.RecommendRequest true "Query and scope"
// @Success 200 {object} types.RecommendationResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/recommendations [post]
func (h *HandlerImpl) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "GetRecommendations")
	defer span.End()

	l := h.logger.With(slog.String("method", "GetRecommendations"))

	sessionUserID, ok := appMiddleware.GetUserIDFromContext(ctx)
	if !ok {
		l.ErrorContext(ctx, "User ID not found in context")
		span.SetStatus(codes.Error, "User not authenticated")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.RecommendRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// The requester is always the session user. A body that claims someone
	// else is rejected rather than silently corrected.
	if req.RequesterID != "" && req.RequesterID != sessionUserID {
		l.WarnContext(ctx, "Requester does not match session user",
			slog.String("requester_id", req.RequesterID))
		span.SetStatus(codes.Error, "Requester mismatch")
		api.ErrorResponse(w, r, http.StatusForbidden, "Requester does not match the session")
		return
	}
	req.RequesterID = sessionUserID

	if !appMiddleware.ScopeAllowed(ctx, req.ScopeID) {
		l.WarnContext(ctx, "Scope not accessible from this session", slog.String("scope_id", req.ScopeID))
		span.SetStatus(codes.Error, "Scope forbidden")
		api.ErrorResponse(w, r, http.StatusForbidden, "Scope not accessible from this session")
		return
	}

	span.SetAttributes(
		attribute.String("scope_id", req.ScopeID),
		attribute.Bool("is_group", req.IsGroup),
	)

	resp, err := h.service.GetRecommendations(ctx, req)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, types.ErrValidation) {
			span.SetStatus(codes.Error, "Invalid request")
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to get recommendations", slog.Any("error", err))
		span.SetStatus(codes.Error, "Failed to get recommendations")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	l.InfoContext(ctx, "Recommendations served",
		slog.String("scope_id", req.ScopeID),
		slog.String("mode", string(resp.Mode)),
		slog.Int("count", len(resp.Recommendations)))
	span.SetAttributes(
		attribute.String("response.mode", string(resp.Mode)),
		attribute.Int("response.count", len(resp.Recommendations)),
	)
	span.SetStatus(codes.Ok, "Recommendations served")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// SuggestedPrompts returns tappable query suggestions for a scope
// @Summary Get suggested prompts
// @Description Derives 2-3 ready-made queries from the scope's history. No model or search calls are involved.
// @Tags recommendations
// @Produce json
// @Param scope_id query string true "Scope to derive prompts for"
// @Success 200 {object} types.PromptSuggestions
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/prompts [get]
func (h *HandlerImpl) SuggestedPrompts(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "SuggestedPrompts")
	defer span.End()

	l := h.logger.With(slog.String("method", "SuggestedPrompts"))

	sessionUserID, ok := appMiddleware.GetUserIDFromContext(ctx)
	if !ok {
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

	prompts, err := h.service.SuggestedPrompts(ctx, scopeID, sessionUserID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, types.ErrValidation) {
			span.SetStatus(codes.Error, "Invalid request")
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to derive prompts", slog.Any("error", err))
		span.SetStatus(codes.Error, "Failed to derive prompts")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	span.SetAttributes(attribute.Int("response.count", len(prompts)))
	span.SetStatus(codes.Ok, "Prompts served")
	api.WriteJSONResponse(w, r, http.StatusOK, types.PromptSuggestions{Prompts: prompts})
}
