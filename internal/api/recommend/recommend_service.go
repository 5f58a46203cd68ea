package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kopisiew/go-makan-suggestions/app/observability/metrics"
	"github.com/kopisiew/go-makan-suggestions/internal/api/history"
	"github.com/kopisiew/go-makan-suggestions/internal/api/intent"
	"github.com/kopisiew/go-makan-suggestions/internal/api/profile"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

// ServiceConfig holds the orchestration knobs.
type ServiceConfig struct {
	MaxRecommendations int
	PromptCandidateCap int
	// Location fixes "current time" lines and day boundaries.
	Location *time.Location
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.MaxRecommendations <= 0 {
		c.MaxRecommendations = 5
	}
	if c.PromptCandidateCap <= 0 {
		c.PromptCandidateCap = 12
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

type Service interface {
	// GetRecommendations answers a free-text query for a scope. Degradation is
	// absorbed: short of an invalid request, callers always get a well-formed
	// response, possibly flagged Degraded.
	GetRecommendations(ctx context.Context, req types.RecommendRequest) (*types.RecommendationResponse, error)

	// SuggestedPrompts derives 2-3 tappable query strings from the scope's
	// history without any model or search call.
	SuggestedPrompts(ctx context.Context, scopeID, requesterID string) ([]string, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger    *slog.Logger
	history   history.Repository
	profiles  profile.Service
	builder   *profile.Builder
	extractor *intent.Extractor
	generator *Generator
	gateway   *Gateway
	cache     *ResponseCache
	costs     *CostGuard
	cfg       ServiceConfig
	now       func() time.Time
	metrics   *metrics.AppMetrics
}

func NewServiceImpl(
	historyRepo history.Repository,
	profiles profile.Service,
	builder *profile.Builder,
	extractor *intent.Extractor,
	generator *Generator,
	gateway *Gateway,
	responseCache *ResponseCache,
	costs *CostGuard,
	cfg ServiceConfig,
	appMetrics *metrics.AppMetrics,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		history:   historyRepo,
		profiles:  profiles,
		builder:   builder,
		extractor: extractor,
		generator: generator,
		gateway:   gateway,
		cache:     responseCache,
		costs:     costs,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		metrics:   appMetrics,
	}
}

func (s *ServiceImpl) localNow() time.Time {
	return s.now().In(s.cfg.Location)
}

func (s *ServiceImpl) GetRecommendations(ctx context.Context, req types.RecommendRequest) (*types.RecommendationResponse, error) {
	ctx, span := otel.Tracer("RecommendationService").Start(ctx, "GetRecommendations", trace.WithAttributes(
		attribute.String("scope_id", req.ScopeID),
		attribute.Bool("is_group", req.IsGroup),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetRecommendations"), slog.String("scope_id", req.ScopeID))

	if err := validateRequest(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecommendationRequestsTotal.Add(ctx, 1)
	}
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecommendationDurationSeconds.Record(ctx, time.Since(start).Seconds())
		}
	}()

	key := CacheKey(req.ScopeID, req.Query)
	if resp, ok := s.cache.Get(ctx, key); ok {
		l.DebugContext(ctx, "Served from response cache")
		span.AddEvent("Cache hit")
		span.SetStatus(codes.Ok, "Served from cache")
		return resp, nil
	}

	// The shared computation outlives any single caller: a follower must not
	// lose its answer because the first requester hung up.
	computeCtx := context.WithoutCancel(ctx)
	resp, shared, err := s.cache.Compute(key, func() (*types.RecommendationResponse, error) {
		return s.computeRecommendations(computeCtx, key, req)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Recommendation pipeline failed")
		return nil, err
	}
	if shared {
		span.AddEvent("Converged on in-flight computation")
	}
	span.SetAttributes(attribute.String("response.mode", string(resp.Mode)))
	span.SetStatus(codes.Ok, "Recommendations served")
	return resp, nil
}

func (s *ServiceImpl) computeRecommendations(ctx context.Context, key string, req types.RecommendRequest) (*types.RecommendationResponse, error) {
	l := s.logger.With(slog.String("method", "GetRecommendations"), slog.String("scope_id", req.ScopeID))

	var (
		entries     []types.SavedEntry
		visits      []types.Visit
		queryIntent types.Intent
		entriesErr  error
		visitsErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, entriesErr = s.history.ListSavedEntries(gctx, req.ScopeID)
		return nil
	})
	g.Go(func() error {
		visits, visitsErr = s.history.ListVisits(gctx, req.ScopeID)
		return nil
	})
	g.Go(func() error {
		queryIntent = s.extractor.Extract(gctx, req.Query)
		return nil
	})
	_ = g.Wait()

	if entriesErr != nil || visitsErr != nil {
		l.WarnContext(ctx, "History unavailable, degrading to external-only",
			slog.Any("error", fmt.Errorf("%w: %w", types.ErrHistoryUnavailable, errors.Join(entriesErr, visitsErr))))
		entries, visits = nil, nil
	}

	now := s.localNow()
	prof := s.builder.Build(entries, visits, req.RequesterID, now)

	set := s.generator.Generate(ctx, req.Query, queryIntent, entries, visits)
	labeled := LabelCandidates(set, prof, queryIntent.WantsNewOnly)

	if len(labeled) == 0 {
		l.InfoContext(ctx, "No candidates survived, serving fallback", slog.Any("error", types.ErrNoCandidates))
		return s.fallbackResponse(ctx, prof, entries, visits, "", "no_candidates"), nil
	}

	mode := types.ModeFull
	if len(set.External) == 0 {
		mode = types.ModePersonalOnly
	}

	advisory := s.costs.RecordCall(ctx, req.RequesterID)

	pc := PromptContext{
		Query:              req.Query,
		IsGroup:            req.IsGroup,
		Now:                now,
		IntentArea:         queryIntent.Area,
		Profile:            prof,
		Candidates:         CapCandidates(labeled, s.cfg.PromptCandidateCap),
		MaxRecommendations: s.cfg.MaxRecommendations,
	}

	raw, err := s.gateway.Complete(ctx, BuildPrompt(pc))
	if err != nil {
		l.WarnContext(ctx, "Reasoning failed, serving fallback", slog.Any("error", err))
		return s.fallbackResponse(ctx, prof, entries, visits, advisory, degradeReason(err)), nil
	}

	recs, err := ParseResponse(raw, pc.Candidates, s.cfg.MaxRecommendations)
	if err != nil {
		l.WarnContext(ctx, "Model reply unusable, serving fallback", slog.Any("error", err))
		return s.fallbackResponse(ctx, prof, entries, visits, advisory, "unusable_reply"), nil
	}

	resp := &types.RecommendationResponse{
		Recommendations: recs,
		Mode:            mode,
		HasHistory:      prof.HasHistory,
		Advisory:        advisory,
	}
	s.cache.Set(key, resp)
	return resp, nil
}

func (s *ServiceImpl) fallbackResponse(ctx context.Context, prof *types.TasteProfile, entries []types.SavedEntry, visits []types.Visit, advisory, reason string) *types.RecommendationResponse {
	if s.metrics != nil {
		s.metrics.DegradedResponsesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
	return &types.RecommendationResponse{
		Recommendations: BuildFallback(prof, entries, visits, s.cfg.MaxRecommendations),
		Mode:            types.ModeFallback,
		Degraded:        true,
		HasHistory:      prof.HasHistory,
		Advisory:        advisory,
	}
}

func degradeReason(err error) string {
	switch {
	case errors.Is(err, types.ErrReasoningTimeout):
		return "reasoning_timeout"
	case errors.Is(err, types.ErrReasoningUnavailable):
		return "reasoning_unavailable"
	default:
		return "reasoning_failed"
	}
}

func validateRequest(req types.RecommendRequest) error {
	switch {
	case strings.TrimSpace(req.Query) == "":
		return fmt.Errorf("%w: query is required", types.ErrValidation)
	case req.ScopeID == "":
		return fmt.Errorf("%w: scope_id is required", types.ErrValidation)
	case req.RequesterID == "":
		return fmt.Errorf("%w: requester_id is required", types.ErrValidation)
	}
	return nil
}

func (s *ServiceImpl) SuggestedPrompts(ctx context.Context, scopeID, requesterID string) ([]string, error) {
	ctx, span := otel.Tracer("RecommendationService").Start(ctx, "SuggestedPrompts", trace.WithAttributes(
		attribute.String("scope_id", scopeID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SuggestedPrompts"), slog.String("scope_id", scopeID))

	if scopeID == "" || requesterID == "" {
		err := fmt.Errorf("%w: scope_id and requester_id are required", types.ErrValidation)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request")
		return nil, err
	}

	prof, err := s.profiles.BuildProfile(ctx, scopeID, requesterID)
	if err != nil {
		l.WarnContext(ctx, "Profile unavailable, serving fixed prompts", slog.Any("error", err))
		span.SetStatus(codes.Ok, "Served fixed prompts")
		return fixedPrompts(), nil
	}

	span.SetStatus(codes.Ok, "Prompts derived")
	return derivePrompts(prof), nil
}

// fixedPrompts is the new-user set, also served when history is unreachable.
func fixedPrompts() []string {
	return []string{
		"Something new for dinner tonight",
		"Hawker food worth a queue",
		"A chill cafe for the weekend",
	}
}

var occasionPrompts = map[string]string{
	types.OccasionCasual:      "Somewhere casual and easy tonight",
	types.OccasionSpecial:     "Somewhere special worth dressing up for",
	types.OccasionWork:        "A solid spot for a work meal",
	types.OccasionSpontaneous: "Surprise us with something fun",
}

// derivePrompts walks the signal precedence (overdue, then cuisine+area, then
// occasion) and pads from the fixed set up to three prompts.
func derivePrompts(prof *types.TasteProfile) []string {
	var prompts []string

	if len(prof.OverdueWishlist) > 0 {
		o := prof.OverdueWishlist[0]
		if o.Area != nil && *o.Area != "" {
			prompts = append(prompts, fmt.Sprintf("How about %s in %s? It's been on the list a while", o.Name, *o.Area))
		} else {
			prompts = append(prompts, fmt.Sprintf("How about %s? It's been on the list a while", o.Name))
		}
	}
	if len(prof.CuisineRatings) > 0 && len(prof.TopAreas) > 0 {
		prompts = append(prompts, fmt.Sprintf("Good %s around %s", prof.CuisineRatings[0].Cuisine, prof.TopAreas[0].Area))
	}
	if len(prof.Occasions) > 0 {
		if p, ok := occasionPrompts[prof.Occasions[0].Occasion]; ok {
			prompts = append(prompts, p)
		}
	}

	for _, p := range fixedPrompts() {
		if len(prompts) >= 3 {
			break
		}
		prompts = append(prompts, p)
	}
	return prompts[:3]
}
