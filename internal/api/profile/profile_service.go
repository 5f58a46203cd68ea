package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kopisiew/go-makan-suggestions/internal/api/history"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

const (
	topAreasCap  = 5
	occasionsCap = 3
)

var _ Service = (*ServiceImpl)(nil)

// Service derives a scope's taste profile on demand. Profiles are ephemeral:
// rebuilt per request, never persisted, never mutating the history rows.
type Service interface {
	// BuildProfile reads the scope's history and derives the profile. The
	// returned error wraps ErrHistoryUnavailable; callers degrade to an empty
	// profile instead of failing the request.
	BuildProfile(ctx context.Context, scopeID, requesterID string) (*types.TasteProfile, error)
}

type ServiceImpl struct {
	logger  *slog.Logger
	history history.Repository
	builder *Builder
	now     func() time.Time
}

func NewService(historyRepo history.Repository, builder *Builder, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:  logger,
		history: historyRepo,
		builder: builder,
		now:     time.Now,
	}
}

func (s *ServiceImpl) BuildProfile(ctx context.Context, scopeID, requesterID string) (*types.TasteProfile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "BuildProfile", trace.WithAttributes(
		attribute.String("scope_id", scopeID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "BuildProfile"), slog.String("scope_id", scopeID))

	var entries []types.SavedEntry
	var visits []types.Visit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.history.ListSavedEntries(gctx, scopeID)
		return err
	})
	g.Go(func() error {
		var err error
		visits, err = s.history.ListVisits(gctx, scopeID)
		return err
	})
	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Failed to read scope history", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "History read failed")
		return nil, fmt.Errorf("%w: %w", types.ErrHistoryUnavailable, err)
	}

	p := s.builder.Build(entries, visits, requesterID, s.now())

	l.DebugContext(ctx, "Taste profile built",
		slog.Int("cuisine_buckets", len(p.CuisineRatings)),
		slog.Int("top_areas", len(p.TopAreas)),
		slog.Int("overdue", len(p.OverdueWishlist)),
		slog.Bool("has_history", p.HasHistory),
	)
	span.SetAttributes(attribute.Int("profile.cuisine_buckets", len(p.CuisineRatings)))
	span.SetStatus(codes.Ok, "Profile built")
	return p, nil
}

// Builder turns raw history rows into a TasteProfile. Pure derivation with an
// explicit clock, so identical inputs always yield an identical profile.
type Builder struct {
	overdueAfter time.Duration
	overdueCap   int
}

func NewBuilder(overdueAfter time.Duration, overdueCap int) *Builder {
	if overdueAfter <= 0 {
		overdueAfter = 90 * 24 * time.Hour
	}
	if overdueCap <= 0 {
		overdueCap = 3
	}
	return &Builder{overdueAfter: overdueAfter, overdueCap: overdueCap}
}

func (b *Builder) Build(entries []types.SavedEntry, visits []types.Visit, requesterID string, now time.Time) *types.TasteProfile {
	p := &types.TasteProfile{
		VisitedPlaceIDs: make(map[string]types.VisitSummary),
		HasHistory:      len(entries) > 0 || len(visits) > 0,
	}
	if !p.HasHistory {
		return p
	}

	entryByPlace := make(map[string]types.SavedEntry, len(entries))
	for _, e := range entries {
		entryByPlace[e.PlaceID] = e
	}

	// Visited places with the requester's own rating. Another rater's score
	// never stands in for the requester's.
	ownRatedAt := make(map[string]time.Time)
	for _, v := range visits {
		summary, seen := p.VisitedPlaceIDs[v.PlaceID]
		if !seen || v.VisitedAt.After(summary.VisitedAt) {
			summary.VisitedAt = v.VisitedAt
		}
		if v.RaterID == requesterID && v.Rating != nil {
			if last, ok := ownRatedAt[v.PlaceID]; !ok || v.VisitedAt.After(last) {
				summary.Rating = v.Rating
				ownRatedAt[v.PlaceID] = v.VisitedAt
			}
		}
		p.VisitedPlaceIDs[v.PlaceID] = summary
	}

	p.CuisineRatings = b.cuisineRatings(visits, entryByPlace)
	p.TopAreas = b.topAreas(visits, entryByPlace)
	p.Occasions = b.occasions(visits)
	p.OverdueWishlist = b.overdueWishlist(entries, p.VisitedPlaceIDs, now)
	return p
}

// cuisineRatings averages ratings per cuisine bucket. Unrated visits and
// places that classify to no bucket are left out of the aggregation.
func (b *Builder) cuisineRatings(visits []types.Visit, entryByPlace map[string]types.SavedEntry) []types.CuisineRating {
	type agg struct {
		sum   int
		count int
	}
	buckets := make(map[string]*agg)
	for _, v := range visits {
		if v.Rating == nil {
			continue
		}
		var label *string
		name := v.PlaceName
		if e, ok := entryByPlace[v.PlaceID]; ok {
			label = e.CuisineLabel
			if e.Name != "" {
				name = e.Name
			}
		}
		cuisine := ClassifyCuisine(label, name)
		if cuisine == "" {
			continue
		}
		a := buckets[cuisine]
		if a == nil {
			a = &agg{}
			buckets[cuisine] = a
		}
		a.sum += *v.Rating
		a.count++
	}

	ratings := make([]types.CuisineRating, 0, len(buckets))
	for cuisine, a := range buckets {
		ratings = append(ratings, types.CuisineRating{
			Cuisine:     cuisine,
			AvgRating:   float64(a.sum) / float64(a.count),
			SampleCount: a.count,
		})
	}
	sort.Slice(ratings, func(i, j int) bool {
		if ratings[i].AvgRating != ratings[j].AvgRating {
			return ratings[i].AvgRating > ratings[j].AvgRating
		}
		if ratings[i].SampleCount != ratings[j].SampleCount {
			return ratings[i].SampleCount > ratings[j].SampleCount
		}
		return ratings[i].Cuisine < ratings[j].Cuisine
	})
	return ratings
}

// topAreas counts visits per area, resolving each visit's area through its
// saved entry. Ties on count go to the area visited most recently.
func (b *Builder) topAreas(visits []types.Visit, entryByPlace map[string]types.SavedEntry) []types.AreaStat {
	type agg struct {
		count int
		last  time.Time
	}
	areas := make(map[string]*agg)
	for _, v := range visits {
		e, ok := entryByPlace[v.PlaceID]
		if !ok || e.Area == nil || *e.Area == "" {
			continue
		}
		a := areas[*e.Area]
		if a == nil {
			a = &agg{}
			areas[*e.Area] = a
		}
		a.count++
		if v.VisitedAt.After(a.last) {
			a.last = v.VisitedAt
		}
	}

	stats := make([]types.AreaStat, 0, len(areas))
	for area, a := range areas {
		stats = append(stats, types.AreaStat{Area: area, VisitCount: a.count, LastVisit: a.last})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].VisitCount != stats[j].VisitCount {
			return stats[i].VisitCount > stats[j].VisitCount
		}
		if !stats[i].LastVisit.Equal(stats[j].LastVisit) {
			return stats[i].LastVisit.After(stats[j].LastVisit)
		}
		return stats[i].Area < stats[j].Area
	})
	if len(stats) > topAreasCap {
		stats = stats[:topAreasCap]
	}
	return stats
}

func (b *Builder) occasions(visits []types.Visit) []types.OccasionStat {
	counts := make(map[string]int)
	for _, v := range visits {
		if v.Occasion == nil || *v.Occasion == "" {
			continue
		}
		counts[*v.Occasion]++
	}

	stats := make([]types.OccasionStat, 0, len(counts))
	for occasion, count := range counts {
		stats = append(stats, types.OccasionStat{Occasion: occasion, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Occasion < stats[j].Occasion
	})
	if len(stats) > occasionsCap {
		stats = stats[:occasionsCap]
	}
	return stats
}

// overdueWishlist surfaces saved entries that have sat unvisited past the
// threshold, oldest first.
func (b *Builder) overdueWishlist(entries []types.SavedEntry, visited map[string]types.VisitSummary, now time.Time) []types.OverdueEntry {
	var overdue []types.OverdueEntry
	for _, e := range entries {
		if e.Status != types.EntryStatusSaved {
			continue
		}
		if _, wasVisited := visited[e.PlaceID]; wasVisited {
			continue
		}
		age := now.Sub(e.DateAdded)
		if age <= b.overdueAfter {
			continue
		}
		overdue = append(overdue, types.OverdueEntry{
			PlaceID:      e.PlaceID,
			Name:         e.Name,
			Area:         e.Area,
			CuisineLabel: e.CuisineLabel,
			DateAdded:    e.DateAdded,
			DaysSaved:    int(age.Hours() / 24),
		})
	}
	sort.Slice(overdue, func(i, j int) bool {
		if !overdue[i].DateAdded.Equal(overdue[j].DateAdded) {
			return overdue[i].DateAdded.Before(overdue[j].DateAdded)
		}
		return overdue[i].Name < overdue[j].Name
	})
	if len(overdue) > b.overdueCap {
		overdue = overdue[:b.overdueCap]
	}
	return overdue
}
