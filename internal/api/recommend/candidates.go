package recommend

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kopisiew/go-makan-suggestions/app/observability/metrics"
	"github.com/kopisiew/go-makan-suggestions/internal/api/places"
	"github.com/kopisiew/go-makan-suggestions/internal/api/profile"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

// GeneratorConfig holds the candidate layer knobs.
type GeneratorConfig struct {
	// ExternalResultCap is how many external results survive after dedup.
	ExternalResultCap int
	// AreaRadiusMeters is the walking-distance bias around a named area.
	AreaRadiusMeters float64
	// CityRadiusMeters is the island-wide default bias.
	CityRadiusMeters float64
}

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	if c.ExternalResultCap <= 0 {
		c.ExternalResultCap = 5
	}
	if c.AreaRadiusMeters <= 0 {
		c.AreaRadiusMeters = 800
	}
	if c.CityRadiusMeters <= 0 {
		c.CityRadiusMeters = places.CityRadiusMeters
	}
	return c
}

// CandidateSet is the outcome of both candidate layers. ExternalFailed marks
// a search error as opposed to an honest empty result; either way the engine
// continues with the personal layer alone.
type CandidateSet struct {
	Personal       []types.Candidate
	External       []types.Candidate
	ExternalFailed bool
}

func (s CandidateSet) Empty() bool {
	return len(s.Personal) == 0 && len(s.External) == 0
}

// Generator assembles the personal and external candidate layers for a query.
type Generator struct {
	search  places.Service
	cfg     GeneratorConfig
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewGenerator(search places.Service, cfg GeneratorConfig, appMetrics *metrics.AppMetrics, logger *slog.Logger) *Generator {
	return &Generator{
		search:  search,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		metrics: appMetrics,
	}
}

// Generate filters the scope's entries against the intent and searches the
// external index, then joins the two layers on place id. A failed or empty
// search never fails the request.
func (g *Generator) Generate(ctx context.Context, query string, it types.Intent, entries []types.SavedEntry, visits []types.Visit) CandidateSet {
	ctx, span := otel.Tracer("CandidateGenerator").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("intent.area", it.Area),
		attribute.String("intent.cuisine", it.Cuisine),
	))
	defer span.End()

	var personal, external []types.Candidate
	var searchErr error

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		personal = g.personalLayer(it, entries, visits)
		return nil
	})
	eg.Go(func() error {
		external, searchErr = g.externalLayer(egCtx, query, it)
		return nil
	})
	_ = eg.Wait()

	set := CandidateSet{Personal: personal}
	if searchErr != nil {
		set.ExternalFailed = true
		g.logger.WarnContext(ctx, "External search failed, continuing with personal layer",
			slog.String("query", query), slog.Any("error", searchErr))
		if g.metrics != nil {
			g.metrics.SearchFailuresTotal.Add(ctx, 1)
		}
	}

	g.joinLayers(&set, external, entries)

	span.SetAttributes(
		attribute.Int("candidates.personal", len(set.Personal)),
		attribute.Int("candidates.external", len(set.External)),
		attribute.Bool("candidates.external_failed", set.ExternalFailed),
	)
	return set
}

// personalLayer filters saved and visited entries by the intent. Without an
// area signal no area filter applies; same for cuisine and occasion.
func (g *Generator) personalLayer(it types.Intent, entries []types.SavedEntry, visits []types.Visit) []types.Candidate {
	var occasionPlaces map[string]bool
	if it.Occasion != "" {
		occasionPlaces = make(map[string]bool)
		for _, v := range visits {
			if v.Occasion != nil && strings.EqualFold(*v.Occasion, it.Occasion) {
				occasionPlaces[v.PlaceID] = true
			}
		}
	}

	var out []types.Candidate
	for _, e := range entries {
		if it.Area != "" && (e.Area == nil || !strings.EqualFold(*e.Area, it.Area)) {
			continue
		}
		if it.Cuisine != "" && !cuisineMatches(e, it.Cuisine) {
			continue
		}
		if occasionPlaces != nil && !occasionPlaces[e.PlaceID] {
			continue
		}
		out = append(out, candidateFromEntry(e))
	}
	return out
}

// externalLayer searches the places index with the intent-composed query,
// biased to the named area's centroid when one is known.
func (g *Generator) externalLayer(ctx context.Context, query string, it types.Intent) ([]types.Candidate, error) {
	centerLat, centerLng := places.CityCenterLat, places.CityCenterLng
	radius := g.cfg.CityRadiusMeters
	areaKnown := false
	if it.Area != "" {
		if lat, lng, ok := places.AreaCentroid(it.Area); ok {
			centerLat, centerLng, radius = lat, lng, g.cfg.AreaRadiusMeters
			areaKnown = true
		}
	}

	// Fetch beyond the surviving cap so dedup and the radius filter have slack.
	results, err := g.search.SearchText(ctx, places.SearchRequest{
		Query:        composeSearchQuery(query, it),
		CenterLat:    centerLat,
		CenterLng:    centerLng,
		RadiusMeters: radius,
		MaxResults:   g.cfg.ExternalResultCap * 2,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(results))
	for _, p := range results {
		c := candidateFromPlace(p)
		if areaKnown && p.Latitude != nil && p.Longitude != nil {
			d := distanceMeters(centerLat, centerLng, *p.Latitude, *p.Longitude)
			// locationBias is a preference, not a fence. Enforce walking
			// distance around the named area ourselves.
			if d > g.cfg.AreaRadiusMeters {
				continue
			}
			c.DistanceMeters = &d
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// joinLayers reclassifies external hits that the scope already saved, dedupes
// by place id, then sorts and caps the surviving external layer.
func (g *Generator) joinLayers(set *CandidateSet, external []types.Candidate, entries []types.SavedEntry) {
	entryByPlace := make(map[string]types.SavedEntry, len(entries))
	for _, e := range entries {
		entryByPlace[e.PlaceID] = e
	}
	personalSeen := make(map[string]bool, len(set.Personal))
	for _, c := range set.Personal {
		personalSeen[c.PlaceID] = true
	}

	var survivors []types.Candidate
	for _, c := range external {
		if entry, saved := entryByPlace[c.PlaceID]; saved {
			if personalSeen[c.PlaceID] {
				continue
			}
			c.Source = types.CandidateSourceWishlist
			if c.Area == "" && entry.Area != nil {
				c.Area = *entry.Area
			}
			set.Personal = append(set.Personal, c)
			personalSeen[c.PlaceID] = true
			continue
		}
		survivors = append(survivors, c)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		ri, rj := survivors[i].Rating, survivors[j].Rating
		switch {
		case ri != nil && rj != nil && *ri != *rj:
			return *ri > *rj
		case ri != nil && rj == nil:
			return true
		case ri == nil && rj != nil:
			return false
		}
		return survivors[i].Name < survivors[j].Name
	})
	if len(survivors) > g.cfg.ExternalResultCap {
		survivors = survivors[:g.cfg.ExternalResultCap]
	}
	set.External = survivors
}

func candidateFromEntry(e types.SavedEntry) types.Candidate {
	c := types.Candidate{
		PlaceID: e.PlaceID,
		Name:    e.Name,
		Address: e.Address,
		Source:  types.CandidateSourceWishlist,
		MapsURL: places.DefaultMapsURL(e.PlaceID),
	}
	if e.Area != nil {
		c.Area = *e.Area
	}
	return c
}

func candidateFromPlace(p types.Place) types.Candidate {
	return types.Candidate{
		PlaceID: p.PlaceID,
		Name:    p.Name,
		Address: p.Address,
		Area:    p.Area,
		Source:  types.CandidateSourceExternal,
		Rating:  p.Rating,
		MapsURL: p.MapsURL,
	}
}

// cuisineMatches checks an entry against the cuisine intent through the rule
// table, with a raw substring fallback for labels the table has no alias for.
func cuisineMatches(e types.SavedEntry, want string) bool {
	if profile.ClassifyCuisine(e.CuisineLabel, e.Name) == want {
		return true
	}
	if e.CuisineLabel != nil && strings.Contains(strings.ToLower(*e.CuisineLabel), want) {
		return true
	}
	return strings.Contains(strings.ToLower(e.Name), want)
}

// composeSearchQuery prefers the structured intent over the raw query text.
func composeSearchQuery(query string, it types.Intent) string {
	if it.Cuisine == "" && it.Area == "" {
		return query
	}
	parts := make([]string, 0, 3)
	if it.Cuisine != "" {
		parts = append(parts, it.Cuisine)
	}
	if it.Area != "" {
		parts = append(parts, it.Area)
	}
	parts = append(parts, "Singapore")
	return strings.Join(parts, " ")
}

// distanceMeters is the great-circle distance between two coordinates.
func distanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusMeters = 6371000

	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
