package recommend

import (
	"fmt"
	"sort"
	"time"

	"github.com/kopisiew/go-makan-suggestions/internal/api/places"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

// BuildFallback assembles a response from the scope's own history when
// reasoning is out of reach: overdue wishlist entries oldest first, then the
// requester's highest-rated visited places. Returns an empty slice when the
// scope has nothing; the caller serves that honestly rather than inventing
// picks.
func BuildFallback(prof *types.TasteProfile, entries []types.SavedEntry, visits []types.Visit, maxRecommendations int) []types.Recommendation {
	if maxRecommendations <= 0 {
		maxRecommendations = 5
	}

	out := make([]types.Recommendation, 0, maxRecommendations)
	seen := make(map[string]bool)

	for _, o := range prof.OverdueWishlist {
		if len(out) == maxRecommendations {
			return out
		}
		rec := types.Recommendation{
			PlaceID:     o.PlaceID,
			Name:        o.Name,
			Reason:      fmt.Sprintf("Saved %d days ago and still untried.", o.DaysSaved),
			SourceLabel: sourceLabelWishlist,
			MapsURL:     places.DefaultMapsURL(o.PlaceID),
		}
		if o.Area != nil {
			rec.Area = *o.Area
		}
		out = append(out, rec)
		seen[o.PlaceID] = true
	}

	names := nameIndex(entries, visits)
	for _, v := range ratedVisited(prof) {
		if len(out) == maxRecommendations {
			break
		}
		if seen[v.placeID] {
			continue
		}
		name, known := names[v.placeID]
		if !known {
			continue
		}
		seen[v.placeID] = true
		out = append(out, types.Recommendation{
			PlaceID:     v.placeID,
			Name:        name.name,
			Address:     name.address,
			Area:        name.area,
			Reason:      fmt.Sprintf("You rated this %d★ last time.", v.rating),
			SourceLabel: fmt.Sprintf("%s (rated %d★)", sourceLabelVisited, v.rating),
			MapsURL:     places.DefaultMapsURL(v.placeID),
		})
	}
	return out
}

type visitedPick struct {
	placeID   string
	rating    int
	visitedAt time.Time
}

// ratedVisited orders the requester's rated places best first, recency then
// place id breaking ties.
func ratedVisited(prof *types.TasteProfile) []visitedPick {
	picks := make([]visitedPick, 0, len(prof.VisitedPlaceIDs))
	for placeID, summary := range prof.VisitedPlaceIDs {
		if summary.Rating == nil {
			continue
		}
		picks = append(picks, visitedPick{placeID: placeID, rating: *summary.Rating, visitedAt: summary.VisitedAt})
	}
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].rating != picks[j].rating {
			return picks[i].rating > picks[j].rating
		}
		if !picks[i].visitedAt.Equal(picks[j].visitedAt) {
			return picks[i].visitedAt.After(picks[j].visitedAt)
		}
		return picks[i].placeID < picks[j].placeID
	})
	return picks
}

type placeIdentity struct {
	name    string
	address string
	area    string
}

// nameIndex resolves display details per place id, preferring the saved entry
// over the visit log.
func nameIndex(entries []types.SavedEntry, visits []types.Visit) map[string]placeIdentity {
	idx := make(map[string]placeIdentity, len(entries))
	for _, v := range visits {
		if v.PlaceName == "" {
			continue
		}
		if _, ok := idx[v.PlaceID]; !ok {
			idx[v.PlaceID] = placeIdentity{name: v.PlaceName}
		}
	}
	for _, e := range entries {
		id := placeIdentity{name: e.Name, address: e.Address}
		if e.Area != nil {
			id.area = *e.Area
		}
		idx[e.PlaceID] = id
	}
	return idx
}
