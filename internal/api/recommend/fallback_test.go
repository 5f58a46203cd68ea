package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

func TestBuildFallback(t *testing.T) {
	visitedAt := time.Date(2026, 7, 10, 19, 0, 0, 0, time.UTC)

	prof := &types.TasteProfile{
		OverdueWishlist: []types.OverdueEntry{
			{PlaceID: "over-1", Name: "Keng Eng Kee", Area: strPtr("Bukit Merah"), DaysSaved: 150},
			{PlaceID: "over-2", Name: "New Ubin", DaysSaved: 95},
		},
		VisitedPlaceIDs: map[string]types.VisitSummary{
			"vis-5":       {Rating: intPtr(5), VisitedAt: visitedAt},
			"vis-4":       {Rating: intPtr(4), VisitedAt: visitedAt},
			"vis-unrated": {VisitedAt: visitedAt},
		},
		HasHistory: true,
	}
	entries := []types.SavedEntry{
		entry("vis-5", "Sin Hoi Sai", withArea("Tiong Bahru")),
		entry("over-1", "Keng Eng Kee", withArea("Bukit Merah")),
	}
	visits := []types.Visit{
		{PlaceID: "vis-4", PlaceName: "Burnt Ends", RaterID: "user-1", Rating: intPtr(4), VisitedAt: visitedAt},
		{PlaceID: "vis-unrated", PlaceName: "Some Kopitiam", RaterID: "user-1", VisitedAt: visitedAt},
	}

	t.Run("overdue first then best rated visits", func(t *testing.T) {
		recs := BuildFallback(prof, entries, visits, 5)
		require.Len(t, recs, 4)

		assert.Equal(t, "over-1", recs[0].PlaceID)
		assert.Equal(t, "from your wishlist", recs[0].SourceLabel)
		assert.Equal(t, "Saved 150 days ago and still untried.", recs[0].Reason)
		assert.Equal(t, "Bukit Merah", recs[0].Area)

		assert.Equal(t, "over-2", recs[1].PlaceID)

		assert.Equal(t, "vis-5", recs[2].PlaceID)
		assert.Equal(t, "Sin Hoi Sai", recs[2].Name)
		assert.Equal(t, "you've been here before (rated 5★)", recs[2].SourceLabel)
		assert.Equal(t, "You rated this 5★ last time.", recs[2].Reason)

		// Name resolved from the visit log when no saved entry exists.
		assert.Equal(t, "vis-4", recs[3].PlaceID)
		assert.Equal(t, "Burnt Ends", recs[3].Name)
	})

	t.Run("cap cuts the visited tail", func(t *testing.T) {
		recs := BuildFallback(prof, entries, visits, 3)
		require.Len(t, recs, 3)
		assert.Equal(t, "vis-5", recs[2].PlaceID)
	})

	t.Run("unrated visits never surface", func(t *testing.T) {
		for _, rec := range BuildFallback(prof, entries, visits, 5) {
			assert.NotEqual(t, "vis-unrated", rec.PlaceID)
		}
	})

	t.Run("overdue place also visited is not listed twice", func(t *testing.T) {
		p := &types.TasteProfile{
			OverdueWishlist: []types.OverdueEntry{
				{PlaceID: "both", Name: "Keng Eng Kee", DaysSaved: 100},
			},
			VisitedPlaceIDs: map[string]types.VisitSummary{
				"both": {Rating: intPtr(5), VisitedAt: visitedAt},
			},
			HasHistory: true,
		}
		recs := BuildFallback(p, []types.SavedEntry{entry("both", "Keng Eng Kee")}, nil, 5)
		require.Len(t, recs, 1)
		assert.Equal(t, "from your wishlist", recs[0].SourceLabel)
	})

	t.Run("rating ties break by recency then place id", func(t *testing.T) {
		older := visitedAt.Add(-72 * time.Hour)
		p := &types.TasteProfile{
			VisitedPlaceIDs: map[string]types.VisitSummary{
				"b-newer": {Rating: intPtr(4), VisitedAt: visitedAt},
				"a-older": {Rating: intPtr(4), VisitedAt: older},
				"z-tied":  {Rating: intPtr(4), VisitedAt: older},
			},
			HasHistory: true,
		}
		es := []types.SavedEntry{
			entry("b-newer", "Newer"),
			entry("a-older", "Older A"),
			entry("z-tied", "Older Z"),
		}
		recs := BuildFallback(p, es, nil, 5)
		require.Len(t, recs, 3)
		assert.Equal(t, "b-newer", recs[0].PlaceID)
		assert.Equal(t, "a-older", recs[1].PlaceID)
		assert.Equal(t, "z-tied", recs[2].PlaceID)
	})

	t.Run("empty history yields an honest empty list", func(t *testing.T) {
		recs := BuildFallback(&types.TasteProfile{}, nil, nil, 5)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	})
}
