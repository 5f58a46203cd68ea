package types

import "time"

// CuisineRating is the scope's mean rating for one cuisine bucket. Unrated
// visits are excluded from the mean.
type CuisineRating struct {
	Cuisine     string  `json:"cuisine"`
	AvgRating   float64 `json:"avg_rating"`
	SampleCount int     `json:"sample_count"`
}

// AreaStat counts visits per area; LastVisit breaks count ties.
type AreaStat struct {
	Area       string    `json:"area"`
	VisitCount int       `json:"visit_count"`
	LastVisit  time.Time `json:"last_visit"`
}

type OccasionStat struct {
	Occasion string `json:"occasion"`
	Count    int    `json:"count"`
}

// OverdueEntry is a saved place sitting unvisited past the overdue threshold.
type OverdueEntry struct {
	PlaceID      string    `json:"place_id"`
	Name         string    `json:"name"`
	Area         *string   `json:"area,omitempty"`
	CuisineLabel *string   `json:"cuisine_label,omitempty"`
	DateAdded    time.Time `json:"date_added"`
	DaysSaved    int       `json:"days_saved"`
}

// VisitSummary is the requester's own take on a place they have been to.
// Rating is nil when the requester never rated it, even if scope-mates did.
type VisitSummary struct {
	Rating    *int      `json:"rating,omitempty"`
	VisitedAt time.Time `json:"visited_at"`
}

// TasteProfile is derived fresh on every request and never persisted. All
// slices carry deterministic ordering so downstream prompt assembly is
// byte-stable for identical history.
type TasteProfile struct {
	CuisineRatings  []CuisineRating         `json:"cuisine_ratings"`
	TopAreas        []AreaStat              `json:"top_areas"`
	Occasions       []OccasionStat          `json:"occasions"`
	OverdueWishlist []OverdueEntry          `json:"overdue_wishlist"`
	VisitedPlaceIDs map[string]VisitSummary `json:"-"`
	HasHistory      bool                    `json:"has_history"`
}
