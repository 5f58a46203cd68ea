package types

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus tracks the lifecycle of a saved place. Deleted entries stay in
// the store for audit but never surface in reads.
type EntryStatus string

const (
	EntryStatusSaved   EntryStatus = "saved"
	EntryStatusVisited EntryStatus = "visited"
	EntryStatusDeleted EntryStatus = "deleted"
)

// SavedEntry is one place a scope has bookmarked. A scope is either a group
// conversation or a single user's private one; entries are shared within it.
type SavedEntry struct {
	ID           uuid.UUID   `json:"id"`
	ScopeID      string      `json:"scope_id"`
	PlaceID      string      `json:"place_id"` // stable external place identifier
	Name         string      `json:"name"`
	Address      string      `json:"address,omitempty"`
	Area         *string     `json:"area,omitempty"`
	CuisineLabel *string     `json:"cuisine_label,omitempty"` // authoritative cuisine when known
	Latitude     *float64    `json:"latitude,omitempty"`
	Longitude    *float64    `json:"longitude,omitempty"`
	AddedBy      string      `json:"added_by"`
	Status       EntryStatus `json:"status"`
	Notes        *string     `json:"notes,omitempty"`
	DateAdded    time.Time   `json:"date_added"`
}

// Occasion values recorded with a visit.
const (
	OccasionCasual      = "Casual"
	OccasionSpecial     = "Special"
	OccasionWork        = "Work"
	OccasionSpontaneous = "Spontaneous"
)

// Visit is one recorded trip to a place, rated by a single user. Several
// members of a group scope may log separate visits to the same place.
type Visit struct {
	ID        uuid.UUID `json:"id"`
	ScopeID   string    `json:"scope_id"`
	PlaceID   string    `json:"place_id"`
	PlaceName string    `json:"place_name"`
	RaterID   string    `json:"rater_id"`
	Rating    *int      `json:"rating,omitempty"` // 1..5, nil when the rater skipped it
	Review    *string   `json:"review,omitempty"`
	Occasion  *string   `json:"occasion,omitempty"`
	VisitedAt time.Time `json:"visited_at"`
}

// ScopeStats summarises a scope's history for the stats surface.
type ScopeStats struct {
	ScopeID      string `json:"scope_id"`
	SavedCount   int    `json:"saved_count"`
	VisitedCount int    `json:"visited_count"`
	VisitCount   int    `json:"visit_count"`
}
