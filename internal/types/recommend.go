package types

// Intent is the structured reading of a free-text query. The zero value is a
// valid "no signal" intent; extraction failures must collapse to it rather
// than fail the request.
type Intent struct {
	Area         string `json:"area,omitempty"`
	Cuisine      string `json:"cuisine,omitempty"`
	Occasion     string `json:"occasion,omitempty"`
	WantsNewOnly bool   `json:"wants_new_only,omitempty"`
}

// Place is one external search result.
type Place struct {
	PlaceID   string   `json:"place_id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Area      string   `json:"area,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	MapsURL   string   `json:"maps_url,omitempty"`
}

type CandidateSource string

const (
	CandidateSourceWishlist CandidateSource = "wishlist"
	CandidateSourceExternal CandidateSource = "external"
)

// CandidateLabel is the relationship between a candidate and the requesting
// scope's history. Exactly one applies per candidate.
type CandidateLabel string

const (
	LabelAlreadyVisited CandidateLabel = "already_visited"
	LabelOnWishlist     CandidateLabel = "already_on_wishlist"
	LabelExternalNew    CandidateLabel = "external_new"
)

// Candidate is a place offered to the reasoning stage, before labeling.
type Candidate struct {
	PlaceID        string          `json:"place_id"`
	Name           string          `json:"name"`
	Address        string          `json:"address,omitempty"`
	Area           string          `json:"area,omitempty"`
	Source         CandidateSource `json:"source"`
	Rating         *float64        `json:"rating,omitempty"`
	DistanceMeters *float64        `json:"distance_meters,omitempty"`
	MapsURL        string          `json:"maps_url,omitempty"`
}

type LabeledCandidate struct {
	Candidate
	Label CandidateLabel `json:"label"`
	// OwnRating is the requester's own rating when Label is already_visited.
	// Scope-mates' ratings never leak here.
	OwnRating *int `json:"own_rating,omitempty"`
}

// EngineMode records how much of the pipeline produced a response.
type EngineMode string

const (
	// ModeFull means external candidates and model reasoning both ran.
	ModeFull EngineMode = "full"
	// ModePersonalOnly means external search failed or returned nothing and
	// reasoning ran over personal history alone.
	ModePersonalOnly EngineMode = "personal_only"
	// ModeFallback means reasoning failed after its retry and the response was
	// assembled without the model.
	ModeFallback EngineMode = "fallback"
)

// RecommendRequest is the payload of the recommendations operation.
type RecommendRequest struct {
	Query       string `json:"query" example:"chill dinner in Tiong Bahru"`
	ScopeID     string `json:"scope_id" example:"-1001234567890"`
	RequesterID string `json:"requester_id" example:"987654321"`
	IsGroup     bool   `json:"is_group"`
}

// Recommendation is one suggested place with its one-sentence justification.
type Recommendation struct {
	PlaceID     string   `json:"place_id,omitempty"`
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	Area        string   `json:"area,omitempty"`
	Reason      string   `json:"reason"`
	SourceLabel string   `json:"source_label" example:"from your wishlist"`
	Rating      *float64 `json:"rating,omitempty"`
	MapsURL     string   `json:"maps_url,omitempty"`
}

// RecommendationResponse is the full answer for one query. Degraded is true
// only when Mode is fallback; a personal-only response still used the model.
type RecommendationResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Mode            EngineMode       `json:"mode"`
	Degraded        bool             `json:"degraded"`
	HasHistory      bool             `json:"has_history"`
	Advisory        string           `json:"advisory,omitempty"`
}

// PromptSuggestions is the personalised-shortcut answer: 2 or 3 ready-made
// queries the user can tap instead of typing.
type PromptSuggestions struct {
	Prompts []string `json:"prompts"`
}
