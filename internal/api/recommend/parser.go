package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	generativeAI "github.com/kopisiew/go-makan-suggestions/internal/api/generative_ai"
	"github.com/kopisiew/go-makan-suggestions/internal/api/places"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

const defaultReason = "Matches what you asked for."

type modelReply struct {
	Recommendations []modelRecommendation `json:"recommendations"`
}

type modelRecommendation struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Source  string `json:"source"`
	Reason  string `json:"reason"`
}

// ParseResponse turns the model reply into recommendations. Every item must
// resolve to an offered candidate (by place id, then by name); the source
// label is derived from the candidate's label rather than trusted from the
// model, so history claims stay honest. Returns an error when nothing in the
// reply resolves, which callers treat as a failed reasoning attempt.
func ParseResponse(raw string, candidates []types.LabeledCandidate, maxRecommendations int) ([]types.Recommendation, error) {
	var reply modelReply
	if err := json.Unmarshal([]byte(generativeAI.CleanJSONResponse(raw)), &reply); err != nil {
		return nil, fmt.Errorf("failed to decode model reply: %w", err)
	}

	byID := make(map[string]types.LabeledCandidate, len(candidates))
	byName := make(map[string]types.LabeledCandidate, len(candidates))
	for _, c := range candidates {
		if _, ok := byID[c.PlaceID]; !ok {
			byID[c.PlaceID] = c
		}
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if _, ok := byName[name]; !ok && name != "" {
			byName[name] = c
		}
	}

	seen := make(map[string]bool)
	out := make([]types.Recommendation, 0, maxRecommendations)
	for _, m := range reply.Recommendations {
		cand, ok := byID[m.PlaceID]
		if !ok {
			cand, ok = byName[strings.ToLower(strings.TrimSpace(m.Name))]
		}
		if !ok || seen[cand.PlaceID] {
			continue
		}
		seen[cand.PlaceID] = true

		out = append(out, buildRecommendation(cand, m))
		if len(out) == maxRecommendations {
			break
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("model reply contained no usable recommendations")
	}
	return out, nil
}

func buildRecommendation(cand types.LabeledCandidate, m modelRecommendation) types.Recommendation {
	rec := types.Recommendation{
		PlaceID:     cand.PlaceID,
		Name:        cand.Name,
		Address:     cand.Address,
		Area:        cand.Area,
		Reason:      strings.TrimSpace(m.Reason),
		SourceLabel: deriveSourceLabel(cand, m.Source),
		Rating:      cand.Rating,
		MapsURL:     cand.MapsURL,
	}
	if rec.Address == "" {
		rec.Address = strings.TrimSpace(m.Address)
	}
	if rec.Reason == "" {
		rec.Reason = defaultReason
	}
	if rec.MapsURL == "" {
		rec.MapsURL = places.DefaultMapsURL(cand.PlaceID)
	}
	return rec
}

// deriveSourceLabel keeps label authority with the engine. For new places the
// model may pick between the two discovery phrasings; anything else collapses
// to the default.
func deriveSourceLabel(cand types.LabeledCandidate, modelSource string) string {
	switch cand.Label {
	case types.LabelOnWishlist:
		return sourceLabelWishlist
	case types.LabelAlreadyVisited:
		if cand.OwnRating != nil {
			return fmt.Sprintf("%s (rated %d★)", sourceLabelVisited, *cand.OwnRating)
		}
		return sourceLabelVisited
	default:
		if s := strings.ToLower(strings.TrimSpace(modelSource)); s == sourceLabelTrending {
			return sourceLabelTrending
		}
		return sourceLabelMightLike
	}
}
