package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

const (
	promptTimeLayout      = "Monday, 2 January 2006, 3:04 PM"
	promptOutputCharLimit = 1500
	labelTextOnWishlist   = "[on your wishlist]"
	labelTextVisited      = "[you've been here before]"
	labelTextNew          = "[new to you]"
	sourceLabelWishlist   = "from your wishlist"
	sourceLabelVisited    = "you've been here before"
	sourceLabelMightLike  = "you might like"
	sourceLabelTrending   = "trending nearby"
)

// PromptContext is everything the assembler reads. Build it once per request
// and do not mutate it afterwards; the assembled text is a cache-identity
// function of this value.
type PromptContext struct {
	Query              string
	IsGroup            bool
	Now                time.Time // already localized
	IntentArea         string
	Profile            *types.TasteProfile
	Candidates         []types.LabeledCandidate // capped and ordered
	MaxRecommendations int
}

// CapCandidates trims the candidate list for the prompt while keeping every
// external discovery in play: external slots are reserved first, personal
// candidates fill the remainder. Relative order is preserved.
func CapCandidates(labeled []types.LabeledCandidate, limit int) []types.LabeledCandidate {
	if limit <= 0 || len(labeled) <= limit {
		return labeled
	}
	external := 0
	for _, lc := range labeled {
		if lc.Source == types.CandidateSourceExternal {
			external++
		}
	}
	if external > limit {
		external = limit
	}
	personalBudget := limit - external

	out := make([]types.LabeledCandidate, 0, limit)
	for _, lc := range labeled {
		if lc.Source == types.CandidateSourceExternal {
			if external == 0 {
				continue
			}
			external--
		} else {
			if personalBudget == 0 {
				continue
			}
			personalBudget--
		}
		out = append(out, lc)
	}
	return out
}

// BuildPrompt renders the reasoning prompt in a fixed section order. The
// output is byte-identical for identical inputs; every list it prints is
// already deterministically sorted by its producer.
func BuildPrompt(pc PromptContext) string {
	var b strings.Builder

	if pc.IsGroup {
		b.WriteString("This is a group chat deciding where to eat together.\n")
	} else {
		b.WriteString("This is a private chat with one person deciding where to eat.\n")
	}

	fmt.Fprintf(&b, "Current time in Singapore: %s.\n\n", pc.Now.Format(promptTimeLayout))

	if len(pc.Profile.CuisineRatings) > 0 {
		b.WriteString("Taste history (average rating per cuisine):\n")
		for _, cr := range pc.Profile.CuisineRatings {
			fmt.Fprintf(&b, "- %s: %.1f★ over %s\n", cr.Cuisine, cr.AvgRating, pluralize(cr.SampleCount, "rated visit"))
		}
	} else {
		b.WriteString("No rated visits yet.\n")
	}

	if len(pc.Profile.OverdueWishlist) > 0 {
		b.WriteString("\nSaved a while ago and still not visited:\n")
		for _, o := range pc.Profile.OverdueWishlist {
			if o.Area != nil && *o.Area != "" {
				fmt.Fprintf(&b, "- %s (%s), saved %d days ago\n", o.Name, *o.Area, o.DaysSaved)
			} else {
				fmt.Fprintf(&b, "- %s, saved %d days ago\n", o.Name, o.DaysSaved)
			}
		}
	}

	b.WriteString("\nPlaces to choose from:\n")
	for i, lc := range pc.Candidates {
		fmt.Fprintf(&b, "%d. %s%s %s\n", i+1, lc.Name, candidateDetails(lc, pc.IntentArea), labelText(lc))
		if lc.MapsURL != "" {
			fmt.Fprintf(&b, "   maps: %s\n", lc.MapsURL)
		}
		fmt.Fprintf(&b, "   place_id: %s\n", lc.PlaceID)
	}

	fmt.Fprintf(&b, "\nUser query: %q\n\n", pc.Query)

	b.WriteString("Reply with JSON only, no prose:\n")
	b.WriteString(`{"recommendations": [{"place_id": "", "name": "", "address": "", "source": "", "reason": ""}]}` + "\n")
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- recommend exactly %d of the places above, ranked by fit\n", recommendationCount(pc))
	b.WriteString("- \"reason\" is one short sentence, tied to the taste history where possible\n")
	fmt.Fprintf(&b, "- \"source\" is %q for wishlist places, %q for visited ones, and %q or %q for places marked %s\n",
		sourceLabelWishlist, sourceLabelVisited, sourceLabelMightLike, sourceLabelTrending, labelTextNew)
	if hasExternal(pc.Candidates) {
		fmt.Fprintf(&b, "- include at least one place marked %s\n", labelTextNew)
	}
	fmt.Fprintf(&b, "- keep the whole reply under %d characters\n", promptOutputCharLimit)

	return b.String()
}

func recommendationCount(pc PromptContext) int {
	n := pc.MaxRecommendations
	if len(pc.Candidates) < n {
		n = len(pc.Candidates)
	}
	return n
}

func hasExternal(labeled []types.LabeledCandidate) bool {
	for _, lc := range labeled {
		if lc.Label == types.LabelExternalNew {
			return true
		}
	}
	return false
}

// candidateDetails renders the address/rating/distance suffix for one line.
func candidateDetails(lc types.LabeledCandidate, intentArea string) string {
	var b strings.Builder
	if lc.Address != "" {
		b.WriteString(", ")
		b.WriteString(lc.Address)
	}

	var extras []string
	if lc.Rating != nil {
		extras = append(extras, fmt.Sprintf("%.1f★ on Google", *lc.Rating))
	}
	if lc.DistanceMeters != nil && intentArea != "" {
		extras = append(extras, fmt.Sprintf("%.0f m from %s", *lc.DistanceMeters, intentArea))
	}
	if len(extras) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(extras, ", "))
	}
	return b.String()
}

func labelText(lc types.LabeledCandidate) string {
	switch lc.Label {
	case types.LabelOnWishlist:
		return labelTextOnWishlist
	case types.LabelAlreadyVisited:
		if lc.OwnRating != nil {
			return fmt.Sprintf("[you've been here before (rated %d★ by you)]", *lc.OwnRating)
		}
		return labelTextVisited
	default:
		return labelTextNew
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
