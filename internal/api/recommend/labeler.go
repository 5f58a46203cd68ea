package recommend

import "github.com/kopisiew/go-makan-suggestions/internal/types"

// LabelCandidates tags every candidate against the requester-scope history,
// personal layer first. Visited wins over saved, saved over external-new.
// Visited places stay in play unless the query asked for somewhere new; the
// rating attached is always the requester's own, never a scope-mate's.
func LabelCandidates(set CandidateSet, prof *types.TasteProfile, wantsNewOnly bool) []types.LabeledCandidate {
	out := make([]types.LabeledCandidate, 0, len(set.Personal)+len(set.External))
	for _, c := range append(append([]types.Candidate{}, set.Personal...), set.External...) {
		if summary, visited := prof.VisitedPlaceIDs[c.PlaceID]; visited {
			if wantsNewOnly {
				continue
			}
			out = append(out, types.LabeledCandidate{
				Candidate: c,
				Label:     types.LabelAlreadyVisited,
				OwnRating: summary.Rating,
			})
			continue
		}
		label := types.LabelExternalNew
		if c.Source == types.CandidateSourceWishlist {
			label = types.LabelOnWishlist
		}
		out = append(out, types.LabeledCandidate{Candidate: c, Label: label})
	}
	return out
}
