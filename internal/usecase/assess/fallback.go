package assess

import (
	"math"
	"sort"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/notify"
)

// fallbackLimit caps the degraded selection.
const fallbackLimit = 3

// Fallback builds a deterministic assessment from retrieval scores
// alone: top candidates by similarity, ties broken by id, templated
// text, never asking for another tier.
func Fallback(candidates []domain.Candidate, lang string) domain.Assessment {
	ordered := make([]domain.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].UserID < ordered[j].UserID
	})

	if len(ordered) > fallbackLimit {
		ordered = ordered[:fallbackLimit]
	}

	selected := make([]domain.MatchResult, 0, len(ordered))
	for _, c := range ordered {
		selected = append(selected, fillTemplates(domain.MatchResult{
			UserID:     c.UserID,
			MatchScore: similarityToScore(c.Score),
		}, lang))
	}

	return domain.Assessment{
		OverallQuality: domain.QualityFair,
		ShouldContinue: false,
		Selected:       selected,
	}
}

// fillTemplates supplies template text for any field the model left
// empty so requester- and receiver-facing strings are never blank.
func fillTemplates(m domain.MatchResult, lang string) domain.MatchResult {
	if m.MatchReason == "" {
		m.MatchReason = notify.MatchReason(lang)
	}
	if m.ReceiverNotification == "" {
		m.ReceiverNotification = notify.ReceiverNotification(lang)
	}
	if len(m.KeyStrengths) == 0 {
		m.KeyStrengths = []string{notify.KeyStrength(lang)}
	}
	return m
}

// similarityToScore maps cosine similarity [0,1] onto the 1-10 match
// scale.
func similarityToScore(sim float64) float64 {
	score := math.Round(sim * 10)
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

func sortSelected(list []domain.MatchResult) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].MatchScore != list[j].MatchScore {
			return list[i].MatchScore > list[j].MatchScore
		}
		return list[i].UserID < list[j].UserID
	})
}
