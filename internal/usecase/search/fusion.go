package search

import (
	"math"
	"sort"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Fusion strategy names accepted by New.
const (
	FusionRRF  = "rrf"
	FusionDBSF = "dbsf"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges dense and sparse rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// When a candidate appears in both lists, the dense entry's payload is kept.
func fuseRRF(dense, sparse []domain.Candidate, topK int) []domain.Candidate {
	merged := make(map[string]*domain.Candidate)

	for rank := range dense {
		c := dense[rank]
		c.Score = 1.0 / float64(rrfK+rank+1)
		merged[c.UserID] = &c
	}

	for rank := range sparse {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[sparse[rank].UserID]; ok {
			existing.Score += s
		} else {
			c := sparse[rank]
			c.Score = s
			merged[c.UserID] = &c
		}
	}

	return collect(merged, topK)
}

// fuseDBSF merges dense and sparse rankings via distribution-based score
// fusion: each list's scores are min-max normalized over the
// [mean-3sigma, mean+3sigma] window, then summed per candidate.
func fuseDBSF(dense, sparse []domain.Candidate, topK int) []domain.Candidate {
	merged := make(map[string]*domain.Candidate)

	for _, c := range normalize(dense) {
		c := c
		merged[c.UserID] = &c
	}
	for _, c := range normalize(sparse) {
		if existing, ok := merged[c.UserID]; ok {
			existing.Score += c.Score
		} else {
			c := c
			merged[c.UserID] = &c
		}
	}

	return collect(merged, topK)
}

// normalize rescales a list's scores into [0,1] over a three-sigma
// window around the mean. A degenerate list (uniform scores) maps to 1.
func normalize(list []domain.Candidate) []domain.Candidate {
	if len(list) == 0 {
		return nil
	}

	var sum float64
	for _, c := range list {
		sum += c.Score
	}
	mean := sum / float64(len(list))

	var varSum float64
	for _, c := range list {
		d := c.Score - mean
		varSum += d * d
	}
	sigma := math.Sqrt(varSum / float64(len(list)))

	lo, hi := mean-3*sigma, mean+3*sigma

	out := make([]domain.Candidate, len(list))
	for i, c := range list {
		if hi == lo {
			c.Score = 1.0
		} else {
			n := (c.Score - lo) / (hi - lo)
			c.Score = math.Max(0, math.Min(1, n))
		}
		out[i] = c
	}
	return out
}

func collect(merged map[string]*domain.Candidate, topK int) []domain.Candidate {
	results := make([]domain.Candidate, 0, len(merged))
	for _, c := range merged {
		results = append(results, *c)
	}

	sortCandidates(results)

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// sortCandidates orders by score descending with user id as a
// deterministic tie break.
func sortCandidates(list []domain.Candidate) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].UserID < list[j].UserID
	})
}
