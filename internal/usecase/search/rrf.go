package search

import (
	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges lexical and semantic hits via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
func fuseRRF(lexical, semantic []result.Result, topK int) []result.Result {
	type scored struct {
		res   result.Result
		score float64
	}

	merged := make(map[string]*scored)
	for _, list := range [][]result.Result{semantic, lexical} {
		seen := make(map[string]bool, len(list))
		for pos, r := range list {
			if seen[r.ID()] {
				continue
			}
			seen[r.ID()] = true

			s := 1.0 / float64(rrfK+pos+1)
			if existing, ok := merged[r.ID()]; ok {
				existing.score += s
			} else {
				merged[r.ID()] = &scored{res: r, score: s}
			}
		}
	}

	results := make([]result.Result, 0, len(merged))
	for _, s := range merged {
		results = append(results, s.res.WithScore(s.score))
	}
	return rank(results, topK)
}
