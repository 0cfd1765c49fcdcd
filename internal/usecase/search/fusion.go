package search

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/retrievex/internal/domain/search/result"
)

// fuseWeighted merges lexical and semantic hits by a weighted sum of min-max
// normalized scores. A document missing from one list gets 0 for that side.
func fuseWeighted(lexical, semantic []result.Result, wLex, wSem float64, topK int) []result.Result {
	normLex := normalize(lexical)
	normSem := normalize(semantic)

	hits := make(map[string]result.Result, len(lexical)+len(semantic))
	for _, list := range [][]result.Result{semantic, lexical} {
		for _, r := range list {
			if _, ok := hits[r.ID()]; !ok {
				hits[r.ID()] = r
			}
		}
	}

	fused := make([]result.Result, 0, len(hits))
	for id, r := range hits {
		fused = append(fused, r.WithScore(wLex*normLex[id]+wSem*normSem[id]))
	}
	return rank(fused, topK)
}

// normalize min-max scales scores into [0,1]. When every score is equal each
// member maps to 1.0. Only the first occurrence of an id counts.
func normalize(list []result.Result) map[string]float64 {
	out := make(map[string]float64, len(list))
	if len(list) == 0 {
		return out
	}

	lo, hi := list[0].Score(), list[0].Score()
	for _, r := range list[1:] {
		lo = min(lo, r.Score())
		hi = max(hi, r.Score())
	}

	for _, r := range list {
		if _, seen := out[r.ID()]; seen {
			continue
		}
		if hi == lo {
			out[r.ID()] = 1
			continue
		}
		out[r.ID()] = (r.Score() - lo) / (hi - lo)
	}
	return out
}

// rank sorts by descending score, then ascending id, and truncates to topK.
func rank(results []result.Result, topK int) []result.Result {
	slices.SortStableFunc(results, func(a, b result.Result) int {
		if c := cmp.Compare(b.Score(), a.Score()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []result.Result{}
	}
	return results
}
