package retrieval

import (
	"math"

	"github.com/akolanti/DocChat/internal/rag/vectorDB"
)

// selectMMR picks k hits by maximal marginal relevance: lambda weighs similarity to the query
// against similarity to hits already picked. Hits must carry their vectors.
func selectMMR(query []float32, hits []vectorDB.Hit, k int, lambda float64) []vectorDB.Hit {
	if k >= len(hits) {
		k = len(hits)
	}
	if k <= 0 {
		return nil
	}

	relevance := make([]float64, len(hits))
	for i, h := range hits {
		relevance[i] = cosine(query, h.Vector)
	}

	picked := make([]int, 0, k)
	used := make([]bool, len(hits))
	// highest similarity to anything picked so far, per candidate
	redundancy := make([]float64, len(hits))
	for i := range redundancy {
		redundancy[i] = math.Inf(-1)
	}

	for len(picked) < k {
		best, bestScore := -1, math.Inf(-1)
		for i := range hits {
			if used[i] {
				continue
			}
			penalty := 0.0
			if len(picked) > 0 {
				penalty = redundancy[i]
			}
			score := lambda*relevance[i] - (1-lambda)*penalty
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		picked = append(picked, best)
		for i := range hits {
			if !used[i] {
				redundancy[i] = math.Max(redundancy[i], cosine(hits[i].Vector, hits[best].Vector))
			}
		}
	}

	out := make([]vectorDB.Hit, len(picked))
	for i, idx := range picked {
		out[i] = hits[idx]
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
