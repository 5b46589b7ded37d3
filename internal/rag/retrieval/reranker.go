package retrieval

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Reranker rescores candidates with a blend of BM25 over the candidate set and the vector similarity.
type Reranker struct {
	vectorWeight float64
	minRelevance float64
}

func NewReranker(vectorWeight, minRelevance float64) *Reranker {
	if vectorWeight < 0 || vectorWeight > 1 {
		vectorWeight = 0.5
	}
	return &Reranker{vectorWeight: vectorWeight, minRelevance: minRelevance}
}

// Rerank returns at most topN evidence items, best first, with no two items sharing a (document, page) pair.
func (r *Reranker) Rerank(query string, hits []vectorDB.Hit, topN int) []commonModels.Evidence {
	if len(hits) == 0 || topN <= 0 {
		return nil
	}
	lexical := bm25Scores(tokenize(query), hits)

	scored := make([]commonModels.Evidence, 0, len(hits))
	for i, h := range hits {
		vector := math.Max(0, math.Min(1, h.Similarity))
		score := r.vectorWeight*vector + (1-r.vectorWeight)*lexical[i]
		if score < r.minRelevance {
			continue
		}
		scored = append(scored, commonModels.Evidence{Chunk: h.Chunk, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	return truncate(dedupe(scored), topN)
}

// dedupe keeps the first, highest scored item for each (document, page) pair.
func dedupe(items []commonModels.Evidence) []commonModels.Evidence {
	type key struct {
		doc  string
		page int
	}
	seen := make(map[key]bool, len(items))
	out := items[:0]
	for _, e := range items {
		k := key{e.Chunk.Doc.Name, e.Chunk.PageNum}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

func truncate(items []commonModels.Evidence, n int) []commonModels.Evidence {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// bm25Scores scores every hit against the query terms and normalises to [0,1] by the best score.
func bm25Scores(terms []string, hits []vectorDB.Hit) []float64 {
	scores := make([]float64, len(hits))
	if len(terms) == 0 {
		return scores
	}

	docs := make([]map[string]int, len(hits))
	lengths := make([]int, len(hits))
	df := map[string]int{}
	total := 0
	for i, h := range hits {
		tokens := tokenize(h.Chunk.Chunk)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			df[t]++
		}
		docs[i], lengths[i] = tf, len(tokens)
		total += len(tokens)
	}
	avg := float64(total) / float64(len(hits))
	if avg == 0 {
		return scores
	}

	n := float64(len(hits))
	best := 0.0
	for i, tf := range docs {
		var s float64
		for _, term := range terms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			s += idf * f * (bm25K1 + 1) / (f + bm25K1*(1-bm25B+bm25B*float64(lengths[i])/avg))
		}
		scores[i] = s
		best = math.Max(best, s)
	}
	if best > 0 {
		for i := range scores {
			scores[i] /= best
		}
	}
	return scores
}

// tokenize lowercases and splits on anything that is not a letter, digit or combining mark,
// which keeps Bengali vowel signs attached to their consonants.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
	})
}
