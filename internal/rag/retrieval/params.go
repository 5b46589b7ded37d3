package retrieval

import "github.com/akolanti/DocChat/internal/config"

// Params are the search sizes for one query, derived from the number of documents in the category.
type Params struct {
	FetchK int
	K      int
	TopN   int
}

func ParamsFor(settings config.RetrievalSettings, documents int) Params {
	if documents < 1 {
		documents = 1
	}
	fetchK := min(settings.FetchKCap, settings.FetchKPerDocument*documents)
	k := settings.K
	if k > fetchK {
		k = fetchK
	}
	topN := settings.TopNCap
	if settings.ScaleTopN {
		topN = min(settings.TopNCap, documents+1)
	}
	return Params{FetchK: max(fetchK, 1), K: max(k, 1), TopN: max(topN, 1)}
}
