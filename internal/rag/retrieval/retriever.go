package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag/embedding"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

// Searcher is a nearest-neighbour index; *vectorDB.MergedIndex implements it.
type Searcher interface {
	Query(ctx context.Context, vector []float32, n int) ([]vectorDB.Hit, error)
}

type Retriever struct {
	embedder embedding.Embedder
	settings config.RetrievalSettings
	reranker *Reranker
	logger   *logger_i.Logger
}

func NewRetriever(embedder embedding.Embedder, settings config.RetrievalSettings) *Retriever {
	return &Retriever{
		embedder: embedder,
		settings: settings,
		reranker: NewReranker(settings.RerankVectorWeight, settings.MinRelevance),
		logger:   logger_i.NewLogger("Retriever"),
	}
}

// Retrieve embeds the question, searches the index and reranks the candidates into the evidence set.
// An empty evidence set is a valid result.
func (r *Retriever) Retrieve(ctx context.Context, index Searcher, documents int, question string) ([]commonModels.Evidence, error) {
	params := ParamsFor(r.settings, documents)
	log := r.logger.WithTrace(ctx).With("fetchK", params.FetchK, "k", params.K, "topN", params.TopN, "mode", r.settings.Mode)

	start := time.Now()
	vector, err := r.embedder.GetEmbedding(ctx, question)
	metrics.CaptureExecutionMetrics("query_embedding", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	start = time.Now()
	candidates, err := index.Query(ctx, vector, params.FetchK)
	if err != nil {
		return nil, err
	}
	var selected []vectorDB.Hit
	if r.settings.Mode == config.RetrievalModeMMR {
		selected = selectMMR(vector, candidates, params.K, r.settings.MMRLambda)
	} else {
		selected = candidates[:min(params.K, len(candidates))]
	}
	metrics.CaptureExecutionMetrics("search", time.Since(start))

	start = time.Now()
	evidence := r.reranker.Rerank(question, selected, params.TopN)
	metrics.CaptureExecutionMetrics("rerank", time.Since(start))
	metrics.ObserveEvidence(len(evidence))

	if len(evidence) == 0 {
		log.Info("no evidence above the relevance cutoff", "candidates", len(candidates))
	} else {
		log.Debug("evidence selected", "candidates", len(candidates), "selected", len(selected), "evidence", len(evidence))
	}
	return evidence, nil
}
