package vectorDB

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"
)

const mergedCollectionName = "category"

// Hit is one nearest-neighbour result of a MergedIndex query.
type Hit struct {
	Chunk      commonModels.DocChunk
	Similarity float64
	Vector     []float32
}

// MergedIndex is the query-time union of a category's document indexes. It lives in memory only.
type MergedIndex struct {
	collection *chromem.Collection
	dimension  int
	documents  int
}

// noEmbedding guards against chromem silently calling a remote embedder: every stored chunk already has a vector.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("merged index only accepts pre-computed vectors")
}

func NewMergedIndex(ctx context.Context, first *DocumentIndex) (*MergedIndex, error) {
	if first == nil || len(first.Chunks) == 0 {
		return nil, fmt.Errorf("document index is empty: %w", commonModels.ErrUnavailable)
	}
	collection, err := chromem.NewDB().CreateCollection(mergedCollectionName, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create merged collection: %w", err)
	}
	m := &MergedIndex{collection: collection, dimension: first.Dimension()}
	if err := m.Merge(ctx, first); err != nil {
		return nil, err
	}
	return m, nil
}

// Merge adds another document's vectors. Nothing is added when the dimension differs.
func (m *MergedIndex) Merge(ctx context.Context, idx *DocumentIndex) error {
	if idx == nil || len(idx.Chunks) == 0 {
		return fmt.Errorf("document index is empty")
	}
	docs := make([]chromem.Document, 0, len(idx.Chunks))
	for _, c := range idx.Chunks {
		if len(c.Vector) != m.dimension {
			return fmt.Errorf("document %s has %d dims, index has %d: %w", idx.DocumentId, len(c.Vector), m.dimension, commonModels.ErrDimensionMismatch)
		}
		docs = append(docs, chromem.Document{
			ID:        c.Chunk.ChunkId,
			Metadata:  ChunkMetadata(c.Chunk),
			Embedding: c.Vector,
			Content:   c.Chunk.Chunk,
		})
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("merge document %s: %w", idx.DocumentId, err)
	}
	m.documents++
	return nil
}

// Documents is the number of document indexes merged so far.
func (m *MergedIndex) Documents() int { return m.documents }

func (m *MergedIndex) Count() int { return m.collection.Count() }

func (m *MergedIndex) Dimension() int { return m.dimension }

// Query returns up to n chunks ordered by cosine similarity, most similar first.
func (m *MergedIndex) Query(ctx context.Context, vector []float32, n int) ([]Hit, error) {
	if n > m.Count() {
		n = m.Count()
	}
	if n <= 0 {
		return nil, nil
	}
	results, err := m.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query merged index: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		chunk, err := ChunkFromMetadata(r.ID, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Chunk: chunk, Similarity: float64(r.Similarity), Vector: r.Embedding})
	}
	return hits, nil
}

type Merger struct {
	store       IndexStore
	concurrency int
	logger      *logger_i.Logger
}

func NewMerger(store IndexStore, concurrency int) *Merger {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Merger{store: store, concurrency: concurrency, logger: logger_i.NewLogger("Index Merger")}
}

// Merge loads every document index of the category and unions them. Indexes that fail to
// load or merge are logged and left out; ErrUnavailable means none could be used.
func (m *Merger) Merge(ctx context.Context, category string) (*MergedIndex, error) {
	log := m.logger.WithTrace(ctx).With("category", category)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_merge", time.Since(start)) }()

	ids, err := m.store.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", category, err)
	}
	if len(ids) == 0 {
		log.Warn("category has no document indexes")
		return nil, commonModels.ErrUnavailable
	}

	loaded := make([]*DocumentIndex, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			idx, err := m.store.Load(gctx, category, id)
			if err != nil {
				// a bad index never cancels its siblings
				log.Warn("skipping index that failed to load", "documentId", id, "error", err)
				metrics.RecordMergeFailure("load")
				return nil
			}
			loaded[i] = idx
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged *MergedIndex
	for i, idx := range loaded {
		if idx == nil {
			continue
		}
		if merged == nil {
			merged, err = NewMergedIndex(ctx, idx)
			if err != nil {
				log.Warn("skipping index that could not seed the merge", "documentId", ids[i], "error", err)
				metrics.RecordMergeFailure("merge")
				merged = nil
			}
			continue
		}
		if err := merged.Merge(ctx, idx); err != nil {
			log.Warn("skipping index that failed to merge", "documentId", ids[i], "error", err)
			metrics.RecordMergeFailure("merge")
		}
	}
	if merged == nil {
		log.Warn("no document index could be loaded")
		return nil, commonModels.ErrUnavailable
	}

	log.Debug("category merged", "documents", merged.Documents(), "chunks", merged.Count())
	return merged, nil
}
