package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag/embedding"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

// IndexBuilder embeds a document's chunks and persists them as that document's own index.
type IndexBuilder struct {
	store     vectorDB.IndexStore
	names     *vectorDB.NameMapping
	embedder  embedding.Embedder
	batchSize int
	logger    *logger_i.Logger
}

func NewIndexBuilder(store vectorDB.IndexStore, names *vectorDB.NameMapping, embedder embedding.Embedder, batchSize int) *IndexBuilder {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IndexBuilder{
		store:     store,
		names:     names,
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger_i.NewLogger("Index Builder"),
	}
}

func (b *IndexBuilder) Exists(ctx context.Context, category, documentID string) (bool, error) {
	return b.store.Exists(ctx, category, documentID)
}

// Build returns false without embedding anything when the document already has an index.
func (b *IndexBuilder) Build(ctx context.Context, doc commonModels.Document, chunks []commonModels.DocChunk) (bool, error) {
	log := b.logger.WithTrace(ctx).With("documentId", doc.Id, "category", doc.Category)

	exists, err := b.store.Exists(ctx, doc.Category, doc.Id)
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	if exists {
		log.Info("index already exists, skipping")
		return false, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk
	}
	vectors, err := b.embedBatches(ctx, texts)
	if err != nil {
		return false, err
	}

	start := time.Now()
	err = b.store.Save(ctx, doc.Category, doc.Id, chunks, vectors)
	metrics.CaptureExecutionMetrics("index_save", time.Since(start))
	if err != nil {
		return false, fmt.Errorf("persist index: %w", err)
	}

	if err := b.names.Put(doc.Category, doc.Id, doc.Name); err != nil {
		// an index without a mapping entry cannot be listed or deleted by name
		if _, delErr := b.store.Delete(context.WithoutCancel(ctx), doc.Category, doc.Id); delErr != nil {
			log.Error("could not roll back index after mapping failure", "error", delErr)
		}
		return false, fmt.Errorf("record name mapping: %w", err)
	}

	log.Info("document indexed", "chunks", len(chunks))
	return true, nil
}

func (b *IndexBuilder) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start)) }()

	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += b.batchSize {
		end := min(i+b.batchSize, len(texts))
		batch, err := b.embedder.BatchEmbedding(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(batch) != end-i {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(batch), end-i)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
