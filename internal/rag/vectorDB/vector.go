package vectorDB

import (
	"context"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

type StoredChunk struct {
	Chunk  commonModels.DocChunk
	Vector []float32
}

// DocumentIndex is one document's chunks and vectors as loaded from an IndexStore.
type DocumentIndex struct {
	DocumentId string
	Chunks     []StoredChunk
}

func (d *DocumentIndex) Dimension() int {
	if d == nil || len(d.Chunks) == 0 {
		return 0
	}
	return len(d.Chunks[0].Vector)
}

// IndexStore persists one standalone vector index per (category, document id).
type IndexStore interface {
	Exists(ctx context.Context, category, documentID string) (bool, error)
	// Save writes a complete index. A failed save leaves nothing behind.
	Save(ctx context.Context, category, documentID string, chunks []commonModels.DocChunk, vectors [][]float32) error
	// Load returns commonModels.ErrNotFound when the index does not exist.
	Load(ctx context.Context, category, documentID string) (*DocumentIndex, error)
	// List returns the document ids with an index in the category, in storage listing order.
	List(ctx context.Context, category string) ([]string, error)
	Delete(ctx context.Context, category, documentID string) (bool, error)
	DeleteCategory(ctx context.Context, category string) error
}
