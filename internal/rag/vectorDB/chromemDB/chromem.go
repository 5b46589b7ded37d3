package chromemDB

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/philippgille/chromem-go"
)

const collectionName = "chunks"

// Store keeps every document index as its own persistent chromem DB under <root>/<category>/<document id>/.
type Store struct {
	root     string
	compress bool
	logger   *logger_i.Logger
}

func NewStore(root string, compress bool) *Store {
	return &Store{root: root, compress: compress, logger: logger_i.NewLogger("Chromem Index Store")}
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("document index only accepts pre-computed vectors")
}

func (s *Store) indexPath(category, documentID string) string {
	return filepath.Join(s.root, category, documentID)
}

func (s *Store) Exists(ctx context.Context, category, documentID string) (bool, error) {
	fi, err := os.Stat(s.indexPath(category, documentID))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

func (s *Store) Save(ctx context.Context, category, documentID string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to index for %s", documentID)
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("have %d chunks and %d vectors for %s", len(chunks), len(vectors), documentID)
	}
	path := s.indexPath(category, documentID)
	if err := s.save(ctx, path, chunks, vectors); err != nil {
		if rmErr := os.RemoveAll(path); rmErr != nil {
			s.logger.Error("could not remove partial index", "path", path, "error", rmErr)
		}
		return err
	}
	return nil
}

func (s *Store) save(ctx context.Context, path string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	db, err := chromem.NewPersistentDB(path, s.compress)
	if err != nil {
		return fmt.Errorf("open index %s: %w", path, err)
	}
	collection, err := db.CreateCollection(collectionName, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ChunkId,
			Metadata:  vectorDB.ChunkMetadata(c),
			Embedding: vectors[i],
			Content:   c.Chunk,
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, category, documentID string) (*vectorDB.DocumentIndex, error) {
	exists, err := s.Exists(ctx, category, documentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("index %s/%s: %w", category, documentID, commonModels.ErrNotFound)
	}

	db, err := chromem.NewPersistentDB(s.indexPath(category, documentID), s.compress)
	if err != nil {
		return nil, fmt.Errorf("open index %s/%s: %w", category, documentID, err)
	}
	collection := db.GetCollection(collectionName, noEmbedding)
	if collection == nil {
		return nil, fmt.Errorf("index %s/%s has no %q collection", category, documentID, collectionName)
	}

	// chunk ids are <document id>:<index> with indexes 0..count-1
	count := collection.Count()
	idx := &vectorDB.DocumentIndex{DocumentId: documentID, Chunks: make([]vectorDB.StoredChunk, 0, count)}
	for i := 0; i < count; i++ {
		doc, err := collection.GetByID(ctx, vectorDB.ChunkID(documentID, i))
		if err != nil {
			return nil, fmt.Errorf("index %s/%s: %w", category, documentID, err)
		}
		chunk, err := vectorDB.ChunkFromMetadata(doc.ID, doc.Content, doc.Metadata)
		if err != nil {
			return nil, err
		}
		idx.Chunks = append(idx.Chunks, vectorDB.StoredChunk{Chunk: chunk, Vector: doc.Embedding})
	}
	return idx, nil
}

// List returns the index directories of the category; the name mapping and stray files are skipped.
func (s *Store) List(ctx context.Context, category string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, category))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

func (s *Store) Delete(ctx context.Context, category, documentID string) (bool, error) {
	exists, err := s.Exists(ctx, category, documentID)
	if err != nil || !exists {
		return false, err
	}
	if err := os.RemoveAll(s.indexPath(category, documentID)); err != nil {
		return false, fmt.Errorf("delete index %s/%s: %w", category, documentID, err)
	}
	return true, nil
}

func (s *Store) DeleteCategory(ctx context.Context, category string) error {
	return os.RemoveAll(filepath.Join(s.root, category))
}
