package qdrantDB

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

const scrollPageSize = 256

// Store maps every (category, document) pair to its own Qdrant collection.
type Store struct {
	client *qdrant.Client
	prefix string
	logger *logger_i.Logger
}

func NewStore(ctx context.Context, settings config.QdrantSettings) (*Store, error) {
	logger := logger_i.NewLogger("Qdrant")
	host := settings.Host
	if host == "" {
		host = "localhost"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     settings.Port,
		APIKey:   settings.APIKey,
		UseTLS:   settings.UseTLS,
		PoolSize: uint(settings.PoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}

	healthCtx, cancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
	defer cancel()
	if _, err := client.HealthCheck(healthCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("qdrant at %s:%d is not reachable: %w", host, settings.Port, err)
	}

	s := &Store{client: client, prefix: config.QdrantCollectionPrefix, logger: logger}
	go s.closeOnDone(ctx)
	return s, nil
}

func (s *Store) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	s.logger.Info("Shutting down Qdrant")
	if err := s.client.Close(); err != nil {
		s.logger.Error("could not close Qdrant", "error", err)
		return
	}
	s.logger.Info("Closed Qdrant")
}

// categoryPrefix hashes the category so any category name yields a valid collection name.
func (s *Store) categoryPrefix(category string) string {
	sum := sha256.Sum256([]byte(category))
	return s.prefix + "_" + hex.EncodeToString(sum[:6]) + "_"
}

func (s *Store) collectionName(category, documentID string) string {
	return s.categoryPrefix(category) + documentID
}

func (s *Store) Exists(ctx context.Context, category, documentID string) (bool, error) {
	return s.client.CollectionExists(ctx, s.collectionName(category, documentID))
}

func (s *Store) Save(ctx context.Context, category, documentID string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to index for %s", documentID)
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	name := s.collectionName(category, documentID)
	if err := createCollection(ctx, s.client, name, uint64(len(vectors[0]))); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		payload, err := qdrant.TryValueMap(pointPayload(chunk))
		if err != nil {
			return fmt.Errorf("payload of chunk %s: %w", chunk.ChunkId, err)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(chunk.ChunkPageOrder)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		if delErr := s.client.DeleteCollection(context.WithoutCancel(ctx), name); delErr != nil {
			s.logger.Error("could not drop partial collection", "collection", name, "error", delErr)
		}
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, category, documentID string) (*vectorDB.DocumentIndex, error) {
	name := s.collectionName(category, documentID)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %s: %w", name, commonModels.ErrNotFound)
	}

	idx := &vectorDB.DocumentIndex{DocumentId: documentID}
	var offset *qdrant.PointId
	for {
		points, next, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll %s: %w", name, err)
		}
		for _, p := range points {
			chunk, err := chunkFromPayload(documentID, p.GetPayload())
			if err != nil {
				return nil, err
			}
			idx.Chunks = append(idx.Chunks, vectorDB.StoredChunk{Chunk: chunk, Vector: denseVector(p.GetVectors())})
		}
		if next == nil || len(points) == 0 {
			break
		}
		offset = next
	}
	return idx, nil
}

func (s *Store) List(ctx context.Context, category string) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	prefix := s.categoryPrefix(category)
	var ids []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			ids = append(ids, strings.TrimPrefix(n, prefix))
		}
	}
	return ids, nil
}

func (s *Store) Delete(ctx context.Context, category, documentID string) (bool, error) {
	name := s.collectionName(category, documentID)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil || !exists {
		return false, err
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteCategory(ctx context.Context, category string) error {
	ids, err := s.List(ctx, category)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if _, err := s.Delete(ctx, category, id); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func pointPayload(chunk commonModels.DocChunk) map[string]any {
	return map[string]any{
		vectorDB.PayloadContent:        chunk.Chunk,
		vectorDB.PayloadSourceDocument: chunk.Doc.Name,
		vectorDB.PayloadDocumentId:     chunk.Doc.Id,
		vectorDB.PayloadCategory:       chunk.Doc.Category,
		vectorDB.PayloadPageNum:        chunk.PageNum,
		vectorDB.PayloadChunkIndex:     chunk.ChunkPageOrder,
		vectorDB.PayloadLanguage:       string(chunk.Language),
		vectorDB.PayloadContentType:    string(chunk.Doc.ContentType),
		vectorDB.PayloadIngestedAt:     chunk.Doc.LastIngestTimestamp.Unix(),
	}
}

func chunkFromPayload(documentID string, payload map[string]*qdrant.Value) (commonModels.DocChunk, error) {
	content, ok := payload[vectorDB.PayloadContent]
	if !ok {
		return commonModels.DocChunk{}, fmt.Errorf("point of %s has no content payload", documentID)
	}
	index := int(payload[vectorDB.PayloadChunkIndex].GetIntegerValue())
	return commonModels.DocChunk{
		Doc: commonModels.Document{
			Id:                  payload[vectorDB.PayloadDocumentId].GetStringValue(),
			Name:                payload[vectorDB.PayloadSourceDocument].GetStringValue(),
			Category:            payload[vectorDB.PayloadCategory].GetStringValue(),
			ContentType:         commonModels.DocType(payload[vectorDB.PayloadContentType].GetStringValue()),
			LastIngestTimestamp: time.Unix(payload[vectorDB.PayloadIngestedAt].GetIntegerValue(), 0).UTC(),
		},
		ChunkId:        vectorDB.ChunkID(documentID, index),
		Chunk:          content.GetStringValue(),
		PageNum:        int(payload[vectorDB.PayloadPageNum].GetIntegerValue()),
		ChunkPageOrder: index,
		Language:       commonModels.LanguageTag(payload[vectorDB.PayloadLanguage].GetStringValue()),
	}, nil
}

func denseVector(v *qdrant.VectorsOutput) []float32 {
	out := v.GetVector()
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData()
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string, dimension uint64) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}
