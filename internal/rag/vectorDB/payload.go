package vectorDB

import (
	"fmt"
	"strconv"
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

const (
	PayloadSourceDocument = "source_document"
	PayloadDocumentId     = "document_id"
	PayloadCategory       = "category"
	PayloadPageNum        = "page_number"
	PayloadChunkIndex     = "chunk_index"
	PayloadLanguage       = "language_tag"
	PayloadContentType    = "content_type"
	PayloadIngestedAt     = "ingested_at"
	PayloadContent        = "content"
)

func ChunkID(documentID string, index int) string {
	return documentID + ":" + strconv.Itoa(index)
}

// ChunkMetadata flattens everything but the content into string metadata.
func ChunkMetadata(c commonModels.DocChunk) map[string]string {
	return map[string]string{
		PayloadSourceDocument: c.Doc.Name,
		PayloadDocumentId:     c.Doc.Id,
		PayloadCategory:       c.Doc.Category,
		PayloadPageNum:        strconv.Itoa(c.PageNum),
		PayloadChunkIndex:     strconv.Itoa(c.ChunkPageOrder),
		PayloadLanguage:       string(c.Language),
		PayloadContentType:    string(c.Doc.ContentType),
		PayloadIngestedAt:     c.Doc.LastIngestTimestamp.UTC().Format(time.RFC3339),
	}
}

func ChunkFromMetadata(id, content string, meta map[string]string) (commonModels.DocChunk, error) {
	page, err := strconv.Atoi(meta[PayloadPageNum])
	if err != nil {
		return commonModels.DocChunk{}, fmt.Errorf("chunk %s: bad %s: %w", id, PayloadPageNum, err)
	}
	index, err := strconv.Atoi(meta[PayloadChunkIndex])
	if err != nil {
		return commonModels.DocChunk{}, fmt.Errorf("chunk %s: bad %s: %w", id, PayloadChunkIndex, err)
	}
	ingestedAt, _ := time.Parse(time.RFC3339, meta[PayloadIngestedAt])

	return commonModels.DocChunk{
		Doc: commonModels.Document{
			Id:                  meta[PayloadDocumentId],
			Name:                meta[PayloadSourceDocument],
			Category:            meta[PayloadCategory],
			LastIngestTimestamp: ingestedAt,
			ContentType:         commonModels.DocType(meta[PayloadContentType]),
		},
		ChunkId:        id,
		Chunk:          content,
		PageNum:        page,
		ChunkPageOrder: index,
		Language:       commonModels.LanguageTag(meta[PayloadLanguage]),
	}, nil
}
