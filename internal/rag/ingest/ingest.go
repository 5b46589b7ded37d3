package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

type pageExtractor interface {
	Extract(ctx context.Context, path string) ([]commonModels.Page, error)
}

type scanChecker interface {
	IsScanned(ctx context.Context, path string) bool
}

// Pipeline turns one uploaded file into a document index: detect, extract, chunk, embed, persist.
type Pipeline struct {
	detector   scanChecker
	ocr        pageExtractor
	ocrEnabled bool
	direct     func(ctx context.Context, path string) ([]commonModels.Page, error)
	chunker    *Chunker
	builder    *IndexBuilder
	logger     *logger_i.Logger
}

func NewPipeline(settings *config.Settings, builder *IndexBuilder, runner CommandRunner) *Pipeline {
	return &Pipeline{
		detector:   NewScanDetector(settings.OCR),
		ocr:        NewOCRExtractor(settings.OCR, runner),
		ocrEnabled: settings.OCR.Enabled,
		direct:     extractAllPDFPages,
		chunker:    NewChunker(settings.Chunking),
		builder:    builder,
		logger:     logger_i.NewLogger("Document Ingestion"),
	}
}

func extractAllPDFPages(ctx context.Context, path string) ([]commonModels.Page, error) {
	pages, _, err := extractPDF(ctx, path, 0)
	return pages, err
}

// Process ingests the file at path under its original filename. Re-ingesting a filename that
// already has an index is a no-op that reports IngestSkipped.
func (p *Pipeline) Process(ctx context.Context, path, filename, category string) (chatModel.IngestResult, error) {
	docID := DocumentID(filename)
	log := p.logger.WithTrace(ctx).With("filename", filename, "category", category, "documentId", docID)
	result := chatModel.IngestResult{Filename: filename, DocumentId: docID, Outcome: chatModel.IngestFailed}
	defer func() { metrics.RecordIngestion(string(result.Outcome)) }()

	docType := getDocType(filename)
	if docType == commonModels.ERR {
		return result, fmt.Errorf("%s: %w", filename, commonModels.ErrUnsupportedDocument)
	}

	exists, err := p.builder.Exists(ctx, category, docID)
	if err != nil {
		return result, fmt.Errorf("check index: %w", err)
	}
	if exists {
		log.Info("document already indexed, skipping ingestion")
		result.Outcome = chatModel.IngestSkipped
		return result, nil
	}

	doc := commonModels.Document{
		Id:                  docID,
		Name:                filename,
		Category:            category,
		LastIngestTimestamp: time.Now().UTC(),
		ContentType:         docType,
	}

	pages, method, err := p.extract(ctx, path, docType)
	result.Method = method
	if err != nil {
		if errors.Is(err, commonModels.ErrNoExtractableText) {
			log.Warn("ocr produced no text, document left unindexed")
		}
		return result, err
	}

	chunks := p.chunker.Split(doc, pages)
	if len(chunks) == 0 {
		log.Warn("document produced no chunks, nothing indexed", "method", method, "pages", len(pages))
		result.Outcome = chatModel.IngestEmpty
		return result, nil
	}
	log.Debug("document chunked", "pages", len(pages), "chunks", len(chunks))

	built, err := p.builder.Build(ctx, doc, chunks)
	if err != nil {
		return result, err
	}
	result.Chunks = len(chunks)
	result.Outcome = chatModel.IngestIndexed
	if !built {
		// another upload of the same filename won the race
		result.Outcome = chatModel.IngestSkipped
	}
	return result, nil
}

func (p *Pipeline) extract(ctx context.Context, path string, docType commonModels.DocType) ([]commonModels.Page, commonModels.ExtractionMethod, error) {
	if docType != commonModels.PDF {
		pages, err := extractDocxTxtRtf(path)
		if err != nil {
			return nil, commonModels.ExtractionDirect, fmt.Errorf("%w: %w", commonModels.ErrExtraction, err)
		}
		return pages, commonModels.ExtractionDirect, nil
	}

	if p.detector.IsScanned(ctx, path) {
		if !p.ocrEnabled {
			p.logger.WithTrace(ctx).Warn("document looks scanned but ocr is disabled, using the text layer", "path", path)
		} else {
			pages, err := p.ocr.Extract(ctx, path)
			if err != nil {
				return nil, commonModels.ExtractionOCR, fmt.Errorf("%w: %w", commonModels.ErrExtraction, err)
			}
			if len(pages) == 0 {
				return nil, commonModels.ExtractionOCR, commonModels.ErrNoExtractableText
			}
			return pages, commonModels.ExtractionOCR, nil
		}
	}

	pages, err := p.direct(ctx, path)
	if err != nil {
		return nil, commonModels.ExtractionDirect, fmt.Errorf("%w: %w", commonModels.ErrExtraction, err)
	}
	return pages, commonModels.ExtractionDirect, nil
}

func getDocType(docPath string) commonModels.DocType {
	switch strings.ToLower(filepath.Ext(docPath)) {
	case ".pdf":
		return commonModels.PDF
	case ".docx":
		return commonModels.DOCX
	case ".txt":
		return commonModels.TXT
	case ".odt":
		return commonModels.ODT
	case ".rtf":
		return commonModels.RTF
	default:
		return commonModels.ERR
	}
}
