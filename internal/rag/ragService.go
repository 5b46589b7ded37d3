package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/data/fileStore"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag/ingest"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/retrieval"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/internal/worker"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

/*
Service is the public contract used by the HTTP handlers, the CLI and the MCP server.
service holds the wired capabilities (stores, embedder, generator) and stays private so
callers cannot reach around it; tests swap any capability through Deps.
*/
type Service interface {
	Ingest(ctx context.Context, category string, upload Upload) (chatModel.IngestResult, error)
	IngestBatch(ctx context.Context, category string, uploads []Upload) []chatModel.IngestResult
	ListCategories(ctx context.Context) ([]string, error)
	CreateCategory(ctx context.Context, category string) error
	Ask(ctx context.Context, category, question string) (chatModel.Answer, error)
	AskGeneral(ctx context.Context, question string) (chatModel.Answer, error)
	DeleteCategory(ctx context.Context, category string) error
	DeleteDocument(ctx context.Context, category, filename string) (chatModel.DeleteResult, error)
	ListDocuments(ctx context.Context, category string) ([]chatModel.DocumentInfo, error)
	History(ctx context.Context, category string) ([]chatModel.Turn, error)
	ClearHistory(ctx context.Context, category string) error
}

// Upload is one file handed to ingestion under its original filename.
type Upload struct {
	Filename string
	Content  io.Reader
}

// FileStore is the on-disk category and upload layout; *fileStore.Store implements it.
type FileStore interface {
	CreateCategory(category string) error
	CategoryExists(category string) bool
	ListCategories() ([]string, error)
	DeleteCategory(category string) error
	SaveUpload(category, filename string, r io.Reader) (string, error)
	DeleteUpload(category, filename string) (bool, error)
	ListUploads(category string) ([]string, error)
}

type Ingester interface {
	Process(ctx context.Context, path, filename, category string) (chatModel.IngestResult, error)
}

type IndexMerger interface {
	Merge(ctx context.Context, category string) (*vectorDB.MergedIndex, error)
}

type EvidenceRetriever interface {
	Retrieve(ctx context.Context, index retrieval.Searcher, documents int, question string) ([]commonModels.Evidence, error)
}

type Deps struct {
	Files      FileStore
	Pipeline   Ingester
	Indexes    vectorDB.IndexStore
	Names      *vectorDB.NameMapping
	Merger     IndexMerger
	Retriever  EvidenceRetriever
	LLM        llm.Provider
	History    chatModel.ConversationStore
	Generation config.GenerationSettings
	Window     int
	// Workers runs IngestBatch; nil ingests one file at a time.
	Workers *worker.Pool
}

type service struct {
	files     FileStore
	pipeline  Ingester
	indexes   vectorDB.IndexStore
	names     *vectorDB.NameMapping
	merger    IndexMerger
	retriever EvidenceRetriever
	history   *historyWindow
	composer  *composer
	workers   *worker.Pool
	logger    *logger_i.Logger
}

func NewService(d Deps) Service {
	if d.Workers == nil {
		d.Workers = worker.NewPool(1)
	}
	return &service{
		files:     d.Files,
		pipeline:  d.Pipeline,
		indexes:   d.Indexes,
		names:     d.Names,
		merger:    d.Merger,
		retriever: d.Retriever,
		history:   newHistoryWindow(d.History, d.Window),
		composer:  newComposer(d.LLM, d.Generation),
		workers:   d.Workers,
		logger:    logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Ingest(ctx context.Context, category string, upload Upload) (chatModel.IngestResult, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	result := chatModel.IngestResult{Filename: upload.Filename, Outcome: chatModel.IngestFailed}
	path, err := s.files.SaveUpload(category, upload.Filename, upload.Content)
	if err != nil {
		return result, err
	}
	return s.pipeline.Process(ctx, path, upload.Filename, category)
}

// IngestBatch ingests every upload independently; one failing file never stops the rest.
// Results keep the order of uploads. A filename repeated in the batch is skipped after its first occurrence.
func (s *service) IngestBatch(ctx context.Context, category string, uploads []Upload) []chatModel.IngestResult {
	log := s.logger.WithTrace(ctx).With("category", category)
	results := make([]chatModel.IngestResult, len(uploads))

	var pending []int
	seen := make(map[string]bool, len(uploads))
	for i, u := range uploads {
		if seen[u.Filename] {
			results[i] = chatModel.IngestResult{Filename: u.Filename, Outcome: chatModel.IngestSkipped, Error: "duplicate filename in upload"}
			continue
		}
		seen[u.Filename] = true
		pending = append(pending, i)
	}

	skipped := s.workers.Run(ctx, len(pending), func(ctx context.Context, j int) {
		i := pending[j]
		u := uploads[i]
		res, err := s.Ingest(ctx, category, u)
		if err != nil {
			log.Warn("ingestion failed", "filename", u.Filename, "error", err)
			res.Filename = u.Filename
			res.Outcome = chatModel.IngestFailed
			res.Error = err.Error()
		}
		results[i] = res
	})
	for _, j := range skipped {
		i := pending[j]
		results[i] = chatModel.IngestResult{Filename: uploads[i].Filename, Outcome: chatModel.IngestFailed, Error: ctx.Err().Error()}
	}
	return results
}

func (s *service) ListCategories(ctx context.Context) ([]string, error) {
	return s.files.ListCategories()
}

func (s *service) CreateCategory(ctx context.Context, category string) error {
	return s.files.CreateCategory(category)
}

func (s *service) Ask(ctx context.Context, category, question string) (answer chatModel.Answer, err error) {
	start := time.Now()
	defer func() { metrics.CaptureAskMetrics("grounded", askStatus(err), time.Since(start)) }()

	if err := validateQuestion(question); err != nil {
		return chatModel.Answer{}, err
	}
	if err := fileStore.ValidateCategory(category); err != nil {
		return chatModel.Answer{}, err
	}
	if !s.files.CategoryExists(category) {
		return chatModel.Answer{}, fmt.Errorf("category %s: %w", category, commonModels.ErrNotFound)
	}
	log := s.logger.WithTrace(ctx).With("category", category)

	turns := s.history.recent(ctx, category)

	merged, err := s.executeMergeStep(ctx, category)
	if err != nil {
		return chatModel.Answer{}, err
	}

	evidence, err := s.retriever.Retrieve(ctx, merged, merged.Documents(), question)
	if err != nil {
		log.Error("retrieval failed", "error", err)
		return chatModel.Answer{}, fmt.Errorf("retrieve evidence: %w", err)
	}

	answer, err = s.composer.grounded(ctx, question, turns, evidence)
	if err != nil {
		return chatModel.Answer{}, err
	}

	s.history.record(ctx, category, question, answer.Text)
	return answer, nil
}

func (s *service) AskGeneral(ctx context.Context, question string) (answer chatModel.Answer, err error) {
	start := time.Now()
	defer func() { metrics.CaptureAskMetrics("general", askStatus(err), time.Since(start)) }()

	if err := validateQuestion(question); err != nil {
		return chatModel.Answer{}, err
	}
	return s.composer.general(ctx, question)
}

func (s *service) DeleteCategory(ctx context.Context, category string) error {
	if err := fileStore.ValidateCategory(category); err != nil {
		return err
	}
	if !s.files.CategoryExists(category) {
		return fmt.Errorf("category %s: %w", category, commonModels.ErrNotFound)
	}
	log := s.logger.WithTrace(ctx).With("category", category)

	if err := s.indexes.DeleteCategory(ctx, category); err != nil {
		return fmt.Errorf("delete indexes of %s: %w", category, err)
	}
	if err := s.files.DeleteCategory(category); err != nil && !errors.Is(err, commonModels.ErrNotFound) {
		return err
	}
	if err := s.history.clear(ctx, category); err != nil {
		log.Warn("could not clear chat history of deleted category", "error", err)
	}
	log.Info("category deleted")
	return nil
}

// DeleteDocument removes the upload and the index independently. Missing parts only clear their flag.
func (s *service) DeleteDocument(ctx context.Context, category, filename string) (chatModel.DeleteResult, error) {
	var result chatModel.DeleteResult
	if err := fileStore.ValidateCategory(category); err != nil {
		return result, err
	}
	if err := fileStore.ValidateName(filename); err != nil {
		return result, err
	}
	log := s.logger.WithTrace(ctx).With("category", category, "filename", filename)

	pdfDeleted, err := s.files.DeleteUpload(category, filename)
	if err != nil {
		return result, err
	}
	result.PdfDeleted = pdfDeleted

	docID := ingest.DocumentID(filename)
	indexDeleted, err := s.indexes.Delete(ctx, category, docID)
	if err != nil {
		return result, fmt.Errorf("delete index: %w", err)
	}
	result.IndexDeleted = indexDeleted

	if _, err := s.names.Remove(category, docID); err != nil {
		log.Warn("could not remove name mapping entry", "documentId", docID, "error", err)
	}
	log.Info("document deleted", "pdfDeleted", result.PdfDeleted, "indexDeleted", result.IndexDeleted)
	return result, nil
}

// ListDocuments joins the uploads with the name mapping, so indexes whose upload was removed still show.
func (s *service) ListDocuments(ctx context.Context, category string) ([]chatModel.DocumentInfo, error) {
	if err := fileStore.ValidateCategory(category); err != nil {
		return nil, err
	}
	if !s.files.CategoryExists(category) {
		return nil, fmt.Errorf("category %s: %w", category, commonModels.ErrNotFound)
	}
	uploads, err := s.files.ListUploads(category)
	if err != nil {
		return nil, err
	}
	mapping, err := s.names.Entries(category)
	if err != nil {
		return nil, err
	}

	byName := map[string]*chatModel.DocumentInfo{}
	for _, name := range uploads {
		byName[name] = &chatModel.DocumentInfo{Filename: name, DocumentId: ingest.DocumentID(name), HasPdf: true}
	}
	for id, name := range mapping {
		info, ok := byName[name]
		if !ok {
			info = &chatModel.DocumentInfo{Filename: name, DocumentId: id}
			byName[name] = info
		}
		info.Indexed = true
	}

	docs := make([]chatModel.DocumentInfo, 0, len(byName))
	for _, info := range byName {
		docs = append(docs, *info)
	}
	slices.SortFunc(docs, func(a, b chatModel.DocumentInfo) int { return strings.Compare(a.Filename, b.Filename) })
	return docs, nil
}

func (s *service) History(ctx context.Context, category string) ([]chatModel.Turn, error) {
	if err := fileStore.ValidateCategory(category); err != nil {
		return nil, err
	}
	return s.history.all(ctx, category)
}

func (s *service) ClearHistory(ctx context.Context, category string) error {
	if err := fileStore.ValidateCategory(category); err != nil {
		return err
	}
	return s.history.clear(ctx, category)
}
