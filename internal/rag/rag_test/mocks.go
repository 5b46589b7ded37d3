package rag_test

import (
	"context"
	"io"
	"sync"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/retrieval"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
)

// MockFiles implements rag.FileStore with a fixed set of categories.
type MockFiles struct {
	Categories   map[string]bool
	OnSaveUpload func(category, filename string, r io.Reader) (string, error)
	OnDeleteUp   func(category, filename string) (bool, error)
	Uploads      []string
}

func (m *MockFiles) CreateCategory(category string) error {
	if m.Categories == nil {
		m.Categories = map[string]bool{}
	}
	m.Categories[category] = true
	return nil
}
func (m *MockFiles) CategoryExists(category string) bool { return m.Categories[category] }
func (m *MockFiles) ListCategories() ([]string, error) {
	out := []string{}
	for c := range m.Categories {
		out = append(out, c)
	}
	return out, nil
}
func (m *MockFiles) DeleteCategory(category string) error {
	delete(m.Categories, category)
	return nil
}
func (m *MockFiles) SaveUpload(category, filename string, r io.Reader) (string, error) {
	if m.OnSaveUpload != nil {
		return m.OnSaveUpload(category, filename, r)
	}
	return "/uploads/" + category + "/" + filename, nil
}
func (m *MockFiles) DeleteUpload(category, filename string) (bool, error) {
	if m.OnDeleteUp != nil {
		return m.OnDeleteUp(category, filename)
	}
	return false, nil
}
func (m *MockFiles) ListUploads(category string) ([]string, error) { return m.Uploads, nil }

type MockPipeline struct {
	OnProcess func(ctx context.Context, path, filename, category string) (chatModel.IngestResult, error)
}

func (m *MockPipeline) Process(ctx context.Context, path, filename, category string) (chatModel.IngestResult, error) {
	if m.OnProcess != nil {
		return m.OnProcess(ctx, path, filename, category)
	}
	return chatModel.IngestResult{Filename: filename, Outcome: chatModel.IngestIndexed, Chunks: 1}, nil
}

type MockIndexStore struct {
	OnDelete         func(ctx context.Context, category, id string) (bool, error)
	OnDeleteCategory func(ctx context.Context, category string) error
}

func (m *MockIndexStore) Exists(ctx context.Context, category, id string) (bool, error) {
	return false, nil
}
func (m *MockIndexStore) Save(ctx context.Context, category, id string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	return nil
}
func (m *MockIndexStore) Load(ctx context.Context, category, id string) (*vectorDB.DocumentIndex, error) {
	return nil, commonModels.ErrNotFound
}
func (m *MockIndexStore) List(ctx context.Context, category string) ([]string, error) {
	return nil, nil
}
func (m *MockIndexStore) Delete(ctx context.Context, category, id string) (bool, error) {
	if m.OnDelete != nil {
		return m.OnDelete(ctx, category, id)
	}
	return false, nil
}
func (m *MockIndexStore) DeleteCategory(ctx context.Context, category string) error {
	if m.OnDeleteCategory != nil {
		return m.OnDeleteCategory(ctx, category)
	}
	return nil
}

type MockMerger struct {
	OnMerge func(ctx context.Context, category string) (*vectorDB.MergedIndex, error)
}

func (m *MockMerger) Merge(ctx context.Context, category string) (*vectorDB.MergedIndex, error) {
	return m.OnMerge(ctx, category)
}

type MockRetriever struct {
	OnRetrieve func(ctx context.Context, index retrieval.Searcher, documents int, question string) ([]commonModels.Evidence, error)
}

func (m *MockRetriever) Retrieve(ctx context.Context, index retrieval.Searcher, documents int, question string) ([]commonModels.Evidence, error) {
	if m.OnRetrieve != nil {
		return m.OnRetrieve(ctx, index, documents, question)
	}
	return nil, nil
}

// MockLLM implements llm.Provider and remembers every request it saw.
type MockLLM struct {
	mu         sync.Mutex
	Requests   []llm.Request
	OnGenerate func(ctx context.Context, req llm.Request) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, req)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockService implements rag.Service for transport tests. Unset hooks return zero values.
type MockService struct {
	OnIngestBatch    func(ctx context.Context, category string, uploads []rag.Upload) []chatModel.IngestResult
	OnListCategories func(ctx context.Context) ([]string, error)
	OnCreateCategory func(ctx context.Context, category string) error
	OnAsk            func(ctx context.Context, category, question string) (chatModel.Answer, error)
	OnAskGeneral     func(ctx context.Context, question string) (chatModel.Answer, error)
	OnDeleteCategory func(ctx context.Context, category string) error
	OnDeleteDocument func(ctx context.Context, category, filename string) (chatModel.DeleteResult, error)
	OnListDocuments  func(ctx context.Context, category string) ([]chatModel.DocumentInfo, error)
	OnHistory        func(ctx context.Context, category string) ([]chatModel.Turn, error)
	OnClearHistory   func(ctx context.Context, category string) error
}

func (m *MockService) Ingest(ctx context.Context, category string, upload rag.Upload) (chatModel.IngestResult, error) {
	results := m.IngestBatch(ctx, category, []rag.Upload{upload})
	if len(results) == 0 {
		return chatModel.IngestResult{}, nil
	}
	return results[0], nil
}

func (m *MockService) IngestBatch(ctx context.Context, category string, uploads []rag.Upload) []chatModel.IngestResult {
	if m.OnIngestBatch != nil {
		return m.OnIngestBatch(ctx, category, uploads)
	}
	results := make([]chatModel.IngestResult, 0, len(uploads))
	for _, u := range uploads {
		results = append(results, chatModel.IngestResult{Filename: u.Filename, Outcome: chatModel.IngestIndexed, Chunks: 1})
	}
	return results
}

func (m *MockService) ListCategories(ctx context.Context) ([]string, error) {
	if m.OnListCategories != nil {
		return m.OnListCategories(ctx)
	}
	return nil, nil
}

func (m *MockService) CreateCategory(ctx context.Context, category string) error {
	if m.OnCreateCategory != nil {
		return m.OnCreateCategory(ctx, category)
	}
	return nil
}

func (m *MockService) Ask(ctx context.Context, category, question string) (chatModel.Answer, error) {
	if m.OnAsk != nil {
		return m.OnAsk(ctx, category, question)
	}
	return chatModel.Answer{}, nil
}

func (m *MockService) AskGeneral(ctx context.Context, question string) (chatModel.Answer, error) {
	if m.OnAskGeneral != nil {
		return m.OnAskGeneral(ctx, question)
	}
	return chatModel.Answer{}, nil
}

func (m *MockService) DeleteCategory(ctx context.Context, category string) error {
	if m.OnDeleteCategory != nil {
		return m.OnDeleteCategory(ctx, category)
	}
	return nil
}

func (m *MockService) DeleteDocument(ctx context.Context, category, filename string) (chatModel.DeleteResult, error) {
	if m.OnDeleteDocument != nil {
		return m.OnDeleteDocument(ctx, category, filename)
	}
	return chatModel.DeleteResult{}, nil
}

func (m *MockService) ListDocuments(ctx context.Context, category string) ([]chatModel.DocumentInfo, error) {
	if m.OnListDocuments != nil {
		return m.OnListDocuments(ctx, category)
	}
	return nil, nil
}

func (m *MockService) History(ctx context.Context, category string) ([]chatModel.Turn, error) {
	if m.OnHistory != nil {
		return m.OnHistory(ctx, category)
	}
	return nil, nil
}

func (m *MockService) ClearHistory(ctx context.Context, category string) error {
	if m.OnClearHistory != nil {
		return m.OnClearHistory(ctx, category)
	}
	return nil
}
