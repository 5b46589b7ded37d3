package rag_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/data/store"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/internal/rag/ingest"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/retrieval"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/internal/worker"
)

type harness struct {
	files     *MockFiles
	pipeline  *MockPipeline
	indexes   *MockIndexStore
	names     *vectorDB.NameMapping
	merger    *MockMerger
	retriever *MockRetriever
	llm       *MockLLM
	history   chatModel.ConversationStore
	settings  config.GenerationSettings
	workers   *worker.Pool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		files:     &MockFiles{Categories: map[string]bool{"policy": true, "empty_cat": true}},
		pipeline:  &MockPipeline{},
		indexes:   &MockIndexStore{},
		names:     vectorDB.NewNameMapping(t.TempDir()),
		merger:    &MockMerger{OnMerge: func(ctx context.Context, category string) (*vectorDB.MergedIndex, error) { return testIndex(t), nil }},
		retriever: &MockRetriever{},
		llm:       &MockLLM{},
		history:   store.NewInMemoryConversationStore(),
		settings:  config.Default().Generation,
	}
}

func (h *harness) service() rag.Service {
	return rag.NewService(rag.Deps{
		Files:      h.files,
		Pipeline:   h.pipeline,
		Indexes:    h.indexes,
		Names:      h.names,
		Merger:     h.merger,
		Retriever:  h.retriever,
		LLM:        h.llm,
		History:    h.history,
		Generation: h.settings,
		Window:     config.HistoryWindow,
		Workers:    h.workers,
	})
}

func testIndex(t *testing.T) *vectorDB.MergedIndex {
	t.Helper()
	idx := &vectorDB.DocumentIndex{DocumentId: "d1", Chunks: []vectorDB.StoredChunk{{
		Chunk:  commonModels.DocChunk{Doc: commonModels.Document{Id: "d1", Name: "refunds.pdf"}, ChunkId: "d1:0", Chunk: "Refunds within 30 days.", PageNum: 1},
		Vector: []float32{1, 0},
	}}}
	merged, err := vectorDB.NewMergedIndex(context.Background(), idx)
	if err != nil {
		t.Fatal(err)
	}
	return merged
}

func evidence(doc string, page int, text string) commonModels.Evidence {
	return commonModels.Evidence{
		Chunk: commonModels.DocChunk{Doc: commonModels.Document{Name: doc}, Chunk: text, PageNum: page},
		Score: 0.8,
	}
}

func testCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func TestAsk_Scenarios(t *testing.T) {
	phrase := config.NotFoundPhrase

	tests := []struct {
		name        string
		category    string
		question    string
		setup       func(t *testing.T, h *harness)
		wantErr     error
		wantAnswer  string
		wantSources []commonModels.SourceRef
		wantLLM     int
	}{
		{
			name:     "empty category is unavailable without generation",
			category: "empty_cat",
			question: "what is X?",
			setup: func(t *testing.T, h *harness) {
				// the real merger over a category with no indexes
				h.merger.OnMerge = vectorDB.NewMerger(h.indexes, 2).Merge
			},
			wantErr: commonModels.ErrUnavailable,
			wantLLM: 0,
		},
		{
			name:     "unknown category",
			category: "ghost",
			question: "anything?",
			wantErr:  commonModels.ErrNotFound,
		},
		{
			name:     "blank question",
			category: "policy",
			question: "   ",
			wantErr:  commonModels.ErrInvalidInput,
		},
		{
			name:     "grounded miss returns the not-found phrase with no sources",
			category: "policy",
			question: "what is quantum computing?",
			setup: func(t *testing.T, h *harness) {
				h.retriever.OnRetrieve = func(ctx context.Context, index retrieval.Searcher, documents int, q string) ([]commonModels.Evidence, error) {
					return []commonModels.Evidence{evidence("refunds.pdf", 1, "Refunds within 30 days.")}, nil
				}
				h.llm.OnGenerate = func(ctx context.Context, req llm.Request) (string, error) {
					return phrase, nil
				}
			},
			wantAnswer:  phrase,
			wantSources: []commonModels.SourceRef{},
			wantLLM:     1,
		},
		{
			name:        "no evidence short-circuits",
			category:    "policy",
			question:    "what is quantum computing?",
			wantAnswer:  phrase,
			wantSources: []commonModels.SourceRef{},
			wantLLM:     0,
		},
		{
			name:     "sources are deduplicated in first appearance order",
			category: "policy",
			question: "how do refunds work?",
			setup: func(t *testing.T, h *harness) {
				h.retriever.OnRetrieve = func(ctx context.Context, index retrieval.Searcher, documents int, q string) ([]commonModels.Evidence, error) {
					if documents != 1 {
						t.Errorf("documents = %d, want 1", documents)
					}
					return []commonModels.Evidence{
						evidence("refunds.pdf", 2, "Refunds within 30 days."),
						evidence("faq.pdf", 1, "Bring the receipt."),
						evidence("refunds.pdf", 2, "overlap of the same page"),
					}, nil
				}
				h.llm.OnGenerate = func(ctx context.Context, req llm.Request) (string, error) {
					return "  Within 30 days, with a receipt.  ", nil
				}
			},
			wantAnswer: "Within 30 days, with a receipt.",
			wantSources: []commonModels.SourceRef{
				{Document: "refunds.pdf", Page: 2},
				{Document: "faq.pdf", Page: 1},
			},
			wantLLM: 1,
		},
		{
			name:     "generation failure",
			category: "policy",
			question: "how do refunds work?",
			setup: func(t *testing.T, h *harness) {
				h.retriever.OnRetrieve = func(ctx context.Context, index retrieval.Searcher, documents int, q string) ([]commonModels.Evidence, error) {
					return []commonModels.Evidence{evidence("refunds.pdf", 1, "x")}, nil
				}
				h.llm.OnGenerate = func(ctx context.Context, req llm.Request) (string, error) {
					return "", errors.New("provider down")
				}
			},
			wantErr: commonModels.ErrGeneration,
			wantLLM: 1,
		},
		{
			name:     "generation deadline",
			category: "policy",
			question: "how do refunds work?",
			setup: func(t *testing.T, h *harness) {
				h.settings.Timeout = 20 * time.Millisecond
				h.retriever.OnRetrieve = func(ctx context.Context, index retrieval.Searcher, documents int, q string) ([]commonModels.Evidence, error) {
					return []commonModels.Evidence{evidence("refunds.pdf", 1, "x")}, nil
				}
				h.llm.OnGenerate = func(ctx context.Context, req llm.Request) (string, error) {
					<-ctx.Done()
					return "", ctx.Err()
				}
			},
			wantErr: commonModels.ErrGeneration,
			wantLLM: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(t, h)
			}

			answer, err := h.service().Ask(testCtx(), tt.category, tt.question)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.llm.Calls() != tt.wantLLM {
				t.Errorf("generation calls = %d, want %d", h.llm.Calls(), tt.wantLLM)
			}
			if tt.wantErr != nil {
				if turns, _ := h.history.AllTurns(testCtx(), tt.category); len(turns) != 0 {
					t.Errorf("failed ask persisted %d turns", len(turns))
				}
				return
			}
			if answer.Text != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", answer.Text, tt.wantAnswer)
			}
			if len(answer.Sources) != len(tt.wantSources) {
				t.Fatalf("sources = %v, want %v", answer.Sources, tt.wantSources)
			}
			for i := range tt.wantSources {
				if answer.Sources[i] != tt.wantSources[i] {
					t.Errorf("source %d = %v, want %v", i, answer.Sources[i], tt.wantSources[i])
				}
			}

			turns, _ := h.history.AllTurns(testCtx(), tt.category)
			if len(turns) != 2 || turns[0].Role != chatModel.RoleUser || turns[1].Role != chatModel.RoleAssistant || turns[1].Content != answer.Text {
				t.Errorf("persisted turns = %+v", turns)
			}
		})
	}
}

func TestAsk_BilingualRouting(t *testing.T) {
	tests := []struct {
		name        string
		question    string
		reply       string
		want        string
		wantSources bool
	}{
		{"bengali question", "ফেরতের সময়সীমা কত?", "", "৩০ দিনের মধ্যে ফেরত দেওয়া যায়।", true},
		{"latin question", "What is the refund window?", "", "Refunds are accepted within 30 days.", true},
		{"bengali question not found", "ভাড়া কত?", config.NotFoundPhrase, config.NotFoundPhrase, false},
		{"bengali question translated not found", "ভাড়া কত?", "প্রদত্ত পাঠে পাওয়া যায়নি", "প্রদত্ত পাঠে পাওয়া যায়নি", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.retriever.OnRetrieve = func(ctx context.Context, index retrieval.Searcher, documents int, q string) ([]commonModels.Evidence, error) {
				return []commonModels.Evidence{evidence("refunds.pdf", 1, "Refunds are accepted within 30 days.")}, nil
			}
			// a model that follows the script instruction it is given
			h.llm.OnGenerate = func(ctx context.Context, req llm.Request) (string, error) {
				if tt.reply != "" {
					return tt.reply, nil
				}
				if strings.Contains(req.System, "Bengali") {
					return "৩০ দিনের মধ্যে ফেরত দেওয়া যায়।", nil
				}
				return "Refunds are accepted within 30 days.", nil
			}

			answer, err := h.service().Ask(testCtx(), "policy", tt.question)
			if err != nil {
				t.Fatal(err)
			}
			if answer.Text != tt.want {
				t.Errorf("answer = %q, want %q", answer.Text, tt.want)
			}
			if got := len(answer.Sources) > 0; got != tt.wantSources {
				t.Errorf("sources = %+v, want sources %t", answer.Sources, tt.wantSources)
			}
			req := h.llm.Requests[0]
			if !strings.Contains(req.Prompt, tt.question) || !strings.Contains(req.Prompt, "Refunds are accepted") {
				t.Errorf("prompt = %q", req.Prompt)
			}
			if !strings.Contains(req.System, config.NotFoundPhrase) || !strings.Contains(req.System, "English sentence") {
				t.Errorf("system prompt must keep the not-found phrase in English: %q", req.System)
			}
		})
	}
}

func TestAsk_HistoryWindow(t *testing.T) {
	h := newHarness(t)
	ctx := testCtx()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		role := chatModel.RoleUser
		if i%2 == 1 {
			role = chatModel.RoleAssistant
		}
		if err := h.history.AppendTurn(ctx, "policy", chatModel.Turn{Role: role, Content: fmt.Sprintf("turn %d", i), Timestamp: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatal(err)
		}
	}
	h.retriever.OnRetrieve = func(ctx context.Context, index retrieval.Searcher, documents int, q string) ([]commonModels.Evidence, error) {
		return []commonModels.Evidence{evidence("refunds.pdf", 1, "text")}, nil
	}

	if _, err := h.service().Ask(ctx, "policy", "next question"); err != nil {
		t.Fatal(err)
	}

	got := h.llm.Requests[0].History
	if len(got) != 20 {
		t.Fatalf("history = %d turns, want 20", len(got))
	}
	if got[0].Content != "turn 5" || got[19].Content != "turn 24" {
		t.Errorf("window = %q .. %q, want oldest first", got[0].Content, got[19].Content)
	}
	if got[0].Role != chatModel.RoleAssistant || got[19].Role != chatModel.RoleUser {
		t.Errorf("roles = %s .. %s", got[0].Role, got[19].Role)
	}
}

type failingHistory struct{ chatModel.ConversationStore }

func (failingHistory) AppendTurn(ctx context.Context, category string, turn chatModel.Turn) error {
	return errors.New("redis down")
}

func (failingHistory) LastTurns(ctx context.Context, category string, n int) ([]chatModel.Turn, error) {
	return nil, errors.New("redis down")
}

func TestAsk_PersistenceFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.history = failingHistory{}
	h.retriever.OnRetrieve = func(ctx context.Context, index retrieval.Searcher, documents int, q string) ([]commonModels.Evidence, error) {
		return []commonModels.Evidence{evidence("refunds.pdf", 1, "text")}, nil
	}

	answer, err := h.service().Ask(testCtx(), "policy", "how do refunds work?")
	if err != nil {
		t.Fatalf("persistence failures must not fail the request: %v", err)
	}
	if answer.Text != "mocked llm response" || len(answer.Sources) != 1 {
		t.Errorf("answer = %+v", answer)
	}
}

func TestAskGeneral(t *testing.T) {
	h := newHarness(t)
	answer, err := h.service().AskGeneral(testCtx(), "What is the capital of France?")
	if err != nil {
		t.Fatal(err)
	}
	if answer.Grounded || len(answer.Sources) != 0 {
		t.Errorf("general answer = %+v", answer)
	}
	req := h.llm.Requests[0]
	if req.Prompt != "What is the capital of France?" || len(req.History) != 0 {
		t.Errorf("request = %+v", req)
	}
	if turns, _ := h.history.AllTurns(testCtx(), ""); len(turns) != 0 {
		t.Error("general answers are not recorded")
	}
}

func TestIngestBatch_IsolatesFailures(t *testing.T) {
	h := newHarness(t)
	h.pipeline.OnProcess = func(ctx context.Context, path, filename, category string) (chatModel.IngestResult, error) {
		if filename == "broken.pdf" {
			return chatModel.IngestResult{Filename: filename, Outcome: chatModel.IngestFailed}, fmt.Errorf("parse: %w", commonModels.ErrExtraction)
		}
		return chatModel.IngestResult{Filename: filename, Outcome: chatModel.IngestIndexed, Chunks: 3}, nil
	}

	results := h.service().IngestBatch(testCtx(), "policy", []rag.Upload{
		{Filename: "a.pdf", Content: strings.NewReader("a")},
		{Filename: "broken.pdf", Content: strings.NewReader("b")},
		{Filename: "c.pdf", Content: strings.NewReader("c")},
	})

	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Outcome != chatModel.IngestIndexed || results[2].Outcome != chatModel.IngestIndexed {
		t.Errorf("healthy files = %+v, %+v", results[0], results[2])
	}
	if results[1].Outcome != chatModel.IngestFailed || results[1].Error == "" {
		t.Errorf("broken file = %+v", results[1])
	}
}

func TestIngestBatch_ParallelKeepsOrder(t *testing.T) {
	h := newHarness(t)
	h.workers = worker.NewPool(3)
	h.pipeline.OnProcess = func(ctx context.Context, path, filename, category string) (chatModel.IngestResult, error) {
		if filename == "a.pdf" {
			time.Sleep(10 * time.Millisecond)
		}
		return chatModel.IngestResult{Filename: filename, Outcome: chatModel.IngestIndexed, Chunks: 1}, nil
	}

	names := []string{"a.pdf", "b.pdf", "a.pdf", "c.pdf", "d.pdf"}
	var uploads []rag.Upload
	for _, n := range names {
		uploads = append(uploads, rag.Upload{Filename: n, Content: strings.NewReader(n)})
	}
	results := h.service().IngestBatch(testCtx(), "policy", uploads)

	if len(results) != len(names) {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results {
		if r.Filename != names[i] {
			t.Errorf("result %d is %q, want %q", i, r.Filename, names[i])
		}
	}
	if results[2].Outcome != chatModel.IngestSkipped {
		t.Errorf("repeated filename = %+v, want skipped", results[2])
	}
	for _, i := range []int{0, 1, 3, 4} {
		if results[i].Outcome != chatModel.IngestIndexed {
			t.Errorf("result %d = %+v", i, results[i])
		}
	}
}

func TestIngestBatch_CancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(testCtx())
	cancel()

	results := h.service().IngestBatch(ctx, "policy", []rag.Upload{
		{Filename: "a.pdf", Content: strings.NewReader("a")},
		{Filename: "b.pdf", Content: strings.NewReader("b")},
	})
	for _, r := range results {
		if r.Outcome != chatModel.IngestFailed || r.Error == "" {
			t.Errorf("cancelled upload = %+v", r)
		}
	}
}

func TestDeleteDocument(t *testing.T) {
	h := newHarness(t)
	docID := ingest.DocumentID("lease.pdf")
	if err := h.names.Put("policy", docID, "lease.pdf"); err != nil {
		t.Fatal(err)
	}
	h.files.OnDeleteUp = func(category, filename string) (bool, error) { return filename == "lease.pdf", nil }
	h.indexes.OnDelete = func(ctx context.Context, category, id string) (bool, error) { return id == docID, nil }
	svc := h.service()

	res, err := svc.DeleteDocument(testCtx(), "policy", "lease.pdf")
	if err != nil || !res.PdfDeleted || !res.IndexDeleted {
		t.Errorf("DeleteDocument = %+v %v", res, err)
	}
	if _, ok, _ := h.names.Lookup("policy", docID); ok {
		t.Error("mapping entry should be removed")
	}

	res, err = svc.DeleteDocument(testCtx(), "policy", "missing.pdf")
	if err != nil || res.PdfDeleted || res.IndexDeleted {
		t.Errorf("missing document = %+v %v", res, err)
	}

	if _, err := svc.DeleteDocument(testCtx(), "policy", "../etc/passwd"); !errors.Is(err, commonModels.ErrInvalidInput) {
		t.Errorf("traversal err = %v", err)
	}
}

func TestDeleteCategory(t *testing.T) {
	h := newHarness(t)
	var indexesDeleted bool
	h.indexes.OnDeleteCategory = func(ctx context.Context, category string) error {
		indexesDeleted = category == "policy"
		return nil
	}
	_ = h.history.AppendTurn(testCtx(), "policy", chatModel.Turn{Role: chatModel.RoleUser, Content: "hi"})
	svc := h.service()

	if err := svc.DeleteCategory(testCtx(), "policy"); err != nil {
		t.Fatal(err)
	}
	if !indexesDeleted || h.files.CategoryExists("policy") {
		t.Error("indexes and files should be gone")
	}
	if turns, _ := h.history.AllTurns(testCtx(), "policy"); len(turns) != 0 {
		t.Error("history should be cleared")
	}
	if err := svc.DeleteCategory(testCtx(), "policy"); !errors.Is(err, commonModels.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	h := newHarness(t)
	h.files.Uploads = []string{"b.pdf", "a.pdf"}
	_ = h.names.Put("policy", ingest.DocumentID("a.pdf"), "a.pdf")
	_ = h.names.Put("policy", ingest.DocumentID("orphan.pdf"), "orphan.pdf")

	docs, err := h.service().ListDocuments(testCtx(), "policy")
	if err != nil {
		t.Fatal(err)
	}
	want := []chatModel.DocumentInfo{
		{Filename: "a.pdf", DocumentId: ingest.DocumentID("a.pdf"), HasPdf: true, Indexed: true},
		{Filename: "b.pdf", DocumentId: ingest.DocumentID("b.pdf"), HasPdf: true, Indexed: false},
		{Filename: "orphan.pdf", DocumentId: ingest.DocumentID("orphan.pdf"), HasPdf: false, Indexed: true},
	}
	if len(docs) != len(want) {
		t.Fatalf("docs = %+v", docs)
	}
	for i := range want {
		if docs[i] != want[i] {
			t.Errorf("doc %d = %+v, want %+v", i, docs[i], want[i])
		}
	}
}

func TestHistoryAndClear(t *testing.T) {
	h := newHarness(t)
	svc := h.service()
	ctx := testCtx()
	for _, turn := range []chatModel.Turn{
		{Role: chatModel.RoleUser, Content: "first", Timestamp: time.Now()},
		{Role: chatModel.RoleAssistant, Content: "second", Timestamp: time.Now()},
	} {
		if err := h.history.AppendTurn(ctx, "policy", turn); err != nil {
			t.Fatal(err)
		}
	}

	turns, err := svc.History(ctx, "policy")
	if err != nil || len(turns) != 2 || turns[0].Content != "first" {
		t.Fatalf("History = %+v %v", turns, err)
	}

	if err := svc.ClearHistory(ctx, "policy"); err != nil {
		t.Fatal(err)
	}
	if turns, _ := svc.History(ctx, "policy"); len(turns) != 0 {
		t.Errorf("history after clear = %+v", turns)
	}

	if _, err := svc.History(ctx, "../x"); !errors.Is(err, commonModels.ErrInvalidInput) {
		t.Errorf("invalid category error = %v", err)
	}
}

func TestDeleteDocument_UnderscoreFilename(t *testing.T) {
	h := newHarness(t)
	h.files.OnDeleteUp = func(category, filename string) (bool, error) { return filename == "_report.pdf", nil }

	res, err := h.service().DeleteDocument(testCtx(), "policy", "_report.pdf")
	if err != nil || !res.PdfDeleted {
		t.Errorf("DeleteDocument(_report.pdf) = %+v %v", res, err)
	}
	if _, err := h.service().ListDocuments(testCtx(), "_policy"); !errors.Is(err, commonModels.ErrInvalidInput) {
		t.Errorf("reserved category error = %v", err)
	}
}
