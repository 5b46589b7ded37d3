package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
)

type mockSearcher struct {
	gotN      int
	QueryFunc func(ctx context.Context, vector []float32, n int) ([]vectorDB.Hit, error)
}

func (m *mockSearcher) Query(ctx context.Context, vector []float32, n int) ([]vectorDB.Hit, error) {
	m.gotN = n
	return m.QueryFunc(ctx, vector, n)
}

type mockEmbedder struct {
	GetEmbeddingFunc func(ctx context.Context, query string) ([]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return m.GetEmbeddingFunc(ctx, query)
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

func hit(doc string, page int, text string, sim float64, vec ...float32) vectorDB.Hit {
	return vectorDB.Hit{
		Chunk: commonModels.DocChunk{
			Doc:     commonModels.Document{Name: doc},
			ChunkId: fmt.Sprintf("%s:%d:%s", doc, page, text),
			Chunk:   text,
			PageNum: page,
		},
		Similarity: sim,
		Vector:     vec,
	}
}

func TestParamsFor(t *testing.T) {
	settings := config.Default().Retrieval
	fixed := settings
	fixed.ScaleTopN = false

	tests := []struct {
		name      string
		settings  config.RetrievalSettings
		documents int
		want      Params
	}{
		{"single document", settings, 1, Params{FetchK: 20, K: 10, TopN: 2}},
		{"two documents", settings, 2, Params{FetchK: 40, K: 10, TopN: 3}},
		{"fetch pool capped", settings, 7, Params{FetchK: 50, K: 10, TopN: 5}},
		{"fixed top n", fixed, 1, Params{FetchK: 20, K: 10, TopN: 5}},
		{"zero documents treated as one", settings, 0, Params{FetchK: 20, K: 10, TopN: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParamsFor(tt.settings, tt.documents); got != tt.want {
				t.Errorf("ParamsFor = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSelectMMR_PrefersDiversity(t *testing.T) {
	query := []float32{1, 1}
	// a.pdf p1 and p2 are near duplicates, b.pdf points elsewhere
	hits := []vectorDB.Hit{
		hit("a.pdf", 1, "x", 0.72, 1, 0.02),
		hit("a.pdf", 2, "x", 0.71, 1, 0.01),
		hit("b.pdf", 1, "y", 0.70, 0, 1),
	}
	got := selectMMR(query, hits, 2, 0.5)
	if len(got) != 2 {
		t.Fatalf("picked %d", len(got))
	}
	if got[0].Chunk.PageNum != 1 || got[1].Chunk.Doc.Name != "b.pdf" {
		t.Errorf("picked %s p%d then %s p%d", got[0].Chunk.Doc.Name, got[0].Chunk.PageNum, got[1].Chunk.Doc.Name, got[1].Chunk.PageNum)
	}

	if got := selectMMR(query, hits, 10, 0.5); len(got) != 3 {
		t.Errorf("k larger than the pool should return every hit, got %d", len(got))
	}
	if got := selectMMR(query, nil, 3, 0.5); got != nil {
		t.Errorf("empty pool = %v", got)
	}
}

func TestRerank_DeduplicatesSourcesAndCuts(t *testing.T) {
	r := NewReranker(0.5, 0.10)
	hits := []vectorDB.Hit{
		hit("policy.pdf", 3, "refund window is thirty days", 0.80),
		hit("policy.pdf", 3, "thirty days refund window overlap", 0.78),
		hit("policy.pdf", 4, "shipping is free", 0.60),
		hit("faq.pdf", 1, "refund questions", 0.55),
		hit("noise.pdf", 9, "unrelated", 0.05),
	}

	got := r.Rerank("refund window", hits, 5)

	seen := map[string]bool{}
	for _, e := range got {
		k := fmt.Sprintf("%s#%d", e.Chunk.Doc.Name, e.Chunk.PageNum)
		if seen[k] {
			t.Errorf("duplicate source %s", k)
		}
		seen[k] = true
		if e.Score < 0.10 {
			t.Errorf("%s scored %f below the cutoff", k, e.Score)
		}
	}
	if seen["noise.pdf#9"] {
		t.Error("irrelevant hit should be filtered")
	}
	if len(got) != 3 || got[0].Chunk.Doc.Name != "policy.pdf" || got[0].Chunk.PageNum != 3 {
		t.Errorf("evidence = %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Error("evidence must be ordered by score")
		}
	}

	if got := r.Rerank("refund", hits, 1); len(got) != 1 {
		t.Errorf("topN=1 returned %d", len(got))
	}
}

func TestRerank_LexicalMatchLiftsBengali(t *testing.T) {
	r := NewReranker(0.5, 0)
	hits := []vectorDB.Hit{
		hit("a.pdf", 1, "আবহাওয়া আজ ভালো", 0.5),
		hit("b.pdf", 1, "ফেরত নীতি ত্রিশ দিন", 0.5),
	}
	got := r.Rerank("ফেরত নীতি কী?", hits, 2)
	if got[0].Chunk.Doc.Name != "b.pdf" {
		t.Errorf("lexical match should rank first, got %s", got[0].Chunk.Doc.Name)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Refund-Policy, 2024! ফেরত নীতি।")
	want := []string{"refund", "policy", "2024", "ফেরত", "নীতি"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRetrieve(t *testing.T) {
	embedder := &mockEmbedder{GetEmbeddingFunc: func(ctx context.Context, query string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}

	t.Run("similarity mode", func(t *testing.T) {
		settings := config.Default().Retrieval
		settings.Mode = config.RetrievalModeSimilarity
		index := &mockSearcher{QueryFunc: func(ctx context.Context, vector []float32, n int) ([]vectorDB.Hit, error) {
			return []vectorDB.Hit{
				hit("a.pdf", 1, "refund policy", 0.9, 1, 0),
				hit("a.pdf", 2, "refund again", 0.8, 0.9, 0.1),
			}, nil
		}}
		got, err := NewRetriever(embedder, settings).Retrieve(context.Background(), index, 1, "refund")
		if err != nil {
			t.Fatal(err)
		}
		if index.gotN != 20 {
			t.Errorf("fetch_k = %d, want 20", index.gotN)
		}
		if len(got) != 2 {
			t.Errorf("evidence = %d, want top_n 2", len(got))
		}
	})

	t.Run("empty index is not an error", func(t *testing.T) {
		index := &mockSearcher{QueryFunc: func(ctx context.Context, vector []float32, n int) ([]vectorDB.Hit, error) {
			return nil, nil
		}}
		got, err := NewRetriever(embedder, config.Default().Retrieval).Retrieve(context.Background(), index, 3, "q")
		if err != nil || len(got) != 0 {
			t.Errorf("got %v %v", got, err)
		}
	})

	t.Run("embedding failure", func(t *testing.T) {
		failing := &mockEmbedder{GetEmbeddingFunc: func(ctx context.Context, query string) ([]float32, error) {
			return nil, errors.New("quota")
		}}
		index := &mockSearcher{QueryFunc: func(ctx context.Context, vector []float32, n int) ([]vectorDB.Hit, error) {
			t.Fatal("index must not be queried")
			return nil, nil
		}}
		if _, err := NewRetriever(failing, config.Default().Retrieval).Retrieve(context.Background(), index, 1, "q"); err == nil {
			t.Error("expected an error")
		}
	})
}
