package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag"
	ragmock "github.com/akolanti/DocChat/internal/rag/rag_test"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// run executes the root command against svc with fresh flag values.
func run(t *testing.T, svc rag.Service, args ...string) (string, error) {
	t.Helper()
	service = svc
	t.Cleanup(func() { service = nil })

	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands_Registered(t *testing.T) {
	want := []string{"ingest", "ask", "categories", "documents", "delete-category", "delete-document", "mcp"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("expected persistent --config flag")
	}
}

func TestAsk(t *testing.T) {
	var gotCategory, gotQuestion string
	svc := &ragmock.MockService{
		OnAsk: func(ctx context.Context, category, question string) (chatModel.Answer, error) {
			gotCategory, gotQuestion = category, question
			return chatModel.Answer{
				Text:    "Refunds within 30 days.",
				Sources: []commonModels.SourceRef{{Document: "refunds.pdf", Page: 2}},
			}, nil
		},
		OnAskGeneral: func(ctx context.Context, question string) (chatModel.Answer, error) {
			return chatModel.Answer{Text: "Paris."}, nil
		},
	}

	t.Run("category answer with sources", func(t *testing.T) {
		out, err := run(t, svc, "ask", "--category", "policy", "refund window?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotCategory != "policy" || gotQuestion != "refund window?" {
			t.Errorf("got (%q, %q)", gotCategory, gotQuestion)
		}
		if !strings.Contains(out, "Refunds within 30 days.") || !strings.Contains(out, "refunds.pdf, page 2") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("json output", func(t *testing.T) {
		out, err := run(t, svc, "ask", "-c", "policy", "--json", "refund window?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, `"answer": "Refunds within 30 days."`) || !strings.Contains(out, `"document": "refunds.pdf"`) {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("general", func(t *testing.T) {
		out, err := run(t, svc, "ask", "--general", "capital of France?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(out) != "Paris." {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("category required", func(t *testing.T) {
		if _, err := run(t, svc, "ask", "question"); err == nil {
			t.Error("expected error without --category")
		}
	})

	t.Run("service error", func(t *testing.T) {
		failing := &ragmock.MockService{
			OnAsk: func(ctx context.Context, category, question string) (chatModel.Answer, error) {
				return chatModel.Answer{}, commonModels.ErrUnavailable
			},
		}
		if _, err := run(t, failing, "ask", "-c", "policy", "q"); !errors.Is(err, commonModels.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "lease.pdf")
	bad := filepath.Join(dir, "broken.pdf")
	for _, p := range []string{good, bad} {
		if err := os.WriteFile(p, []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var created string
	svc := &ragmock.MockService{
		OnCreateCategory: func(ctx context.Context, category string) error {
			created = category
			return nil
		},
		OnIngestBatch: func(ctx context.Context, category string, uploads []rag.Upload) []chatModel.IngestResult {
			var results []chatModel.IngestResult
			for _, u := range uploads {
				if u.Filename == "broken.pdf" {
					results = append(results, chatModel.IngestResult{Filename: u.Filename, Outcome: chatModel.IngestFailed, Error: "no extractable text"})
					continue
				}
				results = append(results, chatModel.IngestResult{Filename: u.Filename, Outcome: chatModel.IngestIndexed, Chunks: 3, Method: commonModels.ExtractionDirect})
			}
			return results
		},
	}

	t.Run("all indexed", func(t *testing.T) {
		out, err := run(t, svc, "ingest", "-c", "leases", good)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created != "leases" {
			t.Errorf("category not created, got %q", created)
		}
		if !strings.Contains(out, "indexed  lease.pdf (3 chunks") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("partial failure", func(t *testing.T) {
		out, err := run(t, svc, "ingest", "-c", "leases", good, bad)
		if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
			t.Errorf("expected partial failure error, got %v", err)
		}
		if !strings.Contains(out, "failed   broken.pdf: no extractable text") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("unreadable file does not stop the rest", func(t *testing.T) {
		out, err := run(t, svc, "ingest", "-c", "leases", filepath.Join(dir, "nope.pdf"), good)
		if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
			t.Errorf("expected partial failure error, got %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 || !strings.HasPrefix(lines[0], "failed   nope.pdf: ") || !strings.HasPrefix(lines[1], "indexed  lease.pdf") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("category flag required", func(t *testing.T) {
		if _, err := run(t, svc, "ingest", good); err == nil {
			t.Error("expected error without --category")
		}
	})
}

func TestManageCommands(t *testing.T) {
	var deletedCategory, deletedDoc string
	svc := &ragmock.MockService{
		OnListCategories: func(ctx context.Context) ([]string, error) {
			return []string{"leases", "policy"}, nil
		},
		OnListDocuments: func(ctx context.Context, category string) ([]chatModel.DocumentInfo, error) {
			return []chatModel.DocumentInfo{
				{Filename: "a.pdf", HasPdf: true, Indexed: true},
				{Filename: "b.pdf", HasPdf: true},
			}, nil
		},
		OnDeleteCategory: func(ctx context.Context, category string) error {
			deletedCategory = category
			return nil
		},
		OnDeleteDocument: func(ctx context.Context, category, filename string) (chatModel.DeleteResult, error) {
			deletedDoc = category + "/" + filename
			return chatModel.DeleteResult{PdfDeleted: true}, nil
		},
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"categories", []string{"categories"}, "leases\npolicy\n"},
		{"documents", []string{"documents", "leases"}, "a.pdf\tindexed\nb.pdf\tnot indexed\n"},
		{"delete category", []string{"delete-category", "leases"}, "deleted category leases\n"},
		{"delete document", []string{"delete-document", "leases", "a.pdf"}, "pdf deleted: true, index deleted: false\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, svc, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}

	if deletedCategory != "leases" || deletedDoc != "leases/a.pdf" {
		t.Errorf("deletes not forwarded: %q %q", deletedCategory, deletedDoc)
	}

	t.Run("no categories", func(t *testing.T) {
		out, err := run(t, &ragmock.MockService{}, "categories")
		if err != nil || out != "No categories.\n" {
			t.Errorf("got %q, %v", out, err)
		}
	})

	t.Run("wrong arg count", func(t *testing.T) {
		if _, err := run(t, svc, "delete-document", "leases"); err == nil {
			t.Error("expected args error")
		}
	})
}
