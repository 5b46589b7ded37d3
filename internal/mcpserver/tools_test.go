package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	ragmock "github.com/akolanti/DocChat/internal/rag/rag_test"
)

func TestHandleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the answer with sources", func(t *testing.T) {
		s := New(&ragmock.MockService{
			OnAsk: func(ctx context.Context, category, question string) (chatModel.Answer, error) {
				if category != "policy" || question != "refund window?" {
					t.Errorf("got %q %q", category, question)
				}
				return chatModel.Answer{Text: "30 days", Sources: []commonModels.SourceRef{{Document: "refunds.pdf", Page: 3}}}, nil
			},
		})
		_, out, err := s.handleAsk(ctx, nil, AskInput{Category: "policy", Question: "refund window?"})
		if err != nil {
			t.Fatal(err)
		}
		if out.Answer != "30 days" || len(out.Sources) != 1 || out.Sources[0].Page != 3 {
			t.Errorf("output = %+v", out)
		}
	})

	t.Run("not found answer has empty sources", func(t *testing.T) {
		s := New(&ragmock.MockService{
			OnAsk: func(ctx context.Context, category, question string) (chatModel.Answer, error) {
				return chatModel.Answer{Text: "Not found in the provided text."}, nil
			},
		})
		_, out, err := s.handleAsk(ctx, nil, AskInput{Category: "policy", Question: "q"})
		if err != nil || out.Sources == nil || len(out.Sources) != 0 {
			t.Errorf("output = %+v, err = %v", out, err)
		}
	})

	t.Run("service errors are returned", func(t *testing.T) {
		s := New(&ragmock.MockService{
			OnAsk: func(ctx context.Context, category, question string) (chatModel.Answer, error) {
				return chatModel.Answer{}, commonModels.ErrUnavailable
			},
		})
		_, _, err := s.handleAsk(ctx, nil, AskInput{Category: "empty", Question: "q"})
		if !errors.Is(err, commonModels.ErrUnavailable) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestListingTools(t *testing.T) {
	ctx := context.Background()
	s := New(&ragmock.MockService{
		OnListCategories: func(ctx context.Context) ([]string, error) { return nil, nil },
		OnListDocuments: func(ctx context.Context, category string) ([]chatModel.DocumentInfo, error) {
			return []chatModel.DocumentInfo{{Filename: "a.pdf", Indexed: true}}, nil
		},
		OnAskGeneral: func(ctx context.Context, question string) (chatModel.Answer, error) {
			return chatModel.Answer{Text: "Paris"}, nil
		},
	})

	_, cats, err := s.handleListCategories(ctx, nil, ListCategoriesInput{})
	if err != nil || cats.Categories == nil || len(cats.Categories) != 0 {
		t.Errorf("categories = %+v, err = %v", cats, err)
	}
	_, docs, err := s.handleListDocuments(ctx, nil, ListDocumentsInput{Category: "policy"})
	if err != nil || len(docs.Documents) != 1 || docs.Documents[0].Filename != "a.pdf" {
		t.Errorf("documents = %+v, err = %v", docs, err)
	}
	_, general, err := s.handleAskGeneral(ctx, nil, AskGeneralInput{Question: "capital of France?"})
	if err != nil || general.Answer != "Paris" || len(general.Sources) != 0 {
		t.Errorf("general = %+v, err = %v", general, err)
	}
}

func TestHandlerIsServed(t *testing.T) {
	if New(&ragmock.MockService{}).Handler() == nil {
		t.Fatal("no streamable handler")
	}
}
