package mcpserver

import (
	"context"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type AskInput struct {
	Category string `json:"category" jsonschema:"the document category to answer from"`
	Question string `json:"question" jsonschema:"the question, in English or Bengali"`
}

type AskGeneralInput struct {
	Question string `json:"question" jsonschema:"the question for the general assistant"`
}

type AnswerOutput struct {
	Answer  string                   `json:"answer"`
	Sources []commonModels.SourceRef `json:"sources"`
}

type ListCategoriesInput struct{}

type ListCategoriesOutput struct {
	Categories []string `json:"categories"`
}

type ListDocumentsInput struct {
	Category string `json:"category" jsonschema:"the document category"`
}

type ListDocumentsOutput struct {
	Documents []chatModel.DocumentInfo `json:"documents"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the documents of a category, with page citations",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_general",
		Description: "Answer a general question without document retrieval",
	}, s.handleAskGeneral)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the document categories",
	}, s.handleListCategories)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents of a category and whether each is indexed",
	}, s.handleListDocuments)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AnswerOutput, error) {
	answer, err := s.service.Ask(ctx, input.Category, input.Question)
	if err != nil {
		s.logger.WithTrace(ctx).Warn("ask tool failed", "category", input.Category, "error", err)
		return nil, AnswerOutput{}, err
	}
	return nil, toOutput(answer), nil
}

func (s *Server) handleAskGeneral(ctx context.Context, _ *mcp.CallToolRequest, input AskGeneralInput) (*mcp.CallToolResult, AnswerOutput, error) {
	answer, err := s.service.AskGeneral(ctx, input.Question)
	if err != nil {
		return nil, AnswerOutput{}, err
	}
	return nil, toOutput(answer), nil
}

func (s *Server) handleListCategories(ctx context.Context, _ *mcp.CallToolRequest, _ ListCategoriesInput) (*mcp.CallToolResult, ListCategoriesOutput, error) {
	categories, err := s.service.ListCategories(ctx)
	if err != nil {
		return nil, ListCategoriesOutput{}, err
	}
	if categories == nil {
		categories = []string{}
	}
	return nil, ListCategoriesOutput{Categories: categories}, nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, input ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.service.ListDocuments(ctx, input.Category)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	if docs == nil {
		docs = []chatModel.DocumentInfo{}
	}
	return nil, ListDocumentsOutput{Documents: docs}, nil
}

func toOutput(answer chatModel.Answer) AnswerOutput {
	sources := answer.Sources
	if sources == nil {
		sources = []commonModels.SourceRef{}
	}
	return AnswerOutput{Answer: answer.Text, Sources: sources}
}
