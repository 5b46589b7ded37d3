package api

import (
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

type ErrorResponse struct {
	Code    int    `json:"code" example:"404"`
	Message string `json:"message" example:"category not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type MessageResponse struct {
	Message string `json:"message" example:"category created"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

type UploadResponse struct {
	Message string                   `json:"message" example:"Successfully handled files for category 'policy'"`
	Results []chatModel.IngestResult `json:"results"`
}

type DocumentsResponse struct {
	Category  string                   `json:"category"`
	Documents []chatModel.DocumentInfo `json:"documents"`
}

type DeleteDocumentResponse struct {
	Filename     string `json:"filename"`
	PdfDeleted   bool   `json:"pdf_deleted"`
	IndexDeleted bool   `json:"index_deleted"`
}

type StartSessionResponse struct {
	Message   string `json:"message" example:"chat session started"`
	SessionId string `json:"session_id" example:"0b6f6a8e-2f4e-4c1e-9d55-3f3a2c1b0d9e"`
	Category  string `json:"category"`
}

type ChatResponse struct {
	Answer  string                   `json:"answer"`
	Sources []commonModels.SourceRef `json:"sources"`
}

type AiSolutionResponse struct {
	Answer string `json:"answer"`
}

type HistoryResponse struct {
	Category string           `json:"category"`
	Turns    []chatModel.Turn `json:"turns"`
}

// requests---------------------

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required" example:"policy"`
}

type StartSessionRequest struct {
	Category string `json:"category" validate:"required" example:"policy"`
}

// ChatRequest needs either a session id from /chat/start or a category.
type ChatRequest struct {
	SessionId string `json:"session_id,omitempty"`
	Category  string `json:"category,omitempty"`
	Question  string `json:"question" validate:"required" example:"What is the refund window?"`
}

type AiSolutionRequest struct {
	Message string `json:"message" validate:"required" example:"What is the capital of France?"`
}
