package adapter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/DocChat/internal/api"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

func ToChatResponse(answer chatModel.Answer) api.ChatResponse {
	sources := answer.Sources
	if sources == nil {
		sources = []commonModels.SourceRef{}
	}
	return api.ChatResponse{Answer: answer.Text, Sources: sources}
}

func ToUploadResponse(category string, results []chatModel.IngestResult) api.UploadResponse {
	return api.UploadResponse{
		Message: fmt.Sprintf("Successfully handled files for category '%s'", category),
		Results: results,
	}
}

func ToDeleteDocumentResponse(filename string, result chatModel.DeleteResult) api.DeleteDocumentResponse {
	return api.DeleteDocumentResponse{
		Filename:     filename,
		PdfDeleted:   result.PdfDeleted,
		IndexDeleted: result.IndexDeleted,
	}
}

func ToHistoryResponse(category string, turns []chatModel.Turn) api.HistoryResponse {
	if turns == nil {
		turns = []chatModel.Turn{}
	}
	return api.HistoryResponse{Category: category, Turns: turns}
}

func BadRequest(message string, code int) api.ErrorResponse {
	return api.ErrorResponse{Code: code, Message: message}
}

// ToErrorResponse maps a service error to its HTTP status and body.
// Generation failures keep the provider message out of the response.
func ToErrorResponse(err error) api.ErrorResponse {
	switch {
	case errors.Is(err, commonModels.ErrInvalidInput), errors.Is(err, commonModels.ErrUnsupportedDocument):
		return api.ErrorResponse{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, commonModels.ErrNotFound):
		return api.ErrorResponse{Code: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, commonModels.ErrUnavailable):
		return api.ErrorResponse{Code: http.StatusServiceUnavailable, Message: commonModels.ErrUnavailable.Error(), Retry: true}
	case errors.Is(err, commonModels.ErrGeneration):
		return api.ErrorResponse{Code: http.StatusBadGateway, Message: "the language model could not produce an answer", Retry: true}
	default:
		return api.ErrorResponse{Code: http.StatusInternalServerError, Message: "internal error"}
	}
}
