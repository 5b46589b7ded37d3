package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/akolanti/DocChat/internal/adapter"
	"github.com/akolanti/DocChat/internal/adapter/utils"
	"github.com/akolanti/DocChat/internal/api"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

// Handler serves the HTTP surface of the document QA service.
type Handler struct {
	service  rag.Service
	sessions chatModel.SessionStore
	settings config.ServerSettings
	logger   *logger_i.Logger
}

func NewHandler(service rag.Service, sessions chatModel.SessionStore, settings config.ServerSettings) *Handler {
	if settings.MaxUploadBytes <= 0 {
		settings.MaxUploadBytes = config.MaxUploadBytes
	}
	return &Handler{
		service:  service,
		sessions: sessions,
		settings: settings,
		logger:   logger_i.NewLogger("RequestHandler"),
	}
}

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// pathParam returns the unescaped chi URL parameter.
func pathParam(r *http.Request, key string) string {
	raw := utils.GetChiURLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// ChatStartHandler godoc
// @Summary      Start a chat session
// @Description  Binds a new session id to an existing category. The id can be sent to /chat instead of the category.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.StartSessionRequest   true  "Category to chat with"
// @Success      201      {object}  api.StartSessionResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse  "Category not found"
// @Router       /chat/start [post]
func (h *Handler) ChatStartHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	var req api.StartSessionRequest
	if err := h.decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Category) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "category is required")
		return
	}

	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	if !slices.Contains(categories, req.Category) {
		h.writeServiceError(r.Context(), w, fmt.Errorf("category %s: %w", req.Category, commonModels.ErrNotFound))
		return
	}

	session, err := h.sessions.Create(r.Context(), req.Category)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.logger.WithTrace(r.Context()).Debug("chat session started", "sessionId", session.Id, "category", session.Category)
	h.writeJsonResponse(w, http.StatusCreated, api.StartSessionResponse{
		Message:   "chat session started",
		SessionId: session.Id,
		Category:  session.Category,
	})
}

// ChatHandler godoc
// @Summary      Ask a question about a category
// @Description  Answers only from the documents of the category. Send either session_id from /chat/start or category.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest    true  "Question with a session id or category"
// @Success      200      {object}  api.ChatResponse
// @Failure      400      {object}  api.ErrorResponse  "Missing question or category"
// @Failure      404      {object}  api.ErrorResponse  "Unknown session or category"
// @Failure      502      {object}  api.ErrorResponse  "Language model failure"
// @Failure      503      {object}  api.ErrorResponse  "Category has no usable index"
// @Router       /chat [post]
func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	var req api.ChatRequest
	if err := h.decodeJSON(r, &req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "question is required")
		return
	}

	category := req.Category
	if req.SessionId != "" {
		session, err := h.sessions.Get(r.Context(), req.SessionId)
		if err != nil {
			if errors.Is(err, commonModels.ErrNotFound) {
				WriteErrorResponse(w, http.StatusNotFound, "chat session not found")
				return
			}
			h.writeServiceError(r.Context(), w, err)
			return
		}
		category = session.Category
	}
	if category == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "session_id or category is required")
		return
	}

	answer, err := h.service.Ask(r.Context(), category, req.Question)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToChatResponse(answer))
}

// AiSolutionHandler godoc
// @Summary      Ask the general assistant
// @Description  Answers without document retrieval or history.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.AiSolutionRequest  true  "Message"
// @Success      200      {object}  api.AiSolutionResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /ai-solution [post]
func (h *Handler) AiSolutionHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	var req api.AiSolutionRequest
	if err := h.decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "message is required")
		return
	}
	answer, err := h.service.AskGeneral(r.Context(), req.Message)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJsonResponse(w, http.StatusOK, api.AiSolutionResponse{Answer: answer.Text})
}

// GetHistoryHandler godoc
// @Summary      Chat history of a category
// @Tags         Chat
// @Produce      json
// @Param        category  path      string  true  "Category"
// @Success      200       {object}  api.HistoryResponse  "Turns oldest first"
// @Failure      400       {object}  api.ErrorResponse
// @Router       /chat/history/{category} [get]
func (h *Handler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	category := pathParam(r, "category")
	turns, err := h.service.History(r.Context(), category)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToHistoryResponse(category, turns))
}

// DeleteHistoryHandler godoc
// @Summary      Clear the chat history of a category
// @Tags         Chat
// @Produce      json
// @Param        category  path      string  true  "Category"
// @Success      200       {object}  api.MessageResponse
// @Failure      400       {object}  api.ErrorResponse
// @Router       /chat/history/{category} [delete]
func (h *Handler) DeleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	category := pathParam(r, "category")
	if err := h.service.ClearHistory(r.Context(), category); err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJsonResponse(w, http.StatusOK, api.MessageResponse{Message: fmt.Sprintf("history of '%s' cleared", category)})
}
