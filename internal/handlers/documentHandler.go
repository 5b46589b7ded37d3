package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/akolanti/DocChat/internal/adapter"
	"github.com/akolanti/DocChat/internal/api"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/rag"
)

var nonPDFExtensions = []string{".docx", ".odt", ".rtf", ".txt"}

func (h *Handler) acceptsFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		return true
	}
	if !h.settings.AllowNonPDF {
		return false
	}
	for _, allowed := range nonPDFExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// UploadHandler godoc
// @Summary      Upload documents into a category
// @Description  Saves every file under uploads/<category>/ and indexes it. Files are processed independently; one failure never stops the rest.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        category  formData  string  true  "Category name"
// @Param        files     formData  file    true  "PDF files"
// @Success      200       {object}  api.UploadResponse  "Per-file outcomes"
// @Failure      400       {object}  api.ErrorResponse   "Missing files or category, or upload too large"
// @Router       /upload [post]
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	log := h.logger.WithTrace(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.settings.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "File too large or bad request")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn("could not remove multipart temp files", "error", err)
		}
	}()

	category := strings.TrimSpace(r.FormValue("category"))
	if category == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "No category specified")
		return
	}
	headers := slices.Concat(r.MultipartForm.File["files"], r.MultipartForm.File["files[]"])
	if len(headers) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "No files part in the request")
		return
	}
	if err := h.service.CreateCategory(r.Context(), category); err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}

	// results follow the order of the form files; accepted[j] is the slot of uploads[j]
	results := make([]chatModel.IngestResult, len(headers))
	var uploads []rag.Upload
	var accepted []int
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for i, fh := range headers {
		if !h.acceptsFile(fh.Filename) {
			log.Warn("ignoring unsupported upload", "filename", fh.Filename)
			results[i] = chatModel.IngestResult{Filename: fh.Filename, Outcome: chatModel.IngestFailed, Error: "only .pdf files are accepted"}
			continue
		}
		f, err := fh.Open()
		if err != nil {
			results[i] = chatModel.IngestResult{Filename: fh.Filename, Outcome: chatModel.IngestFailed, Error: "could not read upload"}
			continue
		}
		opened = append(opened, f)
		uploads = append(uploads, rag.Upload{Filename: fh.Filename, Content: f})
		accepted = append(accepted, i)
	}

	log.Info("upload received", "category", category, "files", len(headers), "accepted", len(uploads))
	for j, res := range h.service.IngestBatch(r.Context(), category, uploads) {
		if j < len(accepted) {
			results[accepted[j]] = res
		}
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToUploadResponse(category, results))
}

// ListCategoriesHandler godoc
// @Summary      List categories
// @Tags         Categories
// @Produce      json
// @Success      200  {object}  api.CategoriesResponse
// @Router       /categories [get]
func (h *Handler) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	h.writeJsonResponse(w, http.StatusOK, api.CategoriesResponse{Categories: categories})
}

// CreateCategoryHandler godoc
// @Summary      Create a category
// @Tags         Categories
// @Accept       json
// @Produce      json
// @Param        request  body      api.CreateCategoryRequest  true  "Category name"
// @Success      201      {object}  api.MessageResponse
// @Failure      400      {object}  api.ErrorResponse  "Missing or invalid name"
// @Router       /categories [post]
func (h *Handler) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	var req api.CreateCategoryRequest
	if err := h.decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.service.CreateCategory(r.Context(), req.Name); err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJsonResponse(w, http.StatusCreated, api.MessageResponse{Message: fmt.Sprintf("category '%s' created", req.Name)})
}

// DeleteCategoryHandler godoc
// @Summary      Delete a category
// @Description  Removes its uploads, indexes and chat history.
// @Tags         Categories
// @Produce      json
// @Param        category  path      string  true  "Category"
// @Success      200       {object}  api.MessageResponse
// @Failure      404       {object}  api.ErrorResponse
// @Router       /categories/{category} [delete]
func (h *Handler) DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	category := pathParam(r, "category")
	if err := h.service.DeleteCategory(r.Context(), category); err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJsonResponse(w, http.StatusOK, api.MessageResponse{Message: fmt.Sprintf("category '%s' deleted", category)})
}

// ListDocumentsHandler godoc
// @Summary      List the documents of a category
// @Tags         Documents
// @Produce      json
// @Param        category  path      string  true  "Category"
// @Success      200       {object}  api.DocumentsResponse
// @Failure      404       {object}  api.ErrorResponse
// @Router       /categories/{category}/documents [get]
func (h *Handler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	category := pathParam(r, "category")
	docs, err := h.service.ListDocuments(r.Context(), category)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJsonResponse(w, http.StatusOK, api.DocumentsResponse{Category: category, Documents: docs})
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Removes the upload and its index independently and reports which existed.
// @Tags         Documents
// @Produce      json
// @Param        category  path      string  true  "Category"
// @Param        filename  path      string  true  "Original filename"
// @Success      200       {object}  api.DeleteDocumentResponse
// @Failure      400       {object}  api.ErrorResponse
// @Router       /categories/{category}/documents/{filename} [delete]
func (h *Handler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	category := pathParam(r, "category")
	filename := pathParam(r, "filename")
	result, err := h.service.DeleteDocument(r.Context(), category, filename)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToDeleteDocumentResponse(filename, result))
}
