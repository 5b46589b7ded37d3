package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/akolanti/DocChat/internal/adapter"
	"github.com/akolanti/DocChat/internal/config"
)

const maxJSONBodyBytes = 1 << 20

func writeJson(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes the api.ErrorResponse body. The middleware chain uses it for rejections.
func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string) {
	_ = writeJson(w, httpCode, adapter.BadRequest(message, httpCode))
}

func (h *Handler) writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	if err := writeJson(w, statusCode, data); err != nil {
		// Log the error but can't send a clean status code now
		h.logger.Error("Error encoding response", "error", err)
	}
}

// writeServiceError maps a service error to its status. Server-side failures are logged with the trace id.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	res := adapter.ToErrorResponse(err)
	if res.Code >= http.StatusInternalServerError {
		h.logger.WithTrace(ctx).Error("request failed", "status", res.Code, "error", err)
	} else {
		h.logger.WithTrace(ctx).Warn("request rejected", "status", res.Code, "error", err)
	}
	h.writeJsonResponse(w, res.Code, res)
}

func (h *Handler) decodeJSON(r *http.Request, target any) error {
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			h.logger.Error("Couldn't close the request body", "error", err)
		}
	}(r.Body)
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(target)
}

func (h *Handler) validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		h.logger.Warn("context error", "traceId", config.TraceID(ctx), "error", ctx.Err())
		return false
	}
	return true
}
