package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
)

const maxQuestionLength = 4000

func validateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("question is empty: %w", commonModels.ErrInvalidInput)
	}
	if len(question) > maxQuestionLength {
		return fmt.Errorf("question is longer than %d bytes: %w", maxQuestionLength, commonModels.ErrInvalidInput)
	}
	return nil
}

func (s *service) executeMergeStep(ctx context.Context, category string) (*vectorDB.MergedIndex, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("category_merge", time.Since(start)) }()

	merged, err := s.merger.Merge(ctx, category)
	if err != nil {
		s.logger.WithTrace(ctx).Warn("category has no usable index", "category", category, "error", err)
		return nil, err
	}
	return merged, nil
}

// askStatus is the status label of the ask_duration_seconds histogram.
func askStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, commonModels.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, commonModels.ErrNotFound):
		return "not_found"
	case errors.Is(err, commonModels.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, commonModels.ErrGeneration):
		return "generation_error"
	default:
		return "error"
	}
}
