package commonModels

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnavailable         = errors.New("no documents available in this category")
	ErrExtraction          = errors.New("text extraction failed")
	ErrNoExtractableText   = errors.New("no extractable text")
	ErrGeneration          = errors.New("answer generation failed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	ErrUnsupportedDocument = errors.New("unsupported document type")
)
