package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

const pageExtractTimeout = 10 * time.Second

// extractPDF reads the text layer of the first limit pages (all pages when limit <= 0).
// The second return value is the page count of the whole file.
func extractPDF(ctx context.Context, path string, limit int) ([]commonModels.Page, int, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := f.NumPage()
	last := numPages
	if limit > 0 && limit < numPages {
		last = limit
	}

	log := logger_i.NewLogger("PDF Extraction").WithTrace(ctx).With("path", path)
	pages, err := readPages(ctx, log, last, func(ctx context.Context, n int) (string, error) {
		page := f.Page(n)
		if page.V.IsNull() {
			return "", nil
		}
		return protectExtract(ctx, page)
	})
	if err != nil {
		return nil, numPages, err
	}
	return pages, numPages, nil
}

// readPages collects pages 1..last. A page whose text cannot be read keeps an empty slot
// so page numbers stay aligned, and the failure is logged.
func readPages(ctx context.Context, log *logger_i.Logger, last int, text func(ctx context.Context, n int) (string, error)) ([]commonModels.Page, error) {
	pages := make([]commonModels.Page, 0, last)
	for i := 1; i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := text(ctx, i)
		if err != nil {
			log.Warn("could not extract page text, keeping the page empty", "page", i, "error", err)
			content = ""
		}
		pages = append(pages, commonModels.Page{Number: i, Content: content})
	}
	return pages, nil
}

func pdfPageCount(path string) (int, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	return f.NumPage(), nil
}

// extractDocxTxtRtf reads a .odt, .docx, .rtf or plaintext file as a single page.
func extractDocxTxtRtf(path string) ([]commonModels.Page, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}
	return []commonModels.Page{{Number: 1, Content: text}}, nil
}

// protectExtract bounds GetPlainText, which can spin forever on malformed content streams.
func protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page parser panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(pageExtractTimeout)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errors.New("page extraction timed out")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
