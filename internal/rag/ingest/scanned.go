package ingest

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

// PageSampler returns the direct-extraction text of the first limit pages and the total page count.
type PageSampler func(ctx context.Context, path string, limit int) ([]commonModels.Page, int, error)

// ScanDetector decides whether a PDF has a usable text layer.
type ScanDetector struct {
	sample      PageSampler
	samplePages int
	threshold   int
	logger      *logger_i.Logger
}

func NewScanDetector(settings config.OCRSettings) *ScanDetector {
	return &ScanDetector{
		sample:      extractPDF,
		samplePages: settings.SamplePages,
		threshold:   settings.ScannedCharThreshold,
		logger:      logger_i.NewLogger("Scan Detector"),
	}
}

// IsScanned averages the characters of the first min(samplePages, pageCount) pages.
// It fails open: any extraction error means "not scanned".
func (d *ScanDetector) IsScanned(ctx context.Context, path string) bool {
	log := d.logger.WithTrace(ctx).With("path", path)

	pages, pageCount, err := d.sample(ctx, path, d.samplePages)
	if err != nil {
		log.Warn("could not sample pages, assuming a text layer", "error", err)
		return false
	}
	sampled := min(d.samplePages, pageCount)
	if sampled <= 0 {
		log.Warn("document has no pages to sample")
		return false
	}

	total := 0
	for _, p := range pages[:min(sampled, len(pages))] {
		total += utf8.RuneCountInString(strings.TrimSpace(p.Content))
	}
	average := float64(total) / float64(sampled)
	scanned := average < float64(d.threshold)
	log.Debug("scan check", "sampledPages", sampled, "averageChars", average, "scanned", scanned)
	return scanned
}
