package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

func samplerOf(pageCount int, perPage string, err error) PageSampler {
	return func(ctx context.Context, path string, limit int) ([]commonModels.Page, int, error) {
		if err != nil {
			return nil, 0, err
		}
		var pages []commonModels.Page
		for i := 1; i <= min(limit, pageCount); i++ {
			pages = append(pages, commonModels.Page{Number: i, Content: perPage})
		}
		return pages, pageCount, nil
	}
}

func TestScanDetector(t *testing.T) {
	tests := []struct {
		name    string
		sampler PageSampler
		want    bool
	}{
		{"sparse text is scanned", samplerOf(10, "  page 1 \n", nil), true},
		{"dense text is digital", samplerOf(10, strings.Repeat("a", 500), nil), false},
		{"short single page", samplerOf(1, strings.Repeat("a", 30), nil), true},
		{"extraction error fails open", samplerOf(0, "", errors.New("broken xref")), false},
		{"no pages", samplerOf(0, "", nil), false},
		{"bengali counts runes", samplerOf(2, strings.Repeat("ক", 60), nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewScanDetector(config.Default().OCR)
			d.sample = tt.sampler
			if got := d.IsScanned(context.Background(), "doc.pdf"); got != tt.want {
				t.Errorf("IsScanned = %v, want %v", got, tt.want)
			}
		})
	}
}
