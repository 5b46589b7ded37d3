package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

func TestReadPages_BadPageKeepsSlotAndWarns(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var logs bytes.Buffer
	logger_i.InitWithWriter(config.LogSettings{Level: "debug"}, &logs)

	texts := map[int]string{1: "first page", 3: "third page"}
	pages, err := readPages(context.Background(), logger_i.NewLogger("test"), 3, func(ctx context.Context, n int) (string, error) {
		if n == 2 {
			return "", errors.New("malformed content stream")
		}
		return texts[n], nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pages) != 3 {
		t.Fatalf("pages = %+v", pages)
	}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Errorf("page %d has number %d", i, p.Number)
		}
	}
	if pages[1].Content != "" || pages[2].Content != "third page" {
		t.Errorf("pages = %+v", pages)
	}

	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "page=2") || !strings.Contains(out, "malformed content stream") {
		t.Errorf("expected a warning for page 2, got %q", out)
	}
}

func TestReadPages_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := readPages(ctx, logger_i.NewLogger("test"), 5, func(ctx context.Context, n int) (string, error) {
		calls++
		if n == 2 {
			cancel()
		}
		return "text", nil
	})
	if !errors.Is(err, context.Canceled) || calls != 2 {
		t.Errorf("err = %v after %d calls", err, calls)
	}
}
