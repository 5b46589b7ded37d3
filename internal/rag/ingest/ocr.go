package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

// CommandRunner runs an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

type Token struct {
	Text       string
	Confidence float64
}

type OCREngine interface {
	Recognize(ctx context.Context, imagePath, languages string) ([]Token, error)
}

type Rasterizer interface {
	// Rasterize renders one 1-based page to a PNG and returns its path.
	Rasterize(ctx context.Context, pdfPath string, page int, outPrefix string) (string, error)
}

type Tesseract struct {
	runner CommandRunner
	binary string
}

func NewTesseract(runner CommandRunner, binary string) *Tesseract {
	return &Tesseract{runner: runner, binary: binary}
}

func (t *Tesseract) Recognize(ctx context.Context, imagePath, languages string) ([]Token, error) {
	out, err := t.runner.Run(ctx, t.binary, imagePath, "stdout", "-l", languages, "tsv")
	if err != nil {
		return nil, err
	}
	return parseTesseractTSV(out), nil
}

// parseTesseractTSV keeps word rows (those with text) from tesseract's tsv output.
func parseTesseractTSV(out []byte) []Token {
	var tokens []Token
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 12 || fields[0] == "level" {
			continue
		}
		text := strings.TrimSpace(strings.Join(fields[11:], " "))
		if text == "" {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil {
			continue
		}
		tokens = append(tokens, Token{Text: text, Confidence: conf})
	}
	return tokens
}

type Pdftoppm struct {
	runner CommandRunner
	binary string
	dpi    int
}

func NewPdftoppm(runner CommandRunner, binary string, dpi int) *Pdftoppm {
	return &Pdftoppm{runner: runner, binary: binary, dpi: dpi}
}

func (p *Pdftoppm) Rasterize(ctx context.Context, pdfPath string, page int, outPrefix string) (string, error) {
	n := strconv.Itoa(page)
	_, err := p.runner.Run(ctx, p.binary, "-f", n, "-l", n, "-r", strconv.Itoa(p.dpi), "-png", "-singlefile", pdfPath, outPrefix)
	if err != nil {
		return "", err
	}
	return outPrefix + ".png", nil
}

// OCRExtractor rasterizes every page and keeps the tokens recognised with enough confidence.
type OCRExtractor struct {
	raster        Rasterizer
	engine        OCREngine
	languages     string
	minConfidence float64
	pageCount     func(path string) (int, error)
	logger        *logger_i.Logger
}

func NewOCRExtractor(settings config.OCRSettings, runner CommandRunner) *OCRExtractor {
	return &OCRExtractor{
		raster:        NewPdftoppm(runner, settings.PdftoppmPath, settings.DPI),
		engine:        NewTesseract(runner, settings.TesseractPath),
		languages:     settings.Languages,
		minConfidence: settings.MinConfidence,
		pageCount:     pdfPageCount,
		logger:        logger_i.NewLogger("OCR"),
	}
}

// Extract returns one page per page that kept at least one token. A page that fails or
// keeps nothing is skipped with a warning.
func (o *OCRExtractor) Extract(ctx context.Context, path string) ([]commonModels.Page, error) {
	log := o.logger.WithTrace(ctx).With("path", path)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ocr", time.Since(start)) }()

	count, err := o.pageCount(path)
	if err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp("", "docchat-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create ocr work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	var pages []commonModels.Page
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := o.page(ctx, path, i, filepath.Join(workDir, "page-"+strconv.Itoa(i)))
		if err != nil {
			log.Warn("ocr failed for page", "page", i, "error", err)
			continue
		}
		if text == "" {
			log.Warn("ocr kept no tokens for page", "page", i)
			continue
		}
		pages = append(pages, commonModels.Page{Number: i, Content: text})
	}
	log.Debug("ocr finished", "pages", count, "pagesWithText", len(pages))
	return pages, nil
}

func (o *OCRExtractor) page(ctx context.Context, path string, page int, prefix string) (string, error) {
	image, err := o.raster.Rasterize(ctx, path, page, prefix)
	if err != nil {
		return "", fmt.Errorf("rasterize: %w", err)
	}
	defer os.Remove(image)

	tokens, err := o.engine.Recognize(ctx, image, o.languages)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	kept := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Confidence >= o.minConfidence {
			kept = append(kept, t.Text)
		}
	}
	return strings.Join(kept, " "), nil
}
