package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"google.golang.org/genai"
)

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

type embedFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)

// Client embeds text with the Gemini embedding models.
type Client struct {
	embed     embedFunc
	model     string
	dimension int32
	retries   int
	backoff   time.Duration
	logger    *logger_i.Logger
}

func New(ctx context.Context, settings config.EmbeddingSettings, httpClient *http.Client) (*Client, error) {
	if settings.APIKey == "" {
		return nil, errors.New("google embedding: api key is not set")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: settings.APIKey, HTTPClient: httpClient})
	if err != nil {
		return nil, fmt.Errorf("create google embedding client: %w", err)
	}
	client := newClient(c.Models.EmbedContent, settings)
	client.logger.Info("Google Embedding client created", "model", client.model, "dimensions", client.dimension)
	return client, nil
}

func newClient(embed embedFunc, settings config.EmbeddingSettings) *Client {
	model := settings.Model
	if model == "" {
		model = config.GoogleEmbeddingModel
	}
	dimension := settings.Dimensions
	if dimension <= 0 {
		dimension = config.EmbeddingOutputDimensionality
	}
	return &Client{
		embed:     embed,
		model:     model,
		dimension: dimension,
		retries:   3,
		backoff:   5 * time.Second,
		logger:    logger_i.NewLogger("google_embedding"),
	}
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.call(ctx, genai.Text(query), taskQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := c.call(ctx, getContent(chunks), taskDocument)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("google embedding returned %d vectors for %d inputs", len(vectors), len(chunks))
	}
	return vectors, nil
}

func (c *Client) call(ctx context.Context, contents []*genai.Content, task string) ([][]float32, error) {
	log := c.logger.WithTrace(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("google_embedding", time.Since(start)) }()

	cfg := &genai.EmbedContentConfig{OutputDimensionality: &c.dimension, TaskType: task}
	wait := c.backoff
	for attempt := 0; ; attempt++ {
		res, err := c.embed(ctx, c.model, contents, cfg)
		if err == nil {
			return toVectors(res)
		}
		if !doRetry(err) || attempt >= c.retries {
			log.Error("Error getting Embeddings from Google", "error", err, "attempt", attempt+1)
			return nil, fmt.Errorf("google embedding: %w", err)
		}
		log.Warn("Rate limit hit, retrying", "in", wait, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func toVectors(res *genai.EmbedContentResponse) ([][]float32, error) {
	if res == nil || len(res.Embeddings) == 0 {
		return nil, errors.New("google embedding: empty response")
	}
	out := make([][]float32, 0, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("google embedding: no values for input %d", i)
		}
		out = append(out, e.Values)
	}
	return out, nil
}
