package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type embedFunc func(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error)

// Client embeds text through the OpenAI embeddings endpoint or any server that speaks it.
type Client struct {
	embed     embedFunc
	model     string
	dimension int64
	logger    *logger_i.Logger
}

func New(settings config.EmbeddingSettings, httpClient *http.Client) (*Client, error) {
	if settings.APIKey == "" && settings.BaseURL == "" {
		return nil, errors.New("openai embedding: api key is not set")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(3),
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	api := openai.NewClient(opts...)
	c := newClient(func(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error) {
		return api.Embeddings.New(ctx, params)
	}, settings)
	c.logger.Info("OpenAI Embedding client created", "model", c.model, "baseUrl", settings.BaseURL)
	return c, nil
}

func newClient(embed embedFunc, settings config.EmbeddingSettings) *Client {
	model := settings.Model
	if model == "" {
		model = config.OpenAIEmbeddingModel
	}
	return &Client{
		embed:     embed,
		model:     model,
		dimension: int64(settings.Dimensions),
		logger:    logger_i.NewLogger("openai_embedding"),
	}
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.call(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}
	return c.call(ctx, chunks)
}

func (c *Client) call(ctx context.Context, input []string) ([][]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("openai_embedding", time.Since(start)) }()

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: input},
	}
	if c.dimension > 0 {
		params.Dimensions = openai.Int(c.dimension)
	}
	res, err := c.embed(ctx, params)
	if err != nil {
		c.logger.WithTrace(ctx).Error("Error getting Embeddings from OpenAI", "error", err, "inputs", len(input))
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if res == nil || len(res.Data) != len(input) {
		return nil, fmt.Errorf("openai embedding: got %d vectors for %d inputs", dataLen(res), len(input))
	}

	out := make([][]float32, len(input))
	for _, d := range res.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embedding: index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai embedding: no vector for input %d", i)
		}
	}
	return out, nil
}

func dataLen(res *openai.CreateEmbeddingResponse) int {
	if res == nil {
		return 0
	}
	return len(res.Data)
}
