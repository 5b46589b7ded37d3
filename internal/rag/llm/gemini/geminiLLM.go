package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/metrics"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"google.golang.org/genai"
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type llmClient struct {
	generate  generateFunc
	modelName string
	logger    *logger_i.Logger
}

func New(ctx context.Context, settings config.GenerationSettings, httpClient *http.Client) (llm.Provider, error) {
	if settings.APIKey == "" {
		return nil, errors.New("gemini: api key is not set")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: settings.APIKey, HTTPClient: httpClient})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	client := newClient(c.Models.GenerateContent, settings.Model)
	client.logger.Info("Gemini client created", "model", client.modelName)
	return client, nil
}

func newClient(generate generateFunc, model string) *llmClient {
	if model == "" {
		model = config.GeminiModelName
	}
	return &llmClient{generate: generate, modelName: model, logger: logger_i.NewLogger("llm_gemini")}
}

func (c *llmClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	log := c.logger.WithTrace(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("gemini_generate", time.Since(start)) }()

	contentConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Options.Temperature),
		TopP:            genai.Ptr(req.Options.TopP),
		MaxOutputTokens: req.Options.MaxTokens,
		StopSequences:   req.Options.Stop,
	}
	if req.System != "" {
		contentConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	result, err := c.generate(ctx, c.modelName, buildContents(req), contentConfig)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", fmt.Errorf("%w: %w", commonModels.ErrGeneration, err)
	}
	text := result.Text()
	if text == "" {
		log.Warn("Gemini returned no text", "candidates", len(result.Candidates))
		return "", fmt.Errorf("%w: empty response", commonModels.ErrGeneration)
	}
	return text, nil
}

func buildContents(req llm.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == chatModel.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
}
