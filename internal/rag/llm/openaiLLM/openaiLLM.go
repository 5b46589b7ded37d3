package openaiLLM

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
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type completeFunc func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

// llmClient talks to the chat completions API. BaseURL lets it target local OpenAI-compatible servers.
type llmClient struct {
	complete  completeFunc
	modelName string
	logger    *logger_i.Logger
}

func New(settings config.GenerationSettings, httpClient *http.Client) (llm.Provider, error) {
	if settings.APIKey == "" && settings.BaseURL == "" {
		return nil, errors.New("openai: api key is not set")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(2),
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	api := openai.NewClient(opts...)
	c := newClient(func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
		return api.Chat.Completions.New(ctx, params)
	}, settings.Model)
	c.logger.Info("OpenAI client created", "model", c.modelName, "baseUrl", settings.BaseURL)
	return c, nil
}

func newClient(complete completeFunc, model string) *llmClient {
	if model == "" {
		model = config.OpenAIChatModel
	}
	return &llmClient{complete: complete, modelName: model, logger: logger_i.NewLogger("llm_openai")}
}

func (c *llmClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	log := c.logger.WithTrace(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("openai_generate", time.Since(start)) }()

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.modelName),
		Messages:    buildMessages(req),
		Temperature: openai.Float(float64(req.Options.Temperature)),
		TopP:        openai.Float(float64(req.Options.TopP)),
	}
	if req.Options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.Options.MaxTokens))
	}
	if len(req.Options.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: req.Options.Stop}
	}

	res, err := c.complete(ctx, params)
	if err != nil {
		log.Error("OpenAI generation failed", "error", err)
		return "", fmt.Errorf("%w: %w", commonModels.ErrGeneration, err)
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0].Message.Content == "" {
		log.Warn("OpenAI returned no text")
		return "", fmt.Errorf("%w: empty response", commonModels.ErrGeneration)
	}
	return res.Choices[0].Message.Content, nil
}

func buildMessages(req llm.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.History {
		if turn.Role == chatModel.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(turn.Content))
		} else {
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	return append(messages, openai.UserMessage(req.Prompt))
}
