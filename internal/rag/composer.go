package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/script"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

const groundedSystemPrompt = `You answer questions about the user's documents.
Answer only from the text provided with the question. Do not use outside knowledge.
If the text does not contain the answer, reply with exactly this English sentence and nothing else,
whatever language the rest of your answers use: %s
%s`

const generalSystemPrompt = `You are a helpful assistant. Answer the question accurately and concisely.
If you are not sure of a fact, say so instead of guessing.
%s`

type composer struct {
	llm      llm.Provider
	settings config.GenerationSettings
	logger   *logger_i.Logger
}

func newComposer(provider llm.Provider, settings config.GenerationSettings) *composer {
	if settings.NotFoundPhrase == "" {
		settings.NotFoundPhrase = config.NotFoundPhrase
	}
	if settings.Timeout <= 0 {
		settings.Timeout = config.GenerationTimeout
	}
	return &composer{llm: provider, settings: settings, logger: logger_i.NewLogger("Answer Composer")}
}

func (c *composer) options() llm.Options {
	return llm.Options{
		Temperature: c.settings.Temperature,
		TopP:        c.settings.TopP,
		MaxTokens:   c.settings.MaxTokens,
		Stop:        c.settings.Stop,
	}
}

// grounded answers from the evidence only. No evidence means the not-found phrase without a model call.
func (c *composer) grounded(ctx context.Context, question string, history []chatModel.Turn, evidence []commonModels.Evidence) (chatModel.Answer, error) {
	log := c.logger.WithTrace(ctx)
	if len(evidence) == 0 {
		log.Info("no evidence, answering not found")
		return chatModel.Answer{Text: c.settings.NotFoundPhrase, Sources: []commonModels.SourceRef{}, Grounded: true}, nil
	}

	lang := script.ResponseInstruction(script.Detect(question))
	text, err := c.generate(ctx, llm.Request{
		System:  fmt.Sprintf(groundedSystemPrompt, c.settings.NotFoundPhrase, lang),
		History: history,
		Prompt:  groundedPrompt(question, evidence),
		Options: c.options(),
	})
	if err != nil {
		return chatModel.Answer{}, err
	}

	answer := chatModel.Answer{Text: text, Sources: []commonModels.SourceRef{}, Grounded: true}
	if !c.isNotFound(text) {
		answer.Sources = sourcesOf(evidence)
	}
	return answer, nil
}

// isNotFound matches the not-found phrase or one of its translations, ignoring the final full stop or danda.
func (c *composer) isNotFound(text string) bool {
	for _, phrase := range append([]string{c.settings.NotFoundPhrase}, c.settings.NotFoundAliases...) {
		phrase = strings.TrimRight(strings.TrimSpace(phrase), ".।")
		if phrase != "" && strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func (c *composer) general(ctx context.Context, question string) (chatModel.Answer, error) {
	text, err := c.generate(ctx, llm.Request{
		System:  fmt.Sprintf(generalSystemPrompt, script.ResponseInstruction(script.Detect(question))),
		Prompt:  question,
		Options: c.options(),
	})
	if err != nil {
		return chatModel.Answer{}, err
	}
	return chatModel.Answer{Text: text}, nil
}

func (c *composer) generate(ctx context.Context, req llm.Request) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	text, err := c.llm.Generate(genCtx, req)
	if err != nil {
		c.logger.WithTrace(ctx).Error("generation failed", "error", err)
		if errors.Is(err, commonModels.ErrGeneration) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", commonModels.ErrGeneration, err)
	}
	return strings.TrimSpace(text), nil
}

func groundedPrompt(question string, evidence []commonModels.Evidence) string {
	parts := make([]string, len(evidence))
	for i, e := range evidence {
		parts[i] = e.Chunk.Chunk
	}
	return "Text:\n" + strings.Join(parts, "\n\n") + "\n\nQuestion: " + question
}

// sourcesOf lists each (document, page) once, in evidence order.
func sourcesOf(evidence []commonModels.Evidence) []commonModels.SourceRef {
	seen := map[commonModels.SourceRef]bool{}
	out := []commonModels.SourceRef{}
	for _, e := range evidence {
		ref := commonModels.SourceRef{Document: e.Chunk.Doc.Name, Page: e.Chunk.PageNum}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}
