package llm

import (
	"context"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
)

type Options struct {
	Temperature float32
	TopP        float32
	MaxTokens   int32
	Stop        []string
}

// Request is one generation call: system instructions, prior turns oldest-first, then the prompt as the last user turn.
type Request struct {
	System  string
	History []chatModel.Turn
	Prompt  string
	Options Options
}

type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}
