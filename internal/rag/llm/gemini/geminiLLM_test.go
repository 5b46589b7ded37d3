package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"google.golang.org/genai"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromText(text, genai.RoleModel),
	}}}
}

func TestGenerate_BuildsConversation(t *testing.T) {
	var gotContents []*genai.Content
	var gotConfig *genai.GenerateContentConfig
	c := newClient(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotContents, gotConfig = contents, cfg
		return textResponse("Refunds take 30 days."), nil
	}, "gemini-test")

	out, err := c.Generate(context.Background(), llm.Request{
		System: "answer from context",
		History: []chatModel.Turn{
			{Role: chatModel.RoleUser, Content: "hi"},
			{Role: chatModel.RoleAssistant, Content: "hello"},
		},
		Prompt:  "how long for refunds?",
		Options: llm.Options{Temperature: 0.1, TopP: 0.9, MaxTokens: 256, Stop: []string{"###"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Refunds take 30 days." {
		t.Errorf("out = %q", out)
	}
	if len(gotContents) != 3 || gotContents[1].Role != genai.RoleModel || gotContents[2].Parts[0].Text != "how long for refunds?" {
		t.Errorf("contents = %+v", gotContents)
	}
	if gotConfig.SystemInstruction == nil || *gotConfig.Temperature != 0.1 || gotConfig.MaxOutputTokens != 256 || gotConfig.StopSequences[0] != "###" {
		t.Errorf("config = %+v", gotConfig)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		res  *genai.GenerateContentResponse
		err  error
	}{
		{name: "provider error", err: errors.New("deadline exceeded")},
		{name: "no candidates", res: &genai.GenerateContentResponse{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return tt.res, tt.err
			}, "")
			_, err := c.Generate(context.Background(), llm.Request{Prompt: "q"})
			if !errors.Is(err, commonModels.ErrGeneration) {
				t.Errorf("err = %v, want ErrGeneration", err)
			}
		})
	}
}
