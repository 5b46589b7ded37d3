package rag

import (
	"context"
	"time"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

// historyWindow bounds what the composer sees to the last size turns of a category.
type historyWindow struct {
	store  chatModel.ConversationStore
	size   int
	logger *logger_i.Logger
}

func newHistoryWindow(store chatModel.ConversationStore, size int) *historyWindow {
	if size <= 0 {
		size = 20
	}
	return &historyWindow{store: store, size: size, logger: logger_i.NewLogger("Conversation Context")}
}

// recent returns the window oldest first. A failed read degrades to no history.
func (h *historyWindow) recent(ctx context.Context, category string) []chatModel.Turn {
	latest, err := h.store.LastTurns(ctx, category, h.size)
	if err != nil {
		h.logger.WithTrace(ctx).Warn("could not read chat history, answering without it", "category", category, "error", err)
		return nil
	}
	turns := make([]chatModel.Turn, len(latest))
	for i, t := range latest {
		turns[len(latest)-1-i] = chatModel.Turn{
			Role:      chatModel.RoleFromSender(string(t.Role)),
			Content:   t.Content,
			Timestamp: t.Timestamp,
		}
	}
	return turns
}

// record appends the question and then the answer. Failures are logged and swallowed.
func (h *historyWindow) record(ctx context.Context, category, question, answer string) {
	log := h.logger.WithTrace(ctx).With("category", category)
	now := time.Now().UTC()
	if err := h.store.AppendTurn(ctx, category, chatModel.Turn{Role: chatModel.RoleUser, Content: question, Timestamp: now}); err != nil {
		log.Error("could not persist user turn", "error", err)
		return
	}
	if err := h.store.AppendTurn(ctx, category, chatModel.Turn{Role: chatModel.RoleAssistant, Content: answer, Timestamp: now.Add(time.Microsecond)}); err != nil {
		log.Error("could not persist assistant turn", "error", err)
	}
}

func (h *historyWindow) all(ctx context.Context, category string) ([]chatModel.Turn, error) {
	return h.store.AllTurns(ctx, category)
}

func (h *historyWindow) clear(ctx context.Context, category string) error {
	return h.store.DeleteCategory(ctx, category)
}
