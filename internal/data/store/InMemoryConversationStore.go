package store

import (
	"context"
	"sync"

	"github.com/akolanti/DocChat/internal/domain/chatModel"
)

// InMemoryConversationStore is the fallback history store when Redis is not reachable. Nothing survives a restart.
type InMemoryConversationStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string][]chatModel.Turn
}

func NewInMemoryConversationStore() *InMemoryConversationStore {
	return &InMemoryConversationStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string][]chatModel.Turn),
	}
}

func (store *InMemoryConversationStore) AppendTurn(ctx context.Context, category string, turn chatModel.Turn) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[category] = append(store.chatMap[category], turn)
	return nil
}

func (store *InMemoryConversationStore) LastTurns(ctx context.Context, category string, n int) ([]chatModel.Turn, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	turns := store.chatMap[category]
	if n > len(turns) {
		n = len(turns)
	}
	out := make([]chatModel.Turn, 0, max(n, 0))
	for i := len(turns) - 1; i >= len(turns)-n; i-- {
		out = append(out, turns[i])
	}
	return out, nil
}

func (store *InMemoryConversationStore) AllTurns(ctx context.Context, category string) ([]chatModel.Turn, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	return append([]chatModel.Turn{}, store.chatMap[category]...), nil
}

func (store *InMemoryConversationStore) DeleteCategory(ctx context.Context, category string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	delete(store.chatMap, category)
	return nil
}
