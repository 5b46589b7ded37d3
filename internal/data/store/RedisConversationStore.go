package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/data/redisStore"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

// RedisConversationStore keeps each category's history as a list under chat:<category>, newest element first.
type RedisConversationStore struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

func NewRedisConversationStore(store *redisStore.Store, ttl time.Duration) *RedisConversationStore {
	return &RedisConversationStore{
		store:  store,
		ttl:    ttl,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

func conversationKey(category string) string {
	return config.ConversationKeySpace + category
}

func (s *RedisConversationStore) AppendTurn(ctx context.Context, category string, turn chatModel.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if err := s.store.ListPushFront(ctx, conversationKey(category), data, s.ttl); err != nil {
		s.logger.WithTrace(ctx).Error("error saving turn", "category", category, "error", err)
		return err
	}
	return nil
}

func (s *RedisConversationStore) LastTurns(ctx context.Context, category string, n int) ([]chatModel.Turn, error) {
	if n <= 0 {
		return []chatModel.Turn{}, nil
	}
	return s.read(ctx, category, int64(n))
}

func (s *RedisConversationStore) AllTurns(ctx context.Context, category string) ([]chatModel.Turn, error) {
	turns, err := s.read(ctx, category, 0)
	if err != nil {
		return nil, err
	}
	reverseTurns(turns)
	return turns, nil
}

func (s *RedisConversationStore) DeleteCategory(ctx context.Context, category string) error {
	return s.store.Del(ctx, conversationKey(category))
}

func (s *RedisConversationStore) read(ctx context.Context, category string, n int64) ([]chatModel.Turn, error) {
	raw, err := s.store.ListHead(ctx, conversationKey(category), n)
	if err != nil && !s.store.IsNil(err) {
		return nil, fmt.Errorf("read history of %s: %w", category, err)
	}
	turns := make([]chatModel.Turn, 0, len(raw))
	for _, r := range raw {
		var turn chatModel.Turn
		if err := json.Unmarshal([]byte(r), &turn); err != nil {
			s.logger.WithTrace(ctx).Warn("skipping unreadable turn", "category", category, "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func reverseTurns(turns []chatModel.Turn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
