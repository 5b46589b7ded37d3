package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/DocChat/internal/adapter/utils"
	"github.com/akolanti/DocChat/internal/data/redisStore"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

const sessionKeySpace = "session:"

type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]chatModel.Session
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]chatModel.Session)}
}

func (s *InMemorySessionStore) Create(ctx context.Context, category string) (chatModel.Session, error) {
	session := newSession(category)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Id] = session
	return session, nil
}

func (s *InMemorySessionStore) Get(ctx context.Context, id string) (chatModel.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return chatModel.Session{}, fmt.Errorf("session %s: %w", id, commonModels.ErrNotFound)
	}
	return session, nil
}

func (s *InMemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// RedisSessionStore keeps sessions as JSON values that expire after ttl.
type RedisSessionStore struct {
	store *redisStore.Store
	ttl   time.Duration
}

func NewRedisSessionStore(store *redisStore.Store, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{store: store, ttl: ttl}
}

func (s *RedisSessionStore) Create(ctx context.Context, category string) (chatModel.Session, error) {
	session := newSession(category)
	data, err := json.Marshal(session)
	if err != nil {
		return chatModel.Session{}, err
	}
	if err := s.store.Set(ctx, sessionKeySpace+session.Id, data, s.ttl); err != nil {
		return chatModel.Session{}, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (chatModel.Session, error) {
	raw, err := s.store.Get(ctx, sessionKeySpace+id)
	if s.store.IsNil(err) {
		return chatModel.Session{}, fmt.Errorf("session %s: %w", id, commonModels.ErrNotFound)
	}
	if err != nil {
		return chatModel.Session{}, fmt.Errorf("read session: %w", err)
	}
	var session chatModel.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return chatModel.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.store.Del(ctx, sessionKeySpace+id)
}

func newSession(category string) chatModel.Session {
	return chatModel.Session{Id: utils.GetNewUUID(), Category: category, CreatedAt: time.Now().UTC()}
}
