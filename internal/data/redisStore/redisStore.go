package redisStore

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	Type   int
	logger *logger_i.Logger
}

// Open connects to one logical Redis database and pings it before returning.
func Open(ctx context.Context, settings config.RedisSettings, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:                  settings.Addr,
		Password:              settings.Password,
		DB:                    db,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s db %d is offline: %w", settings.Addr, db, err)
	}

	s := newStore(client, db)
	s.logger.Info("Redis store init successfully", "addr", settings.Addr)
	return s, nil
}

func newStore(client *redis.Client, db int) *Store {
	return &Store{
		client: client,
		Type:   db,
		logger: logger_i.NewLogger(fmt.Sprintf("Redis Store %d", db)),
	}
}

// NewTestStore wraps an existing client, e.g. one pointed at miniredis.
func NewTestStore(client *redis.Client) *Store {
	return newStore(client, 0)
}

func (s *Store) Close() error {
	s.logger.Info("Closing Redis Store")
	return s.client.Close()
}
