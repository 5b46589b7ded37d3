// Package app wires the configured backends into a rag.Service for the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/customHttpClient"
	"github.com/akolanti/DocChat/internal/data/fileStore"
	"github.com/akolanti/DocChat/internal/data/redisStore"
	"github.com/akolanti/DocChat/internal/data/store"
	"github.com/akolanti/DocChat/internal/domain/chatModel"
	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/internal/rag/embedding"
	"github.com/akolanti/DocChat/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/DocChat/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/DocChat/internal/rag/ingest"
	"github.com/akolanti/DocChat/internal/rag/llm"
	"github.com/akolanti/DocChat/internal/rag/llm/gemini"
	"github.com/akolanti/DocChat/internal/rag/llm/openaiLLM"
	"github.com/akolanti/DocChat/internal/rag/retrieval"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/internal/rag/vectorDB/chromemDB"
	"github.com/akolanti/DocChat/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/DocChat/internal/worker"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

type App struct {
	Settings *config.Settings
	Service  rag.Service
	Sessions chatModel.SessionStore
	closers  []func() error
	logger   *logger_i.Logger
}

// Build connects every backend named by the settings. ctx bounds the lifetime of long-lived clients.
func Build(ctx context.Context, settings *config.Settings) (*App, error) {
	a := &App{Settings: settings, logger: logger_i.NewLogger("App")}
	httpClient := customHttpClient.Shared()

	embedder, err := newEmbedder(ctx, settings.Embedding, httpClient)
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(ctx, settings.Generation, httpClient)
	if err != nil {
		return nil, err
	}
	indexes, err := newIndexStore(ctx, settings)
	if err != nil {
		return nil, err
	}

	history, sessions, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Sessions = sessions

	names := vectorDB.NewNameMapping(settings.Storage.VectorStoresDir)
	builder := ingest.NewIndexBuilder(indexes, names, embedder, settings.Embedding.BatchSize)

	a.Service = rag.NewService(rag.Deps{
		Files:      fileStore.New(settings.Storage.UploadsDir, settings.Storage.VectorStoresDir),
		Pipeline:   ingest.NewPipeline(settings, builder, ingest.ExecRunner{}),
		Indexes:    indexes,
		Names:      names,
		Merger:     vectorDB.NewMerger(indexes, settings.Retrieval.MergeConcurrency),
		Retriever:  retrieval.NewRetriever(embedder, settings.Retrieval),
		LLM:        provider,
		History:    history,
		Generation: settings.Generation,
		Window:     settings.History.Window,
		Workers:    worker.NewPool(settings.Storage.IngestWorkers),
	})
	a.logger.Info("service ready",
		"embedding", settings.Embedding.Provider,
		"generation", settings.Generation.Provider,
		"indexBackend", settings.Storage.IndexBackend,
		"historyStore", settings.History.Store,
	)
	return a, nil
}

func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Error("could not close backend", "error", err)
		}
	}
	a.closers = nil
}

func newEmbedder(ctx context.Context, settings config.EmbeddingSettings, httpClient *http.Client) (embedding.Embedder, error) {
	switch settings.Provider {
	case config.ProviderOpenAI:
		return openaiEmbedding.New(settings, httpClient)
	case config.ProviderGemini:
		return googleEmbedding.New(ctx, settings, httpClient)
	}
	return nil, fmt.Errorf("unknown embedding provider %q", settings.Provider)
}

func newProvider(ctx context.Context, settings config.GenerationSettings, httpClient *http.Client) (llm.Provider, error) {
	switch settings.Provider {
	case config.ProviderOpenAI:
		return openaiLLM.New(settings, httpClient)
	case config.ProviderGemini:
		return gemini.New(ctx, settings, httpClient)
	}
	return nil, fmt.Errorf("unknown generation provider %q", settings.Provider)
}

func newIndexStore(ctx context.Context, settings *config.Settings) (vectorDB.IndexStore, error) {
	switch settings.Storage.IndexBackend {
	case config.IndexBackendQdrant:
		return qdrantDB.NewStore(ctx, settings.Qdrant)
	case config.IndexBackendChroma:
		return chromemDB.NewStore(settings.Storage.VectorStoresDir, settings.Storage.CompressIndexes), nil
	}
	return nil, fmt.Errorf("unknown index backend %q", settings.Storage.IndexBackend)
}

// openStores picks the conversation and session stores. An unreachable Redis falls back to
// memory when history.fallback_to_memory is set.
func (a *App) openStores(ctx context.Context) (chatModel.ConversationStore, chatModel.SessionStore, error) {
	s := a.Settings
	switch s.History.Store {
	case config.HistoryStoreMemory:
		return store.NewInMemoryConversationStore(), store.NewInMemorySessionStore(), nil

	case config.HistoryStoreSQLite:
		sqlite, err := store.OpenSQLiteConversationStore(s.History.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, sqlite.Close)
		return sqlite, store.NewInMemorySessionStore(), nil

	case config.HistoryStoreRedis:
		messages, err := redisStore.Open(ctx, s.Redis, s.Redis.MessageDB)
		if err == nil {
			a.closers = append(a.closers, messages.Close)
			var sessions *redisStore.Store
			sessions, err = redisStore.Open(ctx, s.Redis, s.Redis.SessionDB)
			if err == nil {
				a.closers = append(a.closers, sessions.Close)
				return store.NewRedisConversationStore(messages, s.Redis.MessageTTL),
					store.NewRedisSessionStore(sessions, s.History.SessionTTL), nil
			}
		}
		if !s.History.FallbackToMemory {
			return nil, nil, fmt.Errorf("redis history store: %w", err)
		}
		a.logger.Error("Redis stores are offline, falling back to in-memory stores", "error", err)
		a.Close()
		return store.NewInMemoryConversationStore(), store.NewInMemorySessionStore(), nil
	}
	return nil, nil, errors.New("history.store must be one of redis, sqlite, memory")
}
