package config

import (
	"context"
	"log/slog"
	"time"
)

type contextKey string

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internal in-memory store
	TRACE_ID_KEY         contextKey = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5

	//serverTimeouts
	ReadTimeout            = 30 * time.Second
	WriteTimeout           = 180 * time.Second //answers can take the full generation timeout
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	MaxUploadBytes int64 = 64 << 20

	//storage layout
	UploadsDir         = "uploads"
	VectorStoresDir    = "vector_stores"
	NameMappingFile    = "_name_mapping.json"
	IndexBackendChroma = "chromem"
	IndexBackendQdrant = "qdrant"
	IngestWorkers      = 2

	//chunking
	ChunkSize    = 2000
	ChunkOverlap = 300

	//ocr
	OCRLanguages         = "ben+eng"
	OCRMinConfidence     = 60
	OCRDPI               = 300
	ScannedSamplePages   = 3
	ScannedCharThreshold = 50
	TesseractBinary      = "tesseract"
	PdftoppmBinary       = "pdftoppm"

	//retrieval
	RetrievalModeMMR        = "mmr"
	RetrievalModeSimilarity = "similarity"
	RetrievalK              = 10
	FetchKCap               = 50
	FetchKPerDocument       = 20
	TopNCap                 = 5
	MMRLambda               = 0.5
	MinRelevance            = 0.10
	RerankVectorWeight      = 0.5
	MergeConcurrency        = 4

	//history
	HistoryWindow        = 20
	HistoryStoreRedis    = "redis"
	HistoryStoreSQLite   = "sqlite"
	HistoryStoreMemory   = "memory"
	HistorySQLitePath    = "chat_history.db"
	ConversationKeySpace = "chat:"

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = ""
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1 //2-5 is preferred for prod according to documentation
	QdrantKeepAliveTimeout  = 30 * time.Second
	QdrantCollectionPrefix  = "docchat"

	//providers
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	//llm
	GeminiModelName   = "gemini-2.5-flash-lite-preview-09-2025"
	OpenAIChatModel   = "gpt-4o-mini"
	GenerationTimeout = 120 * time.Second
	NotFoundPhrase    = "Not found in the provided text."

	NotFoundPhraseBengali = "প্রদত্ত পাঠে পাওয়া যায়নি।"

	ModelTemperature float32 = 0.2
	ModelTopP        float32 = 0.9
	ModelMaxTokens   int32   = 2048

	//embeddings
	GoogleEmbeddingModel                = "gemini-embedding-001"
	OpenAIEmbeddingModel                = "text-embedding-3-small"
	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingBatchSize                  = 100

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second
	HttpClientTimeout   = 150 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisMessageStore = 1
	RedisSessionStore = 2

	RedisMessageStoreTTL = 30 * 24 * time.Hour
	RedisSessionStoreTTL = 24 * time.Hour
)

// TraceID returns the request trace id stored by the HTTP middleware, or "".
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	trace, _ := ctx.Value(TRACE_ID_KEY).(string)
	return trace
}

func WithTraceID(ctx context.Context, trace string) context.Context {
	return context.WithValue(ctx, TRACE_ID_KEY, trace)
}
