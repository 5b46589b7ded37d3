package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "DOCCHAT_CONFIG"

type Settings struct {
	Server     ServerSettings     `yaml:"server"`
	Log        LogSettings        `yaml:"log"`
	Storage    StorageSettings    `yaml:"storage"`
	Chunking   ChunkingSettings   `yaml:"chunking"`
	OCR        OCRSettings        `yaml:"ocr"`
	Embedding  EmbeddingSettings  `yaml:"embedding"`
	Generation GenerationSettings `yaml:"generation"`
	Retrieval  RetrievalSettings  `yaml:"retrieval"`
	History    HistorySettings    `yaml:"history"`
	Redis      RedisSettings      `yaml:"redis"`
	Qdrant     QdrantSettings     `yaml:"qdrant"`
}

type ServerSettings struct {
	ListenAddr         string  `yaml:"listen_addr"`
	AuthToken          string  `yaml:"auth_token"`
	NoAuthBypass       bool    `yaml:"no_auth_bypass"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
	MaxUploadBytes     int64   `yaml:"max_upload_bytes"`
	// AllowNonPDF lets /upload accept docx/odt/rtf files; they always go through direct extraction.
	AllowNonPDF bool `yaml:"allow_non_pdf"`
}

type LogSettings struct {
	Prod  bool   `yaml:"prod"`
	Level string `yaml:"level"`
}

type StorageSettings struct {
	UploadsDir      string `yaml:"uploads_dir"`
	VectorStoresDir string `yaml:"vector_stores_dir"`
	IndexBackend    string `yaml:"index_backend"`
	CompressIndexes bool   `yaml:"compress_indexes"`
	// IngestWorkers bounds how many files of one upload are indexed at once.
	IngestWorkers int `yaml:"ingest_workers"`
}

type ChunkingSettings struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type OCRSettings struct {
	Enabled              bool    `yaml:"enabled"`
	Languages            string  `yaml:"languages"`
	MinConfidence        float64 `yaml:"min_confidence"`
	DPI                  int     `yaml:"dpi"`
	SamplePages          int     `yaml:"sample_pages"`
	ScannedCharThreshold int     `yaml:"scanned_char_threshold"`
	TesseractPath        string  `yaml:"tesseract_path"`
	PdftoppmPath         string  `yaml:"pdftoppm_path"`
}

type EmbeddingSettings struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int32  `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

type GenerationSettings struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	Temperature    float32       `yaml:"temperature"`
	TopP           float32       `yaml:"top_p"`
	MaxTokens      int32         `yaml:"max_tokens"`
	Stop           []string      `yaml:"stop"`
	Timeout        time.Duration `yaml:"timeout"`
	NotFoundPhrase string        `yaml:"not_found_phrase"`

	// NotFoundAliases are translations of NotFoundPhrase that also mark a grounded miss.
	NotFoundAliases []string `yaml:"not_found_aliases"`
}

type RetrievalSettings struct {
	Mode               string  `yaml:"mode"`
	K                  int     `yaml:"k"`
	FetchKCap          int     `yaml:"fetch_k_cap"`
	FetchKPerDocument  int     `yaml:"fetch_k_per_document"`
	TopNCap            int     `yaml:"top_n_cap"`
	ScaleTopN          bool    `yaml:"scale_top_n"`
	MMRLambda          float64 `yaml:"mmr_lambda"`
	MinRelevance       float64 `yaml:"min_relevance"`
	RerankVectorWeight float64 `yaml:"rerank_vector_weight"`
	MergeConcurrency   int     `yaml:"merge_concurrency"`
}

type HistorySettings struct {
	Store            string        `yaml:"store"`
	Window           int           `yaml:"window"`
	SQLitePath       string        `yaml:"sqlite_path"`
	FallbackToMemory bool          `yaml:"fallback_to_memory"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
}

type RedisSettings struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	MessageDB  int           `yaml:"message_db"`
	SessionDB  int           `yaml:"session_db"`
	MessageTTL time.Duration `yaml:"message_ttl"`
}

type QdrantSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	UseTLS   bool   `yaml:"use_tls"`
	APIKey   string `yaml:"api_key"`
	PoolSize int    `yaml:"pool_size"`
}

// Default returns the settings built from the constant block.
func Default() *Settings {
	return &Settings{
		Server: ServerSettings{
			ListenAddr:         ServerListenAddr,
			RateLimitPerSecond: RATE_LIMIT_PER_SECOND,
			RateLimitBurst:     BURST_RATE_LIMIT_PER_SECOND,
			MaxUploadBytes:     MaxUploadBytes,
		},
		Log: LogSettings{Prod: IS_PROD, Level: "debug"},
		Storage: StorageSettings{
			UploadsDir:      UploadsDir,
			VectorStoresDir: VectorStoresDir,
			IndexBackend:    IndexBackendChroma,
			IngestWorkers:   IngestWorkers,
		},
		Chunking: ChunkingSettings{Size: ChunkSize, Overlap: ChunkOverlap},
		OCR: OCRSettings{
			Enabled:              true,
			Languages:            OCRLanguages,
			MinConfidence:        OCRMinConfidence,
			DPI:                  OCRDPI,
			SamplePages:          ScannedSamplePages,
			ScannedCharThreshold: ScannedCharThreshold,
			TesseractPath:        TesseractBinary,
			PdftoppmPath:         PdftoppmBinary,
		},
		Embedding: EmbeddingSettings{
			Provider:   ProviderGemini,
			Model:      GoogleEmbeddingModel,
			Dimensions: EmbeddingOutputDimensionality,
			BatchSize:  EmbeddingBatchSize,
		},
		Generation: GenerationSettings{
			Provider:        ProviderGemini,
			Model:           GeminiModelName,
			Temperature:     ModelTemperature,
			TopP:            ModelTopP,
			MaxTokens:       ModelMaxTokens,
			Timeout:         GenerationTimeout,
			NotFoundPhrase:  NotFoundPhrase,
			NotFoundAliases: []string{NotFoundPhraseBengali},
		},
		Retrieval: RetrievalSettings{
			Mode:               RetrievalModeMMR,
			K:                  RetrievalK,
			FetchKCap:          FetchKCap,
			FetchKPerDocument:  FetchKPerDocument,
			TopNCap:            TopNCap,
			ScaleTopN:          true,
			MMRLambda:          MMRLambda,
			MinRelevance:       MinRelevance,
			RerankVectorWeight: RerankVectorWeight,
			MergeConcurrency:   MergeConcurrency,
		},
		History: HistorySettings{
			Store:            HistoryStoreRedis,
			Window:           HistoryWindow,
			SQLitePath:       HistorySQLitePath,
			FallbackToMemory: FALLBACK_REDIS_TO_INTERNALSTORE,
			SessionTTL:       RedisSessionStoreTTL,
		},
		Redis: RedisSettings{
			Addr:       RedisAddr,
			MessageDB:  RedisMessageStore,
			SessionDB:  RedisSessionStore,
			MessageTTL: RedisMessageStoreTTL,
		},
		Qdrant: QdrantSettings{
			Host:     QdrantHost,
			Port:     QdrantGrpcPort,
			UseTLS:   QdrantUseTLS,
			PoolSize: QdrantPoolSize,
		},
	}
}

// Load builds the settings: defaults, then .env, then the YAML file, then environment overrides.
// An empty path falls back to $DOCCHAT_CONFIG; a missing file is not an error.
func Load(path string) (*Settings, error) {
	_ = godotenv.Load()

	s := Default()
	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if err := s.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (s *Settings) applyEnv() error {
	str := map[string]*string{
		"DOCCHAT_LISTEN_ADDR":         &s.Server.ListenAddr,
		"DOCCHAT_AUTH_TOKEN":          &s.Server.AuthToken,
		"DOCCHAT_LOG_LEVEL":           &s.Log.Level,
		"DOCCHAT_UPLOADS_DIR":         &s.Storage.UploadsDir,
		"DOCCHAT_VECTOR_STORES_DIR":   &s.Storage.VectorStoresDir,
		"DOCCHAT_INDEX_BACKEND":       &s.Storage.IndexBackend,
		"DOCCHAT_EMBEDDING_PROVIDER":  &s.Embedding.Provider,
		"DOCCHAT_EMBEDDING_MODEL":     &s.Embedding.Model,
		"DOCCHAT_GENERATION_PROVIDER": &s.Generation.Provider,
		"DOCCHAT_GENERATION_MODEL":    &s.Generation.Model,
		"DOCCHAT_HISTORY_STORE":       &s.History.Store,
		"DOCCHAT_SQLITE_PATH":         &s.History.SQLitePath,
		"DOCCHAT_OCR_LANGUAGES":       &s.OCR.Languages,
		"REDIS_ADDR":                  &s.Redis.Addr,
		"REDIS_PASSWORD":              &s.Redis.Password,
		"QDRANT_HOST":                 &s.Qdrant.Host,
		"QDRANT_API_KEY":              &s.Qdrant.APIKey,
	}
	for key, target := range str {
		if v, ok := os.LookupEnv(key); ok {
			*target = v
		}
	}

	if v, ok := os.LookupEnv("QDRANT_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QDRANT_PORT: %w", err)
		}
		s.Qdrant.Port = port
	}
	if v, ok := os.LookupEnv("DOCCHAT_INGEST_WORKERS"); ok {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOCCHAT_INGEST_WORKERS: %w", err)
		}
		s.Storage.IngestWorkers = workers
	}
	if v, ok := os.LookupEnv("DOCCHAT_NO_AUTH"); ok {
		bypass, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DOCCHAT_NO_AUTH: %w", err)
		}
		s.Server.NoAuthBypass = bypass
	}
	if v, ok := os.LookupEnv("DOCCHAT_PROD"); ok {
		prod, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DOCCHAT_PROD: %w", err)
		}
		s.Log.Prod = prod
	}

	// provider keys follow the provider that uses them
	s.Embedding.APIKey = firstNonEmpty(s.Embedding.APIKey, providerKey(s.Embedding.Provider))
	s.Generation.APIKey = firstNonEmpty(s.Generation.APIKey, providerKey(s.Generation.Provider))
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		if s.Embedding.Provider == ProviderOpenAI && s.Embedding.BaseURL == "" {
			s.Embedding.BaseURL = v
		}
		if s.Generation.Provider == ProviderOpenAI && s.Generation.BaseURL == "" {
			s.Generation.BaseURL = v
		}
	}
	return nil
}

func providerKey(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderGemini:
		return firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (s *Settings) Validate() error {
	var errs []error
	if s.Chunking.Size <= 0 {
		errs = append(errs, errors.New("chunking.size must be positive"))
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size {
		errs = append(errs, errors.New("chunking.overlap must be in [0, size)"))
	}
	if s.Retrieval.K <= 0 || s.Retrieval.FetchKCap <= 0 || s.Retrieval.FetchKPerDocument <= 0 || s.Retrieval.TopNCap <= 0 {
		errs = append(errs, errors.New("retrieval k, fetch_k_cap, fetch_k_per_document and top_n_cap must be positive"))
	}
	if s.Retrieval.MMRLambda < 0 || s.Retrieval.MMRLambda > 1 {
		errs = append(errs, errors.New("retrieval.mmr_lambda must be in [0, 1]"))
	}
	if s.Retrieval.RerankVectorWeight < 0 || s.Retrieval.RerankVectorWeight > 1 {
		errs = append(errs, errors.New("retrieval.rerank_vector_weight must be in [0, 1]"))
	}
	if s.Retrieval.Mode != RetrievalModeMMR && s.Retrieval.Mode != RetrievalModeSimilarity {
		errs = append(errs, fmt.Errorf("retrieval.mode %q is not one of mmr, similarity", s.Retrieval.Mode))
	}
	if s.Retrieval.MergeConcurrency <= 0 {
		errs = append(errs, errors.New("retrieval.merge_concurrency must be positive"))
	}
	if s.Storage.IngestWorkers <= 0 {
		errs = append(errs, errors.New("storage.ingest_workers must be positive"))
	}
	if s.History.Window <= 0 {
		errs = append(errs, errors.New("history.window must be positive"))
	}
	switch s.History.Store {
	case HistoryStoreRedis, HistoryStoreSQLite, HistoryStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("history.store %q is not one of redis, sqlite, memory", s.History.Store))
	}
	switch s.Storage.IndexBackend {
	case IndexBackendChroma, IndexBackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("storage.index_backend %q is not one of chromem, qdrant", s.Storage.IndexBackend))
	}
	for name, provider := range map[string]string{"embedding.provider": s.Embedding.Provider, "generation.provider": s.Generation.Provider} {
		if provider != ProviderGemini && provider != ProviderOpenAI {
			errs = append(errs, fmt.Errorf("%s %q is not one of gemini, openai", name, provider))
		}
	}
	if s.Embedding.BatchSize <= 0 {
		errs = append(errs, errors.New("embedding.batch_size must be positive"))
	}
	if s.Generation.Timeout <= 0 {
		errs = append(errs, errors.New("generation.timeout must be positive"))
	}
	if strings.TrimSpace(s.Generation.NotFoundPhrase) == "" {
		errs = append(errs, errors.New("generation.not_found_phrase must not be empty"))
	}
	if s.Storage.UploadsDir == "" || s.Storage.VectorStoresDir == "" {
		errs = append(errs, errors.New("storage directories must be set"))
	}
	return errors.Join(errs...)
}
