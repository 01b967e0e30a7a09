package config

import "time"

// Config is the full application configuration, resolved once at startup.
// Core packages never read the environment themselves; they receive
// resolved values from the composition root.
type Config struct {
	Server      ServerConfig
	LLM         LLMConfig
	Embedding   EmbeddingConfig
	Search      SearchConfig
	Storage     StorageConfig
	VectorStore VectorStoreConfig
	Redis       RedisConfig
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port         string
	CORSOrigins  string
	BodyLimit    int
	LogLevel     string
	SystemPrompt string
}

// LLMConfig selects and tunes the chat model backend
type LLMConfig struct {
	Provider    string // openai | dashscope | anthropic
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// EmbeddingConfig tunes the embedding backend (always OpenAI-compatible)
type EmbeddingConfig struct {
	APIKey    string
	Model     string
	Dimension int
}

// SearchConfig configures the Serper web-search tool
type SearchConfig struct {
	SerperAPIKey string
	Country      string
	Language     string
	Location     string
	Timeout      time.Duration
}

// StorageConfig selects where raw uploads live
type StorageConfig struct {
	Mode      string // local | s3
	UploadDir string
	S3Bucket  string
	S3Prefix  string
}

// VectorStoreConfig selects the vector store backend
type VectorStoreConfig struct {
	Mode        string // memory | pgvector
	PostgresDSN string
	TableName   string
}

// RedisConfig enables Redis-backed session memory when Addr is set
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

// Load resolves the configuration from the environment
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
			BodyLimit:    getEnvInt("BODY_LIMIT_MB", 10) * 1024 * 1024,
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			SystemPrompt: getEnv("SYSTEM_PROMPT", ""),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", ""),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 0),
		},
		Embedding: EmbeddingConfig{
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			Model:     getEnv("EMBEDDING_MODEL", ""),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		},
		Search: SearchConfig{
			SerperAPIKey: getEnv("SERPER_API_KEY", ""),
			Country:      getEnv("SEARCH_COUNTRY", "us"),
			Language:     getEnv("SEARCH_LANGUAGE", "en"),
			Location:     getEnv("SEARCH_LOCATION", "United States"),
			Timeout:      getEnvDuration("SEARCH_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Mode:      getEnv("STORAGE_MODE", "local"),
			UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
			S3Bucket:  getEnv("S3_BUCKET", ""),
			S3Prefix:  getEnv("S3_PREFIX", ""),
		},
		VectorStore: VectorStoreConfig{
			Mode:        getEnv("VSTORE_MODE", "memory"),
			PostgresDSN: getEnv("VSTORE_POSTGRES_DSN", ""),
			TableName:   getEnv("VSTORE_TABLE", "chatrelay_vectors"),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			SessionTTL: getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
	}
}
