package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Providers     ProvidersConfig
	Chat          ChatConfig
	Embedding     EmbeddingConfig
	Pinecone      PineconeConfig
	Retriever     RetrieverConfig
	Memory        MemoryConfig
	Session       SessionConfig
	Prompt        PromptConfig
	ExchangeLog   ExchangeLogConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// CORSAllowedOrigins lists origins that may send credentialed requests
	CORSAllowedOrigins []string
	RateLimit          RateLimitConfig
	TLS                struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// RateLimitConfig caps chat requests per client IP. Zero requests disables it.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ProvidersConfig holds LLM provider configurations
type ProvidersConfig struct {
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
}

// OpenAIConfig holds OpenAI provider configuration
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// AnthropicConfig holds Anthropic provider configuration
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// ChatConfig selects the chat model and its sampling parameters
type ChatConfig struct {
	Provider         string // openai or anthropic
	Model            string
	Temperature      *float64 // nil = provider default
	MaxTokens        int      // 0 = provider default
	MaxMessageLength int      // in runes
	Timeout          time.Duration
}

// EmbeddingConfig selects the query embedder
type EmbeddingConfig struct {
	Provider          string // huggingface or openai
	Model             string
	Dimensions        int
	HuggingFaceAPIKey string
	HuggingFaceURL    string
	Timeout           time.Duration
}

// PineconeConfig points at the pre-existing vector index
type PineconeConfig struct {
	APIKey    string
	IndexName string
	IndexHost string // Optional: resolved with DescribeIndex when empty
	Namespace string
	TextKey   string // Metadata key holding the document text
}

// RetrieverConfig controls similarity search
type RetrieverConfig struct {
	TopK           int
	ScoreThreshold float64
}

// MemoryConfig selects the conversation memory backend
type MemoryConfig struct {
	Backend     string // memory, postgres or bolt
	BoltPath    string
	MaxMessages int // 0 = unbounded
	MaxTokens   int // 0 = unbounded
}

// SessionConfig controls the signed session cookie
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
}

// PromptConfig holds the optional prompt override file
type PromptConfig struct {
	File string
}

// ExchangeLogConfig controls persistence of question/answer exchanges
type ExchangeLogConfig struct {
	Enabled     bool
	RedactPII   bool
	BufferSize  int
	WorkerCount int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

const (
	MemoryBackendInMemory = "memory"
	MemoryBackendPostgres = "postgres"
	MemoryBackendBolt     = "bolt"
)

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getPort(),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			RequestTimeout:     getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 75*time.Second),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*"}),
			RateLimit: RateLimitConfig{
				Requests: getEnvAsInt("CHAT_RATE_LIMIT", 20),
				Window:   getEnvAsDuration("CHAT_RATE_LIMIT_WINDOW", time.Minute),
			},
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database: loadDatabaseConfig(),
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				APIKey:     getEnv("OPENAI_API_KEY", ""),
				BaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Timeout:    getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
				MaxRetries: getEnvAsInt("OPENAI_MAX_RETRIES", 2),
			},
			Anthropic: AnthropicConfig{
				APIKey:     getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL:    getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				Timeout:    getEnvAsDuration("ANTHROPIC_TIMEOUT", 60*time.Second),
				MaxRetries: getEnvAsInt("ANTHROPIC_MAX_RETRIES", 2),
			},
		},
		Chat: ChatConfig{
			Provider:         strings.ToLower(getEnv("CHAT_PROVIDER", "openai")),
			Model:            getEnv("CHAT_MODEL", "gpt-4o"),
			Temperature:      getEnvAsFloatPtr("CHAT_TEMPERATURE"),
			MaxTokens:        getEnvAsInt("CHAT_MAX_TOKENS", 0),
			MaxMessageLength: getEnvAsInt("CHAT_MAX_MESSAGE_LENGTH", 4000),
			Timeout:          getEnvAsDuration("CHAT_TIMEOUT", 60*time.Second),
		},
		Embedding: EmbeddingConfig{
			Provider:          strings.ToLower(getEnv("EMBEDDING_PROVIDER", "huggingface")),
			Model:             getEnv("EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
			Dimensions:        getEnvAsInt("EMBEDDING_DIMENSIONS", 384),
			HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
			HuggingFaceURL:    getEnv("HUGGINGFACE_BASE_URL", "https://router.huggingface.co/hf-inference"),
			Timeout:           getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Pinecone: PineconeConfig{
			APIKey:    getEnv("PINECONE_API_KEY", ""),
			IndexName: getEnv("PINECONE_INDEX_NAME", "medical-chatbot"),
			IndexHost: getEnv("PINECONE_INDEX_HOST", ""),
			Namespace: getEnv("PINECONE_NAMESPACE", ""),
			TextKey:   getEnv("PINECONE_TEXT_KEY", "text"),
		},
		Retriever: RetrieverConfig{
			TopK:           getEnvAsInt("RETRIEVER_TOP_K", 3),
			ScoreThreshold: getEnvAsFloat("RETRIEVER_SCORE_THRESHOLD", 0),
		},
		Memory: MemoryConfig{
			Backend:     strings.ToLower(getEnv("MEMORY_BACKEND", MemoryBackendInMemory)),
			BoltPath:    getEnv("MEMORY_BOLT_PATH", "data/memory.db"),
			MaxMessages: getEnvAsInt("MEMORY_MAX_MESSAGES", 0),
			MaxTokens:   getEnvAsInt("MEMORY_MAX_TOKENS", 0),
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", ""),
			CookieName: getEnv("SESSION_COOKIE_NAME", "medbot_session"),
			TTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
		Prompt: PromptConfig{
			File: getEnv("PROMPT_FILE", ""),
		},
		ExchangeLog: ExchangeLogConfig{
			Enabled:     getEnvAsBool("EXCHANGE_LOG_ENABLED", false),
			RedactPII:   getEnvAsBool("REDACT_PII", true),
			BufferSize:  getEnvAsInt("EXCHANGE_LOG_BUFFER_SIZE", 1000),
			WorkerCount: getEnvAsInt("EXCHANGE_LOG_WORKERS", 2),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Chat.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported chat provider %q: must be openai or anthropic", c.Chat.Provider)
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("chat model is required")
	}

	switch c.Embedding.Provider {
	case "huggingface", "openai":
	default:
		return fmt.Errorf("unsupported embedding provider %q: must be huggingface or openai", c.Embedding.Provider)
	}

	switch c.Memory.Backend {
	case MemoryBackendInMemory, MemoryBackendPostgres, MemoryBackendBolt:
	default:
		return fmt.Errorf("unsupported memory backend %q: must be memory, postgres or bolt", c.Memory.Backend)
	}
	if c.Memory.Backend == MemoryBackendBolt && c.Memory.BoltPath == "" {
		return fmt.Errorf("bolt memory backend requires MEMORY_BOLT_PATH")
	}

	for _, origin := range c.Server.CORSAllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be * because session cookies are sent with credentials")
		}
	}
	if c.Server.RateLimit.Requests < 0 || c.Server.RateLimit.Window < 0 {
		return fmt.Errorf("chat rate limit must not be negative")
	}

	if c.Retriever.TopK <= 0 {
		return fmt.Errorf("retriever top-k must be positive")
	}

	// Database validation (DATABASE_URL or DB_* vars), only when something uses it
	if c.NeedsDatabase() {
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Database.ConnectionString == "" {
			if c.Database.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Database.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	}

	// Credentials are required in production
	if c.IsProduction() {
		if c.ChatAPIKey() == "" {
			return fmt.Errorf("%s API key is required in production", c.Chat.Provider)
		}
		if c.Pinecone.APIKey == "" {
			return fmt.Errorf("pinecone API key is required in production")
		}
		if c.Embedding.Provider == "openai" && c.Providers.OpenAI.APIKey == "" {
			return fmt.Errorf("openai API key is required for openai embeddings in production")
		}
		if c.Session.Secret == "" {
			return fmt.Errorf("session secret is required in production")
		}
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// NeedsDatabase reports whether any configured component uses PostgreSQL
func (c *Config) NeedsDatabase() bool {
	return c.Memory.Backend == MemoryBackendPostgres || c.ExchangeLog.Enabled
}

// ChatAPIKey returns the API key of the selected chat provider
func (c *Config) ChatAPIKey() string {
	if c.Chat.Provider == "anthropic" {
		return c.Providers.Anthropic.APIKey
	}
	return c.Providers.OpenAI.APIKey
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "medbot"),
		Password:        getEnv("DB_PASSWORD", "medbot"),
		Database:        getEnv("DB_NAME", "medbot"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatPtr(key string) *float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return nil
	}
	return &value
}

// getEnvAsSlice splits a comma-separated value, dropping blanks
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
