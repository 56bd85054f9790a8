package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant backend.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Databases DatabasesConfig `mapstructure:"databases"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	CV        CVConfig        `mapstructure:"cv"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	Listen         string        `mapstructure:"listen"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ProvidersConfig lists external AI providers.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig configures the OpenAI completion and embedding client.
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// DatabasesConfig groups backing stores.
type DatabasesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig configures the knowledge base + vector store connection.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DSN assembles a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (databases.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig configures the conversation/session store.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RAGConfig tunes chunking, retrieval and the embedding retry policy.
type RAGConfig struct {
	ChunkSize           int           `mapstructure:"chunk_size"`
	ChunkOverlap        int           `mapstructure:"chunk_overlap"`
	TopK                int           `mapstructure:"top_k"`
	MinScore            float64       `mapstructure:"min_score"`
	MaxContextLength    int           `mapstructure:"max_context_length"`
	EmbeddingDimensions int           `mapstructure:"embedding_dimensions"`
	EmbedRetries        int           `mapstructure:"embed_retries"`
	EmbedBackoff        time.Duration `mapstructure:"embed_backoff"`
}

// Validate checks the chunking window invariants.
func (r RAGConfig) Validate() error {
	if r.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be > 0")
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must satisfy 0 <= overlap < chunk_size")
	}
	if r.EmbeddingDimensions <= 0 {
		return fmt.Errorf("rag.embedding_dimensions must be > 0")
	}
	return nil
}

// IngestionConfig controls scheduled re-ingestion and external sources.
type IngestionConfig struct {
	// Schedule is @hourly, @daily or a 5-field cron expression.
	Schedule    string `mapstructure:"schedule"`
	GitHubUser  string `mapstructure:"github_user"`
	GitHubToken string `mapstructure:"github_token"`
}

// CVConfig points at the downloadable CV document.
type CVConfig struct {
	DownloadURL string `mapstructure:"download_url"`
}

// LoadConfig reads config.yaml (or the given path) and environment overrides
// prefixed with ASSISTANT_.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("general.listen", ":8080")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.request_timeout", "30s")
	viper.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("providers.openai.completion_model", "gpt-4o-mini")
	viper.SetDefault("providers.openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("providers.openai.temperature", 0.2)
	viper.SetDefault("providers.openai.max_tokens", 1024)
	viper.SetDefault("providers.openai.timeout", "30s")
	viper.SetDefault("rag.chunk_size", 500)
	viper.SetDefault("rag.chunk_overlap", 100)
	viper.SetDefault("rag.top_k", 5)
	viper.SetDefault("rag.min_score", 0.0)
	viper.SetDefault("rag.max_context_length", 2000)
	viper.SetDefault("rag.embedding_dimensions", 1536)
	viper.SetDefault("rag.embed_retries", 2)
	viper.SetDefault("rag.embed_backoff", "300ms")
	viper.SetDefault("ingestion.schedule", "@daily")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("ASSISTANT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Env-only operation is fine; a missing file is not fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	if err := config.RAG.Validate(); err != nil {
		panic(err)
	}
	return &config
}
