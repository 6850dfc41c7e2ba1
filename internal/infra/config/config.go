package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP   HTTPConfig   `yaml:"http"`
	LLM    LLMConfig    `yaml:"llm"`
	Vector VectorConfig `yaml:"vector"`
	Cache  CacheConfig  `yaml:"cache"`
	News   NewsConfig   `yaml:"news"`
	Stats  StatsConfig  `yaml:"stats"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig contains provider credentials and model defaults. Groq and
// OpenAI share the OpenAI wire protocol; embeddings always go to OpenAI.
type LLMConfig struct {
	DefaultProvider string  `yaml:"defaultProvider"`
	DefaultModel    string  `yaml:"defaultModel"`
	Temperature     float32 `yaml:"temperature"`
	EmbeddingModel  string  `yaml:"embeddingModel"`

	GroqAPIKey    string `yaml:"groqApiKey"`
	GroqBaseURL   string `yaml:"groqBaseUrl"`
	OpenAIAPIKey  string `yaml:"openaiApiKey"`
	OpenAIBaseURL string `yaml:"openaiBaseUrl"`
}

// VectorConfig configures the vector store backends.
type VectorConfig struct {
	Postgres       PostgresConfig `yaml:"postgres"`
	SQLitePath     string         `yaml:"sqlitePath"`
	Dimension      int            `yaml:"dimension"`
	QACollection   string         `yaml:"qaCollection"`
	NewsCollection string         `yaml:"newsCollection"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// CacheConfig controls similarity gating.
type CacheConfig struct {
	ChatThreshold float64 `yaml:"chatThreshold"`
	NewsThreshold float64 `yaml:"newsThreshold"`
	SearchLimit   int     `yaml:"searchLimit"`
}

// NewsConfig controls the news digest pipeline.
type NewsConfig struct {
	TavilyAPIKey     string   `yaml:"tavilyApiKey"`
	TavilyBaseURL    string   `yaml:"tavilyBaseUrl"`
	MaxResults       int      `yaml:"maxResults"`
	WebSearchResults int      `yaml:"webSearchResults"`
	Sink             string   `yaml:"sink"`
	OutputDir        string   `yaml:"outputDir"`
	S3               S3Config `yaml:"s3"`
}

// S3Config contains the bucket settings for the s3 digest sink.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// StatsConfig contains connection information for usage tracking.
type StatsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = isTrue(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("LLM_DEFAULT_PROVIDER"); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	if v := os.Getenv("LLM_DEFAULT_MODEL"); v != "" {
		cfg.LLM.DefaultModel = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.LLM.GroqAPIKey = v
	}
	if v := os.Getenv("GROQ_BASE_URL"); v != "" {
		cfg.LLM.GroqBaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.OpenAIBaseURL = v
	}
	if v := os.Getenv("VECTOR_POSTGRES_DSN"); v != "" {
		cfg.Vector.Postgres.DSN = v
	}
	if v := os.Getenv("VECTOR_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Vector.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("VECTOR_SQLITE_PATH"); v != "" {
		cfg.Vector.SQLitePath = v
	}
	if v := os.Getenv("VECTOR_DIMENSION"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Vector.Dimension = parsed
		}
	}
	if v := os.Getenv("CACHE_CHAT_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Cache.ChatThreshold = parsed
		}
	}
	if v := os.Getenv("CACHE_NEWS_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Cache.NewsThreshold = parsed
		}
	}
	if v := os.Getenv("CACHE_SEARCH_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Cache.SearchLimit = parsed
		}
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		cfg.News.TavilyAPIKey = v
	}
	if v := os.Getenv("TAVILY_BASE_URL"); v != "" {
		cfg.News.TavilyBaseURL = v
	}
	if v := os.Getenv("NEWS_MAX_RESULTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.News.MaxResults = parsed
		}
	}
	if v := os.Getenv("NEWS_SINK"); v != "" {
		cfg.News.Sink = v
	}
	if v := os.Getenv("NEWS_OUTPUT_DIR"); v != "" {
		cfg.News.OutputDir = v
	}
	if v := os.Getenv("NEWS_S3_ENDPOINT"); v != "" {
		cfg.News.S3.Endpoint = v
	}
	if v := os.Getenv("NEWS_S3_ACCESS_KEY"); v != "" {
		cfg.News.S3.AccessKey = v
	}
	if v := os.Getenv("NEWS_S3_SECRET_KEY"); v != "" {
		cfg.News.S3.SecretKey = v
	}
	if v := os.Getenv("NEWS_S3_BUCKET"); v != "" {
		cfg.News.S3.Bucket = v
	}
	if v := os.Getenv("STATS_VALKEY_ENABLED"); v != "" {
		cfg.Stats.Enabled = isTrue(v)
	}
	if v := os.Getenv("STATS_VALKEY_ADDR"); v != "" {
		cfg.Stats.Addr = v
	}
}

func isTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			DefaultProvider: "groq",
			DefaultModel:    "llama-3.1-8b-instant",
			Temperature:     0.2,
			EmbeddingModel:  "text-embedding-3-small",
			GroqBaseURL:     "https://api.groq.com/openai/v1",
			OpenAIBaseURL:   "https://api.openai.com/v1",
		},
		Vector: VectorConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			SQLitePath:     "./data/vectors.db",
			Dimension:      1536,
			QACollection:   "qa_collection",
			NewsCollection: "ai_news_collection",
		},
		Cache: CacheConfig{
			ChatThreshold: 0.8,
			NewsThreshold: 0.75,
			SearchLimit:   3,
		},
		News: NewsConfig{
			TavilyBaseURL:    "https://api.tavily.com",
			MaxResults:       20,
			WebSearchResults: 3,
			Sink:             "file",
			OutputDir:        "./AINews",
		},
		Stats: StatsConfig{
			Enabled: false,
			Prefix:  "chatbot",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.LLM.DefaultProvider) == "" {
		return errors.New("llm.defaultProvider cannot be empty")
	}
	if strings.TrimSpace(c.LLM.DefaultModel) == "" {
		return errors.New("llm.defaultModel cannot be empty")
	}
	if strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
		return errors.New("llm.embeddingModel cannot be empty")
	}
	if c.Vector.Dimension <= 0 {
		return errors.New("vector.dimension must be positive")
	}
	if strings.TrimSpace(c.Vector.QACollection) == "" {
		return errors.New("vector.qaCollection cannot be empty")
	}
	if strings.TrimSpace(c.Vector.NewsCollection) == "" {
		return errors.New("vector.newsCollection cannot be empty")
	}
	if c.Cache.ChatThreshold < 0 || c.Cache.ChatThreshold > 1 {
		return errors.New("cache.chatThreshold must lie in [0, 1]")
	}
	if c.Cache.NewsThreshold < 0 || c.Cache.NewsThreshold > 1 {
		return errors.New("cache.newsThreshold must lie in [0, 1]")
	}
	if c.Cache.SearchLimit <= 0 {
		return errors.New("cache.searchLimit must be positive")
	}
	if c.News.MaxResults <= 0 {
		return errors.New("news.maxResults must be positive")
	}
	switch c.News.Sink {
	case "file", "s3":
	default:
		return errors.New("news.sink must be file or s3")
	}
	if c.News.Sink == "s3" {
		if strings.TrimSpace(c.News.S3.Endpoint) == "" || strings.TrimSpace(c.News.S3.Bucket) == "" {
			return errors.New("news.s3.endpoint and news.s3.bucket are required for the s3 sink")
		}
	}
	if c.Stats.Enabled && strings.TrimSpace(c.Stats.Addr) == "" {
		return errors.New("stats.addr cannot be empty when usage tracking is enabled")
	}
	return nil
}
