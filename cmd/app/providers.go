package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ai-chatbot/internal/domain/chat"
	"github.com/yanqian/ai-chatbot/internal/domain/news"
	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	"github.com/yanqian/ai-chatbot/internal/infra/config"
	"github.com/yanqian/ai-chatbot/internal/infra/embedder"
	"github.com/yanqian/ai-chatbot/internal/infra/llm"
	"github.com/yanqian/ai-chatbot/internal/infra/llm/chatgpt"
	"github.com/yanqian/ai-chatbot/internal/infra/newssink"
	"github.com/yanqian/ai-chatbot/internal/infra/search/tavily"
	"github.com/yanqian/ai-chatbot/internal/infra/statsstore"
	"github.com/yanqian/ai-chatbot/internal/infra/vectorstore"
	httpiface "github.com/yanqian/ai-chatbot/internal/interface/http"
)

func provideChatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		SimilarityThreshold: cfg.Cache.ChatThreshold,
		SearchLimit:         cfg.Cache.SearchLimit,
		WebSearchResults:    cfg.News.WebSearchResults,
		EmbeddingModel:      cfg.LLM.EmbeddingModel,
	}
}

func provideNewsConfig(cfg *config.Config) news.Config {
	return news.Config{
		Provider:            cfg.LLM.DefaultProvider,
		Model:               cfg.LLM.DefaultModel,
		SimilarityThreshold: cfg.Cache.NewsThreshold,
		SearchLimit:         cfg.Cache.SearchLimit,
		MaxArticles:         cfg.News.MaxResults,
		EmbeddingModel:      cfg.LLM.EmbeddingModel,
	}
}

func provideGeneratorFactory(cfg *config.Config, logger *slog.Logger) pipeline.GeneratorFactory {
	return llm.NewFactory(map[string]llm.ProviderConfig{
		"groq": {
			APIKey:      cfg.LLM.GroqAPIKey,
			BaseURL:     cfg.LLM.GroqBaseURL,
			Temperature: cfg.LLM.Temperature,
		},
		"openai": {
			APIKey:      cfg.LLM.OpenAIAPIKey,
			BaseURL:     cfg.LLM.OpenAIBaseURL,
			Temperature: cfg.LLM.Temperature,
		},
	}, logger)
}

func provideEmbedder(cfg *config.Config, logger *slog.Logger) qacache.Embedder {
	if strings.TrimSpace(cfg.LLM.OpenAIAPIKey) != "" {
		client, err := chatgpt.NewClient(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL)
		if err == nil {
			return embedder.NewChatGPTEmbedder(client, cfg.LLM.EmbeddingModel, logger)
		}
		logger.Error("embeddings client init failed, using deterministic embedder", "error", err)
	} else {
		logger.Warn("no embeddings api key set, using deterministic embedder")
	}
	return embedder.NewDeterministicEmbedder(cfg.Vector.Dimension)
}

// vectorBackend bundles the assembled store with its degradation flag.
type vectorBackend struct {
	store    qacache.VectorStore
	degraded func() bool
}

func provideVectorBackend(cfg *config.Config, emb qacache.Embedder, logger *slog.Logger) (*vectorBackend, error) {
	local, err := vectorstore.NewSQLiteStore(cfg.Vector.SQLitePath, emb, logger)
	if err != nil {
		logger.Error("sqlite store unavailable, using memory store", "error", err)
		memory := vectorstore.NewMemoryStore(emb)
		return &vectorBackend{store: memory, degraded: func() bool { return false }}, nil
	}

	dsn := strings.TrimSpace(cfg.Vector.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, vector store runs on sqlite")
		return &vectorBackend{store: local, degraded: func() bool { return false }}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.Vector.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Vector.Postgres.MaxConns
	}
	if cfg.Vector.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Vector.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, vector store runs on sqlite", "error", err)
		pool.Close()
		return &vectorBackend{store: local, degraded: func() bool { return true }}, nil
	}

	remote := vectorstore.NewPostgresStore(pool, emb, cfg.Vector.Dimension, logger)
	failover := vectorstore.NewFailoverStore(remote, local, logger)
	logger.Info("vector store running on postgres with sqlite fallback")
	return &vectorBackend{store: failover, degraded: failover.Degraded}, nil
}

const appVersion = "0.1.0"

func provideHealthState(cfg *config.Config, backend *vectorBackend) httpiface.HealthState {
	missing := make([]string, 0, 3)
	if cfg.LLM.GroqAPIKey == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	if cfg.LLM.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if cfg.News.TavilyAPIKey == "" {
		missing = append(missing, "TAVILY_API_KEY")
	}
	return httpiface.HealthState{
		Version:            appVersion,
		Started:            time.Now(),
		Degraded:           backend.degraded,
		MissingCredentials: func() []string { return missing },
	}
}

func provideQACache(cfg *config.Config, backend *vectorBackend, logger *slog.Logger) qacache.Cache {
	return qacache.NewCache(qacache.Config{
		Collection:     cfg.Vector.QACollection,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	}, backend.store, logger)
}

// newsCacheHolder keeps the news-collection cache distinct for injection.
type newsCacheHolder struct {
	cache qacache.Cache
}

func provideNewsCache(cfg *config.Config, backend *vectorBackend, logger *slog.Logger) newsCacheHolder {
	return newsCacheHolder{cache: qacache.NewCache(qacache.Config{
		Collection:     cfg.Vector.NewsCollection,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	}, backend.store, logger)}
}

func provideSearchClient(cfg *config.Config, logger *slog.Logger) *tavily.Client {
	client, err := tavily.NewClient(cfg.News.TavilyAPIKey, cfg.News.TavilyBaseURL)
	if err != nil {
		logger.Warn("web search disabled", "error", err)
		return nil
	}
	return client
}

func provideWebSearcher(client *tavily.Client) chat.WebSearcher {
	if client == nil {
		return disabledSearcher{}
	}
	return client
}

func provideNewsSearcher(client *tavily.Client) news.Searcher {
	if client == nil {
		return disabledSearcher{}
	}
	return client
}

// disabledSearcher stands in when no search API key is configured.
type disabledSearcher struct{}

func (disabledSearcher) Search(context.Context, string, int) ([]pipeline.Article, error) {
	return nil, errors.New("web search is not configured")
}

func (disabledSearcher) SearchNews(context.Context, news.SearchRequest) ([]pipeline.Article, error) {
	return nil, errors.New("news search is not configured")
}

func provideNewsSink(cfg *config.Config, logger *slog.Logger) news.Sink {
	if cfg.News.Sink == "s3" {
		sink, err := newssink.NewS3Sink(
			cfg.News.S3.Endpoint,
			cfg.News.S3.AccessKey,
			cfg.News.S3.SecretKey,
			cfg.News.S3.Bucket,
			cfg.News.S3.Prefix,
			logger,
		)
		if err == nil {
			logger.Info("news digests will be written to s3", "bucket", cfg.News.S3.Bucket)
			return sink
		}
		logger.Error("s3 sink init failed, falling back to file sink", "error", err)
	}
	return newssink.NewFileSink(cfg.News.OutputDir)
}

func provideUsageRecorder(cfg *config.Config, logger *slog.Logger) chat.UsageRecorder {
	if cfg.Stats.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory stats", "error", err)
			return statsstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory stats", "error", err)
			return statsstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory stats", "error", err)
		} else {
			logger.Info("usage stats tracked in valkey", "addr", cfg.Stats.Addr)
			return statsstore.NewValkeyStore(client, cfg.Stats.Prefix)
		}
	}
	return statsstore.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Stats.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Stats.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Stats.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideNewsService(cfg news.Config, holder newsCacheHolder, searcher news.Searcher, factory pipeline.GeneratorFactory, sink news.Sink, logger *slog.Logger) news.Service {
	return news.NewService(cfg, holder.cache, searcher, factory, sink, logger)
}
