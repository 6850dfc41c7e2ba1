package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/ai-chatbot/internal/domain/chat"
	"github.com/yanqian/ai-chatbot/internal/domain/news"
	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	"github.com/yanqian/ai-chatbot/internal/infra/config"
	"github.com/yanqian/ai-chatbot/internal/infra/statsstore"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

type stubChatService struct {
	runFn func(ctx context.Context, req chat.Request) (chat.Response, error)
}

func (s *stubChatService) Run(ctx context.Context, req chat.Request) (chat.Response, error) {
	if s.runFn == nil {
		return chat.Response{}, nil
	}
	return s.runFn(ctx, req)
}

type stubNewsService struct {
	runFn func(ctx context.Context, req news.Request) (news.Result, error)
}

func (s *stubNewsService) Run(ctx context.Context, req news.Request) (news.Result, error) {
	if s.runFn == nil {
		return news.Result{}, nil
	}
	return s.runFn(ctx, req)
}

type stubCache struct {
	stats    qacache.Stats
	statsErr error
	cleared  bool
}

func (s *stubCache) Store(context.Context, string, string, string, map[string]any) bool { return true }
func (s *stubCache) Search(context.Context, string, string, int, float64) []qacache.SearchMatch {
	return nil
}
func (s *stubCache) Stats(context.Context) (qacache.Stats, error) { return s.stats, s.statsErr }
func (s *stubCache) Clear(context.Context) bool                   { return s.cleared }

func newRouterUnderTest(chatSvc chat.Service, newsSvc news.Service, cache qacache.Cache, degraded bool) *http.Server {
	cfg := &config.Config{
		HTTP: config.HTTPConfig{Address: ":0"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	health := HealthState{
		Version:  "0.1.0",
		Started:  time.Now(),
		Degraded: func() bool { return degraded },
	}
	handler := NewHandler(chatSvc, newsSvc, cache, statsstore.NewMemoryStore(), health, logger)
	return NewRouter(cfg, handler)
}

func performRequest(server *http.Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeErrorBody(t *testing.T, payload []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(payload, &body))
	return body
}

func TestRouter_ChatSuccess(t *testing.T) {
	svc := &stubChatService{
		runFn: func(_ context.Context, req chat.Request) (chat.Response, error) {
			require.Equal(t, "Basic Chatbot", req.Usecase)
			require.Equal(t, "what is go", req.Message)
			return chat.Response{Content: "Go is a language.", FromCache: false}, nil
		},
	}
	server := newRouterUnderTest(svc, &stubNewsService{}, &stubCache{}, false)

	recorder := performRequest(server, http.MethodPost, "/chat",
		`{"provider":"groq","model":"llama-3.1-8b-instant","usecase":"Basic Chatbot","message":"what is go"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got chat.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "Go is a language.", got.Content)
	require.NotEmpty(t, recorder.Header().Get("X-Request-Id"))
}

func TestRouter_ChatInvalidInput(t *testing.T) {
	svc := &stubChatService{
		runFn: func(context.Context, chat.Request) (chat.Response, error) {
			return chat.Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "message cannot be empty", nil)
		},
	}
	server := newRouterUnderTest(svc, &stubNewsService{}, &stubCache{}, false)

	recorder := performRequest(server, http.MethodPost, "/chat", `{"message":""}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "message cannot be empty")
}

func TestRouter_ChatLLMFailureMapsToBadGateway(t *testing.T) {
	svc := &stubChatService{
		runFn: func(context.Context, chat.Request) (chat.Response, error) {
			return chat.Response{}, apperrors.Wrap(apperrors.CodeLLM, "provider unavailable", nil)
		},
	}
	server := newRouterUnderTest(svc, &stubNewsService{}, &stubCache{}, false)

	recorder := performRequest(server, http.MethodPost, "/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusBadGateway, recorder.Code)
	require.Equal(t, "llm_error", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_NewsSummary(t *testing.T) {
	svc := &stubNewsService{
		runFn: func(_ context.Context, req news.Request) (news.Result, error) {
			require.Equal(t, "last week", req.Timeframe)
			return news.Result{Summary: "digest", SavedFile: "./AINews/weekly_summary.md"}, nil
		},
	}
	server := newRouterUnderTest(&stubChatService{}, svc, &stubCache{}, false)

	recorder := performRequest(server, http.MethodPost, "/news/summary", `{"timeframe":"last week"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got news.Result
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "digest", got.Summary)
}

type healthBody struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	VectorBackend string            `json:"vector_backend"`
	Services      map[string]string `json:"services"`
}

func TestRouter_HealthReportsComponents(t *testing.T) {
	server := newRouterUnderTest(&stubChatService{}, &stubNewsService{}, &stubCache{}, false)

	recorder := performRequest(server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
	require.Equal(t, "0.1.0", body.Version)
	require.GreaterOrEqual(t, body.UptimeSeconds, 0.0)
	require.Equal(t, "primary", body.VectorBackend)
	require.Equal(t, "healthy", body.Services["vector_store"])
	require.Equal(t, "healthy", body.Services["environment"])
	require.Equal(t, "healthy", body.Services["api"])
}

func TestRouter_HealthDegradedOnFallback(t *testing.T) {
	server := newRouterUnderTest(&stubChatService{}, &stubNewsService{}, &stubCache{}, true)

	recorder := performRequest(server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, "fallback", body.VectorBackend)
}

func TestRouter_HealthChecksVectorStore(t *testing.T) {
	cache := &stubCache{statsErr: errors.New("connection refused")}
	server := newRouterUnderTest(&stubChatService{}, &stubNewsService{}, cache, false)

	recorder := performRequest(server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "degraded", body.Status)
	require.Contains(t, body.Services["vector_store"], "unhealthy")
}

func TestRouter_HealthWarnsOnMissingCredentials(t *testing.T) {
	health := HealthState{
		Version:            "0.1.0",
		Started:            time.Now(),
		Degraded:           func() bool { return false },
		MissingCredentials: func() []string { return []string{"TAVILY_API_KEY"} },
	}
	handler := NewHandler(&stubChatService{}, &stubNewsService{}, &stubCache{},
		statsstore.NewMemoryStore(), health, slog.New(slog.NewTextHandler(io.Discard, nil)))
	server := NewRouter(&config.Config{HTTP: config.HTTPConfig{Address: ":0"}}, handler)

	recorder := performRequest(server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
	require.Equal(t, "warning: missing TAVILY_API_KEY", body.Services["environment"])
}

func TestRouter_CacheStats(t *testing.T) {
	cache := &stubCache{stats: qacache.Stats{
		CollectionName: "qa_collection",
		TotalDocuments: 42,
		EmbeddingModel: "text-embedding-3-small",
	}}
	server := newRouterUnderTest(&stubChatService{}, &stubNewsService{}, cache, false)

	recorder := performRequest(server, http.MethodGet, "/api/v1/cache/stats", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Cache qacache.Stats `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "qa_collection", body.Cache.CollectionName)
	require.EqualValues(t, 42, body.Cache.TotalDocuments)
}

func TestRouter_CacheClearFailure(t *testing.T) {
	server := newRouterUnderTest(&stubChatService{}, &stubNewsService{}, &stubCache{cleared: false}, false)

	recorder := performRequest(server, http.MethodPost, "/api/v1/cache/clear", "")
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.False(t, body["cleared"])
}
