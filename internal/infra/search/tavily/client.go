package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/ai-chatbot/internal/domain/chat"
	"github.com/yanqian/ai-chatbot/internal/domain/news"
	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
)

const defaultBaseURL = "https://api.tavily.com"

// Client fetches web and news results from the Tavily search API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("tavily api key cannot be empty")
	}
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(url, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	Topic      string `json:"topic,omitempty"`
	TimeRange  string `json:"time_range,omitempty"`
	Days       int    `json:"days,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

// SearchNews implements news.Searcher.
func (c *Client) SearchNews(ctx context.Context, req news.SearchRequest) ([]pipeline.Article, error) {
	return c.search(ctx, searchRequest{
		APIKey:     c.apiKey,
		Query:      req.Query,
		Topic:      req.Topic,
		TimeRange:  req.TimeRange,
		Days:       req.Days,
		MaxResults: req.MaxResults,
	})
}

// Search implements the chat web search capability.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]pipeline.Article, error) {
	return c.search(ctx, searchRequest{
		APIKey:     c.apiKey,
		Query:      query,
		MaxResults: maxResults,
	})
}

func (c *Client) search(ctx context.Context, req searchRequest) ([]pipeline.Article, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("search request error: status=%d body=%s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	var raw searchResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	articles := make([]pipeline.Article, 0, len(raw.Results))
	for _, result := range raw.Results {
		content := result.Content
		if content == "" {
			content = result.Title
		}
		articles = append(articles, pipeline.Article{
			Content:       content,
			URL:           result.URL,
			PublishedDate: result.PublishedDate,
		})
	}
	return articles, nil
}

var (
	_ news.Searcher    = (*Client)(nil)
	_ chat.WebSearcher = (*Client)(nil)
)
