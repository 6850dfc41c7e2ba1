package chat

import "context"

// TrendingQuestion is a frequently asked question with its ask count.
type TrendingQuestion struct {
	Question string `json:"question"`
	Count    int64  `json:"count"`
}

// LookupCounts aggregates cache decisions per use case.
type LookupCounts struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// UsageRecorder tracks cache effectiveness and trending questions. All
// recording is best-effort; callers log failures and move on.
type UsageRecorder interface {
	RecordLookup(ctx context.Context, usecase string, hit bool) error
	RecordQuestion(ctx context.Context, canonical, display string) error
	Lookups(ctx context.Context) (map[string]LookupCounts, error)
	TopQuestions(ctx context.Context, limit int) ([]TrendingQuestion, error)
}
