package statsstore

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/ai-chatbot/internal/domain/chat"
)

// MemoryStore is an in-memory UsageRecorder for tests/dev and for
// deployments without a Valkey instance.
type MemoryStore struct {
	mu       sync.RWMutex
	lookups  map[string]chat.LookupCounts
	trending map[string]int64
	displays map[string]string
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lookups:  make(map[string]chat.LookupCounts),
		trending: make(map[string]int64),
		displays: make(map[string]string),
	}
}

// RecordLookup implements chat.UsageRecorder.
func (s *MemoryStore) RecordLookup(_ context.Context, usecase string, hit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := s.lookups[usecase]
	if hit {
		counts.Hits++
	} else {
		counts.Misses++
	}
	s.lookups[usecase] = counts
	return nil
}

// RecordQuestion implements chat.UsageRecorder.
func (s *MemoryStore) RecordQuestion(_ context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trending[canonical]++
	if _, exists := s.displays[canonical]; !exists {
		s.displays[canonical] = display
	}
	return nil
}

// Lookups implements chat.UsageRecorder.
func (s *MemoryStore) Lookups(context.Context) (map[string]chat.LookupCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]chat.LookupCounts, len(s.lookups))
	for usecase, counts := range s.lookups {
		out[usecase] = counts
	}
	return out, nil
}

// TopQuestions implements chat.UsageRecorder.
func (s *MemoryStore) TopQuestions(_ context.Context, limit int) ([]chat.TrendingQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = len(s.trending)
	}
	items := make([]chat.TrendingQuestion, 0, len(s.trending))
	for canonical, count := range s.trending {
		display := s.displays[canonical]
		if display == "" {
			display = canonical
		}
		items = append(items, chat.TrendingQuestion{Question: display, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Question < items[j].Question
		}
		return items[i].Count > items[j].Count
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var _ chat.UsageRecorder = (*MemoryStore)(nil)
