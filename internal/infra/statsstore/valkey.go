package statsstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/ai-chatbot/internal/domain/chat"
)

// ValkeyStore tracks cache usage counters in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "chatbot"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// RecordLookup implements chat.UsageRecorder.
func (s *ValkeyStore) RecordLookup(ctx context.Context, usecase string, hit bool) error {
	field := usecase + ":misses"
	if hit {
		field = usecase + ":hits"
	}
	cmd := s.client.B().Hincrby().Key(s.lookupsKey()).Field(field).Increment(1).Build()
	return s.client.Do(ctx, cmd).Error()
}

// RecordQuestion implements chat.UsageRecorder.
func (s *ValkeyStore) RecordQuestion(ctx context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Zincrby().Key(s.trendingKey()).Increment(1).Member(canonical).Build()).Error(); err != nil {
		return err
	}
	if display != "" {
		_ = s.client.Do(ctx, s.client.B().Set().Key(s.displayKey(canonical)).Value(display).Nx().Build()).Error()
	}
	return nil
}

// Lookups implements chat.UsageRecorder.
func (s *ValkeyStore) Lookups(ctx context.Context) (map[string]chat.LookupCounts, error) {
	resp := s.client.Do(ctx, s.client.B().Hgetall().Key(s.lookupsKey()).Build())
	fields, err := resp.AsStrMap()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return map[string]chat.LookupCounts{}, nil
		}
		return nil, err
	}

	out := make(map[string]chat.LookupCounts)
	for field, raw := range fields {
		idx := strings.LastIndex(field, ":")
		if idx < 0 {
			continue
		}
		usecase, kind := field[:idx], field[idx+1:]
		var count int64
		if _, err := fmt.Sscanf(raw, "%d", &count); err != nil {
			continue
		}
		counts := out[usecase]
		switch kind {
		case "hits":
			counts.Hits = count
		case "misses":
			counts.Misses = count
		}
		out[usecase] = counts
	}
	return out, nil
}

// TopQuestions implements chat.UsageRecorder.
func (s *ValkeyStore) TopQuestions(ctx context.Context, limit int) ([]chat.TrendingQuestion, error) {
	if limit <= 0 {
		limit = 10
	}
	resp := s.client.Do(ctx, s.client.B().Zrevrange().Key(s.trendingKey()).Start(0).Stop(int64(limit-1)).Withscores().Build())
	arr, err := resp.ToArray()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]chat.TrendingQuestion, 0, len(arr))
	for i := 0; i < len(arr); {
		var (
			member string
			score  float64
		)
		if tuple, tupleErr := arr[i].ToArray(); tupleErr == nil && len(tuple) == 2 {
			// RESP3 returns [member, score] per element
			if member, err = tuple[0].ToString(); err != nil {
				if valkey.IsValkeyNil(err) {
					i++
					continue
				}
				return nil, err
			}
			if score, err = tuple[1].ToFloat64(); err != nil {
				return nil, err
			}
			i++
		} else {
			// RESP2 returns a flat alternating array.
			if i+1 >= len(arr) {
				break
			}
			if member, err = arr[i].ToString(); err != nil {
				if valkey.IsValkeyNil(err) {
					i += 2
					continue
				}
				return nil, err
			}
			if score, err = arr[i+1].ToFloat64(); err != nil {
				return nil, err
			}
			i += 2
		}
		out = append(out, chat.TrendingQuestion{
			Question: s.fetchDisplay(ctx, member),
			Count:    int64(score),
		})
	}
	return out, nil
}

func (s *ValkeyStore) fetchDisplay(ctx context.Context, canonical string) string {
	resp := s.client.Do(ctx, s.client.B().Get().Key(s.displayKey(canonical)).Build())
	display, err := resp.ToString()
	if err != nil || display == "" {
		return canonical
	}
	return display
}

func (s *ValkeyStore) lookupsKey() string {
	return fmt.Sprintf("%s:lookups", s.prefix)
}

func (s *ValkeyStore) trendingKey() string {
	return fmt.Sprintf("%s:trending", s.prefix)
}

func (s *ValkeyStore) displayKey(canonical string) string {
	return fmt.Sprintf("%s:display:%s", s.prefix, canonical)
}

var _ chat.UsageRecorder = (*ValkeyStore)(nil)
