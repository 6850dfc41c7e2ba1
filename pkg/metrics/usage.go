package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenUsage captures LLM token counts used to satisfy a request.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether usage data is absent.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// NewTokenUsage counts prompt and completion tokens for a model.
func NewTokenUsage(model, prompt, completion string) TokenUsage {
	usage := TokenUsage{
		PromptTokens:     CountTokens(model, prompt),
		CompletionTokens: CountTokens(model, completion),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}

// CountTokens returns the token count for text under the model's encoding,
// falling back to a rough upper-biased estimate when the encoding is unknown.
func CountTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return len(enc.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// estimateTokens assumes ~1 token per 2 runes and never less than word count.
func estimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	byRunes := (runes + 1) / 2
	if byRunes < words {
		return words
	}
	return byRunes
}
