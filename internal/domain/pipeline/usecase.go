package pipeline

import (
	"fmt"

	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

// UseCase partitions the cache and selects the pipeline topology.
type UseCase string

const (
	UseCaseBasicChatbot   UseCase = "Basic Chatbot"
	UseCaseChatbotWithWeb UseCase = "Chatbot With Web"
	UseCaseAINews         UseCase = "AI News"
)

// ParseUseCase validates a raw selector against the closed enumeration.
// Matching is exact and case-sensitive; anything else is a client fault.
func ParseUseCase(raw string) (UseCase, error) {
	switch UseCase(raw) {
	case UseCaseBasicChatbot, UseCaseChatbotWithWeb, UseCaseAINews:
		return UseCase(raw), nil
	default:
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("invalid use case: %s", raw), nil)
	}
}
