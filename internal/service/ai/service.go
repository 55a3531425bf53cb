package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/mlavrik/voiceloop/internal/model/profile"
)

const defaultSystemPrompt = "You are a helpful voice assistant. Answer briefly; the reply will be spoken aloud."

// Service runs the chat stage: it composes the assistant prompt with the
// transcript and invokes the configured chat model through a prompt chain.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the prompt chain over the supplied chat model.
func NewService(ctx context.Context, chatModel model.BaseChatModel) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// GenerateReply produces the assistant reply for one transcript.
func (s *Service) GenerateReply(ctx context.Context, prof *profile.Profile, transcript string) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", fmt.Errorf("transcript is empty")
	}

	input := map[string]any{
		"system": systemPrompt(prof),
		"query":  transcript,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	reply := strings.TrimSpace(response.Content)
	if reply == "" {
		return "", fmt.Errorf("chat model returned an empty reply")
	}
	return reply, nil
}

func systemPrompt(prof *profile.Profile) string {
	if prof != nil && strings.TrimSpace(prof.PromptPrefix) != "" {
		return prof.PromptPrefix
	}
	return defaultSystemPrompt
}
