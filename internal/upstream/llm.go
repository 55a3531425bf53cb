package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// HTTPChatModel adapts the chat gateway contract
// (POST {base}/chat {"prompt": "..."} -> {"reply": "..."}) to the eino
// chat model interface, so the AI service chain runs unchanged on top of
// an opaque HTTP collaborator.
type HTTPChatModel struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ model.BaseChatModel = (*HTTPChatModel)(nil)

// NewHTTPChatModel creates a chat model against the given base URL.
func NewHTTPChatModel(baseURL, apiKey string, timeout time.Duration) (*HTTPChatModel, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("chat base URL cannot be empty")
	}

	return &HTTPChatModel{
		endpoint: strings.TrimRight(baseURL, "/") + "/chat",
		apiKey:   apiKey,
		client:   newHTTPClient(timeout),
	}, nil
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Generate flattens the message list into a single prompt, since the
// gateway carries no role structure, and returns the reply as an
// assistant message.
func (m *HTTPChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	prompt := FlattenPrompt(input)
	if prompt == "" {
		return nil, fmt.Errorf("no prompt content in input messages")
	}

	var resp chatResponse
	if err := postJSON(ctx, m.client, m.endpoint, m.apiKey, chatRequest{Prompt: prompt}, &resp); err != nil {
		return nil, fmt.Errorf("chat call failed: %w", err)
	}

	return schema.AssistantMessage(resp.Reply, nil), nil
}

// Stream satisfies the eino interface by wrapping Generate; the gateway
// has no streaming endpoint.
func (m *HTTPChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// FlattenPrompt joins system and user content into the single prompt
// string the gateway accepts.
func FlattenPrompt(input []*schema.Message) string {
	var parts []string
	for _, msg := range input {
		if msg == nil {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n\n")
}
