package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
)

// The OpenAI-backed providers implement the same stage interfaces as the
// gateway clients, for deployments that point the pipeline straight at
// the OpenAI API instead of the generic HTTP services.

// OpenAITranscriber runs speech-to-text through the audio transcription API.
type OpenAITranscriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAITranscriber creates a Whisper-backed transcriber.
func NewOpenAITranscriber(apiKey, modelName, language string) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key cannot be empty")
	}
	if modelName == "" {
		modelName = openai.Whisper1
	}

	return &OpenAITranscriber{
		client:   openai.NewClient(apiKey),
		model:    modelName,
		language: language,
	}, nil
}

// Transcribe uploads the buffer and returns the recognized text.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("audio buffer is empty")
	}
	if format == "" {
		format = "wav"
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: "recording." + format,
		Reader:   bytes.NewReader(audio),
		Language: t.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	return resp.Text, nil
}

// OpenAIChatModel implements the eino chat model interface over the chat
// completions API.
type OpenAIChatModel struct {
	client *openai.Client
	model  string
}

var _ model.BaseChatModel = (*OpenAIChatModel)(nil)

// NewOpenAIChatModel creates a chat-completions-backed model.
func NewOpenAIChatModel(apiKey, modelName string) (*OpenAIChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key cannot be empty")
	}
	if modelName == "" {
		return nil, fmt.Errorf("openai chat model name cannot be empty")
	}

	return &OpenAIChatModel{client: openai.NewClient(apiKey), model: modelName}, nil
}

// Generate maps the eino messages onto a chat completion request.
func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(input))
	for _, msg := range input {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    mapRole(msg.Role),
			Content: msg.Content,
		})
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no prompt content in input messages")
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return schema.AssistantMessage(resp.Choices[0].Message.Content, nil), nil
}

// Stream satisfies the eino interface by wrapping Generate.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func mapRole(role schema.RoleType) string {
	switch role {
	case schema.System:
		return openai.ChatMessageRoleSystem
	case schema.Assistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// OpenAISynthesizer runs text-to-speech through the speech API. It
// returns raw audio bytes; the caller stores and hosts them.
type OpenAISynthesizer struct {
	client       *openai.Client
	defaultVoice string
}

// NewOpenAISynthesizer creates a speech-API-backed synthesizer.
func NewOpenAISynthesizer(apiKey, defaultVoice string) (*OpenAISynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key cannot be empty")
	}
	if defaultVoice == "" {
		defaultVoice = string(openai.VoiceAlloy)
	}

	return &OpenAISynthesizer{client: openai.NewClient(apiKey), defaultVoice: defaultVoice}, nil
}

// Synthesize renders the text and returns MP3 bytes.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, voice string) (SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return SpeechResult{}, fmt.Errorf("text is required")
	}
	if voice == "" {
		voice = s.defaultVoice
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: openai.SpeechVoice(voice),
	})
	if err != nil {
		return SpeechResult{}, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return SpeechResult{}, fmt.Errorf("failed to read speech response: %w", err)
	}

	return SpeechResult{Audio: data, Format: "mp3"}, nil
}
