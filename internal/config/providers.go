package config

import (
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/mlavrik/voiceloop/internal/upstream"
)

// NewTranscriber builds the speech-to-text provider this section selects.
func (c STTConfig) NewTranscriber() (upstream.Transcriber, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("STT configuration incomplete: set STT_BASE_URL or an OpenAI key with STT_PROVIDER=openai")
	}

	switch c.Provider {
	case ProviderOpenAI:
		return upstream.NewOpenAITranscriber(c.APIKey, c.Model, c.Language)
	default:
		return upstream.NewGatewayTranscriber(c.BaseURL, c.APIKey, c.Timeout)
	}
}

// NewChatModel builds the chat model this section selects. Both
// implementations satisfy the eino chat model interface consumed by the
// AI service chain.
func (c LLMConfig) NewChatModel() (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("LLM configuration incomplete: set LLM_BASE_URL or an OpenAI key and model with LLM_PROVIDER=openai")
	}

	switch c.Provider {
	case ProviderOpenAI:
		return upstream.NewOpenAIChatModel(c.APIKey, c.Model)
	default:
		return upstream.NewHTTPChatModel(c.BaseURL, c.APIKey, c.Timeout)
	}
}

// NewSynthesizer builds the text-to-speech provider this section selects.
func (c TTSConfig) NewSynthesizer() (upstream.Synthesizer, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("TTS configuration incomplete: set TTS_BASE_URL or an OpenAI key with TTS_PROVIDER=openai")
	}

	switch c.Provider {
	case ProviderOpenAI:
		return upstream.NewOpenAISynthesizer(c.APIKey, c.Voice)
	default:
		return upstream.NewGatewaySynthesizer(c.BaseURL, c.APIKey, c.Timeout)
	}
}
