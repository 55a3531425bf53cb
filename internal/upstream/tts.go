package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SpeechResult is the outcome of a synthesis call. Exactly one of
// AudioURL or Audio is set: the gateway returns a hosted URL, while
// local providers hand back raw bytes for this service to host.
type SpeechResult struct {
	AudioURL string
	Audio    []byte
	Format   string
}

// Synthesizer converts reply text into a playable audio resource.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (SpeechResult, error)
}

// GatewaySynthesizer speaks the synthesis gateway contract:
// POST {base}/tts {"text": "..."} -> {"audio_url": "..."}.
type GatewaySynthesizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewGatewaySynthesizer creates a synthesizer against the given base URL.
func NewGatewaySynthesizer(baseURL, apiKey string, timeout time.Duration) (*GatewaySynthesizer, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("synthesis base URL cannot be empty")
	}

	return &GatewaySynthesizer{
		endpoint: strings.TrimRight(baseURL, "/") + "/tts",
		apiKey:   apiKey,
		client:   newHTTPClient(timeout),
	}, nil
}

type ttsRequest struct {
	Text string `json:"text"`
}

type ttsResponse struct {
	AudioURL string `json:"audio_url"`
}

// Synthesize requests audio for the text and returns the hosted URL.
// The gateway picks the voice; the voice argument only matters to
// providers that accept one.
func (s *GatewaySynthesizer) Synthesize(ctx context.Context, text, _ string) (SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return SpeechResult{}, fmt.Errorf("text is required")
	}

	var resp ttsResponse
	if err := postJSON(ctx, s.client, s.endpoint, s.apiKey, ttsRequest{Text: text}, &resp); err != nil {
		return SpeechResult{}, fmt.Errorf("tts call failed: %w", err)
	}

	if resp.AudioURL == "" {
		return SpeechResult{}, fmt.Errorf("tts response contained no audio_url")
	}

	return SpeechResult{AudioURL: resp.AudioURL}, nil
}
