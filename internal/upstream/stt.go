package upstream

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Transcriber converts a recorded audio buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// GatewayTranscriber speaks the transcription gateway contract:
// POST {base}/transcribe {"audio": "<base64>"} -> {"text": "..."}.
type GatewayTranscriber struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewGatewayTranscriber creates a transcriber against the given base URL.
func NewGatewayTranscriber(baseURL, apiKey string, timeout time.Duration) (*GatewayTranscriber, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("transcription base URL cannot be empty")
	}

	return &GatewayTranscriber{
		endpoint: strings.TrimRight(baseURL, "/") + "/transcribe",
		apiKey:   apiKey,
		client:   newHTTPClient(timeout),
	}, nil
}

type transcribeRequest struct {
	Audio string `json:"audio"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the base64-encoded buffer and returns the recognized text.
func (t *GatewayTranscriber) Transcribe(ctx context.Context, audio []byte, _ string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("audio buffer is empty")
	}

	req := transcribeRequest{Audio: base64.StdEncoding.EncodeToString(audio)}

	var resp transcribeResponse
	if err := postJSON(ctx, t.client, t.endpoint, t.apiKey, req, &resp); err != nil {
		return "", fmt.Errorf("transcribe call failed: %w", err)
	}

	return resp.Text, nil
}
