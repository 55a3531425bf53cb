package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGatewaySynthesizerReturnsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "say this" {
			t.Errorf("unexpected text: %q", req.Text)
		}

		json.NewEncoder(w).Encode(map[string]string{"audio_url": "https://cdn.example.com/a.mp3"})
	}))
	defer srv.Close()

	s, err := NewGatewaySynthesizer(srv.URL, "", 5*time.Second)
	if err != nil {
		t.Fatalf("NewGatewaySynthesizer err: %v", err)
	}

	result, err := s.Synthesize(context.Background(), "say this", "ignored-voice")
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if result.AudioURL != "https://cdn.example.com/a.mp3" {
		t.Fatalf("unexpected audio url: %q", result.AudioURL)
	}
	if len(result.Audio) != 0 {
		t.Fatal("gateway synthesizer should not return raw audio")
	}
}

func TestGatewaySynthesizerMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	s, err := NewGatewaySynthesizer(srv.URL, "", 5*time.Second)
	if err != nil {
		t.Fatalf("NewGatewaySynthesizer err: %v", err)
	}

	if _, err := s.Synthesize(context.Background(), "text", ""); err == nil {
		t.Fatal("expected error when audio_url is absent")
	}
}

func TestGatewaySynthesizerRejectsEmptyText(t *testing.T) {
	s, err := NewGatewaySynthesizer("http://localhost:1", "", time.Second)
	if err != nil {
		t.Fatalf("NewGatewaySynthesizer err: %v", err)
	}
	if _, err := s.Synthesize(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for blank text")
	}
}
