package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mlavrik/voiceloop/internal/audio"
	"github.com/mlavrik/voiceloop/internal/model/profile"
	"github.com/mlavrik/voiceloop/internal/service/recorder"
	sessionservice "github.com/mlavrik/voiceloop/internal/service/session"
)

func TestRouterHealth(t *testing.T) {
	router := NewRouter(Deps{
		Sessions: sessionservice.NewService(),
		Recorder: recorder.NewService(1024, nil),
		Playback: audio.NewStore(4),
		Profiles: profile.NewMemoryStore(profile.Seed()),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := NewRouter(Deps{
		Sessions: sessionservice.NewService(),
		Recorder: recorder.NewService(1024, nil),
		Playback: audio.NewStore(4),
		Profiles: profile.NewMemoryStore(profile.Seed()),
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouterProfilesRegistered(t *testing.T) {
	router := NewRouter(Deps{
		Sessions: sessionservice.NewService(),
		Recorder: recorder.NewService(1024, nil),
		Playback: audio.NewStore(4),
		Profiles: profile.NewMemoryStore(profile.Seed()),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
