package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mlavrik/voiceloop/internal/audio"
	"github.com/mlavrik/voiceloop/internal/model/profile"
	model "github.com/mlavrik/voiceloop/internal/model/session"
	"github.com/mlavrik/voiceloop/internal/service/ai"
	"github.com/mlavrik/voiceloop/internal/service/recorder"
	sessionservice "github.com/mlavrik/voiceloop/internal/service/session"
	voiceservice "github.com/mlavrik/voiceloop/internal/service/voice"
	"github.com/mlavrik/voiceloop/internal/upstream"
)

type wsFixture struct {
	server   *httptest.Server
	sessions *sessionservice.Service
	session  model.Session
}

func setupWS(t *testing.T) *wsFixture {
	t.Helper()

	chatSvc, err := ai.NewService(context.Background(), &fakeChatModel{reply: "ws reply"})
	if err != nil {
		t.Fatalf("ai.NewService err: %v", err)
	}

	sessions := sessionservice.NewService()
	sess, err := sessions.Create(context.Background(), "default")
	if err != nil {
		t.Fatalf("Create session err: %v", err)
	}

	pipeline := voiceservice.NewPipeline(voiceservice.Options{
		Transcriber: &fakeTranscriber{text: "ws question"},
		Chat:        chatSvc,
		Synthesizer: &fakeSynthesizer{result: upstream.SpeechResult{AudioURL: "https://cdn/ws.mp3"}},
		Playback:    audio.NewStore(8),
		Sessions:    sessions,
		Profiles:    profile.NewMemoryStore(profile.Seed()),
	})

	h := NewWebSocketHandler(pipeline, recorder.NewService(1024, nil), sessions, nil, nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &wsFixture{server: srv, sessions: sessions, session: sess}
}

func (fx *wsFixture) dial(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/sessions/" + sessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage skips state snapshots until a message of the wanted type
// arrives.
func readMessage(t *testing.T, conn *websocket.Conn, wantType string) map[string]interface{} {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read err waiting for %q: %v", wantType, err)
		}
		if msg["type"] == wantType {
			return msg
		}
		if msg["type"] != "state" {
			t.Fatalf("unexpected message %v while waiting for %q", msg, wantType)
		}
	}
}

func TestWebSocketRound(t *testing.T) {
	fx := setupWS(t)
	conn := fx.dial(t, fx.session.ID)

	if err := conn.WriteJSON(map[string]string{"type": "start", "format": "webm"}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("chunk")); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	if err := conn.WriteJSON(map[string]string{"type": "stop"}); err != nil {
		t.Fatalf("write stop: %v", err)
	}

	msg := readMessage(t, conn, "turn")
	data, ok := msg["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("turn message carries no data: %v", msg)
	}
	if data["transcript"] != "ws question" || data["reply"] != "ws reply" {
		t.Fatalf("unexpected turn payload: %v", data)
	}
	if data["audioUrl"] != "https://cdn/ws.mp3" {
		t.Fatalf("unexpected audio url: %v", data["audioUrl"])
	}

	state, err := fx.sessions.GetState(context.Background(), fx.session.ID)
	if err != nil {
		t.Fatalf("GetState err: %v", err)
	}
	if state.Status != model.StatusReady {
		t.Fatalf("expected ready after the round, got %s", state.Status)
	}
}

func TestWebSocketStopWithoutStart(t *testing.T) {
	fx := setupWS(t)
	conn := fx.dial(t, fx.session.ID)

	if err := conn.WriteJSON(map[string]string{"type": "stop"}); err != nil {
		t.Fatalf("write stop: %v", err)
	}

	msg := readMessage(t, conn, "error")
	data, _ := msg["data"].(map[string]interface{})
	if data["message"] != "no active recording" {
		t.Fatalf("unexpected error payload: %v", msg)
	}
}

func TestWebSocketCancelReturnsToIdle(t *testing.T) {
	fx := setupWS(t)
	conn := fx.dial(t, fx.session.ID)

	if err := conn.WriteJSON(map[string]string{"type": "start"}); err != nil {
		t.Fatalf("write start: %v", err)
	}

	// Wait for the recording snapshot so cancel races nothing.
	state := readMessage(t, conn, "state")
	data, _ := state["data"].(map[string]interface{})
	if data["status"] != "recording" {
		t.Fatalf("expected recording snapshot, got %v", state)
	}

	if err := conn.WriteJSON(map[string]string{"type": "cancel"}); err != nil {
		t.Fatalf("write cancel: %v", err)
	}

	idle := readMessage(t, conn, "state")
	data, _ = idle["data"].(map[string]interface{})
	if data["status"] != "idle" {
		t.Fatalf("expected idle snapshot, got %v", idle)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	fx := setupWS(t)

	url := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/sessions/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %+v", resp)
	}
}
