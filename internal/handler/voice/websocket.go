package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mlavrik/voiceloop/internal/metrics"
	sessionmodel "github.com/mlavrik/voiceloop/internal/model/session"
	"github.com/mlavrik/voiceloop/internal/service/recorder"
	sessionservice "github.com/mlavrik/voiceloop/internal/service/session"
	"github.com/mlavrik/voiceloop/internal/service/voice"
)

// WebSocketHandler is the recorder channel: the client streams mic
// chunks over one socket, stop triggers the round, and state snapshots
// plus the finished turn come back on the same socket.
type WebSocketHandler struct {
	pipeline *voice.Pipeline
	recorder *recorder.Service
	sessions *sessionservice.Service
	metrics  *metrics.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the websocket recorder handler.
func NewWebSocketHandler(pipeline *voice.Pipeline, rec *recorder.Service, sessions *sessionservice.Service, m *metrics.Metrics, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		pipeline: pipeline,
		recorder: rec,
		sessions: sessions,
		metrics:  m,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes registers the websocket route.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`
	Data   string `json:"data,omitempty"`
}

type outboundMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; the state forwarder and the control loop
// share the socket.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) sendJSON(msgType, sessionID string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(outboundMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, err := h.sessions.Get(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.ActiveWebsockets.Inc()
		defer h.metrics.ActiveWebsockets.Dec()
	}

	wc := &wsConn{conn: conn}

	// Forward state snapshots while the socket is open.
	updates, cancel, err := h.sessions.Subscribe(sessionID)
	if err != nil {
		return
	}
	defer cancel()

	forwardCtx, stopForward := context.WithCancel(r.Context())
	defer stopForward()
	go h.forwardStates(forwardCtx, wc, sessionID, updates)

	h.logger.Info("websocket recorder opened", zap.String("session", sessionID))
	defer func() {
		// A half-finished recording dies with the socket.
		h.recorder.Abort(sessionID)
		h.logger.Info("websocket recorder closed", zap.String("session", sessionID))
	}()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			h.appendChunk(wc, sessionID, payload)
		case websocket.TextMessage:
			var msg inboundMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				wc.sendJSON("error", sessionID, map[string]string{"message": "invalid message"})
				continue
			}
			if done := h.handleControl(r.Context(), wc, sessionID, msg); done {
				return
			}
		}
	}
}

func (h *WebSocketHandler) handleControl(ctx context.Context, wc *wsConn, sessionID string, msg inboundMessage) bool {
	switch msg.Type {
	case "start":
		if err := h.sessions.StartRecording(sessionID); err != nil {
			wc.sendJSON("error", sessionID, map[string]string{"message": err.Error()})
			return false
		}
		h.recorder.Start(sessionID, msg.Format)

	case "audio":
		chunk, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			wc.sendJSON("error", sessionID, map[string]string{"message": "audio data must be base64 encoded"})
			return false
		}
		h.appendChunk(wc, sessionID, chunk)

	case "cancel":
		h.recorder.Abort(sessionID)
		if err := h.sessions.CancelRecording(sessionID); err != nil {
			wc.sendJSON("error", sessionID, map[string]string{"message": err.Error()})
		}

	case "stop":
		h.runRound(ctx, wc, sessionID)

	default:
		wc.sendJSON("error", sessionID, map[string]string{"message": "unknown message type"})
	}
	return false
}

func (h *WebSocketHandler) appendChunk(wc *wsConn, sessionID string, chunk []byte) {
	err := h.recorder.Append(sessionID, chunk)
	switch {
	case err == nil:
	case errors.Is(err, recorder.ErrRecordingTooLarge):
		_ = h.sessions.CancelRecording(sessionID)
		wc.sendJSON("error", sessionID, map[string]string{"message": "recording too long"})
	case errors.Is(err, recorder.ErrNotRecording):
		wc.sendJSON("error", sessionID, map[string]string{"message": "no active recording, send start first"})
	}
}

// runRound closes the recording and drives the full pipeline. The round
// is synchronous; state snapshots stream out via the forwarder while it
// runs.
func (h *WebSocketHandler) runRound(ctx context.Context, wc *wsConn, sessionID string) {
	audioData, format, err := h.recorder.Stop(sessionID)
	if err != nil {
		if errors.Is(err, recorder.ErrEmptyRecording) {
			_ = h.sessions.CancelRecording(sessionID)
			wc.sendJSON("error", sessionID, map[string]string{"message": "recording was empty"})
		} else {
			wc.sendJSON("error", sessionID, map[string]string{"message": "no active recording"})
		}
		return
	}

	turn, err := h.pipeline.RunTurn(ctx, sessionID, audioData, format)
	if err != nil {
		// The failure is already reflected in the session state; give
		// the client the generic message directly as well.
		message := "voice round failed"
		var stageErr *voice.StageError
		if errors.As(err, &stageErr) {
			message = stageErr.Error()
		} else if errors.Is(err, voice.ErrNoSpeech) {
			message = "no speech detected, try again"
		}
		wc.sendJSON("error", sessionID, map[string]string{"message": message})
		return
	}

	wc.sendJSON("turn", sessionID, turn)
}

func (h *WebSocketHandler) forwardStates(ctx context.Context, wc *wsConn, sessionID string, updates <-chan sessionmodel.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case state, open := <-updates:
			if !open {
				return
			}
			if err := wc.sendJSON("state", sessionID, state); err != nil {
				return
			}
		}
	}
}
