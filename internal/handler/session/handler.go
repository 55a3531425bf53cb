package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mlavrik/voiceloop/internal/metrics"
	"github.com/mlavrik/voiceloop/internal/model/profile"
	sessionservice "github.com/mlavrik/voiceloop/internal/service/session"
	"github.com/mlavrik/voiceloop/pkg/utils"
)

const defaultProfileID = "default"

// Handler serves session creation, view-state reads, and the SSE state
// stream the frontend renders from.
type Handler struct {
	sessions *sessionservice.Service
	profiles profile.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New creates the session handler.
func New(sessions *sessionservice.Service, profiles profile.Store, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, profiles: profiles, metrics: m, logger: logger}
}

// RegisterRoutes registers the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreate)
	r.Get("/sessions/{sessionID}", h.handleGetState)
	r.Get("/sessions/{sessionID}/events", h.handleEvents)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProfileID string `json:"profileId"`
	}

	// An empty body is fine; the default profile applies.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profileID := payload.ProfileID
	if profileID == "" {
		profileID = defaultProfileID
	}

	if _, ok := h.profiles.FindByID(profileID); !ok {
		utils.RespondError(w, http.StatusBadRequest, "profile not found")
		return
	}

	sess, err := h.sessions.Create(r.Context(), profileID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	state, err := h.sessions.GetState(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, state)
}

// handleEvents streams state snapshots over SSE: the current state on
// connect, one event per transition afterwards, with heartbeats to keep
// intermediaries from closing the stream.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	state, err := h.sessions.GetState(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	updates, cancel, err := h.sessions.Subscribe(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	defer cancel()

	if h.metrics != nil {
		h.metrics.ActiveEventFeeds.Inc()
		defer h.metrics.ActiveEventFeeds.Dec()
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "state", state)

	ctx := r.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, open := <-updates:
			if !open {
				return
			}
			utils.SendSSEEvent(w, flusher, "state", snapshot)
		case <-heartbeat.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}
