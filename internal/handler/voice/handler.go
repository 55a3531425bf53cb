package voice

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mlavrik/voiceloop/internal/audio"
	sessionservice "github.com/mlavrik/voiceloop/internal/service/session"
	"github.com/mlavrik/voiceloop/internal/service/voice"
	"github.com/mlavrik/voiceloop/pkg/utils"
)

// Handler serves the round endpoint and locally hosted audio.
type Handler struct {
	pipeline *voice.Pipeline
	playback *audio.Store
	logger   *zap.Logger
}

// New creates the voice handler.
func New(pipeline *voice.Pipeline, playback *audio.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pipeline: pipeline, playback: playback, logger: logger}
}

// RegisterRoutes registers the round and audio routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/{sessionID}/turn", h.handleTurn)
	r.Get("/audio/{audioID}", h.handleAudio)
}

// handleTurn runs one full round from an uploaded recording. Audio
// arrives either as a multipart "audio" file or as a JSON body with a
// base64 payload.
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	audioData, format, err := h.readAudio(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := h.pipeline.RunTurn(r.Context(), sessionID, audioData, format)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

func (h *Handler) readAudio(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, "", errors.New("failed to parse multipart form")
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		file, header, err := r.FormFile("audio")
		if err != nil {
			return nil, "", errors.New("audio file is required")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", errors.New("failed to read audio file")
		}
		if len(data) == 0 {
			return nil, "", errors.New("audio file is empty")
		}

		return data, inferAudioFormat(header.Filename), nil
	}

	var payload struct {
		Audio  string `json:"audio"`
		Format string `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, "", errors.New("invalid request body")
	}
	if payload.Audio == "" {
		return nil, "", errors.New("audio is required")
	}

	data, err := base64.StdEncoding.DecodeString(payload.Audio)
	if err != nil {
		return nil, "", errors.New("audio must be base64 encoded")
	}
	if len(data) == 0 {
		return nil, "", errors.New("audio is empty")
	}

	format := payload.Format
	if format == "" {
		format = "wav"
	}
	return data, format, nil
}

func (h *Handler) respondTurnError(w http.ResponseWriter, err error) {
	var stageErr *voice.StageError

	switch {
	case errors.Is(err, sessionservice.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, sessionservice.ErrRoundInProgress):
		utils.RespondError(w, http.StatusConflict, "a round is already processing")
	case errors.Is(err, voice.ErrNoSpeech):
		utils.RespondError(w, http.StatusUnprocessableEntity, "no speech detected, try again")
	case errors.As(err, &stageErr):
		utils.RespondError(w, http.StatusBadGateway, stageErr.Error())
	default:
		h.logger.Error("turn failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "voice round failed")
	}
}

// handleAudio serves clips from the in-memory playback store (fallback
// synthesis and byte-returning providers).
func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	audioID := chi.URLParam(r, "audioID")

	clip, err := h.playback.Get(audioID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "audio not found")
		return
	}

	w.Header().Set("Content-Type", audioContentType(clip.Format))
	w.Header().Set("Content-Length", strconv.Itoa(len(clip.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(clip.Data); err != nil {
		h.logger.Warn("failed to write audio response", zap.Error(err))
	}
}

// audioContentType maps a clip format to its canonical MIME type.
func audioContentType(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "webm":
		return "audio/webm"
	case "ogg":
		return "audio/ogg"
	case "m4a":
		return "audio/mp4"
	case "":
		return "application/octet-stream"
	default:
		return "audio/" + format
	}
}

// inferAudioFormat guesses the container format from the upload filename.
func inferAudioFormat(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp3":
		return "mp3"
	case ".wav":
		return "wav"
	case ".webm":
		return "webm"
	case ".m4a":
		return "m4a"
	case ".ogg":
		return "ogg"
	default:
		return "wav"
	}
}
