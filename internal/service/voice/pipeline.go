package voice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mlavrik/voiceloop/internal/audio"
	"github.com/mlavrik/voiceloop/internal/metrics"
	"github.com/mlavrik/voiceloop/internal/model/profile"
	model "github.com/mlavrik/voiceloop/internal/model/session"
	"github.com/mlavrik/voiceloop/internal/service/ai"
	sessionservice "github.com/mlavrik/voiceloop/internal/service/session"
	"github.com/mlavrik/voiceloop/internal/upstream"
)

// ErrNoSpeech marks a round whose recording produced no transcript.
var ErrNoSpeech = errors.New("no speech detected")

// StageError reports which pipeline stage aborted a round. Its message
// is the generic text shown to the user; the cause stays in the logs.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	switch e.Stage {
	case StageTranscribe:
		return "transcription failed"
	case StageChat:
		return "chat failed"
	case StageSynthesize:
		return "speech synthesis failed"
	default:
		return "voice round failed"
	}
}

func (e *StageError) Unwrap() error { return e.Err }

// Pipeline stage names, used in errors and metric labels.
const (
	StageTranscribe = "transcribe"
	StageChat       = "chat"
	StageSynthesize = "synthesize"
)

// Pipeline runs the sequential transcribe → chat → synthesize round and
// keeps the session view state in step with it.
type Pipeline struct {
	transcriber upstream.Transcriber
	chat        *ai.Service
	synthesizer upstream.Synthesizer
	fallback    *audio.Synthesizer
	playback    *audio.Store
	sessions    *sessionservice.Service
	profiles    profile.Store
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// Options carries the pipeline collaborators.
type Options struct {
	Transcriber upstream.Transcriber
	Chat        *ai.Service
	Synthesizer upstream.Synthesizer
	// Fallback may be nil to disable local synthesis on TTS failure.
	Fallback *audio.Synthesizer
	Playback *audio.Store
	Sessions *sessionservice.Service
	Profiles profile.Store
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// NewPipeline wires the round orchestrator.
func NewPipeline(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		transcriber: opts.Transcriber,
		chat:        opts.Chat,
		synthesizer: opts.Synthesizer,
		fallback:    opts.Fallback,
		playback:    opts.Playback,
		sessions:    opts.Sessions,
		profiles:    opts.Profiles,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// RunTurn executes one full round for a finished recording. The session
// state moves to processing immediately, then to ready or error. Stage
// failures abort the chain; only a synthesis failure may be recovered by
// the local fallback.
func (p *Pipeline) RunTurn(ctx context.Context, sessionID string, audioData []byte, format string) (model.Turn, error) {
	sess, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		return model.Turn{}, err
	}

	if err := p.sessions.StartProcessing(sessionID); err != nil {
		return model.Turn{}, err
	}

	if p.metrics != nil {
		p.metrics.TurnsStarted.Inc()
	}
	roundStart := time.Now()

	prof := p.resolveProfile(sess.ProfileID)

	// Stage 1: speech to text.
	transcript, elapsed, err := p.transcribe(ctx, audioData, format)
	if err != nil {
		return model.Turn{}, p.fail(sessionID, StageTranscribe, "", err)
	}
	transcribeMS := elapsed.Milliseconds()

	if strings.TrimSpace(transcript) == "" {
		p.logger.Info("round produced no transcript", zap.String("session", sessionID))
		_ = p.sessions.FailTurn(sessionID, "", "no speech detected, try again")
		if p.metrics != nil {
			p.metrics.TurnsFailed.WithLabelValues(StageTranscribe).Inc()
		}
		return model.Turn{}, ErrNoSpeech
	}

	// Stage 2: chat completion.
	chatStart := time.Now()
	reply, err := p.chat.GenerateReply(ctx, prof, transcript)
	if err != nil {
		return model.Turn{}, p.fail(sessionID, StageChat, transcript, err)
	}
	chatMS := time.Since(chatStart).Milliseconds()
	p.observeUpstream(StageChat, time.Since(chatStart), true)

	// Stage 3: text to speech, with local fallback.
	voiceName := ""
	if prof != nil {
		voiceName = prof.Voice
	}
	synthStart := time.Now()
	audioURL, usedFallback, err := p.synthesize(ctx, reply, voiceName)
	if err != nil {
		return model.Turn{}, p.fail(sessionID, StageSynthesize, transcript, err)
	}
	synthMS := time.Since(synthStart).Milliseconds()

	turn := model.Turn{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		Transcript:   transcript,
		Reply:        reply,
		AudioURL:     audioURL,
		Fallback:     usedFallback,
		TranscribeMS: transcribeMS,
		ChatMS:       chatMS,
		SynthesizeMS: synthMS,
		CreatedAt:    time.Now().UTC(),
	}

	if err := p.sessions.CompleteTurn(sessionID, turn); err != nil {
		return model.Turn{}, err
	}

	if p.metrics != nil {
		p.metrics.TurnsCompleted.Inc()
		p.metrics.TurnDuration.Observe(time.Since(roundStart).Seconds())
	}
	p.logger.Info("round completed",
		zap.String("session", sessionID),
		zap.String("turn", turn.ID),
		zap.Bool("fallback", usedFallback),
		zap.Int64("transcribe_ms", turn.TranscribeMS),
		zap.Int64("chat_ms", turn.ChatMS),
		zap.Int64("synthesize_ms", turn.SynthesizeMS),
	)

	return turn, nil
}

func (p *Pipeline) transcribe(ctx context.Context, audioData []byte, format string) (string, time.Duration, error) {
	start := time.Now()
	text, err := p.transcriber.Transcribe(ctx, audioData, format)
	elapsed := time.Since(start)
	p.observeUpstream(StageTranscribe, elapsed, err == nil)
	return text, elapsed, err
}

// synthesize asks the TTS service for a hosted URL. Raw audio (from
// providers that return bytes, or from the fallback) lands in the
// playback store and is served from /api/audio.
func (p *Pipeline) synthesize(ctx context.Context, reply, voiceName string) (string, bool, error) {
	start := time.Now()
	result, err := p.synthesizer.Synthesize(ctx, reply, voiceName)
	p.observeUpstream(StageSynthesize, time.Since(start), err == nil)

	if err == nil {
		if result.AudioURL != "" {
			return result.AudioURL, false, nil
		}
		if len(result.Audio) > 0 && p.playback != nil {
			id := p.playback.Put(result.Audio, result.Format)
			return "/api/audio/" + id, false, nil
		}
		err = errors.New("synthesizer returned no audio")
	}

	if p.fallback == nil || p.playback == nil {
		return "", false, err
	}

	data, fbErr := p.fallback.Synthesize(reply)
	if fbErr != nil {
		return "", false, err
	}

	// PCM16 mono payload after the 44-byte WAV header.
	clipSeconds := float64(len(data)-44) / 2 / float64(p.fallback.SampleRate())
	p.logger.Warn("tts unavailable, using local fallback",
		zap.Error(err),
		zap.Float64("clip_seconds", clipSeconds),
	)

	if p.metrics != nil {
		p.metrics.FallbackSyntheses.Inc()
	}
	id := p.playback.Put(data, "wav")
	return "/api/audio/" + id, true, nil
}

func (p *Pipeline) fail(sessionID, stage, transcript string, cause error) error {
	stageErr := &StageError{Stage: stage, Err: cause}

	p.logger.Error("round aborted",
		zap.String("session", sessionID),
		zap.String("stage", stage),
		zap.Error(cause),
	)
	if p.metrics != nil {
		p.metrics.TurnsFailed.WithLabelValues(stage).Inc()
	}

	_ = p.sessions.FailTurn(sessionID, transcript, stageErr.Error())
	return stageErr
}

func (p *Pipeline) observeUpstream(stage string, elapsed time.Duration, ok bool) {
	if p.metrics == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	p.metrics.UpstreamRequests.WithLabelValues(stage, outcome).Inc()
	p.metrics.UpstreamDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (p *Pipeline) resolveProfile(profileID string) *profile.Profile {
	if p.profiles == nil || profileID == "" {
		return nil
	}
	prof, ok := p.profiles.FindByID(profileID)
	if !ok {
		return nil
	}
	return &prof
}
