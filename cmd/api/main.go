package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mlavrik/voiceloop/internal/audio"
	"github.com/mlavrik/voiceloop/internal/config"
	"github.com/mlavrik/voiceloop/internal/handler"
	"github.com/mlavrik/voiceloop/internal/logging"
	"github.com/mlavrik/voiceloop/internal/metrics"
	"github.com/mlavrik/voiceloop/internal/model/profile"
	"github.com/mlavrik/voiceloop/internal/service/ai"
	"github.com/mlavrik/voiceloop/internal/service/recorder"
	sessionservice "github.com/mlavrik/voiceloop/internal/service/session"
	"github.com/mlavrik/voiceloop/internal/service/voice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	appMetrics := metrics.New()

	// Assistant profiles: seed set, or a YAML catalog when configured.
	profiles := profile.Seed()
	if cfg.ProfileCatalog != "" {
		profiles, err = profile.LoadCatalog(cfg.ProfileCatalog)
		if err != nil {
			logger.Fatal("failed to load profile catalog", zap.Error(err))
		}
		logger.Info("profile catalog loaded",
			zap.String("path", cfg.ProfileCatalog),
			zap.Int("profiles", len(profiles)),
		)
	}
	profileStore := profile.NewMemoryStore(profiles)

	// Upstream stages.
	transcriber, err := cfg.STT.NewTranscriber()
	if err != nil {
		logger.Fatal("failed to initialize speech-to-text", zap.Error(err))
	}

	chatModel, err := cfg.LLM.NewChatModel()
	if err != nil {
		logger.Fatal("failed to initialize chat model", zap.Error(err))
	}
	aiService, err := ai.NewService(ctx, chatModel)
	if err != nil {
		logger.Fatal("failed to initialize chat service", zap.Error(err))
	}

	synthesizer, err := cfg.TTS.NewSynthesizer()
	if err != nil {
		logger.Fatal("failed to initialize speech synthesis", zap.Error(err))
	}

	logger.Info("upstream providers ready",
		zap.String("stt", cfg.STT.Provider),
		zap.String("llm", cfg.LLM.Provider),
		zap.String("tts", cfg.TTS.Provider),
		zap.Bool("tts_fallback", cfg.TTS.FallbackEnabled),
	)

	// Core services.
	sessions := sessionservice.NewService()
	recorderSvc := recorder.NewService(cfg.Recorder.MaxBytes, appMetrics)
	playback := audio.NewStore(cfg.Recorder.PlaybackEntries)

	var fallback *audio.Synthesizer
	if cfg.TTS.FallbackEnabled {
		fallback = audio.NewSynthesizer(0)
	}

	pipeline := voice.NewPipeline(voice.Options{
		Transcriber: transcriber,
		Chat:        aiService,
		Synthesizer: synthesizer,
		Fallback:    fallback,
		Playback:    playback,
		Sessions:    sessions,
		Profiles:    profileStore,
		Metrics:     appMetrics,
		Logger:      logger,
	})

	router := handler.NewRouter(handler.Deps{
		Sessions: sessions,
		Recorder: recorderSvc,
		Pipeline: pipeline,
		Playback: playback,
		Profiles: profileStore,
		Metrics:  appMetrics,
		Logger:   logger,
	})

	startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger *zap.Logger, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("voiceloop backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
