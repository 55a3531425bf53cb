package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mlavrik/voiceloop/internal/audio"
	profilehandler "github.com/mlavrik/voiceloop/internal/handler/profile"
	sessionhandler "github.com/mlavrik/voiceloop/internal/handler/session"
	voicehandler "github.com/mlavrik/voiceloop/internal/handler/voice"
	"github.com/mlavrik/voiceloop/internal/metrics"
	"github.com/mlavrik/voiceloop/internal/model/profile"
	"github.com/mlavrik/voiceloop/internal/service/recorder"
	sessionservice "github.com/mlavrik/voiceloop/internal/service/session"
	"github.com/mlavrik/voiceloop/internal/service/voice"
	"github.com/mlavrik/voiceloop/pkg/utils"
)

// Deps carries everything the router wires together.
type Deps struct {
	Sessions *sessionservice.Service
	Recorder *recorder.Service
	Pipeline *voice.Pipeline
	Playback *audio.Store
	Profiles profile.Store
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	sessionHandler := sessionhandler.New(deps.Sessions, deps.Profiles, deps.Metrics, deps.Logger)
	voiceHandler := voicehandler.New(deps.Pipeline, deps.Playback, deps.Logger)
	wsHandler := voicehandler.NewWebSocketHandler(deps.Pipeline, deps.Recorder, deps.Sessions, deps.Metrics, deps.Logger)
	profileHandler := profilehandler.New(deps.Profiles)

	r.Route("/api", func(api chi.Router) {
		profileHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		voiceHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{
				"status":  "healthy",
				"service": "voiceloop",
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
