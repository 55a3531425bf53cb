package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mlavrik/voiceloop/internal/model/profile"
	"github.com/mlavrik/voiceloop/pkg/utils"
)

// Handler serves the assistant profile catalog.
type Handler struct {
	profiles profile.Store
}

// New creates the profile handler.
func New(profiles profile.Store) *Handler {
	return &Handler{profiles: profiles}
}

// RegisterRoutes registers the profile routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/profiles", h.handleList)
	r.Get("/profiles/{profileID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.profiles.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "profileID")
	prof, ok := h.profiles.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "profile not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, prof)
}
