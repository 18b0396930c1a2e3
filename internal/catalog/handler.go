package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Handler serves the read-only catalogs over HTTP for clients that need
// the board data before joining a room.
type Handler struct{}

// NewHandler creates a catalog handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes registers the catalog routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/characters", h.handleCharacters)
	mux.HandleFunc("/api/predefined-questions", h.handleQuestions)
}

func (h *Handler) handleCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, Characters)
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, PredefinedQuestions)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode catalog response")
	}
}
