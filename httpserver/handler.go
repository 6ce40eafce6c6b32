package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/liwenju0/deepenc/bootstrap"
)

// Handler serves the diagnostics API over a running protection system.
type Handler struct {
	sys *bootstrap.System
	log *slog.Logger
}

// NewHandler creates a diagnostics handler.
func NewHandler(sys *bootstrap.System, log *slog.Logger) *Handler {
	return &Handler{sys: sys, log: log}
}

// HandleStatus returns the full system status snapshot.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.sys.Status())
}

// HandleCacheInfo returns the unit resolver's registry and cache contents.
func (h *Handler) HandleCacheInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.sys.Status().Units)
}

// HandleClearCaches drops decrypted unit sources. Registered names stay, so
// protected units keep working and simply decrypt again on next use.
func (h *Handler) HandleClearCaches(w http.ResponseWriter, r *http.Request) {
	h.sys.ClearCaches()
	h.log.Info("Caches cleared via API")
	h.writeJSON(w, map[string]string{"status": "cleared"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
