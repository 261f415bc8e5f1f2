package server

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/stream-herald/status"
	"github.com/onnwee/stream-herald/telemetry"
)

type Handlers struct {
	status *status.Tracker
}

// HandleHealthz responds to liveness probe requests. The daemon has no hard
// dependencies to check at this level; being able to answer is being alive.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleStatus reports the watcher state: live-connection flag, last seen
// content id, and notification counts.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := h.status.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Warn("status encode failed", "err", err)
	}
}
