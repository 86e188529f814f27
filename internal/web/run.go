package web

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type runResponse struct {
	Success   bool        `json:"success"`
	Summary   *RunSummary `json:"summary"`
	Timestamp time.Time   `json:"timestamp"`
}

// runAlerts executes one evaluation cycle and returns its summary.
// An engine failure still reports whatever partial summary the run
// produced alongside the error.
func (s *Server) runAlerts(w http.ResponseWriter, r *http.Request) {
	summary, err := s.coordinator.Run(r.Context())
	if err != nil {
		s.logger.Error("alert run failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]any{
			"error":   map[string]string{"code": errCodeRunFailed, "message": err.Error()},
			"summary": summary,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, runResponse{Success: true, Summary: summary, Timestamp: summary.Timestamp})
}
