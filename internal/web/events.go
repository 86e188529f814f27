package web

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/models"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

// EventListResponse wraps the event page with pagination info.
type EventListResponse struct {
	Items  []*models.AlertEvent `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// listEvents returns the alert event log, newest first.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	offset := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "limit must be a positive integer")
			return
		}
		if v > maxEventLimit {
			v = maxEventLimit
		}
		limit = v
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "offset must be a non-negative integer")
			return
		}
		offset = v
	}

	events, total, err := s.storage.Events().List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list events failed", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if events == nil {
		events = []*models.AlertEvent{}
	}

	jsonOK(w, EventListResponse{
		Items:  events,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
