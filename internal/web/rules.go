package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/models"
	"github.com/v-momentum/momentum/internal/storage"
)

// ToggleRequest flips a rule on or off. isEnabled is required; a PATCH
// without it is a validation error, not a no-op.
type ToggleRequest struct {
	IsEnabled *bool `json:"isEnabled"`
}

// listRules returns all alert rules, optionally filtered by site.
func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := r.URL.Query().Get("site")

	var (
		rules []*models.AlertRule
		err   error
	)
	if siteID != "" {
		rules, err = s.storage.Rules().ListBySite(ctx, siteID)
	} else {
		rules, err = s.storage.Rules().List(ctx)
	}
	if err != nil {
		s.logger.Error("list rules failed", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if rules == nil {
		rules = []*models.AlertRule{}
	}

	jsonOK(w, rules)
}

// toggleRule enables or disables a single rule.
func (s *Server) toggleRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "rule id required")
		return
	}

	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.IsEnabled == nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "isEnabled is required")
		return
	}

	rule, err := s.storage.Rules().SetEnabled(r.Context(), id, *req.IsEnabled)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "rule not found")
			return
		}
		s.logger.Error("toggle rule failed",
			zap.String("rule_id", id),
			zap.Error(err))
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	s.logger.Info("rule toggled",
		zap.String("rule_id", id),
		zap.Bool("enabled", *req.IsEnabled))
	jsonOK(w, rule)
}
