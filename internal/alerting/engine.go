package alerting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/metrics"
	"github.com/v-momentum/momentum/internal/models"
	"github.com/v-momentum/momentum/internal/storage"
)

// RunResult summarizes one engine run. Events are the newly triggered
// alerts, not yet persisted; persistence belongs to the caller.
type RunResult struct {
	SitesProcessed  int                  `json:"sitesProcessed"`
	AlertsEvaluated int                  `json:"alertsEvaluated"`
	AlertsTriggered int                  `json:"alertsTriggered"`
	Events          []*models.AlertEvent `json:"-"`
	Errors          []string             `json:"errors,omitempty"`
}

// Engine iterates sites and enabled rules, drives the deduplication
// gate and the evaluators, and collects triggered events.
type Engine struct {
	rules    storage.RuleRepository
	gate     *DedupGate
	registry *Registry
	sites    []string
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates the alert engine over the given collaborators.
// sites is the fixed set of monitored site ids.
func NewEngine(rules storage.RuleRepository, gate *DedupGate, registry *Registry, sites []string, logger *zap.Logger) *Engine {
	return &Engine{
		rules:    rules,
		gate:     gate,
		registry: registry,
		sites:    sites,
		logger:   logger,
		now:      time.Now,
	}
}

// Run evaluates all enabled rules across all sites. Per-rule failures
// are logged and recorded but never stop the loop; only a failure to
// load the rule set aborts the run.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	e.logger.Info("starting alerts evaluation")

	enabled, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("load enabled rules: %w", err)
	}
	e.logger.Info("loaded enabled rules", zap.Int("count", len(enabled)))
	metrics.RulesEnabled.Set(float64(len(enabled)))

	result := &RunResult{}

	for _, siteID := range e.sites {
		siteRules := rulesForSite(enabled, siteID)
		if len(siteRules) == 0 {
			e.logger.Debug("no enabled rules for site, skipping", zap.String("site", siteID))
			continue
		}

		result.SitesProcessed++
		e.logger.Info("processing site",
			zap.String("site", siteID),
			zap.Int("rules", len(siteRules)))

		for _, rule := range siteRules {
			e.evaluateRule(ctx, rule, result)
		}
	}

	result.AlertsTriggered = len(result.Events)
	e.logger.Info("alerts evaluation completed",
		zap.Int("sites_processed", result.SitesProcessed),
		zap.Int("alerts_evaluated", result.AlertsEvaluated),
		zap.Int("alerts_triggered", result.AlertsTriggered))

	return result, nil
}

func (e *Engine) evaluateRule(ctx context.Context, rule *models.AlertRule, result *RunResult) {
	now := e.now()

	skip, err := e.gate.ShouldSkip(ctx, rule.ID, rule.SiteID, now)
	if err != nil {
		e.recordError(result, fmt.Sprintf("dedup check for rule %s on %s: %v", rule.ID, rule.SiteID, err))
		return
	}
	if skip {
		e.logger.Info("skipping rule: recent event exists",
			zap.String("rule_id", rule.ID),
			zap.String("site", rule.SiteID))
		return
	}

	result.AlertsEvaluated++
	metrics.RulesEvaluatedTotal.Inc()

	evaluator, err := e.registry.Get(rule.Type)
	if err != nil {
		e.recordError(result, fmt.Sprintf("rule %s on %s: %v", rule.ID, rule.SiteID, err))
		return
	}

	e.logger.Info("evaluating rule",
		zap.String("rule_id", rule.ID),
		zap.String("type", string(rule.Type)),
		zap.String("site", rule.SiteID))

	res, err := evaluator.Evaluate(ctx, rule.SiteID)
	if err != nil {
		// Upstream failures count as non-triggers; the run continues.
		e.recordError(result, fmt.Sprintf("evaluate rule %s on %s: %v", rule.ID, rule.SiteID, err))
		return
	}

	if !res.Triggered {
		e.logger.Info("rule did not trigger",
			zap.String("rule_id", rule.ID),
			zap.String("site", rule.SiteID))
		return
	}

	event := models.NewAlertEvent(rule, res.Severity, res.Payload, now)
	result.Events = append(result.Events, event)
	metrics.AlertsTriggeredTotal.WithLabelValues(string(rule.Type), string(res.Severity)).Inc()

	e.logger.Info("alert triggered",
		zap.String("event_id", event.ID),
		zap.String("rule_id", rule.ID),
		zap.String("site", rule.SiteID),
		zap.String("severity", string(res.Severity)),
		zap.Float64("change_percent", res.Payload.ChangePercent))
}

func (e *Engine) recordError(result *RunResult, msg string) {
	e.logger.Error(msg)
	result.Errors = append(result.Errors, msg)
}

func rulesForSite(rules []*models.AlertRule, siteID string) []*models.AlertRule {
	var out []*models.AlertRule
	for _, r := range rules {
		if r.SiteID == siteID {
			out = append(out, r)
		}
	}
	return out
}
