package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/alerting"
	"github.com/v-momentum/momentum/internal/metrics"
	"github.com/v-momentum/momentum/internal/models"
	"github.com/v-momentum/momentum/internal/notifier"
	"github.com/v-momentum/momentum/internal/storage"
)

// RunSummary is what a run reports back to its caller.
type RunSummary struct {
	SitesProcessed  int       `json:"sitesProcessed"`
	AlertsEvaluated int       `json:"alertsEvaluated"`
	AlertsTriggered int       `json:"alertsTriggered"`
	EmailsSent      int       `json:"emailsSent"`
	Errors          []string  `json:"errors,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// AlertRunner runs one full evaluation cycle.
type AlertRunner interface {
	Run(ctx context.Context) (*RunSummary, error)
}

// eventDispatcher is the notifier surface the coordinator needs.
type eventDispatcher interface {
	SendAlertEmails(ctx context.Context, n notifier.Notification) notifier.DeliveryResult
}

// alertEngine is the engine surface the coordinator needs.
type alertEngine interface {
	Run(ctx context.Context) (*alerting.RunResult, error)
}

// Coordinator drives one alert run end to end: pre-run checks, default
// rule bootstrap, evaluation, event persistence, and notification
// dispatch. A mutex serializes overlapping runs so a slow cron tick
// cannot race a manual trigger.
type Coordinator struct {
	engine     alertEngine
	store      storage.Storage
	dispatcher eventDispatcher
	recipients *RecipientResolver
	checks     alerting.ChecksInput
	sites      []string
	logger     *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewCoordinator wires the run pipeline.
func NewCoordinator(
	engine *alerting.Engine,
	store storage.Storage,
	dispatcher *notifier.Dispatcher,
	recipients *RecipientResolver,
	checks alerting.ChecksInput,
	sites []string,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		engine:     engine,
		store:      store,
		dispatcher: dispatcher,
		recipients: recipients,
		checks:     checks,
		sites:      sites,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one evaluation cycle. An engine failure is fatal; any
// later per-event failure is recorded on the summary and on the event
// itself, and the run keeps going.
func (c *Coordinator) Run(ctx context.Context) (*RunSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.now()
	summary := &RunSummary{Timestamp: start.UTC()}

	alerting.RunChecks(ctx, c.checks, c.store.Rules(), c.logger)

	if err := alerting.EnsureDefaultRules(ctx, c.store.Rules(), c.sites, c.logger); err != nil {
		// A failed bootstrap is survivable when rules already exist.
		c.logger.Error("default rule bootstrap failed", zap.Error(err))
		summary.Errors = append(summary.Errors, fmt.Sprintf("bootstrap: %v", err))
	}

	result, err := c.engine.Run(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return summary, fmt.Errorf("alert engine: %w", err)
	}

	summary.SitesProcessed = result.SitesProcessed
	summary.AlertsEvaluated = result.AlertsEvaluated
	summary.AlertsTriggered = result.AlertsTriggered
	summary.Errors = append(summary.Errors, result.Errors...)

	for _, event := range result.Events {
		c.handleEvent(ctx, event, summary)
	}

	metrics.RunsTotal.WithLabelValues("success").Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	c.logger.Info("alert run completed",
		zap.Int("sites_processed", summary.SitesProcessed),
		zap.Int("alerts_evaluated", summary.AlertsEvaluated),
		zap.Int("alerts_triggered", summary.AlertsTriggered),
		zap.Int("emails_sent", summary.EmailsSent),
		zap.Int("errors", len(summary.Errors)),
		zap.Duration("duration", time.Since(start)))

	return summary, nil
}

// handleEvent persists one triggered event and dispatches its
// notifications. Failures stay local to the event.
func (c *Coordinator) handleEvent(ctx context.Context, event *models.AlertEvent, summary *RunSummary) {
	if err := c.store.Events().Create(ctx, event); err != nil {
		// An unpersisted event sends no email: the dedup gate never saw
		// it, and a retriggered rule would double-notify.
		summary.Errors = append(summary.Errors, fmt.Sprintf("persist event %s: %v", event.ID, err))
		c.logger.Error("failed to persist alert event",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}

	rule, err := c.store.Rules().GetByID(ctx, event.AlertRuleID)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("load rule for event %s: %v", event.ID, err))
		c.logger.Error("failed to load rule for event",
			zap.String("event_id", event.ID),
			zap.String("rule_id", event.AlertRuleID),
			zap.Error(err))
		return
	}

	delivery := c.dispatcher.SendAlertEmails(ctx, notifier.Notification{
		Rule:       rule,
		Event:      event,
		Recipients: c.recipients.Resolve(event.SiteID),
	})
	summary.EmailsSent += len(delivery.Sent)
	summary.Errors = append(summary.Errors, delivery.Errors...)

	if err := c.store.Events().UpdateDelivery(ctx, event.ID, delivery.Sent, delivery.Delivered(), delivery.ErrorText()); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("record delivery for event %s: %v", event.ID, err))
		c.logger.Error("failed to record delivery status",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
