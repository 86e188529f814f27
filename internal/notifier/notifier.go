// Package notifier delivers triggered alert events to their
// recipients. Email is the primary channel; a Slack webhook can be
// attached as a secondary, best-effort channel.
package notifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/metrics"
	"github.com/v-momentum/momentum/internal/models"
)

// Notification carries one triggered alert plus its delivery targets.
type Notification struct {
	Rule       *models.AlertRule
	Event      *models.AlertEvent
	Recipients []string
}

// DeliveryResult reports the per-recipient outcome of one notification.
type DeliveryResult struct {
	Sent   []string
	Failed []string
	Errors []string
}

// Delivered reports whether at least one recipient got the email.
func (r DeliveryResult) Delivered() bool {
	return len(r.Sent) > 0
}

// ErrorText joins the delivery errors into the single string the event
// log stores, empty when everything went through.
func (r DeliveryResult) ErrorText() string {
	if len(r.Errors) == 0 {
		return ""
	}
	out := r.Errors[0]
	for _, e := range r.Errors[1:] {
		out += "; " + e
	}
	return out
}

// emailSender sends one alert email to one recipient.
type emailSender interface {
	Send(ctx context.Context, rule *models.AlertRule, event *models.AlertEvent, recipient string) error
}

// slackSender posts one alert event to Slack.
type slackSender interface {
	Send(ctx context.Context, rule *models.AlertRule, event *models.AlertEvent) error
}

// Dispatcher routes alert notifications to the configured channels.
// The email channel may be nil when SMTP is not configured; delivery
// then fails softly and the failure is recorded on the event.
type Dispatcher struct {
	email       emailSender
	slack       slackSender
	rateLimiter *RateLimiter
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher. email and slack may each be nil.
func NewDispatcher(email *EmailNotifier, slack *SlackNotifier, limiter *RateLimiter, logger *zap.Logger) *Dispatcher {
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRateLimitConfig())
	}
	d := &Dispatcher{
		rateLimiter: limiter,
		logger:      logger,
	}
	// Typed nils must not reach the interface fields.
	if email != nil {
		d.email = email
	}
	if slack != nil {
		d.slack = slack
	}
	return d
}

// SendAlertEmails delivers the notification to every recipient,
// one message each so a bad address cannot block the rest. An empty
// recipient list is a quiet no-op.
func (d *Dispatcher) SendAlertEmails(ctx context.Context, n Notification) DeliveryResult {
	var result DeliveryResult

	if len(n.Recipients) == 0 {
		d.logger.Warn("no recipients for alert, skipping email",
			zap.String("event_id", n.Event.ID),
			zap.String("site", n.Event.SiteID))
		return result
	}

	if !d.rateLimiter.Allow() {
		metrics.NotificationsRateLimited.Inc()
		result.Failed = append(result.Failed, n.Recipients...)
		result.Errors = append(result.Errors, "notification rate limited")
		d.logger.Warn("notification rate limited",
			zap.String("event_id", n.Event.ID))
		return result
	}

	if d.email == nil {
		result.Failed = append(result.Failed, n.Recipients...)
		result.Errors = append(result.Errors, "email channel not configured")
		d.logger.Error("alert email not sent: SMTP not configured",
			zap.String("event_id", n.Event.ID))
		return result
	}

	for _, rcpt := range n.Recipients {
		if err := d.email.Send(ctx, n.Rule, n.Event, rcpt); err != nil {
			metrics.EmailsFailedTotal.Inc()
			result.Failed = append(result.Failed, rcpt)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rcpt, err))
			d.logger.Error("alert email failed",
				zap.String("event_id", n.Event.ID),
				zap.String("recipient", rcpt),
				zap.Error(err))
			continue
		}
		metrics.EmailsSentTotal.Inc()
		result.Sent = append(result.Sent, rcpt)
		d.logger.Info("alert email sent",
			zap.String("event_id", n.Event.ID),
			zap.String("recipient", rcpt))
	}

	// Slack is informational; its failures never count against the
	// event's delivery status.
	if d.slack != nil {
		if err := d.slack.Send(ctx, n.Rule, n.Event); err != nil {
			d.logger.Warn("slack notification failed",
				zap.String("event_id", n.Event.ID),
				zap.Error(err))
		}
	}

	return result
}

// RateLimitStats exposes the limiter state for diagnostics.
func (d *Dispatcher) RateLimitStats() RateLimitStats {
	return d.rateLimiter.Stats()
}
