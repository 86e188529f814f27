package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventPayload carries the metric values computed at trigger time.
// PreviousValue/CurrentValue/ChangePercent are set for every rule type;
// the remaining fields are type-specific extras.
type EventPayload struct {
	PreviousValue float64 `json:"previousValue"`
	CurrentValue  float64 `json:"currentValue"`
	ChangePercent float64 `json:"changePercent"`
	Metric        string  `json:"metric"`

	// Period labels for drop-type rules.
	PeriodA string `json:"periodA,omitempty"`
	PeriodB string `json:"periodB,omitempty"`

	// Conversion-drop extras: raw counts behind the rates.
	ConversionsA int64 `json:"conversionsA,omitempty"`
	ConversionsB int64 `json:"conversionsB,omitempty"`
	SessionsA    int64 `json:"sessionsA,omitempty"`
	SessionsB    int64 `json:"sessionsB,omitempty"`

	// Pageviews-spike extras.
	Multiplier     float64   `json:"multiplier,omitempty"`
	DailyPageViews []float64 `json:"dailyPageViews,omitempty"`
}

// AlertEvent records one rule trigger occurrence. Events are immutable
// once created except for the delivery-status fields, which are written
// exactly once after notification dispatch.
type AlertEvent struct {
	ID          string       `json:"id"`
	AlertRuleID string       `json:"alertRuleId"`
	SiteID      string       `json:"siteId"`
	TriggeredAt time.Time    `json:"triggeredAt"`
	Severity    Severity     `json:"severity"`
	Payload     EventPayload `json:"payload"`

	SentToEmails []string `json:"sentToEmails"`
	EmailSent    bool     `json:"emailSent"`
	EmailError   string   `json:"emailError,omitempty"`
}

// NewAlertEvent creates an AlertEvent for a triggered rule. The id
// embeds the creation timestamp plus a random suffix so concurrent
// triggers cannot collide.
func NewAlertEvent(rule *AlertRule, severity Severity, payload EventPayload, now time.Time) *AlertEvent {
	return &AlertEvent{
		ID:           fmt.Sprintf("alert-%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		AlertRuleID:  rule.ID,
		SiteID:       rule.SiteID,
		TriggeredAt:  now.UTC(),
		Severity:     severity,
		Payload:      payload,
		SentToEmails: []string{},
	}
}
