// Package models defines domain models for V-Momentum-Pro.
package models

import "time"

// RuleType identifies the evaluation function of an alert rule.
type RuleType string

const (
	// RuleTrafficDrop triggers when sessions drop more than 30% versus
	// the previous period.
	RuleTrafficDrop RuleType = "TRAFFIC_DROP_30"
	// RuleConversionDrop triggers when the conversion rate drops more
	// than 20% versus the previous period.
	RuleConversionDrop RuleType = "CONVERSION_DROP_20"
	// RulePageviewsSpike triggers when the last day's pageviews exceed
	// twice the average of the preceding days.
	RulePageviewsSpike RuleType = "PAGEVIEWS_SPIKE_2X"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleTrafficDrop, RuleConversionDrop, RulePageviewsSpike:
		return true
	}
	return false
}

// Severity represents alert severity level.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertRule represents a persistent alert configuration for one site.
// The rule type determines the evaluation function and its fixed
// threshold and lookback; only the enabled flag is operator-mutable.
type AlertRule struct {
	ID          string    `json:"id"`
	SiteID      string    `json:"siteId"`
	Type        RuleType  `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsEnabled   bool      `json:"isEnabled"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewAlertRule creates an AlertRule with initialized timestamps.
func NewAlertRule(id, siteID string, ruleType RuleType, name, description string, enabled bool) *AlertRule {
	now := time.Now().UTC()
	return &AlertRule{
		ID:          id,
		SiteID:      siteID,
		Type:        ruleType,
		Name:        name,
		Description: description,
		IsEnabled:   enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
