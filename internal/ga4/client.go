// Package ga4 provides the Google Analytics 4 metrics gateway used by
// the alert evaluators. Summaries are computed fresh on every call and
// never persisted.
package ga4

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable wraps any upstream failure: missing property
// configuration, auth rejection, or an unreachable Data API. Callers
// catch it per rule so one broken site cannot abort a run.
var ErrUnavailable = errors.New("ga4 upstream unavailable")

// Client fetches aggregated GA4 metrics for a site.
type Client interface {
	// TrafficSummary compares sessions over the last windowDays days
	// (ending yesterday) against the preceding window of equal length.
	TrafficSummary(ctx context.Context, siteID string, windowDays int) (*TrafficSummary, error)
	// ConversionSummary compares conversion rate over the same two
	// windows. Rate is conversions/sessions, 0 when sessions is 0.
	ConversionSummary(ctx context.Context, siteID string, windowDays int) (*ConversionSummary, error)
	// PageviewsSummary returns the last `days` daily pageview counts in
	// ascending date order plus spike statistics.
	PageviewsSummary(ctx context.Context, siteID string, days int) (*PageviewsSummary, error)
}

// PeriodTraffic holds traffic aggregates for one period.
type PeriodTraffic struct {
	Sessions int64 `json:"sessions"`
	Users    int64 `json:"users"`
}

// TrafficSummary compares sessions between two adjacent periods.
// ChangePercent is 0 when the previous period had no sessions.
type TrafficSummary struct {
	Current       PeriodTraffic `json:"current"`
	Previous      PeriodTraffic `json:"previous"`
	ChangePercent float64       `json:"changePercent"`
}

// PeriodConversion holds conversion aggregates for one period.
type PeriodConversion struct {
	ConversionRate float64 `json:"conversionRate"`
	Conversions    int64   `json:"conversions"`
	Sessions       int64   `json:"sessions"`
}

// ConversionSummary compares conversion rates between two adjacent
// periods. ChangePercent is 0 when the previous rate was 0.
type ConversionSummary struct {
	Current       PeriodConversion `json:"current"`
	Previous      PeriodConversion `json:"previous"`
	ChangePercent float64          `json:"changePercent"`
}

// PageviewsSummary holds daily pageviews plus spike statistics.
// Average covers every day except the last; Multiplier is
// LastDay/Average, 0 when Average is 0.
type PageviewsSummary struct {
	Daily      []float64 `json:"daily"`
	Average    float64   `json:"average"`
	LastDay    float64   `json:"lastDay"`
	Multiplier float64   `json:"multiplier"`
}

// Round2 rounds to 2 decimal places. Change percentages are rounded
// before storage so payloads stay stable across reads.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ChangePercent computes the percentage change from previous to
// current, rounded to 2 decimals. A zero baseline yields 0: no
// meaningful change can be computed from nothing.
func ChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return Round2((current - previous) / previous * 100)
}

// SpikeStats derives average, last-day value, and multiplier from an
// ascending daily series. Series shorter than 2 points yield zeroes.
func SpikeStats(daily []float64) (average, lastDay, multiplier float64) {
	if len(daily) < 2 {
		return 0, 0, 0
	}
	lastDay = daily[len(daily)-1]
	previous := daily[:len(daily)-1]
	var sum float64
	for _, v := range previous {
		sum += v
	}
	average = sum / float64(len(previous))
	if average == 0 {
		return average, lastDay, 0
	}
	// Multiplier stays unrounded; the trigger comparison must not be
	// skewed by presentation rounding.
	return average, lastDay, lastDay / average
}
