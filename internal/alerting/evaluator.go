// Package alerting provides the alert evaluation engine for
// V-Momentum-Pro: per-rule-type evaluators over GA4 metric summaries,
// a persistent 24-hour deduplication gate, and the run orchestrator.
package alerting

import (
	"context"
	"fmt"

	"github.com/v-momentum/momentum/internal/ga4"
	"github.com/v-momentum/momentum/internal/models"
)

// Lookback is the comparison window for drop-type rules and the series
// length for the spike rule, in days.
const Lookback = 7

// Thresholds are fixed per rule type in this design; the rule model
// leaves room for per-rule parameters later.
const (
	trafficDropThreshold    = 30.0
	conversionDropThreshold = 20.0
	spikeMultiplier         = 2.0
)

// Result is the outcome of evaluating one rule against one site.
type Result struct {
	Triggered bool
	Severity  models.Severity
	Payload   models.EventPayload
}

// Evaluator decides whether a rule kind triggers for a site.
type Evaluator interface {
	Evaluate(ctx context.Context, siteID string) (Result, error)
}

// Registry maps rule types to their evaluators. Adding a rule kind
// means registering an evaluator here; the engine never switches on
// type.
type Registry struct {
	evaluators map[models.RuleType]Evaluator
}

// NewRegistry builds the registry for the fixed rule catalog, all
// backed by the given metrics client.
func NewRegistry(client ga4.Client) *Registry {
	return &Registry{
		evaluators: map[models.RuleType]Evaluator{
			models.RuleTrafficDrop:    &trafficDropEvaluator{client: client},
			models.RuleConversionDrop: &conversionDropEvaluator{client: client},
			models.RulePageviewsSpike: &pageviewsSpikeEvaluator{client: client},
		},
	}
}

// Get returns the evaluator for a rule type.
func (r *Registry) Get(t models.RuleType) (Evaluator, error) {
	ev, ok := r.evaluators[t]
	if !ok {
		return nil, fmt.Errorf("no evaluator registered for rule type %q", t)
	}
	return ev, nil
}

// trafficDropEvaluator triggers when sessions drop more than 30%
// versus the previous period.
type trafficDropEvaluator struct {
	client ga4.Client
}

func (e *trafficDropEvaluator) Evaluate(ctx context.Context, siteID string) (Result, error) {
	summary, err := e.client.TrafficSummary(ctx, siteID, Lookback)
	if err != nil {
		return Result{}, fmt.Errorf("traffic summary for %s: %w", siteID, err)
	}

	// A zero baseline yields changePercent 0 and can never trigger.
	if summary.ChangePercent >= -trafficDropThreshold {
		return Result{}, nil
	}

	return Result{
		Triggered: true,
		Severity:  models.SeverityCritical,
		Payload: models.EventPayload{
			PreviousValue: float64(summary.Previous.Sessions),
			CurrentValue:  float64(summary.Current.Sessions),
			ChangePercent: summary.ChangePercent,
			Metric:        "sessions",
			PeriodA:       "last 7 days",
			PeriodB:       "previous 7 days",
		},
	}, nil
}

// conversionDropEvaluator triggers when the conversion rate drops more
// than 20% versus the previous period.
type conversionDropEvaluator struct {
	client ga4.Client
}

func (e *conversionDropEvaluator) Evaluate(ctx context.Context, siteID string) (Result, error) {
	summary, err := e.client.ConversionSummary(ctx, siteID, Lookback)
	if err != nil {
		return Result{}, fmt.Errorf("conversion summary for %s: %w", siteID, err)
	}

	if summary.ChangePercent >= -conversionDropThreshold {
		return Result{}, nil
	}

	return Result{
		Triggered: true,
		Severity:  models.SeverityWarning,
		Payload: models.EventPayload{
			PreviousValue: summary.Previous.ConversionRate,
			CurrentValue:  summary.Current.ConversionRate,
			ChangePercent: summary.ChangePercent,
			Metric:        "conversion_rate",
			PeriodA:       "last 7 days",
			PeriodB:       "previous 7 days",
			ConversionsA:  summary.Current.Conversions,
			ConversionsB:  summary.Previous.Conversions,
			SessionsA:     summary.Current.Sessions,
			SessionsB:     summary.Previous.Sessions,
		},
	}, nil
}

// pageviewsSpikeEvaluator triggers when the last day's pageviews exceed
// twice the average of the preceding days.
type pageviewsSpikeEvaluator struct {
	client ga4.Client
}

func (e *pageviewsSpikeEvaluator) Evaluate(ctx context.Context, siteID string) (Result, error) {
	summary, err := e.client.PageviewsSummary(ctx, siteID, Lookback)
	if err != nil {
		return Result{}, fmt.Errorf("pageviews summary for %s: %w", siteID, err)
	}

	// Fewer than 2 data points or a flat-zero history: the multiplier
	// is undefined, so the rule cannot trigger.
	if len(summary.Daily) < 2 || summary.Average == 0 {
		return Result{}, nil
	}
	if summary.Multiplier <= spikeMultiplier {
		return Result{}, nil
	}

	return Result{
		Triggered: true,
		Severity:  models.SeverityInfo,
		Payload: models.EventPayload{
			PreviousValue:  summary.Average,
			CurrentValue:   summary.LastDay,
			ChangePercent:  ga4.Round2((summary.Multiplier - 1) * 100),
			Metric:         "pageviews",
			Multiplier:     ga4.Round2(summary.Multiplier),
			DailyPageViews: summary.Daily,
		},
	}, nil
}
