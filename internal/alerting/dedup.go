package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/v-momentum/momentum/internal/storage"
)

// DedupWindow caps notification frequency: at most one event per rule
// per site per rolling 24 hours.
const DedupWindow = 24 * time.Hour

// DedupGate suppresses re-evaluation of a rule while a recent event
// exists for the same (rule, site) pair. The gate runs before the
// evaluator so suppressed rules cost no upstream calls.
type DedupGate struct {
	events storage.EventRepository
	window time.Duration
}

// NewDedupGate creates a gate over the event log with the standard
// 24-hour window.
func NewDedupGate(events storage.EventRepository) *DedupGate {
	return &DedupGate{events: events, window: DedupWindow}
}

// ShouldSkip reports whether evaluation of (ruleID, siteID) must be
// suppressed because an event was triggered within the window ending
// at now.
func (g *DedupGate) ShouldSkip(ctx context.Context, ruleID, siteID string, now time.Time) (bool, error) {
	recent, err := g.events.ListRecent(ctx, ruleID, siteID, now.Add(-g.window))
	if err != nil {
		return false, fmt.Errorf("recent events for rule %s: %w", ruleID, err)
	}
	return len(recent) > 0, nil
}
