package alerting

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/models"
)

func TestEnsureDefaultRulesSeedsEmptyStore(t *testing.T) {
	rules := newMemRuleRepo()
	sites := []string{"vseeit.ru", "balticstar.spb.ru"}

	if err := EnsureDefaultRules(context.Background(), rules, sites, zap.NewNop()); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	all, err := rules.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != len(sites)*len(defaultRuleSpecs) {
		t.Fatalf("created %d rules, want %d", len(all), len(sites)*len(defaultRuleSpecs))
	}

	byID := make(map[string]*models.AlertRule, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}

	rule, ok := byID["traffic-drop-30-vseeit.ru"]
	if !ok {
		t.Fatal("traffic drop rule for vseeit.ru missing")
	}
	if rule.Type != models.RuleTrafficDrop || !rule.IsEnabled {
		t.Errorf("traffic drop rule = %+v, want enabled TRAFFIC_DROP_30", rule)
	}

	spike, ok := byID["pageviews-spike-2x-balticstar.spb.ru"]
	if !ok {
		t.Fatal("spike rule for balticstar.spb.ru missing")
	}
	if spike.IsEnabled {
		t.Error("spike rule should ship disabled")
	}
}

func TestEnsureDefaultRulesLeavesExistingAlone(t *testing.T) {
	rules := newMemRuleRepo()
	existing := seedRule(t, rules, "site-a", models.RuleTrafficDrop, false)

	if err := EnsureDefaultRules(context.Background(), rules, []string{"site-a"}, zap.NewNop()); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	all, _ := rules.List(context.Background())
	if len(all) != 1 {
		t.Fatalf("rule count = %d, want 1 (no reseed over existing rules)", len(all))
	}
	if all[0].ID != existing.ID || all[0].IsEnabled {
		t.Errorf("existing rule mutated: %+v", all[0])
	}
}
