package alerting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/models"
	"github.com/v-momentum/momentum/internal/storage"
)

// defaultRuleSpec describes one entry of the first-run rule catalog.
type defaultRuleSpec struct {
	slug        string
	ruleType    models.RuleType
	name        string
	description string
	enabled     bool
}

// The spike rule ships disabled: spikes are informational and noisy on
// low-traffic sites.
var defaultRuleSpecs = []defaultRuleSpec{
	{
		slug:        "traffic-drop-30",
		ruleType:    models.RuleTrafficDrop,
		name:        "Traffic drop > 30%",
		description: "Alert when traffic drops more than 30% compared to previous period",
		enabled:     true,
	},
	{
		slug:        "conversion-drop-20",
		ruleType:    models.RuleConversionDrop,
		name:        "Conversion rate drop > 20%",
		description: "Alert when conversion rate drops more than 20% compared to previous period",
		enabled:     true,
	},
	{
		slug:        "pageviews-spike-2x",
		ruleType:    models.RulePageviewsSpike,
		name:        "Pageviews spike (> 2x average)",
		description: "Alert when pageviews spike more than 2x the average of the last 7 days",
		enabled:     false,
	},
}

// EnsureDefaultRules creates the default rule set, one catalog entry
// per site, when the store holds no rules at all. Existing rules are
// left untouched.
func EnsureDefaultRules(ctx context.Context, rules storage.RuleRepository, sites []string, logger *zap.Logger) error {
	count, err := rules.Count(ctx)
	if err != nil {
		return fmt.Errorf("count rules: %w", err)
	}
	if count > 0 {
		return nil
	}

	created := 0
	for _, siteID := range sites {
		for _, spec := range defaultRuleSpecs {
			rule := models.NewAlertRule(
				fmt.Sprintf("%s-%s", spec.slug, siteID),
				siteID,
				spec.ruleType,
				spec.name,
				spec.description,
				spec.enabled,
			)
			if err := rules.Create(ctx, rule); err != nil {
				return fmt.Errorf("create default rule %s: %w", rule.ID, err)
			}
			created++
		}
	}

	logger.Info("initialized default alert rules",
		zap.Int("created", created),
		zap.Int("sites", len(sites)))
	return nil
}
