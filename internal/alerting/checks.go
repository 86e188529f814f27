package alerting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/storage"
)

// ChecksInput carries the configuration values the health checks
// inspect. Values are passed in rather than read from the environment
// so checks stay testable.
type ChecksInput struct {
	Properties map[string]string // site id -> GA4 property id
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	Recipients []string
	CronSecret string
}

// CheckReport is the outcome of one check group.
type CheckReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ChecksResult aggregates all pre-run health checks.
type ChecksResult struct {
	Env     CheckReport `json:"env"`
	Rules   CheckReport `json:"rules"`
	SMTP    CheckReport `json:"smtp"`
	Overall bool        `json:"overall"`
}

// RunChecks verifies environment configuration, rule integrity, and
// SMTP settings. Failures are reported, never fatal: a run proceeds on
// a degraded configuration so whatever still works keeps alerting.
func RunChecks(ctx context.Context, input ChecksInput, rules storage.RuleRepository, logger *zap.Logger) ChecksResult {
	logger.Info("running system checks")

	result := ChecksResult{
		Env:   checkEnv(input),
		Rules: checkRules(ctx, rules),
		SMTP:  checkSMTP(input),
	}
	result.Overall = result.Env.Valid && result.Rules.Valid && result.SMTP.Valid

	if result.Overall {
		logger.Info("all system checks passed")
	} else {
		logger.Warn("system checks reported problems",
			zap.Strings("env", result.Env.Errors),
			zap.Strings("rules", result.Rules.Errors),
			zap.Strings("smtp", result.SMTP.Errors))
	}
	return result
}

func checkEnv(input ChecksInput) CheckReport {
	var errs []string
	if len(input.Properties) == 0 {
		errs = append(errs, "no GA4 properties configured")
	}
	for site, property := range input.Properties {
		if property == "" {
			errs = append(errs, fmt.Sprintf("empty GA4 property id for site %s", site))
		}
	}
	if len(input.Recipients) == 0 {
		errs = append(errs, "no default alert recipients configured")
	}
	if input.CronSecret == "" {
		errs = append(errs, "cron secret not configured; run endpoint is open")
	}
	return CheckReport{Valid: len(errs) == 0, Errors: errs}
}

func checkRules(ctx context.Context, rules storage.RuleRepository) CheckReport {
	var errs []string

	all, err := rules.List(ctx)
	if err != nil {
		return CheckReport{Errors: []string{fmt.Sprintf("load rules: %v", err)}}
	}
	if len(all) == 0 {
		return CheckReport{Errors: []string{"no alert rules found"}}
	}

	for _, rule := range all {
		if rule.ID == "" || rule.SiteID == "" || rule.Name == "" {
			errs = append(errs, fmt.Sprintf("invalid rule structure: %s", rule.ID))
			continue
		}
		if !rule.Type.Valid() {
			errs = append(errs, fmt.Sprintf("unknown rule type %q on rule %s", rule.Type, rule.ID))
		}
	}
	return CheckReport{Valid: len(errs) == 0, Errors: errs}
}

func checkSMTP(input ChecksInput) CheckReport {
	var errs []string
	if input.SMTPHost == "" {
		errs = append(errs, "SMTP host not configured")
	}
	if input.SMTPPort == 0 {
		errs = append(errs, "SMTP port not configured")
	}
	if input.SMTPUser == "" {
		errs = append(errs, "SMTP user not configured")
	}
	if input.SMTPPass == "" {
		errs = append(errs, "SMTP password not configured")
	}
	if input.FromEmail == "" {
		errs = append(errs, "from address not configured")
	}
	return CheckReport{Valid: len(errs) == 0, Errors: errs}
}
