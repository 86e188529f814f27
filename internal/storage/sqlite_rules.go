package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/v-momentum/momentum/internal/models"
)

type sqliteRuleRepo struct {
	db *sql.DB
}

const ruleColumns = "id, site_id, type, name, description, enabled, created_at, updated_at"

func (r *sqliteRuleRepo) Create(ctx context.Context, rule *models.AlertRule) error {
	query := `
		INSERT INTO alert_rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.SiteID, string(rule.Type), rule.Name, nullString(rule.Description),
		boolToInt(rule.IsEnabled), rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (r *sqliteRuleRepo) GetByID(ctx context.Context, id string) (*models.AlertRule, error) {
	query := "SELECT " + ruleColumns + " FROM alert_rules WHERE id = ?"
	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

func (r *sqliteRuleRepo) List(ctx context.Context) ([]*models.AlertRule, error) {
	query := "SELECT " + ruleColumns + " FROM alert_rules ORDER BY site_id, id"
	return r.queryRules(ctx, query)
}

func (r *sqliteRuleRepo) ListBySite(ctx context.Context, siteID string) ([]*models.AlertRule, error) {
	query := "SELECT " + ruleColumns + " FROM alert_rules WHERE site_id = ? ORDER BY id"
	return r.queryRules(ctx, query, siteID)
}

func (r *sqliteRuleRepo) ListEnabled(ctx context.Context) ([]*models.AlertRule, error) {
	query := "SELECT " + ruleColumns + " FROM alert_rules WHERE enabled = 1 ORDER BY site_id, id"
	return r.queryRules(ctx, query)
}

func (r *sqliteRuleRepo) SetEnabled(ctx context.Context, id string, enabled bool) (*models.AlertRule, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET enabled = ?, updated_at = ? WHERE id = ?",
		boolToInt(enabled), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set rule enabled: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *sqliteRuleRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_rules").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rules: %w", err)
	}
	return count, nil
}

func (r *sqliteRuleRepo) queryRules(ctx context.Context, query string, args ...interface{}) ([]*models.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row scanner) (*models.AlertRule, error) {
	rule := &models.AlertRule{}
	var ruleType string
	var description sql.NullString
	var enabled int

	err := row.Scan(
		&rule.ID, &rule.SiteID, &ruleType, &rule.Name, &description,
		&enabled, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Type = models.RuleType(ruleType)
	rule.Description = description.String
	rule.IsEnabled = enabled != 0

	return rule, nil
}
