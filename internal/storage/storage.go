// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/v-momentum/momentum/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Rules() RuleRepository
	Events() EventRepository
}

// RuleRepository defines operations for alert rule management.
// Updates are per-record so concurrent toggles cannot lose each other's
// writes.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.AlertRule) error
	GetByID(ctx context.Context, id string) (*models.AlertRule, error)
	List(ctx context.Context) ([]*models.AlertRule, error)
	ListBySite(ctx context.Context, siteID string) ([]*models.AlertRule, error)
	ListEnabled(ctx context.Context) ([]*models.AlertRule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*models.AlertRule, error)
	Count(ctx context.Context) (int64, error)
}

// EventRepository defines operations for the append-only alert event log.
type EventRepository interface {
	Create(ctx context.Context, event *models.AlertEvent) error
	GetByID(ctx context.Context, id string) (*models.AlertEvent, error)
	List(ctx context.Context, limit, offset int) ([]*models.AlertEvent, int64, error)
	// ListRecent returns events for (ruleID, siteID) triggered at or
	// after since, newest first. Used by the deduplication gate.
	ListRecent(ctx context.Context, ruleID, siteID string, since time.Time) ([]*models.AlertEvent, error)
	// UpdateDelivery records the notification outcome on an event.
	UpdateDelivery(ctx context.Context, id string, sentTo []string, emailSent bool, emailErr string) error
}
