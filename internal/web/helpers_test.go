package web

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/v-momentum/momentum/internal/models"
	"github.com/v-momentum/momentum/internal/notifier"
	"github.com/v-momentum/momentum/internal/storage"
)

// memStorage is an in-memory storage.Storage for handler tests.
type memStorage struct {
	rules  *memRuleRepo
	events *memEventRepo
}

func newMemStorage() *memStorage {
	return &memStorage{
		rules:  &memRuleRepo{rules: make(map[string]*models.AlertRule)},
		events: &memEventRepo{},
	}
}

func (s *memStorage) Open() error    { return nil }
func (s *memStorage) Close() error   { return nil }
func (s *memStorage) Migrate() error { return nil }

func (s *memStorage) Rules() storage.RuleRepository   { return s.rules }
func (s *memStorage) Events() storage.EventRepository { return s.events }

type memRuleRepo struct {
	mu    sync.Mutex
	rules map[string]*models.AlertRule
	err   error
}

func (r *memRuleRepo) Create(_ context.Context, rule *models.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *memRuleRepo) GetByID(_ context.Context, id string) (*models.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *rule
	return &cp, nil
}

func (r *memRuleRepo) List(_ context.Context) ([]*models.AlertRule, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AlertRule
	for _, rule := range r.rules {
		cp := *rule
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRuleRepo) ListBySite(ctx context.Context, siteID string) ([]*models.AlertRule, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.AlertRule
	for _, rule := range all {
		if rule.SiteID == siteID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memRuleRepo) ListEnabled(ctx context.Context) ([]*models.AlertRule, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.AlertRule
	for _, rule := range all {
		if rule.IsEnabled {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memRuleRepo) SetEnabled(_ context.Context, id string, enabled bool) (*models.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	rule.IsEnabled = enabled
	rule.UpdatedAt = time.Now()
	cp := *rule
	return &cp, nil
}

func (r *memRuleRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rules)), nil
}

type memEventRepo struct {
	mu        sync.Mutex
	events    []*models.AlertEvent
	createErr error
}

func (r *memEventRepo) Create(_ context.Context, event *models.AlertEvent) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *memEventRepo) GetByID(_ context.Context, id string) (*models.AlertEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *memEventRepo) List(_ context.Context, limit, offset int) ([]*models.AlertEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := int64(len(r.events))
	sorted := make([]*models.AlertEvent, len(r.events))
	copy(sorted, r.events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TriggeredAt.After(sorted[j].TriggeredAt) })
	if offset >= len(sorted) {
		return nil, total, nil
	}
	sorted = sorted[offset:]
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, total, nil
}

func (r *memEventRepo) ListRecent(_ context.Context, ruleID, siteID string, since time.Time) ([]*models.AlertEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AlertEvent
	for _, e := range r.events {
		if e.AlertRuleID == ruleID && e.SiteID == siteID && !e.TriggeredAt.Before(since) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memEventRepo) UpdateDelivery(_ context.Context, id string, sentTo []string, emailSent bool, emailErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			e.SentToEmails = sentTo
			e.EmailSent = emailSent
			e.EmailError = emailErr
			return nil
		}
	}
	return storage.ErrNotFound
}

var errAlwaysFails = errors.New("alert engine: ga4 unreachable")

// stubRunner is a canned AlertRunner for handler tests.
type stubRunner struct {
	summary *RunSummary
	err     error
	calls   int
}

func (s *stubRunner) Run(_ context.Context) (*RunSummary, error) {
	s.calls++
	return s.summary, s.err
}

// fakeDispatcher records notifications for coordinator tests.
type fakeDispatcher struct {
	sent    []notifier.Notification
	failAll bool
}

func (f *fakeDispatcher) SendAlertEmails(_ context.Context, n notifier.Notification) notifier.DeliveryResult {
	f.sent = append(f.sent, n)
	if f.failAll {
		return notifier.DeliveryResult{
			Failed: n.Recipients,
			Errors: []string{"smtp: connection refused"},
		}
	}
	return notifier.DeliveryResult{Sent: n.Recipients}
}

func seedWebRule(t *testing.T, store *memStorage, id, siteID string, ruleType models.RuleType, enabled bool) *models.AlertRule {
	t.Helper()
	rule := models.NewAlertRule(id, siteID, ruleType, "rule "+id, "", enabled)
	if err := store.rules.Create(context.Background(), rule); err != nil {
		t.Fatalf("seed rule: %v", err)
	}
	return rule
}
