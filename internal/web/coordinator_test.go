package web

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/alerting"
	"github.com/v-momentum/momentum/internal/models"
)

type fakeEngine struct {
	result *alerting.RunResult
	err    error
}

func (f *fakeEngine) Run(_ context.Context) (*alerting.RunResult, error) {
	return f.result, f.err
}

func newTestCoordinator(store *memStorage, engine alertEngine, dispatcher eventDispatcher) *Coordinator {
	return &Coordinator{
		engine:     engine,
		store:      store,
		dispatcher: dispatcher,
		recipients: NewRecipientResolver(nil, []string{"ops@example.com"}),
		checks: alerting.ChecksInput{
			Properties: map[string]string{"site-a": "123"},
			SMTPHost:   "smtp.example.com",
			SMTPPort:   587,
			SMTPUser:   "u",
			SMTPPass:   "p",
			FromEmail:  "alerts@example.com",
			Recipients: []string{"ops@example.com"},
			CronSecret: "s",
		},
		sites:  []string{"site-a"},
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

func triggeredEvent(t *testing.T, store *memStorage, ruleID string) (*models.AlertRule, *models.AlertEvent) {
	t.Helper()
	rule := seedWebRule(t, store, ruleID, "site-a", models.RuleTrafficDrop, true)
	event := models.NewAlertEvent(rule, models.SeverityCritical, models.EventPayload{
		PreviousValue: 1000,
		CurrentValue:  400,
		ChangePercent: -60,
		Metric:        "sessions",
	}, time.Now())
	return rule, event
}

func TestCoordinatorPersistsAndNotifies(t *testing.T) {
	store := newMemStorage()
	_, event := triggeredEvent(t, store, "r-1")
	dispatcher := &fakeDispatcher{}
	engine := &fakeEngine{result: &alerting.RunResult{
		SitesProcessed:  1,
		AlertsEvaluated: 3,
		AlertsTriggered: 1,
		Events:          []*models.AlertEvent{event},
	}}

	coord := newTestCoordinator(store, engine, dispatcher)
	summary, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.AlertsTriggered != 1 || summary.EmailsSent != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("errors = %v", summary.Errors)
	}

	stored, err := store.events.GetByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("event not persisted: %v", err)
	}
	if !stored.EmailSent {
		t.Error("delivery status not recorded")
	}
	if len(stored.SentToEmails) != 1 || stored.SentToEmails[0] != "ops@example.com" {
		t.Errorf("sentTo = %v", stored.SentToEmails)
	}

	if len(dispatcher.sent) != 1 {
		t.Fatalf("dispatcher called %d times, want 1", len(dispatcher.sent))
	}
	if dispatcher.sent[0].Rule.ID != "r-1" {
		t.Errorf("dispatched rule = %q", dispatcher.sent[0].Rule.ID)
	}
}

func TestCoordinatorRecordsDeliveryFailure(t *testing.T) {
	store := newMemStorage()
	_, event := triggeredEvent(t, store, "r-1")
	dispatcher := &fakeDispatcher{failAll: true}
	engine := &fakeEngine{result: &alerting.RunResult{
		AlertsTriggered: 1,
		Events:          []*models.AlertEvent{event},
	}}

	coord := newTestCoordinator(store, engine, dispatcher)
	summary, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.EmailsSent != 0 {
		t.Errorf("emailsSent = %d, want 0", summary.EmailsSent)
	}
	if len(summary.Errors) == 0 {
		t.Fatal("delivery failure missing from summary errors")
	}

	stored, _ := store.events.GetByID(context.Background(), event.ID)
	if stored.EmailSent {
		t.Error("emailSent true after total failure")
	}
	if !strings.Contains(stored.EmailError, "connection refused") {
		t.Errorf("emailError = %q", stored.EmailError)
	}
}

func TestCoordinatorSkipsEmailWhenPersistFails(t *testing.T) {
	store := newMemStorage()
	_, event := triggeredEvent(t, store, "r-1")
	store.events.createErr = errors.New("disk full")
	dispatcher := &fakeDispatcher{}
	engine := &fakeEngine{result: &alerting.RunResult{
		AlertsTriggered: 1,
		Events:          []*models.AlertEvent{event},
	}}

	coord := newTestCoordinator(store, engine, dispatcher)
	summary, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(dispatcher.sent) != 0 {
		t.Error("email dispatched for an unpersisted event")
	}
	if len(summary.Errors) == 0 || !strings.Contains(summary.Errors[len(summary.Errors)-1], "disk full") {
		t.Errorf("errors = %v", summary.Errors)
	}
}

func TestCoordinatorEngineFailureIsFatal(t *testing.T) {
	store := newMemStorage()
	engine := &fakeEngine{err: errors.New("rules table locked")}

	coord := newTestCoordinator(store, engine, &fakeDispatcher{})
	summary, err := coord.Run(context.Background())
	if err == nil {
		t.Fatal("expected fatal error from engine failure")
	}
	if summary == nil {
		t.Fatal("partial summary should still be returned")
	}
}

func TestCoordinatorBootstrapsDefaultRules(t *testing.T) {
	store := newMemStorage()
	engine := &fakeEngine{result: &alerting.RunResult{}}

	coord := newTestCoordinator(store, engine, &fakeDispatcher{})
	if _, err := coord.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	count, _ := store.rules.Count(context.Background())
	if count == 0 {
		t.Error("default rules not created on an empty store")
	}
}

func TestCoordinatorSerializesRuns(t *testing.T) {
	store := newMemStorage()
	release := make(chan struct{})
	running := make(chan struct{})
	engine := &blockingEngine{release: release, running: running}

	coord := newTestCoordinator(store, engine, &fakeDispatcher{})

	done := make(chan struct{})
	go func() {
		coord.Run(context.Background())
		close(done)
	}()
	<-running

	second := make(chan struct{})
	go func() {
		coord.Run(context.Background())
		close(second)
	}()

	select {
	case <-second:
		t.Fatal("second run completed while first still held the lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
	<-second
}

type blockingEngine struct {
	release chan struct{}
	running chan struct{}
	started bool
}

func (b *blockingEngine) Run(_ context.Context) (*alerting.RunResult, error) {
	if !b.started {
		b.started = true
		close(b.running)
		<-b.release
	}
	return &alerting.RunResult{}, nil
}
