package lifecycle_test

import (
	"errors"
	"testing"
	"time"

	"go-hrskip-automation/internal/lifecycle"
	"go-hrskip-automation/internal/models"
)

var allEvents = []lifecycle.EventKind{
	lifecycle.EventSearchRecorded,
	lifecycle.EventContactFound,
	lifecycle.EventSent,
	lifecycle.EventFailed,
	lifecycle.EventResponded,
	lifecycle.EventRejected,
}

func eventFor(kind lifecycle.EventKind) lifecycle.Event {
	switch kind {
	case lifecycle.EventSearchRecorded:
		return lifecycle.SearchRecorded(models.DiscoveryResult{Found: true})
	case lifecycle.EventSent:
		return lifecycle.Sent(models.SendOutcome{Success: true, Recipient: "jobs@acme.example"})
	case lifecycle.EventFailed:
		return lifecycle.Failed("smtp: 550 mailbox unavailable")
	}
	return lifecycle.Event{Kind: kind}
}

func appIn(status models.ApplicationStatus) *models.Application {
	return &models.Application{
		ID:            "app-1",
		UserID:        "1",
		JobID:         "42",
		Status:        status,
		SearchResults: &models.DiscoveryResult{Found: true},
	}
}

// ── Happy path ───────────────────────────────────────────────────────────────

func TestApply_FullEmailFlow(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	app := &models.Application{ID: "a", Status: models.StatusPending}

	email := "jobs@acme.example"
	next, err := lifecycle.Apply(app, lifecycle.SearchRecorded(models.DiscoveryResult{
		Found: true, ContactMethod: models.ContactEmail, Contacts: models.Contacts{Email: &email},
	}))
	if err != nil {
		t.Fatalf("search recorded: %v", err)
	}
	if next.Status != models.StatusSearched || next.SearchResults == nil {
		t.Fatalf("got %q with results %v", next.Status, next.SearchResults)
	}
	if app.Status != models.StatusPending || app.SearchResults != nil {
		t.Errorf("input application was mutated")
	}

	next, err = lifecycle.Apply(next, lifecycle.Event{
		Kind:    lifecycle.EventSent,
		Outcome: &models.SendOutcome{Success: true, MessageID: "<m1>", Subject: "Application", SentAt: at},
	})
	if err != nil {
		t.Fatalf("sent: %v", err)
	}
	if next.Status != models.StatusApplied {
		t.Errorf("got %q, want applied", next.Status)
	}
	if !next.Details.EmailSent || next.Details.SentAt == nil || !next.Details.SentAt.Equal(at) {
		t.Errorf("details not recorded: %+v", next.Details)
	}
	if next.Details.MessageID != "<m1>" || next.Details.Subject != "Application" {
		t.Errorf("details not recorded: %+v", next.Details)
	}
}

func TestApply_ContactFoundThenSent(t *testing.T) {
	next, err := lifecycle.Apply(appIn(models.StatusSearched), lifecycle.ContactFound())
	if err != nil || next.Status != models.StatusContactFound {
		t.Fatalf("contact found: %v %v", next, err)
	}
	next, err = lifecycle.Apply(next, eventFor(lifecycle.EventSent))
	if err != nil || next.Status != models.StatusApplied {
		t.Fatalf("sent from contact_found: %v %v", next, err)
	}
}

func TestApply_FailureRecordsError(t *testing.T) {
	for _, from := range []models.ApplicationStatus{models.StatusPending, models.StatusSearched, models.StatusContactFound} {
		next, err := lifecycle.Apply(appIn(from), lifecycle.Failed("smtp: 550"))
		if err != nil {
			t.Errorf("%s → error: %v", from, err)
			continue
		}
		if next.Status != models.StatusError || next.Details.Error != "smtp: 550" || next.Details.EmailSent {
			t.Errorf("%s → error: got %+v", from, next)
		}
	}
}

func TestApply_AppendsHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	app := &models.Application{ID: "a", Status: models.StatusPending}

	ev := lifecycle.SearchRecorded(models.DiscoveryResult{Found: true})
	ev.At = at
	searched, err := lifecycle.Apply(app, ev)
	if err != nil {
		t.Fatalf("search recorded: %v", err)
	}
	failed, err := lifecycle.Apply(searched, lifecycle.Event{Kind: lifecycle.EventFailed, Reason: "smtp: 550", At: at.Add(time.Minute)})
	if err != nil {
		t.Fatalf("failed: %v", err)
	}

	want := []models.StatusChange{
		{From: models.StatusPending, To: models.StatusSearched, Event: "search_recorded", At: at},
		{From: models.StatusSearched, To: models.StatusError, Event: "failed", Note: "smtp: 550", At: at.Add(time.Minute)},
	}
	if len(failed.History) != len(want) {
		t.Fatalf("history: got %+v", failed.History)
	}
	for i := range want {
		if failed.History[i] != want[i] {
			t.Errorf("history[%d]: got %+v, want %+v", i, failed.History[i], want[i])
		}
	}
	if len(searched.History) != 1 || len(app.History) != 0 {
		t.Errorf("earlier snapshots were mutated: %d, %d", len(searched.History), len(app.History))
	}

	if _, err := lifecycle.Apply(failed, lifecycle.ContactFound()); err == nil {
		t.Fatal("terminal status accepted an event")
	}
	if len(failed.History) != 2 {
		t.Errorf("rejected event was recorded")
	}
}

func TestApply_InboundReplies(t *testing.T) {
	for kind, want := range map[lifecycle.EventKind]models.ApplicationStatus{
		lifecycle.EventResponded: models.StatusResponded,
		lifecycle.EventRejected:  models.StatusRejected,
	} {
		next, err := lifecycle.Apply(appIn(models.StatusApplied), lifecycle.Event{Kind: kind})
		if err != nil || next.Status != want {
			t.Errorf("applied + %s: got %v, %v", kind, next, err)
		}
	}
}

// ── Rejections ───────────────────────────────────────────────────────────────

func TestApply_AppliedRejectsPipelineEvents(t *testing.T) {
	for _, kind := range []lifecycle.EventKind{
		lifecycle.EventSearchRecorded, lifecycle.EventContactFound, lifecycle.EventSent, lifecycle.EventFailed,
	} {
		app := appIn(models.StatusApplied)
		next, err := lifecycle.Apply(app, eventFor(kind))

		var te *lifecycle.TransitionError
		if !errors.As(err, &te) {
			t.Errorf("applied + %s: want TransitionError, got %v", kind, err)
		}
		if next != nil || app.Status != models.StatusApplied {
			t.Errorf("applied + %s: record changed", kind)
		}
	}
}

func TestApply_TerminalStatesRejectEverything(t *testing.T) {
	for _, from := range []models.ApplicationStatus{models.StatusError, models.StatusResponded, models.StatusRejected} {
		if !lifecycle.IsTerminal(from) {
			t.Errorf("%s should be terminal", from)
		}
		for _, kind := range allEvents {
			_, err := lifecycle.Apply(appIn(from), eventFor(kind))
			var te *lifecycle.TransitionError
			if !errors.As(err, &te) {
				t.Errorf("%s + %s: want TransitionError, got %v", from, kind, err)
				continue
			}
			if te.From != from || te.Event != kind {
				t.Errorf("%s + %s: error fields %+v", from, kind, te)
			}
		}
	}
}

func TestApply_GuardFailures(t *testing.T) {
	tests := []struct {
		name string
		app  *models.Application
		ev   lifecycle.Event
	}{
		{"contact_found without a found result", &models.Application{Status: models.StatusSearched, SearchResults: &models.DiscoveryResult{}}, lifecycle.ContactFound()},
		{"sent with failed outcome", appIn(models.StatusSearched), lifecycle.Sent(models.SendOutcome{Success: false})},
		{"sent skipping search", appIn(models.StatusPending), eventFor(lifecycle.EventSent)},
		{"search result missing", appIn(models.StatusPending), lifecycle.Event{Kind: lifecycle.EventSearchRecorded}},
		{"reply before applied", appIn(models.StatusSearched), lifecycle.Event{Kind: lifecycle.EventResponded}},
		{"nil application", nil, lifecycle.ContactFound()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lifecycle.Apply(tt.app, tt.ev)
			var te *lifecycle.TransitionError
			if !errors.As(err, &te) {
				t.Errorf("want TransitionError, got %v", err)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range models.AllStatuses {
		got, err := lifecycle.ParseStatus(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := lifecycle.ParseStatus("HIRED"); err == nil {
		t.Errorf("expected error for unknown status")
	}
}
