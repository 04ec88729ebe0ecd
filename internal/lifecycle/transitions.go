// Package lifecycle is the state machine of a job application. It is the
// only code that writes Application.Status.
//
// Valid status graph:
//
//	pending ──► searched ──► contact_found ──► applied ──► responded
//	   │           │  │            │              │
//	   │           │  └────────────┼──► applied   └──────► rejected
//	   └───────────┴───────────────┴──► error
//
// error, responded and rejected are terminal. applied only accepts the
// inbound-reply events (responded, rejected).
package lifecycle

import (
	"fmt"
	"time"

	"go-hrskip-automation/internal/models"
)

type EventKind string

const (
	EventSearchRecorded EventKind = "search_recorded"
	EventContactFound   EventKind = "contact_found"
	EventSent           EventKind = "sent"
	EventFailed         EventKind = "failed"
	EventResponded      EventKind = "responded"
	EventRejected       EventKind = "rejected"
)

// Event drives one transition. Only the payload matching Kind is read.
type Event struct {
	Kind    EventKind
	Result  *models.DiscoveryResult
	Outcome *models.SendOutcome
	Reason  string
	At      time.Time
}

func SearchRecorded(r models.DiscoveryResult) Event {
	return Event{Kind: EventSearchRecorded, Result: &r}
}

func ContactFound() Event { return Event{Kind: EventContactFound} }

func Sent(o models.SendOutcome) Event { return Event{Kind: EventSent, Outcome: &o} }

func Failed(reason string) Event { return Event{Kind: EventFailed, Reason: reason} }

// validTransitions lists every allowed (from, event) → to triple.
var validTransitions = map[models.ApplicationStatus]map[EventKind]models.ApplicationStatus{
	models.StatusPending: {
		EventSearchRecorded: models.StatusSearched,
		EventFailed:         models.StatusError,
	},
	models.StatusSearched: {
		EventContactFound: models.StatusContactFound,
		EventSent:         models.StatusApplied,
		EventFailed:       models.StatusError,
	},
	models.StatusContactFound: {
		EventSent:   models.StatusApplied,
		EventFailed: models.StatusError,
	},
	models.StatusApplied: {
		EventResponded: models.StatusResponded,
		EventRejected:  models.StatusRejected,
	},
	// error, responded and rejected are terminal: no outgoing transitions
}

// TransitionError reports an illegal transition. It always indicates a
// caller bug and must not be swallowed.
type TransitionError struct {
	ApplicationID string
	From          models.ApplicationStatus
	Event         EventKind
	Reason        string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("illegal transition for application %s: %s on %q", e.ApplicationID, e.Event, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsTerminal reports whether no event can leave s.
func IsTerminal(s models.ApplicationStatus) bool {
	_, ok := validTransitions[s]
	return !ok
}

// ParseStatus converts a raw string to a status, rejecting unknown values.
func ParseStatus(s string) (models.ApplicationStatus, error) {
	for _, st := range models.AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// Target returns the status ev leads to from from, if the move is legal.
func Target(from models.ApplicationStatus, ev EventKind) (models.ApplicationStatus, bool) {
	to, ok := validTransitions[from][ev]
	return to, ok
}

// Apply returns a copy of app with ev applied. On error app is untouched and
// the returned application is nil.
func Apply(app *models.Application, ev Event) (*models.Application, error) {
	if app == nil {
		return nil, &TransitionError{Event: ev.Kind, Reason: "nil application"}
	}
	fail := func(reason string) error {
		return &TransitionError{ApplicationID: app.ID, From: app.Status, Event: ev.Kind, Reason: reason}
	}

	to, ok := Target(app.Status, ev.Kind)
	if !ok {
		if IsTerminal(app.Status) {
			return nil, fail("status is terminal")
		}
		return nil, fail("")
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	next := app.Clone()
	switch ev.Kind {
	case EventSearchRecorded:
		if ev.Result == nil {
			return nil, fail("missing discovery result")
		}
		r := ev.Result.Clone()
		next.SearchResults = &r

	case EventContactFound:
		if next.SearchResults == nil || !next.SearchResults.Found {
			return nil, fail("no contact was found")
		}

	case EventSent:
		if ev.Outcome == nil || !ev.Outcome.Success {
			return nil, fail("sent requires a successful outcome")
		}
		sentAt := ev.Outcome.SentAt
		if sentAt.IsZero() {
			sentAt = at
		}
		next.Details.EmailSent = true
		next.Details.Subject = ev.Outcome.Subject
		next.Details.Content = ev.Outcome.Body
		next.Details.MessageID = ev.Outcome.MessageID
		next.Details.SentAt = &sentAt
		next.Details.Error = ""

	case EventFailed:
		reason := ev.Reason
		if reason == "" {
			reason = "unknown error"
		}
		next.Details.EmailSent = false
		next.Details.Error = reason
		if ev.Outcome != nil {
			next.Details.Subject = ev.Outcome.Subject
		}
	}

	change := models.StatusChange{From: app.Status, To: to, Event: string(ev.Kind), At: at}
	if ev.Kind == EventFailed {
		change.Note = next.Details.Error
	}
	next.History = append(next.History, change)
	next.Status = to
	next.UpdatedAt = at
	return next, nil
}
