// Package apply runs one application end to end: it reserves the (user, job)
// pair, discovers a contact, sends the email and records every status change
// through the lifecycle state machine.
package apply

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go-hrskip-automation/internal/cache"
	"go-hrskip-automation/internal/lifecycle"
	"go-hrskip-automation/internal/models"
	"go-hrskip-automation/internal/store"
)

// Discoverer finds a contact for a vacancy (discovery.Orchestrator).
type Discoverer interface {
	DiscoverContact(ctx context.Context, v models.Vacancy) models.DiscoveryResult
}

// Sender sends the application email (mailer.Dispatcher).
type Sender interface {
	Dispatch(ctx context.Context, result models.DiscoveryResult, user *models.User, app *models.Application) models.SendOutcome
}

// Notifier tells the user how their application ended.
type Notifier interface {
	NotifyApplication(ctx context.Context, user *models.User, app *models.Application) error
}

// Alerter reaches the operator.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Publisher fans status events out to other processes.
type Publisher interface {
	Publish(ctx context.Context, channel string, v any) error
}

// DailyLimitError is returned by Begin once the user reached
// Settings.MaxApplicationsPerDay for the current day.
type DailyLimitError struct {
	UserID string
	Limit  int
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("user %s reached the daily limit of %d applications", e.UserID, e.Limit)
}

// StatusEvent is published on every persisted status change.
type StatusEvent struct {
	ApplicationID string                   `json:"application_id"`
	UserID        string                   `json:"user_id"`
	JobID         string                   `json:"job_id"`
	Status        models.ApplicationStatus `json:"status"`
	At            time.Time                `json:"at"`
}

type Service struct {
	store     store.Store
	discover  Discoverer
	sender    Sender
	locker    cache.Locker
	notifier  Notifier
	alerter   Alerter
	publisher Publisher
	lockTTL   time.Duration
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{} // application IDs between Begin and the end of Process
}

type Option func(*Service)

func WithLocker(l cache.Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLockTTL(d time.Duration) Option {
	return func(s *Service) { s.lockTTL = d }
}

func New(st store.Store, d Discoverer, sender Sender, opts ...Option) *Service {
	s := &Service{
		store:    st,
		discover: d,
		sender:   sender,
		locker:   cache.NewLocalLocker(),
		lockTTL:  30 * time.Second,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run is a reserved application waiting for its pipeline.
type Run struct {
	svc     *Service
	user    *models.User
	vacancy models.Vacancy
	app     *models.Application
}

// Application returns the record as created by Begin.
func (r *Run) Application() *models.Application { return r.app.Clone() }

// Begin reserves the (user, vacancy) pair and creates the pending record. A
// second caller for the same pair gets *store.DuplicateApplicationError, both
// while the first Begin holds the lock and after the record exists. The
// returned Run must be processed; until then the sweeper leaves it alone.
func (s *Service) Begin(ctx context.Context, userID string, v models.Vacancy) (*Run, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	unlock, err := s.locker.TryLock(ctx, lockKey(userID, v.ID), s.lockTTL)
	if errors.Is(err, cache.ErrLocked) {
		return nil, &store.DuplicateApplicationError{UserID: userID, JobID: v.ID}
	}
	if err != nil {
		return nil, fmt.Errorf("lock application: %w", err)
	}
	defer unlock()

	existing, err := s.store.FindApplication(ctx, userID, v.ID)
	switch {
	case err == nil:
		return nil, &store.DuplicateApplicationError{UserID: userID, JobID: v.ID, ExistingID: existing.ID}
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("check existing application: %w", err)
	}

	if limit := user.Settings.MaxApplicationsPerDay; limit > 0 {
		n, err := s.store.CountCreatedSince(ctx, userID, store.StartOfDay(s.now()))
		if err != nil {
			return nil, fmt.Errorf("count today's applications: %w", err)
		}
		if n >= limit {
			return nil, &DailyLimitError{UserID: userID, Limit: limit}
		}
	}

	app, err := s.store.CreateApplication(ctx, models.NewApplication(userID, v))
	if err != nil {
		return nil, err
	}
	log.Printf("🆕 [apply] application %s created for user %s, job %s", app.ID, userID, v.ID)
	s.track(app.ID)
	s.publish(ctx, app)
	return &Run{svc: s, user: user, vacancy: v, app: app}, nil
}

// Apply is Begin followed by Process.
func (s *Service) Apply(ctx context.Context, userID string, v models.Vacancy) (*models.Application, error) {
	run, err := s.Begin(ctx, userID, v)
	if err != nil {
		return nil, err
	}
	return run.Process(ctx)
}

// Process runs discovery and dispatch. It ends in applied, error,
// contact_found, or searched when nothing was found. Errors are store
// failures, illegal transitions or cancellation, never stage failures.
//
// A cancelled ctx is not a stage failure: the record keeps the last status
// it reached (pending, or searched before dispatch) and the sweeper fails
// it later if nobody resumes it.
func (r *Run) Process(ctx context.Context) (*models.Application, error) {
	s := r.svc
	defer s.untrack(r.app.ID)
	// outcomes are recorded even when the caller is gone
	persistCtx := context.WithoutCancel(ctx)

	result := s.discover.DiscoverContact(ctx, r.vacancy)
	if err := ctx.Err(); err != nil && !result.Found {
		log.Printf("⏹️ [apply] %s: discovery interrupted, left %s", r.app.ID, r.app.Status)
		return nil, fmt.Errorf("application %s interrupted: %w", r.app.ID, err)
	}
	app, err := s.transition(persistCtx, r.app, lifecycle.SearchRecorded(result))
	if err != nil {
		return nil, err
	}

	if !result.Found {
		log.Printf("🤷 [apply] %s: no contact found for %s", app.ID, app.Company.Name)
		s.notify(persistCtx, r.user, app)
		return app, nil
	}

	if result.ContactMethod != models.ContactEmail || !result.HasEmail() {
		app, err = s.transition(persistCtx, app, lifecycle.ContactFound())
		if err != nil {
			return nil, err
		}
		log.Printf("📇 [apply] %s: contact found (%s), left for manual follow-up", app.ID, result.ContactMethod)
		s.notify(persistCtx, r.user, app)
		return app, nil
	}

	if err := ctx.Err(); err != nil {
		log.Printf("⏹️ [apply] %s: cancelled before dispatch, left %s", app.ID, app.Status)
		return nil, fmt.Errorf("application %s interrupted: %w", app.ID, err)
	}

	outcome := s.sender.Dispatch(ctx, result, r.user, app)
	if !outcome.Success && ctx.Err() != nil {
		log.Printf("⏹️ [apply] %s: dispatch cancelled (%s), left %s", app.ID, outcome.Error, app.Status)
		return nil, fmt.Errorf("application %s interrupted: %w", app.ID, ctx.Err())
	}
	ev := lifecycle.Sent(outcome)
	if !outcome.Success {
		ev = lifecycle.Failed(outcome.Error)
		ev.Outcome = &outcome
	}
	app, err = s.transition(persistCtx, app, ev)
	if err != nil {
		if outcome.Success {
			s.alert(persistCtx, fmt.Sprintf("Application %s: email to %s was sent but the record could not be updated: %v", r.app.ID, outcome.Recipient, err))
		}
		return nil, err
	}

	if err := s.store.RecordActivity(persistCtx, r.user.ID, outcome.Success, s.now()); err != nil {
		log.Printf("⚠️ [apply] updating statistics for user %s: %v", r.user.ID, err)
	}
	if !outcome.Success {
		s.alert(persistCtx, fmt.Sprintf("Application %s to %s (%s) failed: %s", app.ID, app.Company.Name, outcome.Recipient, outcome.Error))
	}
	s.notify(persistCtx, r.user, app)
	return app, nil
}

// RecordReply applies an inbound employer reply to an applied application.
func (s *Service) RecordReply(ctx context.Context, appID string, kind lifecycle.EventKind) (*models.Application, error) {
	if kind != lifecycle.EventResponded && kind != lifecycle.EventRejected {
		return nil, fmt.Errorf("%q is not a reply event", kind)
	}
	app, err := s.store.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, app, lifecycle.Event{Kind: kind})
}

// FailStale moves applications whose pipeline was interrupted to error: any
// pending record, and searched records holding an email contact that was
// never dispatched. Searched records without a usable email are finished
// runs and stay untouched, and so are runs still in progress here or
// holding the pair lock elsewhere. It returns how many records were moved.
func (s *Service) FailStale(ctx context.Context, before time.Time) (int, error) {
	stale, err := s.store.ListStale(ctx, []models.ApplicationStatus{models.StatusPending, models.StatusSearched}, before)
	if err != nil {
		return 0, fmt.Errorf("list stale applications: %w", err)
	}

	moved := 0
	for _, app := range stale {
		if app.Status == models.StatusSearched && (app.SearchResults == nil || !app.SearchResults.Found ||
			app.SearchResults.ContactMethod != models.ContactEmail || !app.SearchResults.HasEmail()) {
			continue
		}
		if s.tracked(app.ID) {
			continue
		}
		ok, err := s.failStale(ctx, app)
		if err != nil {
			return moved, err
		}
		if ok {
			moved++
		}
	}
	return moved, nil
}

func (s *Service) failStale(ctx context.Context, app *models.Application) (bool, error) {
	unlock, err := s.locker.TryLock(ctx, lockKey(app.UserID, app.JobID), s.lockTTL)
	if errors.Is(err, cache.ErrLocked) {
		log.Printf("⏭️ [apply] %s: pair is locked, not sweeping", app.ID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock application: %w", err)
	}
	defer unlock()

	_, err = s.transition(ctx, app, lifecycle.Failed("interrupted: pipeline did not finish"))
	if errors.Is(err, store.ErrStatusConflict) {
		return false, nil
	}
	return err == nil, err
}

// transition is the only place that persists a status change. The write
// only lands if the stored status is still app.Status.
func (s *Service) transition(ctx context.Context, app *models.Application, ev lifecycle.Event) (*models.Application, error) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	next, err := lifecycle.Apply(app, ev)
	if err != nil {
		log.Printf("❌ [apply] %v", err)
		return nil, err
	}
	if err := s.store.UpdateApplication(ctx, next, app.Status); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			log.Printf("⚠️ [apply] %s: %s dropped, %v", next.ID, ev.Kind, err)
		}
		return nil, fmt.Errorf("save application %s: %w", next.ID, err)
	}
	log.Printf("🔁 [apply] %s: %s → %s", next.ID, app.Status, next.Status)
	s.publish(ctx, next)
	return next, nil
}

func (s *Service) publish(ctx context.Context, app *models.Application) {
	if s.publisher == nil {
		return
	}
	ev := StatusEvent{ApplicationID: app.ID, UserID: app.UserID, JobID: app.JobID, Status: app.Status, At: app.UpdatedAt}
	if err := s.publisher.Publish(ctx, cache.StatusChannel, ev); err != nil {
		log.Printf("⚠️ [apply] publish status event: %v", err)
	}
}

func (s *Service) notify(ctx context.Context, user *models.User, app *models.Application) {
	if s.notifier == nil || !user.Settings.Notifications {
		return
	}
	if err := s.notifier.NotifyApplication(ctx, user, app); err != nil {
		log.Printf("⚠️ [apply] notify user %s: %v", user.ID, err)
	}
}

func (s *Service) alert(ctx context.Context, text string) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.Alert(ctx, text); err != nil {
		log.Printf("⚠️ [apply] operator alert: %v", err)
	}
}

func (s *Service) track(id string) {
	s.mu.Lock()
	s.inflight[id] = struct{}{}
	s.mu.Unlock()
}

func (s *Service) untrack(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

func (s *Service) tracked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[id]
	return ok
}

func lockKey(userID, jobID string) string {
	return "apply:lock:" + userID + ":" + jobID
}
