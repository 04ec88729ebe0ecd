package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-hrskip-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(userID, jobID string) *models.Application {
	return models.NewApplication(userID, models.Vacancy{
		ID:       jobID,
		Title:    "Backend Engineer",
		Employer: models.Employer{Name: "Acme", SiteURL: "https://acme.example"},
	})
}

// ── Applications ─────────────────────────────────────────────────────────────

func TestCreateApplication_DuplicateLeavesFirstUntouched(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	first, err := s.CreateApplication(ctx, newApp("1", "42"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, models.StatusPending, first.Status)

	second := newApp("1", "42")
	second.Position.Title = "Something else"
	_, err = s.CreateApplication(ctx, second)

	var dup *DuplicateApplicationError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.ID, dup.ExistingID)

	got, err := s.FindApplication(ctx, "1", "42")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestCreateApplication_ConcurrentSamePair(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		dups int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateApplication(ctx, newApp("1", "42"))
			mu.Lock()
			defer mu.Unlock()
			var dup *DuplicateApplicationError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &dup):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dups)
	list, err := s.ListApplications(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateApplication_KeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	app, err := s.CreateApplication(ctx, newApp("1", "42"))
	require.NoError(t, err)

	app.Status = models.StatusSearched
	app.JobID = "other"
	require.NoError(t, s.UpdateApplication(ctx, app, models.StatusPending))

	got, err := s.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSearched, got.Status)
	assert.Equal(t, "42", got.JobID)

	assert.ErrorIs(t, s.UpdateApplication(ctx, &models.Application{ID: "missing"}, models.StatusPending), ErrNotFound)
	_, err = s.GetApplication(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateApplication_StatusConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	app, err := s.CreateApplication(ctx, newApp("1", "42"))
	require.NoError(t, err)

	// the sweeper fails the record first
	failed := app.Clone()
	failed.Status = models.StatusError
	require.NoError(t, s.UpdateApplication(ctx, failed, models.StatusPending))

	// the run still believes it is pending
	app.Status = models.StatusApplied
	err = s.UpdateApplication(ctx, app, models.StatusPending)
	assert.ErrorIs(t, err, ErrStatusConflict)

	got, err := s.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status, "first writer wins")
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	app, err := s.CreateApplication(ctx, newApp("1", "42"))
	require.NoError(t, err)

	app.Status = models.StatusError
	got, err := s.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestListStaleAndCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	old, err := s.CreateApplication(ctx, newApp("1", "a"))
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	fresh, err := s.CreateApplication(ctx, newApp("1", "b"))
	require.NoError(t, err)
	done, err := s.CreateApplication(ctx, newApp("2", "c"))
	require.NoError(t, err)
	done.Status = models.StatusApplied
	done.UpdatedAt = base
	require.NoError(t, s.UpdateApplication(ctx, done, models.StatusPending))

	stale, err := s.ListStale(ctx, []models.ApplicationStatus{models.StatusPending, models.StatusSearched}, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)

	n, err := s.CountCreatedSince(ctx, "1", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := s.ListApplications(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, fresh.ID, list[0].ID, "newest first")
}

// ── Users ────────────────────────────────────────────────────────────────────

func TestUsers_DefaultsAndActivity(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.SaveUser(ctx, &models.User{ID: "1", FirstName: "Ivan"}))

	u, err := s.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), u.Settings)

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordActivity(ctx, "1", true, at))
	require.NoError(t, s.RecordActivity(ctx, "1", false, at))

	u, err = s.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Statistics.TotalApplications)
	assert.Equal(t, 1, u.Statistics.SuccessfulApplications)
	require.NotNil(t, u.Statistics.LastActivity)
	assert.True(t, u.Statistics.LastActivity.Equal(at))

	assert.ErrorIs(t, s.RecordActivity(ctx, "nobody", true, at), ErrNotFound)
}

// ── File store ───────────────────────────────────────────────────────────────

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f, err := OpenFile(dir)
	require.NoError(t, err)
	require.NoError(t, f.SaveUser(ctx, &models.User{ID: "1", Email: "ivan@example.com"}))
	app, err := f.CreateApplication(ctx, newApp("1", "42"))
	require.NoError(t, err)
	app.Status = models.StatusSearched
	require.NoError(t, f.UpdateApplication(ctx, app, models.StatusPending))

	reopened, err := OpenFile(dir)
	require.NoError(t, err)

	got, err := reopened.FindApplication(ctx, "1", "42")
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
	assert.Equal(t, models.StatusSearched, got.Status)

	_, err = reopened.CreateApplication(ctx, newApp("1", "42"))
	var dup *DuplicateApplicationError
	assert.True(t, errors.As(err, &dup), "pair index restored")

	u, err := reopened.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", u.Email)
}
