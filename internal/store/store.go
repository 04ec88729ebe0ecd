// Package store persists applications and user profiles.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-hrskip-automation/internal/models"
)

var ErrNotFound = errors.New("not found")

// ErrStatusConflict means the stored status is no longer the one the writer
// read; someone else moved the application first.
var ErrStatusConflict = errors.New("application status changed concurrently")

func statusConflict(id string, want, got models.ApplicationStatus) error {
	return fmt.Errorf("%w: %s is %s, expected %s", ErrStatusConflict, id, got, want)
}

// DuplicateApplicationError is returned when a (user, job) pair already has
// an application. The existing record is left untouched.
type DuplicateApplicationError struct {
	UserID     string
	JobID      string
	ExistingID string
}

func (e *DuplicateApplicationError) Error() string {
	return fmt.Sprintf("application for user %s and job %s already exists (%s)", e.UserID, e.JobID, e.ExistingID)
}

// Store is the persistence boundary. Implementations return copies; callers
// may mutate what they get back.
type Store interface {
	// CreateApplication inserts app if the (UserID, JobID) pair is free and
	// returns the stored record with ID and timestamps set.
	CreateApplication(ctx context.Context, app *models.Application) (*models.Application, error)
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	FindApplication(ctx context.Context, userID, jobID string) (*models.Application, error)
	// UpdateApplication replaces the record only while its stored status is
	// still from, and returns ErrStatusConflict otherwise.
	UpdateApplication(ctx context.Context, app *models.Application, from models.ApplicationStatus) error
	ListApplications(ctx context.Context, userID string) ([]*models.Application, error)
	// ListStale returns applications in one of statuses not updated since before.
	ListStale(ctx context.Context, statuses []models.ApplicationStatus, before time.Time) ([]*models.Application, error)
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)

	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	// RecordActivity bumps the user's application counters.
	RecordActivity(ctx context.Context, userID string, success bool, at time.Time) error
}

// StartOfDay is the daily-limit window start for t, in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
