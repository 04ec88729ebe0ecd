package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-hrskip-automation/internal/models"

	"github.com/google/uuid"
)

// Memory is an in-process Store. Go maps are not safe for concurrent use, so
// every access goes through mu.
type Memory struct {
	mu     sync.RWMutex
	apps   map[string]*models.Application
	byPair map[string]string
	users  map[string]*models.User
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		apps:   make(map[string]*models.Application),
		byPair: make(map[string]string),
		users:  make(map[string]*models.User),
		now:    time.Now,
	}
}

func pairKey(userID, jobID string) string { return userID + "\x00" + jobID }

func (m *Memory) CreateApplication(ctx context.Context, app *models.Application) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(app.UserID, app.JobID)
	if id, ok := m.byPair[key]; ok {
		return nil, &DuplicateApplicationError{UserID: app.UserID, JobID: app.JobID, ExistingID: id}
	}

	c := app.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	m.apps[c.ID] = c
	m.byPair[key] = c.ID
	return c.Clone(), nil
}

func (m *Memory) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (m *Memory) FindApplication(ctx context.Context, userID, jobID string) (*models.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPair[pairKey(userID, jobID)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.apps[id].Clone(), nil
}

// UpdateApplication replaces the stored record if it is still in status
// from. The (user, job) identity cannot change.
func (m *Memory) UpdateApplication(ctx context.Context, app *models.Application, from models.ApplicationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.apps[app.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != from {
		return statusConflict(app.ID, from, cur.Status)
	}
	c := app.Clone()
	c.UserID, c.JobID, c.CreatedAt = cur.UserID, cur.JobID, cur.CreatedAt
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = m.now()
	}
	m.apps[c.ID] = c
	return nil
}

func (m *Memory) ListApplications(ctx context.Context, userID string) ([]*models.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Application, 0)
	for _, a := range m.apps {
		if a.UserID == userID {
			out = append(out, a.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) ListStale(ctx context.Context, statuses []models.ApplicationStatus, before time.Time) ([]*models.Application, error) {
	want := make(map[models.ApplicationStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Application, 0)
	for _, a := range m.apps {
		if want[a.Status] && a.UpdatedAt.Before(before) {
			out = append(out, a.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.apps {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// SaveUser inserts or replaces a user. A zero Settings value gets the
// documented defaults.
func (m *Memory) SaveUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *u
	if c.Settings == (models.Settings{}) {
		c.Settings = models.DefaultSettings()
	}
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.users[c.ID] = &c
	return nil
}

func (m *Memory) RecordActivity(ctx context.Context, userID string, success bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Statistics.TotalApplications++
	if success {
		u.Statistics.SuccessfulApplications++
	}
	u.Statistics.LastActivity = &at
	u.UpdatedAt = at
	return nil
}

// snapshot copies the full state for persistence.
func (m *Memory) snapshot() fileState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := fileState{
		Applications: make([]*models.Application, 0, len(m.apps)),
		Users:        make([]*models.User, 0, len(m.users)),
	}
	for _, a := range m.apps {
		st.Applications = append(st.Applications, a.Clone())
	}
	for _, u := range m.users {
		c := *u
		st.Users = append(st.Users, &c)
	}
	sortNewestFirst(st.Applications)
	sort.Slice(st.Users, func(i, j int) bool { return st.Users[i].ID < st.Users[j].ID })
	return st
}

func (m *Memory) restore(st fileState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range st.Applications {
		m.apps[a.ID] = a
		m.byPair[pairKey(a.UserID, a.JobID)] = a.ID
	}
	for _, u := range st.Users {
		m.users[u.ID] = u
	}
}

func sortNewestFirst(apps []*models.Application) {
	sort.SliceStable(apps, func(i, j int) bool {
		if apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].ID < apps[j].ID
		}
		return apps[i].CreatedAt.After(apps[j].CreatedAt)
	})
}
