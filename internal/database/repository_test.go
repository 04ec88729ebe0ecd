package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go-hrskip-automation/internal/models"
	"go-hrskip-automation/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Postgres only when TEST_DATABASE_URL is set.
func connect(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := ConnectDB(ctx, url)
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(ctx))
	t.Cleanup(repo.Close)
	return repo
}

func TestRepository_CreateIsCreateIfAbsent(t *testing.T) {
	repo := connect(t)
	ctx := context.Background()

	userID := "test-" + uuid.NewString()
	require.NoError(t, repo.SaveUser(ctx, &models.User{ID: userID, FirstName: "Ivan", Email: "ivan@example.com"}))

	v := models.Vacancy{ID: "42", Title: "Backend Engineer", Employer: models.Employer{Name: "Acme"}}
	first, err := repo.CreateApplication(ctx, models.NewApplication(userID, v))
	require.NoError(t, err)

	_, err = repo.CreateApplication(ctx, models.NewApplication(userID, v))
	var dup *store.DuplicateApplicationError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.ID, dup.ExistingID)

	got, err := repo.FindApplication(ctx, userID, "42")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "Acme", got.Company.Name)
	assert.Nil(t, got.SearchResults)

	email := "jobs@acme.example"
	got.Status = models.StatusSearched
	got.SearchResults = &models.DiscoveryResult{Found: true, ContactMethod: models.ContactEmail, Confidence: 90, Contacts: models.Contacts{Email: &email}}
	got.History = []models.StatusChange{{From: models.StatusPending, To: models.StatusSearched, Event: "search_recorded", At: time.Now().UTC()}}
	require.NoError(t, repo.UpdateApplication(ctx, got, models.StatusPending))

	again, err := repo.GetApplication(ctx, got.ID)
	require.NoError(t, err)
	require.NotNil(t, again.SearchResults)
	assert.Equal(t, 90, again.SearchResults.Confidence)
	require.Len(t, again.History, 1)
	assert.Equal(t, models.StatusSearched, again.History[0].To)

	stale := again.Clone()
	stale.Status = models.StatusApplied
	assert.ErrorIs(t, repo.UpdateApplication(ctx, stale, models.StatusPending), store.ErrStatusConflict)
	assert.ErrorIs(t, repo.UpdateApplication(ctx, &models.Application{ID: uuid.NewString()}, models.StatusPending), store.ErrNotFound)

	require.NoError(t, repo.RecordActivity(ctx, userID, true, time.Now()))
	u, err := repo.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Statistics.SuccessfulApplications)
	assert.Equal(t, models.DefaultSettings(), u.Settings)

	_, err = repo.GetApplication(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ── Parameter encoding (no database) ─────────────────────────────────────────

// encodeExec runs args through the same encoder the pool uses in
// QueryExecModeExec, where parameters carry no server-side type.
func encodeExec(t *testing.T, args []any) {
	t.Helper()
	var eqb pgx.ExtendedQueryBuilder
	require.NoError(t, eqb.Build(pgtype.NewMap(), nil, args))
	assert.Len(t, eqb.ParamValues, len(args))
}

func TestApplicationArgs_EncodeInExecMode(t *testing.T) {
	email := "jobs@acme.example"
	sent := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	app := models.NewApplication("1", models.Vacancy{ID: "42", Title: "Backend Engineer", Employer: models.Employer{Name: "Acme"}})
	app.ID = "app-1"
	app.Status = models.StatusApplied
	app.SearchResults = &models.DiscoveryResult{Found: true, ContactMethod: models.ContactEmail, Contacts: models.Contacts{Email: &email}}
	app.Details = models.ApplicationDetails{EmailSent: true, MessageID: "<m1>", SentAt: &sent}
	app.History = []models.StatusChange{{From: models.StatusSearched, To: models.StatusApplied, Event: "sent", At: sent}}
	app.CreatedAt, app.UpdatedAt = sent, sent

	args, err := insertApplicationArgs(app)
	require.NoError(t, err)
	encodeExec(t, args)
	assert.Equal(t, "applied", args[3])
	assert.JSONEq(t, `{"name":"Acme"}`, args[4].(string))
	assert.Contains(t, args[6].(string), email)

	args, err = updateApplicationArgs(app, sent, models.StatusSearched)
	require.NoError(t, err)
	encodeExec(t, args)
	assert.Equal(t, "searched", args[len(args)-1])
}

func TestApplicationArgs_NilSearchResultsAndHistory(t *testing.T) {
	app := models.NewApplication("1", models.Vacancy{ID: "42"})

	args, err := insertApplicationArgs(app)
	require.NoError(t, err)
	encodeExec(t, args)
	assert.Nil(t, args[6], "no search yet stores NULL")
	assert.Equal(t, "[]", args[9], "history column is NOT NULL")
}

func TestSaveUserArgs_EncodeInExecMode(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	u := &models.User{
		ID: "1", FirstName: "Ivan", Email: "ivan@example.com",
		Templates:  models.Templates{EmailSubject: "Hello"},
		Statistics: models.Statistics{TotalApplications: 2, LastActivity: &at},
	}

	args, err := saveUserArgs(u)
	require.NoError(t, err)
	encodeExec(t, args)
	assert.JSONEq(t, `{"auto_apply":false,"notifications":true,"max_applications_per_day":5}`, args[9].(string))

	raw, err := jsonb(u.Statistics)
	require.NoError(t, err)
	encodeExec(t, []any{u.ID, raw, at})
}
