package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-hrskip-automation/internal/models"
	"go-hrskip-automation/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres-backed store.Store.
type Repository struct {
	db *pgxpool.Pool
}

var _ store.Store = (*Repository)(nil)

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// Transaction-mode poolers (PgBouncer) break on cached prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// Migrate creates the tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// ---------------- APPLICATION OPERATIONS ----------------

const applicationColumns = `id, user_id, job_id, status, company, position, search_results,
	application_details, metadata, history, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(row scanner) (*models.Application, error) {
	var a models.Application
	err := row.Scan(&a.ID, &a.UserID, &a.JobID, &a.Status, &a.Company, &a.Position, &a.SearchResults,
		&a.Details, &a.Metadata, &a.History, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// jsonb renders v for a $N::jsonb parameter. The pool runs in
// QueryExecModeExec, where pgx has no encode plan for plain structs.
func jsonb(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return string(data), nil
}

// applicationJSON holds the JSONB columns of an application, already encoded.
type applicationJSON struct {
	company, position, details, metadata, history string
	searchResults                                 any // nil stores SQL NULL
}

func encodeApplication(a *models.Application) (applicationJSON, error) {
	var (
		out applicationJSON
		err error
	)
	if out.company, err = jsonb(a.Company); err != nil {
		return out, err
	}
	if out.position, err = jsonb(a.Position); err != nil {
		return out, err
	}
	if out.details, err = jsonb(a.Details); err != nil {
		return out, err
	}
	if out.metadata, err = jsonb(a.Metadata); err != nil {
		return out, err
	}
	history := a.History
	if history == nil {
		history = []models.StatusChange{}
	}
	if out.history, err = jsonb(history); err != nil {
		return out, err
	}
	if a.SearchResults != nil {
		sr, err := jsonb(a.SearchResults)
		if err != nil {
			return out, err
		}
		out.searchResults = sr
	}
	return out, nil
}

const insertApplicationSQL = `
	INSERT INTO applications (` + applicationColumns + `)
	VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb, $8::jsonb, $9::jsonb, $10::jsonb, $11, $12)
	ON CONFLICT (user_id, job_id) DO NOTHING
	RETURNING id`

func insertApplicationArgs(c *models.Application) ([]any, error) {
	j, err := encodeApplication(c)
	if err != nil {
		return nil, err
	}
	return []any{c.ID, c.UserID, c.JobID, string(c.Status), j.company, j.position, j.searchResults,
		j.details, j.metadata, j.history, c.CreatedAt, c.UpdatedAt}, nil
}

const updateApplicationSQL = `
	UPDATE applications
	SET status = $2, company = $3::jsonb, position = $4::jsonb, search_results = $5::jsonb,
	    application_details = $6::jsonb, metadata = $7::jsonb, history = $8::jsonb, updated_at = $9
	WHERE id = $1 AND status = $10`

func updateApplicationArgs(app *models.Application, updatedAt time.Time, from models.ApplicationStatus) ([]any, error) {
	j, err := encodeApplication(app)
	if err != nil {
		return nil, err
	}
	return []any{app.ID, string(app.Status), j.company, j.position, j.searchResults,
		j.details, j.metadata, j.history, updatedAt, string(from)}, nil
}

// CreateApplication relies on the (user_id, job_id) unique constraint, so two
// racing inserts leave exactly one row.
func (r *Repository) CreateApplication(ctx context.Context, app *models.Application) (*models.Application, error) {
	c := app.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	args, err := insertApplicationArgs(c)
	if err != nil {
		return nil, err
	}

	var id string
	err = r.db.QueryRow(ctx, insertApplicationSQL, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		dup := &store.DuplicateApplicationError{UserID: c.UserID, JobID: c.JobID}
		if existing, ferr := r.FindApplication(ctx, c.UserID, c.JobID); ferr == nil {
			dup.ExistingID = existing.ID
		}
		return nil, dup
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert application: %w", err)
	}
	return c, nil
}

func (r *Repository) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	app, err := scanApplication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

func (r *Repository) FindApplication(ctx context.Context, userID, jobID string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 AND job_id = $2`
	app, err := scanApplication(r.db.QueryRow(ctx, query, userID, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return app, nil
}

// UpdateApplication writes app only while the row is still in status from.
func (r *Repository) UpdateApplication(ctx context.Context, app *models.Application, from models.ApplicationStatus) error {
	updatedAt := app.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	args, err := updateApplicationArgs(app, updatedAt, from)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, updateApplicationSQL, args...)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM applications WHERE id = $1`, app.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read application status: %w", err)
	}
	return fmt.Errorf("%w: %s is %s, expected %s", store.ErrStatusConflict, app.ID, current, from)
}

func (r *Repository) ListApplications(ctx context.Context, userID string) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 ORDER BY created_at DESC, id`
	return r.queryApplications(ctx, query, userID)
}

func (r *Repository) ListStale(ctx context.Context, statuses []models.ApplicationStatus, before time.Time) ([]*models.Application, error) {
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}
	query := `SELECT ` + applicationColumns + ` FROM applications
		WHERE status = ANY($1) AND updated_at < $2 ORDER BY created_at DESC, id`
	return r.queryApplications(ctx, query, raw, before)
}

func (r *Repository) queryApplications(ctx context.Context, query string, args ...any) ([]*models.Application, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func (r *Repository) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM applications WHERE user_id = $1 AND created_at >= $2`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return n, nil
}

// ---------------- USER OPERATIONS ----------------

func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, telegram_id, username, first_name, last_name, email, phone, resume_path,
		       templates, settings, statistics, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.ResumePath,
			&u.Templates, &u.Settings, &u.Statistics, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

const saveUserSQL = `
	INSERT INTO users (id, telegram_id, username, first_name, last_name, email, phone, resume_path,
	                   templates, settings, statistics)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11::jsonb)
	ON CONFLICT (id) DO UPDATE SET
		telegram_id = EXCLUDED.telegram_id, username = EXCLUDED.username,
		first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		email = EXCLUDED.email, phone = EXCLUDED.phone, resume_path = EXCLUDED.resume_path,
		templates = EXCLUDED.templates, settings = EXCLUDED.settings, updated_at = now()`

func saveUserArgs(u *models.User) ([]any, error) {
	settings := u.Settings
	if settings == (models.Settings{}) {
		settings = models.DefaultSettings()
	}
	templates, err := jsonb(u.Templates)
	if err != nil {
		return nil, err
	}
	settingsJSON, err := jsonb(settings)
	if err != nil {
		return nil, err
	}
	stats, err := jsonb(u.Statistics)
	if err != nil {
		return nil, err
	}
	return []any{u.ID, u.TelegramID, u.Username, u.FirstName, u.LastName, u.Email, u.Phone, u.ResumePath,
		templates, settingsJSON, stats}, nil
}

// SaveUser upserts the profile. Statistics are owned by RecordActivity and
// are only written on insert.
func (r *Repository) SaveUser(ctx context.Context, u *models.User) error {
	args, err := saveUserArgs(u)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, saveUserSQL, args...); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *Repository) RecordActivity(ctx context.Context, userID string, success bool, at time.Time) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var stats models.Statistics
		err := tx.QueryRow(ctx, `SELECT statistics FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&stats)
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read user statistics: %w", err)
		}

		stats.TotalApplications++
		if success {
			stats.SuccessfulApplications++
		}
		stats.LastActivity = &at

		raw, err := jsonb(stats)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE users SET statistics = $2::jsonb, updated_at = $3 WHERE id = $1`, userID, raw, at)
		if err != nil {
			return fmt.Errorf("failed to update user statistics: %w", err)
		}
		return nil
	})
}
