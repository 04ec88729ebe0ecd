package database

// Schema is applied by Migrate. JSONB columns hold the structured snapshots
// of models.Application and models.User.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	telegram_id BIGINT NOT NULL DEFAULT 0,
	username    TEXT NOT NULL DEFAULT '',
	first_name  TEXT NOT NULL DEFAULT '',
	last_name   TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	resume_path TEXT NOT NULL DEFAULT '',
	templates   JSONB NOT NULL DEFAULT '{}',
	settings    JSONB NOT NULL DEFAULT '{"auto_apply": false, "notifications": true, "max_applications_per_day": 5}',
	statistics  JSONB NOT NULL DEFAULT '{"total_applications": 0, "successful_applications": 0}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS applications (
	id                  TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	job_id              TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'pending',
	company             JSONB NOT NULL DEFAULT '{}',
	position            JSONB NOT NULL DEFAULT '{}',
	search_results      JSONB,
	application_details JSONB NOT NULL DEFAULT '{}',
	metadata            JSONB NOT NULL DEFAULT '{"source": "hh.ru", "priority": 1}',
	history             JSONB NOT NULL DEFAULT '[]',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, job_id)
);

ALTER TABLE applications ADD COLUMN IF NOT EXISTS history JSONB NOT NULL DEFAULT '[]';

CREATE INDEX IF NOT EXISTS applications_user_created_idx ON applications (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS applications_status_updated_idx ON applications (status, updated_at);
`
