package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:mcq.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/mcq_platform?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS subjects (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_subjects_name_ci ON subjects (lower(name));

CREATE TABLE IF NOT EXISTS questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  question_text TEXT NOT NULL CHECK (length(question_text) <= 2000),
  question_image TEXT,
  option_a TEXT NOT NULL,
  option_a_image TEXT,
  option_b TEXT NOT NULL,
  option_b_image TEXT,
  option_c TEXT NOT NULL,
  option_c_image TEXT,
  option_d TEXT NOT NULL,
  option_d_image TEXT,
  correct_option TEXT NOT NULL CHECK (correct_option IN ('A','B','C','D')),
  correct_count INTEGER NOT NULL DEFAULT 0,
  total_attempts INTEGER NOT NULL DEFAULT 0,
  difficulty TEXT NOT NULL DEFAULT 'unrated' CHECK (difficulty IN ('easy','medium','hard','unrated')),
  last_difficulty_update BIGINT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_questions_subject_difficulty ON questions (subject_id, difficulty);

CREATE TABLE IF NOT EXISTS tests (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  test_uid TEXT UNIQUE,
  subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE RESTRICT,
  difficulty_filter TEXT NOT NULL DEFAULT 'all' CHECK (difficulty_filter IN ('easy','medium','hard','mixed','all')),
  mode TEXT NOT NULL DEFAULT 'display' CHECK (mode IN ('display','interactive')),
  total_questions INTEGER NOT NULL CHECK (total_questions > 0),
  timer_mode TEXT NOT NULL DEFAULT 'per-question' CHECK (timer_mode IN ('per-question','total-test')),
  per_question_duration INTEGER,
  total_test_duration INTEGER,
  auto_advance INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','completed','discarded')),
  created_at BIGINT NOT NULL,
  expected_end_time BIGINT
);
CREATE INDEX IF NOT EXISTS ix_tests_subject_mode_status ON tests (subject_id, mode, status);

CREATE TABLE IF NOT EXISTS test_questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  test_id INTEGER NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  sequence INTEGER NOT NULL CHECK (sequence > 0),
  UNIQUE (test_id, question_id),
  UNIQUE (test_id, sequence)
);

CREATE TABLE IF NOT EXISTS test_responses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  test_id INTEGER NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  selected_option TEXT NOT NULL CHECK (selected_option IN ('A','B','C','D')),
  correct_option TEXT NOT NULL CHECK (correct_option IN ('A','B','C','D')),
  is_correct INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (test_id, question_id)
);
CREATE INDEX IF NOT EXISTS ix_test_responses_test_correct ON test_responses (test_id, is_correct);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS subjects (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_subjects_name_ci ON subjects (lower(name));

CREATE TABLE IF NOT EXISTS questions (
  id BIGSERIAL PRIMARY KEY,
  subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
  question_text TEXT NOT NULL CHECK (char_length(question_text) <= 2000),
  question_image TEXT,
  option_a TEXT NOT NULL,
  option_a_image TEXT,
  option_b TEXT NOT NULL,
  option_b_image TEXT,
  option_c TEXT NOT NULL,
  option_c_image TEXT,
  option_d TEXT NOT NULL,
  option_d_image TEXT,
  correct_option TEXT NOT NULL CHECK (correct_option IN ('A','B','C','D')),
  correct_count BIGINT NOT NULL DEFAULT 0,
  total_attempts BIGINT NOT NULL DEFAULT 0,
  difficulty TEXT NOT NULL DEFAULT 'unrated' CHECK (difficulty IN ('easy','medium','hard','unrated')),
  last_difficulty_update BIGINT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_questions_subject_difficulty ON questions (subject_id, difficulty);

CREATE TABLE IF NOT EXISTS tests (
  id BIGSERIAL PRIMARY KEY,
  test_uid TEXT UNIQUE,
  subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE RESTRICT,
  difficulty_filter TEXT NOT NULL DEFAULT 'all' CHECK (difficulty_filter IN ('easy','medium','hard','mixed','all')),
  mode TEXT NOT NULL DEFAULT 'display' CHECK (mode IN ('display','interactive')),
  total_questions INTEGER NOT NULL CHECK (total_questions > 0),
  timer_mode TEXT NOT NULL DEFAULT 'per-question' CHECK (timer_mode IN ('per-question','total-test')),
  per_question_duration INTEGER,
  total_test_duration INTEGER,
  auto_advance BOOLEAN NOT NULL DEFAULT FALSE,
  status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','completed','discarded')),
  created_at BIGINT NOT NULL,
  expected_end_time BIGINT
);
CREATE INDEX IF NOT EXISTS ix_tests_subject_mode_status ON tests (subject_id, mode, status);

CREATE TABLE IF NOT EXISTS test_questions (
  id BIGSERIAL PRIMARY KEY,
  test_id BIGINT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  sequence INTEGER NOT NULL CHECK (sequence > 0),
  UNIQUE (test_id, question_id),
  UNIQUE (test_id, sequence)
);

CREATE TABLE IF NOT EXISTS test_responses (
  id BIGSERIAL PRIMARY KEY,
  test_id BIGINT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  selected_option TEXT NOT NULL CHECK (selected_option IN ('A','B','C','D')),
  correct_option TEXT NOT NULL CHECK (correct_option IN ('A','B','C','D')),
  is_correct BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL,
  UNIQUE (test_id, question_id)
);
CREATE INDEX IF NOT EXISTS ix_test_responses_test_correct ON test_responses (test_id, is_correct);
`
