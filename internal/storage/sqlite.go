package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gxpmd/gxptrace/internal/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStore implements HistoryStore using SQLite
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

var _ HistoryStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite history store
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// Enable foreign keys and WAL mode for better concurrency
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		root TEXT NOT NULL,
		annotated_files INTEGER NOT NULL,
		requirements INTEGER NOT NULL,
		complete INTEGER NOT NULL,
		partial INTEGER NOT NULL,
		missing INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sweep_issues (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		location TEXT NOT NULL,
		message TEXT NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES sweep_runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON sweep_runs(root, started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and all of its issues in one transaction
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, issues []models.Issue) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO sweep_runs
		(id, started_at, root, annotated_files, requirements, complete, partial,
		 missing, errors, warnings, failed, duration_ms)
		VALUES (:id, :started_at, :root, :annotated_files, :requirements, :complete, :partial,
		 :missing, :errors, :warnings, :failed, :duration_ms)
	`, run)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	query := `
		INSERT INTO sweep_issues (run_id, seq, kind, severity, location, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for i, issue := range issues {
		_, err := tx.ExecContext(ctx, query,
			run.ID, i, issue.Kind, issue.Severity, issue.Location, issue.Message)
		if err != nil {
			return fmt.Errorf("insert issue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"run_id": run.ID,
		"issues": len(issues),
	}).Debug("Sweep run recorded")
	return nil
}

// GetRun loads one run by id
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `SELECT * FROM sweep_runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first. An empty root lists all roots.
func (s *SQLiteStore) ListRuns(ctx context.Context, root string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT * FROM sweep_runs`
	args := []interface{}{}
	if root != "" {
		query += ` WHERE root = ?`
		args = append(args, root)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var runs []*Run
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetIssues returns a run's issues in recorded order
func (s *SQLiteStore) GetIssues(ctx context.Context, runID string) ([]models.Issue, error) {
	var issues []models.Issue
	err := s.db.SelectContext(ctx, &issues, `
		SELECT location, kind, severity, message
		FROM sweep_issues WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	return issues, nil
}
