package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gxpmd/gxptrace/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Run summarizes one recorded sweep
type Run struct {
	ID             string    `db:"id" json:"id"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	Root           string    `db:"root" json:"root"`
	AnnotatedFiles int       `db:"annotated_files" json:"annotated_files"`
	Requirements   int       `db:"requirements" json:"requirements"`
	Complete       int       `db:"complete" json:"complete"`
	Partial        int       `db:"partial" json:"partial"`
	Missing        int       `db:"missing" json:"missing"`
	Errors         int       `db:"errors" json:"errors"`
	Warnings       int       `db:"warnings" json:"warnings"`
	Failed         bool      `db:"failed" json:"failed"`
	DurationMS     int64     `db:"duration_ms" json:"duration_ms"`
}

// HistoryStore records sweep outcomes so compliance trends can be audited
type HistoryStore interface {
	SaveRun(ctx context.Context, run *Run, issues []models.Issue) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, root string, limit int) ([]*Run, error)
	GetIssues(ctx context.Context, runID string) ([]models.Issue, error)

	// Close connection
	Close() error
}
