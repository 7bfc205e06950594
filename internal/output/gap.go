package output

import (
	"time"

	"github.com/gxpmd/gxptrace/internal/models"
)

// GapAnalysis is the gap-analysis.json document
type GapAnalysis struct {
	GeneratedAt      string         `json:"generated_at"`
	Version          string         `json:"gxpmd_version"`
	RunID            string         `json:"run_id"`
	TotalIssues      int            `json:"total_issues"`
	Errors           int            `json:"errors"`
	Warnings         int            `json:"warnings"`
	ValidationIssues []models.Issue `json:"validation_issues"`
	OrphanIssues     []models.Issue `json:"orphan_issues"`
	CoverageIssues   []models.Issue `json:"coverage_issues"`
}

// BuildGapAnalysis assembles the gap analysis document
func BuildGapAnalysis(r *Report) *GapAnalysis {
	s := r.Summary()
	return &GapAnalysis{
		GeneratedAt:      r.GeneratedAt.UTC().Format(time.RFC3339),
		Version:          FormatVersion,
		RunID:            r.RunID,
		TotalIssues:      len(r.AllIssues()),
		Errors:           s.Errors,
		Warnings:         s.Warnings,
		ValidationIssues: nonNil(r.ValidationIssues),
		OrphanIssues:     nonNil(r.OrphanIssues),
		CoverageIssues:   nonNil(r.CoverageIssues),
	}
}
