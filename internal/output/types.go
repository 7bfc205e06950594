package output

import (
	"time"

	"github.com/gxpmd/gxptrace/internal/coverage"
	"github.com/gxpmd/gxptrace/internal/graph"
	"github.com/gxpmd/gxptrace/internal/models"
)

// FormatVersion is stamped into every artifact
const FormatVersion = "2.0.0"

// Artifact file names, written under the configured artifacts directory
const (
	MatrixFile = "traceability-matrix.json"
	GapFile    = "gap-analysis.json"
	StatusFile = "compliance-status.md"
)

// Report is everything one sweep produced, as consumed by the renderers
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Root        string

	Graph  *graph.Graph
	Chains coverage.Map

	AnnotatedSource int
	AnnotatedTest   int

	ValidationIssues []models.Issue
	OrphanIssues     []models.Issue
	CoverageIssues   []models.Issue
}

// Summary holds the headline counts of a report
type Summary struct {
	TotalRequirements int `json:"total_requirements"`
	CompleteChains    int `json:"complete_chains"`
	PartialChains     int `json:"partial_chains"`
	MissingChains     int `json:"missing_chains"`
	AnnotatedFiles    int `json:"annotated_files"`
	Errors            int `json:"errors"`
	Warnings          int `json:"warnings"`
}

// AllIssues returns validation, orphan and coverage issues in that order
func (r *Report) AllIssues() []models.Issue {
	all := make([]models.Issue, 0, len(r.ValidationIssues)+len(r.OrphanIssues)+len(r.CoverageIssues))
	all = append(all, r.ValidationIssues...)
	all = append(all, r.OrphanIssues...)
	return append(all, r.CoverageIssues...)
}

// Summary computes the headline counts
func (r *Report) Summary() Summary {
	all := r.AllIssues()
	return Summary{
		TotalRequirements: len(r.Chains),
		CompleteChains:    r.Chains.CountStatus(coverage.StatusComplete),
		PartialChains:     r.Chains.CountStatus(coverage.StatusPartial),
		MissingChains:     r.Chains.CountStatus(coverage.StatusMissing),
		AnnotatedFiles:    r.AnnotatedSource + r.AnnotatedTest,
		Errors:            models.CountSeverity(all, models.SeverityError),
		Warnings:          models.CountSeverity(all, models.SeverityWarning),
	}
}

// Failed reports whether any ERROR-severity issue exists
func (r *Report) Failed() bool {
	return r.Summary().Errors > 0
}

// nonNil keeps empty lists rendering as [] rather than null
func nonNil(issues []models.Issue) []models.Issue {
	if issues == nil {
		return []models.Issue{}
	}
	return issues
}
