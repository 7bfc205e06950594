package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gxpmd/gxptrace/internal/annotation"
	"github.com/gxpmd/gxptrace/internal/config"
	"github.com/gxpmd/gxptrace/internal/coverage"
	"github.com/gxpmd/gxptrace/internal/graph"
	"github.com/gxpmd/gxptrace/internal/models"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	src := annotation.Extract("src/auth.go", "@gxp-satisfies REQ-001\n@gxp-implements SPEC-001\n@gxp-risk LOW", false)
	test := annotation.Extract("tests/auth.test.ts", "@gxp-verifies SPEC-001\n@test-type OQ\n@gxp-risk LOW", true)
	require.NotNil(t, src)
	require.NotNil(t, test)

	return &Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Root:        "/repo",
		Graph:       graph.Build([]*annotation.Record{src, test}),
		Chains: coverage.Map{
			"REQ-001": {
				Requirement:    "REQ-001",
				Risk:           models.RiskLow,
				Covered:        true,
				Tests:          []string{"tests/auth.test.ts"},
				Specifications: []string{"SPEC-001"},
				SourceFiles:    []string{"src/auth.go"},
				UserStories:    []string{},
				Tiers:          []models.Tier{models.TierOQ},
				Status:         coverage.StatusComplete,
			},
			"REQ-002": {
				Requirement:    "REQ-002",
				Risk:           models.RiskHigh,
				Tests:          []string{},
				Specifications: []string{},
				SourceFiles:    []string{"src/b.go"},
				UserStories:    []string{},
				Status:         coverage.StatusPartial,
			},
		},
		AnnotatedSource: 2,
		AnnotatedTest:   1,
		ValidationIssues: []models.Issue{
			{Location: "src/c.go", Kind: models.KindValidation, Severity: models.SeverityWarning, Message: "Unknown tag"},
		},
		CoverageIssues: []models.Issue{
			{Location: "REQ-002", Kind: models.KindCoverage, Severity: models.SeverityError, Message: "No tests found for this requirement chain"},
		},
	}
}

func TestReportSummary(t *testing.T) {
	r := sampleReport(t)
	s := r.Summary()

	assert.Equal(t, Summary{
		TotalRequirements: 2,
		CompleteChains:    1,
		PartialChains:     1,
		MissingChains:     0,
		AnnotatedFiles:    3,
		Errors:            1,
		Warnings:          1,
	}, s)
	assert.True(t, r.Failed())
	assert.Len(t, r.AllIssues(), 2)

	r.CoverageIssues = nil
	assert.False(t, r.Failed())
}

func TestQuietFormatter(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *Report)
		expected string
	}{
		{
			name:     "errors present",
			mutate:   func(r *Report) {},
			expected: "FAIL 1 errors, 1 warnings\nRun 'gxp-harden sweep' for details\n",
		},
		{
			name:     "clean",
			mutate:   func(r *Report) { r.CoverageIssues = nil },
			expected: "PASS 1/2 chains complete, 1 warnings\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleReport(t)
			tt.mutate(r)

			var buf bytes.Buffer
			require.NoError(t, (&QuietFormatter{}).Format(r, &buf))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestStandardFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&StandardFormatter{}).Format(sampleReport(t), &buf))
	out := buf.String()

	assert.Contains(t, out, "GxP.MD COMPLIANCE SWEEP COMPLETE")
	assert.Contains(t, out, "  Requirements:     2\n")
	assert.Contains(t, out, "  Complete chains:  1/2\n")
	assert.Contains(t, out, "  Errors:           1\n")
	assert.Contains(t, out, "  Warnings:         1\n")
	assert.Contains(t, out, "  Annotated files:  3\n")
	assert.Contains(t, out, "ERRORS:\n  [REQ-002] No tests found for this requirement chain\n")
	assert.NotContains(t, out, "Unknown tag")
	assert.NotContains(t, out, "\033[")
}

func TestStandardFormatterColor(t *testing.T) {
	var buf bytes.Buffer
	renderer := lipgloss.NewRenderer(&buf)
	renderer.SetColorProfile(termenv.ANSI)

	require.NoError(t, (&StandardFormatter{Renderer: renderer}).Format(sampleReport(t), &buf))
	out := buf.String()

	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, renderer.NewStyle().Foreground(lipgloss.Color("1")).Render("ERRORS:"))
	assert.Contains(t, out, renderer.NewStyle().Bold(true).Render("GxP.MD COMPLIANCE SWEEP COMPLETE"))
}

func TestNewRendererPlainInCIMode(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewRenderer(&buf, config.ModeCI)
	assert.Equal(t, termenv.Ascii, renderer.ColorProfile())

	require.NoError(t, NewFormatter(VerbosityStandard, renderer).Format(sampleReport(t), &buf))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestNewRendererHonoursNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	renderer := NewRenderer(&buf, config.ModeInteractive)

	require.NoError(t, NewFormatter(VerbosityStandard, renderer).Format(sampleReport(t), &buf))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestNewFormatter(t *testing.T) {
	renderer := lipgloss.NewRenderer(&bytes.Buffer{})
	assert.IsType(t, &QuietFormatter{}, NewFormatter(VerbosityQuiet, renderer))
	assert.IsType(t, &JSONFormatter{}, NewFormatter(VerbosityJSON, renderer))
	assert.Equal(t, &StandardFormatter{Renderer: renderer}, NewFormatter(VerbosityStandard, renderer))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(sampleReport(t), &buf))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Contains(t, doc, "traceability_matrix")
	assert.Contains(t, doc, "gap_analysis")

	var s Summary
	require.NoError(t, json.Unmarshal(doc["summary"], &s))
	assert.Equal(t, 1, s.Errors)
}

func TestBuildMatrix(t *testing.T) {
	m := BuildMatrix(sampleReport(t))

	assert.Equal(t, "2026-03-01T12:00:00Z", m.GeneratedAt)
	assert.Equal(t, "2.0.0", m.Version)
	assert.Equal(t, "/repo", m.ProjectRoot)
	require.Len(t, m.Chains, 2)
	assert.Equal(t, "REQ-001", m.Chains[0].Requirement)
	assert.Equal(t, MatrixSummary{TotalRequirements: 2, CompleteChains: 1, PartialChains: 1}, m.Summary)

	var ids []string
	for _, n := range m.Graph.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Contains(t, ids, "REQ-001")
	assert.Contains(t, ids, "SPEC-001")
	assert.NotEmpty(t, m.Graph.Edges)
}

func TestBuildMatrixWithoutGraph(t *testing.T) {
	r := sampleReport(t)
	r.Graph = nil

	data, err := json.Marshal(BuildMatrix(r))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"graph":{"nodes":[],"edges":[]}`)
}

func TestBuildGapAnalysisRendersEmptyLists(t *testing.T) {
	gaps := BuildGapAnalysis(sampleReport(t))
	assert.Equal(t, 2, gaps.TotalIssues)
	assert.Equal(t, 1, gaps.Errors)
	assert.Equal(t, 1, gaps.Warnings)

	data, err := json.Marshal(gaps)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"orphan_issues":[]`)
}

func TestComplianceStatus(t *testing.T) {
	md := ComplianceStatus(sampleReport(t))

	assert.True(t, strings.HasPrefix(md, "# Compliance Status Report\n"))
	assert.Contains(t, md, "Generated: 2026-03-01 12:00:00 UTC")
	assert.Contains(t, md, "| Complete chains | 1/2 |")
	assert.Contains(t, md, "| HIGH | 1 | 0/1 |")
	assert.Contains(t, md, "| LOW | 1 | 1/1 |")
	assert.Contains(t, md, "## Errors\n\n- **REQ-002**: No tests found for this requirement chain\n")
	assert.Contains(t, md, "## Warnings\n\n- **src/c.go**: Unknown tag\n")
	assert.Contains(t, md, "### REQ-001 [PASS]")
	assert.Contains(t, md, "### REQ-002 [PARTIAL]")
	assert.Contains(t, md, "- **Tiers**: OQ")
	assert.Contains(t, md, "- **Test Files**: none")
	assert.Contains(t, md, "## Sign-off")
}

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".gxp")

	written, err := WriteArtifacts(dir, sampleReport(t))
	require.NoError(t, err)
	assert.Len(t, written, 3)

	for _, name := range []string{MatrixFile, GapFile, StatusFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotZero(t, info.Size(), name)
	}

	data, err := os.ReadFile(filepath.Join(dir, MatrixFile))
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "run-1", m["run_id"])
	assert.Equal(t, "2.0.0", m["gxpmd_version"])
}

func TestWriteArtifactsUnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := WriteArtifacts(filepath.Join(blocker, "out"), sampleReport(t))
	assert.Error(t, err)
}
