package sweep

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	gxperrors "github.com/gxpmd/gxptrace/internal/errors"
	"github.com/gxpmd/gxptrace/internal/output"
	"github.com/gxpmd/gxptrace/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

var cleanProject = map[string]string{
	"GxP.MD":             "# Project policy\n",
	"src/auth.go":        "// @gxp-satisfies REQ-001\n// @gxp-implements SPEC-001\n// @gxp-risk LOW\npackage auth\n",
	"tests/auth_test.go": "// @gxp-verifies SPEC-001\n// @test-type OQ\n// @gxp-risk LOW\npackage auth\n",
	"README.txt":         "@gxp-satisfies REQ-009\n",
}

func newSweeper(t *testing.T, opts Options) *Sweeper {
	t.Helper()
	s, err := New(opts, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunMissingPolicyDocumentIsFatal(t *testing.T) {
	root := writeTree(t, map[string]string{"src/a.go": "package a\n"})
	s := newSweeper(t, Options{Root: root})

	result, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, gxperrors.IsFatal(err))
	assert.True(t, gxperrors.IsConfig(err))
	assert.Equal(t, ExitFatal, ExitCode(result, err))
}

func TestRunCleanProject(t *testing.T) {
	root := writeTree(t, cleanProject)
	s := newSweeper(t, Options{Root: root})

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, result.ConfigWarning)
	assert.False(t, result.Failed())
	assert.Equal(t, ExitOK, ExitCode(result, nil))

	report := result.Report
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, root, report.Root)
	assert.Equal(t, 1, report.AnnotatedSource)
	assert.Equal(t, 1, report.AnnotatedTest)
	require.Contains(t, report.Chains, "REQ-001")
	assert.True(t, report.Chains["REQ-001"].Covered)
	assert.Equal(t, 2, result.Extraction.Scanned)

	assert.Len(t, result.Artifacts, 3)
	for _, name := range []string{output.MatrixFile, output.GapFile, output.StatusFile} {
		assert.FileExists(t, filepath.Join(root, ".gxp", name))
	}
}

func TestRunReportsErrors(t *testing.T) {
	files := map[string]string{}
	for k, v := range cleanProject {
		files[k] = v
	}
	files["src/billing.go"] = "// @gxp-satisfies REQ-002\n// @gxp-risk HIGH\npackage billing\n"
	root := writeTree(t, files)

	result, err := newSweeper(t, Options{Root: root}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, ExitIssues, ExitCode(result, nil))

	var messages []string
	for _, issue := range result.Report.CoverageIssues {
		if issue.Location == "REQ-002" {
			messages = append(messages, issue.Message)
		}
	}
	assert.Contains(t, messages, "No tests found for this requirement chain")
}

func TestRunNoWrite(t *testing.T) {
	root := writeTree(t, cleanProject)

	result, err := newSweeper(t, Options{Root: root, NoWrite: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Artifacts)
	assert.NoDirExists(t, filepath.Join(root, ".gxp"))
}

func TestRunInvalidConfigFallsBackToDefaults(t *testing.T) {
	files := map[string]string{}
	for k, v := range cleanProject {
		files[k] = v
	}
	files["GxP.MD"] = "---\nscan:\n  workers: 999\n---\n# Policy\n"
	root := writeTree(t, files)

	result, err := newSweeper(t, Options{Root: root, NoWrite: true}).Run(context.Background())
	require.NoError(t, err)
	require.Error(t, result.ConfigWarning)
	assert.False(t, gxperrors.IsFatal(result.ConfigWarning))
	assert.Equal(t, 0, result.Config.Scan.Workers)
}

func TestRunCoverageSummary(t *testing.T) {
	files := map[string]string{}
	for k, v := range cleanProject {
		files[k] = v
	}
	files["coverage/coverage-summary.json"] = `{"src/auth.go": {"statements": {"pct": 41.5}}}`
	root := writeTree(t, files)

	result, err := newSweeper(t, Options{
		Root:         root,
		NoWrite:      true,
		CoveragePath: "coverage/coverage-summary.json",
	}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Report.CoverageIssues, 1)
	assert.Equal(t, "src/auth.go: coverage 41.5% < 60% threshold for LOW risk", result.Report.CoverageIssues[0].Message)
}

func TestRunMissingCoverageSummary(t *testing.T) {
	root := writeTree(t, cleanProject)

	_, err := newSweeper(t, Options{Root: root, NoWrite: true, CoveragePath: "nope.json"}).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, gxperrors.ErrorTypeFileSystem, gxperrors.GetType(err))
}

func TestRunUsesExtractionCache(t *testing.T) {
	root := writeTree(t, cleanProject)
	s := newSweeper(t, Options{Root: root, NoWrite: true, CachePath: "cache.db"})

	first, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, first.Extraction.CacheHits)

	second, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.Extraction.Scanned, second.Extraction.CacheHits)
	assert.Equal(t, first.Report.Summary(), second.Report.Summary())
}

func TestRunRecordsHistory(t *testing.T) {
	root := writeTree(t, cleanProject)
	s := newSweeper(t, Options{Root: root, NoWrite: true, HistoryPath: "history.db"})

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	store, err := storage.NewSQLiteStore(filepath.Join(root, "history.db"), quietLogger())
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), root, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.Report.RunID, runs[0].ID)
	assert.Equal(t, 1, runs[0].Requirements)
	assert.False(t, runs[0].Failed)
}

func TestRunFromReport(t *testing.T) {
	root := writeTree(t, cleanProject)
	result, err := newSweeper(t, Options{Root: root, NoWrite: true}).Run(context.Background())
	require.NoError(t, err)

	run := RunFromReport(result.Report, 1500*time.Millisecond)
	assert.Equal(t, result.Report.RunID, run.ID)
	assert.Equal(t, int64(1500), run.DurationMS)
	assert.Equal(t, 2, run.AnnotatedFiles)
	assert.Equal(t, 1, run.Complete)
}

func TestWatchRerunsOnChange(t *testing.T) {
	root := writeTree(t, cleanProject)
	s := newSweeper(t, Options{Root: root, NoWrite: true})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	results := make(chan *Result, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, 50*time.Millisecond, func(r *Result, err error) {
			if err != nil {
				return
			}
			select {
			case results <- r:
			default:
			}
		})
	}()

	first := <-results
	assert.False(t, first.Failed())

	// watches are added after the first sweep returns, so keep touching the
	// file until a re-run is observed
	billing := filepath.Join(root, "src", "billing.go")
	touch := time.NewTicker(300 * time.Millisecond)
	defer touch.Stop()

	for {
		require.NoError(t, os.WriteFile(billing,
			[]byte("// @gxp-satisfies REQ-002\n// @gxp-risk HIGH\npackage billing\n"), 0o644))

		select {
		case second := <-results:
			assert.True(t, second.Failed())
			assert.Contains(t, second.Report.Chains, "REQ-002")
			cancel()
			assert.NoError(t, <-done)
			return
		case <-touch.C:
		case <-ctx.Done():
			t.Fatal("no re-run after file change")
		}
	}
}
