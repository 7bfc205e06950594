package sweep

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gxpmd/gxptrace/internal/cache"
	"github.com/gxpmd/gxptrace/internal/config"
	"github.com/gxpmd/gxptrace/internal/coverage"
	gxperrors "github.com/gxpmd/gxptrace/internal/errors"
	"github.com/gxpmd/gxptrace/internal/graph"
	"github.com/gxpmd/gxptrace/internal/ingestion"
	"github.com/gxpmd/gxptrace/internal/output"
	"github.com/gxpmd/gxptrace/internal/storage"
	"github.com/gxpmd/gxptrace/internal/validation"
	"github.com/sirupsen/logrus"
)

// Exit codes returned by the CLI
const (
	ExitOK     = 0
	ExitIssues = 1
	ExitFatal  = 2
)

// Options controls a sweep. Empty paths fall back to GxP.MD settings.
type Options struct {
	Root         string
	CoveragePath string // Istanbul coverage-summary.json; empty skips threshold checks
	Workers      int    // 0 uses scan.workers, then NumCPU
	NoWrite      bool   // skip writing report artifacts
	CachePath    string
	HistoryPath  string
	NoCache      bool
	NoHistory    bool
}

// Result is the outcome of one sweep
type Result struct {
	Report        *output.Report
	Config        *config.Config
	ConfigWarning error // non-fatal configuration problem; defaults were used
	Walk          *ingestion.WalkStats
	Extraction    *ingestion.ExtractionResult
	GraphStats    graph.BuildStats
	Artifacts     []string
	Duration      time.Duration
}

// Failed reports whether any ERROR-severity issue was found
func (r *Result) Failed() bool {
	return r.Report.Failed()
}

// ExitCode maps a sweep outcome to the CLI exit code
func ExitCode(r *Result, err error) int {
	switch {
	case err != nil:
		return ExitFatal
	case r.Failed():
		return ExitIssues
	default:
		return ExitOK
	}
}

// Sweeper runs sweeps over one project root. The extraction cache and the
// history store are opened on first use and kept until Close.
type Sweeper struct {
	opts   Options
	root   string
	logger *logrus.Logger

	cache   *cache.Manager
	history storage.HistoryStore
	now     func() time.Time
}

// New creates a sweeper for opts.Root
func New(opts Options, logger *logrus.Logger) (*Sweeper, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, gxperrors.FileSystemErrorf(err, "resolve root %s", opts.Root)
	}
	return &Sweeper{
		opts:   opts,
		root:   root,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Root returns the absolute project root
func (s *Sweeper) Root() string {
	return s.root
}

// Close releases the cache and history store
func (s *Sweeper) Close() error {
	var firstErr error
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			firstErr = err
		}
		s.cache = nil
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.history = nil
	}
	return firstErr
}

// Run executes one sweep: load GxP.MD, discover files, extract annotations,
// build the graph, validate, detect orphans, analyze coverage, then write
// reports and record history. Traceability findings are returned in the
// report; err is reserved for fatal preconditions and I/O failures.
func (s *Sweeper) Run(ctx context.Context) (*Result, error) {
	start := s.now()
	runID := uuid.NewString()
	log := s.logger.WithFields(logrus.Fields{"run_id": runID, "root": s.root})

	cfg, err := config.Load(s.root)
	if err != nil && gxperrors.IsFatal(err) {
		return nil, err
	}
	result := &Result{Config: cfg, ConfigWarning: err}
	if err != nil {
		log.WithError(err).Warn("GxP.MD configuration unusable, using defaults")
	}

	walker, err := ingestion.NewWalker(s.root, cfg.Scan, s.logger)
	if err != nil {
		return nil, err
	}
	paths, walkStats, err := walker.Walk(ctx)
	if err != nil {
		return nil, err
	}
	result.Walk = walkStats

	var pct coverage.Percentages
	if s.opts.CoveragePath != "" {
		pct, err = coverage.LoadSummary(s.resolve(s.opts.CoveragePath))
		if err != nil {
			return nil, err
		}
	}

	extraction, err := s.orchestrator(cfg).Extract(ctx, paths)
	if err != nil {
		return nil, err
	}
	result.Extraction = extraction

	g := graph.Build(extraction.Records, graph.WithLogger(s.logger))
	result.GraphStats = g.Stats

	chains, coverageIssues := coverage.Analyze(g, cfg.RiskMatrix, pct,
		coverage.WithTestClassifier(ingestion.IsTestFile))

	report := &output.Report{
		RunID:            runID,
		GeneratedAt:      start.UTC(),
		Root:             s.root,
		Graph:            g,
		Chains:           chains,
		ValidationIssues: validation.Validate(extraction.Records),
		OrphanIssues:     validation.FindOrphans(g),
		CoverageIssues:   coverageIssues,
	}
	for _, rec := range extraction.Records {
		if rec.IsTest {
			report.AnnotatedTest++
		} else {
			report.AnnotatedSource++
		}
	}
	result.Report = report

	if !s.opts.NoWrite {
		written, err := output.WriteArtifacts(cfg.ArtifactsPath(s.root), report)
		if err != nil {
			return nil, err
		}
		result.Artifacts = written
	}

	result.Duration = s.now().Sub(start)
	s.record(ctx, cfg, result)

	summary := report.Summary()
	log.WithFields(logrus.Fields{
		"files":        extraction.Scanned,
		"annotated":    summary.AnnotatedFiles,
		"requirements": summary.TotalRequirements,
		"complete":     summary.CompleteChains,
		"errors":       summary.Errors,
		"warnings":     summary.Warnings,
		"duration":     result.Duration.String(),
	}).Info("Sweep completed")

	return result, nil
}

func (s *Sweeper) orchestrator(cfg *config.Config) *ingestion.Orchestrator {
	workers := s.opts.Workers
	if workers <= 0 {
		workers = cfg.Scan.Workers
	}
	opts := []ingestion.OrchestratorOption{ingestion.WithWorkers(workers)}

	if c := s.openCache(cfg); c != nil {
		opts = append(opts, ingestion.WithCache(c))
	}
	return ingestion.NewOrchestrator(s.root, s.logger, opts...)
}

// openCache returns nil when caching is disabled or the cache cannot be opened
func (s *Sweeper) openCache(cfg *config.Config) *cache.Manager {
	if s.cache != nil {
		return s.cache
	}
	if s.opts.NoCache {
		return nil
	}
	path := cfg.CachePath(s.root)
	if s.opts.CachePath != "" {
		path = s.resolve(s.opts.CachePath)
	}
	if path == "" {
		return nil
	}

	c, err := cache.Open(path, s.logger)
	if err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("Extraction cache unavailable, continuing without it")
		return nil
	}
	s.cache = c
	return c
}

// record saves the run to the history store. Failures are logged, not returned.
func (s *Sweeper) record(ctx context.Context, cfg *config.Config, result *Result) {
	if s.opts.NoHistory {
		return
	}
	if s.history == nil {
		path := cfg.HistoryPath(s.root)
		if s.opts.HistoryPath != "" {
			path = s.resolve(s.opts.HistoryPath)
		}
		if path == "" {
			return
		}
		store, err := storage.NewSQLiteStore(path, s.logger)
		if err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Sweep history unavailable")
			return
		}
		s.history = store
	}

	if err := s.history.SaveRun(ctx, RunFromReport(result.Report, result.Duration), result.Report.AllIssues()); err != nil {
		s.logger.WithError(gxperrors.StorageError(err, "save sweep run")).Warn("Failed to record sweep history")
	}
}

func (s *Sweeper) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.root, path)
}

// RunFromReport summarizes a report for the history store
func RunFromReport(r *output.Report, duration time.Duration) *storage.Run {
	summary := r.Summary()
	return &storage.Run{
		ID:             r.RunID,
		StartedAt:      r.GeneratedAt,
		Root:           r.Root,
		AnnotatedFiles: summary.AnnotatedFiles,
		Requirements:   summary.TotalRequirements,
		Complete:       summary.CompleteChains,
		Partial:        summary.PartialChains,
		Missing:        summary.MissingChains,
		Errors:         summary.Errors,
		Warnings:       summary.Warnings,
		Failed:         summary.Errors > 0,
		DurationMS:     duration.Milliseconds(),
	}
}
