package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gxpmd/gxptrace/internal/ingestion"
	"github.com/gxpmd/gxptrace/internal/output"
	"github.com/gxpmd/gxptrace/internal/sweep"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Check every requirement chain against the GxP.MD risk policy",
	Long: `Scans the project, writes traceability-matrix.json, gap-analysis.json
and compliance-status.md to the artifacts directory, and prints a summary.

Exit codes:
  0  no ERROR issues
  1  ERROR issues found
  2  GxP.MD missing or another fatal failure`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	addSweepFlags(sweepCmd)
}

func addSweepFlags(cmd *cobra.Command) {
	cmd.Flags().String("root", ".", "project root containing GxP.MD")
	cmd.Flags().String("coverage", "", "Istanbul coverage-summary.json for threshold checks")
	cmd.Flags().Bool("json", false, "print the full report as JSON")
	cmd.Flags().Bool("quiet", false, "print a one-line summary")
	cmd.Flags().Int("workers", 0, "parallel file readers (default: scan.workers, then CPU count)")
	cmd.Flags().Bool("no-write", false, "do not write report artifacts")
	cmd.Flags().String("history", "", "SQLite database recording each sweep (overrides history.path)")
	cmd.Flags().String("cache", "", "extraction cache file (overrides cache.path)")
	cmd.Flags().Bool("no-cache", false, "disable the extraction cache")
	cmd.Flags().Bool("watch", false, "re-run the sweep whenever a scanned file changes")

	cmd.MarkFlagsMutuallyExclusive("quiet", "json")
	cmd.MarkFlagsMutuallyExclusive("cache", "no-cache")
}

func runSweep(cmd *cobra.Command, args []string) error {
	opts := sweep.Options{}
	opts.Root, _ = cmd.Flags().GetString("root")
	opts.CoveragePath, _ = cmd.Flags().GetString("coverage")
	opts.Workers, _ = cmd.Flags().GetInt("workers")
	opts.NoWrite, _ = cmd.Flags().GetBool("no-write")
	opts.HistoryPath, _ = cmd.Flags().GetString("history")
	opts.CachePath, _ = cmd.Flags().GetString("cache")
	opts.NoCache, _ = cmd.Flags().GetBool("no-cache")
	watch, _ := cmd.Flags().GetBool("watch")

	quiet, _ := cmd.Flags().GetBool("quiet")
	jsonOut, _ := cmd.Flags().GetBool("json")
	level := output.VerbosityStandard
	switch {
	case quiet:
		level = output.VerbosityQuiet
	case jsonOut:
		level = output.VerbosityJSON
	}
	formatter := output.NewFormatter(level, output.NewRenderer(cmd.OutOrStdout(), mode))

	sweeper, err := sweep.New(opts, logger)
	if err != nil {
		return err
	}
	defer sweeper.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	present := func(result *sweep.Result, err error) {
		if err != nil {
			logger.WithError(err).Error("Sweep failed")
			exitCode = sweep.ExitFatal
			return
		}
		if err := formatter.Format(result.Report, cmd.OutOrStdout()); err != nil {
			logger.WithError(err).Warn("Failed to print report")
		}
		for _, path := range result.Artifacts {
			logger.WithField("path", path).Debug("Wrote artifact")
		}
		exitCode = sweep.ExitCode(result, nil)
	}

	if watch {
		return sweeper.Watch(ctx, ingestion.DefaultDebounce, present)
	}

	result, err := sweeper.Run(ctx)
	if err != nil {
		return err
	}
	present(result, nil)
	return nil
}

// commandContext returns cmd's context, or Background when cobra has none
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
