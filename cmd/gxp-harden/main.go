package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gxpmd/gxptrace/internal/config"
	"github.com/gxpmd/gxptrace/internal/logging"
	"github.com/gxpmd/gxptrace/internal/sweep"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	verbose bool
	logFile string
	logger  *logrus.Logger
	logSink io.Closer
	mode    config.RunMode

	// exitCode is set by commands that finish without a Go error
	exitCode = sweep.ExitOK
)

func main() {
	os.Exit(run())
}

// run executes the root command and returns the process exit code. The log
// file is closed on every path, since cobra skips post-run hooks on error.
func run() int {
	defer closeLogSink()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return sweep.ExitFatal
	}
	return exitCode
}

func closeLogSink() {
	if logSink == nil {
		return
	}
	if err := logSink.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing log file: %v\n", err)
	}
	logSink = nil
}

var rootCmd = &cobra.Command{
	Use:   "gxp-harden",
	Short: "GxP.MD traceability sweep",
	Long: `gxp-harden scans annotated source and test files, builds the
requirement -> user story -> specification -> code -> test graph, and checks
every requirement chain against the risk policy in GxP.MD.

Running without a subcommand performs a sweep.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode = config.DetectMode()

		quiet, _ := cmd.Flags().GetBool("quiet")
		jsonOut, _ := cmd.Flags().GetBool("json")

		logCfg := logging.DefaultConfig(verbose, mode.PrefersJSONLogs())
		logCfg.OutputFile = logFile
		if (quiet || jsonOut) && !verbose {
			logCfg.Level = logrus.WarnLevel
		}

		var err error
		logger, logSink, err = logging.New(logCfg)
		if err != nil {
			return err
		}
		logger.WithField("mode", mode.String()).Debug("Logger initialized")
		return nil
	},
	RunE: runSweep,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also append logs to this file")

	// Set custom version template
	rootCmd.SetVersionTemplate(`gxp-harden {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	addSweepFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(historyCmd)
}
