package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gxpmd/gxptrace/internal/config"
	gxperrors "github.com/gxpmd/gxptrace/internal/errors"
	"github.com/gxpmd/gxptrace/internal/output"
	"github.com/gxpmd/gxptrace/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded sweeps, or show the issues of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().String("root", ".", "project root containing GxP.MD")
	historyCmd.Flags().String("history", "", "SQLite history database (overrides history.path)")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "print as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString("root")
	path, _ := cmd.Flags().GetString("history")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOut, _ := cmd.Flags().GetBool("json")

	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	if path == "" {
		cfg, err := config.Load(root)
		if err != nil && gxperrors.IsFatal(err) {
			return err
		}
		path = cfg.HistoryPath(root)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if path == "" {
		return gxperrors.ConfigErrorf("sweep history is disabled: set history.path in %s or pass --history", config.DocumentName)
	}

	store, err := storage.NewSQLiteStore(path, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := commandContext(cmd)
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		issues, err := store.GetIssues(ctx, run.ID)
		if err != nil {
			return err
		}
		if jsonOut {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{"run": run, "issues": issues})
		}
		fmt.Fprintf(w, "Run %s  %s  %s\n\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), outcome(run))
		for _, issue := range issues {
			fmt.Fprintf(w, "  %-7s [%s] %s\n", issue.Severity, issue.Location, issue.Message)
		}
		return nil
	}

	runs, err := store.ListRuns(ctx, root, limit)
	if err != nil {
		return err
	}
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No sweeps recorded")
		return nil
	}

	renderer := output.NewRenderer(w, mode)
	header := renderer.NewStyle().Bold(true).Padding(0, 1)
	cell := renderer.NewStyle().Padding(0, 1)
	failed := cell.Foreground(lipgloss.Color("1"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(renderer.NewStyle()).
		Headers("RUN", "STARTED", "REQUIREMENTS", "COMPLETE", "ERRORS", "WARNINGS", "OUTCOME").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case col == 6 && row < len(runs) && runs[row].Failed:
				return failed
			default:
				return cell
			}
		})
	for _, run := range runs {
		t.Row(
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(run.Requirements),
			fmt.Sprintf("%d/%d", run.Complete, run.Requirements),
			strconv.Itoa(run.Errors),
			strconv.Itoa(run.Warnings),
			outcome(run),
		)
	}
	if width := terminalWidth(w); width > 0 && lipgloss.Width(t.String()) > width {
		t.Width(width)
	}

	_, err = fmt.Fprintln(w, t.String())
	return err
}

// terminalWidth is the column count of w when it is a terminal, else 0
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func outcome(run *storage.Run) string {
	if run.Failed {
		return "FAIL"
	}
	return "PASS"
}
