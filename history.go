package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gracefulexit/journal"
	"gracefulexit/shutdown"
)

var errNoJournal = errors.New("no journal configured (set JOURNAL_PATH or journal.path)")

func newHistoryCmd(configPath *string) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded shutdown runs from the lifecycle journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(*configPath)
			if err != nil {
				return err
			}
			if cfg.JournalPath == "" {
				return errNoJournal
			}

			j, err := journal.Open(cfg.JournalPath, "", nil)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if runID != "" {
				return printRun(ctx, cmd.OutOrStdout(), j, runID)
			}
			return printRuns(ctx, cmd.OutOrStdout(), j, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show the events of a single run")
	return cmd
}

func printRuns(ctx context.Context, w io.Writer, j *journal.Journal, limit int) error {
	runs, err := j.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No shutdown runs recorded")
		return nil
	}

	color.New(color.FgCyan, color.Bold).Fprintf(w, "%-36s  %-19s  %-10s  %-11s  %s\n",
		"RUN", "STARTED", "DURATION", "OUTCOME", "ERRORS")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %-10s  ",
			r.RunID,
			r.StartedAt.Local().Format(time.DateTime),
			r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond),
		)
		outcomeColor(r.Outcome).Fprintf(w, "%-11s", outcomeLabel(r.Outcome))
		errs := color.New(color.FgHiBlack)
		if r.Errors > 0 {
			errs = color.New(color.FgRed)
		}
		errs.Fprintf(w, "  %d\n", r.Errors)
	}
	return nil
}

func printRun(ctx context.Context, w io.Writer, j *journal.Journal, runID string) error {
	entries, err := j.ByRun(ctx, runID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no events recorded for run %s", runID)
	}

	color.New(color.FgCyan, color.Bold).Fprintf(w, "Run %s\n", runID)
	start := entries[0].CreatedAt
	for _, e := range entries {
		color.New(color.FgHiBlack).Fprintf(w, "  +%-9s ", e.CreatedAt.Sub(start).Round(time.Millisecond))
		kindColor(e.Kind).Fprintf(w, "%-15s", e.Kind)
		if e.Callback != "" {
			fmt.Fprintf(w, " [%s]", e.Callback)
		}
		if e.Message != "" {
			fmt.Fprintf(w, " %s", e.Message)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case shutdown.EventBeforeExit.String():
		return "clean"
	case shutdown.EventTimeout.String():
		return "timeout"
	default:
		return "incomplete"
	}
}

func outcomeColor(outcome string) *color.Color {
	switch outcome {
	case shutdown.EventBeforeExit.String():
		return color.New(color.FgGreen)
	case shutdown.EventTimeout.String():
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}

func kindColor(kind string) *color.Color {
	switch kind {
	case shutdown.EventError.String(), shutdown.EventTimeout.String():
		return color.New(color.FgRed)
	case shutdown.EventBeforeExit.String():
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgCyan)
	}
}
