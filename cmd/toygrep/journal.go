package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pkg.jsn.cam/toygrep/internal/journal"
	"pkg.jsn.cam/toygrep/pkg/config"
)

var journalFlags struct {
	path  string
	limit int
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect recorded runs",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

func init() {
	journalCmd.PersistentFlags().StringVar(&journalFlags.path, "journal", "", "journal file (default: run.journal_path from config)")
	journalListCmd.Flags().IntVarP(&journalFlags.limit, "limit", "n", 20, "maximum runs to list (0 = all)")

	journalCmd.AddCommand(journalListCmd, journalShowCmd)
	rootCmd.AddCommand(journalCmd)
}

func openJournal(cmd *cobra.Command) (*journal.Journal, error) {
	cfg, log, err := setup(func(c *config.Config) {
		if cmd.Flags().Changed("journal") {
			c.Run.JournalPath = journalFlags.path
		}
	})
	if err != nil {
		return nil, err
	}
	if cfg.Run.JournalPath == "" {
		return nil, errors.New("no journal configured: pass --journal or set run.journal_path")
	}

	return journal.Open(cfg.Run.JournalPath, log)
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.List(journalFlags.limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	fmt.Fprintf(out, "%-36s %-10s %-10s %-8s %-10s %-16s %s\n",
		"RUN ID", "STATUS", "OP", "WORKERS", "SIZE", "STARTED", "ELAPSED")
	for _, run := range runs {
		fmt.Fprintf(out, "%-36s %-10s %-10s %-8d %-10s %-16s %s\n",
			run.ID,
			run.Status,
			run.Op,
			run.Workers,
			humanize.Bytes(uint64(run.CorpusBytes)),
			humanize.Time(run.StartedAt),
			run.Elapsed.Round(time.Millisecond))
	}

	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run Details:\n")
	fmt.Fprintf(out, "  ID:       %s\n", run.ID)
	fmt.Fprintf(out, "  Status:   %s\n", run.Status)
	fmt.Fprintf(out, "  Op:       %s\n", run.Op)
	if run.Pattern != "" {
		fmt.Fprintf(out, "  Pattern:  %q\n", run.Pattern)
	}
	if run.Input != "" {
		fmt.Fprintf(out, "  Input:    %s\n", run.Input)
	}
	fmt.Fprintf(out, "  Corpus:   %s\n", humanize.Bytes(uint64(run.CorpusBytes)))
	fmt.Fprintf(out, "  Workers:  %d\n", run.Workers)
	fmt.Fprintf(out, "  Started:  %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(out, "  Finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "  Elapsed:  %s\n", run.Elapsed.Round(time.Millisecond))
	}
	if run.Error != "" {
		fmt.Fprintf(out, "  Error:    %s\n", run.Error)
	}

	if len(run.Tasks) == 0 {
		return nil
	}

	fmt.Fprintf(out, "\nTasks (%d, %d failed):\n", len(run.Tasks), run.Failed())
	fmt.Fprintf(out, "  %-36s %-7s %-20s %s\n", "TASK ID", "WORKER", "SLICE", "RESULT")
	for _, t := range run.Tasks {
		result := fmt.Sprintf("%d matches", t.Matches)
		switch {
		case t.Error != "":
			result = "failed: " + t.Error
		case run.Op == "wordcount":
			result = fmt.Sprintf("%d distinct words", t.Words)
		}
		fmt.Fprintf(out, "  %-36s %-7d %-20s %s\n",
			t.TaskID, t.WorkerID, fmt.Sprintf("[%d, %d)", t.Slice.Begin, t.Slice.End), result)
	}

	return nil
}
