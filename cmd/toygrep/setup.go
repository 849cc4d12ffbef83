package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/internal/journal"
	"pkg.jsn.cam/toygrep/internal/master"
	"pkg.jsn.cam/toygrep/pkg/config"
	"pkg.jsn.cam/toygrep/pkg/observability"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

// runFlags are shared by the commands that drive a run
var runFlags struct {
	workers      int
	op           string
	pattern      string
	input        string
	limit        int
	overlap      bool
	pollInterval time.Duration
	statusAddr   string
	journalPath  string
}

func addRunFlags(cmd *cobra.Command) {
	d := config.Default().Run

	f := cmd.Flags()
	f.IntVarP(&runFlags.workers, "workers", "w", d.Workers, "number of workers")
	f.StringVar(&runFlags.op, "op", d.Op, "operation: search or wordcount")
	f.StringVarP(&runFlags.pattern, "pattern", "p", d.Pattern, "pattern to search for")
	f.StringVarP(&runFlags.input, "input", "i", d.Input, `corpus file, "-" for stdin`)
	f.IntVar(&runFlags.limit, "limit", d.Limit, "maximum matches per worker (0 = unbounded)")
	f.BoolVar(&runFlags.overlap, "overlap", d.Overlap, "overlap slices so matches across slice boundaries are found")
	f.DurationVar(&runFlags.pollInterval, "poll-interval", d.PollInterval, "master sleep when a loop iteration makes no progress")
	f.StringVar(&runFlags.statusAddr, "status-addr", d.StatusAddr, "serve run status over HTTP on this address")
	f.StringVar(&runFlags.journalPath, "journal", d.JournalPath, "record the run in this journal file")
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Run.Workers = runFlags.workers
	}
	if f.Changed("op") {
		cfg.Run.Op = runFlags.op
	}
	if f.Changed("pattern") {
		cfg.Run.Pattern = runFlags.pattern
	}
	if f.Changed("input") {
		cfg.Run.Input = runFlags.input
	}
	if f.Changed("limit") {
		cfg.Run.Limit = runFlags.limit
	}
	if f.Changed("overlap") {
		cfg.Run.Overlap = runFlags.overlap
	}
	if f.Changed("poll-interval") {
		cfg.Run.PollInterval = runFlags.pollInterval
	}
	if f.Changed("status-addr") {
		cfg.Run.StatusAddr = runFlags.statusAddr
	}
	if f.Changed("journal") {
		cfg.Run.JournalPath = runFlags.journalPath
	}
}

// setup loads configuration, lets apply override it from flags, and builds
// the logger. The caller should defer logger.Sync().
func setup(apply func(*config.Config)) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	if apply != nil {
		apply(cfg)
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	return cfg, logger, nil
}

func readCorpus(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read corpus: %w", err)
	}

	return string(data), nil
}

// runner wires the optional journal and status server around a master run
type runner struct {
	cfg    *config.Config
	log    *zap.Logger
	out    io.Writer
	status *master.StatusServer
	jrnl   *journal.Journal
}

func (r *runner) options() (master.Options, error) {
	opts := master.Options{
		Op:           protocol.Op(r.cfg.Run.Op),
		Pattern:      r.cfg.Run.Pattern,
		Limit:        r.cfg.Run.Limit,
		Overlap:      r.cfg.Run.Overlap,
		PollInterval: r.cfg.Run.PollInterval,
		Input:        r.cfg.Run.Input,
		RunID:        journal.NewRunID(),
		Reporters:    []master.Reporter{master.NewLineReporter(r.out)},
		Logger:       r.log,
	}

	if r.cfg.Run.JournalPath != "" {
		j, err := journal.Open(r.cfg.Run.JournalPath, r.log)
		if err != nil {
			return opts, err
		}
		r.jrnl = j
		opts.Reporters = append(opts.Reporters, master.NewJournalReporter(j))
	}

	return opts, nil
}

func (r *runner) startStatus(m *master.Master) error {
	if r.cfg.Run.StatusAddr == "" {
		return nil
	}

	r.status = master.NewStatusServer(m, r.log)
	_, err := r.status.Start(r.cfg.Run.StatusAddr)

	return err
}

func (r *runner) close() {
	if r.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := r.status.Shutdown(ctx); err != nil {
			r.log.Warn("Failed to stop status server", zap.Error(err))
		}
	}
	if r.jrnl != nil {
		if err := r.jrnl.Close(); err != nil {
			r.log.Warn("Failed to close journal", zap.Error(err))
		}
	}
}

// finish prints the elapsed time and turns failed tasks into an error
func (r *runner) finish(summary *master.Summary, runErr error) error {
	if summary != nil {
		fmt.Fprintf(r.out, "elapsed: %.3f\n", summary.Elapsed.Seconds())
	}
	if runErr != nil {
		return runErr
	}

	r.log.Info("Done",
		zap.String("run_id", summary.ID),
		zap.String("corpus", humanize.Bytes(uint64(summary.CorpusBytes))),
		zap.Int("matches", len(summary.Matches)),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed))

	return summary.Err()
}
