package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pkg.jsn.cam/toygrep/internal/master"
	"pkg.jsn.cam/toygrep/internal/worker"
	"pkg.jsn.cam/toygrep/pkg/config"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
	"pkg.jsn.cam/toygrep/pkg/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a master and its workers in this process",
	Example: `  # search a file with four workers
  toygrep run -p love -i text.txt -w 4

  # count words from stdin
  cat text.txt | toygrep run --op wordcount`,
	Args: cobra.NoArgs,
	RunE: runLocal,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runLocal(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(func(c *config.Config) { applyRunFlags(cmd, c) })
	if err != nil {
		return err
	}
	defer log.Sync()

	corpus, err := readCorpus(cfg.Run.Input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	network := transport.NewMemNetwork(cfg.Run.Workers)
	defer network.Close()

	r := &runner{cfg: cfg, log: log, out: cmd.OutOrStdout()}
	defer r.close()

	opts, err := r.options()
	if err != nil {
		return err
	}

	m, err := master.New(network.Comm(protocol.MasterRank), opts)
	if err != nil {
		return err
	}
	if err := r.startStatus(m); err != nil {
		return err
	}

	log.Info("Master started", zap.Int("total", cfg.Run.Workers+1), zap.String("transport", "mem"))

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range transport.Workers(network.Comm(protocol.MasterRank)) {
		node := worker.NewNode(network.Comm(id), log)
		g.Go(func() error { return node.Start(gctx) })
	}

	summary, runErr := m.Run(gctx, corpus)
	if runErr != nil {
		// unblock workers still waiting on the master
		network.Close()
	}
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}

	return r.finish(summary, runErr)
}
