package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/internal/master"
	"pkg.jsn.cam/toygrep/pkg/config"
	"pkg.jsn.cam/toygrep/pkg/transport"
)

var listenAddr string

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Run a master that waits for TCP workers",
	Long: `Listen for workers, wait until the configured number has joined, then
run the job and terminate every worker.

Start workers with "toygrep worker --master <addr>".`,
	Example: `  toygrep master --listen :7878 -w 3 -p love -i text.txt`,
	Args:    cobra.NoArgs,
	RunE:    runMaster,
}

func init() {
	addRunFlags(masterCmd)
	masterCmd.Flags().StringVar(&listenAddr, "listen", config.Default().Transport.Listen, "address to accept workers on")
	rootCmd.AddCommand(masterCmd)
}

func runMaster(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(func(c *config.Config) {
		applyRunFlags(cmd, c)
		if cmd.Flags().Changed("listen") {
			c.Transport.Listen = listenAddr
		}
	})
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

	tm, err := transport.ListenTCP(cfg.Transport.Listen, cfg.Run.Workers, transport.TCPOptions{Logger: log})
	if err != nil {
		return err
	}
	defer tm.Close()

	log.Info("Waiting for workers",
		zap.String("addr", tm.Addr().String()),
		zap.Int("workers", cfg.Run.Workers))

	if err := tm.AcceptWorkers(ctx); err != nil {
		return err
	}

	r := &runner{cfg: cfg, log: log, out: cmd.OutOrStdout()}
	defer r.close()

	opts, err := r.options()
	if err != nil {
		return err
	}

	m, err := master.New(tm, opts)
	if err != nil {
		return err
	}
	if err := r.startStatus(m); err != nil {
		return err
	}

	log.Info("Master started", zap.Int("total", tm.Size()), zap.String("transport", "tcp"))

	summary, runErr := m.Run(ctx, corpus)

	return r.finish(summary, runErr)
}
