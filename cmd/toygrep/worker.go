package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pkg.jsn.cam/toygrep/internal/worker"
	"pkg.jsn.cam/toygrep/pkg/config"
	"pkg.jsn.cam/toygrep/pkg/transport"
)

var workerFlags struct {
	master string
	codec  string
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Join a master over TCP and serve tasks until terminated",
	Example: `  toygrep worker --master 10.0.0.5:7878
  toygrep worker --master localhost:7878 --codec json`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	d := config.Default().Transport
	workerCmd.Flags().StringVar(&workerFlags.master, "master", d.MasterAddr, "master address")
	workerCmd.Flags().StringVar(&workerFlags.codec, "codec", d.Codec, "frame codec: cbor or json")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(func(c *config.Config) {
		if cmd.Flags().Changed("master") {
			c.Transport.MasterAddr = workerFlags.master
		}
		if cmd.Flags().Changed("codec") {
			c.Transport.Codec = workerFlags.codec
		}
	})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	tw, err := transport.DialTCP(ctx, cfg.Transport.MasterAddr, transport.TCPOptions{
		Codec:       cfg.Transport.Codec,
		DialTimeout: cfg.Transport.DialTimeout,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer tw.Close()

	log.Info("Slave started",
		zap.Int("rank", tw.Rank()),
		zap.Int("total", tw.Size()),
		zap.String("node_id", tw.NodeID()))

	return worker.NewNode(tw, log).Start(ctx)
}
