// Command toygrep searches a text corpus for a pattern by splitting it across
// a pool of workers coordinated by a master.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pkg.jsn.cam/toygrep/pkg/toygrep"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "toygrep",
	Short: "Distributed pattern search over a master/worker pool",
	Long: `toygrep splits a text corpus into one slice per worker, hands each slice
to a worker, and prints every worker's matches as its result arrives.

Run everything in one process with "toygrep run", or start a master and
workers separately with "toygrep master" and "toygrep worker".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: toygrep.yaml in ., ./configs or ~/.toygrep)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "toygrep:", err)
		if errors.Is(err, toygrep.ErrTaskFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
