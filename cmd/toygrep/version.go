package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"pkg.jsn.cam/toygrep/pkg/executors"
	"pkg.jsn.cam/toygrep/pkg/toygrep/protocol"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the protocol version and supported operations",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "toygrep %s (%s)\n", protocol.ToyGrepVersion, runtime.Version())
		fmt.Fprintln(out, "operations:")
		for _, op := range executors.ListExecutors() {
			desc, _ := executors.GetDescription(op)
			fmt.Fprintf(out, "  %-10s %s\n", op, desc)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
