// Package cmd wires the cobra command tree: client/server subcommands over
// the core negotiator, transport, and transfer packages.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mistwave/filemesh/internal/logging"
)

var (
	flagLogLevel string
	flagLogFile  string
)

var rootCmd = &cobra.Command{
	Use:     "filemesh",
	Short:   "Peer-to-peer file transfer over a pre-negotiated WebRTC data channel",
	Version: "v0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logging.Init(flagLogLevel, flagLogFile)
		return err
	},
}

// Execute runs the root command; it is the sole entry point called from
// main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagLogLevel, "log-level", "l", "off", "off, error, warn, info, debug")
	rootCmd.PersistentFlags().StringVarP(&flagLogFile, "log-file", "o", "", "append logs to this file instead of stderr")
}
