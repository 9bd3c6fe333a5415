package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mistwave/filemesh/internal/framing"
)

var (
	flagFiles             []string
	flagChunkSizeKiB      int
	flagIgnoreEmpty       bool
	flagAdditionalServers []string
	flagUsername          string
	flagCredential        string
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Send or receive files over a negotiated WebRTC data channel",
	Long: `client negotiates a WebRTC data channel with exactly one peer and then
transfers files over it. Passing --files drives the sender path once the
channel opens; omitting it drives the pure-receiver path. Pick a signaling
mode as the final subcommand: manual, socket, or mqtt.`,
}

func init() {
	rootCmd.AddCommand(clientCmd)

	clientCmd.PersistentFlags().StringSliceVarP(&flagFiles, "files", "f", nil, "files or directories to send; omit to receive")
	clientCmd.PersistentFlags().IntVarP(&flagChunkSizeKiB, "chunk-size", "z", 64, "chunk size in KiB, 8-64")
	clientCmd.PersistentFlags().BoolVarP(&flagIgnoreEmpty, "ignore-empty", "i", false, "skip empty directories when enumerating")
	clientCmd.PersistentFlags().StringSliceVarP(&flagAdditionalServers, "additional-servers", "a", nil, "extra stun:/turn: URLs")
	clientCmd.PersistentFlags().StringVarP(&flagUsername, "username", "u", "", "TURN username")
	clientCmd.PersistentFlags().StringVarP(&flagCredential, "credential", "c", "", "TURN credential")
}

// clampChunkSize converts a KiB flag value into a byte frame size budget,
// clamped to the [8, 64] KiB range and capped at framing.MaxFrameSize, so
// the result lies in [8192, 65535] bytes.
func clampChunkSize(kib int) int {
	switch {
	case kib < 8:
		kib = 8
	case kib > 64:
		kib = 64
	}
	size := kib * 1024
	if size > framing.MaxFrameSize {
		size = framing.MaxFrameSize
	}
	return size
}
