package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/signaling"
)

var (
	flagManualPolite bool
	flagManualSecret string
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Exchange offer/answer by hand, out of band",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := secretFromFlag(flagManualSecret)
		if err != nil {
			return err
		}
		bus := events.NewBus()
		transport := signaling.NewManual(flagManualPolite, secret, bus)
		return runClient(bus, transport, false, transport)
	},
}

func init() {
	clientCmd.AddCommand(manualCmd)
	manualCmd.Flags().BoolVarP(&flagManualPolite, "polite", "p", false, "declare the polite (answering) role")
	manualCmd.Flags().StringVarP(&flagManualSecret, "secret", "s", "", "32-byte symmetric key wrapping the pasted payloads")
}
