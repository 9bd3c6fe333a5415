package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/signaling"
)

var (
	flagSocketAddress string
	flagSocketPort    uint16
	flagSocketRoom    string
	flagSocketSecret  string
)

var socketCmd = &cobra.Command{
	Use:   "socket",
	Short: "Exchange offer/answer through the rendezvous WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := secretFromFlag(flagSocketSecret)
		if err != nil {
			return err
		}
		transport := signaling.NewWebSocket(flagSocketAddress, flagSocketPort, flagSocketRoom, secret)
		return runClient(events.NewBus(), transport, true, nil)
	},
}

func init() {
	clientCmd.AddCommand(socketCmd)
	socketCmd.Flags().StringVarP(&flagSocketAddress, "address", "H", "127.0.0.1", "rendezvous server host")
	socketCmd.Flags().Uint16VarP(&flagSocketPort, "port", "p", 3030, "rendezvous server port")
	socketCmd.Flags().StringVarP(&flagSocketRoom, "room", "r", "", "room name shared with the peer")
	socketCmd.Flags().StringVarP(&flagSocketSecret, "secret", "s", "", "32-byte symmetric key wrapping signaling payloads")
	socketCmd.MarkFlagRequired("room")
}
