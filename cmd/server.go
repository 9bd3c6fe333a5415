package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/rendezvous"
)

var flagServerAddress string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the rendezvous WebSocket relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		bus := events.NewBus()
		go logRoomEvents(cmd.Context(), bus)

		srv := rendezvous.NewServer(bus, slog.Default())
		slog.Info("rendezvous server listening", "address", flagServerAddress)
		if err := http.ListenAndServe(flagServerAddress, srv.Router()); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	},
}

func logRoomEvents(ctx context.Context, bus *events.Bus) {
	for {
		ev, ok := bus.Next(ctx)
		if !ok {
			return
		}
		switch ev.Kind {
		case events.KindRoomAdded:
			slog.Info("room created", "room", ev.Text)
		case events.KindRoomRemoved:
			slog.Info("room closed", "room", ev.Text)
		case events.KindRoomUserAdded:
			slog.Info("user joined", "name", ev.Text)
		case events.KindRoomUserRemoved:
			slog.Info("user left", "name", ev.Text)
		}
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVarP(&flagServerAddress, "address", "a", "127.0.0.1:3030", "listen address")
}
