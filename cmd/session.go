package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mistwave/filemesh/internal/config"
	"github.com/mistwave/filemesh/internal/envelope"
	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/files"
	"github.com/mistwave/filemesh/internal/negotiator"
	"github.com/mistwave/filemesh/internal/rtc"
	"github.com/mistwave/filemesh/internal/signaling"
	"github.com/mistwave/filemesh/internal/transfer"
	"github.com/mistwave/filemesh/internal/tui"
)

func secretFromFlag(s string) (*envelope.Secret, error) {
	if s == "" {
		return nil, nil
	}
	secret, err := envelope.NewSecret([]byte(s))
	if err != nil {
		return nil, err
	}
	return &secret, nil
}

// runManualExchange drives a manual-transport negotiation, printing the
// local payload to stdout and reading the peer's pasted reply from stdin.
// It owns the bus until the handshake finishes; afterwards the terminal UI
// becomes the bus's sole consumer.
func runManualExchange(ctx context.Context, bus *events.Bus, manual *signaling.Manual, neg *negotiator.Negotiator) error {
	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()

	done := make(chan error, 1)
	go func() { done <- neg.Run(ctx) }()

	go func() {
		for {
			ev, ok := bus.Next(pumpCtx)
			if !ok {
				return
			}
			if ev.Kind == events.KindManualSignalingOutput {
				fmt.Println("\n--- send this to your peer ---")
				fmt.Println(ev.Text)
				fmt.Println("-------------------------------")
			}
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := manual.InjectIncoming(pumpCtx, line); err != nil {
				fmt.Fprintln(os.Stderr, "filemesh: invalid paste:", err)
			}
			if pumpCtx.Err() != nil {
				return
			}
		}
	}()

	fmt.Println("paste the peer's message below and press enter:")
	return <-done
}

// runClient builds the shared negotiator/controller/transfer machinery,
// drives the handshake over transport, and then runs the file transfer
// under the terminal UI. manual is non-nil only for the manual signaling
// mode, which needs the stdin/stdout pump above before the UI takes over.
// bus is supplied by the caller because the manual transport must be
// constructed with it before the negotiator even exists.
func runClient(bus *events.Bus, transport signaling.Transport, handleSameUUID bool, manual *signaling.Manual) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := events.NewRoot(ctx, bus)

	cfg := config.Load(config.Options{
		AdditionalServers: flagAdditionalServers,
		Username:          flagUsername,
		Credential:        flagCredential,
	})

	controller, err := rtc.New(cfg, bus)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	defer controller.Close()

	neg := negotiator.New(transport, controller.PC, handleSameUUID, bus)

	if manual != nil {
		if err := runManualExchange(root.Context, bus, manual, neg); err != nil {
			return fmt.Errorf("client: handshake: %w", err)
		}
	} else if err := neg.Run(root.Context); err != nil {
		return fmt.Errorf("client: handshake: %w", err)
	}

	select {
	case <-controller.Opened:
	case <-root.Context.Done():
		return root.Context.Err()
	}

	mgr := files.NewManager(flagIgnoreEmpty)
	chunkSize := clampChunkSize(flagChunkSizeKiB)

	model := tui.New(root.Context, bus)
	sending := len(flagFiles) > 0

	receiver := transfer.NewReceiver(controller, mgr, bus, ".")
	controller.OnMessage(receiver.HandleMessage)

	if sending {
		if err := mgr.AddOutputFiles(flagFiles); err != nil {
			return fmt.Errorf("client: %w", err)
		}
		go runSender(root, controller, mgr, chunkSize)
	}

	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("client: ui: %w", err)
	}

	tui.WriteSummary(os.Stdout, model.Rows())
	if err := model.Fatal(); err != nil {
		return err
	}
	return nil
}

func runSender(root *events.TaskContext, controller *rtc.Controller, mgr *files.Manager, chunkSize int) {
	sender := transfer.NewSender(controller, chunkSize, root.Bus)

	outputs := mgr.OutputFiles()
	if err := sender.SendAllMeta(outputs); err != nil {
		root.Fatal(fmt.Errorf("client: send metadata: %w", err))
		return
	}

	for {
		f := mgr.NextOutputFile()
		if f == nil {
			return
		}
		if err := sender.SendFileData(f, f.MetaData.Path); err != nil {
			root.Fatal(fmt.Errorf("client: send %s: %w", f.MetaData.Name, err))
			return
		}
	}
}
