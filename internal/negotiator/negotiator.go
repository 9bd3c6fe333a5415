// Package negotiator implements the signaling-transport-independent
// handshake state machine: UUID exchange to settle the polite/impolite
// role, then the SDP offer/answer exchange.
package negotiator

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/signaling"
)

// State names the observable handshake states, emitted to the event bus as
// they're reached.
type State string

const (
	StateInitial            State = "Initial"
	StateConnectingToServer State = "ConnectingToServer"
	StateConnectedToServer  State = "ConnectedToServer"
	StateUUIDSent           State = "UUIDSent"
	StateUUIDReceived       State = "UUIDReceived"
	StateOfferSent          State = "OfferSent"
	StateOfferReceived      State = "OfferReceived"
	StateAnswerSent         State = "AnswerSent"
	StateAnswerReceived     State = "AnswerReceived"
	StateExchangeFinished   State = "ExchangeFinished"
)

// ErrUUIDClash is returned when HandleSameUUID is false and the transport
// delivers a UUID equal to the local one. The local UUID is drawn by
// randomUUID, which never yields the manual transport's role UUIDs (nil and
// all-0xFF), so the manual transport does not produce this error: two
// manual peers that declare the same role are not detected, and each waits
// for a message the other never sends.
var ErrUUIDClash = errors.New("negotiator: uuid clash")

// fullUUID matches signaling.fullUUID: the manual transport's polite-role
// marker, excluded from the random pool used for server-backed transports.
var fullUUID = uuid.UUID{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// Negotiator drives transport + peer connection to a settled SDP exchange.
type Negotiator struct {
	Transport      signaling.Transport
	PC             *webrtc.PeerConnection
	HandleSameUUID bool // true for server-backed transports, false for manual

	bus   *events.Bus
	local uuid.UUID
}

// New constructs a Negotiator. handleSameUUID controls same-UUID-collision
// behavior: true re-rolls (server-backed transports), false returns
// ErrUUIDClash (the setting the manual transport is run with).
func New(transport signaling.Transport, pc *webrtc.PeerConnection, handleSameUUID bool, bus *events.Bus) *Negotiator {
	return &Negotiator{Transport: transport, PC: pc, HandleSameUUID: handleSameUUID, bus: bus}
}

func (n *Negotiator) setState(s State) {
	n.bus.Publish(events.Event{Kind: events.KindHandshakeState, State: string(s)})
}

// Run drives the full negotiation to completion: UUID exchange, role
// selection, and SDP offer/answer. It returns once ExchangeFinished is
// reached or a fatal error occurs.
func (n *Negotiator) Run(ctx context.Context) error {
	n.setState(StateInitial)
	n.setState(StateConnectingToServer)
	if err := n.Transport.Connect(ctx); err != nil {
		return fmt.Errorf("negotiator: connect: %w", err)
	}
	n.setState(StateConnectedToServer)

	n.local = randomUUID()
	if err := n.Transport.Send(ctx, signaling.UUIDMessage(n.local)); err != nil {
		return fmt.Errorf("negotiator: send local uuid: %w", err)
	}
	n.setState(StateUUIDSent)

	for {
		msg, ok, err := n.Transport.Receive(ctx)
		if err != nil {
			return fmt.Errorf("negotiator: receive: %w", err)
		}
		if !ok {
			return fmt.Errorf("negotiator: transport closed before exchange finished")
		}

		switch msg.Kind {
		case signaling.KindUUID:
			done, err := n.handleUUID(ctx, msg.UUID)
			if err != nil {
				return err
			}
			if done {
				return n.finish(ctx)
			}
		case signaling.KindOffer:
			if err := n.handleOffer(ctx, msg.SDP); err != nil {
				return err
			}
			return n.finish(ctx)
		case signaling.KindAnswer:
			if err := n.handleAnswer(ctx, msg.SDP); err != nil {
				return err
			}
			return n.finish(ctx)
		}
	}
}

func (n *Negotiator) handleUUID(ctx context.Context, remote uuid.UUID) (terminal bool, err error) {
	if remote == n.local {
		if !n.HandleSameUUID {
			return false, ErrUUIDClash
		}
		n.local = randomUUID()
		if err := n.Transport.Send(ctx, signaling.UUIDMessage(n.local)); err != nil {
			return false, fmt.Errorf("negotiator: re-send local uuid: %w", err)
		}
		n.setState(StateUUIDSent)
		return false, nil
	}

	n.setState(StateUUIDReceived)

	polite := bytes.Compare(n.local[:], remote[:]) < 0
	if !polite {
		offer, err := n.PC.CreateOffer(nil)
		if err != nil {
			return false, fmt.Errorf("negotiator: create offer: %w", err)
		}
		if err := n.PC.SetLocalDescription(offer); err != nil {
			return false, fmt.Errorf("negotiator: set local description: %w", err)
		}
		if err := waitForICEComplete(ctx, n.PC); err != nil {
			return false, err
		}
		if err := n.Transport.Send(ctx, signaling.OfferMessage(n.PC.LocalDescription().SDP)); err != nil {
			return false, fmt.Errorf("negotiator: send offer: %w", err)
		}
		n.setState(StateOfferSent)
	}
	return false, nil
}

func (n *Negotiator) handleOffer(ctx context.Context, sdp string) error {
	if err := n.PC.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		return fmt.Errorf("negotiator: set remote offer: %w", err)
	}
	n.setState(StateOfferReceived)

	answer, err := n.PC.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("negotiator: create answer: %w", err)
	}
	if err := n.PC.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("negotiator: set local answer: %w", err)
	}
	if err := waitForICEComplete(ctx, n.PC); err != nil {
		return err
	}
	if err := n.Transport.Send(ctx, signaling.AnswerMessage(n.PC.LocalDescription().SDP)); err != nil {
		return fmt.Errorf("negotiator: send answer: %w", err)
	}
	n.setState(StateAnswerSent)
	return nil
}

func (n *Negotiator) handleAnswer(ctx context.Context, sdp string) error {
	if err := n.PC.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}); err != nil {
		return fmt.Errorf("negotiator: set remote answer: %w", err)
	}
	n.setState(StateAnswerReceived)
	return nil
}

func (n *Negotiator) finish(ctx context.Context) error {
	n.setState(StateExchangeFinished)
	return n.Transport.Disconnect(ctx)
}

// randomUUID draws a v4 UUID excluding the two edge cases (nil and
// all-0xFF) reserved by the manual transport for role declaration.
func randomUUID() uuid.UUID {
	for {
		id := uuid.New()
		if id != uuid.Nil && id != fullUUID {
			return id
		}
	}
}

func waitForICEComplete(ctx context.Context, pc *webrtc.PeerConnection) error {
	if pc.ICEGatheringState() == webrtc.ICEGatheringStateComplete {
		return nil
	}

	done := make(chan struct{})
	pc.OnICEGatheringStateChange(func(s webrtc.ICEGatheringState) {
		if s == webrtc.ICEGatheringStateComplete {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
