package signaling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mistwave/filemesh/internal/envelope"
	"github.com/mistwave/filemesh/internal/events"
)

// fullUUID is the all-0xFF UUID reserved by the manual transport to signal
// the polite (answering) role; uuid.Nil signals impolite (offering).
var fullUUID = uuid.UUID{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// Manual is the out-of-band copy/paste transport. The UI is responsible
// for displaying ManualSignalingOutput events and for calling InjectIncoming
// with whatever the remote peer pasted back.
type Manual struct {
	Polite bool
	Secret *envelope.Secret
	Bus    *events.Bus

	incoming chan Message
}

// NewManual constructs a Manual transport. secret may be nil to disable the
// symmetric envelope.
func NewManual(polite bool, secret *envelope.Secret, bus *events.Bus) *Manual {
	return &Manual{Polite: polite, Secret: secret, Bus: bus, incoming: make(chan Message, 4)}
}

func (m *Manual) Connect(ctx context.Context) error {
	local := uuid.Nil
	if m.Polite {
		local = fullUUID
	}
	select {
	case m.incoming <- UUIDMessage(local):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Send surfaces Offer/Answer payloads to the UI for out-of-band delivery;
// Uuid messages are never placed on the wire.
func (m *Manual) Send(ctx context.Context, msg Message) error {
	if msg.Kind == KindUUID {
		return nil
	}

	encoded, err := Encode(msg)
	if err != nil {
		return err
	}
	text := string(encoded)

	if m.Secret != nil {
		wrapped, err := envelope.Wrap(*m.Secret, text)
		if err != nil {
			return fmt.Errorf("signaling: manual: wrap: %w", err)
		}
		text = wrapped
	}

	m.Bus.Publish(events.Event{Kind: events.KindManualSignalingOutput, Text: text})
	return nil
}

// InjectIncoming is called by the UI when the user pastes the remote
// peer's text. A polite peer is only ever expecting an Offer back and an
// impolite peer only ever an Answer; anything else is silently dropped
// rather than queued.
func (m *Manual) InjectIncoming(ctx context.Context, text string) error {
	if m.Secret != nil {
		decrypted, err := envelope.Unwrap(*m.Secret, text)
		if err != nil {
			return fmt.Errorf("signaling: manual: %w", err)
		}
		text = decrypted
	}

	msg, err := Decode([]byte(text))
	if err != nil {
		return fmt.Errorf("signaling: manual: %w", err)
	}

	wantKind := KindAnswer
	if m.Polite {
		wantKind = KindOffer
	}
	if msg.Kind != wantKind {
		return nil
	}

	select {
	case m.incoming <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manual) Receive(ctx context.Context) (Message, bool, error) {
	select {
	case msg := <-m.incoming:
		return msg, true, nil
	case <-ctx.Done():
		return Message{}, false, ctx.Err()
	}
}

func (m *Manual) Disconnect(ctx context.Context) error { return nil }
