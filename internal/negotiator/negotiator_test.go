package negotiator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/signaling"
)

// drainStates pops every currently queued event off bus without blocking
// (an already-cancelled context makes Next return immediately once empty)
// and returns the State field of every KindHandshakeState event seen.
func drainStates(bus *events.Bus) []string {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	var states []string
	for {
		ev, ok := bus.Next(cancelled)
		if !ok {
			return states
		}
		if ev.Kind == events.KindHandshakeState {
			states = append(states, ev.State)
		}
	}
}

func countState(states []string, s State) int {
	n := 0
	for _, got := range states {
		if got == string(s) {
			n++
		}
	}
	return n
}

// TestRunManualUUIDClashIsFatal exercises seed E: a transport that echoes
// back the exact UUID it was just sent produces a same-UUID tie, and
// HandleSameUUID=false (the setting used for the manual transport) must
// surface it as ErrUUIDClash rather than re-rolling.
func TestRunManualUUIDClashIsFatal(t *testing.T) {
	bus := events.NewBus()
	echoTransport := &echoingTransport{}
	neg := New(echoTransport, nil, false, bus)

	err := neg.Run(context.Background())
	if !errors.Is(err, ErrUUIDClash) {
		t.Fatalf("expected ErrUUIDClash, got %v", err)
	}
}

// echoingTransport always answers Receive with whatever UUID was most
// recently handed to Send, so the remote UUID always equals the local one.
type echoingTransport struct {
	lastSent signaling.Message
}

func (e *echoingTransport) Connect(ctx context.Context) error { return nil }

func (e *echoingTransport) Send(ctx context.Context, msg signaling.Message) error {
	e.lastSent = msg
	return nil
}

func (e *echoingTransport) Receive(ctx context.Context) (signaling.Message, bool, error) {
	return e.lastSent, true, nil
}

func (e *echoingTransport) Disconnect(ctx context.Context) error { return nil }

// TestRunServerBackedUUIDClashRerollsOnce exercises seed F: a server-backed
// transport (HandleSameUUID=true) that echoes the same UUID once must
// re-roll and resend exactly once, producing exactly two UUIDSent
// transitions, then proceed once a distinct remote UUID arrives.
func TestRunServerBackedUUIDClashRerollsOnce(t *testing.T) {
	transport := &rerollTransport{}
	bus := events.NewBus()
	neg := New(transport, nil, true, bus)

	// fullUUID (all 0xff) is the maximum possible byte pattern and is
	// excluded from randomUUID's output, so the local side is always
	// polite against it and never needs a real peer connection to create
	// an offer.
	transport.remoteFixed = fullUUID

	err := neg.Run(context.Background())
	if err == nil {
		t.Fatalf("expected Run to end once the transport reports closed, got nil error")
	}

	states := drainStates(bus)
	if got := countState(states, StateUUIDSent); got != 2 {
		t.Fatalf("expected exactly 2 UUIDSent transitions, got %d (%v)", got, states)
	}
	if countState(states, StateUUIDReceived) != 1 {
		t.Fatalf("expected exactly 1 UUIDReceived transition after the reroll settles, got states %v", states)
	}
	if len(transport.sent) != 2 {
		t.Fatalf("expected exactly 2 uuid sends (initial + reroll), got %d", len(transport.sent))
	}
}

// rerollTransport echoes the first UUID it's sent (forcing exactly one
// clash/reroll), then answers with remoteFixed, then reports the
// transport closed.
type rerollTransport struct {
	sent        []signaling.Message
	remoteFixed uuid.UUID
	calls       int
}

func (r *rerollTransport) Connect(ctx context.Context) error { return nil }

func (r *rerollTransport) Send(ctx context.Context, msg signaling.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func (r *rerollTransport) Receive(ctx context.Context) (signaling.Message, bool, error) {
	r.calls++
	switch r.calls {
	case 1:
		return r.sent[0], true, nil // echo the first local UUID: forces a clash
	case 2:
		return signaling.UUIDMessage(r.remoteFixed), true, nil
	default:
		return signaling.Message{}, false, nil
	}
}

func (r *rerollTransport) Disconnect(ctx context.Context) error { return nil }

func TestPoliteRoleSelectionIsExclusive(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	for a == b {
		b = uuid.New()
	}

	aPolite := bytes.Compare(a[:], b[:]) < 0
	bPolite := bytes.Compare(b[:], a[:]) < 0

	if aPolite == bPolite {
		t.Fatalf("expected exactly one side to be polite, got a=%v b=%v", aPolite, bPolite)
	}
}

func TestRandomUUIDExcludesEdgeCases(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := randomUUID()
		if id == uuid.Nil || id == fullUUID {
			t.Fatalf("randomUUID produced reserved edge case: %v", id)
		}
	}
}
