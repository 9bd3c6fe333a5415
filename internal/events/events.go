// Package events defines the typed event stream the core publishes and the
// terminal front-end consumes. Producers never block on the consumer: the
// bus is an unbounded, mutex-guarded queue that Publish appends to directly.
package events

import (
	"context"
	"sync"
)

// Kind discriminates the payload carried by an Event.
type Kind int

const (
	KindNone Kind = iota

	// Negotiation / connection lifecycle.
	KindHandshakeState
	KindChannelOpened
	KindConnected
	KindDisconnected
	KindManualSignalingOutput // text the UI must relay out-of-band

	// Transfer lifecycle (sender side).
	KindMetaSent
	KindOutputFileProgress
	KindOutputFileFinished
	KindReportFileSpeedOut

	// Transfer lifecycle (receiver side).
	KindInputFileNew
	KindInputFileProgress
	KindReportFileSpeedIn

	// Control-channel echoes, useful for diagnostics.
	KindMessageReceived

	// Fatal, terminal error. The terminal UI quits when it receives one.
	KindFatalError

	// Rendezvous server lifecycle, consumed by the server's own logger/UI.
	KindRoomAdded
	KindRoomRemoved
	KindRoomUserAdded
	KindRoomUserRemoved
	KindRoomMessageAdded
)

// Event is the single envelope type carried on the bus. Only the field
// relevant to Kind is populated.
type Event struct {
	Kind Kind

	State string // KindHandshakeState

	FileID   uint32  // progress/speed/finished events
	Name     string  // display name for the file
	Progress float64 // 0..1
	Bytes    int     // bytes in this report/chunk

	Text string // manual signaling output / message text / room id / user name

	Err error // KindFatalError
}

// Bus is a multi-producer, single-consumer unbounded event queue.
type Bus struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	b := &Bus{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish enqueues an event. Safe to call from any goroutine, including
// after Close (the publish is silently dropped).
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, ev)
	b.cond.Signal()
}

// Next blocks until an event is available, ctx is cancelled, or the bus is
// closed. ok is false once the bus is closed and drained, or when ctx is
// cancelled while the queue is empty.
func (b *Bus) Next(ctx context.Context) (ev Event, ok bool) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) == 0 && !b.closed {
		if ctx.Err() != nil {
			return Event{}, false
		}
		b.cond.Wait()
	}
	if len(b.queue) == 0 {
		return Event{}, false
	}
	ev = b.queue[0]
	b.queue = b.queue[1:]
	return ev, true
}

// Close marks the bus closed; pending events already queued are still
// delivered by Next, but no further Publish calls take effect.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// TaskContext bundles the per-task cancellation and error-reporting
// plumbing threaded through every background goroutine the core spawns.
type TaskContext struct {
	context.Context
	Cancel context.CancelFunc
	Bus    *Bus
}

// Child derives a new TaskContext whose cancellation is rooted at tc but can
// be cancelled independently, sharing the same event bus.
func (tc *TaskContext) Child() *TaskContext {
	ctx, cancel := context.WithCancel(tc.Context)
	return &TaskContext{Context: ctx, Cancel: cancel, Bus: tc.Bus}
}

// Fatal publishes a fatal error event and cancels this task's subtree.
func (tc *TaskContext) Fatal(err error) {
	tc.Bus.Publish(Event{Kind: KindFatalError, Err: err})
	tc.Cancel()
}

// NewRoot builds the top-level TaskContext for a client or server run.
func NewRoot(ctx context.Context, bus *Bus) *TaskContext {
	childCtx, cancel := context.WithCancel(ctx)
	return &TaskContext{Context: childCtx, Cancel: cancel, Bus: bus}
}
