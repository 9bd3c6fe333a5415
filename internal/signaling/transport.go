package signaling

import "context"

// Transport is the capability set shared by every signaling transport. All
// four methods are suspension points; the negotiator treats every
// implementation uniformly.
type Transport interface {
	// Connect establishes the transport and may seed an initial inbound
	// message (manual transport uses this to fix the local role).
	Connect(ctx context.Context) error

	// Send transmits one signaling message. Manual transport silently
	// drops Uuid messages instead of placing them on the wire.
	Send(ctx context.Context, msg Message) error

	// Receive blocks for the next inbound message. ok is false when the
	// peer has closed the transport.
	Receive(ctx context.Context) (msg Message, ok bool, err error)

	// Disconnect releases the transport's resources.
	Disconnect(ctx context.Context) error
}
