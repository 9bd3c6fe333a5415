// Package rtc owns the WebRTC peer connection and its single
// pre-negotiated data channel.
package rtc

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/mistwave/filemesh/internal/config"
	"github.com/mistwave/filemesh/internal/events"
)

// BufferedAmountLowThreshold is the sole backpressure watermark: senders
// suspend once buffered outbound bytes exceed this many bytes, and resume
// when the channel signals it has drained beneath it.
const BufferedAmountLowThreshold = 128 * 1024

// channelID is the pre-negotiated data channel id; both peers must agree
// on it out of band (it is fixed, not signalled).
const channelID uint16 = 0

// Controller owns the peer connection and its data channel for the
// lifetime of one transfer session.
type Controller struct {
	PC      *webrtc.PeerConnection
	Channel *webrtc.DataChannel

	bus *events.Bus

	bufMu   sync.Mutex
	bufCond *sync.Cond
	bufTick uint64 // incremented on every on_buffered_amount_low signal

	openOnce sync.Once
	// Opened closes once the data channel fires OnOpen. Callers that need
	// to block on this (session setup) wait here rather than subscribing
	// to the event bus, which has exactly one consumer: the terminal UI.
	Opened chan struct{}
}

// New creates the peer connection and its pre-negotiated, ordered data
// channel, and wires the controller's handlers.
func New(cfg *config.Config, bus *events.Bus) (*Controller, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: cfg.ICEServers()})
	if err != nil {
		return nil, fmt.Errorf("rtc: new peer connection: %w", err)
	}

	ordered := true
	negotiated := true
	dc, err := pc.CreateDataChannel("data", &webrtc.DataChannelInit{
		ID:         &channelID,
		Ordered:    &ordered,
		Negotiated: &negotiated,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("rtc: create data channel: %w", err)
	}
	dc.SetBufferedAmountLowThreshold(BufferedAmountLowThreshold)

	c := &Controller{PC: pc, Channel: dc, bus: bus, Opened: make(chan struct{})}
	c.bufCond = sync.NewCond(&c.bufMu)
	c.attachHandlers()
	return c, nil
}

func (c *Controller) attachHandlers() {
	c.Channel.OnBufferedAmountLow(func() {
		c.bufMu.Lock()
		c.bufTick++
		c.bufCond.Broadcast()
		c.bufMu.Unlock()
	})

	c.Channel.OnOpen(func() {
		c.bus.Publish(events.Event{Kind: events.KindChannelOpened})
		c.openOnce.Do(func() { close(c.Opened) })
	})

	c.PC.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateConnected:
			c.bus.Publish(events.Event{Kind: events.KindConnected})
		case webrtc.PeerConnectionStateDisconnected:
			c.bus.Publish(events.Event{Kind: events.KindDisconnected})
		case webrtc.PeerConnectionStateFailed:
			c.bus.Publish(events.Event{Kind: events.KindFatalError, Err: fmt.Errorf("rtc: peer connection failed")})
		}
	})

	c.PC.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		if s == webrtc.ICEConnectionStateFailed {
			c.bus.Publish(events.Event{Kind: events.KindFatalError, Err: fmt.Errorf("rtc: ice connection failed")})
		}
	})
}

// OnMessage registers the single dispatch handler for inbound data-channel
// messages (see internal/transfer for the receiver implementation).
func (c *Controller) OnMessage(fn func(webrtc.DataChannelMessage)) {
	c.Channel.OnMessage(fn)
}

// SendBinary writes a binary frame to the data channel.
func (c *Controller) SendBinary(b []byte) error {
	return c.Channel.Send(b)
}

// SendText writes a text frame to the data channel.
func (c *Controller) SendText(s string) error {
	return c.Channel.SendText(s)
}

// AwaitThreshold blocks until buffered_amount falls at or below the
// backpressure threshold. It is the Go analogue of the original's
// await_threshold: a condition variable woken by OnBufferedAmountLow.
func (c *Controller) AwaitThreshold() {
	if c.Channel.BufferedAmount() <= BufferedAmountLowThreshold {
		return
	}
	c.bufMu.Lock()
	start := c.bufTick
	for c.bufTick == start && c.Channel.BufferedAmount() > BufferedAmountLowThreshold {
		c.bufCond.Wait()
	}
	c.bufMu.Unlock()
}

// Close tears down the data channel and peer connection.
func (c *Controller) Close() error {
	if c.Channel != nil {
		c.Channel.Close()
	}
	return c.PC.Close()
}
