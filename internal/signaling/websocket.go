package signaling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mistwave/filemesh/internal/envelope"
)

// Timing constants for the client end of the rendezvous WebSocket
// connection: the client sends the pings, and the server answers them with
// pongs from gorilla/websocket's default ping handler.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// WebSocket is the rendezvous-server-backed signaling transport.
type WebSocket struct {
	Address string
	Port    uint16
	Room    string
	Secret  *envelope.Secret

	conn     *websocket.Conn
	writeMu  sync.Mutex
	incoming chan Message
	errCh    chan error
	done     chan struct{}
}

// NewWebSocket constructs a WebSocket transport targeting
// ws://<address>:<port>/room?room=<room>.
func NewWebSocket(address string, port uint16, room string, secret *envelope.Secret) *WebSocket {
	return &WebSocket{
		Address:  address,
		Port:     port,
		Room:     room,
		Secret:   secret,
		incoming: make(chan Message, 8),
		errCh:    make(chan error, 1),
		done:     make(chan struct{}),
	}
}

func (w *WebSocket) url() string {
	return fmt.Sprintf("ws://%s:%d/room?room=%s", w.Address, w.Port, w.Room)
}

func (w *WebSocket) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url(), nil)
	if err != nil {
		return fmt.Errorf("signaling: websocket: connect: %w", err)
	}
	w.conn = conn
	w.conn.SetReadLimit(maxMessageSize)
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go w.readPump()
	go w.writePump()
	return nil
}

func (w *WebSocket) readPump() {
	defer close(w.incoming)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case w.errCh <- err:
			default:
			}
			return
		}

		text := string(data)
		if w.Secret != nil {
			decrypted, err := envelope.Unwrap(*w.Secret, text)
			if err != nil {
				continue
			}
			text = decrypted
		}

		msg, err := Decode([]byte(text))
		if err != nil {
			continue
		}
		w.incoming <- msg
	}
}

// writePump sends periodic pings to keep the connection alive; actual
// signaling messages are written directly by Send, serialised against the
// ping ticker by writeMu.
func (w *WebSocket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.writeMu.Lock()
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := w.conn.WriteMessage(websocket.PingMessage, nil)
			w.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Send JSON-encodes msg (wrapping it first if a secret is configured) and
// writes it as a single text frame.
func (w *WebSocket) Send(ctx context.Context, msg Message) error {
	encoded, err := Encode(msg)
	if err != nil {
		return err
	}
	text := string(encoded)
	if w.Secret != nil {
		wrapped, err := envelope.Wrap(*w.Secret, text)
		if err != nil {
			return fmt.Errorf("signaling: websocket: wrap: %w", err)
		}
		text = wrapped
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("signaling: websocket: send: %w", err)
	}
	return nil
}

func (w *WebSocket) Receive(ctx context.Context) (Message, bool, error) {
	select {
	case msg, ok := <-w.incoming:
		if !ok {
			select {
			case err := <-w.errCh:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return Message{}, false, nil
				}
				return Message{}, false, fmt.Errorf("signaling: websocket: %w", err)
			default:
				return Message{}, false, nil
			}
		}
		return msg, true, nil
	case <-ctx.Done():
		return Message{}, false, ctx.Err()
	}
}

func (w *WebSocket) Disconnect(ctx context.Context) error {
	if w.conn == nil {
		return nil
	}
	close(w.done)
	w.writeMu.Lock()
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	w.writeMu.Unlock()
	return w.conn.Close()
}
