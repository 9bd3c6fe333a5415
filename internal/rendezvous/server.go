package rendezvous

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mistwave/filemesh/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the rendezvous HTTP+WebSocket relay.
type Server struct {
	Registry *Registry
	bus      *events.Bus
	log      *slog.Logger
}

// NewServer builds a Server backed by a fresh Registry.
func NewServer(bus *events.Bus, log *slog.Logger) *Server {
	return &Server{Registry: NewRegistry(bus), bus: bus, log: log}
}

// Router returns the configured mux.Router serving GET /room?room=<id>.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/room", s.handleRoom).Methods(http.MethodGet).Queries("room", "{room}")
	// A request missing the room query parameter matches no route above
	// and falls through to a 403.
	r.HandleFunc("/room", s.handleMissingRoom).Methods(http.MethodGet)
	return r
}

func (s *Server) handleMissingRoom(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "missing room parameter", http.StatusForbidden)
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		return
	}

	send := make(chan []byte, 32)
	user, history, err := s.Registry.Join(roomID, send)
	if err != nil {
		conn.Close()
		return
	}

	for _, msg := range history {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			s.Registry.Leave(user)
			return
		}
	}

	go s.forward(conn, send)
	s.readLoop(conn, user)
}

// forward copies from the user's send channel to the WebSocket, one
// goroutine per connection, terminating on the first write error.
func (s *Server) forward(conn *websocket.Conn, send chan []byte) {
	for msg := range send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn, user *User) {
	defer func() {
		conn.Close()
		s.Registry.Leave(user)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.Registry.Broadcast(user.RoomID, user.ID, data)
	}
}
