package rendezvous

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mistwave/filemesh/internal/events"
)

func httpGet(t *testing.T, url string) (int, error) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	bus := events.NewBus()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(bus, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/room?room=" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestMissingRoomParamForbidden(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := httpGet(t, ts.URL+"/room")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp != 403 {
		t.Fatalf("status = %d, want 403", resp)
	}
}

func TestThirdJoinerRejected(t *testing.T) {
	_, ts := newTestServer(t)

	c1 := dial(t, ts, "party")
	defer c1.Close()
	c2 := dial(t, ts, "party")
	defer c2.Close()

	time.Sleep(50 * time.Millisecond)

	c3 := dial(t, ts, "party")
	defer c3.Close()

	c3.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := c3.ReadMessage(); err == nil {
		t.Fatal("expected third connection to be closed immediately")
	}
}

func TestBroadcastReachesOtherUserOnly(t *testing.T) {
	_, ts := newTestServer(t)

	c1 := dial(t, ts, "chat")
	defer c1.Close()
	c2 := dial(t, ts, "chat")
	defer c2.Close()

	time.Sleep(50 * time.Millisecond)

	if err := c1.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	c2.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := c2.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q want hello", data)
	}
}
