package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"newswire/internal/notify/models"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnect))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForClients polls until the hub registers n clients or times out.
func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub, srv := newTestHub(t)

	first := dial(t, srv)
	second := dial(t, srv)
	waitForClients(t, hub, 2)

	item := models.Item{ID: "i-1", Title: "Fed Raises Rates", ImportanceScore: 4}
	hub.Send(item)

	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}

		var frame envelope
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if frame.Type != "news_item" {
			t.Errorf("frame type = %q, want news_item", frame.Type)
		}
		if frame.Data.ID != item.ID || frame.Data.Title != item.Title {
			t.Errorf("frame data = %+v, want %+v", frame.Data, item)
		}
	}
}

func TestHubRemovesDisconnectedClients(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting to an empty hub must not panic.
	hub.Send(models.Item{ID: "i-2"})
}

func TestHubSendWithoutClientsIsANoOp(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub.Send(models.Item{ID: "i-3"})
	if hub.ClientCount() != 0 {
		t.Fatalf("client count = %d, want 0", hub.ClientCount())
	}
}
