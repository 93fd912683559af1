package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"fintrack/internal/log"

	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub([]string{"http://allowed.test"}, log.New(log.Config{Output: io.Discard}))
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := strconv.ParseInt(r.URL.Query().Get("uid"), 10, 64)
		hub.ServeWS(w, r, uid)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, uid int64, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + strconv.FormatInt(uid, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial() err = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_NotifiesOnlyTheOwningUser(t *testing.T) {
	hub, srv := newTestHub(t)
	alice := dial(t, srv, 1, nil)
	bob := dial(t, srv, 2, nil)
	waitForClients(t, hub, 2)

	hub.TransactionsChanged(context.Background(), 1)

	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := alice.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() err = %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "transactions_changed" || msg.UserID != 1 || msg.Timestamp.IsZero() {
		t.Errorf("message = %+v", msg)
	}

	bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Error("other user received a notification")
	}
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, 7, nil)
	waitForClients(t, hub, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	_, srv := newTestHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=1"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.test"}})
	if err == nil {
		t.Fatal("Dial() succeeded for a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://allowed.test"}})
	if err != nil {
		t.Fatalf("Dial(allowed origin) err = %v", err)
	}
	conn.Close()
}

func TestHub_NotifyWithoutClientsDoesNotBlock(t *testing.T) {
	hub, _ := newTestHub(t)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.TransactionsChanged(context.Background(), 42)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("TransactionsChanged blocked")
	}
}
