package syncclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/videoparty/videoparty/pkg/syncwire"
)

// wsTestServer upgrades every /ws request and keeps the server side of
// each connection for the test to poke at.
type wsTestServer struct {
	ts       *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	s := &wsTestServer{}
	s.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		// Keep the read side alive so pings/closes are processed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(s.ts.Close)
	return s
}

func (s *wsTestServer) url() string {
	return "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws"
}

func (s *wsTestServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *wsTestServer) conn(i int) *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[i]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChannel_ConnectAndState(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewChannel(ChannelConfig{URL: srv.url(), ReconnectDelay: 50 * time.Millisecond})

	if ch.State() != StateDisconnected {
		t.Errorf("initial state = %v", ch.State())
	}
	if err := ch.Connect(context.Background(), "R1", "c1", ""); err != nil {
		t.Fatal(err)
	}
	defer ch.Disconnect()

	if ch.State() != StateOpen {
		t.Errorf("state after connect = %v, want open", ch.State())
	}
	if err := ch.Connect(context.Background(), "R1", "c1", ""); err == nil {
		t.Error("second connect on an open channel should fail")
	}
}

func TestChannel_DeliversValidDropsMalformed(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewChannel(ChannelConfig{URL: srv.url(), ReconnectDelay: 50 * time.Millisecond})

	received := make(chan syncwire.Event, 8)
	ch.OnMessage(func(ev syncwire.Event) { received <- ev })

	if err := ch.Connect(context.Background(), "R1", "c1", ""); err != nil {
		t.Fatal(err)
	}
	defer ch.Disconnect()
	waitFor(t, time.Second, func() bool { return srv.connCount() == 1 })

	server := srv.conn(0)
	for _, payload := range []string{"{{{", "{}", `{"type":"pause","roomId":"R1"}`} {
		if err := server.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			t.Fatal(err)
		}
	}
	valid := `{"type":"play","roomId":"R1","clientId":"c2","currentTime":3.5,"paused":false,"sentAtMs":1}`
	if err := server.WriteMessage(websocket.TextMessage, []byte(valid)); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-received:
		if ev.Type != syncwire.TypePlay || ev.ClientID != "c2" {
			t.Errorf("received = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid event not delivered")
	}

	select {
	case ev := <-received:
		t.Errorf("malformed payload delivered: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannel_SendWhileClosedDropsSilently(t *testing.T) {
	ch := NewChannel(ChannelConfig{URL: "ws://127.0.0.1:1/ws"})
	// Must not panic or block.
	ch.Send(syncwire.New(syncwire.TypePlay, "R1", "c1", 0, false, ""))
}

func TestChannel_ReconnectsAfterDrop(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewChannel(ChannelConfig{URL: srv.url(), ReconnectDelay: 50 * time.Millisecond})

	if err := ch.Connect(context.Background(), "R1", "c1", ""); err != nil {
		t.Fatal(err)
	}
	defer ch.Disconnect()
	waitFor(t, time.Second, func() bool { return srv.connCount() == 1 })

	_ = srv.conn(0).Close()

	waitFor(t, 2*time.Second, func() bool { return srv.connCount() == 2 })
	waitFor(t, time.Second, func() bool { return ch.State() == StateOpen })
}

func TestChannel_DisconnectCancelsReconnect(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewChannel(ChannelConfig{URL: srv.url(), ReconnectDelay: 100 * time.Millisecond})

	if err := ch.Connect(context.Background(), "R1", "c1", ""); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return srv.connCount() == 1 })

	_ = srv.conn(0).Close()
	// The retry is now pending; Disconnect must cancel it.
	time.Sleep(20 * time.Millisecond)
	ch.Disconnect()
	ch.Disconnect() // idempotent

	time.Sleep(300 * time.Millisecond)
	if srv.connCount() != 1 {
		t.Errorf("reconnected after Disconnect: %d conns", srv.connCount())
	}
	if ch.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", ch.State())
	}
}

func TestChannel_ReconnectableAfterDisconnect(t *testing.T) {
	srv := newWSTestServer(t)
	ch := NewChannel(ChannelConfig{URL: srv.url(), ReconnectDelay: 50 * time.Millisecond})

	if err := ch.Connect(context.Background(), "R1", "c1", ""); err != nil {
		t.Fatal(err)
	}
	ch.Disconnect()

	if err := ch.Connect(context.Background(), "R1", "c1", ""); err != nil {
		t.Fatalf("connect after disconnect: %v", err)
	}
	ch.Disconnect()
}
