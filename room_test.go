package main

import (
	"testing"
	"time"
)

func newTestSession(clientID string) *Session {
	return &Session{
		clientID: clientID,
		connID:   "conn-" + clientID,
		send:     make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

func TestRoom_AddRemove(t *testing.T) {
	room := NewRoom("R1")

	s1 := newTestSession("c1")
	s2 := newTestSession("c2")

	room.Add(s1)
	if room.SessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", room.SessionCount())
	}

	room.Add(s2)
	if room.SessionCount() != 2 {
		t.Errorf("expected 2 sessions, got %d", room.SessionCount())
	}

	room.Remove(s1)
	room.Remove(s2)
	if room.SessionCount() != 0 {
		t.Errorf("expected 0 sessions, got %d", room.SessionCount())
	}
}

func TestRoom_BroadcastExcludesSender(t *testing.T) {
	room := NewRoom("R1")

	s1 := newTestSession("c1")
	s2 := newTestSession("c2")
	s3 := newTestSession("c3")
	room.Add(s1)
	room.Add(s2)
	room.Add(s3)

	room.Broadcast(s1.connID, []byte(`{"type":"play"}`))

	for _, s := range []*Session{s2, s3} {
		select {
		case msg := <-s.send:
			if string(msg) != `{"type":"play"}` {
				t.Errorf("%s got %q", s.clientID, msg)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("%s did not receive broadcast", s.clientID)
		}
	}

	select {
	case <-s1.send:
		t.Error("sender must not receive its own broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRoom_SameClientID_DifferentConn(t *testing.T) {
	// Reconnects reuse clientId; the server must treat them as distinct
	// sessions because rooms key on connID.
	room := NewRoom("R1")

	s1 := &Session{clientID: "same", connID: "conn-a", send: make(chan []byte, 16), done: make(chan struct{})}
	s2 := &Session{clientID: "same", connID: "conn-b", send: make(chan []byte, 16), done: make(chan struct{})}
	room.Add(s1)
	room.Add(s2)

	if room.SessionCount() != 2 {
		t.Fatalf("expected 2 sessions, got %d", room.SessionCount())
	}

	room.Broadcast("conn-a", []byte("x"))
	select {
	case <-s2.send:
	case <-time.After(100 * time.Millisecond):
		t.Error("second session with same clientId should receive broadcast")
	}
}

func TestRoom_BroadcastSkipsClosedAndFull(t *testing.T) {
	room := NewRoom("R1")

	closed := newTestSession("closed")
	closed.Close()
	full := &Session{clientID: "full", connID: "conn-full", send: make(chan []byte), done: make(chan struct{})}
	ok := newTestSession("ok")
	room.Add(closed)
	room.Add(full)
	room.Add(ok)

	// Must not block on the unbuffered (full) or closed sessions.
	doneCh := make(chan struct{})
	go func() {
		room.Broadcast("elsewhere", []byte("x"))
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow consumer")
	}

	select {
	case <-ok.send:
	case <-time.After(100 * time.Millisecond):
		t.Error("healthy session should receive broadcast")
	}
}

func TestRoom_LastActivity(t *testing.T) {
	room := NewRoom("R1")

	before := room.LastActivity()
	time.Sleep(10 * time.Millisecond)

	room.Add(newTestSession("c1"))
	if !room.LastActivity().After(before) {
		t.Error("LastActivity should advance after Add")
	}
}
