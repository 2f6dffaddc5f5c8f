package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/videoparty/videoparty/pkg/syncwire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxEventSize   = 64 * 1024
	sendBufferSize = 64
)

// Session is one connected participant: the socket handle plus the
// identifiers it connected with. clientID comes from the client and is not
// deduplicated (a reconnect with the same clientID is a fresh session);
// connID is generated server-side and is what rooms key on.
type Session struct {
	hub      *Hub
	conn     *websocket.Conn
	log      *zap.Logger
	roomID   string
	clientID string
	connID   string
	ip       string

	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewSession(hub *Hub, conn *websocket.Conn, roomID, clientID, ip string) *Session {
	return &Session{
		hub:      hub,
		conn:     conn,
		log:      hub.log,
		roomID:   roomID,
		clientID: clientID,
		connID:   uuid.NewString(),
		ip:       ip,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// trySend enqueues data for the write pump without blocking. It reports
// false if the session is closed or its buffer is full; a slow consumer
// loses the message rather than stalling the room.
func (s *Session) trySend(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) sendEvent(ev syncwire.Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	return s.trySend(data)
}

func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// ReadPump consumes inbound messages until the connection drops. Malformed
// payloads and events missing required fields are discarded silently; valid
// ones are handed to the hub for state update and fan-out. Events claiming
// a different room than the one this socket joined are dropped too.
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Unregister(s)
		s.Close()
	}()

	s.conn.SetReadLimit(maxEventSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read error",
					zap.String("client", s.clientID),
					zap.String("room", s.roomID),
					zap.Error(err))
			}
			return
		}

		ev, ok := syncwire.Decode(data)
		if !ok {
			continue
		}
		if ev.RoomID != s.roomID {
			continue
		}
		s.hub.Dispatch(&RoomEvent{Session: s, Event: ev, Raw: data})
	}
}

// WritePump drains the send buffer to the socket and keeps the connection
// alive with periodic pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
