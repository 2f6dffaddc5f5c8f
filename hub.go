package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/videoparty/videoparty/pkg/driftsync"
	"github.com/videoparty/videoparty/pkg/syncwire"
)

// RoomEvent is one inbound message together with the session it arrived on.
type RoomEvent struct {
	Session *Session
	Event   syncwire.Event
	Raw     []byte
}

// Hub is the room registry and state machine. All room and state mutations
// happen on the Run loop, so rooms never need cross-room coordination; the
// maps are additionally guarded by mu for the read-only lookups the HTTP
// layer does before upgrading a connection.
type Hub struct {
	cfg    *Config
	log    *zap.Logger
	policy driftsync.Policy

	mu     sync.RWMutex
	rooms  map[string]*Room
	states map[string]*RoomState

	registerCh   chan *Session
	unregisterCh chan *Session
	eventCh      chan *RoomEvent
}

func NewHub(cfg *Config, log *zap.Logger) *Hub {
	return &Hub{
		cfg: cfg,
		log: log,
		policy: driftsync.Policy{
			ThresholdSeconds:   cfg.ResyncThresholdSec,
			CompensationFactor: cfg.DriftCompensation,
		},
		rooms:        make(map[string]*Room),
		states:       make(map[string]*RoomState),
		registerCh:   make(chan *Session, 64),
		unregisterCh: make(chan *Session, 64),
		eventCh:      make(chan *RoomEvent, 1024),
	}
}

func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case s := <-h.registerCh:
			h.addSession(s)

		case s := <-h.unregisterCh:
			h.removeSession(s)

		case ev := <-h.eventCh:
			h.handleEvent(ev)

		case <-ticker.C:
			h.cleanupIdleRooms()
		}
	}
}

func (h *Hub) Register(s *Session)   { h.registerCh <- s }
func (h *Hub) Unregister(s *Session) { h.unregisterCh <- s }
func (h *Hub) Dispatch(ev *RoomEvent) {
	select {
	case h.eventCh <- ev:
	default:
		// Event queue full: drop. Stale sync events are worse than lost
		// ones; the next heartbeat re-converges the room.
	}
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) SessionCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[roomID]; ok {
		return room.SessionCount()
	}
	return 0
}

func (h *Hub) addSession(s *Session) {
	h.mu.Lock()
	room, ok := h.rooms[s.roomID]
	if !ok {
		room = NewRoom(s.roomID)
		h.rooms[s.roomID] = room
	}
	state := h.states[s.roomID]
	h.mu.Unlock()

	room.Add(s)
	h.log.Info("session joined",
		zap.String("client", s.clientID),
		zap.String("room", s.roomID),
		zap.Int("room_size", room.SessionCount()))

	if s.conn != nil {
		go s.ReadPump()
		go s.WritePump()
	}

	if state != nil && state.VideoURL != "" {
		h.sendHandoff(s, *state)
	}
}

// sendHandoff brings a late joiner up to the room's current position: a
// loadVideo with the drift-projected position immediately, then a timeSync
// after a short delay so the client has a chance to finish loading the
// source before the corrective seek. Both use the reserved server clientId.
func (h *Hub) sendHandoff(s *Session, state RoomState) {
	now := time.Now()
	load := syncwire.Event{
		Type:        syncwire.TypeLoadVideo,
		RoomID:      s.roomID,
		ClientID:    syncwire.ServerClientID,
		CurrentTime: state.ProjectedPosition(h.policy, now),
		Paused:      state.Paused,
		SentAtMs:    now.UnixMilli(),
		VideoURL:    state.VideoURL,
	}
	s.sendEvent(load)
	h.log.Info("hand-off sent",
		zap.String("client", s.clientID),
		zap.String("room", s.roomID),
		zap.String("video", state.VideoURL),
		zap.Float64("position", load.CurrentTime))

	// The state value is captured by copy: a concurrent room update between
	// now and the timer firing yields a slightly stale anchor, which the
	// next heartbeat corrects.
	time.AfterFunc(h.cfg.HandoffDelay, func() {
		fire := time.Now()
		s.sendEvent(syncwire.Event{
			Type:        syncwire.TypeTimeSync,
			RoomID:      s.roomID,
			ClientID:    syncwire.ServerClientID,
			CurrentTime: state.ProjectedPosition(h.policy, fire),
			Paused:      state.Paused,
			SentAtMs:    fire.UnixMilli(),
			VideoURL:    state.VideoURL,
		})
	})
}

func (h *Hub) removeSession(s *Session) {
	h.mu.Lock()
	room, ok := h.rooms[s.roomID]
	if ok {
		room.Remove(s)
		if room.SessionCount() == 0 {
			delete(h.rooms, s.roomID)
			delete(h.states, s.roomID)
			h.log.Info("room deleted", zap.String("room", s.roomID))
		}
	}
	h.mu.Unlock()

	h.log.Info("session left",
		zap.String("client", s.clientID),
		zap.String("room", s.roomID))
}

func (h *Hub) handleEvent(ev *RoomEvent) {
	h.mu.RLock()
	room, ok := h.rooms[ev.Event.RoomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if syncwire.IsSyncType(ev.Event.Type) {
		h.mu.Lock()
		state, ok := h.states[ev.Event.RoomID]
		if !ok {
			state = &RoomState{Position: 0, Paused: true}
			h.states[ev.Event.RoomID] = state
		}
		state.Apply(ev.Event, time.Now())
		h.mu.Unlock()

		if ev.Event.Type == syncwire.TypeLoadVideo {
			h.log.Info("room video changed",
				zap.String("room", ev.Event.RoomID),
				zap.String("video", ev.Event.VideoURL))
		}
	}

	// Relay verbatim to everyone else in the room, never echoing back to the
	// sender. Non-sync types (e.g. chat) ride along untouched.
	room.Broadcast(ev.Session.connID, ev.Raw)
}

func (h *Hub) cleanupIdleRooms() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for id, room := range h.rooms {
		if now.Sub(room.LastActivity()) > h.cfg.RoomIdleTimeout {
			room.CloseAll()
			delete(h.rooms, id)
			delete(h.states, id)
			h.log.Info("room cleaned up (idle)", zap.String("room", id))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.rooms {
		room.CloseAll()
	}
	h.rooms = make(map[string]*Room)
	h.states = make(map[string]*RoomState)
}

// stateSnapshot returns a copy of a room's state for tests and diagnostics.
func (h *Hub) stateSnapshot(roomID string) (RoomState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.states[roomID]; ok {
		return *s, true
	}
	return RoomState{}, false
}
