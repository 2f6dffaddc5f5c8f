package main

import (
	"sync"
	"time"
)

// Room tracks the sessions connected for one roomID. The authoritative
// RoomState lives in the hub's state map, keyed by the same ID; the room
// itself is only membership plus fan-out.
type Room struct {
	id           string
	mu           sync.RWMutex
	sessions     map[string]*Session // keyed by connID
	lastActivity time.Time
}

func NewRoom(id string) *Room {
	return &Room{
		id:           id,
		sessions:     make(map[string]*Session),
		lastActivity: time.Now(),
	}
}

func (r *Room) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.connID] = s
	r.lastActivity = time.Now()
}

func (r *Room) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.connID)
	r.lastActivity = time.Now()
}

func (r *Room) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Room) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity
}

// Broadcast sends data to every session except the sender. Delivery is
// best-effort: sessions whose send buffer is full are skipped, not queued.
func (r *Room) Broadcast(senderConnID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity = time.Now()
	for _, s := range r.sessions {
		if s.connID == senderConnID {
			continue
		}
		s.trySend(data)
	}
}

func (r *Room) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		s.Close()
	}
}
