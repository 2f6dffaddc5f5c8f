// Package syncwire defines the JSON wire format shared by the VideoParty
// server and client: one flat object per message, sent in both directions
// over the room WebSocket.
package syncwire

import (
	"encoding/json"
	"time"
)

// Event types understood by the room state machine. Messages with other
// types (e.g. chat) are still relayed to the room but never touch playback
// state.
const (
	TypeLoadVideo = "loadVideo"
	TypePlay      = "play"
	TypePause     = "pause"
	TypeSeek      = "seek"
	TypeTimeSync  = "timeSync"
)

// ServerClientID marks events originated by the server itself (late-join
// hand-off). Clients must apply these even though the ID matches no
// participant.
const ServerClientID = "server"

// Event is one sync message. CurrentTime is the sender's believed playback
// position in seconds at send time; SentAtMs is the sender's wall clock in
// milliseconds since epoch, used by receivers to compensate transit delay.
type Event struct {
	Type        string  `json:"type"`
	RoomID      string  `json:"roomId"`
	ClientID    string  `json:"clientId"`
	CurrentTime float64 `json:"currentTime"`
	Paused      bool    `json:"paused"`
	SentAtMs    int64   `json:"sentAtMs"`
	VideoURL    string  `json:"videoUrl,omitempty"`
}

// New builds an event stamped with the current wall clock.
func New(eventType, roomID, clientID string, currentTime float64, paused bool, videoURL string) Event {
	return Event{
		Type:        eventType,
		RoomID:      roomID,
		ClientID:    clientID,
		CurrentTime: currentTime,
		Paused:      paused,
		SentAtMs:    time.Now().UnixMilli(),
		VideoURL:    videoURL,
	}
}

// Valid reports whether the event carries every required field. Events
// failing this check are dropped silently on both sides.
func (e Event) Valid() bool {
	return e.Type != "" && e.RoomID != "" && e.ClientID != ""
}

// IsSyncType reports whether t is one of the playback sync types that
// update authoritative room state.
func IsSyncType(t string) bool {
	switch t {
	case TypeLoadVideo, TypePlay, TypePause, TypeSeek, TypeTimeSync:
		return true
	}
	return false
}

// Decode parses a raw message. It returns ok=false for non-JSON payloads
// and for events missing required fields.
func Decode(data []byte) (Event, bool) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, false
	}
	if !e.Valid() {
		return Event{}, false
	}
	return e, true
}

// SentAt converts the millisecond timestamp to a time.Time.
func (e Event) SentAt() time.Time {
	return time.UnixMilli(e.SentAtMs)
}
