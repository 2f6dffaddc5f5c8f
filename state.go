package main

import (
	"time"

	"github.com/videoparty/videoparty/pkg/driftsync"
	"github.com/videoparty/videoparty/pkg/syncwire"
)

// RoomState is the authoritative playback snapshot for one room. It is
// created lazily on the first sync event, mutated only by the hub loop, and
// deleted together with the room when the last session leaves.
type RoomState struct {
	VideoURL   string
	Position   float64 // seconds, as of LastUpdate
	Paused     bool
	LastUpdate time.Time
	LastSender string // diagnostics only
}

// Apply folds a sync event into the state. A videoUrl on any event adopts
// that video for the room, last writer wins.
func (s *RoomState) Apply(ev syncwire.Event, now time.Time) {
	if ev.VideoURL != "" {
		s.VideoURL = ev.VideoURL
	}
	s.Position = ev.CurrentTime
	s.Paused = ev.Paused
	s.LastUpdate = now
	s.LastSender = ev.ClientID
}

// ProjectedPosition returns the server's best estimate of the room's true
// playback position at now. While paused the stored position is exact;
// while playing, time elapsed since the last update is assumed to be
// continuous playback.
func (s *RoomState) ProjectedPosition(policy driftsync.Policy, now time.Time) float64 {
	return policy.EstimatePosition(s.Position, s.Paused, s.LastUpdate, now)
}
