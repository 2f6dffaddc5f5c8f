package syncclient

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/videoparty/videoparty/pkg/driftsync"
	"github.com/videoparty/videoparty/pkg/syncwire"
)

// MediaPlayer is the local media element the controller drives. Position
// and Seek are in seconds. Play returns an error when the runtime refuses
// to start playback (autoplay policy); the controller then retries muted.
type MediaPlayer interface {
	Load(url string)
	Play() error
	Pause()
	Seek(position float64)
	Position() float64
	SetMuted(muted bool)
}

// EventChannel is what the controller needs from the transport; *Channel
// implements it.
type EventChannel interface {
	Send(ev syncwire.Event)
	OnMessage(handler func(syncwire.Event))
	Disconnect()
}

// PlaybackState is the controller's local state machine.
type PlaybackState int

const (
	StateNoVideo PlaybackState = iota
	StateLoaded
	StatePlaying
	StatePaused
)

func (s PlaybackState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "no video"
	}
}

const (
	defaultHeartbeatInterval = 5 * time.Second
	defaultSuppressWindow    = 100 * time.Millisecond
)

// ControllerConfig configures a Controller. Zero values get sane defaults;
// ClientID defaults to a fresh UUID per controller.
type ControllerConfig struct {
	RoomID            string
	ClientID          string
	Policy            driftsync.Policy
	HeartbeatInterval time.Duration
	SuppressWindow    time.Duration
	Logger            *zap.Logger

	// ResolveVideoURL maps a videoUrl received over sync (a /media/... ref)
	// to the URL the local player should load. Defaults to identity.
	ResolveVideoURL func(videoURL string) string
}

// Controller owns one local media player and keeps it converged with a
// room: local intent goes out as sync events, remote events come back in
// and are applied through the drift model.
type Controller struct {
	ch     EventChannel
	player MediaPlayer
	cfg    ControllerConfig
	log    *zap.Logger

	mu              sync.Mutex
	state           PlaybackState
	videoURL        string // as broadcast over sync, not resolved
	lastRemoteApply time.Time
	playbackBlocked bool

	stopHeartbeat chan struct{}
	closeOnce     sync.Once

	now func() time.Time // test hook
}

func NewController(ch EventChannel, player MediaPlayer, cfg ControllerConfig) *Controller {
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.Policy == (driftsync.Policy{}) {
		cfg.Policy = driftsync.DefaultPolicy
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.SuppressWindow <= 0 {
		cfg.SuppressWindow = defaultSuppressWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ResolveVideoURL == nil {
		cfg.ResolveVideoURL = func(u string) string { return u }
	}
	return &Controller{
		ch:            ch,
		player:        player,
		cfg:           cfg,
		log:           cfg.Logger,
		state:         StateNoVideo,
		stopHeartbeat: make(chan struct{}),
		now:           time.Now,
	}
}

// Start subscribes to the channel and begins the heartbeat loop. Call Close
// when leaving the room.
func (c *Controller) Start() {
	c.ch.OnMessage(c.applyRemote)
	go c.heartbeatLoop()
}

// Close stops the heartbeat and disconnects the channel. Idempotent.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.stopHeartbeat)
		c.ch.Disconnect()
	})
}

func (c *Controller) ClientID() string { return c.cfg.ClientID }

func (c *Controller) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PlaybackBlocked reports that the runtime refused unmuted playback and the
// controller fell back to muted playback. The UI should offer an explicit
// "enable audio" gesture and then call EnableAudio.
func (c *Controller) PlaybackBlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playbackBlocked
}

// EnableAudio unmutes after a user gesture and clears the blocked flag.
func (c *Controller) EnableAudio() {
	c.mu.Lock()
	c.playbackBlocked = false
	c.mu.Unlock()
	c.player.SetMuted(false)
}

// SelectVideo is the local "user picked a video" action: load it paused at
// position zero and announce it to the room.
func (c *Controller) SelectVideo(videoURL string) {
	c.player.Load(c.cfg.ResolveVideoURL(videoURL))

	c.mu.Lock()
	c.videoURL = videoURL
	c.state = StateLoaded
	c.mu.Unlock()

	c.emit(syncwire.TypeLoadVideo, 0, true, videoURL)
}

// TogglePlayPause flips between playing and paused and announces the new
// state at the current position.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	playing := c.state == StatePlaying
	c.mu.Unlock()
	if playing {
		c.Pause()
	} else {
		c.Play()
	}
}

func (c *Controller) Play() {
	c.startPlayback()
	c.emit(syncwire.TypePlay, c.player.Position(), false, "")
}

func (c *Controller) Pause() {
	c.player.Pause()
	c.mu.Lock()
	c.state = StatePaused
	c.mu.Unlock()
	c.emit(syncwire.TypePause, c.player.Position(), true, "")
}

// SeekTo is the local seek action: move the player and announce the new
// position with the current paused flag.
func (c *Controller) SeekTo(position float64) {
	c.player.Seek(position)
	c.mu.Lock()
	paused := c.state != StatePlaying
	c.mu.Unlock()
	c.emit(syncwire.TypeSeek, position, paused, "")
}

// startPlayback starts the player, falling back to muted playback when the
// runtime rejects the start (autoplay policy). Never fails silently: when
// even muted playback is refused the state still flips to playing so sync
// position keeps being tracked, and the blocked flag is raised.
func (c *Controller) startPlayback() {
	err := c.player.Play()
	if err != nil {
		c.log.Warn("playback rejected, retrying muted", zap.Error(err))
		c.player.SetMuted(true)
		err = c.player.Play()
		c.mu.Lock()
		c.playbackBlocked = true
		c.mu.Unlock()
		if err != nil {
			c.log.Warn("muted playback rejected too", zap.Error(err))
		}
	}
	c.mu.Lock()
	c.state = StatePlaying
	c.mu.Unlock()
}

// emit sends a local-intent event unless inside the suppression window
// after a remote apply. The window keeps "the element paused because a
// remote pause was applied" from re-emitting and bouncing forever between
// clients.
func (c *Controller) emit(eventType string, position float64, paused bool, videoURL string) {
	c.mu.Lock()
	suppressed := c.now().Sub(c.lastRemoteApply) < c.cfg.SuppressWindow
	c.mu.Unlock()
	if suppressed {
		return
	}

	ev := syncwire.Event{
		Type:        eventType,
		RoomID:      c.cfg.RoomID,
		ClientID:    c.cfg.ClientID,
		CurrentTime: position,
		Paused:      paused,
		SentAtMs:    c.now().UnixMilli(),
		VideoURL:    videoURL,
	}
	c.ch.Send(ev)
}

// applyRemote applies one inbound event. Own events are filtered by
// clientId; server hand-off events pass the filter even though "server" is
// no participant. Every kind runs the drift check; play and pause
// additionally force the local transport state, idempotently.
func (c *Controller) applyRemote(ev syncwire.Event) {
	if ev.ClientID == c.cfg.ClientID {
		return
	}
	if ev.RoomID != c.cfg.RoomID {
		return
	}

	now := c.now()
	c.mu.Lock()
	c.lastRemoteApply = now
	currentVideo := c.videoURL
	c.mu.Unlock()

	if ev.Type == syncwire.TypeLoadVideo && ev.VideoURL != "" && ev.VideoURL != currentVideo {
		c.player.Load(c.cfg.ResolveVideoURL(ev.VideoURL))
		c.mu.Lock()
		c.videoURL = ev.VideoURL
		if c.state == StateNoVideo {
			c.state = StateLoaded
		}
		c.mu.Unlock()
		c.log.Info("remote video switch", zap.String("video", ev.VideoURL))
	}

	estimated := c.cfg.Policy.EstimatePosition(ev.CurrentTime, ev.Paused, ev.SentAt(), now)
	if c.cfg.Policy.ShouldResync(c.player.Position(), estimated) {
		c.player.Seek(estimated)
	}

	switch ev.Type {
	case syncwire.TypePlay:
		c.mu.Lock()
		alreadyPlaying := c.state == StatePlaying
		c.mu.Unlock()
		if !alreadyPlaying {
			c.startPlayback()
		}
	case syncwire.TypePause:
		c.mu.Lock()
		wasPlaying := c.state == StatePlaying
		c.state = StatePaused
		c.mu.Unlock()
		if wasPlaying {
			c.player.Pause()
		}
	case syncwire.TypeTimeSync:
		// Drift check above is the whole effect; a timeSync carries no
		// transport-state change.
	}
}

// heartbeatLoop emits the steady-state timeSync while playing. Without it
// two continuously playing clients would slowly diverge with no event to
// trigger correction.
func (c *Controller) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHeartbeat:
			return
		case <-ticker.C:
			c.mu.Lock()
			playing := c.state == StatePlaying
			c.mu.Unlock()
			if playing {
				c.emit(syncwire.TypeTimeSync, c.player.Position(), false, "")
			}
		}
	}
}
