// E2E test: connects two sync clients through a live VideoParty server and
// checks that play/seek/pause converge within the resync threshold.
// Usage: go run ./cmd/e2etest -server ws://localhost:8080/ws
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/videoparty/videoparty/pkg/driftsync"
	"github.com/videoparty/videoparty/pkg/syncclient"
)

var (
	serverURL = flag.String("server", "ws://localhost:8080/ws", "sync WebSocket URL")
	token     = flag.String("token", "", "shared token (if the server requires one)")
)

// simPlayer is a headless media player whose position advances with the
// wall clock while playing.
type simPlayer struct {
	mu       sync.Mutex
	playing  bool
	position float64
	anchor   time.Time
	loaded   string
}

func (p *simPlayer) Load(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = url
	p.playing = false
	p.position = 0
}

func (p *simPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		p.playing = true
		p.anchor = time.Now()
	}
	return nil
}

func (p *simPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		p.position += time.Since(p.anchor).Seconds()
		p.playing = false
	}
}

func (p *simPlayer) Seek(position float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = position
	p.anchor = time.Now()
}

func (p *simPlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return p.position + time.Since(p.anchor).Seconds()
	}
	return p.position
}

func (p *simPlayer) SetMuted(bool) {}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	roomID := "e2e-test-room"
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- Connect client A ---
	log.Println(">> Connecting client A...")
	playerA := &simPlayer{}
	chanA := syncclient.NewChannel(syncclient.ChannelConfig{URL: *serverURL})
	ctrlA := syncclient.NewController(chanA, playerA, syncclient.ControllerConfig{RoomID: roomID})
	if err := chanA.Connect(ctx, roomID, ctrlA.ClientID(), *token); err != nil {
		log.Fatal("client A connect:", err)
	}
	ctrlA.Start()
	defer ctrlA.Close()
	log.Println("   Client A connected")

	// --- Connect client B ---
	log.Println(">> Connecting client B...")
	playerB := &simPlayer{}
	chanB := syncclient.NewChannel(syncclient.ChannelConfig{URL: *serverURL})
	ctrlB := syncclient.NewController(chanB, playerB, syncclient.ControllerConfig{RoomID: roomID})
	if err := chanB.Connect(ctx, roomID, ctrlB.ClientID(), *token); err != nil {
		log.Fatal("client B connect:", err)
	}
	ctrlB.Start()
	defer ctrlB.Close()
	log.Println("   Client B connected")

	threshold := driftsync.DefaultPolicy.ThresholdSeconds

	// --- Test: A loads a video, B follows ---
	log.Println(">> Client A selects a video...")
	ctrlA.SelectVideo("/media/e2e.mp4")
	time.Sleep(500 * time.Millisecond)
	if ctrlB.State() == syncclient.StateNoVideo {
		log.Fatal("client B did not receive loadVideo")
	}
	log.Println("   Client B loaded the video")

	// --- Test: A seeks and plays, B converges ---
	log.Println(">> Client A seeks to 10s and plays...")
	ctrlA.SeekTo(10.0)
	time.Sleep(200 * time.Millisecond)
	ctrlA.Play()
	time.Sleep(700 * time.Millisecond)

	drift := math.Abs(playerA.Position() - playerB.Position())
	log.Printf("   A=%.2fs B=%.2fs drift=%.3fs", playerA.Position(), playerB.Position(), drift)
	if drift > threshold {
		log.Fatalf("clients diverged beyond threshold (%.3fs > %.3fs)", drift, threshold)
	}
	if ctrlB.State() != syncclient.StatePlaying {
		log.Fatalf("client B state = %s, want playing", ctrlB.State())
	}
	log.Println("   Converged within threshold")

	// --- Test: A pauses, B stops ---
	log.Println(">> Client A pauses...")
	ctrlA.Pause()
	time.Sleep(500 * time.Millisecond)
	if ctrlB.State() != syncclient.StatePaused {
		log.Fatalf("client B state = %s, want paused", ctrlB.State())
	}
	log.Println("   Client B paused")

	fmt.Println()
	log.Println("═══════════════════════════════")
	log.Println("  E2E TEST PASSED")
	log.Println("═══════════════════════════════")
}
