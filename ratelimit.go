package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterSweepEvery = 5 * time.Minute

// IPLimiter caps WebSocket connection attempts and API calls per client IP,
// so one misbehaving client cannot churn rooms for everyone. Idle entries
// are swept periodically; Stop ends the sweeper.
type IPLimiter struct {
	mu      sync.Mutex
	perIP   map[string]*ipEntry
	rps     rate.Limit
	burst   int
	stopped chan struct{}
}

type ipEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewIPLimiter(rps float64) *IPLimiter {
	l := &IPLimiter{
		perIP:   make(map[string]*ipEntry),
		rps:     rate.Limit(rps),
		burst:   int(rps) * 2,
		stopped: make(chan struct{}),
	}
	go l.sweep()
	return l
}

func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	e, ok := l.perIP[ip]
	if !ok {
		e = &ipEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.perIP[ip] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()

	return e.lim.Allow()
}

func (l *IPLimiter) Stop() {
	select {
	case <-l.stopped:
	default:
		close(l.stopped)
	}
}

func (l *IPLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopped:
			return
		case <-ticker.C:
			l.mu.Lock()
			cutoff := time.Now().Add(-2 * limiterSweepEvery)
			for ip, e := range l.perIP {
				if e.lastSeen.Before(cutoff) {
					delete(l.perIP, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}
