package main

import "testing"

func TestIPLimiter_Allow(t *testing.T) {
	l := NewIPLimiter(10)
	defer l.Stop()

	if !l.Allow("1.2.3.4") {
		t.Error("first request should be allowed")
	}
	if !l.Allow("5.6.7.8") {
		t.Error("different IP should be allowed")
	}
}

func TestIPLimiter_BlocksBurstOverflow(t *testing.T) {
	l := NewIPLimiter(5) // burst = 10
	defer l.Stop()

	allowed := 0
	for i := 0; i < 30; i++ {
		if l.Allow("10.0.0.1") {
			allowed++
		}
	}

	if allowed < 5 {
		t.Errorf("expected at least 5 allowed in burst, got %d", allowed)
	}
	if allowed >= 30 {
		t.Error("limiter should have blocked some requests")
	}
}

func TestIPLimiter_IPsAreIndependent(t *testing.T) {
	l := NewIPLimiter(1)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		l.Allow("10.0.0.1")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("exhausting one IP must not affect another")
	}
}
