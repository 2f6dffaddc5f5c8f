// Package driftsync implements the clock-drift model: pure functions that
// estimate the true playback position implied by a timestamped sync event
// and decide whether a local player has drifted far enough to warrant a
// corrective seek.
package driftsync

import (
	"math"
	"time"
)

// Policy holds the two tunables of the whole sync system.
//
// ThresholdSeconds is the drift beyond which a receiver seeks: smaller
// values cause visible seek-jank from frequent correction, larger values
// tolerate more visible desync.
//
// CompensationFactor is the fraction of elapsed wall time since the event
// was sent that is added to the sender's position while playing. 1.0 treats
// the full elapsed time as playback (the historical behavior of this
// feature); 0.5 is the symmetric-delay half-compensation variant. The
// factor is deliberately a config value, not a constant.
type Policy struct {
	ThresholdSeconds   float64
	CompensationFactor float64
}

// DefaultPolicy matches the values this system has shipped with.
var DefaultPolicy = Policy{
	ThresholdSeconds:   0.35,
	CompensationFactor: 1.0,
}

// EstimatePosition returns the best estimate of the sender's playback
// position at now. A paused sender accrues no drift, so its reported
// position is returned unchanged regardless of transit delay.
func (p Policy) EstimatePosition(position float64, paused bool, sentAt time.Time, now time.Time) float64 {
	if paused {
		return position
	}
	elapsed := now.Sub(sentAt).Seconds()
	return position + p.CompensationFactor*elapsed
}

// ShouldResync reports whether local playback has drifted beyond the
// threshold from the estimated position. NaN on either side always
// triggers a resync, failing toward correctness.
func (p Policy) ShouldResync(localPosition, estimatedPosition float64) bool {
	if math.IsNaN(localPosition) || math.IsNaN(estimatedPosition) {
		return true
	}
	return math.Abs(localPosition-estimatedPosition) > p.ThresholdSeconds
}
