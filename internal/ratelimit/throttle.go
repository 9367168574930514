// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit keeps outbound E-utilities traffic under the NCBI
// request ceiling with a fixed, non-adaptive pause.
package ratelimit

import "time"

const (
	// CeilingWithKey is the NCBI ceiling for requests carrying an API key.
	CeilingWithKey = 10

	// CeilingWithoutKey is the NCBI ceiling for anonymous requests.
	CeilingWithoutKey = 3

	// DefaultPause is the fixed sleep applied when a batch exceeds the ceiling.
	DefaultPause = 500 * time.Millisecond
)

// Throttler pauses the caller when a batch of requests exceeds the
// per-second ceiling. It does not track elapsed time or remaining budget,
// and it does not react to rate-limit responses.
type Throttler struct {
	Ceiling int
	Pause   time.Duration

	// Sleep is called to pause. Tests replace it; nil means time.Sleep.
	Sleep func(time.Duration)
}

// New returns a Throttler with the ceiling NCBI grants for the given
// credential state.
func New(hasCredential bool) *Throttler {
	ceiling := CeilingWithoutKey
	if hasCredential {
		ceiling = CeilingWithKey
	}
	return &Throttler{Ceiling: ceiling, Pause: DefaultPause}
}

// Throttle sleeps for the fixed pause if pending exceeds the ceiling and
// reports whether it slept. Callers reset their pending count after a pause.
func (t *Throttler) Throttle(pending int) bool {
	if t == nil || pending <= t.Ceiling {
		return false
	}
	pause := t.Pause
	if pause <= 0 {
		pause = DefaultPause
	}
	sleep := t.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(pause)
	return true
}
