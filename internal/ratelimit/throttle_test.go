// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.Equal(t, CeilingWithKey, New(true).Ceiling)
	assert.Equal(t, CeilingWithoutKey, New(false).Ceiling)
	assert.Equal(t, DefaultPause, New(false).Pause)
}

func TestThrottle(t *testing.T) {
	tests := []struct {
		name      string
		ceiling   int
		pending   int
		wantSlept bool
	}{
		{"below ceiling", 3, 2, false},
		{"at ceiling", 3, 3, false},
		{"above ceiling", 3, 4, true},
		{"keyed ceiling", 10, 10, false},
		{"keyed above", 10, 11, true},
		{"zero pending", 3, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slept []time.Duration
			th := &Throttler{
				Ceiling: tt.ceiling,
				Pause:   100 * time.Millisecond,
				Sleep:   func(d time.Duration) { slept = append(slept, d) },
			}
			got := th.Throttle(tt.pending)
			assert.Equal(t, tt.wantSlept, got)
			if tt.wantSlept {
				assert.Equal(t, []time.Duration{100 * time.Millisecond}, slept)
			} else {
				assert.Empty(t, slept)
			}
		})
	}
}

func TestThrottle_FixedPauseRegardlessOfExcess(t *testing.T) {
	var slept []time.Duration
	th := &Throttler{Ceiling: 3, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	th.Throttle(4)
	th.Throttle(400)

	assert.Equal(t, []time.Duration{DefaultPause, DefaultPause}, slept)
}

func TestThrottle_NilIsNoop(t *testing.T) {
	var th *Throttler
	assert.False(t, th.Throttle(100))
}
