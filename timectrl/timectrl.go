// Package timectrl drives broadcast time: a TimeController steps a clock at
// a fixed tick and fans each tick out to registered listeners.
package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController advances time.
type Mode int

const (
	// RealTime paces ticks with the wall clock.
	RealTime Mode = iota
	// Accelerated steps as fast as the loop runs, for replays and tests.
	Accelerated
)

// TimeController owns the tick loop. Listeners receive the tick time; in
// RealTime mode with a current StartTime that tracks the wall clock closely,
// in Accelerated mode it is a fast-forwarded simulated clock.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time

	listeners []func(time.Time)
}

// NewTimeController constructs a controller parked at start.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current tick time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime overrides the current tick time. Intended for tests that need a
// controller parked at a known instant.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every tick. Register all
// listeners before calling Start; the slice is not guarded afterwards.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the tick loop in a goroutine until ctx is canceled or the
// controller has advanced by duration (0 means run until canceled). The
// returned channel closes when the loop exits. Listeners run on the loop
// goroutine, so a slow listener delays the next tick rather than piling up.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.Lock()
		simTime := tc.StartTime
		tc.currentTime = simTime
		tc.mu.Unlock()

		elapsed := time.Duration(0)

		var tick <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else {
				select {
				case <-ctx.Done():
					return
				default:
				}
			}

			simTime = simTime.Add(tc.Tick)
			elapsed += tc.Tick

			tc.mu.Lock()
			tc.currentTime = simTime
			tc.mu.Unlock()

			for _, fn := range tc.listeners {
				fn(simTime)
			}
		}
	}()
	return done
}
