// Package timer paces emulation to a target clock frequency.
//
// The Synchronizer accumulates the emulated time represented by executed
// T-states and sleeps whenever it runs ahead of wall-clock time by at
// least a threshold.
// Emulated time is measured in microseconds: at 1 MHz one T-state is one
// microsecond, so the time for n T-states is n / MHz.
package timer

import (
	"errors"
	"fmt"
	"time"
)

// Effective frequency bounds, in MHz.
const (
	MinEffectiveMHz = 0.001
	MaxEffectiveMHz = 100
)

// DefaultMinWait is the least emulated time worth sleeping for.
const DefaultMinWait = 10 * time.Millisecond

// ErrFrequency is returned when the effective clock frequency is out of range.
var ErrFrequency = errors.New("effective clock frequency out of range")

// Synchronizer keeps an emulated processor from running faster than its clock.
type Synchronizer struct {
	effectiveMHz float64
	minWait      time.Duration

	running     bool
	accumulated float64   // microseconds of emulated time in this period
	since       time.Time // wall-clock start of the current period

	// Sleep is called with the time to wait. Defaults to time.Sleep.
	Sleep func(time.Duration)

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// New creates a synchronizer for the given clock frequency and speed factor.
func New(mhz, speedFactor float64) (*Synchronizer, error) {
	s := &Synchronizer{minWait: DefaultMinWait, Sleep: time.Sleep, Now: time.Now}
	if err := s.SetFrequency(mhz, speedFactor); err != nil {
		return nil, err
	}
	return s, nil
}

// SetFrequency sets the effective frequency to mhz * speedFactor.
func (s *Synchronizer) SetFrequency(mhz, speedFactor float64) error {
	effective := mhz * speedFactor
	if effective < MinEffectiveMHz || effective > MaxEffectiveMHz {
		return fmt.Errorf("%w: %g MHz x %g must be between %g and %g", ErrFrequency, mhz, speedFactor, MinEffectiveMHz, float64(MaxEffectiveMHz))
	}
	s.effectiveMHz = effective
	return nil
}

// EffectiveClockFrequencyMHz returns the frequency the synchronizer paces to.
func (s *Synchronizer) EffectiveClockFrequencyMHz() float64 {
	return s.effectiveMHz
}

// SetMinWait changes the sleep threshold.
func (s *Synchronizer) SetMinWait(d time.Duration) {
	s.minWait = d
}

// Start begins a synchronization session.
func (s *Synchronizer) Start() {
	if s.running {
		return
	}
	s.running = true
	s.accumulated = 0
	s.since = s.Now()
}

// Stop ends the session. Pending emulated time is discarded.
func (s *Synchronizer) Stop() {
	s.running = false
	s.accumulated = 0
}

// Running reports whether a session is active.
func (s *Synchronizer) Running() bool {
	return s.running
}

// TryWait accounts for tStates of execution. Once emulated time is ahead
// of the wall-clock time spent since the period began by at least the
// threshold, it sleeps for the difference and starts a new period.
func (s *Synchronizer) TryWait(tStates int) {
	if !s.running || tStates <= 0 {
		return
	}
	s.accumulated += float64(tStates) / s.effectiveMHz

	emulated := time.Duration(s.accumulated * float64(time.Microsecond))
	pending := emulated - s.Now().Sub(s.since)
	if pending < s.minWait {
		return
	}
	s.Sleep(pending)
	s.accumulated = 0
	s.since = s.Now()
}
