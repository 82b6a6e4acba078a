package timer

import (
	"errors"
	"testing"
	"time"
)

// fakeClock only moves when advanced, or when something sleeps on it.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClocked(t *testing.T, mhz, factor float64) (*Synchronizer, *fakeClock) {
	t.Helper()
	s, err := New(mhz, factor)
	if err != nil {
		t.Fatalf("New(%g, %g) error = %v", mhz, factor, err)
	}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.Now = clock.Now
	s.Sleep = clock.Sleep
	return s, clock
}

func newRecording(t *testing.T, mhz, factor float64) (*Synchronizer, *[]time.Duration) {
	t.Helper()
	s, clock := newClocked(t, mhz, factor)
	return s, &clock.sleeps
}

func TestNew(t *testing.T) {
	s, err := New(4, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.EffectiveClockFrequencyMHz() != 4 {
		t.Errorf("EffectiveClockFrequencyMHz() = %g, want 4", s.EffectiveClockFrequencyMHz())
	}
	if s.Running() {
		t.Error("new synchronizer should not be running")
	}
}

func TestFrequencyBounds(t *testing.T) {
	tests := []struct {
		mhz, factor float64
		wantErr     bool
	}{
		{4, 1, false},
		{4, 25, false},
		{4, 26, true},
		{1, 0.001, false},
		{1, 0.0001, true},
		{0, 1, true},
	}
	for _, tt := range tests {
		_, err := New(tt.mhz, tt.factor)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%g, %g) error = %v, wantErr %v", tt.mhz, tt.factor, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrFrequency) {
			t.Errorf("New(%g, %g) error = %v, want ErrFrequency", tt.mhz, tt.factor, err)
		}
	}
}

func TestSpeedFactor(t *testing.T) {
	s, _ := New(4, 1)
	if err := s.SetFrequency(3.5, 2); err != nil {
		t.Fatal(err)
	}
	if s.EffectiveClockFrequencyMHz() != 7 {
		t.Errorf("EffectiveClockFrequencyMHz() = %g, want 7", s.EffectiveClockFrequencyMHz())
	}
}

func TestTryWaitAccumulates(t *testing.T) {
	// 1 MHz: one T-state is one microsecond
	s, sleeps := newRecording(t, 1, 1)
	s.Start()

	s.TryWait(9_999)
	if len(*sleeps) != 0 {
		t.Fatalf("slept after 9999 us, want no sleep")
	}

	s.TryWait(1)
	if len(*sleeps) != 1 || (*sleeps)[0] != 10*time.Millisecond {
		t.Fatalf("sleeps = %v, want [10ms]", *sleeps)
	}

	// Accumulator resets after sleeping
	s.TryWait(5_000)
	if len(*sleeps) != 1 {
		t.Errorf("sleeps = %v, want one sleep", *sleeps)
	}
}

func TestTryWaitScalesWithFrequency(t *testing.T) {
	// 4 MHz: 40000 T-states is 10 ms
	s, sleeps := newRecording(t, 4, 1)
	s.Start()
	s.TryWait(39_996)
	if len(*sleeps) != 0 {
		t.Fatalf("slept early: %v", *sleeps)
	}
	s.TryWait(4)
	if len(*sleeps) != 1 {
		t.Fatalf("sleeps = %v, want one sleep", *sleeps)
	}
}

func TestTryWaitIgnoredWhenStopped(t *testing.T) {
	s, sleeps := newRecording(t, 1, 1)
	s.TryWait(1_000_000)
	if len(*sleeps) != 0 {
		t.Errorf("stopped synchronizer slept: %v", *sleeps)
	}

	s.Start()
	s.TryWait(9_000)
	s.Stop()
	s.Start()
	s.TryWait(2_000)
	if len(*sleeps) != 0 {
		t.Errorf("Stop() should discard pending time, sleeps = %v", *sleeps)
	}
}

func TestSetMinWait(t *testing.T) {
	s, sleeps := newRecording(t, 1, 1)
	s.SetMinWait(time.Millisecond)
	s.Start()
	s.TryWait(1_000)
	if len(*sleeps) != 1 || (*sleeps)[0] != time.Millisecond {
		t.Errorf("sleeps = %v, want [1ms]", *sleeps)
	}
}

func TestTryWaitSubtractsElapsedTime(t *testing.T) {
	s, clock := newClocked(t, 4, 1)
	s.Start()

	// Execution already took as long as the emulated 20 ms
	clock.Advance(20 * time.Millisecond)
	s.TryWait(80_000)
	if len(clock.sleeps) != 0 {
		t.Fatalf("sleeps = %v, want none when real time kept up", clock.sleeps)
	}

	// 40 ms emulated against 25 ms elapsed leaves 15 ms to wait
	clock.Advance(5 * time.Millisecond)
	s.TryWait(80_000)
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 15*time.Millisecond {
		t.Fatalf("sleeps = %v, want [15ms]", clock.sleeps)
	}

	// A new period starts after sleeping
	clock.Advance(2 * time.Millisecond)
	s.TryWait(40_000)
	if len(clock.sleeps) != 1 {
		t.Fatalf("sleeps = %v, want no second sleep (8ms pending)", clock.sleeps)
	}
	s.TryWait(8_000)
	if len(clock.sleeps) != 2 || clock.sleeps[1] != 10*time.Millisecond {
		t.Errorf("sleeps = %v, want second sleep of 10ms", clock.sleeps)
	}
}

func TestTryWaitBehindClock(t *testing.T) {
	s, clock := newClocked(t, 1, 1)
	s.Start()

	// Running slower than the clock never sleeps
	for range 10 {
		clock.Advance(20 * time.Millisecond)
		s.TryWait(10_000)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", clock.sleeps)
	}
}
