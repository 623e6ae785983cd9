// Package budget bounds how long a single activation may run before the
// remaining pipeline is abandoned in favor of going back to sleep.
package budget

import "time"

// DefaultMaxRuntime is the default per-activation runtime allowance.
const DefaultMaxRuntime = 30 * time.Second

// Guard tracks elapsed wall time since the start of the activation against
// a fixed allowance. It is polled at fixed pipeline checkpoints; it never
// preempts.
type Guard struct {
	start   time.Time
	max     time.Duration
	now     func() time.Time
	tripped bool
}

// NewGuard creates a guard anchored at the current instant.
func NewGuard(max time.Duration) *Guard {
	return NewGuardAt(max, time.Now)
}

// NewGuardAt creates a guard with an injectable time source.
func NewGuardAt(max time.Duration, now func() time.Time) *Guard {
	return &Guard{
		start: now(),
		max:   max,
		now:   now,
	}
}

// Elapsed returns the wall time spent in this activation so far.
func (g *Guard) Elapsed() time.Duration {
	return g.now().Sub(g.start)
}

// ShouldYield reports whether the runtime allowance has been spent. Once it
// returns true it stays true for the remainder of the activation.
func (g *Guard) ShouldYield() bool {
	if g.tripped {
		return true
	}
	if g.Elapsed() >= g.max {
		g.tripped = true
	}
	return g.tripped
}
