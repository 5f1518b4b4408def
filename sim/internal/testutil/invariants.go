// Package testutil provides shared test infrastructure for the traffic
// simulator: float comparison and per-tick invariant checks.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// VehicleSample is the part of a vehicle's state the invariants read.
// It is defined here so testutil does not import sim.
type VehicleSample struct {
	ID        int
	Road      string
	Position  float64
	Velocity  float64
	MaxSpeed  float64 // effective max velocity
	HasExited bool
}

// InvariantChecker compares consecutive samples of the same vehicle set and
// reports every violation of the per-tick invariants.
type InvariantChecker struct {
	prev        map[int]VehicleSample
	transitions map[int]int
	Ticks       int
}

// NewInvariantChecker creates a checker with no history.
func NewInvariantChecker() *InvariantChecker {
	return &InvariantChecker{
		prev:        make(map[int]VehicleSample),
		transitions: make(map[int]int),
	}
}

// Observe checks samples against the previous observation and stores them.
func (c *InvariantChecker) Observe(t *testing.T, samples []VehicleSample) {
	t.Helper()
	c.Ticks++
	const eps = 1e-9
	for _, s := range samples {
		if s.Velocity < 0 {
			t.Fatalf("tick %d: vehicle %d has negative velocity %v", c.Ticks, s.ID, s.Velocity)
		}
		if s.Velocity > s.MaxSpeed+eps {
			t.Fatalf("tick %d: vehicle %d velocity %v exceeds effective max %v", c.Ticks, s.ID, s.Velocity, s.MaxSpeed)
		}
		p, ok := c.prev[s.ID]
		if ok {
			if p.HasExited && !s.HasExited {
				t.Fatalf("tick %d: vehicle %d un-exited", c.Ticks, s.ID)
			}
			if !p.HasExited && s.Position < p.Position-eps {
				t.Fatalf("tick %d: vehicle %d moved backwards %v -> %v", c.Ticks, s.ID, p.Position, s.Position)
			}
			if p.Road != s.Road {
				if p.Road != "ramp" || s.Road != "main" {
					t.Fatalf("tick %d: vehicle %d changed road %s -> %s", c.Ticks, s.ID, p.Road, s.Road)
				}
				c.transitions[s.ID]++
				if c.transitions[s.ID] > 1 {
					t.Fatalf("tick %d: vehicle %d changed road more than once", c.Ticks, s.ID)
				}
			}
		}
		c.prev[s.ID] = s
	}
}

// Transitions returns how many vehicles moved from ramp to main so far.
func (c *InvariantChecker) Transitions() int {
	return len(c.transitions)
}
