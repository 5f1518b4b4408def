package sim

import (
	"testing"

	"github.com/Kyltetran/traffic-game/sim/internal/testutil"
)

// testConfig returns the default configuration, all signals GREEN.
func testConfig() SimConfig {
	return DefaultSimConfig(42)
}

// mustSimulator builds a simulator around a hand-made vehicle set.
func mustSimulator(t *testing.T, cfg SimConfig, vehicles ...*Vehicle) *Simulator {
	t.Helper()
	s, err := NewSimulatorFromVehicles(cfg, vehicles)
	if err != nil {
		t.Fatalf("NewSimulatorFromVehicles: %v", err)
	}
	return s
}

// movingVehicle returns a vehicle with the given velocity.
func movingVehicle(id int, kind Kind, road Road, lane int, pos, vel float64) *Vehicle {
	v := NewVehicle(id, kind, road, lane, pos)
	v.Velocity = vel
	return v
}

// samples converts the simulator's vehicles for the invariant checker.
func samples(s *Simulator) []testutil.VehicleSample {
	out := make([]testutil.VehicleSample, 0, len(s.Vehicles))
	for _, v := range s.Vehicles {
		out = append(out, testutil.VehicleSample{
			ID:        v.ID,
			Road:      string(v.Road),
			Position:  v.Position,
			Velocity:  v.Velocity,
			MaxSpeed:  v.EffectiveMaxVelocity(),
			HasExited: v.HasExited,
		})
	}
	return out
}

// runChecked ticks s until done or maxTicks, checking invariants every tick.
func runChecked(t *testing.T, s *Simulator, maxTicks int) *testutil.InvariantChecker {
	t.Helper()
	checker := testutil.NewInvariantChecker()
	checker.Observe(t, samples(s))
	for i := 0; i < maxTicks && !s.Done(); i++ {
		s.Tick()
		checker.Observe(t, samples(s))
	}
	return checker
}
