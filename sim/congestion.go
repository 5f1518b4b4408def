package sim

import "github.com/samber/lo"

// slowFraction of max velocity below which a moving vehicle counts as slow.
const slowFraction = 0.3

// ActiveVehicles returns the vehicles that have not exited.
func ActiveVehicles(vehicles []*Vehicle) []*Vehicle {
	return lo.Filter(vehicles, func(v *Vehicle, _ int) bool { return !v.HasExited })
}

// Congestion returns the weighted share of active vehicles that are stopped
// (counted twice) or slow, as a percentage. The value can exceed 100;
// displays must clamp it. Returns 0 when nothing is active.
func Congestion(vehicles []*Vehicle) float64 {
	active := ActiveVehicles(vehicles)
	if len(active) == 0 {
		return 0
	}
	stopped := lo.CountBy(active, func(v *Vehicle) bool { return v.IsStopped() })
	slow := lo.CountBy(active, func(v *Vehicle) bool {
		return !v.IsStopped() && v.Velocity < v.Params.MaxVelocity*slowFraction
	})
	return float64(2*stopped+slow) / float64(len(active)) * 100
}
