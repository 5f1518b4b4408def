package sim

// FindLeader returns the nearest active vehicle strictly ahead of v on the
// same road. On the main road the leader must also share v's lane; the ramp
// has one effective lane. Returns nil when the road ahead is free.
//
// This is a full scan. The vehicle count is capped at 120, so the O(n²) cost
// per tick stays small.
func FindLeader(v *Vehicle, vehicles []*Vehicle) *Vehicle {
	var leader *Vehicle
	for _, other := range vehicles {
		if other.ID == v.ID || other.HasExited || other.Road != v.Road {
			continue
		}
		if v.Road == RoadMain && other.Lane != v.Lane {
			continue
		}
		if other.Position <= v.Position {
			continue
		}
		if leader == nil || other.Position < leader.Position {
			leader = other
		}
	}
	return leader
}

// FindSignal returns the signal v is bound to at its current position, or nil.
// The binding is positional; whether it brakes the vehicle depends on its
// state (see Vehicle.SignalAcceleration).
func FindSignal(v *Vehicle, signals *Signals, road RoadConfig) *SignalBinding {
	var name SignalName
	var stopLine float64
	switch {
	case v.Road == RoadRamp && v.Position < rampEntryBandEnd:
		name, stopLine = SignalRampEntry, RampEntryStopLine
	case v.Road == RoadRamp && v.Position < rampMiddleBandEnd:
		name, stopLine = SignalRampMiddle, RampMiddleStopLine
	case v.Road == RoadMain && v.Position < road.MainSignalBandEnd():
		name, stopLine = SignalMainMerge, road.MainStopLine()
	default:
		return nil
	}
	state, _ := signals.State(name)
	return &SignalBinding{Name: name, StopLine: stopLine, State: state}
}
