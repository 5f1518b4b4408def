package sim

import "github.com/sirupsen/logrus"

const (
	// MergeTargetLane is the outer main-road lane ramp vehicles merge into.
	MergeTargetLane = 1

	// NoVehicleGap stands in for the gap when no vehicle is ahead or behind.
	NoVehicleGap = 1000.0

	// MergeGapNormal and MergeGapStiffened are the minimum accepted gaps.
	// A vehicle stopped for more than StiffenAfterTicks demands the larger one.
	MergeGapNormal    = 25.0
	MergeGapStiffened = 35.0
	StiffenAfterTicks = 20
)

// MergeBlock explains why a merge was not evaluated.
type MergeBlock string

const (
	MergeNotBlocked  MergeBlock = ""
	MergeOutOfWindow MergeBlock = "out-of-window"
	MergeBlockedRed  MergeBlock = "ramp-signal-red"
)

// MergeDecision is the outcome of evaluating one merge attempt.
// LeaderID and FollowerID are 0 when no candidate exists.
type MergeDecision struct {
	VehicleID  int
	Position   float64
	BlockedBy  MergeBlock
	GapFront   float64
	GapBack    float64
	Threshold  float64
	LeaderID   int
	FollowerID int
	Accepted   bool
}

// Eligible reports whether the gaps were evaluated at all.
func (d MergeDecision) Eligible() bool { return d.BlockedBy == MergeNotBlocked }

// MergeThreshold returns the minimum gap v needs on both sides.
func MergeThreshold(v *Vehicle) float64 {
	if v.StoppedTicks > StiffenAfterTicks {
		return MergeGapStiffened
	}
	return MergeGapNormal
}

// EvaluateMerge decides whether ramp vehicle v could move into the target lane
// now. It does not mutate anything.
func EvaluateMerge(v *Vehicle, vehicles []*Vehicle, signals *Signals, road RoadConfig) MergeDecision {
	d := MergeDecision{VehicleID: v.ID, Position: v.Position}
	if v.Road != RoadRamp || v.Position < road.MergeWindowStart() {
		d.BlockedBy = MergeOutOfWindow
		return d
	}
	// Both ramp signals must be cleared, even inside the merge window.
	if (signals.IsRed(SignalRampEntry) && v.Position < rampEntryBandEnd) ||
		(signals.IsRed(SignalRampMiddle) && v.Position < rampMiddleBandEnd) {
		d.BlockedBy = MergeBlockedRed
		return d
	}

	var leader, follower *Vehicle
	for _, other := range vehicles {
		if other.HasExited || other.Road != RoadMain || other.Lane != MergeTargetLane {
			continue
		}
		if other.Position > v.Position {
			if leader == nil || other.Position < leader.Position {
				leader = other
			}
		} else if follower == nil || other.Position > follower.Position {
			follower = other
		}
	}

	d.GapFront, d.GapBack = NoVehicleGap, NoVehicleGap
	if leader != nil {
		d.LeaderID = leader.ID
		d.GapFront = leader.Position - v.Position - leader.Params.Length
	}
	if follower != nil {
		d.FollowerID = follower.ID
		d.GapBack = v.Position - follower.Position - v.Params.Length
	}
	d.Threshold = MergeThreshold(v)
	d.Accepted = d.GapFront > d.Threshold && d.GapBack > d.Threshold
	return d
}

// ApplyMerge moves v onto the main road's target lane. Position is kept.
// Panics if v is not on the ramp: the road transition happens exactly once.
func ApplyMerge(v *Vehicle) {
	if v.Road != RoadRamp {
		panic("sim: merge applied to vehicle not on the ramp")
	}
	v.Road = RoadMain
	v.Lane = MergeTargetLane
	v.HasMerged = true
}

// AttemptMerge evaluates a merge for v and applies it when accepted.
func AttemptMerge(v *Vehicle, vehicles []*Vehicle, signals *Signals, road RoadConfig) bool {
	d := EvaluateMerge(v, vehicles, signals, road)
	if !d.Accepted {
		return false
	}
	ApplyMerge(v)
	logrus.Debugf("merge: %s (gapFront=%.1f gapBack=%.1f need>%.0f)", v, d.GapFront, d.GapBack, d.Threshold)
	return true
}
