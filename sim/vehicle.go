// Defines the Vehicle entity and its longitudinal dynamics: car-following with
// friction, signal braking, and fixed-step integration.

package sim

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Kind selects a fixed parameter set for a vehicle.
type Kind string

const (
	KindCar   Kind = "car"
	KindTruck Kind = "truck"
)

// Road identifies the carriageway a vehicle currently occupies.
type Road string

const (
	RoadRamp Road = "ramp"
	RoadMain Road = "main"
)

const (
	// StoppedVelocity is the near-zero threshold below which a vehicle counts
	// as stopped and static friction applies.
	StoppedVelocity = 0.5

	// signalBrakeRange is how far upstream of a RED stop line braking starts.
	signalBrakeRange = 80.0
	// signalHardBrakeRange is the distance below which braking doubles.
	signalHardBrakeRange = 5.0

	// minGapDenominator keeps the interaction term finite at tiny or negative gaps.
	minGapDenominator = 0.1
)

// KindParams holds the car-following parameters fixed by a vehicle's kind.
type KindParams struct {
	Length              float64 `json:"length"`
	MaxVelocity         float64 `json:"max_velocity"`
	MaxAcceleration     float64 `json:"max_acceleration"`
	ComfortDeceleration float64 `json:"comfort_deceleration"`
	MinGap              float64 `json:"min_gap"`
	DesiredTimeHeadway  float64 `json:"desired_time_headway"`
	StaticFriction      float64 `json:"static_friction"`
	RollingFriction     float64 `json:"rolling_friction"`
	Mass                float64 `json:"mass"` // relative weighting, car = 1
}

var kindParams = map[Kind]KindParams{
	KindCar: {
		Length:              7,
		MaxVelocity:         26,
		MaxAcceleration:     2.0,
		ComfortDeceleration: 2.5,
		MinGap:              2.0,
		DesiredTimeHeadway:  1.2,
		StaticFriction:      0.8,
		RollingFriction:     0.15,
		Mass:                1.0,
	},
	KindTruck: {
		Length:              15,
		MaxVelocity:         20,
		MaxAcceleration:     1.2,
		ComfortDeceleration: 2.5,
		MinGap:              2.0,
		DesiredTimeHeadway:  1.2,
		StaticFriction:      0.8,
		RollingFriction:     0.15,
		Mass:                2.0,
	},
}

// ParamsFor returns the parameter set for kind. Panics on an unknown kind.
func ParamsFor(kind Kind) KindParams {
	p, ok := kindParams[kind]
	if !ok {
		panic(fmt.Sprintf("sim: unknown vehicle kind %q", kind))
	}
	return p
}

// Vehicle is one agent in the simulation. All vehicles live for the whole run;
// HasExited marks logical completion and excludes the vehicle from every query.
type Vehicle struct {
	ID   int
	Kind Kind
	Road Road
	Lane int

	Position     float64
	Velocity     float64
	Acceleration float64 // derived each tick

	Params KindParams

	StoppedTicks int  // consecutive ticks spent below StoppedVelocity
	HasMerged    bool // set once on the ramp→main transition
	HasExited    bool
}

// NewVehicle creates a vehicle at rest with the parameters for kind.
func NewVehicle(id int, kind Kind, road Road, lane int, position float64) *Vehicle {
	return &Vehicle{
		ID:       id,
		Kind:     kind,
		Road:     road,
		Lane:     lane,
		Position: position,
		Params:   ParamsFor(kind),
	}
}

// EffectiveMaxVelocity is the speed ceiling after rolling losses.
func (v *Vehicle) EffectiveMaxVelocity() float64 {
	return v.Params.MaxVelocity - v.Params.RollingFriction*2
}

// IsStopped reports whether the vehicle is below the near-zero velocity threshold.
func (v *Vehicle) IsStopped() bool {
	return v.Velocity < StoppedVelocity
}

// frictionCoeff returns static friction when effectively at rest, rolling otherwise.
func (v *Vehicle) frictionCoeff() float64 {
	if v.IsStopped() {
		return v.Params.StaticFriction
	}
	return v.Params.RollingFriction
}

// SignalAcceleration returns the braking acceleration imposed by a RED signal,
// and false if the signal does not override car-following this tick.
func (v *Vehicle) SignalAcceleration(signal *SignalBinding) (float64, bool) {
	if signal == nil || signal.State != SignalRed {
		return 0, false
	}
	dist := signal.StopLine - v.Position
	if dist < 0 || dist >= signalBrakeRange {
		return 0, false
	}
	if dist < signalHardBrakeRange {
		return -3 * v.Params.ComfortDeceleration, true
	}
	return -1.5 * v.Params.ComfortDeceleration, true
}

// FollowingAcceleration evaluates the friction-augmented car-following rule
// against leader. A nil leader leaves only the free-road term.
func (v *Vehicle) FollowingAcceleration(leader *Vehicle) float64 {
	p := v.Params
	free := p.MaxAcceleration*(1-math.Pow(v.Velocity/p.MaxVelocity, 4)) - v.frictionCoeff()

	var interaction float64
	if leader != nil {
		deltaV := v.Velocity - leader.Velocity
		desired := p.MinGap + math.Max(0,
			v.Velocity*p.DesiredTimeHeadway+
				(v.Velocity*deltaV)/(2*math.Sqrt(p.MaxAcceleration*p.ComfortDeceleration)))
		gap := leader.Position - leader.Params.Length - v.Position
		interaction = -p.MaxAcceleration * math.Pow(desired/math.Max(gap, minGapDenominator), 2)
	}

	acc := free + interaction
	if acc < 0 {
		acc -= p.RollingFriction * 0.5
	}
	return acc
}

// ComputeAcceleration applies the signal override first and falls back to
// car-following. It does not mutate the vehicle.
func (v *Vehicle) ComputeAcceleration(leader *Vehicle, signal *SignalBinding) float64 {
	if acc, ok := v.SignalAcceleration(signal); ok {
		return acc
	}
	return v.FollowingAcceleration(leader)
}

// Advance moves the vehicle one step of dt seconds.
func (v *Vehicle) Advance(dt float64, leader *Vehicle, signal *SignalBinding) {
	v.integrate(dt, v.ComputeAcceleration(leader, signal))
}

// integrate stores acc, updates the stopped counter from the pre-step
// velocity, then integrates velocity and position.
func (v *Vehicle) integrate(dt, acc float64) {
	v.Acceleration = acc
	if v.IsStopped() {
		v.StoppedTicks++
	} else {
		v.StoppedTicks = 0
	}

	before := v.Position
	v.Velocity = lo.Clamp(v.Velocity+acc*dt, 0, v.EffectiveMaxVelocity())
	if v.Velocity < 0 {
		panic(fmt.Sprintf("sim: vehicle %d has negative velocity %f", v.ID, v.Velocity))
	}
	v.Position += v.Velocity * dt
	if v.Position < before {
		panic(fmt.Sprintf("sim: vehicle %d moved backwards from %f to %f", v.ID, before, v.Position))
	}
}

// String returns a short human-readable description, used in logs.
func (v *Vehicle) String() string {
	return fmt.Sprintf("%s#%d[%s/%d @%.1f v=%.2f]", v.Kind, v.ID, v.Road, v.Lane, v.Position, v.Velocity)
}
