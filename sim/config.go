package sim

import (
	"errors"
	"fmt"

	"github.com/Kyltetran/traffic-game/sim/trace"
)

// ErrInvalidConfig wraps every configuration rejection.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	MinVehicles     = 50
	MaxVehicles     = 120
	DefaultVehicles = 80
	DefaultDT       = 0.03
)

// UpdateMode selects how a tick reads neighbour state.
type UpdateMode string

const (
	// UpdateSequential updates vehicles in place in id order; later vehicles
	// observe leaders already moved this tick.
	UpdateSequential UpdateMode = "sequential"
	// UpdateSnapshot computes all accelerations from a frozen copy of the
	// post-merge state, then integrates every vehicle.
	UpdateSnapshot UpdateMode = "snapshot"
)

// ParseUpdateMode validates an update mode string. Empty means sequential.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch UpdateMode(s) {
	case "", UpdateSequential:
		return UpdateSequential, nil
	case UpdateSnapshot:
		return UpdateSnapshot, nil
	}
	return "", fmt.Errorf("%w: unknown update mode %q", ErrInvalidConfig, s)
}

// PopulationConfig controls initial vehicle placement.
type PopulationConfig struct {
	MainFraction    float64 `yaml:"main_fraction" json:"main_fraction"`         // share of vehicles starting on the main road
	MainCarFraction float64 `yaml:"main_car_fraction" json:"main_car_fraction"` // P(car) on the main road
	RampCarFraction float64 `yaml:"ramp_car_fraction" json:"ramp_car_fraction"` // P(car) on the ramp
	MainSpacing     float64 `yaml:"main_spacing" json:"main_spacing"`
	RampSpacing     float64 `yaml:"ramp_spacing" json:"ramp_spacing"`
	// Initial main-road speed is MaxVelocity × (SpeedFloor + U[0,1) × SpeedSpread).
	SpeedFloor  float64 `yaml:"speed_floor" json:"speed_floor"`
	SpeedSpread float64 `yaml:"speed_spread" json:"speed_spread"`
}

// DefaultPopulationConfig returns the standard overcrowded start.
func DefaultPopulationConfig() PopulationConfig {
	return PopulationConfig{
		MainFraction:    0.65,
		MainCarFraction: 0.65,
		RampCarFraction: 0.75,
		MainSpacing:     30,
		RampSpacing:     25,
		SpeedFloor:      0.4,
		SpeedSpread:     0.2,
	}
}

// Validate checks fractions lie in [0,1] and spacings are positive.
func (p PopulationConfig) Validate() error {
	fractions := []struct {
		name  string
		value float64
	}{
		{"main_fraction", p.MainFraction},
		{"main_car_fraction", p.MainCarFraction},
		{"ramp_car_fraction", p.RampCarFraction},
		{"speed_floor", p.SpeedFloor},
		{"speed_spread", p.SpeedSpread},
	}
	for _, f := range fractions {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalidConfig, f.name, f.value)
		}
	}
	if p.SpeedFloor+p.SpeedSpread > 1 {
		return fmt.Errorf("%w: speed_floor + speed_spread must not exceed 1", ErrInvalidConfig)
	}
	if p.MainSpacing <= 0 || p.RampSpacing <= 0 {
		return fmt.Errorf("%w: spacings must be positive (main=%v, ramp=%v)", ErrInvalidConfig, p.MainSpacing, p.RampSpacing)
	}
	return nil
}

// SimConfig is everything NewSimulator needs.
type SimConfig struct {
	VehicleCount int
	Seed         int64
	DT           float64
	Mode         UpdateMode
	Road         RoadConfig
	Population   PopulationConfig
	Signals      Signals // initial state; zero slots read as GREEN
	TraceLevel   trace.TraceLevel
}

// DefaultSimConfig returns the standard configuration with the given seed.
func DefaultSimConfig(seed int64) SimConfig {
	return SimConfig{
		VehicleCount: DefaultVehicles,
		Seed:         seed,
		DT:           DefaultDT,
		Mode:         UpdateSequential,
		Road:         DefaultRoadConfig(),
		Population:   DefaultPopulationConfig(),
		Signals:      AllGreen(),
		TraceLevel:   trace.TraceLevelNone,
	}
}

// ValidateVehicleCount rejects counts outside [MinVehicles, MaxVehicles].
func ValidateVehicleCount(n int) error {
	if n < MinVehicles || n > MaxVehicles {
		return fmt.Errorf("%w: vehicle count must be in [%d,%d], got %d", ErrInvalidConfig, MinVehicles, MaxVehicles, n)
	}
	return nil
}

// Validate checks every field of the configuration.
func (c SimConfig) Validate() error {
	if err := ValidateVehicleCount(c.VehicleCount); err != nil {
		return err
	}
	if c.DT <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidConfig, c.DT)
	}
	if _, err := ParseUpdateMode(string(c.Mode)); err != nil {
		return err
	}
	if err := c.Road.Validate(); err != nil {
		return err
	}
	if err := c.Population.Validate(); err != nil {
		return err
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return fmt.Errorf("%w: unknown trace level %q", ErrInvalidConfig, c.TraceLevel)
	}
	return c.Signals.Validate()
}
