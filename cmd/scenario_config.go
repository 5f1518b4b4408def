package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/Kyltetran/traffic-game/sim"
	"github.com/Kyltetran/traffic-game/sim/trace"
)

// defaultMaxTicks bounds a headless run at 6000 simulated seconds.
const defaultMaxTicks = 200_000

// Scenario is the on-disk description of one run. Fields left out of the
// file keep their defaults.
type Scenario struct {
	Vehicles   int                  `yaml:"vehicles"`
	Seed       int64                `yaml:"seed"`
	DT         float64              `yaml:"dt"`
	UpdateMode string               `yaml:"update_mode"`
	MaxTicks   int64                `yaml:"max_ticks"`
	Road       sim.RoadConfig       `yaml:"road"`
	Population sim.PopulationConfig `yaml:"population"`
	Signals    sim.Signals          `yaml:"signals"`
	Schedule   []sim.ScheduleEntry  `yaml:"schedule"`
}

// DefaultScenario returns the standard overcrowded start with every signal GREEN.
func DefaultScenario() Scenario {
	cfg := sim.DefaultSimConfig(42)
	return Scenario{
		Vehicles:   cfg.VehicleCount,
		Seed:       cfg.Seed,
		DT:         cfg.DT,
		UpdateMode: string(cfg.Mode),
		MaxTicks:   defaultMaxTicks,
		Road:       cfg.Road,
		Population: cfg.Population,
		Signals:    cfg.Signals,
	}
}

// LoadScenario reads a scenario file over the defaults. An empty path returns
// the defaults. Unknown fields are errors so typos fail loudly.
func LoadScenario(path string) (Scenario, error) {
	sc := DefaultScenario()
	if path == "" {
		return sc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("reading scenario: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return sc, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return sc, nil
}

// SimConfig converts the scenario into a simulator configuration.
func (sc Scenario) SimConfig(traceLevel string) (sim.SimConfig, error) {
	mode, err := sim.ParseUpdateMode(sc.UpdateMode)
	if err != nil {
		return sim.SimConfig{}, err
	}
	cfg := sim.SimConfig{
		VehicleCount: sc.Vehicles,
		Seed:         sc.Seed,
		DT:           sc.DT,
		Mode:         mode,
		Road:         sc.Road,
		Population:   sc.Population,
		Signals:      sc.Signals,
		TraceLevel:   trace.TraceLevel(traceLevel),
	}
	return cfg, cfg.Validate()
}

// SignalSchedule builds the scenario's scripted signal changes, or nil when
// it has none.
func (sc Scenario) SignalSchedule() (*sim.SignalSchedule, error) {
	if len(sc.Schedule) == 0 {
		return nil, nil
	}
	return sim.NewSignalSchedule(sc.Schedule)
}
