// sim/simulator.go
package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Kyltetran/traffic-game/sim/trace"
)

// ErrTickLimit is returned by Run when the tick budget runs out before every
// vehicle has exited.
var ErrTickLimit = errors.New("tick limit reached")

// Result reports how a run ended.
type Result struct {
	Completed   bool
	Ticks       int64
	ElapsedTime float64 // simulated seconds
}

// Simulator owns the vehicle set, the signal state, and the simulation clock.
// It is not safe for concurrent use: callers must serialize SetSignal with Tick.
type Simulator struct {
	Clock     float64 // simulated seconds
	TickCount int64
	DT        float64
	Mode      UpdateMode
	Road      RoadConfig
	// Signals is read every tick and written only between ticks.
	Signals Signals
	// Vehicles is kept in id order, which is also the update order.
	Vehicles   []*Vehicle
	Congestion float64
	Metrics    *Metrics
	// Trace records merge and signal decisions; nil or level none disables it.
	Trace *trace.SimulationTrace
	// OnComplete fires once, on the tick the last vehicle exits.
	OnComplete func(Result)

	completed bool
}

// NewSimulator validates cfg and builds the starting population from cfg.Seed.
func NewSimulator(cfg SimConfig) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	return NewSimulatorFromVehicles(cfg, Initialize(cfg.Population, cfg.VehicleCount, rng))
}

// NewSimulatorFromVehicles builds a simulator around a caller-supplied vehicle
// set. The vehicle-count range is not enforced here; it applies to generated
// populations only. Vehicle ids must be unique.
func NewSimulatorFromVehicles(cfg SimConfig, vehicles []*Vehicle) (*Simulator, error) {
	mode, err := ParseUpdateMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	if cfg.DT <= 0 {
		return nil, fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidConfig, cfg.DT)
	}
	if err := cfg.Road.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Signals.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(vehicles))
	for _, v := range vehicles {
		if seen[v.ID] {
			return nil, fmt.Errorf("%w: duplicate vehicle id %d", ErrInvalidConfig, v.ID)
		}
		seen[v.ID] = true
	}
	ordered := append([]*Vehicle(nil), vehicles...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	s := &Simulator{
		DT:       cfg.DT,
		Mode:     mode,
		Road:     cfg.Road,
		Signals:  cfg.Signals,
		Vehicles: ordered,
		Metrics:  NewMetrics(),
		Trace:    trace.NewSimulationTrace(trace.TraceConfig{Level: cfg.TraceLevel}),
	}
	s.Metrics.TotalVehicles = len(ordered)
	for _, v := range ordered {
		if v.Road == RoadMain {
			s.Metrics.MainStart++
		} else {
			s.Metrics.RampStart++
		}
	}
	s.Congestion = Congestion(s.Vehicles)
	s.completed = s.ActiveCount() == 0
	return s, nil
}

// SetSignal changes a signal between ticks. The change takes effect on the
// next tick.
func (s *Simulator) SetSignal(name SignalName, state SignalState) error {
	if err := s.Signals.Set(name, state); err != nil {
		return err
	}
	s.Trace.RecordSignal(trace.SignalRecord{
		Tick:   s.TickCount,
		Clock:  s.Clock,
		Signal: string(name),
		State:  string(state),
	})
	return nil
}

// ToggleSignal flips a signal between ticks and returns its new state.
func (s *Simulator) ToggleSignal(name SignalName) (SignalState, error) {
	current, err := s.Signals.State(name)
	if err != nil {
		return "", err
	}
	next := SignalRed
	if current == SignalRed {
		next = SignalGreen
	}
	return next, s.SetSignal(name, next)
}

// ActiveCount returns the number of vehicles that have not exited.
func (s *Simulator) ActiveCount() int {
	n := 0
	for _, v := range s.Vehicles {
		if !v.HasExited {
			n++
		}
	}
	return n
}

// Done reports whether every vehicle has exited.
func (s *Simulator) Done() bool {
	return s.completed
}

// Result returns the run outcome so far.
func (s *Simulator) Result() Result {
	return Result{Completed: s.completed, Ticks: s.TickCount, ElapsedTime: s.Clock}
}

// Tick advances the simulation by one fixed step of DT. It is a no-op once
// every vehicle has exited. Signals are never changed here.
func (s *Simulator) Tick() {
	if s.completed {
		return
	}
	now := s.Clock + s.DT
	switch s.Mode {
	case UpdateSnapshot:
		s.tickSnapshot(now)
	default:
		s.tickSequential(now)
	}

	s.Clock = now
	s.TickCount++
	s.Congestion = Congestion(s.Vehicles)
	s.Metrics.RecordTick(s.Clock, s.Congestion)
	logrus.Tracef("[tick %07d] t=%.2fs active=%d congestion=%.1f%%", s.TickCount, s.Clock, s.ActiveCount(), s.Congestion)

	if s.ActiveCount() == 0 {
		s.complete()
	}
}

// tickSequential updates vehicles in place in id order. A vehicle processed
// later in the pass sees leaders that have already moved this tick.
func (s *Simulator) tickSequential(now float64) {
	for _, v := range s.Vehicles {
		if v.HasExited {
			continue
		}
		if v.Road == RoadRamp {
			s.merge(v)
		}
		signal := FindSignal(v, &s.Signals, s.Road)
		leader := FindLeader(v, s.Vehicles)
		v.Advance(s.DT, leader, signal)
		s.checkExit(v, now)
	}
}

// tickSnapshot resolves merges first against live state, then computes every
// acceleration from a frozen copy of the post-merge state, then integrates.
func (s *Simulator) tickSnapshot(now float64) {
	for _, v := range s.Vehicles {
		if !v.HasExited && v.Road == RoadRamp {
			s.merge(v)
		}
	}

	frozen := make([]*Vehicle, len(s.Vehicles))
	for i, v := range s.Vehicles {
		c := *v
		frozen[i] = &c
	}
	accs := make([]float64, len(s.Vehicles))
	for i, f := range frozen {
		if f.HasExited {
			continue
		}
		accs[i] = f.ComputeAcceleration(FindLeader(f, frozen), FindSignal(f, &s.Signals, s.Road))
	}

	for i, v := range s.Vehicles {
		if v.HasExited {
			continue
		}
		v.integrate(s.DT, accs[i])
		s.checkExit(v, now)
	}
}

// merge evaluates and, when accepted, applies a merge for ramp vehicle v.
func (s *Simulator) merge(v *Vehicle) {
	d := EvaluateMerge(v, s.Vehicles, &s.Signals, s.Road)
	if d.BlockedBy == MergeOutOfWindow {
		return
	}
	s.Metrics.RecordMerge(d)
	s.Trace.RecordMerge(mergeRecord(d, v, s.TickCount+1, s.Clock))
	if d.Accepted {
		ApplyMerge(v)
		logrus.Debugf("[tick %07d] merge %s gapFront=%.1f gapBack=%.1f threshold=%.0f",
			s.TickCount+1, v, d.GapFront, d.GapBack, d.Threshold)
	}
}

func mergeRecord(d MergeDecision, v *Vehicle, tick int64, clock float64) trace.MergeRecord {
	outcome := trace.MergeRejected
	switch {
	case d.BlockedBy == MergeBlockedRed:
		outcome = trace.MergeBlocked
	case d.Accepted:
		outcome = trace.MergeAccepted
	}
	return trace.MergeRecord{
		VehicleID:    v.ID,
		Tick:         tick,
		Clock:        clock,
		Position:     d.Position,
		StoppedTicks: v.StoppedTicks,
		GapFront:     d.GapFront,
		GapBack:      d.GapBack,
		Threshold:    d.Threshold,
		Stiffened:    d.Threshold == MergeGapStiffened,
		Outcome:      outcome,
	}
}

// checkExit marks a main-road vehicle past the exit point as exited.
func (s *Simulator) checkExit(v *Vehicle, now float64) {
	if v.Road == RoadMain && v.Position >= s.Road.ExitPoint {
		v.HasExited = true
		s.Metrics.RecordExit(v.ID, now)
	}
}

func (s *Simulator) complete() {
	s.completed = true
	s.Metrics.Completed = true
	res := s.Result()
	logrus.Infof("[tick %07d] all %d vehicles exited after %.2fs", s.TickCount, len(s.Vehicles), s.Clock)
	if s.OnComplete != nil {
		s.OnComplete(res)
	}
}

// Run ticks until every vehicle has exited or maxTicks ticks have run.
// schedule may be nil; otherwise its due entries are applied before each tick.
func (s *Simulator) Run(maxTicks int64, schedule *SignalSchedule) (Result, error) {
	for !s.completed {
		if s.TickCount >= maxTicks {
			return s.Result(), fmt.Errorf("%w: %d ticks (%.2fs), %d vehicles still active",
				ErrTickLimit, s.TickCount, s.Clock, s.ActiveCount())
		}
		if schedule != nil {
			if err := schedule.Apply(s); err != nil {
				return s.Result(), err
			}
		}
		s.Tick()
	}
	return s.Result(), nil
}
