package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyltetran/traffic-game/sim/trace"
)

const terminationTickBudget = 200_000

func TestNewSimulator_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.VehicleCount = 10
	_, err := NewSimulator(cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestNewSimulatorFromVehicles_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewSimulatorFromVehicles(testConfig(), []*Vehicle{
		NewVehicle(1, KindCar, RoadMain, 0, 0),
		NewVehicle(1, KindCar, RoadRamp, 0, 0),
	})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestNewSimulatorFromVehicles_OrdersByID(t *testing.T) {
	s := mustSimulator(t, testConfig(),
		NewVehicle(3, KindCar, RoadMain, 0, 0),
		NewVehicle(1, KindCar, RoadMain, 1, 0),
		NewVehicle(2, KindCar, RoadRamp, 0, 0),
	)
	ids := []int{s.Vehicles[0].ID, s.Vehicles[1].ID, s.Vehicles[2].ID}
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, 2, s.Metrics.MainStart)
	assert.Equal(t, 1, s.Metrics.RampStart)
}

func TestTick_AdvancesClockAndCongestion(t *testing.T) {
	s := mustSimulator(t, testConfig(), NewVehicle(1, KindCar, RoadMain, 0, 0))
	require.Equal(t, 200.0, s.Congestion, "a lone stopped vehicle counts double")

	s.Tick()

	assert.Equal(t, int64(1), s.TickCount)
	assert.InDelta(t, DefaultDT, s.Clock, 1e-12)
	assert.Greater(t, s.Vehicles[0].Position, 0.0)
	assert.Equal(t, int64(1), s.Metrics.Ticks)
}

func TestTick_ExitOnlyFromMainRoad(t *testing.T) {
	// GIVEN a main vehicle just before the exit and a ramp vehicle past it,
	// held on the ramp by a lane-1 vehicle right behind it
	main := movingVehicle(1, KindCar, RoadMain, 0, 1299.9, 20)
	ramp := movingVehicle(2, KindCar, RoadRamp, 0, 1350, 20)
	blocker := movingVehicle(3, KindCar, RoadMain, 1, 1345, 0)
	s := mustSimulator(t, testConfig(), main, ramp, blocker)

	// WHEN one tick runs
	s.Tick()

	// THEN only main-road vehicles exit
	assert.True(t, main.HasExited)
	assert.True(t, blocker.HasExited)
	assert.False(t, ramp.HasExited)
	assert.Equal(t, RoadRamp, ramp.Road)
	assert.Contains(t, s.Metrics.ExitTimes, 1)
	assert.NotContains(t, s.Metrics.ExitTimes, 2)
	assert.Equal(t, 1, s.Metrics.MergeRejections)
}

func TestTick_MergeThenExitSameTick(t *testing.T) {
	// A ramp vehicle past the exit with a free target lane merges and exits at once.
	ramp := movingVehicle(1, KindCar, RoadRamp, 0, 1310, 10)
	s := mustSimulator(t, testConfig(), ramp)

	s.Tick()

	assert.True(t, ramp.HasMerged)
	assert.True(t, ramp.HasExited)
	assert.True(t, s.Done())
	assert.Equal(t, 1, s.Metrics.Merges)
}

func TestTick_SequentialSeesUpdatedLeader(t *testing.T) {
	// GIVEN a follower processed after its leader in the same tick
	leader := movingVehicle(1, KindCar, RoadMain, 0, 700, 10)
	follower := movingVehicle(2, KindCar, RoadMain, 0, 680, 10)
	s := mustSimulator(t, testConfig(), leader, follower)
	frozenLeader := *leader

	// WHEN one sequential tick runs
	want := *follower
	s.Tick()
	want.Advance(DefaultDT, leaderAfter(&frozenLeader), nil)

	// THEN the follower reacted to the leader's post-tick state
	assert.InDelta(t, want.Velocity, follower.Velocity, 1e-12)
}

// leaderAfter returns a copy of v advanced one free-road tick.
func leaderAfter(v *Vehicle) *Vehicle {
	c := *v
	c.Advance(DefaultDT, nil, nil)
	return &c
}

func TestTick_SnapshotReadsFrozenLeader(t *testing.T) {
	leader := movingVehicle(1, KindCar, RoadMain, 0, 700, 10)
	follower := movingVehicle(2, KindCar, RoadMain, 0, 680, 10)
	cfg := testConfig()
	cfg.Mode = UpdateSnapshot
	frozenLeader := *leader
	want := *follower
	s := mustSimulator(t, cfg, leader, follower)

	s.Tick()
	want.Advance(DefaultDT, &frozenLeader, nil)

	assert.InDelta(t, want.Velocity, follower.Velocity, 1e-12)
}

func TestTick_NoSignalMutation(t *testing.T) {
	cfg := testConfig()
	cfg.Signals.RampMiddle = SignalRed
	s, err := NewSimulator(cfg)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		s.Tick()
	}
	assert.Equal(t, Signals{RampEntry: SignalGreen, RampMiddle: SignalRed, MainMerge: SignalGreen}, s.Signals)
}

func TestRun_AllGreen_Terminates(t *testing.T) {
	tests := []struct {
		name     string
		vehicles int
		mode     UpdateMode
	}{
		{"min vehicles sequential", MinVehicles, UpdateSequential},
		{"max vehicles sequential", MaxVehicles, UpdateSequential},
		{"default vehicles snapshot", DefaultVehicles, UpdateSnapshot},
		{"max vehicles snapshot", MaxVehicles, UpdateSnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN all signals GREEN throughout
			cfg := testConfig()
			cfg.VehicleCount = tt.vehicles
			cfg.Mode = tt.mode
			s, err := NewSimulator(cfg)
			require.NoError(t, err)

			// WHEN ticked with invariant checks on every tick
			checker := runChecked(t, s, terminationTickBudget)

			// THEN every vehicle exits and every ramp vehicle merged on the way
			require.True(t, s.Done(), "still %d active after %d ticks", s.ActiveCount(), s.TickCount)
			assert.Zero(t, s.ActiveCount())
			assert.Zero(t, s.Congestion)
			assert.Equal(t, s.Metrics.RampStart, checker.Transitions())
			assert.Equal(t, s.Metrics.RampStart, s.Metrics.Merges)
			assert.Len(t, s.Metrics.ExitTimes, tt.vehicles)
			for _, v := range s.Vehicles {
				assert.True(t, v.HasExited)
				assert.Equal(t, RoadMain, v.Road)
			}
		})
	}
}

func TestRun_SequentialAndSnapshotAgreeQualitatively(t *testing.T) {
	results := make(map[UpdateMode]Result)
	for _, mode := range []UpdateMode{UpdateSequential, UpdateSnapshot} {
		cfg := testConfig()
		cfg.Mode = mode
		s, err := NewSimulator(cfg)
		require.NoError(t, err)
		res, err := s.Run(terminationTickBudget, nil)
		require.NoError(t, err)
		require.True(t, res.Completed)
		results[mode] = res
	}
	seq, snap := results[UpdateSequential], results[UpdateSnapshot]
	// Trajectories may diverge; elapsed times stay the same order of magnitude.
	assert.InEpsilon(t, seq.ElapsedTime, snap.ElapsedTime, 1.0)
}

func TestRun_MergeGapLaw(t *testing.T) {
	// GIVEN a run tracing every merge attempt
	cfg := testConfig()
	cfg.VehicleCount = MaxVehicles
	cfg.TraceLevel = trace.TraceLevelDecisions
	s, err := NewSimulator(cfg)
	require.NoError(t, err)

	_, err = s.Run(terminationTickBudget, nil)
	require.NoError(t, err)

	// THEN every accepted merge cleared its threshold on both sides
	summary := trace.Summarize(s.Trace)
	require.Equal(t, s.Metrics.RampStart, summary.AcceptedCount)
	for _, m := range s.Trace.Merges {
		if m.Outcome != trace.MergeAccepted {
			continue
		}
		assert.Greater(t, m.GapFront, m.Threshold, "vehicle %d gapFront", m.VehicleID)
		assert.Greater(t, m.GapBack, m.Threshold, "vehicle %d gapBack", m.VehicleID)
		if m.StoppedTicks > StiffenAfterTicks {
			assert.Equal(t, MergeGapStiffened, m.Threshold)
		} else {
			assert.Equal(t, MergeGapNormal, m.Threshold)
		}
	}
	assert.Equal(t, s.Metrics.MergeRejections, summary.RejectedCount)
}

func TestRun_RedRampSignalsGateMerges(t *testing.T) {
	// GIVEN a short ramp whose merge window overlaps both ramp signal bands,
	// with both ramp signals held RED
	cfg := testConfig()
	cfg.Road.MergePoint = 200
	cfg.Signals.RampEntry = SignalRed
	cfg.Signals.RampMiddle = SignalRed
	cfg.TraceLevel = trace.TraceLevelDecisions
	s, err := NewSimulator(cfg)
	require.NoError(t, err)

	// WHEN it runs for a while
	runChecked(t, s, 3000)

	// THEN no merge happened before 300 and some attempts were blocked
	summary := trace.Summarize(s.Trace)
	assert.Greater(t, summary.BlockedCount, 0)
	for _, m := range s.Trace.Merges {
		if m.Outcome == trace.MergeAccepted {
			assert.GreaterOrEqual(t, m.Position, 300.0, "vehicle %d merged under a RED ramp signal", m.VehicleID)
		}
		if m.Outcome == trace.MergeBlocked {
			assert.Less(t, m.Position, 300.0)
		}
	}
	assert.Equal(t, summary.BlockedCount, s.Metrics.MergeBlocks)
}

func TestRun_RedRampEntryHoldsQueue(t *testing.T) {
	// GIVEN rampEntry RED for the whole run
	cfg := testConfig()
	cfg.Signals.RampEntry = SignalRed
	s, err := NewSimulator(cfg)
	require.NoError(t, err)

	// WHEN run with a modest budget
	_, err = s.Run(4000, nil)

	// THEN it cannot finish: ramp vehicles behind the entry line are held
	assert.True(t, errors.Is(err, ErrTickLimit))
	assert.False(t, s.Done())
	held := 0
	for _, v := range s.Vehicles {
		if v.Road == RoadRamp && v.Position < RampEntryStopLine {
			held++
		}
	}
	assert.Greater(t, held, 0)
}

func TestRun_TickLimit(t *testing.T) {
	s, err := NewSimulator(testConfig())
	require.NoError(t, err)

	res, err := s.Run(10, nil)

	assert.True(t, errors.Is(err, ErrTickLimit))
	assert.False(t, res.Completed)
	assert.Equal(t, int64(10), res.Ticks)
}

func TestOnComplete_FiresOnce(t *testing.T) {
	s := mustSimulator(t, testConfig(), movingVehicle(1, KindCar, RoadMain, 0, 1250, 20))
	var calls []Result
	s.OnComplete = func(r Result) { calls = append(calls, r) }

	for i := 0; i < 1000; i++ {
		s.Tick()
	}

	require.Len(t, calls, 1)
	assert.True(t, calls[0].Completed)
	assert.Greater(t, calls[0].ElapsedTime, 0.0)
	// ticks after completion are no-ops
	assert.Equal(t, calls[0].Ticks, s.TickCount)
}

func TestDeterminism_SameSeedIdenticalState(t *testing.T) {
	// GIVEN two simulators with identical configuration
	a, err := NewSimulator(testConfig())
	require.NoError(t, err)
	b, err := NewSimulator(testConfig())
	require.NoError(t, err)

	// WHEN both run the same number of ticks
	for i := 0; i < 1500; i++ {
		a.Tick()
		b.Tick()
	}

	// THEN their observable states are identical
	assert.Equal(t, a.State(), b.State())
}

func TestSetSignal_RejectsUnknownAndRecords(t *testing.T) {
	cfg := testConfig()
	cfg.TraceLevel = trace.TraceLevelMerges
	s := mustSimulator(t, cfg, NewVehicle(1, KindCar, RoadMain, 0, 0))

	assert.True(t, errors.Is(s.SetSignal("sideStreet", SignalRed), ErrUnknownSignal))
	require.NoError(t, s.SetSignal(SignalMainMerge, SignalRed))

	assert.True(t, s.Signals.IsRed(SignalMainMerge))
	require.Len(t, s.Trace.Signals, 1)
	assert.Equal(t, "mainMerge", s.Trace.Signals[0].Signal)
}

func TestState_ReportsEveryVehicle(t *testing.T) {
	s, err := NewSimulator(testConfig())
	require.NoError(t, err)
	s.Tick()

	st := s.State()

	assert.Len(t, st.Vehicles, DefaultVehicles)
	assert.Equal(t, s.ActiveCount(), st.ActiveVehicles)
	assert.Equal(t, int64(1), st.Tick)
	exited := 0
	for _, v := range st.Vehicles {
		if v.HasExited {
			exited++
		}
	}
	assert.Equal(t, DefaultVehicles-st.ActiveVehicles, exited)
	assert.False(t, st.Complete)
}
