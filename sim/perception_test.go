package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLeader_MainRoad_SameLaneNearestAhead(t *testing.T) {
	// GIVEN vehicles ahead in both lanes, behind, and one exited
	self := NewVehicle(1, KindCar, RoadMain, 0, 100)
	near := NewVehicle(2, KindCar, RoadMain, 0, 140)
	far := NewVehicle(3, KindCar, RoadMain, 0, 200)
	otherLane := NewVehicle(4, KindCar, RoadMain, 1, 110)
	behind := NewVehicle(5, KindCar, RoadMain, 0, 90)
	exited := NewVehicle(6, KindCar, RoadMain, 0, 105)
	exited.HasExited = true
	ramp := NewVehicle(7, KindCar, RoadRamp, 0, 101)
	all := []*Vehicle{self, near, far, otherLane, behind, exited, ramp}

	// WHEN the leader is looked up
	leader := FindLeader(self, all)

	// THEN the nearest active same-lane vehicle ahead is chosen
	require.NotNil(t, leader)
	assert.Equal(t, 2, leader.ID)
}

func TestFindLeader_Ramp_IgnoresLane(t *testing.T) {
	self := NewVehicle(1, KindCar, RoadRamp, 0, 50)
	ahead := NewVehicle(2, KindTruck, RoadRamp, 1, 75)
	main := NewVehicle(3, KindCar, RoadMain, 0, 60)

	leader := FindLeader(self, []*Vehicle{self, ahead, main})

	require.NotNil(t, leader)
	assert.Equal(t, 2, leader.ID)
}

func TestFindLeader_SamePositionIsNotAhead(t *testing.T) {
	self := NewVehicle(1, KindCar, RoadMain, 0, 50)
	alongside := NewVehicle(2, KindCar, RoadMain, 0, 50)
	assert.Nil(t, FindLeader(self, []*Vehicle{self, alongside}))
}

func TestFindLeader_FreeRoad_Nil(t *testing.T) {
	self := NewVehicle(1, KindCar, RoadMain, 1, 500)
	assert.Nil(t, FindLeader(self, []*Vehicle{self}))
}

func TestFindSignal_PositionalBindings(t *testing.T) {
	road := DefaultRoadConfig()
	signals := AllGreen()
	require.NoError(t, signals.Set(SignalRampMiddle, SignalRed))

	tests := []struct {
		name     string
		road     Road
		pos      float64
		want     SignalName
		stopLine float64
		state    SignalState
	}{
		{"ramp start", RoadRamp, 0, SignalRampEntry, 140, SignalGreen},
		{"ramp past entry line", RoadRamp, 149.9, SignalRampEntry, 140, SignalGreen},
		{"ramp middle band", RoadRamp, 150, SignalRampMiddle, 290, SignalRed},
		{"ramp middle band end", RoadRamp, 299.9, SignalRampMiddle, 290, SignalRed},
		{"main upstream", RoadMain, 0, SignalMainMerge, 450, SignalGreen},
		{"main just before band end", RoadMain, 599.9, SignalMainMerge, 450, SignalGreen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVehicle(1, KindCar, tt.road, 0, tt.pos)
			b := FindSignal(v, &signals, road)
			require.NotNil(t, b)
			assert.Equal(t, tt.want, b.Name)
			assert.Equal(t, tt.stopLine, b.StopLine)
			assert.Equal(t, tt.state, b.State)
		})
	}
}

func TestFindSignal_OutsideBands_Nil(t *testing.T) {
	road := DefaultRoadConfig()
	signals := AllGreen()
	assert.Nil(t, FindSignal(NewVehicle(1, KindCar, RoadRamp, 0, 300), &signals, road))
	assert.Nil(t, FindSignal(NewVehicle(2, KindCar, RoadMain, 0, 600), &signals, road))
}

func TestFindSignal_FollowsMergePoint(t *testing.T) {
	road := DefaultRoadConfig()
	road.MergePoint = 700
	signals := AllGreen()
	b := FindSignal(NewVehicle(1, KindCar, RoadMain, 1, 750), &signals, road)
	require.NotNil(t, b)
	assert.Equal(t, 650.0, b.StopLine)
}
