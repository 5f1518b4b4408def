package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Initialize builds the starting vehicle set. Main-road vehicles come first,
// alternating lanes, then ramp vehicles; ids count up from 1 in that order.
// Main-road vehicles start at a random fraction of their max velocity, ramp
// vehicles start at rest.
func Initialize(cfg PopulationConfig, count int, rng *PartitionedRNG) []*Vehicle {
	mainCount := int(math.Floor(float64(count) * cfg.MainFraction))
	rampCount := count - mainCount
	vehicles := make([]*Vehicle, 0, count)
	id := 1

	mainRNG := rng.ForSubsystem(SubsystemMainRoad)
	for i := 0; i < mainCount; i++ {
		kind := KindTruck
		if mainRNG.Float64() < cfg.MainCarFraction {
			kind = KindCar
		}
		v := NewVehicle(id, kind, RoadMain, i%2, float64(i)*cfg.MainSpacing)
		v.Velocity = v.Params.MaxVelocity * (cfg.SpeedFloor + mainRNG.Float64()*cfg.SpeedSpread)
		vehicles = append(vehicles, v)
		id++
	}

	rampRNG := rng.ForSubsystem(SubsystemRamp)
	for i := 0; i < rampCount; i++ {
		kind := KindTruck
		if rampRNG.Float64() < cfg.RampCarFraction {
			kind = KindCar
		}
		vehicles = append(vehicles, NewVehicle(id, kind, RoadRamp, 0, float64(i)*cfg.RampSpacing))
		id++
	}

	logrus.Infof("created %d vehicles: %d on main road, %d on ramp", len(vehicles), mainCount, rampCount)
	return vehicles
}
