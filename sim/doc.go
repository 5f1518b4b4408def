// Package sim provides the fixed-step traffic microsimulation: a two-lane
// main road fed by a single-lane on-ramp, three operator-controlled signals,
// and a congestion metric.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - vehicle.go: Vehicle state, per-kind parameters, car-following with friction
//   - merge.go: Gap acceptance for ramp vehicles entering the main road
//   - simulator.go: The tick loop, update modes, exits, and completion
//
// # Per-tick flow
//
// For each active vehicle in id order: a ramp vehicle first tries to merge
// (merge.go), then its signal binding and leader are looked up
// (perception.go), then its kinematics advance (vehicle.go), then it exits if
// it is on the main road past the exit point. After the pass the congestion
// metric (congestion.go) is recomputed.
//
// # Inputs and outputs
//
// Signals (signal.go) are exogenous: drivers change them between ticks via
// Simulator.SetSignal, or by replaying a SignalSchedule (schedule.go).
// Simulator.State (state.go) is the observable view for renderers; Metrics
// (metrics.go) and the sim/trace package record what happened.
//
// # Update order
//
// UpdateSequential mutates vehicles in place, so a vehicle processed later in
// a tick sees leaders already moved. UpdateSnapshot reads all neighbour state
// from a frozen copy. The two diverge slightly under tight spacing and agree
// on qualitative outcomes.
package sim
