package sim

import "fmt"

// RoadConfig groups the fixed geometry of the main road and the ramp. Ramp
// and main-road positions share one coordinate space near the merge point.
type RoadConfig struct {
	MainRoadLength float64 `yaml:"main_road_length" json:"main_road_length"`
	RampLength     float64 `yaml:"ramp_length" json:"ramp_length"`
	MergePoint     float64 `yaml:"merge_point" json:"merge_point"`
	ExitPoint      float64 `yaml:"exit_point" json:"exit_point"`
}

// DefaultRoadConfig returns the standard geometry.
func DefaultRoadConfig() RoadConfig {
	return RoadConfig{
		MainRoadLength: 1400,
		RampLength:     500,
		MergePoint:     500,
		ExitPoint:      1300,
	}
}

const (
	// mergeWindow is how far before the merge point a ramp vehicle may try to merge.
	mergeWindow = 80.0
	// mainSignalUpstream / mainSignalDownstream place the mainMerge stop line
	// and its binding band relative to the merge point.
	mainSignalUpstream   = 50.0
	mainSignalDownstream = 100.0

	rampEntryBandEnd  = 150.0
	rampMiddleBandEnd = 300.0
)

// MergeWindowStart is the first ramp position at which merging is considered.
func (r RoadConfig) MergeWindowStart() float64 { return r.MergePoint - mergeWindow }

// MainStopLine is the stop line of the mainMerge signal.
func (r RoadConfig) MainStopLine() float64 { return r.MergePoint - mainSignalUpstream }

// MainSignalBandEnd is the main-road position from which mainMerge no longer applies.
func (r RoadConfig) MainSignalBandEnd() float64 { return r.MergePoint + mainSignalDownstream }

// Validate checks the geometry is ordered and positive.
func (r RoadConfig) Validate() error {
	if r.MainRoadLength <= 0 || r.RampLength <= 0 {
		return fmt.Errorf("%w: road lengths must be positive (main=%v, ramp=%v)", ErrInvalidConfig, r.MainRoadLength, r.RampLength)
	}
	if r.MergePoint <= 0 {
		return fmt.Errorf("%w: merge_point must be positive, got %v", ErrInvalidConfig, r.MergePoint)
	}
	if r.ExitPoint <= r.MergePoint || r.ExitPoint > r.MainRoadLength {
		return fmt.Errorf("%w: exit_point must lie in (merge_point, main_road_length], got %v", ErrInvalidConfig, r.ExitPoint)
	}
	return nil
}
