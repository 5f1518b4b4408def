// Package trace provides decision-trace recording for merge and signal analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// MergeOutcome classifies a merge attempt.
type MergeOutcome string

const (
	MergeAccepted MergeOutcome = "accepted"
	MergeRejected MergeOutcome = "rejected" // gaps too small
	MergeBlocked  MergeOutcome = "blocked"  // a ramp signal was RED
)

// MergeRecord captures one merge attempt by a ramp vehicle inside the merge window.
type MergeRecord struct {
	VehicleID    int          `json:"vehicle_id"`
	Tick         int64        `json:"tick"`
	Clock        float64      `json:"clock"`
	Position     float64      `json:"position"`
	StoppedTicks int          `json:"stopped_ticks"`
	GapFront     float64      `json:"gap_front"`
	GapBack      float64      `json:"gap_back"`
	Threshold    float64      `json:"threshold"`
	Stiffened    bool         `json:"stiffened"` // threshold raised for a long-stopped vehicle
	Outcome      MergeOutcome `json:"outcome"`
}

// SignalRecord captures one signal change applied between ticks.
type SignalRecord struct {
	Tick   int64   `json:"tick"`
	Clock  float64 `json:"clock"`
	Signal string  `json:"signal"`
	State  string  `json:"state"`
}
