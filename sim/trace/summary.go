package trace

import "math"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAttempts   int     `json:"total_attempts"`
	AcceptedCount   int     `json:"accepted"`
	RejectedCount   int     `json:"rejected"`
	BlockedCount    int     `json:"blocked"`
	StiffenedMerges int     `json:"stiffened_merges"` // accepted under the stuck-vehicle threshold
	MinAcceptedGap  float64 `json:"min_accepted_gap"` // smallest of gapFront/gapBack over accepted merges
	MeanWaitTicks   float64 `json:"mean_wait_ticks"`  // mean StoppedTicks at acceptance
	SignalChanges   int     `json:"signal_changes"`
	UniqueVehicles  int     `json:"unique_vehicles"` // vehicles with at least one attempt
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil {
		return summary
	}

	summary.TotalAttempts = len(st.Merges)
	summary.SignalChanges = len(st.Signals)

	vehicles := make(map[int]bool)
	minGap := math.Inf(1)
	totalWait := 0
	for _, m := range st.Merges {
		vehicles[m.VehicleID] = true
		switch m.Outcome {
		case MergeAccepted:
			summary.AcceptedCount++
			totalWait += m.StoppedTicks
			minGap = math.Min(minGap, math.Min(m.GapFront, m.GapBack))
			if m.Stiffened {
				summary.StiffenedMerges++
			}
		case MergeRejected:
			summary.RejectedCount++
		case MergeBlocked:
			summary.BlockedCount++
		}
	}
	summary.UniqueVehicles = len(vehicles)

	if summary.AcceptedCount > 0 {
		summary.MinAcceptedGap = minGap
		summary.MeanWaitTicks = float64(totalWait) / float64(summary.AcceptedCount)
	}
	return summary
}
