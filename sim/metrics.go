// Tracks run-wide and per-vehicle statistics such as elapsed simulated time,
// merges, exits, and congestion.

package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Metrics aggregates statistics about the run for final reporting.
type Metrics struct {
	RunID         string
	TotalVehicles int
	MainStart     int // vehicles that started on the main road
	RampStart     int

	Ticks       int64
	ElapsedTime float64 // simulated seconds
	Completed   bool

	Merges          int // successful ramp→main transitions
	MergeRejections int // eligible attempts refused for lack of gap
	MergeBlocks     int // attempts refused because a ramp signal was RED

	CongestionSum  float64 // sum of the per-tick metric, for the mean
	PeakCongestion float64
	LastCongestion float64

	ExitTimes map[int]float64 // vehicle id → simulated time of exit
}

// NewMetrics creates an empty Metrics stamped with a fresh run id.
func NewMetrics() *Metrics {
	return &Metrics{
		RunID:     uuid.NewString(),
		ExitTimes: make(map[int]float64),
	}
}

// RecordTick folds one tick's congestion into the aggregates.
func (m *Metrics) RecordTick(clock float64, congestion float64) {
	m.Ticks++
	m.ElapsedTime = clock
	m.CongestionSum += congestion
	m.LastCongestion = congestion
	m.PeakCongestion = max(m.PeakCongestion, congestion)
}

// RecordExit stores the exit time of a vehicle. Later calls for the same id
// are ignored: exit is terminal.
func (m *Metrics) RecordExit(id int, clock float64) {
	if _, ok := m.ExitTimes[id]; ok {
		return
	}
	m.ExitTimes[id] = clock
}

// RecordMerge counts a merge decision.
func (m *Metrics) RecordMerge(d MergeDecision) {
	switch {
	case d.BlockedBy == MergeBlockedRed:
		m.MergeBlocks++
	case !d.Eligible():
	case d.Accepted:
		m.Merges++
	default:
		m.MergeRejections++
	}
}

// MeanCongestion is the time-average of the congestion metric.
func (m *Metrics) MeanCongestion() float64 {
	if m.Ticks == 0 {
		return 0
	}
	return m.CongestionSum / float64(m.Ticks)
}

// MeanExitTime is the average simulated time at which vehicles exited.
func (m *Metrics) MeanExitTime() float64 {
	if len(m.ExitTimes) == 0 {
		return 0
	}
	return lo.Sum(lo.Values(m.ExitTimes)) / float64(len(m.ExitTimes))
}

// Throughput is exits per simulated minute.
func (m *Metrics) Throughput() float64 {
	if m.ElapsedTime == 0 {
		return 0
	}
	return float64(len(m.ExitTimes)) / m.ElapsedTime * 60
}

// MetricsOutput is the JSON form of a finished run.
type MetricsOutput struct {
	RunID           string  `json:"run_id"`
	TotalVehicles   int     `json:"total_vehicles"`
	MainStart       int     `json:"main_start"`
	RampStart       int     `json:"ramp_start"`
	Completed       bool    `json:"completed"`
	Ticks           int64   `json:"ticks"`
	ElapsedTimeS    float64 `json:"elapsed_time_s"`
	ExitedVehicles  int     `json:"exited_vehicles"`
	Merges          int     `json:"merges"`
	MergeRejections int     `json:"merge_rejections"`
	MergeBlocks     int     `json:"merge_blocks"`
	MeanExitTimeS   float64 `json:"mean_exit_time_s"`
	ThroughputPerM  float64 `json:"throughput_per_min"`
	MeanCongestion  float64 `json:"mean_congestion"`
	PeakCongestion  float64 `json:"peak_congestion"`
	WallClockS      float64 `json:"wall_clock_s"`
}

// Output builds the JSON-serialisable summary. startTime is the wall-clock
// start of the run.
func (m *Metrics) Output(startTime time.Time) MetricsOutput {
	return MetricsOutput{
		RunID:           m.RunID,
		TotalVehicles:   m.TotalVehicles,
		MainStart:       m.MainStart,
		RampStart:       m.RampStart,
		Completed:       m.Completed,
		Ticks:           m.Ticks,
		ElapsedTimeS:    m.ElapsedTime,
		ExitedVehicles:  len(m.ExitTimes),
		Merges:          m.Merges,
		MergeRejections: m.MergeRejections,
		MergeBlocks:     m.MergeBlocks,
		MeanExitTimeS:   m.MeanExitTime(),
		ThroughputPerM:  m.Throughput(),
		MeanCongestion:  m.MeanCongestion(),
		PeakCongestion:  m.PeakCongestion,
		WallClockS:      time.Since(startTime).Seconds(),
	}
}

// SaveResults prints the run summary to stdout and, if outputFilePath is
// non-empty, writes the same JSON to that file.
func (m *Metrics) SaveResults(startTime time.Time, outputFilePath string) {
	output := m.Output(startTime)
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		logrus.Errorf("Error marshalling metrics: %v", err)
		return
	}

	fmt.Println("=== Simulation Metrics ===")
	fmt.Println(string(data))

	if outputFilePath == "" {
		return
	}
	if err := os.WriteFile(outputFilePath, data, 0644); err != nil {
		logrus.Errorf("Error writing metrics to %s: %v", outputFilePath, err)
		return
	}
	logrus.Infof("Metrics written to: %s", outputFilePath)
}
