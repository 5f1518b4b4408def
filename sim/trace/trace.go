package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelMerges records accepted merges and signal changes only.
	TraceLevelMerges TraceLevel = "merges"
	// TraceLevelDecisions also records every rejected or blocked attempt.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelMerges:    true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during a run.
type SimulationTrace struct {
	Config  TraceConfig    `json:"-"`
	Merges  []MergeRecord  `json:"merges"`
	Signals []SignalRecord `json:"signals"`
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:  config,
		Merges:  make([]MergeRecord, 0),
		Signals: make([]SignalRecord, 0),
	}
}

// Enabled reports whether anything is recorded at all.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level != TraceLevelNone && st.Config.Level != ""
}

// RecordMerge appends a merge record. Non-accepted attempts are kept only at
// TraceLevelDecisions.
func (st *SimulationTrace) RecordMerge(record MergeRecord) {
	if !st.Enabled() {
		return
	}
	if record.Outcome != MergeAccepted && st.Config.Level != TraceLevelDecisions {
		return
	}
	st.Merges = append(st.Merges, record)
}

// RecordSignal appends a signal change record.
func (st *SimulationTrace) RecordSignal(record SignalRecord) {
	if !st.Enabled() {
		return
	}
	st.Signals = append(st.Signals, record)
}
