package sim

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ScheduleEntry sets one signal once the simulated clock reaches AtSeconds.
type ScheduleEntry struct {
	AtSeconds float64 `yaml:"at_seconds"`
	Signal    string  `yaml:"signal"`
	State     string  `yaml:"state"`
}

// SignalSchedule is a scripted operator: a time-ordered list of signal
// changes applied between ticks. It keeps a cursor, so one schedule serves
// one run.
type SignalSchedule struct {
	entries []scheduledChange
	next    int
}

type scheduledChange struct {
	at    float64
	name  SignalName
	state SignalState
}

// signalScheduleFile is the on-disk form of a schedule.
type signalScheduleFile struct {
	Schedule []ScheduleEntry `yaml:"schedule"`
}

// NewSignalSchedule validates entries and orders them by time. Entries with
// equal times keep their file order.
func NewSignalSchedule(entries []ScheduleEntry) (*SignalSchedule, error) {
	changes := make([]scheduledChange, 0, len(entries))
	for i, e := range entries {
		if e.AtSeconds < 0 {
			return nil, fmt.Errorf("%w: schedule entry %d: at_seconds must be non-negative, got %v", ErrInvalidConfig, i, e.AtSeconds)
		}
		name, err := ParseSignalName(e.Signal)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %d: %w", i, err)
		}
		state, err := ParseSignalState(e.State)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %d: %w", i, err)
		}
		changes = append(changes, scheduledChange{at: e.AtSeconds, name: name, state: state})
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].at < changes[j].at })
	return &SignalSchedule{entries: changes}, nil
}

// LoadSignalSchedule reads a YAML schedule file. Unknown fields are errors.
func LoadSignalSchedule(path string) (*SignalSchedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signal schedule: %w", err)
	}
	var file signalScheduleFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing signal schedule: %w", err)
	}
	return NewSignalSchedule(file.Schedule)
}

// Len returns the number of entries.
func (sch *SignalSchedule) Len() int { return len(sch.entries) }

// Remaining returns the number of entries not yet applied.
func (sch *SignalSchedule) Remaining() int { return len(sch.entries) - sch.next }

// Apply sets every signal whose time has come. Call it between ticks.
func (sch *SignalSchedule) Apply(s *Simulator) error {
	for sch.next < len(sch.entries) && sch.entries[sch.next].at <= s.Clock+1e-9 {
		c := sch.entries[sch.next]
		if err := s.SetSignal(c.name, c.state); err != nil {
			return err
		}
		logrus.Debugf("[tick %07d] schedule: %s -> %s (due %.2fs)", s.TickCount, c.name, c.state, c.at)
		sch.next++
	}
	return nil
}
