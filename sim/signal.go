package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// SignalName identifies one of the three control points.
type SignalName string

const (
	SignalRampEntry  SignalName = "rampEntry"
	SignalRampMiddle SignalName = "rampMiddle"
	SignalMainMerge  SignalName = "mainMerge"
)

// SignalState is the two-valued light state. There is no yellow phase.
type SignalState string

const (
	SignalGreen SignalState = "GREEN"
	SignalRed   SignalState = "RED"
)

// Stop lines for the two ramp signals. The main-road stop line depends on
// the merge point (see RoadConfig.MainStopLine).
const (
	RampEntryStopLine  = 140.0
	RampMiddleStopLine = 290.0
)

// ErrUnknownSignal is returned for a signal name or state outside the known set.
var ErrUnknownSignal = errors.New("unknown signal")

// AllSignals lists the control points in display order.
var AllSignals = []SignalName{SignalRampEntry, SignalRampMiddle, SignalMainMerge}

// ParseSignalName validates a signal name.
func ParseSignalName(s string) (SignalName, error) {
	for _, name := range AllSignals {
		if string(name) == s {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSignal, s)
}

// ParseSignalState validates a signal state.
func ParseSignalState(s string) (SignalState, error) {
	switch SignalState(s) {
	case SignalGreen, SignalRed:
		return SignalState(s), nil
	}
	return "", fmt.Errorf("%w state: %q", ErrUnknownSignal, s)
}

// Signals holds the state of the three control points. The zero value is all
// GREEN. Written only by the external driver, never inside a tick.
type Signals struct {
	RampEntry  SignalState `json:"rampEntry" yaml:"rampEntry"`
	RampMiddle SignalState `json:"rampMiddle" yaml:"rampMiddle"`
	MainMerge  SignalState `json:"mainMerge" yaml:"mainMerge"`
}

// AllGreen returns a Signals value with every light GREEN.
func AllGreen() Signals {
	return Signals{RampEntry: SignalGreen, RampMiddle: SignalGreen, MainMerge: SignalGreen}
}

func (s *Signals) slot(name SignalName) (*SignalState, error) {
	switch name {
	case SignalRampEntry:
		return &s.RampEntry, nil
	case SignalRampMiddle:
		return &s.RampMiddle, nil
	case SignalMainMerge:
		return &s.MainMerge, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
}

// State returns the current state of name. Unset slots read as GREEN.
func (s *Signals) State(name SignalName) (SignalState, error) {
	slot, err := s.slot(name)
	if err != nil {
		return "", err
	}
	if *slot == "" {
		return SignalGreen, nil
	}
	return *slot, nil
}

// IsRed reports whether name is RED. Unknown names are never RED.
func (s *Signals) IsRed(name SignalName) bool {
	state, err := s.State(name)
	return err == nil && state == SignalRed
}

// Set changes the state of name.
func (s *Signals) Set(name SignalName, state SignalState) error {
	slot, err := s.slot(name)
	if err != nil {
		return err
	}
	if _, err := ParseSignalState(string(state)); err != nil {
		return err
	}
	if *slot != state {
		logrus.Infof("signal %s -> %s", name, state)
	}
	*slot = state
	return nil
}

// Toggle flips name between GREEN and RED and returns the new state.
func (s *Signals) Toggle(name SignalName) (SignalState, error) {
	current, err := s.State(name)
	if err != nil {
		return "", err
	}
	next := SignalRed
	if current == SignalRed {
		next = SignalGreen
	}
	return next, s.Set(name, next)
}

// Validate checks that every populated slot holds a known state.
func (s Signals) Validate() error {
	for _, name := range AllSignals {
		slot, _ := s.slot(name)
		if *slot == "" {
			continue
		}
		if _, err := ParseSignalState(string(*slot)); err != nil {
			return fmt.Errorf("signal %s: %w", name, err)
		}
	}
	return nil
}

// SignalBinding is the signal a vehicle is subject to at its current position.
type SignalBinding struct {
	Name     SignalName
	StopLine float64
	State    SignalState
}
