package emulator

import "fmt"

// State is the execution state of a Processor.
type State uint8

// Processor states.
const (
	StateStopped State = iota
	StatePaused
	StateRunning
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePaused:
		return "Paused"
	case StateRunning:
		return "Running"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// StopReason records why the last execution loop ended.
type StopReason uint8

// Stop reasons.
const (
	// NotApplicable is reported while the processor is running.
	NotApplicable StopReason = iota
	NeverRan
	StopInvoked
	PauseInvoked
	ExecuteNextInstructionInvoked
	DIPlusHALT
	RetWithStackEmpty
	ExceptionThrown
)

var stopReasonNames = [...]string{
	NotApplicable:                 "NotApplicable",
	NeverRan:                      "NeverRan",
	StopInvoked:                   "StopInvoked",
	PauseInvoked:                  "PauseInvoked",
	ExecuteNextInstructionInvoked: "ExecuteNextInstructionInvoked",
	DIPlusHALT:                    "DIPlusHALT",
	RetWithStackEmpty:             "RetWithStackEmpty",
	ExceptionThrown:               "ExceptionThrown",
}

// String returns the stop reason name.
func (r StopReason) String() string {
	if int(r) < len(stopReasonNames) {
		return stopReasonNames[r]
	}
	return fmt.Sprintf("StopReason(%d)", uint8(r))
}
