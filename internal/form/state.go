package form

// Status is the phase of the form's request lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusInFlight
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInFlight:
		return "in_flight"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a tagged variant: Analysis is only set when Succeeded and Error
// only when Failed. Build it with the constructors below.
type State struct {
	status   Status
	analysis string
	err      string
}

func Idle() State { return State{status: StatusIdle} }
func InFlight() State { return State{status: StatusInFlight} }
func Succeeded(text string) State { return State{status: StatusSucceeded, analysis: text} }
func Failed(message string) State { return State{status: StatusFailed, err: message} }
func (s State) Status() Status { return s.status }
func (s State) Busy() bool { return s.status == StatusInFlight }

// AnalysisText returns the result text and whether the state holds one.
func (s State) AnalysisText() (string, bool) {
	return s.analysis, s.status == StatusSucceeded
}

// ErrorMessage returns the failure message and whether the state holds one.
func (s State) ErrorMessage() (string, bool) {
	return s.err, s.status == StatusFailed
}

// SubmitLabel is the caption of the submit control for this state.
func (s State) SubmitLabel() string {
	if s.Busy() {
		return BusyLabel
	}
	return SubmitLabel
}

const (
	SubmitLabel = "Analyze Stock"
	BusyLabel   = "Analyzing..."
	ResultTitle = "Analysis Result:"
)
