package invoke

// Phase is the state of a method scan.
type Phase int

const (
	PhaseScanning Phase = iota
	PhaseSatisfied
)

func (p Phase) String() string {
	switch p {
	case PhaseScanning:
		return "scanning"
	case PhaseSatisfied:
		return "satisfied"
	default:
		return "unknown"
	}
}

// ScanState counts matching call sites within one target method body. It is
// a value: Step returns the next state and never mutates the receiver.
type ScanState struct {
	Matched  int
	Required int
	Phase    Phase
}

// NewScanState returns the initial state for a scan requiring the given
// number of matches. A requirement of zero starts out satisfied.
func NewScanState(required int) ScanState {
	s := ScanState{Required: required}
	if required <= 0 {
		s.Phase = PhaseSatisfied
	}
	return s
}

// Satisfied reports whether the required count has been reached.
func (s ScanState) Satisfied() bool {
	return s.Phase == PhaseSatisfied
}

// Step applies one observed call instruction. Once satisfied the phase is
// terminal: further matches still raise Matched so it reports every site,
// but a matcher error can no longer change the outcome and is ignored.
func (s ScanState) Step(call CallInstruction, spec CallSpec, m *Matcher) (ScanState, error) {
	ok, err := m.Match(call, spec)
	if err != nil {
		if s.Phase == PhaseSatisfied {
			return s, nil
		}
		return s, err
	}
	if !ok {
		return s, nil
	}
	s.Matched++
	if s.Matched >= s.Required {
		s.Phase = PhaseSatisfied
	}
	return s, nil
}
