package dictation

import "fmt"

type State int

const (
	Idle State = iota
	Listening
	Transcribing
	Processing
	Injecting
	ExecutingCommand
)

var stateNames = map[State]string{
	Idle:             "idle",
	Listening:        "listening",
	Transcribing:     "transcribing",
	Processing:       "processing",
	Injecting:        "injecting",
	ExecutingCommand: "executing_command",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Active reports whether a session is in progress.
func (s State) Active() bool { return s != Idle }

// DisplayText is the short label shown in status surfaces.
func (s State) DisplayText() string {
	switch s {
	case Listening:
		return "Listening..."
	case Transcribing:
		return "Transcribing..."
	case Processing:
		return "Processing..."
	case Injecting:
		return "Typing..."
	case ExecutingCommand:
		return "Executing..."
	default:
		return "Ready"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(b))
}

// allowed lists the legal successors of each state.
var allowed = map[State][]State{
	Idle:             {Listening},
	Listening:        {Transcribing, Idle},
	Transcribing:     {Processing, Idle},
	Processing:       {Injecting, ExecutingCommand, Idle},
	Injecting:        {ExecutingCommand, Idle},
	ExecutingCommand: {Idle},
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to State) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}
