package realtime

// Phase is the connection lifecycle position.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseWaiting
	PhaseFailed
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseWaiting:
		return "waiting"
	case PhaseFailed:
		return "failed"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// Event drives the retry state machine.
type Event int

const (
	EventConnect Event = iota
	EventDialSucceeded
	EventDialFailed
	EventWaitElapsed
	EventDropped
	EventClose
)

// RetryState is the machine's state. Attempts counts dials in the current
// cycle, including the one in progress.
type RetryState struct {
	Phase    Phase
	Attempts int
}

// RetryPolicy bounds how many dials one cycle may make. A cycle starts with
// EventConnect or with a drop of an established connection.
type RetryPolicy struct {
	MaxAttempts int
}

// Next returns the state after ev. Events that do not apply in the current
// phase leave the state unchanged. Failed and Closed only leave on a fresh
// EventConnect.
func (p RetryPolicy) Next(s RetryState, ev Event) RetryState {
	if ev == EventClose {
		return RetryState{Phase: PhaseClosed, Attempts: s.Attempts}
	}

	switch s.Phase {
	case PhaseIdle, PhaseFailed, PhaseClosed:
		if ev == EventConnect {
			return RetryState{Phase: PhaseConnecting, Attempts: 1}
		}
	case PhaseConnecting:
		switch ev {
		case EventDialSucceeded:
			return RetryState{Phase: PhaseConnected, Attempts: s.Attempts}
		case EventDialFailed:
			if s.Attempts >= p.maxAttempts() {
				return RetryState{Phase: PhaseFailed, Attempts: s.Attempts}
			}
			return RetryState{Phase: PhaseWaiting, Attempts: s.Attempts}
		}
	case PhaseWaiting:
		if ev == EventWaitElapsed {
			return RetryState{Phase: PhaseConnecting, Attempts: s.Attempts + 1}
		}
	case PhaseConnected:
		if ev == EventDropped {
			return RetryState{Phase: PhaseWaiting, Attempts: 0}
		}
	}
	return s
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
