package realtime_test

import (
	"testing"

	"github.com/jrsteele09/go-social-client/realtime"
	"github.com/stretchr/testify/require"
)

func run(p realtime.RetryPolicy, s realtime.RetryState, events ...realtime.Event) realtime.RetryState {
	for _, ev := range events {
		s = p.Next(s, ev)
	}
	return s
}

func TestRetryConnectsOnThirdAttempt(t *testing.T) {
	p := realtime.RetryPolicy{MaxAttempts: 3}
	s := run(p, realtime.RetryState{},
		realtime.EventConnect,
		realtime.EventDialFailed, realtime.EventWaitElapsed,
		realtime.EventDialFailed, realtime.EventWaitElapsed,
		realtime.EventDialSucceeded,
	)
	require.Equal(t, realtime.RetryState{Phase: realtime.PhaseConnected, Attempts: 3}, s)
}

func TestRetryFailsAfterMaxAttempts(t *testing.T) {
	p := realtime.RetryPolicy{MaxAttempts: 3}
	s := run(p, realtime.RetryState{},
		realtime.EventConnect,
		realtime.EventDialFailed, realtime.EventWaitElapsed,
		realtime.EventDialFailed, realtime.EventWaitElapsed,
		realtime.EventDialFailed,
	)
	require.Equal(t, realtime.RetryState{Phase: realtime.PhaseFailed, Attempts: 3}, s)

	// Terminal until a fresh connect.
	for _, ev := range []realtime.Event{realtime.EventWaitElapsed, realtime.EventDialFailed, realtime.EventDialSucceeded, realtime.EventDropped} {
		require.Equal(t, s, p.Next(s, ev))
	}
	require.Equal(t, realtime.RetryState{Phase: realtime.PhaseConnecting, Attempts: 1}, p.Next(s, realtime.EventConnect))
}

func TestRetryDropStartsNewCycle(t *testing.T) {
	p := realtime.RetryPolicy{MaxAttempts: 3}
	s := run(p, realtime.RetryState{},
		realtime.EventConnect, realtime.EventDialFailed, realtime.EventWaitElapsed, realtime.EventDialSucceeded,
	)
	require.Equal(t, 2, s.Attempts)

	s = p.Next(s, realtime.EventDropped)
	require.Equal(t, realtime.RetryState{Phase: realtime.PhaseWaiting}, s)

	s = run(p, s,
		realtime.EventWaitElapsed, realtime.EventDialFailed,
		realtime.EventWaitElapsed, realtime.EventDialFailed,
		realtime.EventWaitElapsed, realtime.EventDialFailed,
	)
	require.Equal(t, realtime.RetryState{Phase: realtime.PhaseFailed, Attempts: 3}, s)
}

func TestRetryCloseFromAnyPhase(t *testing.T) {
	p := realtime.RetryPolicy{MaxAttempts: 3}
	for _, phase := range []realtime.Phase{realtime.PhaseIdle, realtime.PhaseConnecting, realtime.PhaseConnected, realtime.PhaseWaiting, realtime.PhaseFailed} {
		s := p.Next(realtime.RetryState{Phase: phase, Attempts: 2}, realtime.EventClose)
		require.Equal(t, realtime.PhaseClosed, s.Phase, phase.String())
	}
}

func TestRetryIgnoresEventsOutOfPhase(t *testing.T) {
	p := realtime.RetryPolicy{MaxAttempts: 3}
	idle := realtime.RetryState{}
	require.Equal(t, idle, p.Next(idle, realtime.EventDialFailed))
	require.Equal(t, idle, p.Next(idle, realtime.EventDropped))

	connected := realtime.RetryState{Phase: realtime.PhaseConnected, Attempts: 1}
	require.Equal(t, connected, p.Next(connected, realtime.EventConnect))
	require.Equal(t, connected, p.Next(connected, realtime.EventWaitElapsed))
}

func TestRetryPolicyAlwaysAllowsOneAttempt(t *testing.T) {
	p := realtime.RetryPolicy{}
	s := run(p, realtime.RetryState{}, realtime.EventConnect, realtime.EventDialFailed)
	require.Equal(t, realtime.PhaseFailed, s.Phase)
}
