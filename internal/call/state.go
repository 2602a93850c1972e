package call

// State is the lifecycle position of a call.
//
//	Idle → Ringing (outgoing) ┐
//	Idle → IncomingPending    ┴→ Connecting → Connected → Terminating → Idle
//
// Ringing and IncomingPending may also terminate directly (cancel, decline,
// busy, timeout) without ever reaching Connecting.
type State string

const (
	StateIdle            State = "idle"
	StateRinging         State = "ringing"
	StateIncomingPending State = "incoming_pending"
	StateConnecting      State = "connecting"
	StateConnected       State = "connected"
	StateTerminating     State = "terminating"
)

var stateTransitions = map[State][]State{
	StateIdle:            {StateRinging, StateIncomingPending},
	StateRinging:         {StateConnecting, StateTerminating},
	StateIncomingPending: {StateConnecting, StateTerminating},
	StateConnecting:      {StateConnected, StateTerminating},
	StateConnected:       {StateTerminating},
	StateTerminating:     {StateIdle},
}

// CanTransition reports whether s → next is a legal lifecycle step.
func (s State) CanTransition(next State) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
