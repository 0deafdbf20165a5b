package session

import (
	"sync"

	"smppgw/pdu"
)

// State is the bind state of a session.
type State int32

const (
	Open     State = iota // connected, not bound
	BoundTx               // bound as transmitter
	BoundRx               // bound as receiver
	BoundTrx              // bound as transceiver
	Unbound               // unbind exchanged, about to close
	Closed                // terminal
)

var stateNames = [...]string{"OPEN", "BOUND_TX", "BOUND_RX", "BOUND_TRX", "UNBOUND", "CLOSED"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Bound reports whether s is one of the bound states.
func (s State) Bound() bool { return s == BoundTx || s == BoundRx || s == BoundTrx }

// transitions lists the legal moves; anything else is refused.
var transitions = map[State][]State{
	Open:     {BoundTx, BoundRx, BoundTrx, Closed},
	BoundTx:  {Unbound, Closed},
	BoundRx:  {Unbound, Closed},
	BoundTrx: {Unbound, Closed},
	Unbound:  {Closed},
}

func canTransition(from, to State) bool {
	return contains(transitions[from], to)
}

func contains(states []State, s State) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}

// stateMachine holds the session state. Writers that depend on the state
// hold the read lock across check and write, transitions take the write lock.
type stateMachine struct {
	mu    sync.RWMutex
	state State
}

func (m *stateMachine) get() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// transition moves to the target state when the move is legal and reports
// the previous state and whether it applied.
func (m *stateMachine) transition(to State) (State, bool) {
	return m.transitionDo(to, nil)
}

// transitionDo runs fn under the write lock and applies the move only when
// fn succeeds. It lets a bind_resp or unbind_resp leave together with the
// state change, so no inbound PDU is judged against the old state.
func (m *stateMachine) transitionDo(to State, fn func() error) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.state
	if !canTransition(from, to) {
		return from, false
	}
	if fn != nil && fn() != nil {
		return from, false
	}
	m.state = to
	return from, true
}

var (
	transmitStates = []State{BoundTx, BoundTrx}
	receiveStates  = []State{BoundRx, BoundTrx}
	boundStates    = []State{BoundTx, BoundRx, BoundTrx}
	linkStates     = []State{Open, BoundTx, BoundRx, BoundTrx}
	openStates     = []State{Open}
)

// requiredStates returns the states in which a request may flow in the
// given direction; nil means the request never flows that way.
func requiredStates(id pdu.CommandID, fromESME bool) []State {
	switch id {
	case pdu.BindTransmitterID, pdu.BindReceiverID, pdu.BindTransceiverID:
		if fromESME {
			return openStates
		}
	case pdu.OutbindID:
		if !fromESME {
			return openStates
		}
	case pdu.UnbindID:
		return boundStates
	case pdu.EnquireLinkID:
		return linkStates
	case pdu.SubmitSmID, pdu.SubmitMultiID, pdu.QuerySmID, pdu.CancelSmID, pdu.ReplaceSmID:
		if fromESME {
			return transmitStates
		}
	case pdu.DeliverSmID, pdu.AlertNotificationID:
		if !fromESME {
			return receiveStates
		}
	case pdu.DataSmID:
		if fromESME {
			return transmitStates
		}
		return receiveStates
	}
	return nil
}

// boundState returns the state a successful bind of the kind leads to.
func boundState(id pdu.CommandID) State {
	switch id.Request() {
	case pdu.BindTransmitterID:
		return BoundTx
	case pdu.BindReceiverID:
		return BoundRx
	}
	return BoundTrx
}
