package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"smppgw/pdu"
)

// PDUStringError is returned before any I/O when a request field violates
// its length or charset constraint.
type PDUStringError = pdu.StringError

var (
	// ErrKeepAliveFailed is the cause of a close forced by an unanswered or
	// rejected enquire_link.
	ErrKeepAliveFailed = errors.New("smpp: enquire_link failed")
	// ErrInitiationTimeout is the cause of a close when the peer did not
	// bind within the initiation timer.
	ErrInitiationTimeout = errors.New("smpp: no bind within initiation timer")
	// ErrBindResolved is returned when a bind request is accepted or
	// rejected a second time.
	ErrBindResolved = errors.New("smpp: bind request already resolved")
	// ErrBindRejected is the cause of a server side close after the bind
	// was refused.
	ErrBindRejected = errors.New("smpp: bind rejected")
	// ErrUnbound is the cause of a close after an unbind exchange.
	ErrUnbound = errors.New("smpp: unbound")
	// ErrNoListener is reported for inbound requests nobody handles.
	ErrNoListener = errors.New("smpp: no listener registered")
)

// IllegalStateError is returned when an operation is not permitted in the
// current session state. Nothing is written to the wire.
type IllegalStateError struct {
	Command  pdu.CommandID
	State    State
	Required []State
}

func (e *IllegalStateError) Error() string {
	if len(e.Required) == 0 {
		return fmt.Sprintf("smpp: %s not allowed for this role (state %s)", e.Command, e.State)
	}
	names := make([]string, len(e.Required))
	for i, s := range e.Required {
		names[i] = s.String()
	}
	return fmt.Sprintf("smpp: %s not allowed in state %s, requires %s",
		e.Command, e.State, strings.Join(names, " or "))
}

// ResponseTimeoutError is returned when no response arrived before the
// deadline. The pending transaction is removed, a late response is dropped.
type ResponseTimeoutError struct {
	Command  pdu.CommandID
	Sequence uint32
	Wait     time.Duration
}

func (e *ResponseTimeoutError) Error() string {
	return fmt.Sprintf("smpp: %s seq=%d: no response within %s", e.Command, e.Sequence, e.Wait)
}

// Timeout reports true, so the error matches net.Error style checks.
func (e *ResponseTimeoutError) Timeout() bool { return true }

// InvalidResponseError is returned when the correlated response has the
// wrong command id or lacks its body.
type InvalidResponseError struct {
	Command  pdu.CommandID
	Response pdu.CommandID
	Reason   string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("smpp: invalid response %s to %s: %s", e.Response, e.Command, e.Reason)
}

// NegativeResponseError is returned when the peer answered with a non-zero
// command_status.
type NegativeResponseError struct {
	Command pdu.CommandID
	Status  pdu.Status
}

func (e *NegativeResponseError) Error() string {
	return fmt.Sprintf("smpp: %s rejected with %s (0x%08X)", e.Command, e.Status, uint32(e.Status))
}

func (e *NegativeResponseError) Unwrap() error { return e.Status }

// ConnectionClosedError is returned for operations on a closed session and
// delivered to every transaction pending when the session closed.
type ConnectionClosedError struct {
	Cause error
}

func (e *ConnectionClosedError) Error() string {
	if e.Cause == nil {
		return "smpp: connection closed"
	}
	return "smpp: connection closed: " + e.Cause.Error()
}

func (e *ConnectionClosedError) Unwrap() error { return e.Cause }

// IOError wraps a transport failure while writing or reading.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return "smpp: " + e.Op + ": " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }

// ProcessRequestError is returned by listeners to answer an inbound request
// with a specific command_status.
type ProcessRequestError struct {
	Status  pdu.Status
	Message string
}

func (e *ProcessRequestError) Error() string {
	if e.Message == "" {
		return "smpp: request refused with " + e.Status.String()
	}
	return "smpp: " + e.Message
}

// statusOf maps a listener result to the command_status of the response.
func statusOf(err error) pdu.Status {
	if err == nil {
		return pdu.ESME_ROK
	}
	var pe *ProcessRequestError
	if errors.As(err, &pe) {
		return pe.Status
	}
	var st pdu.Status
	if errors.As(err, &st) {
		return st
	}
	return pdu.ESME_RSYSERR
}
