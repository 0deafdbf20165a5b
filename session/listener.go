package session

import "smppgw/pdu"

// MessageReceiverListener handles requests an SMSC sends to a client
// session. A returned *ProcessRequestError or pdu.Status becomes the
// response status; any other error answers ESME_RSYSERR.
type MessageReceiverListener interface {
	OnAcceptDeliverSm(s *ClientSession, m *pdu.DeliverSm) error
	OnAcceptDataSm(s *ClientSession, m *pdu.DataSm) (*pdu.DataSmResp, error)
	OnAcceptAlertNotification(s *ClientSession, m *pdu.AlertNotification)
}

// ServerMessageReceiverListener handles requests an ESME sends to a server
// session. Error mapping is the same as for MessageReceiverListener.
type ServerMessageReceiverListener interface {
	OnAcceptSubmitSm(s *ServerSession, m *pdu.SubmitSm) (*pdu.SubmitSmResp, error)
	OnAcceptSubmitMulti(s *ServerSession, m *pdu.SubmitMulti) (*pdu.SubmitMultiResp, error)
	OnAcceptQuerySm(s *ServerSession, m *pdu.QuerySm) (*pdu.QuerySmResp, error)
	OnAcceptCancelSm(s *ServerSession, m *pdu.CancelSm) error
	OnAcceptReplaceSm(s *ServerSession, m *pdu.ReplaceSm) error
	OnAcceptDataSm(s *ServerSession, m *pdu.DataSm) (*pdu.DataSmResp, error)
}

// SessionStateListener is told about every applied state transition. It is
// called synchronously and must not block or close the session itself.
type SessionStateListener interface {
	OnStateChange(s *Session, from, to State)
}

// StateListenerFunc adapts a function to SessionStateListener.
type StateListenerFunc func(s *Session, from, to State)

func (f StateListenerFunc) OnStateChange(s *Session, from, to State) { f(s, from, to) }
