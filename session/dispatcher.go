package session

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
	"smppgw/pdu"
)

// dispatch checks an unsolicited request against the state machine, runs
// the listener and writes the response.
func (s *Session) dispatch(p *pdu.PDU) {
	required := requiredStates(p.ID, !s.esme)
	if required == nil {
		s.log.Warnf("%s not expected from peer", p.ID)
		s.reply(pdu.GenericNack(p.Sequence, pdu.ESME_RINVCMDID))
		return
	}
	if cur := s.State(); !contains(required, cur) {
		s.log.WithField("state", cur).Warnf("%s refused", p.ID)
		if p.ID.HasResponse() {
			s.reply(p.Response(pdu.ESME_RINVBNDSTS, nil))
		}
		return
	}
	body, err := s.invoke(p)
	if !p.ID.HasResponse() {
		return
	}
	status := statusOf(err)
	if err != nil {
		s.log.WithError(err).WithField("status", status).Infof("%s answered with error", p.ID)
	}
	if status != pdu.ESME_ROK {
		body = nil
	} else if body == nil {
		body = pdu.NewBody(p.ID.Response())
	}
	s.reply(p.Response(status, body))
}

// invoke runs the role handler, turning a listener panic into an error.
func (s *Session) invoke(p *pdu.PDU) (body pdu.Body, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{"panic": r, "seq": p.Sequence}).Errorf("%s listener panic", p.ID)
			body, err = nil, fmt.Errorf("listener panic: %v", r)
		}
	}()
	body, err = s.handler.handleRequest(p)
	if isNilBody(body) {
		body = nil
	}
	return body, err
}

// isNilBody catches typed nil pointers returned by listeners.
func isNilBody(b pdu.Body) bool {
	if b == nil {
		return true
	}
	v := reflect.ValueOf(b)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
