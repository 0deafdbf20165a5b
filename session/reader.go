package session

import (
	"errors"
	"time"

	"smppgw/pdu"
)

// readLoop reads frames until the connection fails or the session closes.
// Inbound requests are handled one at a time on this goroutine.
func (s *Session) readLoop() {
	for {
		if s.initiationExpired() {
			s.log.Warn("peer did not bind in time")
			s.closeWith(ErrInitiationTimeout)
			return
		}
		frame, err := s.tr.readFrame()
		if err == errIdle {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		if err != nil {
			select {
			case <-s.done: // closed locally
			default:
				s.log.WithError(err).Debug("read failed")
				s.closeWith(err)
			}
			return
		}
		p, err := pdu.Decode(frame)
		if err != nil {
			var de *pdu.DecodeError
			if errors.As(err, &de) && de.Recoverable() {
				pdusTotal.WithLabelValues(directionIn, "invalid").Inc()
				s.log.WithError(err).Warn("malformed pdu")
				s.reply(pdu.GenericNack(de.Sequence(), de.Status))
				continue
			}
			s.log.WithError(err).Error("framing error")
			s.closeWith(err)
			return
		}
		s.tr.trace(true, p)
		pdusTotal.WithLabelValues(directionIn, p.ID.String()).Inc()
		s.route(p)
	}
}

// initiationExpired reports whether a server session is still unbound past
// its initiation timer.
func (s *Session) initiationExpired() bool {
	s.mu.Lock()
	until := s.initUntil
	s.mu.Unlock()
	return !until.IsZero() && s.State() == Open && time.Now().After(until)
}

// route hands one decoded PDU to its consumer.
func (s *Session) route(p *pdu.PDU) {
	if p.ID.IsResponse() {
		s.resolve(p)
		return
	}
	switch p.ID {
	case pdu.BindTransmitterID, pdu.BindReceiverID, pdu.BindTransceiverID:
		s.handler.handleBind(p)
	case pdu.UnbindID:
		s.handleUnbind(p)
	case pdu.EnquireLinkID:
		if !contains(linkStates, s.State()) {
			s.reply(p.Response(pdu.ESME_RINVBNDSTS, nil))
			return
		}
		s.reply(p.Response(pdu.ESME_ROK, nil))
	case pdu.OutbindID:
		s.log.Info("outbind ignored")
	default:
		s.dispatch(p)
	}
}

// resolve passes a response to the tracker. A successful bind_resp moves
// the client to its bound state before the next PDU is read.
func (s *Session) resolve(p *pdu.PDU) {
	if s.esme && p.ID.Request().IsBind() && p.Status == pdu.ESME_ROK {
		if w, ok := s.tracker.lookup(p.Sequence); ok && w.id == p.ID.Request() {
			if resp, ok := p.Body.(*pdu.BindResp); ok {
				s.setSystemID(resp.SystemID)
			}
			s.setState(boundState(p.ID))
		}
	}
	if !s.tracker.resolve(p) {
		s.log.WithField("seq", p.Sequence).Warnf("orphan %s dropped", p.ID)
	}
}

// handleUnbind answers unbind and closes the session.
func (s *Session) handleUnbind(p *pdu.PDU) {
	var writeErr error
	ok := s.setStateDo(Unbound, func() error {
		writeErr = s.tr.write(p.Response(pdu.ESME_ROK, nil))
		return writeErr
	})
	if !ok {
		if writeErr == nil {
			s.reply(p.Response(pdu.ESME_RINVBNDSTS, nil))
			return
		}
		s.log.WithError(writeErr).Warn("unbind_resp not sent")
	}
	s.closeWith(ErrUnbound)
}
