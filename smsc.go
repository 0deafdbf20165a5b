package main

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"smppgw/pdu"
	"smppgw/session"
	"smppgw/sms"
)

// SMSC accepts ESME binds and answers their messages. It does not route
// anything further: submitted messages are acknowledged, optionally
// receipted and handed to Incoming.
type SMSC struct {
	Addr         string            `yaml:"addr"`
	SystemID     string            `yaml:"systemId,omitempty"` // sent in bind_resp
	Accounts     map[string]string `yaml:"accounts"`           // system_id -> password
	ReceiptDelay time.Duration     `yaml:"receiptDelay,omitempty"`
	Session      session.Config    `yaml:"session,omitempty"`
	Logger       *logrus.Entry     `yaml:"-"`
	Incoming     chan sms.Received `yaml:"-"` // optional, never blocks

	ln        *session.ServerListener
	wg        sync.WaitGroup
	mu        sync.Mutex
	closing   bool
	sessions  map[*session.ServerSession]struct{}
	messages  map[string]*message
	assembler sms.Assembler
}

// message is the state of one submitted message.
type message struct {
	systemID  string
	source    pdu.Address
	dest      pdu.Address
	text      string
	state     uint8
	submitted time.Time
	done      time.Time
	timer     *time.Timer
}

// Start opens the listener and accepts sessions in the background.
func (s *SMSC) Start() error {
	if s.Logger == nil {
		s.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	cfg := s.Session
	cfg.Logger = s.Logger
	ln, err := session.Listen(s.Addr, cfg)
	if err != nil {
		return err
	}
	ln.Handlers = s
	s.mu.Lock()
	s.ln = ln
	s.closing = false
	s.sessions = make(map[*session.ServerSession]struct{})
	s.messages = make(map[string]*message)
	s.mu.Unlock()
	s.assembler.MaxAge = 10 * time.Minute
	s.Logger.WithField("listen", ln.Addr().String()).Info("SMSC started")
	s.wg.Add(1)
	go s.serve()
	return nil
}

// ListenAddr returns the bound listener address.
func (s *SMSC) ListenAddr() net.Addr { return s.ln.Addr() }

func (s *SMSC) serve() {
	defer s.wg.Done()
	for {
		ss, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return
			}
			s.Logger.WithError(err).Error("accept")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		s.wg.Add(1)
		go s.handle(ss)
	}
}

// handle runs one session from bind to close.
func (s *SMSC) handle(ss *session.ServerSession) {
	defer s.wg.Done()
	log := s.Logger.WithField("remote", ss.RemoteAddr().String())
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		ss.Close()
		return
	}
	s.sessions[ss] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, ss)
		s.mu.Unlock()
	}()
	// the initiation timer closes the session when no bind arrives in time
	req, err := ss.WaitForBind(context.Background())
	if err != nil {
		log.WithError(err).Debug("no bind")
		return
	}
	if !s.authorize(req.SystemID, req.Password) {
		log.WithField("system", req.SystemID).Warn("bind auth failed")
		if err := req.Reject(pdu.ESME_RINVPASWD); err != nil {
			log.WithError(err).Debug("bind reject")
		}
		return
	}
	if err := req.Accept(s.SystemID); err != nil {
		log.WithError(err).Error("bind accept")
		return
	}
	<-ss.Done()
}

func (s *SMSC) authorize(systemID, password string) bool {
	p, ok := s.Accounts[systemID]
	return ok && p == password
}

// Close stops accepting, unbinds every session and waits for them.
func (s *SMSC) Close() error {
	s.mu.Lock()
	if s.ln == nil || s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	list := make([]*session.ServerSession, 0, len(s.sessions))
	for ss := range s.sessions {
		list = append(list, ss)
	}
	for _, m := range s.messages {
		if m.timer != nil {
			m.timer.Stop()
		}
	}
	s.mu.Unlock()
	err := s.ln.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, ss := range list {
		ss.UnbindAndClose(ctx)
	}
	s.wg.Wait()
	s.Logger.Info("SMSC stopped")
	return err
}

// generateMessageID returns a message_id unique across restarts.
func generateMessageID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.New().String())
}

// text decodes a short message, stripping a concatenation header. It
// returns false while parts of a long message are missing.
func (s *SMSC) text(from string, esmClass, coding uint8, msg []byte) (string, bool) {
	if esmClass&sms.EsmClassUDHI != 0 {
		c, payload, ok := sms.ParseUDH(msg)
		if !ok {
			return sms.Decode(coding, payload), true
		}
		full, done := s.assembler.Add(from, c, payload)
		if !done {
			return "", false
		}
		msg = full
	}
	return sms.Decode(coding, msg), true
}

func (s *SMSC) publish(r sms.Received) {
	if s.Incoming == nil {
		return
	}
	select {
	case s.Incoming <- r:
	default:
		s.Logger.Warn("incoming queue full")
	}
}

// accept stores a submitted message and schedules its receipt.
func (s *SMSC) accept(ss *session.ServerSession, source, dest pdu.Address, registered uint8, text string) string {
	id := generateMessageID()
	m := &message{
		systemID:  ss.SystemID(),
		source:    source,
		dest:      dest,
		text:      text,
		state:     pdu.StateEnroute,
		submitted: time.Now(),
	}
	s.mu.Lock()
	s.prune(m.submitted)
	s.messages[id] = m
	if registered&0x01 != 0 {
		m.timer = time.AfterFunc(s.ReceiptDelay, func() { s.deliverReceipt(ss, id) })
	} else {
		m.timer = time.AfterFunc(s.ReceiptDelay, func() { s.finish(id, pdu.StateDelivered) })
	}
	s.mu.Unlock()
	return id
}

// prune forgets messages that reached a final state over an hour ago.
func (s *SMSC) prune(now time.Time) {
	if len(s.messages) < 10000 {
		return
	}
	for id, m := range s.messages {
		if m.state != pdu.StateEnroute && now.Sub(m.done) > time.Hour {
			delete(s.messages, id)
		}
	}
}

func (s *SMSC) finish(id string, state uint8) (*message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.state != pdu.StateEnroute {
		return nil, false
	}
	m.state = state
	m.done = time.Now()
	return m, true
}

// receiptSession picks a session able to receive deliver_sm for systemID,
// preferring the one the message was submitted on.
func (s *SMSC) receiptSession(prefer *session.ServerSession, systemID string) *session.ServerSession {
	ok := func(ss *session.ServerSession) bool {
		st := ss.State()
		return st == session.BoundRx || st == session.BoundTrx
	}
	if ok(prefer) {
		return prefer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ss := range s.sessions {
		if ss.SystemID() == systemID && ok(ss) {
			return ss
		}
	}
	return nil
}

func (s *SMSC) deliverReceipt(origin *session.ServerSession, id string) {
	m, ok := s.finish(id, pdu.StateDelivered)
	if !ok {
		return
	}
	log := s.Logger.WithField("id", id)
	ss := s.receiptSession(origin, m.systemID)
	if ss == nil {
		log.Warn("no receiver for receipt")
		return
	}
	receipt := &pdu.DeliverSm{}
	receipt.Source = m.dest
	receipt.Dest = m.source
	receipt.EsmClass = 0x04
	receipt.Message = sms.Encode(sms.CodingDefault, sms.FormatReceipt(sms.Receipt{
		ID:     id,
		Sub:    1,
		Dlvrd:  1,
		Submit: m.submitted,
		Done:   m.done,
		Stat:   sms.StatDelivered,
		Text:   m.text,
	}))
	receipt.Options.SetString(pdu.TagReceiptedMessageID, id)
	receipt.Options.SetUint8(pdu.TagMessageState, pdu.StateDelivered)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ss.DeliverShortMessage(ctx, receipt); err != nil {
		log.WithError(err).Error("receipt not delivered")
		return
	}
	log.Info("receipt delivered")
}

func (s *SMSC) lookup(id string) (*message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, false
	}
	c := *m
	return &c, true
}

func (s *SMSC) OnAcceptSubmitSm(ss *session.ServerSession, m *pdu.SubmitSm) (*pdu.SubmitSmResp, error) {
	text, complete := s.text(m.Source.Addr, m.EsmClass, m.DataCoding, m.Message)
	id := s.accept(ss, m.Source, m.Dest, m.RegisteredDelivery, text)
	log := s.Logger.WithFields(logrus.Fields{
		"id":   id,
		"from": m.Source.Addr,
		"to":   m.Dest.Addr,
	})
	if !complete {
		log.Info("SMS received (part)")
		return &pdu.SubmitSmResp{MessageID: id}, nil
	}
	log.Info("SMS received")
	log.Debugf("SMS text: %q", text)
	s.publish(sms.Received{From: m.Source.Addr, To: m.Dest.Addr, Text: text, Addr: ss.SystemID()})
	return &pdu.SubmitSmResp{MessageID: id}, nil
}

func (s *SMSC) OnAcceptSubmitMulti(ss *session.ServerSession, m *pdu.SubmitMulti) (*pdu.SubmitMultiResp, error) {
	text, complete := s.text(m.Source.Addr, m.EsmClass, m.DataCoding, m.Message)
	resp := &pdu.SubmitMultiResp{}
	for _, d := range m.Dests {
		if d.DistributionList != "" {
			resp.Unsuccess = append(resp.Unsuccess, pdu.UnsuccessSme{Error: pdu.ESME_RINVDSTADR})
			continue
		}
		id := s.accept(ss, m.Source, d.Address, m.RegisteredDelivery, text)
		if resp.MessageID == "" {
			resp.MessageID = id
		}
		if complete {
			s.publish(sms.Received{From: m.Source.Addr, To: d.Address.Addr, Text: text, Addr: ss.SystemID()})
		}
	}
	if resp.MessageID == "" {
		return nil, pdu.ESME_RSUBMITFAIL
	}
	return resp, nil
}

func (s *SMSC) OnAcceptQuerySm(ss *session.ServerSession, q *pdu.QuerySm) (*pdu.QuerySmResp, error) {
	m, ok := s.lookup(q.MessageID)
	if !ok || m.source.Addr != q.Source.Addr {
		return nil, pdu.ESME_RINVMSGID
	}
	resp := &pdu.QuerySmResp{MessageID: q.MessageID, MessageState: m.state}
	if !m.done.IsZero() {
		resp.FinalDate = m.done.UTC().Format("060102150405") + "000+"
	}
	return resp, nil
}

func (s *SMSC) OnAcceptCancelSm(ss *session.ServerSession, c *pdu.CancelSm) error {
	m, ok := s.lookup(c.MessageID)
	if !ok {
		return pdu.ESME_RINVMSGID
	}
	if m.source.Addr != c.Source.Addr {
		return &session.ProcessRequestError{Status: pdu.ESME_RCANCELFAIL, Message: "source mismatch"}
	}
	if _, ok := s.finish(c.MessageID, pdu.StateDeleted); !ok {
		return &session.ProcessRequestError{Status: pdu.ESME_RCANCELFAIL, Message: "message in final state"}
	}
	s.Logger.WithField("id", c.MessageID).Info("SMS canceled")
	return nil
}

func (s *SMSC) OnAcceptReplaceSm(ss *session.ServerSession, r *pdu.ReplaceSm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[r.MessageID]
	if !ok {
		return pdu.ESME_RINVMSGID
	}
	if m.state != pdu.StateEnroute || m.source.Addr != r.Source.Addr {
		return &session.ProcessRequestError{Status: pdu.ESME_RREPLACEFAIL, Message: "message not replaceable"}
	}
	m.text = sms.Decode(sms.CodingDefault, r.Message)
	return nil
}

func (s *SMSC) OnAcceptDataSm(ss *session.ServerSession, m *pdu.DataSm) (*pdu.DataSmResp, error) {
	payload, _ := m.Options.Get(pdu.TagMessagePayload)
	text := sms.Decode(m.DataCoding, payload)
	id := s.accept(ss, m.Source, m.Dest, m.RegisteredDelivery, text)
	s.publish(sms.Received{From: m.Source.Addr, To: m.Dest.Addr, Text: text, Addr: ss.SystemID()})
	return &pdu.DataSmResp{MessageID: id}, nil
}

var _ session.ServerMessageReceiverListener = (*SMSC)(nil)
