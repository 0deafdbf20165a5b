package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"smppgw/pdu"
)

// handler is the role specific part of a session.
type handler interface {
	// handleBind processes an inbound bind request.
	handleBind(p *pdu.PDU)
	// handleRequest runs the listener for an inbound request that passed
	// the state check and returns the response body.
	handleRequest(p *pdu.PDU) (pdu.Body, error)
}

// Session is one SMPP connection. ClientSession and ServerSession embed it.
type Session struct {
	id        string
	esme      bool // local end is the ESME
	cfg       Config
	conn      net.Conn
	log       *logrus.Entry
	tr        transport
	state     stateMachine
	tracker   *tracker
	keepAlive keepAlive
	handler   handler

	mu        sync.Mutex
	systemID  string // peer system_id once bound
	listeners []SessionStateListener
	cause     error
	initUntil time.Time // server side: bind deadline

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn net.Conn, cfg Config, esme bool) *Session {
	cfg = cfg.Normalize()
	id := uuid.New().String()
	s := &Session{
		id:      id,
		esme:    esme,
		cfg:     cfg,
		conn:    conn,
		tracker: newTracker(),
		done:    make(chan struct{}),
	}
	s.log = cfg.Logger.WithFields(logrus.Fields{
		"session": id,
		"remote":  conn.RemoteAddr().String(),
	})
	s.tr = transport{conn: conn, cfg: &s.cfg, log: s.log, touch: s.keepAlive.reset}
	sessionStates.WithLabelValues(Open.String()).Inc()
	return s
}

// start launches the reader and the keep-alive timer.
func (s *Session) start() {
	go s.readLoop()
	s.keepAlive.start(s.cfg.EnquireLinkInterval, s.ping)
}

// ID returns the unique session identifier used in logs and journals.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state.get() }

// SystemID returns the peer's system_id once bound.
func (s *Session) SystemID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systemID
}

func (s *Session) setSystemID(id string) {
	s.mu.Lock()
	s.systemID = id
	s.mu.Unlock()
}

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the reason the session closed, nil while open or after a
// local Close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// AddStateListener registers l for state transitions.
func (s *Session) AddStateListener(l SessionStateListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Session) notify(from, to State) {
	sessionStates.WithLabelValues(from.String()).Dec()
	if to != Closed {
		sessionStates.WithLabelValues(to.String()).Inc()
	}
	s.log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("state")
	s.mu.Lock()
	list := append([]SessionStateListener(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range list {
		l.OnStateChange(s, from, to)
	}
}

// setState applies a transition and notifies listeners.
func (s *Session) setState(to State) bool {
	return s.setStateDo(to, nil)
}

func (s *Session) setStateDo(to State, fn func() error) bool {
	from, ok := s.state.transitionDo(to, fn)
	if ok {
		s.notify(from, to)
	}
	return ok
}

// Close closes the connection without unbinding. Pending transactions fail
// with ConnectionClosedError.
func (s *Session) Close() error {
	s.closeWith(nil)
	return nil
}

func (s *Session) closeWith(cause error) {
	var (
		from    State
		changed bool
		first   bool
	)
	s.closeOnce.Do(func() {
		first = true
		s.mu.Lock()
		s.cause = cause
		s.mu.Unlock()
		s.keepAlive.stop()
		s.conn.Close()
		from, changed = s.state.transition(Closed)
		s.tracker.failAll(&ConnectionClosedError{Cause: cause})
		entry := s.log
		if cause != nil {
			entry = entry.WithError(cause)
		}
		entry.Info("session closed")
	})
	if !first {
		return
	}
	if changed {
		s.notify(from, Closed)
	}
	close(s.done)
}

func (s *Session) closedError() error {
	return &ConnectionClosedError{Cause: s.Err()}
}

// deadline bounds ctx by d; the earlier deadline wins.
func deadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// guard runs fn while the state is one of required. The read lock is held
// across fn so no transition slips between the check and the write; fn
// only writes an already encoded frame. closeWith closes the connection
// before it takes the write lock, which unblocks a write stalled on the peer.
func (s *Session) guard(id pdu.CommandID, required []State, fn func() error) error {
	s.state.mu.RLock()
	cur := s.state.state
	var err error
	switch {
	case cur == Closed:
		err = s.closedError()
	case !contains(required, cur):
		err = &IllegalStateError{Command: id, State: cur, Required: required}
	default:
		err = fn()
	}
	s.state.mu.RUnlock()
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		s.closeWith(err)
	}
	return err
}

// admit checks the state without locking, so requests that can never be
// sent fail before a sequence number is taken.
func (s *Session) admit(id pdu.CommandID, required []State) error {
	switch cur := s.State(); {
	case cur == Closed:
		return s.closedError()
	case !contains(required, cur):
		return &IllegalStateError{Command: id, State: cur, Required: required}
	}
	return nil
}

// transact sends a request and waits for the correlated response. The
// response is returned only when its status is ESME_ROK and it matches the
// request kind.
func (s *Session) transact(ctx context.Context, req *pdu.PDU, timeout time.Duration) (*pdu.PDU, error) {
	if err := pdu.Validate(req.Body); err != nil {
		return nil, err
	}
	required := requiredStates(req.ID, s.esme)
	if required == nil {
		return nil, &IllegalStateError{Command: req.ID, State: s.State()}
	}
	ctx, cancel := deadline(ctx, timeout)
	defer cancel()

	started := time.Now()
	var slot *pending
	err := s.admit(req.ID, required)
	if err == nil {
		slot, err = s.tracker.register(req.ID)
	}
	if err == nil {
		req.Sequence = slot.seq
		// encoded outside the state lock
		var frame []byte
		if frame, err = pdu.Encode(req); err == nil {
			err = s.guard(req.ID, required, func() error {
				return s.tr.writeFrame(req, frame)
			})
		}
		if err != nil {
			s.tracker.remove(slot.seq)
		}
	}
	var resp *pdu.PDU
	if err == nil {
		resp, err = s.tracker.wait(ctx, slot)
		if err == nil {
			err = checkResponse(req, resp)
		}
		transactionSeconds.WithLabelValues(req.ID.String()).Observe(time.Since(started).Seconds())
	}
	s.record(req, resp, started, err)
	if err != nil {
		s.log.WithError(err).WithField("seq", req.Sequence).Debugf("%s failed", req.ID)
		return nil, err
	}
	return resp, nil
}

func checkResponse(req, resp *pdu.PDU) error {
	switch {
	case resp.ID == pdu.GenericNackID && resp.Status != pdu.ESME_ROK:
		return &NegativeResponseError{Command: req.ID, Status: resp.Status}
	case resp.ID != req.ID.Response():
		return &InvalidResponseError{Command: req.ID, Response: resp.ID, Reason: "unexpected command id"}
	case resp.Status != pdu.ESME_ROK:
		return &NegativeResponseError{Command: req.ID, Status: resp.Status}
	case resp.Body == nil && pdu.NewBody(resp.ID) != nil:
		return &InvalidResponseError{Command: req.ID, Response: resp.ID, Reason: "missing body"}
	}
	return nil
}

func (s *Session) record(req, resp *pdu.PDU, started time.Time, err error) {
	if s.cfg.Journal == nil {
		return
	}
	rec := TransactionRecord{
		SessionID: s.id,
		SystemID:  s.SystemID(),
		Command:   req.ID,
		Sequence:  req.Sequence,
		Started:   started,
		Duration:  time.Since(started),
	}
	if resp != nil {
		rec.Status = resp.Status
	}
	var neg *NegativeResponseError
	if errors.As(err, &neg) {
		rec.Status = neg.Status
	}
	if err != nil {
		rec.Err = err.Error()
	}
	s.cfg.Journal.Record(rec)
}

// send writes a request that has no response, such as alert_notification.
func (s *Session) send(req *pdu.PDU) error {
	if err := pdu.Validate(req.Body); err != nil {
		return err
	}
	required := requiredStates(req.ID, s.esme)
	if required == nil {
		return &IllegalStateError{Command: req.ID, State: s.State()}
	}
	if err := s.admit(req.ID, required); err != nil {
		return err
	}
	req.Sequence = s.tracker.nextSequence()
	frame, err := pdu.Encode(req)
	if err != nil {
		return err
	}
	return s.guard(req.ID, required, func() error {
		return s.tr.writeFrame(req, frame)
	})
}

// reply writes a response or generic_nack. Responses are not state checked.
func (s *Session) reply(p *pdu.PDU) {
	if err := s.tr.write(p); err != nil {
		s.log.WithError(err).Warnf("%s not sent", p.ID)
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			s.closeWith(err)
		}
	}
}

// EnquireLink sends enquire_link and waits for the response.
func (s *Session) EnquireLink(ctx context.Context) error {
	_, err := s.transact(ctx, &pdu.PDU{ID: pdu.EnquireLinkID}, s.cfg.EnquireLinkTimeout)
	return err
}

// UnbindAndClose sends unbind when bound, waits for unbind_resp and closes
// the connection. The session is closed even when the unbind fails.
func (s *Session) UnbindAndClose(ctx context.Context) error {
	var err error
	if s.State().Bound() {
		_, err = s.transact(ctx, &pdu.PDU{ID: pdu.UnbindID}, s.cfg.TransactionTimeout)
		s.setState(Unbound)
	}
	s.closeWith(nil)
	return err
}

// ping runs when the link was idle for EnquireLinkInterval.
func (s *Session) ping() {
	if !contains(linkStates, s.State()) {
		return
	}
	if err := s.EnquireLink(context.Background()); err != nil {
		var closed *ConnectionClosedError
		if errors.As(err, &closed) {
			return
		}
		s.log.WithError(err).Warn("keep-alive failed")
		s.closeWith(ErrKeepAliveFailed)
	}
}
