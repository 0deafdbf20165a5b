package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"smppgw/pdu"
)

// ServerListener accepts ESME connections.
type ServerListener struct {
	// InitiationTimer bounds the time from accept to a successful bind.
	InitiationTimer time.Duration
	// Handlers receives requests on every accepted session. It may be nil.
	Handlers ServerMessageReceiverListener

	ln      net.Listener
	cfg     Config
	mu      sync.Mutex
	timeout time.Duration
}

// Listen opens a TCP listener on addr.
func Listen(addr string, cfg Config) (*ServerListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &IOError{Op: "listen " + addr, Err: err}
	}
	return NewServerListener(ln, cfg), nil
}

// NewServerListener wraps an existing listener.
func NewServerListener(ln net.Listener, cfg Config) *ServerListener {
	cfg = cfg.Normalize()
	return &ServerListener{ln: ln, cfg: cfg, InitiationTimer: cfg.InitiationTimer}
}

// Addr returns the listening address.
func (l *ServerListener) Addr() net.Addr { return l.ln.Addr() }

// SetTimeout bounds each Accept call; zero waits forever.
func (l *ServerListener) SetTimeout(d time.Duration) {
	l.mu.Lock()
	l.timeout = d
	l.mu.Unlock()
}

// Accept waits for the next connection and returns its session. The
// initiation timer starts before the session is built.
func (l *ServerListener) Accept() (*ServerSession, error) {
	l.mu.Lock()
	timeout := l.timeout
	l.mu.Unlock()
	if dl, ok := l.ln.(interface{ SetDeadline(time.Time) error }); ok {
		var t time.Time
		if timeout > 0 {
			t = time.Now().Add(timeout)
		}
		dl.SetDeadline(t)
	}
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, &IOError{Op: "accept", Err: err}
	}
	until := time.Now().Add(l.InitiationTimer)
	return newServerSession(conn, l.cfg, l.Handlers, until), nil
}

// Close stops accepting. Sessions already accepted stay open.
func (l *ServerListener) Close() error { return l.ln.Close() }

// ServerSession is the SMSC end of a session.
type ServerSession struct {
	*Session
	handlers ServerMessageReceiverListener

	bindMu      sync.Mutex
	bindPending bool
	binds       chan *BindRequest
}

// NewServerSession starts a server session over an established
// connection. The peer must bind within cfg.InitiationTimer.
func NewServerSession(conn net.Conn, cfg Config, handlers ServerMessageReceiverListener) *ServerSession {
	cfg = cfg.Normalize()
	return newServerSession(conn, cfg, handlers, time.Now().Add(cfg.InitiationTimer))
}

func newServerSession(conn net.Conn, cfg Config, handlers ServerMessageReceiverListener, until time.Time) *ServerSession {
	ss := &ServerSession{
		Session:  newSession(conn, cfg, false),
		handlers: handlers,
		binds:    make(chan *BindRequest, 1),
	}
	ss.initUntil = until
	ss.handler = ss
	ss.start()
	return ss
}

// BindRequest is an inbound bind awaiting the application's decision.
type BindRequest struct {
	Type pdu.CommandID
	pdu.Bind

	seq      uint32
	session  *ServerSession
	mu       sync.Mutex
	resolved bool
}

func (r *BindRequest) resolve() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return false
	}
	r.resolved = true
	return true
}

// Accept answers the bind with ESME_ROK and moves the session to the bound
// state matching the bind kind. systemID identifies the SMSC.
func (r *BindRequest) Accept(systemID string, opts ...pdu.TLV) error {
	if !r.resolve() {
		return ErrBindResolved
	}
	ss := r.session
	body := &pdu.BindResp{SystemID: systemID}
	body.Options.SetUint8(pdu.TagSCInterfaceVersion, pdu.InterfaceVersion)
	for _, o := range opts {
		body.Options.Set(o.Tag, o.Value)
	}
	if err := pdu.Validate(body); err != nil {
		return err
	}
	resp := &pdu.PDU{ID: r.Type.Response(), Sequence: r.seq, Body: body}
	frame, err := pdu.Encode(resp)
	if err != nil {
		return err
	}
	var writeErr error
	ok := ss.setStateDo(boundState(r.Type), func() error {
		ss.setSystemID(r.SystemID)
		writeErr = ss.tr.writeFrame(resp, frame)
		return writeErr
	})
	if writeErr != nil {
		ss.closeWith(writeErr)
		return writeErr
	}
	if !ok {
		return ss.closedError()
	}
	ss.log.WithField("system", r.SystemID).Infof("bound as %s", ss.State())
	return nil
}

// Reject answers the bind with a negative bind_resp carrying status and
// closes the session.
func (r *BindRequest) Reject(status pdu.Status) error {
	if !r.resolve() {
		return ErrBindResolved
	}
	if status == pdu.ESME_ROK {
		status = pdu.ESME_RBINDFAIL
	}
	ss := r.session
	ss.bindMu.Lock()
	ss.bindPending = false
	ss.bindMu.Unlock()
	if ss.State() == Closed {
		return ss.closedError()
	}
	ss.log.WithFields(logrus.Fields{"system": r.SystemID, "status": status}).Info("bind rejected")
	err := ss.tr.write(&pdu.PDU{ID: r.Type.Response(), Status: status, Sequence: r.seq})
	ss.closeWith(fmt.Errorf("%w: %s", ErrBindRejected, status))
	return err
}

// WaitForBind blocks until the peer sends a bind request.
func (ss *ServerSession) WaitForBind(ctx context.Context) (*BindRequest, error) {
	select {
	case r := <-ss.binds:
		return r, nil
	case <-ss.done:
		return nil, ss.closedError()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ss *ServerSession) handleBind(p *pdu.PDU) {
	ss.bindMu.Lock()
	if ss.State() != Open || ss.bindPending {
		ss.bindMu.Unlock()
		ss.log.Warnf("%s while already bound", p.ID)
		ss.reply(p.Response(pdu.ESME_RALYBND, nil))
		return
	}
	ss.bindPending = true
	ss.bindMu.Unlock()
	b := p.Body.(*pdu.Bind)
	req := &BindRequest{Type: p.ID, Bind: *b, seq: p.Sequence, session: ss}
	select {
	case ss.binds <- req:
	default:
		ss.reply(p.Response(pdu.ESME_RALYBND, nil))
	}
}

func (ss *ServerSession) handleRequest(p *pdu.PDU) (pdu.Body, error) {
	h := ss.handlers
	if h == nil {
		return nil, ErrNoListener
	}
	switch m := p.Body.(type) {
	case *pdu.SubmitSm:
		return asBody(h.OnAcceptSubmitSm(ss, m))
	case *pdu.SubmitMulti:
		return asBody(h.OnAcceptSubmitMulti(ss, m))
	case *pdu.QuerySm:
		return asBody(h.OnAcceptQuerySm(ss, m))
	case *pdu.CancelSm:
		return nil, h.OnAcceptCancelSm(ss, m)
	case *pdu.ReplaceSm:
		return nil, h.OnAcceptReplaceSm(ss, m)
	case *pdu.DataSm:
		return asBody(h.OnAcceptDataSm(ss, m))
	}
	return nil, ErrNoListener
}

// asBody converts a typed listener result; typed nils are dropped by invoke.
func asBody[T pdu.Body](b T, err error) (pdu.Body, error) { return b, err }

// DeliverShortMessage sends deliver_sm to the bound receiver.
func (ss *ServerSession) DeliverShortMessage(ctx context.Context, m *pdu.DeliverSm) error {
	_, err := ss.transact(ctx, &pdu.PDU{ID: pdu.DeliverSmID, Body: m}, ss.cfg.TransactionTimeout)
	return err
}

// DataShortMessage sends data_sm to the bound receiver.
func (ss *ServerSession) DataShortMessage(ctx context.Context, m *pdu.DataSm) (*pdu.DataSmResp, error) {
	resp, err := ss.transact(ctx, &pdu.PDU{ID: pdu.DataSmID, Body: m}, ss.cfg.TransactionTimeout)
	if err != nil {
		return nil, err
	}
	return resp.Body.(*pdu.DataSmResp), nil
}

// AlertNotification sends alert_notification. It has no response.
func (ss *ServerSession) AlertNotification(m *pdu.AlertNotification) error {
	return ss.send(&pdu.PDU{ID: pdu.AlertNotificationID, Body: m})
}
