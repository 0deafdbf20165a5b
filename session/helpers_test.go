package session

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"smppgw/pdu"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.Formatter = &prefixed.TextFormatter{FullTimestamp: true}
	log.Level = logrus.DebugLevel
	return logrus.NewEntry(log)
}

func testConfig() Config {
	return Config{
		ReadTimeout:         20 * time.Millisecond,
		FrameTimeout:        time.Second,
		WriteTimeout:        time.Second,
		TransactionTimeout:  time.Second,
		EnquireLinkInterval: -1,
		EnquireLinkTimeout:  time.Second,
		InitiationTimer:     5 * time.Second,
		Logger:              testLogger(),
	}
}

// recordingConn counts writes passed to the wrapped connection.
type recordingConn struct {
	net.Conn
	writes int32
}

func (c *recordingConn) Write(b []byte) (int, error) {
	atomic.AddInt32(&c.writes, 1)
	return c.Conn.Write(b)
}

func (c *recordingConn) count() int { return int(atomic.LoadInt32(&c.writes)) }

// stallConn blocks writes once stalled, until the connection is closed.
type stallConn struct {
	net.Conn
	stalled  int32
	blocked  chan struct{}
	closed   chan struct{}
	closeOne sync.Once
}

func newStallConn(c net.Conn) *stallConn {
	return &stallConn{Conn: c, blocked: make(chan struct{}, 1), closed: make(chan struct{})}
}

func (c *stallConn) stall() { atomic.StoreInt32(&c.stalled, 1) }

func (c *stallConn) Write(b []byte) (int, error) {
	if atomic.LoadInt32(&c.stalled) == 0 {
		return c.Conn.Write(b)
	}
	select {
	case c.blocked <- struct{}{}:
	default:
	}
	<-c.closed
	return 0, io.ErrClosedPipe
}

func (c *stallConn) Close() error {
	c.closeOne.Do(func() { close(c.closed) })
	return c.Conn.Close()
}

// rawPeer speaks the wire protocol by hand, for peers that misbehave.
type rawPeer struct {
	t    *testing.T
	conn net.Conn
	in   chan *pdu.PDU
	wmu  sync.Mutex
}

func newRawPeer(t *testing.T, conn net.Conn) *rawPeer {
	r := &rawPeer{t: t, conn: conn, in: make(chan *pdu.PDU, 64)}
	go func() {
		defer close(r.in)
		for {
			var prefix [4]byte
			if _, err := io.ReadFull(conn, prefix[:]); err != nil {
				return
			}
			n, err := pdu.FrameLength(prefix[:])
			if err != nil {
				return
			}
			frame := make([]byte, n)
			copy(frame, prefix[:])
			if _, err := io.ReadFull(conn, frame[4:]); err != nil {
				return
			}
			p, err := pdu.Decode(frame)
			if err != nil {
				continue
			}
			r.in <- p
		}
	}()
	t.Cleanup(func() { conn.Close() })
	return r
}

// expect returns the next PDU the session wrote.
func (r *rawPeer) expect(id pdu.CommandID) *pdu.PDU {
	r.t.Helper()
	select {
	case p, ok := <-r.in:
		require.True(r.t, ok, "connection closed while waiting for %s", id)
		require.Equal(r.t, id, p.ID, "got %s", p)
		return p
	case <-time.After(3 * time.Second):
		r.t.Fatalf("no %s received", id)
	}
	return nil
}

func (r *rawPeer) write(p *pdu.PDU) {
	r.t.Helper()
	frame, err := pdu.Encode(p)
	require.NoError(r.t, err)
	r.writeRaw(frame)
}

func (r *rawPeer) writeRaw(frame []byte) {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	r.conn.Write(frame)
}

// bindRaw binds a client session against a raw peer acting as SMSC.
func bindRaw(t *testing.T, c *ClientSession, peer *rawPeer) {
	t.Helper()
	errc := make(chan error, 1)
	go func() {
		_, err := c.Bind(context.Background(), BindTransceiver, pdu.Bind{SystemID: "sys", Password: "pass"})
		errc <- err
	}()
	req := peer.expect(pdu.BindTransceiverID)
	peer.write(req.Response(pdu.ESME_ROK, &pdu.BindResp{SystemID: "smsc1"}))
	require.NoError(t, <-errc)
	require.Equal(t, BoundTrx, c.State())
}

// pair connects a client and a server session over an in-memory pipe.
func pair(t *testing.T, cfg Config, receiver MessageReceiverListener, handlers ServerMessageReceiverListener) (*ClientSession, *ServerSession) {
	t.Helper()
	a, b := net.Pipe()
	server := NewServerSession(b, cfg, handlers)
	client := NewClientSession(a, cfg, receiver)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// bindPair runs a full bind_transceiver negotiation.
func bindPair(t *testing.T, client *ClientSession, server *ServerSession) {
	t.Helper()
	errc := make(chan error, 1)
	go func() {
		_, err := client.Bind(context.Background(), BindTransceiver, pdu.Bind{SystemID: "sys", Password: "pass"})
		errc <- err
	}()
	req, err := server.WaitForBind(context.Background())
	require.NoError(t, err)
	require.NoError(t, req.Accept("smsc1"))
	require.NoError(t, <-errc)
}

func waitClosed(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session not closed")
	}
}

// smsc is a configurable server listener for tests.
type smsc struct {
	submit func(m *pdu.SubmitSm) (*pdu.SubmitSmResp, error)
	multi  func(m *pdu.SubmitMulti) (*pdu.SubmitMultiResp, error)
	cancel func(m *pdu.CancelSm) error
}

func (h *smsc) OnAcceptSubmitSm(s *ServerSession, m *pdu.SubmitSm) (*pdu.SubmitSmResp, error) {
	if h.submit == nil {
		return &pdu.SubmitSmResp{MessageID: "1"}, nil
	}
	return h.submit(m)
}

func (h *smsc) OnAcceptSubmitMulti(s *ServerSession, m *pdu.SubmitMulti) (*pdu.SubmitMultiResp, error) {
	if h.multi == nil {
		return nil, ErrNoListener
	}
	return h.multi(m)
}

func (h *smsc) OnAcceptQuerySm(s *ServerSession, m *pdu.QuerySm) (*pdu.QuerySmResp, error) {
	return &pdu.QuerySmResp{MessageID: m.MessageID, MessageState: pdu.StateDelivered}, nil
}

func (h *smsc) OnAcceptCancelSm(s *ServerSession, m *pdu.CancelSm) error {
	if h.cancel == nil {
		return nil
	}
	return h.cancel(m)
}

func (h *smsc) OnAcceptReplaceSm(s *ServerSession, m *pdu.ReplaceSm) error { return nil }

func (h *smsc) OnAcceptDataSm(s *ServerSession, m *pdu.DataSm) (*pdu.DataSmResp, error) {
	return nil, nil
}

// esme records what a client session receives.
type esme struct {
	mu        sync.Mutex
	delivered []*pdu.DeliverSm
	alerts    int
	err       error
	panics    bool
}

func (e *esme) OnAcceptDeliverSm(s *ClientSession, m *pdu.DeliverSm) error {
	if e.panics {
		panic("boom")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delivered = append(e.delivered, m)
	return e.err
}

func (e *esme) OnAcceptDataSm(s *ClientSession, m *pdu.DataSm) (*pdu.DataSmResp, error) {
	return &pdu.DataSmResp{MessageID: "d1"}, e.err
}

func (e *esme) OnAcceptAlertNotification(s *ClientSession, m *pdu.AlertNotification) {
	e.mu.Lock()
	e.alerts++
	e.mu.Unlock()
}
