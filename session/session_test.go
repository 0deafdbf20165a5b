package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"smppgw/pdu"
)

var dest = pdu.Address{TON: 1, NPI: 1, Addr: "6281234567"}

func TestBindNegotiation(t *testing.T) {
	client, server := pair(t, testConfig(), nil, &smsc{})

	errc := make(chan error, 1)
	var smscID string
	go func() {
		var err error
		smscID, err = client.Bind(context.Background(), BindTransceiver, pdu.Bind{SystemID: "sys", Password: "pass"})
		errc <- err
	}()
	req, err := server.WaitForBind(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sys", req.SystemID)
	assert.Equal(t, "pass", req.Password)
	assert.Equal(t, pdu.BindTransceiverID, req.Type)
	assert.Equal(t, uint8(pdu.InterfaceVersion), req.InterfaceVersion)
	require.NoError(t, req.Accept("smsc1"))

	require.NoError(t, <-errc)
	assert.Equal(t, "smsc1", smscID)
	assert.Equal(t, BoundTrx, client.State())
	assert.Equal(t, BoundTrx, server.State())
	assert.Equal(t, "sys", server.SystemID())
	assert.Equal(t, "smsc1", client.SystemID())

	assert.Equal(t, ErrBindResolved, req.Accept("again"))
	assert.Equal(t, ErrBindResolved, req.Reject(pdu.ESME_RBINDFAIL))
}

func TestBindRejectClosesClient(t *testing.T) {
	client, server := pair(t, testConfig(), nil, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := client.Bind(context.Background(), BindTransmitter, pdu.Bind{SystemID: "sys", Password: "bad"})
		errc <- err
	}()
	req, err := server.WaitForBind(context.Background())
	require.NoError(t, err)
	require.NoError(t, req.Reject(pdu.ESME_RINVPASWD))

	err = <-errc
	var neg *NegativeResponseError
	require.True(t, errors.As(err, &neg), "got %v", err)
	assert.Equal(t, pdu.ESME_RINVPASWD, neg.Status)
	waitClosed(t, client.Session)
	assert.Equal(t, Closed, client.State())
	waitClosed(t, server.Session)
	assert.Equal(t, Closed, server.State())
}

func TestBindRejectClosesServer(t *testing.T) {
	a, b := net.Pipe()
	server := NewServerSession(b, testConfig(), nil)
	defer server.Close()
	peer := newRawPeer(t, a)

	peer.write(&pdu.PDU{ID: pdu.BindTransmitterID, Sequence: 1, Body: &pdu.Bind{SystemID: "sys", Password: "bad"}})
	req, err := server.WaitForBind(context.Background())
	require.NoError(t, err)
	require.NoError(t, req.Reject(pdu.ESME_RINVPASWD))

	resp := peer.expect(pdu.BindTransmitterRespID)
	assert.Equal(t, pdu.ESME_RINVPASWD, resp.Status)
	assert.Equal(t, uint32(1), resp.Sequence)

	waitClosed(t, server.Session)
	assert.Equal(t, Closed, server.State())
	assert.True(t, errors.Is(server.Err(), ErrBindRejected), "got %v", server.Err())

	_, err = server.WaitForBind(context.Background())
	var closed *ConnectionClosedError
	assert.True(t, errors.As(err, &closed), "got %v", err)
	_, ok := <-peer.in
	assert.False(t, ok, "connection must be closed after the rejection")
}

func TestSecondBindAlreadyBound(t *testing.T) {
	a, b := net.Pipe()
	server := NewServerSession(b, testConfig(), nil)
	defer server.Close()
	peer := newRawPeer(t, a)

	peer.write(&pdu.PDU{ID: pdu.BindTransmitterID, Sequence: 1, Body: &pdu.Bind{SystemID: "sys"}})
	req, err := server.WaitForBind(context.Background())
	require.NoError(t, err)

	peer.write(&pdu.PDU{ID: pdu.BindTransmitterID, Sequence: 2, Body: &pdu.Bind{SystemID: "sys"}})
	resp := peer.expect(pdu.BindTransmitterRespID)
	assert.Equal(t, uint32(2), resp.Sequence)
	assert.Equal(t, pdu.ESME_RALYBND, resp.Status)

	require.NoError(t, req.Accept("smsc1"))
	resp = peer.expect(pdu.BindTransmitterRespID)
	assert.Equal(t, uint32(1), resp.Sequence)
	assert.Equal(t, pdu.ESME_ROK, resp.Status)
	assert.Equal(t, BoundTx, server.State())

	peer.write(&pdu.PDU{ID: pdu.BindTransceiverID, Sequence: 3, Body: &pdu.Bind{SystemID: "sys"}})
	resp = peer.expect(pdu.BindTransceiverRespID)
	assert.Equal(t, pdu.ESME_RALYBND, resp.Status)
}

func TestSubmitTimeout(t *testing.T) {
	a, b := net.Pipe()
	cfg := testConfig()
	cfg.TransactionTimeout = 200 * time.Millisecond
	client := NewClientSession(a, cfg, nil)
	defer client.Close()
	peer := newRawPeer(t, b)
	bindRaw(t, client, peer)

	started := time.Now()
	_, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest, Message: []byte("hi")}})
	req := peer.expect(pdu.SubmitSmID)
	assert.Equal(t, uint32(2), req.Sequence)

	var te *ResponseTimeoutError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.GreaterOrEqual(t, time.Since(started), 200*time.Millisecond)
	assert.Equal(t, 0, client.tracker.len())
	assert.Equal(t, BoundTrx, client.State())

	// a late response is dropped and the session stays usable
	peer.write(req.Response(pdu.ESME_ROK, &pdu.SubmitSmResp{MessageID: "late"}))
	go func() {
		req := peer.expect(pdu.SubmitSmID)
		peer.write(req.Response(pdu.ESME_ROK, &pdu.SubmitSmResp{MessageID: "m2"}))
	}()
	id, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
	require.NoError(t, err)
	assert.Equal(t, "m2", id)
}

func TestContextDeadlineWins(t *testing.T) {
	a, b := net.Pipe()
	client := NewClientSession(a, testConfig(), nil)
	defer client.Close()
	peer := newRawPeer(t, b)
	bindRaw(t, client, peer)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := client.EnquireLink(ctx)
	var te *ResponseTimeoutError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Less(t, te.Wait, time.Second)
}

func TestCancelNegativeResponse(t *testing.T) {
	h := &smsc{cancel: func(m *pdu.CancelSm) error {
		if m.MessageID == "unknown" {
			return pdu.Status(11)
		}
		return nil
	}}
	client, server := pair(t, testConfig(), nil, h)
	bindPair(t, client, server)

	require.NoError(t, client.CancelShortMessage(context.Background(), &pdu.CancelSm{MessageID: "known", Dest: dest}))

	err := client.CancelShortMessage(context.Background(), &pdu.CancelSm{MessageID: "unknown", Dest: dest})
	var neg *NegativeResponseError
	require.True(t, errors.As(err, &neg), "got %v", err)
	assert.Equal(t, pdu.Status(11), neg.Status)
	assert.Equal(t, pdu.CancelSmID, neg.Command)
	assert.True(t, errors.Is(err, pdu.Status(11)))
}

func TestDeliverWithoutListener(t *testing.T) {
	client, server := pair(t, testConfig(), nil, &smsc{})
	bindPair(t, client, server)

	err := server.DeliverShortMessage(context.Background(), &pdu.DeliverSm{ShortMessage: pdu.ShortMessage{Dest: dest, Message: []byte("mo")}})
	var neg *NegativeResponseError
	require.True(t, errors.As(err, &neg), "got %v", err)
	assert.Equal(t, pdu.ESME_RSYSERR, neg.Status)
	assert.Equal(t, BoundTrx, client.State())
	select {
	case <-client.Done():
		t.Fatal("client closed")
	default:
	}
}

func TestDeliverListenerErrors(t *testing.T) {
	receiver := &esme{}
	client, server := pair(t, testConfig(), receiver, &smsc{})
	bindPair(t, client, server)
	deliver := func() error {
		return server.DeliverShortMessage(context.Background(), &pdu.DeliverSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
	}

	require.NoError(t, deliver())
	assert.Len(t, receiver.delivered, 1)

	receiver.err = &ProcessRequestError{Status: pdu.ESME_RMSGQFUL}
	var neg *NegativeResponseError
	require.True(t, errors.As(deliver(), &neg))
	assert.Equal(t, pdu.ESME_RMSGQFUL, neg.Status)

	receiver.err = nil
	receiver.panics = true
	require.True(t, errors.As(deliver(), &neg))
	assert.Equal(t, pdu.ESME_RSYSERR, neg.Status)
	assert.Equal(t, BoundTrx, client.State(), "a listener panic does not kill the session")
}

func TestAlertNotification(t *testing.T) {
	receiver := &esme{}
	client, server := pair(t, testConfig(), receiver, &smsc{})
	bindPair(t, client, server)

	require.NoError(t, server.AlertNotification(&pdu.AlertNotification{Source: dest, Esme: dest}))
	require.Eventually(t, func() bool {
		receiver.mu.Lock()
		defer receiver.mu.Unlock()
		return receiver.alerts == 1
	}, time.Second, 10*time.Millisecond)
	// the link is still in sync: no response was sent for the alert
	require.NoError(t, client.EnquireLink(context.Background()))
}

func TestKeepAliveFailureClosesSession(t *testing.T) {
	a, b := net.Pipe()
	cfg := testConfig()
	cfg.TransactionTimeout = 5 * time.Second
	cfg.EnquireLinkInterval = 150 * time.Millisecond
	cfg.EnquireLinkTimeout = 100 * time.Millisecond
	client := NewClientSession(a, cfg, nil)
	defer client.Close()
	peer := newRawPeer(t, b)
	bindRaw(t, client, peer)

	errc := make(chan error, 1)
	go func() {
		_, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
		errc <- err
	}()
	peer.expect(pdu.SubmitSmID)
	peer.expect(pdu.EnquireLinkID)

	waitClosed(t, client.Session)
	assert.Equal(t, Closed, client.State())
	assert.Equal(t, ErrKeepAliveFailed, client.Err())

	err := <-errc
	var closed *ConnectionClosedError
	require.True(t, errors.As(err, &closed), "got %v", err)
	assert.True(t, errors.Is(err, ErrKeepAliveFailed))
}

func TestKeepAliveAnswered(t *testing.T) {
	cfg := testConfig()
	cfg.EnquireLinkInterval = 50 * time.Millisecond
	client, server := pair(t, cfg, nil, &smsc{})
	bindPair(t, client, server)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, BoundTrx, client.State())
	assert.Equal(t, BoundTrx, server.State())
}

func TestIllegalStateWritesNothing(t *testing.T) {
	a, b := net.Pipe()
	rec := &recordingConn{Conn: a}
	client := NewClientSession(rec, testConfig(), nil)
	defer client.Close()
	newRawPeer(t, b)

	_, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
	var ise *IllegalStateError
	require.True(t, errors.As(err, &ise), "got %v", err)
	assert.Equal(t, Open, ise.State)
	assert.Equal(t, transmitStates, ise.Required)

	err = client.CancelShortMessage(context.Background(), &pdu.CancelSm{MessageID: "1"})
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, 0, rec.count())
}

func TestReceiverCannotSubmit(t *testing.T) {
	a, b := net.Pipe()
	rec := &recordingConn{Conn: a}
	client := NewClientSession(rec, testConfig(), nil)
	defer client.Close()
	peer := newRawPeer(t, b)

	go func() {
		req := peer.expect(pdu.BindReceiverID)
		peer.write(req.Response(pdu.ESME_ROK, &pdu.BindResp{SystemID: "smsc1"}))
	}()
	_, err := client.Bind(context.Background(), BindReceiver, pdu.Bind{SystemID: "sys"})
	require.NoError(t, err)
	writes := rec.count()

	_, err = client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
	var ise *IllegalStateError
	require.True(t, errors.As(err, &ise), "got %v", err)
	assert.Equal(t, BoundRx, ise.State)
	assert.Equal(t, writes, rec.count())
}

func TestCloseBreaksStalledWrite(t *testing.T) {
	a, b := net.Pipe()
	conn := newStallConn(a)
	cfg := testConfig()
	cfg.WriteTimeout = time.Minute
	client := NewClientSession(conn, cfg, nil)
	peer := newRawPeer(t, b)
	bindRaw(t, client, peer)

	conn.stall()
	errc := make(chan error, 1)
	go func() {
		_, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
		errc <- err
	}()
	select {
	case <-conn.blocked:
	case <-time.After(3 * time.Second):
		t.Fatal("submit never reached the connection")
	}

	closed := make(chan struct{})
	go func() {
		client.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked behind a stalled write")
	}
	assert.Equal(t, Closed, client.State())
	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("stalled submit did not fail")
	}
	assert.Equal(t, 0, client.tracker.len())
}

func TestStringErrorBeforeWrite(t *testing.T) {
	a, b := net.Pipe()
	rec := &recordingConn{Conn: a}
	client := NewClientSession(rec, testConfig(), nil)
	defer client.Close()
	peer := newRawPeer(t, b)
	bindRaw(t, client, peer)
	writes := rec.count()

	_, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{
		Dest: pdu.Address{Addr: "123456789012345678901234567890"},
	}})
	var se *PDUStringError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "destination_addr", se.Field)
	assert.Equal(t, writes, rec.count())
}

func TestOversizedPayloadBeforeWrite(t *testing.T) {
	a, b := net.Pipe()
	rec := &recordingConn{Conn: a}
	client := NewClientSession(rec, testConfig(), nil)
	defer client.Close()
	peer := newRawPeer(t, b)
	bindRaw(t, client, peer)
	writes := rec.count()

	m := &pdu.DataSm{Dest: dest}
	m.Options.Set(pdu.TagMessagePayload, make([]byte, 70000))
	_, err := client.DataShortMessage(context.Background(), m)
	var se *PDUStringError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "tlv 0x0424", se.Field)

	m = &pdu.DataSm{Dest: dest}
	m.Options.Set(pdu.TagMessagePayload, make([]byte, 40000))
	m.Options.Set(pdu.TagAdditionalStatusInfoText, make([]byte, 40000))
	_, err = client.DataShortMessage(context.Background(), m)
	assert.True(t, errors.Is(err, pdu.ErrFrameTooLarge), "got %v", err)

	assert.Equal(t, writes, rec.count())
	assert.Equal(t, 0, client.tracker.len())
	assert.Equal(t, BoundTrx, client.State())
}

func TestInboundInIllegalState(t *testing.T) {
	a, b := net.Pipe()
	client := NewClientSession(a, testConfig(), &esme{})
	defer client.Close()
	peer := newRawPeer(t, b)

	peer.write(&pdu.PDU{ID: pdu.DeliverSmID, Sequence: 7, Body: &pdu.DeliverSm{}})
	resp := peer.expect(pdu.DeliverSmRespID)
	assert.Equal(t, uint32(7), resp.Sequence)
	assert.Equal(t, pdu.ESME_RINVBNDSTS, resp.Status)

	peer.write(&pdu.PDU{ID: pdu.SubmitSmID, Sequence: 8, Body: &pdu.SubmitSm{}})
	nack := peer.expect(pdu.GenericNackID)
	assert.Equal(t, uint32(8), nack.Sequence)
	assert.Equal(t, pdu.ESME_RINVCMDID, nack.Status)

	peer.write(&pdu.PDU{ID: pdu.EnquireLinkID, Sequence: 9})
	resp = peer.expect(pdu.EnquireLinkRespID)
	assert.Equal(t, pdu.ESME_ROK, resp.Status)
	assert.Equal(t, Open, client.State())
}

func TestMalformedBodyIsNacked(t *testing.T) {
	a, b := net.Pipe()
	client := NewClientSession(a, testConfig(), nil)
	defer client.Close()
	peer := newRawPeer(t, b)

	// unknown command id with an intact frame
	peer.writeRaw([]byte{0, 0, 0, 16, 0, 0, 0, 0x77, 0, 0, 0, 0, 0, 0, 0, 5})
	nack := peer.expect(pdu.GenericNackID)
	assert.Equal(t, uint32(5), nack.Sequence)
	assert.Equal(t, pdu.ESME_RINVCMDID, nack.Status)

	// the session keeps reading
	peer.write(&pdu.PDU{ID: pdu.EnquireLinkID, Sequence: 6})
	peer.expect(pdu.EnquireLinkRespID)
}

func TestFramingErrorIsFatal(t *testing.T) {
	a, b := net.Pipe()
	client := NewClientSession(a, testConfig(), nil)
	defer client.Close()
	peer := newRawPeer(t, b)

	peer.writeRaw([]byte{0, 0, 0, 8, 0, 0, 0, 0x15})
	waitClosed(t, client.Session)
	var de *pdu.DecodeError
	assert.True(t, errors.As(client.Err(), &de), "got %v", client.Err())
}

func TestPeerUnbind(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	client, server := pair(t, testConfig(), nil, &smsc{})
	client.AddStateListener(StateListenerFunc(func(s *Session, from, to State) {
		mu.Lock()
		states = append(states, to)
		mu.Unlock()
	}))
	bindPair(t, client, server)

	require.NoError(t, client.UnbindAndClose(context.Background()))
	waitClosed(t, client.Session)
	waitClosed(t, server.Session)
	assert.Equal(t, ErrUnbound, server.Err())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, BoundTrx, states[0])
	assert.Equal(t, Closed, states[len(states)-1])

	_, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
	var closed *ConnectionClosedError
	assert.True(t, errors.As(err, &closed), "got %v", err)
}

func TestInitiationTimer(t *testing.T) {
	a, b := net.Pipe()
	cfg := testConfig()
	cfg.InitiationTimer = 100 * time.Millisecond
	server := NewServerSession(b, cfg, nil)
	defer server.Close()
	newRawPeer(t, a)

	waitClosed(t, server.Session)
	assert.Equal(t, ErrInitiationTimeout, server.Err())

	_, err := server.WaitForBind(context.Background())
	var closed *ConnectionClosedError
	assert.True(t, errors.As(err, &closed))
}

func TestSubmitMultiple(t *testing.T) {
	h := &smsc{multi: func(m *pdu.SubmitMulti) (*pdu.SubmitMultiResp, error) {
		resp := &pdu.SubmitMultiResp{MessageID: "multi-1"}
		for _, d := range m.Dests {
			if d.Address.Addr == "000" {
				resp.Unsuccess = append(resp.Unsuccess, pdu.UnsuccessSme{Address: d.Address, Error: pdu.ESME_RINVDSTADR})
			}
		}
		return resp, nil
	}}
	client, server := pair(t, testConfig(), nil, h)
	bindPair(t, client, server)

	res, err := client.SubmitMultiple(context.Background(), &pdu.SubmitMulti{
		Dests:   []pdu.DestAddress{{Address: dest}, {Address: pdu.Address{Addr: "000"}}},
		Message: []byte("hello all"),
	})
	require.NoError(t, err)
	assert.Equal(t, "multi-1", res.MessageID)
	require.Len(t, res.Unsuccess, 1)
	assert.Equal(t, "000", res.Unsuccess[0].Address.Addr)
	assert.Equal(t, pdu.ESME_RINVDSTADR, res.Unsuccess[0].Error)
}

func TestQueryAndReplace(t *testing.T) {
	client, server := pair(t, testConfig(), nil, &smsc{})
	bindPair(t, client, server)

	q, err := client.QueryShortMessage(context.Background(), "abc", dest)
	require.NoError(t, err)
	assert.Equal(t, "abc", q.MessageID)
	assert.Equal(t, uint8(pdu.StateDelivered), q.MessageState)

	require.NoError(t, client.ReplaceShortMessage(context.Background(), &pdu.ReplaceSm{MessageID: "abc", Message: []byte("new")}))

	resp, err := client.DataShortMessage(context.Background(), &pdu.DataSm{Dest: dest})
	require.NoError(t, err)
	assert.Equal(t, "", resp.MessageID)
}

type memJournal struct {
	mu      sync.Mutex
	records []TransactionRecord
}

func (j *memJournal) Record(r TransactionRecord) {
	j.mu.Lock()
	j.records = append(j.records, r)
	j.mu.Unlock()
}

func TestJournal(t *testing.T) {
	j := &memJournal{}
	cfg := testConfig()
	cfg.Journal = j
	h := &smsc{submit: func(m *pdu.SubmitSm) (*pdu.SubmitSmResp, error) {
		return nil, pdu.ESME_RTHROTTLED
	}}
	client, server := pair(t, cfg, nil, h)
	bindPair(t, client, server)

	_, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
	require.Error(t, err)

	j.mu.Lock()
	defer j.mu.Unlock()
	require.Len(t, j.records, 2)
	assert.Equal(t, pdu.BindTransceiverID, j.records[0].Command)
	assert.Equal(t, pdu.ESME_ROK, j.records[0].Status)
	rec := j.records[1]
	assert.Equal(t, pdu.SubmitSmID, rec.Command)
	assert.Equal(t, pdu.ESME_RTHROTTLED, rec.Status)
	assert.Equal(t, client.ID(), rec.SessionID)
	assert.Equal(t, "smsc1", rec.SystemID)
	assert.NotEmpty(t, rec.Err)
}

func TestSubmitThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.SubmitRate = 0.01
	cfg.SubmitBurst = 1
	cfg.TransactionTimeout = 200 * time.Millisecond
	client, server := pair(t, cfg, nil, &smsc{})
	bindPair(t, client, server)

	_, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
	require.NoError(t, err)
	_, err = client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
	var te *ResponseTimeoutError
	assert.True(t, errors.As(err, &te), "got %v", err)
}

func TestListenAccept(t *testing.T) {
	l, err := Listen("127.0.0.1:0", testConfig())
	require.NoError(t, err)
	defer l.Close()
	l.Handlers = &smsc{}

	l.SetTimeout(50 * time.Millisecond)
	_, err = l.Accept()
	require.Error(t, err, "accept times out without a peer")
	l.SetTimeout(0)

	accepted := make(chan *ServerSession, 1)
	go func() {
		ss, err := l.Accept()
		if assert.NoError(t, err) {
			accepted <- ss
		}
	}()
	client, err := Dial(context.Background(), l.Addr().String(), testConfig(), nil)
	require.NoError(t, err)
	defer client.Close()
	server := <-accepted
	defer server.Close()

	bindPair(t, client, server)
	id, err := client.SubmitShortMessage(context.Background(), &pdu.SubmitSm{ShortMessage: pdu.ShortMessage{Dest: dest}})
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}
