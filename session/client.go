package session

import (
	"context"
	"net"

	"golang.org/x/time/rate"
	"smppgw/pdu"
)

// BindType selects the bind kind.
type BindType = pdu.CommandID

// Bind kinds.
const (
	BindTransmitter BindType = pdu.BindTransmitterID
	BindReceiver    BindType = pdu.BindReceiverID
	BindTransceiver BindType = pdu.BindTransceiverID
)

// ClientSession is the ESME end of a session.
type ClientSession struct {
	*Session
	receiver MessageReceiverListener
	limiter  *rate.Limiter
}

// SubmitMultiResult is the outcome of submit_multi. Destinations the SMSC
// refused are listed in Unsuccess; they do not make the call fail.
type SubmitMultiResult struct {
	MessageID string
	Unsuccess []pdu.UnsuccessSme
}

// Dial connects to an SMSC and returns an open, unbound session.
func Dial(ctx context.Context, addr string, cfg Config, receiver MessageReceiverListener) (*ClientSession, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &IOError{Op: "dial " + addr, Err: err}
	}
	return NewClientSession(conn, cfg, receiver), nil
}

// NewClientSession starts a client session over an established connection.
// receiver may be nil; deliveries are then refused with ESME_RSYSERR.
func NewClientSession(conn net.Conn, cfg Config, receiver MessageReceiverListener) *ClientSession {
	c := &ClientSession{Session: newSession(conn, cfg, true), receiver: receiver}
	if c.cfg.SubmitRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.cfg.SubmitRate), c.cfg.SubmitBurst)
	}
	c.handler = c
	c.start()
	return c
}

// Bind sends a bind request and waits for the response. On success the
// session is bound and the SMSC system_id is returned. Any failure closes
// the session.
func (c *ClientSession) Bind(ctx context.Context, kind BindType, params pdu.Bind) (string, error) {
	if params.InterfaceVersion == 0 {
		params.InterfaceVersion = pdu.InterfaceVersion
	}
	resp, err := c.transact(ctx, &pdu.PDU{ID: kind, Body: &params}, c.cfg.TransactionTimeout)
	if err != nil {
		c.log.WithError(err).Warn("bind failed")
		c.closeWith(err)
		return "", err
	}
	systemID := resp.Body.(*pdu.BindResp).SystemID
	c.log.WithField("system", systemID).Infof("bound as %s", c.State())
	return systemID, nil
}

// throttle waits for the submit rate limiter.
func (c *ClientSession) throttle(ctx context.Context, id pdu.CommandID) error {
	if c.limiter == nil {
		return nil
	}
	ctx, cancel := deadline(ctx, c.cfg.TransactionTimeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		return &ResponseTimeoutError{Command: id, Wait: c.cfg.TransactionTimeout}
	}
	return nil
}

// SubmitShortMessage sends submit_sm and returns the SMSC message id.
func (c *ClientSession) SubmitShortMessage(ctx context.Context, m *pdu.SubmitSm) (string, error) {
	if err := c.throttle(ctx, pdu.SubmitSmID); err != nil {
		return "", err
	}
	resp, err := c.transact(ctx, &pdu.PDU{ID: pdu.SubmitSmID, Body: m}, c.cfg.TransactionTimeout)
	if err != nil {
		return "", err
	}
	return resp.Body.(*pdu.SubmitSmResp).MessageID, nil
}

// SubmitMultiple sends submit_multi.
func (c *ClientSession) SubmitMultiple(ctx context.Context, m *pdu.SubmitMulti) (*SubmitMultiResult, error) {
	if err := c.throttle(ctx, pdu.SubmitMultiID); err != nil {
		return nil, err
	}
	resp, err := c.transact(ctx, &pdu.PDU{ID: pdu.SubmitMultiID, Body: m}, c.cfg.TransactionTimeout)
	if err != nil {
		return nil, err
	}
	body := resp.Body.(*pdu.SubmitMultiResp)
	return &SubmitMultiResult{MessageID: body.MessageID, Unsuccess: body.Unsuccess}, nil
}

// QueryShortMessage sends query_sm for a previously submitted message.
func (c *ClientSession) QueryShortMessage(ctx context.Context, messageID string, source pdu.Address) (*pdu.QuerySmResp, error) {
	resp, err := c.transact(ctx, &pdu.PDU{
		ID:   pdu.QuerySmID,
		Body: &pdu.QuerySm{MessageID: messageID, Source: source},
	}, c.cfg.TransactionTimeout)
	if err != nil {
		return nil, err
	}
	return resp.Body.(*pdu.QuerySmResp), nil
}

// CancelShortMessage sends cancel_sm.
func (c *ClientSession) CancelShortMessage(ctx context.Context, m *pdu.CancelSm) error {
	_, err := c.transact(ctx, &pdu.PDU{ID: pdu.CancelSmID, Body: m}, c.cfg.TransactionTimeout)
	return err
}

// ReplaceShortMessage sends replace_sm.
func (c *ClientSession) ReplaceShortMessage(ctx context.Context, m *pdu.ReplaceSm) error {
	_, err := c.transact(ctx, &pdu.PDU{ID: pdu.ReplaceSmID, Body: m}, c.cfg.TransactionTimeout)
	return err
}

// DataShortMessage sends data_sm.
func (c *ClientSession) DataShortMessage(ctx context.Context, m *pdu.DataSm) (*pdu.DataSmResp, error) {
	if err := c.throttle(ctx, pdu.DataSmID); err != nil {
		return nil, err
	}
	resp, err := c.transact(ctx, &pdu.PDU{ID: pdu.DataSmID, Body: m}, c.cfg.TransactionTimeout)
	if err != nil {
		return nil, err
	}
	return resp.Body.(*pdu.DataSmResp), nil
}

func (c *ClientSession) handleBind(p *pdu.PDU) {
	c.log.Warnf("%s from SMSC refused", p.ID)
	c.reply(pdu.GenericNack(p.Sequence, pdu.ESME_RINVCMDID))
}

func (c *ClientSession) handleRequest(p *pdu.PDU) (pdu.Body, error) {
	if c.receiver == nil {
		return nil, ErrNoListener
	}
	switch m := p.Body.(type) {
	case *pdu.DeliverSm:
		return nil, c.receiver.OnAcceptDeliverSm(c, m)
	case *pdu.DataSm:
		resp, err := c.receiver.OnAcceptDataSm(c, m)
		if resp == nil {
			return nil, err
		}
		return resp, err
	case *pdu.AlertNotification:
		c.receiver.OnAcceptAlertNotification(c, m)
		return nil, nil
	}
	return nil, ErrNoListener
}
