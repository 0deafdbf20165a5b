package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"smppgw/pdu"
	"smppgw/session"
	"smppgw/sms"
	"smppgw/zabbix"
)

// MaxErrors is the default number of connection errors after which a link
// gives up.
const MaxErrors = 10

// ErrNotConnected is returned by Send while the link is down.
var ErrNotConnected = errors.New("esme: link not bound")

// messageLog stores sent and received messages.
type messageLog interface {
	Insert(link, calling, called, text string, inbound bool, messageID string) error
}

// ESME is an outgoing transceiver link to an SMSC that reconnects on
// failure.
type ESME struct {
	Addr           string         `yaml:"addr"`
	SystemID       string         `yaml:"systemId"`
	Password       string         `yaml:"password"`
	SystemType     string         `yaml:"systemType,omitempty"`
	ReconnectDelay time.Duration  `yaml:"reconnectDelay,omitempty"`
	MaxErrors      int            `yaml:"maxErrors,omitempty"`
	MaxParts       int            `yaml:"maxParts,omitempty"`
	ZabbixKey      string         `yaml:"zabbixKey,omitempty"`
	Disabled       bool           `yaml:"disabled,omitempty"`
	Session        session.Config `yaml:"session,omitempty"`

	Logger   *logrus.Entry    `yaml:"-"`
	Zabbix   *zabbix.Log      `yaml:"-"`
	Messages messageLog       `yaml:"-"`
	Receive  chan interface{} `yaml:"-"` // sms.Received and *sms.Receipt, never blocks
	Bound    func(*ESME)      `yaml:"-"` // called after every successful bind

	name      string
	mu        sync.Mutex
	client    *session.ClientSession
	closing   bool
	stop      chan struct{}
	stopped   chan struct{}
	assembler sms.Assembler
}

// Start connects in the background and keeps the link up until Close.
func (e *ESME) Start() {
	e.mu.Lock()
	if e.Logger == nil {
		e.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	e.closing = false
	e.stop = make(chan struct{})
	e.stopped = make(chan struct{})
	e.mu.Unlock()
	e.assembler.MaxAge = 10 * time.Minute
	go e.run()
}

func (e *ESME) run() {
	defer close(e.stopped)
	maxErrors := MaxErrors // maximum number of allowable errors
	if e.MaxErrors > 0 {
		maxErrors = e.MaxErrors
	}
	delay := e.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	var lastErrorTime time.Time // time of the last connection error
	for i := 0; i < maxErrors; i++ {
		err := e.connect()
		if err == nil || e.isClosing() {
			return // planned stop
		}
		e.Logger.WithError(err).Error("SMPP connection error")
		if time.Since(lastErrorTime) > time.Minute*30 {
			i = 0 // reset the error counter if errors were long ago
		}
		lastErrorTime = time.Now()
		select {
		case <-time.After(delay):
		case <-e.stop:
			return
		}
	}
	e.Logger.Warning("SMPP connection stopped")
}

func (e *ESME) isClosing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closing
}

// connect dials, binds and blocks until the session closes.
func (e *ESME) connect() error {
	cfg := e.Session
	cfg.Logger = e.Logger
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := session.Dial(ctx, e.Addr, cfg, e)
	if err != nil {
		return err
	}
	if e.Zabbix != nil && e.ZabbixKey != "" {
		client.AddStateListener(zabbix.NewLink(*e.Zabbix, e.ZabbixKey))
	}
	smsc, err := client.Bind(ctx, session.BindTransceiver, pdu.Bind{
		SystemID:   e.SystemID,
		Password:   e.Password,
		SystemType: e.SystemType,
	})
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.closing {
		e.mu.Unlock()
		client.UnbindAndClose(ctx)
		return nil
	}
	e.client = client
	e.mu.Unlock()
	e.Logger.WithField("smsc", smsc).Info("SMPP connected")
	if e.Bound != nil {
		e.Bound(e)
	}
	<-client.Done()
	e.mu.Lock()
	e.client = nil
	e.mu.Unlock()
	return client.Err()
}

// Close unbinds and stops reconnecting.
func (e *ESME) Close() error {
	e.mu.Lock()
	if e.stop == nil || e.closing {
		e.mu.Unlock()
		return nil
	}
	e.closing = true
	close(e.stop)
	client := e.client
	e.mu.Unlock()
	var err error
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.UnbindAndClose(ctx)
		cancel()
	}
	<-e.stopped
	e.Logger.Info("SMPP closed")
	return err
}

func (e *ESME) current() *session.ClientSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client
}

// Send splits the message and submits every part, requesting a delivery
// receipt. The SMSC message ids are stored in msg.IDs.
func (e *ESME) Send(ctx context.Context, msg *sms.SendMessage) error {
	client := e.current()
	if client == nil {
		return ErrNotConnected
	}
	maxParts := sms.MaxParts
	if e.MaxParts > 0 {
		maxParts = e.MaxParts
	}
	segments, err := sms.Split(msg.Text, maxParts)
	if err != nil {
		return err
	}
	log := e.Logger.WithFields(logrus.Fields{
		"from": msg.From,
		"to":   msg.To,
	})
	log.Debugf("SMS send text: %q", msg.Text)
	msg.IDs = make([]string, 0, len(segments))
	for i, seg := range segments {
		m := &pdu.SubmitSm{}
		m.Source = pdu.Address{TON: 1, NPI: 1, Addr: msg.From}
		m.Dest = pdu.Address{TON: 1, NPI: 1, Addr: msg.To}
		m.EsmClass = seg.EsmClass
		m.DataCoding = seg.DataCoding
		m.RegisteredDelivery = 1
		m.Message = seg.Message
		id, err := client.SubmitShortMessage(ctx, m)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"id":     id,
			"count":  i + 1,
			"total":  len(segments),
			"code":   seg.DataCoding,
			"length": len(seg.Message),
		}).Info("SMS send")
		msg.IDs = append(msg.IDs, id)
	}
	if e.Messages != nil {
		if err := e.Messages.Insert(e.name, msg.From, msg.To, msg.Text, false, msg.IDs[0]); err != nil {
			log.WithError(err).Error("message log")
		}
	}
	return nil
}

func (e *ESME) publish(v interface{}) {
	if e.Receive == nil {
		return
	}
	select {
	case e.Receive <- v:
	default:
		e.Logger.Warn("receive queue full")
	}
}

func (e *ESME) OnAcceptDeliverSm(s *session.ClientSession, m *pdu.DeliverSm) error {
	log := e.Logger.WithFields(logrus.Fields{
		"from":   m.Source.Addr,
		"to":     m.Dest.Addr,
		"length": len(m.Message),
		"code":   m.DataCoding,
		"class":  m.EsmClass,
	})
	if m.IsReceipt() { // delivery confirmation
		r, err := sms.ParseReceipt(sms.Decode(m.DataCoding, m.Message))
		if err != nil {
			log.WithError(err).Warn("SMS bad receipt")
			return nil
		}
		r.Addr = e.name
		log.WithField("id", r.ID).Infof("SMS status: %q", r.Stat)
		e.publish(r)
		return nil
	}
	data := m.Message
	if m.EsmClass&sms.EsmClassUDHI != 0 { // part of a long message
		c, payload, ok := sms.ParseUDH(data)
		data = payload
		if ok {
			log = log.WithFields(logrus.Fields{
				"group": c.Ref,
				"total": c.Total,
				"count": c.Seq,
			})
			full, done := e.assembler.Add(m.Source.Addr, c, payload)
			if !done {
				log.Info("SMS received (part)")
				return nil
			}
			data = full
		}
	}
	msg := sms.Received{
		From: m.Source.Addr,
		To:   m.Dest.Addr,
		Text: sms.Decode(m.DataCoding, data),
		Addr: e.name,
	}
	log.Info("SMS received (full)")
	log.Debugf("SMS received text: %q", msg.Text)
	if e.Messages != nil {
		if err := e.Messages.Insert(e.name, msg.From, msg.To, msg.Text, true, ""); err != nil {
			log.WithError(err).Error("message log")
		}
	}
	e.publish(msg)
	return nil
}

func (e *ESME) OnAcceptDataSm(s *session.ClientSession, m *pdu.DataSm) (*pdu.DataSmResp, error) {
	payload, _ := m.Options.Get(pdu.TagMessagePayload)
	msg := sms.Received{
		From: m.Source.Addr,
		To:   m.Dest.Addr,
		Text: sms.Decode(m.DataCoding, payload),
		Addr: e.name,
	}
	e.Logger.WithFields(logrus.Fields{"from": msg.From, "to": msg.To}).Info("SMS received (data_sm)")
	e.publish(msg)
	return &pdu.DataSmResp{}, nil
}

func (e *ESME) OnAcceptAlertNotification(s *session.ClientSession, m *pdu.AlertNotification) {
	e.Logger.WithField("source", m.Source.Addr).Info("alert notification")
}

var _ session.MessageReceiverListener = (*ESME)(nil)
