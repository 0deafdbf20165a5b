package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"smppgw/pdu"
)

// LogINOUT holds the direction marks used in traffic logs
// (true - inbound, false - outbound).
var LogINOUT = map[bool]string{true: "→", false: "←"}

// errIdle is returned by readFrame when no frame started within the read
// timeout. It is not a failure.
var errIdle = errors.New("idle")

// transport frames PDUs over a net.Conn. Writes are serialized.
type transport struct {
	conn  net.Conn
	cfg   *Config
	log   *logrus.Entry
	wmu   sync.Mutex
	touch func() // called on every frame read or written
}

// write encodes and sends one PDU.
func (t *transport) write(p *pdu.PDU) error {
	frame, err := pdu.Encode(p)
	if err != nil {
		return err
	}
	return t.writeFrame(p, frame)
}

// writeFrame sends a frame encoded from p. A stalled peer blocks it for at
// most WriteTimeout, or until the connection is closed.
func (t *transport) writeFrame(p *pdu.PDU, frame []byte) error {
	t.wmu.Lock()
	if t.cfg.WriteTimeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	_, err := t.conn.Write(frame)
	t.wmu.Unlock()
	if err != nil {
		return &IOError{Op: "write " + p.ID.String(), Err: err}
	}
	t.trace(false, p)
	pdusTotal.WithLabelValues(directionOut, p.ID.String()).Inc()
	if t.touch != nil {
		t.touch()
	}
	return nil
}

// readFrame returns the next complete frame. It waits ReadTimeout for the
// first byte and returns errIdle when none came; once a frame has started
// the rest must arrive within FrameTimeout.
func (t *transport) readFrame() ([]byte, error) {
	var prefix [4]byte
	if t.cfg.ReadTimeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	n, err := t.conn.Read(prefix[:1])
	if n == 0 {
		if err == nil || isTimeout(err) {
			return nil, errIdle
		}
		return nil, err
	}
	if t.cfg.FrameTimeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.cfg.FrameTimeout))
	} else {
		t.conn.SetReadDeadline(time.Time{})
	}
	if _, err = io.ReadFull(t.conn, prefix[1:]); err != nil {
		return nil, incomplete(err)
	}
	length, err := pdu.FrameLength(prefix[:])
	if err != nil {
		return nil, err
	}
	frame := make([]byte, length)
	copy(frame, prefix[:])
	if _, err = io.ReadFull(t.conn, frame[4:]); err != nil {
		return nil, incomplete(err)
	}
	if t.touch != nil {
		t.touch()
	}
	return frame, nil
}

func incomplete(err error) error {
	if isTimeout(err) {
		return &IOError{Op: "read", Err: fmt.Errorf("frame incomplete: %w", err)}
	}
	return &IOError{Op: "read", Err: err}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// trace logs the PDU at debug level with its direction mark.
func (t *transport) trace(in bool, p *pdu.PDU) {
	if !t.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	entry := t.log.WithField("seq", p.Sequence)
	if p.Status != pdu.ESME_ROK {
		entry = entry.WithField("status", p.Status.String())
	}
	entry.Debugf("%s %s", LogINOUT[in], p.ID)
}
