package pdu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/linxGnu/gosmpp/data"
	wire "github.com/linxGnu/gosmpp/pdu"
)

const (
	// HeaderLength is the size of the fixed PDU header.
	HeaderLength = 16
	// MaxPDUSize bounds the command_length accepted from the wire.
	MaxPDUSize = 64 * 1024
	// InterfaceVersion is the SMPP version advertised in bind requests.
	InterfaceVersion = 0x34
)

var (
	// ErrMissingBody is returned by Encode for a kind that needs a body.
	ErrMissingBody = errors.New("pdu: missing body")
	// ErrBodyMismatch is returned by Encode when the body type does not
	// belong to the command id.
	ErrBodyMismatch = errors.New("pdu: body does not match command id")
	// ErrFrameTooLarge is returned by Encode for a frame over MaxPDUSize.
	ErrFrameTooLarge = errors.New("pdu: frame too large")

	errShortFrame = errors.New("frame truncated")
)

// PDU is one SMPP protocol data unit.
type PDU struct {
	ID       CommandID
	Status   Status
	Sequence uint32
	Body     Body
}

// String returns a short description for logs.
func (p *PDU) String() string {
	return fmt.Sprintf("%s seq=%d status=%s", p.ID, p.Sequence, p.Status)
}

// Response builds the response PDU for a request, with the same sequence
// number.
func (p *PDU) Response(status Status, body Body) *PDU {
	return &PDU{ID: p.ID.Response(), Status: status, Sequence: p.Sequence, Body: body}
}

// GenericNack builds a generic_nack PDU.
func GenericNack(sequence uint32, status Status) *PDU {
	return &PDU{ID: GenericNackID, Status: status, Sequence: sequence}
}

// newBody returns an empty body for the command id. ok is false for
// unknown ids; a nil body with ok true means the kind has no mandatory
// parameters.
func newBody(id CommandID) (body Body, ok bool) {
	switch id {
	case BindReceiverID, BindTransmitterID, BindTransceiverID:
		return new(Bind), true
	case BindReceiverRespID, BindTransmitterRespID, BindTransceiverRespID:
		return new(BindResp), true
	case OutbindID:
		return new(Outbind), true
	case SubmitSmID:
		return new(SubmitSm), true
	case SubmitSmRespID:
		return new(SubmitSmResp), true
	case DeliverSmID:
		return new(DeliverSm), true
	case DeliverSmRespID:
		return new(DeliverSmResp), true
	case DataSmID:
		return new(DataSm), true
	case DataSmRespID:
		return new(DataSmResp), true
	case SubmitMultiID:
		return new(SubmitMulti), true
	case SubmitMultiRespID:
		return new(SubmitMultiResp), true
	case QuerySmID:
		return new(QuerySm), true
	case QuerySmRespID:
		return new(QuerySmResp), true
	case CancelSmID:
		return new(CancelSm), true
	case ReplaceSmID:
		return new(ReplaceSm), true
	case AlertNotificationID:
		return new(AlertNotification), true
	case GenericNackID, EnquireLinkID, EnquireLinkRespID, UnbindID, UnbindRespID,
		CancelSmRespID, ReplaceSmRespID:
		return nil, true
	}
	return nil, false
}

// NewBody returns an empty body for the command id, or nil for kinds
// without mandatory parameters and for unknown ids.
func NewBody(id CommandID) Body {
	b, _ := newBody(id)
	return b
}

// Encode returns the wire frame of the PDU, length prefix included.
func Encode(p *PDU) ([]byte, error) {
	want, ok := newBody(p.ID)
	if !ok {
		return nil, fmt.Errorf("pdu: cannot encode %s", p.ID)
	}
	switch {
	case p.Body == nil && want != nil:
		// error responses may omit the body
		if !p.ID.IsResponse() || p.Status.OK() {
			return nil, fmt.Errorf("%w: %s", ErrMissingBody, p.ID)
		}
	case p.Body != nil && reflect.TypeOf(p.Body) != reflect.TypeOf(want):
		return nil, fmt.Errorf("%w: %s with %T", ErrBodyMismatch, p.ID, p.Body)
	}
	if err := optionsOfBody(p.Body).check(); err != nil {
		return nil, err
	}
	var frame []byte
	if p.Body == nil && want != nil {
		frame = make([]byte, HeaderLength)
	} else {
		w, err := wire.CreatePDUFromCmdID(data.CommandIDType(p.ID))
		if err != nil {
			return nil, fmt.Errorf("pdu: encode %s: %w", p.ID, err)
		}
		if p.Body != nil {
			if err := p.Body.toWire(w); err != nil {
				return nil, fmt.Errorf("pdu: encode %s: %w", p.ID, err)
			}
		}
		w.SetSequenceNumber(int32(p.Sequence))
		buf := wire.NewBuffer(make([]byte, 0, 64))
		w.Marshal(buf)
		frame = buf.Bytes()
	}
	if len(frame) > MaxPDUSize {
		return nil, fmt.Errorf("%w: %s is %d octets, limit %d", ErrFrameTooLarge, p.ID, len(frame), MaxPDUSize)
	}
	// gosmpp has no setter for command_status
	binary.BigEndian.PutUint32(frame[0:], uint32(len(frame)))
	binary.BigEndian.PutUint32(frame[4:], uint32(p.ID))
	binary.BigEndian.PutUint32(frame[8:], uint32(p.Status))
	binary.BigEndian.PutUint32(frame[12:], p.Sequence)
	return frame, nil
}

// FrameLength validates the command_length at the start of a frame and
// returns it. Errors are fatal: the stream cannot be resynchronized.
func FrameLength(prefix []byte) (int, error) {
	if len(prefix) < 4 {
		return 0, &DecodeError{Err: errShortFrame, Status: ESME_RINVCMDLEN}
	}
	n := binary.BigEndian.Uint32(prefix)
	switch {
	case n < HeaderLength:
		return 0, &DecodeError{Err: fmt.Errorf("command length %d under header size", n), Status: ESME_RINVCMDLEN}
	case n > MaxPDUSize:
		return 0, &DecodeError{Err: fmt.Errorf("command length %d over limit %d", n, MaxPDUSize), Status: ESME_RINVCMDLEN}
	}
	return int(n), nil
}

// Decode parses one complete frame.
func Decode(frame []byte) (*PDU, error) {
	n, err := FrameLength(frame)
	if err != nil {
		err.(*DecodeError).Frame = frame
		return nil, err
	}
	if n != len(frame) {
		return nil, &DecodeError{
			Frame:  frame,
			Err:    fmt.Errorf("command length %d, frame has %d bytes", n, len(frame)),
			Status: ESME_RINVCMDLEN,
		}
	}
	p := &PDU{
		ID:       CommandID(binary.BigEndian.Uint32(frame[4:])),
		Status:   Status(binary.BigEndian.Uint32(frame[8:])),
		Sequence: binary.BigEndian.Uint32(frame[12:]),
	}
	fault := func(err error, status Status) error {
		return &DecodeError{
			Frame:       frame,
			Header:      p,
			Err:         err,
			Status:      status,
			recoverable: true,
		}
	}
	body, ok := newBody(p.ID)
	if !ok {
		return nil, fault(fmt.Errorf("unknown command id 0x%08X", uint32(p.ID)), ESME_RINVCMDID)
	}
	rest := frame[HeaderLength:]
	if body == nil || (len(rest) == 0 && p.ID.IsResponse() && !p.Status.OK()) {
		if len(rest) != 0 {
			return nil, fault(fmt.Errorf("%s carries %d unexpected body bytes", p.ID, len(rest)), ESME_RINVCMDLEN)
		}
		return p, nil
	}
	w, err := wire.Parse(bytes.NewReader(frame))
	if err != nil {
		return nil, fault(fmt.Errorf("%s: %w", p.ID, err), ESME_RINVCMDLEN)
	}
	if err := body.fromWire(w); err != nil {
		return nil, fault(fmt.Errorf("%s: %w", p.ID, err), ESME_RINVCMDLEN)
	}
	p.Body = body
	return p, nil
}

// DecodeError reports a malformed inbound frame.
type DecodeError struct {
	Frame  []byte // offending bytes
	Header *PDU   // parsed header, nil when framing itself failed
	Err    error
	Status Status // status to report in generic_nack

	recoverable bool
}

func (e *DecodeError) Error() string {
	if e.Header != nil {
		return fmt.Sprintf("pdu: decode %s seq=%d: %v", e.Header.ID, e.Header.Sequence, e.Err)
	}
	return fmt.Sprintf("pdu: decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Recoverable reports whether the frame boundary is intact, so the fault can
// be answered with generic_nack and reading can continue.
func (e *DecodeError) Recoverable() bool { return e.recoverable }

// Sequence returns the sequence number of the offending PDU, or 0 when the
// header could not be parsed.
func (e *DecodeError) Sequence() uint32 {
	if e.Header == nil {
		return 0
	}
	return e.Header.Sequence
}
