package pdu

import (
	"fmt"
	"sort"

	"github.com/linxGnu/gosmpp/data"
	wire "github.com/linxGnu/gosmpp/pdu"
)

// MaxTLVLength is the largest value a 16-bit TLV length can carry.
const MaxTLVLength = 0xFFFF

// coding carries short_message octets through gosmpp untouched: the
// octets are already encoded by the caller and data_coding travels as is.
type coding byte

func (c coding) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (c coding) Decode(b []byte) (string, error) { return string(b), nil }
func (c coding) DataCoding() byte { return byte(c) }

var _ data.Encoding = coding(0)

func setMessage(sm *wire.ShortMessage, dc, defaultMsgID uint8, msg []byte) error {
	sm.SmDefaultMsgID = defaultMsgID
	return sm.SetMessageDataWithEncoding(msg, coding(dc))
}

// messageOf returns data_coding, sm_default_msg_id and the raw
// short_message octets, user data header included.
func messageOf(sm *wire.ShortMessage) (dc, defaultMsgID uint8, msg []byte, err error) {
	if enc := sm.Encoding(); enc != nil {
		dc = enc.DataCoding()
	}
	payload, err := sm.GetMessageData()
	if err != nil {
		return 0, 0, nil, err
	}
	msg = payload
	if udh := sm.UDH(); len(udh) > 0 {
		head, err := udh.MarshalBinary()
		if err != nil {
			return 0, 0, nil, err
		}
		msg = append(head, payload...)
	}
	if len(msg) == 0 {
		msg = nil
	}
	return dc, sm.SmDefaultMsgID, msg, nil
}

func (o Options) toWire(w wire.PDU) {
	for _, tlv := range o {
		w.RegisterOptionalParam(wire.Field{Tag: wire.Tag(tlv.Tag), Data: tlv.Value})
	}
}

// optionsOf converts parsed optional parameters, ordered by tag.
func optionsOf(params map[wire.Tag]wire.Field) Options {
	if len(params) == 0 {
		return nil
	}
	opts := make(Options, 0, len(params))
	for tag, f := range params {
		opts = append(opts, TLV{Tag: Tag(tag), Value: f.Data})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Tag < opts[j].Tag })
	return opts
}

// check returns a *StringError for the first value over MaxTLVLength.
func (o Options) check() error {
	for _, tlv := range o {
		if len(tlv.Value) > MaxTLVLength {
			return &StringError{
				Field:  fmt.Sprintf("tlv 0x%04X", uint16(tlv.Tag)),
				Value:  fmt.Sprintf("%d octets", len(tlv.Value)),
				Reason: fmt.Sprintf("longer than %d octets", MaxTLVLength),
			}
		}
	}
	return nil
}

// optionsOfBody returns the optional parameters carried by a body.
func optionsOfBody(b Body) Options {
	switch b := b.(type) {
	case *SubmitSm:
		return b.Options
	case *DeliverSm:
		return b.Options
	case *DataSm:
		return b.Options
	case *DataSmResp:
		return b.Options
	case *BindResp:
		return b.Options
	case *SubmitMulti:
		return b.Options
	case *AlertNotification:
		return b.Options
	}
	return nil
}

func mismatch(b Body, w wire.PDU) error {
	return fmt.Errorf("%w: %T for %T", ErrBodyMismatch, b, w)
}
