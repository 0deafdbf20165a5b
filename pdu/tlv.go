package pdu

import "encoding/binary"

// Tag identifies an optional parameter.
type Tag uint16

// Optional parameter tags used by the engine and its callers.
const (
	TagDestAddrSubunit          Tag = 0x0005
	TagSourceAddrSubunit        Tag = 0x000D
	TagPayloadType              Tag = 0x0019
	TagAdditionalStatusInfoText Tag = 0x001D
	TagReceiptedMessageID       Tag = 0x001E
	TagUserMessageReference     Tag = 0x0204
	TagSourcePort               Tag = 0x020A
	TagDestinationPort          Tag = 0x020B
	TagSarMsgRefNum             Tag = 0x020C
	TagSarTotalSegments         Tag = 0x020E
	TagSarSegmentSeqnum         Tag = 0x020F
	TagSCInterfaceVersion       Tag = 0x0210
	TagNetworkErrorCode         Tag = 0x0423
	TagMessagePayload           Tag = 0x0424
	TagDeliveryFailureReason    Tag = 0x0425
	TagMessageState             Tag = 0x0427
	TagMsAvailabilityStatus     Tag = 0x0422
)

// TLV is a single tag-length-value optional parameter. The length is taken
// from the value on encoding.
type TLV struct {
	Tag   Tag
	Value []byte
}

// Options is an ordered list of optional parameters.
type Options []TLV

// Get returns the value of the first parameter with the tag.
func (o Options) Get(tag Tag) ([]byte, bool) {
	for _, tlv := range o {
		if tlv.Tag == tag {
			return tlv.Value, true
		}
	}
	return nil, false
}

// Uint8 returns a one-byte parameter value.
func (o Options) Uint8(tag Tag) (uint8, bool) {
	v, ok := o.Get(tag)
	if !ok || len(v) != 1 {
		return 0, false
	}
	return v[0], true
}

// Uint16 returns a two-byte parameter value.
func (o Options) Uint16(tag Tag) (uint16, bool) {
	v, ok := o.Get(tag)
	if !ok || len(v) != 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(v), true
}

// String returns a C-Octet string parameter value without its terminator.
func (o Options) String(tag Tag) (string, bool) {
	v, ok := o.Get(tag)
	if !ok {
		return "", false
	}
	if n := len(v); n > 0 && v[n-1] == 0 {
		v = v[:n-1]
	}
	return string(v), true
}

// Set replaces the value of the parameter with the tag or appends it.
func (o *Options) Set(tag Tag, value []byte) {
	for i := range *o {
		if (*o)[i].Tag == tag {
			(*o)[i].Value = value
			return
		}
	}
	*o = append(*o, TLV{Tag: tag, Value: value})
}

// SetUint8 stores a one-byte parameter.
func (o *Options) SetUint8(tag Tag, v uint8) { o.Set(tag, []byte{v}) }

// SetUint16 stores a two-byte parameter.
func (o *Options) SetUint16(tag Tag, v uint16) {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	o.Set(tag, b)
}

// SetString stores a C-Octet string parameter.
func (o *Options) SetString(tag Tag, s string) { o.Set(tag, append([]byte(s), 0)) }
