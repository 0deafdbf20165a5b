package pdu

import "fmt"

// Maximum C-Octet string sizes, terminating NUL included.
const (
	MaxSystemIDLength     = 16
	MaxPasswordLength     = 9
	MaxSystemTypeLength   = 13
	MaxAddressRangeLength = 41
	MaxServiceTypeLength  = 6
	MaxAddressLength      = 21
	MaxMessageIDLength    = 65
	MaxDLNameLength       = 21
	TimeLength            = 17
	MaxShortMessageLength = 254
	MaxDestinations       = 254
)

// StringError reports a field that violates its length or charset
// constraint. It is raised before anything is written to the wire.
type StringError struct {
	Field  string
	Value  string
	Reason string
}

func (e *StringError) Error() string {
	return fmt.Sprintf("pdu: invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

type check struct {
	err error
}

func (c *check) cstring(field, value string, max int) {
	if c.err != nil {
		return
	}
	if len(value) > max-1 {
		c.err = &StringError{Field: field, Value: value, Reason: fmt.Sprintf("longer than %d octets", max-1)}
		return
	}
	for i := 0; i < len(value); i++ {
		if b := value[i]; b == 0 || b > 0x7F {
			c.err = &StringError{Field: field, Value: value, Reason: fmt.Sprintf("byte 0x%02X at %d is not ASCII", b, i)}
			return
		}
	}
}

// time checks an absolute or relative SMPP time: empty or YYMMDDhhmmsstnnp.
func (c *check) time(field, value string) {
	if c.err != nil || value == "" {
		return
	}
	if len(value) != TimeLength-1 {
		c.err = &StringError{Field: field, Value: value, Reason: fmt.Sprintf("must be empty or %d characters", TimeLength-1)}
		return
	}
	for i := 0; i < 15; i++ {
		if value[i] < '0' || value[i] > '9' {
			c.err = &StringError{Field: field, Value: value, Reason: "expected digits in YYMMDDhhmmsstnn"}
			return
		}
	}
	switch value[15] {
	case '+', '-', 'R':
	default:
		c.err = &StringError{Field: field, Value: value, Reason: "last character must be +, - or R"}
	}
}

func (c *check) address(field string, a Address) {
	c.cstring(field, a.Addr, MaxAddressLength)
}

func (c *check) message(b []byte) {
	if c.err == nil && len(b) > MaxShortMessageLength {
		c.err = &StringError{
			Field:  "short_message",
			Value:  fmt.Sprintf("%d octets", len(b)),
			Reason: fmt.Sprintf("longer than %d octets, use message_payload", MaxShortMessageLength),
		}
	}
}

// Validate checks the string fields of a body against the SMPP v3.4 length
// and charset rules, and its optional parameters against the 16-bit TLV
// length. It returns a *StringError or nil.
func Validate(body Body) error {
	var c check
	switch b := body.(type) {
	case *Bind:
		c.cstring("system_id", b.SystemID, MaxSystemIDLength)
		c.cstring("password", b.Password, MaxPasswordLength)
		c.cstring("system_type", b.SystemType, MaxSystemTypeLength)
		c.cstring("address_range", b.AddressRange, MaxAddressRangeLength)
	case *SubmitSm:
		c.shortMessage(&b.ShortMessage)
	case *DeliverSm:
		c.shortMessage(&b.ShortMessage)
	case *SubmitMulti:
		c.cstring("service_type", b.ServiceType, MaxServiceTypeLength)
		c.address("source_addr", b.Source)
		if c.err == nil && (len(b.Dests) == 0 || len(b.Dests) > MaxDestinations) {
			c.err = &StringError{
				Field:  "number_of_dests",
				Value:  fmt.Sprint(len(b.Dests)),
				Reason: fmt.Sprintf("must be between 1 and %d", MaxDestinations),
			}
		}
		for _, dest := range b.Dests {
			if dest.DistributionList != "" {
				c.cstring("dl_name", dest.DistributionList, MaxDLNameLength)
				continue
			}
			c.address("destination_addr", dest.Address)
		}
		c.time("schedule_delivery_time", b.ScheduleDeliveryTime)
		c.time("validity_period", b.ValidityPeriod)
		c.message(b.Message)
	case *DataSm:
		c.cstring("service_type", b.ServiceType, MaxServiceTypeLength)
		c.address("source_addr", b.Source)
		c.address("destination_addr", b.Dest)
	case *QuerySm:
		c.cstring("message_id", b.MessageID, MaxMessageIDLength)
		c.address("source_addr", b.Source)
	case *CancelSm:
		c.cstring("service_type", b.ServiceType, MaxServiceTypeLength)
		c.cstring("message_id", b.MessageID, MaxMessageIDLength)
		c.address("source_addr", b.Source)
		c.address("destination_addr", b.Dest)
	case *ReplaceSm:
		c.cstring("message_id", b.MessageID, MaxMessageIDLength)
		c.address("source_addr", b.Source)
		c.time("schedule_delivery_time", b.ScheduleDeliveryTime)
		c.time("validity_period", b.ValidityPeriod)
		c.message(b.Message)
	case *AlertNotification:
		c.address("source_addr", b.Source)
		c.address("esme_addr", b.Esme)
	case *SubmitSmResp:
		c.cstring("message_id", b.MessageID, MaxMessageIDLength)
	case *DataSmResp:
		c.cstring("message_id", b.MessageID, MaxMessageIDLength)
	case *BindResp:
		c.cstring("system_id", b.SystemID, MaxSystemIDLength)
	}
	if c.err == nil {
		c.err = optionsOfBody(body).check()
	}
	return c.err
}

func (c *check) shortMessage(m *ShortMessage) {
	c.cstring("service_type", m.ServiceType, MaxServiceTypeLength)
	c.address("source_addr", m.Source)
	c.address("destination_addr", m.Dest)
	c.time("schedule_delivery_time", m.ScheduleDeliveryTime)
	c.time("validity_period", m.ValidityPeriod)
	c.message(m.Message)
}
