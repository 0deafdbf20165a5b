package pdu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	long := strings.Repeat("9", MaxAddressLength)
	for _, tc := range []struct {
		name  string
		body  Body
		field string
	}{
		{"bind ok", &Bind{SystemID: "sys", Password: "pass"}, ""},
		{"system id too long", &Bind{SystemID: strings.Repeat("s", MaxSystemIDLength)}, "system_id"},
		{"password too long", &Bind{SystemID: "sys", Password: "0123456789"}, "password"},
		{"submit ok", &SubmitSm{ShortMessage{Dest: Address{Addr: "6281234567"}, Message: []byte("hi")}}, ""},
		{"dest too long", &SubmitSm{ShortMessage{Dest: Address{Addr: long}}}, "destination_addr"},
		{"non ascii", &SubmitSm{ShortMessage{Source: Address{Addr: "628é"}}}, "source_addr"},
		{"bad validity", &SubmitSm{ShortMessage{ValidityPeriod: "2310171200"}}, "validity_period"},
		{"bad validity suffix", &SubmitSm{ShortMessage{ValidityPeriod: "231017120000000X"}}, "validity_period"},
		{"message too long", &SubmitSm{ShortMessage{Message: make([]byte, MaxShortMessageLength+1)}}, "short_message"},
		{"multi without dests", &SubmitMulti{}, "number_of_dests"},
		{"multi dl name", &SubmitMulti{Dests: []DestAddress{{DistributionList: strings.Repeat("d", MaxDLNameLength)}}}, "dl_name"},
		{"cancel ok", &CancelSm{MessageID: "abc"}, ""},
		{"query id too long", &QuerySm{MessageID: strings.Repeat("1", MaxMessageIDLength)}, "message_id"},
		{"payload at tlv limit", &DataSm{Options: Options{{Tag: TagMessagePayload, Value: make([]byte, MaxTLVLength)}}}, ""},
		{"payload over tlv limit", &DataSm{Options: Options{{Tag: TagMessagePayload, Value: make([]byte, MaxTLVLength+1)}}}, "tlv 0x0424"},
		{"bind resp tlv", &BindResp{SystemID: "smsc", Options: Options{{Tag: TagSCInterfaceVersion, Value: make([]byte, 70000)}}}, "tlv 0x0210"},
		{"empty kind", nil, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.body)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var se *StringError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tc.field, se.Field)
		})
	}
}
